package activity

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Point is a cursor position in screen coordinates.
type Point struct {
	X int
	Y int
}

// Sampler provides the raw presence signal. Implementations are platform
// specific; the detection policy in this package only ever sees the sampled
// point, never how it was obtained.
type Sampler interface {
	Sample() (Point, error)
}

// CommandSampler reads the cursor position by running an OS query command,
// e.g. `xdotool getmouselocation` on X11 or `cliclick p` on macOS.
type CommandSampler struct {
	name string
	args []string
}

// NewCommandSampler creates a sampler that shells out to the given command.
func NewCommandSampler(name string, args ...string) *CommandSampler {
	return &CommandSampler{name: name, args: args}
}

// Sample runs the query command and parses the cursor position.
func (s *CommandSampler) Sample() (Point, error) {
	out, err := exec.Command(s.name, s.args...).Output()
	if err != nil {
		return Point{}, fmt.Errorf("cursor query failed: %w", err)
	}
	return parsePoint(string(out))
}

// DefaultSampler returns the cursor sampler for the current platform.
func DefaultSampler() Sampler {
	switch runtime.GOOS {
	case "darwin":
		return NewCommandSampler("cliclick", "p")
	default:
		return NewCommandSampler("xdotool", "getmouselocation")
	}
}

// parsePoint accepts both "x:662 y:377 screen:0 ..." (xdotool) and
// "662,377" (cliclick) output.
func parsePoint(out string) (Point, error) {
	out = strings.TrimSpace(out)

	if strings.HasPrefix(out, "x:") {
		var p Point
		found := 0
		for _, field := range strings.Fields(out) {
			if v, ok := strings.CutPrefix(field, "x:"); ok {
				n, err := strconv.Atoi(v)
				if err != nil {
					return Point{}, fmt.Errorf("bad x coordinate %q", v)
				}
				p.X = n
				found++
			} else if v, ok := strings.CutPrefix(field, "y:"); ok {
				n, err := strconv.Atoi(v)
				if err != nil {
					return Point{}, fmt.Errorf("bad y coordinate %q", v)
				}
				p.Y = n
				found++
			}
		}
		if found < 2 {
			return Point{}, fmt.Errorf("incomplete cursor output %q", out)
		}
		return p, nil
	}

	if x, y, ok := strings.Cut(out, ","); ok {
		xi, errX := strconv.Atoi(strings.TrimSpace(x))
		yi, errY := strconv.Atoi(strings.TrimSpace(y))
		if errX != nil || errY != nil {
			return Point{}, fmt.Errorf("bad cursor output %q", out)
		}
		return Point{X: xi, Y: yi}, nil
	}

	return Point{}, fmt.Errorf("unrecognized cursor output %q", out)
}
