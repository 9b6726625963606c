package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Default policy knobs. Each is overridable through Policy / env config.
const (
	DefaultMaxMatchesPerDay = 20
	DefaultCooldown         = 5 * time.Minute
	DefaultVelocityWindow   = time.Hour
	DefaultMaxVelocity      = 10

	// RetentionWindow is how long attempts are kept. Attempts age out of
	// every count once they are older than this.
	RetentionWindow = 24 * time.Hour
)

// Attempt is one recorded match-verification request.
type Attempt struct {
	UserID    string    `json:"userId"`
	MatchID   string    `json:"matchId"`
	Timestamp time.Time `json:"timestamp"`
}

// Decision is the structured outcome of a policy check. Rejections are not
// errors: Reason is human-readable and RetryAfterMinutes is a hint, zero when
// retrying can never succeed (duplicate match).
type Decision struct {
	Allowed           bool   `json:"allowed"`
	Reason            string `json:"reason,omitempty"`
	RetryAfterMinutes int    `json:"retryAfterMinutes,omitempty"`
}

// Stats is a read-only summary of a user's verification activity.
type Stats struct {
	MatchesToday     int        `json:"matchesToday"`
	MatchesThisHour  int        `json:"matchesThisHour"`
	DailyLimit       int        `json:"dailyLimit"`
	RemainingToday   int        `json:"remainingToday"`
	LastVerification *time.Time `json:"lastVerification,omitempty"`
}

// SuspiciousUser flags a user close to a cap, for human review.
type SuspiciousUser struct {
	UserID     string `json:"userId"`
	MatchCount int    `json:"matchCount"`
	Velocity   int    `json:"velocity"`
	FlagReason string `json:"flagReason"`
}

// Policy holds the tunable limits for match verification.
type Policy struct {
	MaxMatchesPerDay int
	Cooldown         time.Duration
	VelocityWindow   time.Duration
	MaxVelocity      int
}

// DefaultPolicy returns the production limits.
func DefaultPolicy() Policy {
	return Policy{
		MaxMatchesPerDay: DefaultMaxMatchesPerDay,
		Cooldown:         DefaultCooldown,
		VelocityWindow:   DefaultVelocityWindow,
		MaxVelocity:      DefaultMaxVelocity,
	}
}

// Evaluate applies the four policies in order against a pruned history:
// daily cap, cooldown, velocity, duplicate. It short-circuits on the first
// failure and has no side effects, so callers can check without committing.
func (p Policy) Evaluate(history []Attempt, matchID string, now time.Time) Decision {
	// 1. Daily cap
	if len(history) >= p.MaxMatchesPerDay {
		retry := 0
		if first, ok := oldest(history); ok {
			retry = minutesUntil(now, first.Timestamp.Add(RetentionWindow))
		}
		return Decision{
			Allowed:           false,
			Reason:            fmt.Sprintf("daily limit of %d verified matches reached", p.MaxMatchesPerDay),
			RetryAfterMinutes: retry,
		}
	}

	// 2. Cooldown since the most recent attempt
	if last, ok := newest(history); ok {
		if since := now.Sub(last.Timestamp); since < p.Cooldown {
			return Decision{
				Allowed:           false,
				Reason:            "cooldown between match verifications is still active",
				RetryAfterMinutes: minutesUntil(now, last.Timestamp.Add(p.Cooldown)),
			}
		}
	}

	// 3. Velocity inside the trailing window
	if countSince(history, now.Add(-p.VelocityWindow)) >= p.MaxVelocity {
		return Decision{
			Allowed:           false,
			Reason:            fmt.Sprintf("more than %d verifications in the last hour", p.MaxVelocity),
			RetryAfterMinutes: int(p.VelocityWindow / time.Minute),
		}
	}

	// 4. Duplicate match claim (permanent for this matchId, no retry hint)
	if hasMatch(history, matchID) {
		return Decision{
			Allowed: false,
			Reason:  "this match has already been verified",
		}
	}

	return Decision{Allowed: true}
}

// Store persists per-user attempt histories. History must return only
// attempts within the retention window, oldest first; pruning of older
// entries is the store's responsibility.
type Store interface {
	History(ctx context.Context, userID string) ([]Attempt, error)
	Append(ctx context.Context, attempt Attempt) error
	Reset(ctx context.Context, userID string) error
	Users(ctx context.Context) ([]string, error)
}

// VerificationLimiter decides whether a match-verification attempt is
// accepted, and keeps the history needed to decide.
type VerificationLimiter struct {
	policy Policy
	store  Store
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-user, serializes CheckAndRecord
}

// NewVerificationLimiter creates a limiter over the given store.
func NewVerificationLimiter(policy Policy, store Store) *VerificationLimiter {
	return &VerificationLimiter{
		policy: policy,
		store:  store,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Check evaluates the policies for (userID, matchID) without recording
// anything. Recording is a separate explicit step; see Record and
// CheckAndRecord.
func (l *VerificationLimiter) Check(ctx context.Context, userID, matchID string) (Decision, error) {
	if userID == "" || matchID == "" {
		return Decision{Allowed: false, Reason: "userId and matchId are required"}, nil
	}

	history, err := l.store.History(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load history: %w", err)
	}

	return l.policy.Evaluate(history, matchID, l.now()), nil
}

// Record appends an attempt with the current timestamp. It does not
// re-validate; callers must only record after an allowed Check. The store
// prunes aged-out entries on append, keeping memory bounded.
func (l *VerificationLimiter) Record(ctx context.Context, userID, matchID string) error {
	return l.store.Append(ctx, Attempt{
		UserID:    userID,
		MatchID:   matchID,
		Timestamp: l.now(),
	})
}

// CheckAndRecord runs Check and, when allowed, Record under a per-user lock,
// so concurrent requests for the same user cannot jointly exceed the caps.
// The lock is process-local; multi-instance deployments additionally hold a
// distributed lock around the whole verification flow.
func (l *VerificationLimiter) CheckAndRecord(ctx context.Context, userID, matchID string) (Decision, error) {
	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	decision, err := l.Check(ctx, userID, matchID)
	if err != nil || !decision.Allowed {
		return decision, err
	}

	if err := l.Record(ctx, userID, matchID); err != nil {
		return Decision{}, err
	}
	return decision, nil
}

// Stats returns the descriptive counters for a user, computed over the same
// pruned history the checks use.
func (l *VerificationLimiter) Stats(ctx context.Context, userID string) (Stats, error) {
	history, err := l.store.History(ctx, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load history: %w", err)
	}

	now := l.now()
	stats := Stats{
		MatchesToday:    len(history),
		MatchesThisHour: countSince(history, now.Add(-time.Hour)),
		DailyLimit:      l.policy.MaxMatchesPerDay,
	}
	stats.RemainingToday = l.policy.MaxMatchesPerDay - stats.MatchesToday
	if stats.RemainingToday < 0 {
		stats.RemainingToday = 0
	}
	if last, ok := newest(history); ok {
		t := last.Timestamp
		stats.LastVerification = &t
	}
	return stats, nil
}

// ResetUser discards the user's stored history. Administrative override.
func (l *VerificationLimiter) ResetUser(ctx context.Context, userID string) error {
	return l.store.Reset(ctx, userID)
}

// SuspiciousUsers scans every stored history and flags users at or above 80%
// of the daily or hourly caps, sorted by 24-hour match count descending.
// Triage for human review, not an automatic ban.
func (l *VerificationLimiter) SuspiciousUsers(ctx context.Context) ([]SuspiciousUser, error) {
	userIDs, err := l.store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	now := l.now()
	var flagged []SuspiciousUser
	for _, userID := range userIDs {
		history, err := l.store.History(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load history for %s: %w", userID, err)
		}

		daily := len(history)
		hourly := countSince(history, now.Add(-l.policy.VelocityWindow))

		var reason string
		switch {
		case daily >= flagThreshold(l.policy.MaxMatchesPerDay):
			reason = "approaching daily match limit"
		case hourly >= flagThreshold(l.policy.MaxVelocity):
			reason = "high verification velocity"
		default:
			continue
		}

		flagged = append(flagged, SuspiciousUser{
			UserID:     userID,
			MatchCount: daily,
			Velocity:   hourly,
			FlagReason: reason,
		})
	}

	sort.Slice(flagged, func(i, j int) bool {
		return flagged[i].MatchCount > flagged[j].MatchCount
	})
	return flagged, nil
}

// CrossedFlagThreshold reports whether the given counters have just reached a
// suspicious-user threshold. It fires only at the exact crossing count, so a
// caller that checks after each recorded attempt emits one alert per
// crossing rather than re-flagging on every subsequent attempt.
func (l *VerificationLimiter) CrossedFlagThreshold(stats Stats) (string, bool) {
	if stats.MatchesToday == flagThreshold(l.policy.MaxMatchesPerDay) {
		return "approaching daily match limit", true
	}
	if stats.MatchesThisHour == flagThreshold(l.policy.MaxVelocity) {
		return "high verification velocity", true
	}
	return "", false
}

// flagThreshold is the smallest count that puts a user at 80% of a cap.
func flagThreshold(limit int) int {
	return int(math.Ceil(0.8 * float64(limit)))
}

// userLock gets or creates the per-user mutex.
func (l *VerificationLimiter) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	mu, ok := l.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[userID] = mu
	}
	return mu
}
