package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(policy Policy) (*VerificationLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.Now

	limiter := NewVerificationLimiter(policy, store)
	limiter.now = clock.Now
	return limiter, clock
}

func mustRecord(t *testing.T, l *VerificationLimiter, userID, matchID string) {
	t.Helper()
	if err := l.Record(context.Background(), userID, matchID); err != nil {
		t.Fatalf("Record(%s, %s) failed: %v", userID, matchID, err)
	}
}

func TestCheck_DailyCap(t *testing.T) {
	limiter, clock := newTestLimiter(DefaultPolicy())
	ctx := context.Background()

	// 19 verified matches spaced 65 minutes apart, wide enough that neither
	// cooldown nor velocity interferes.
	for i := 1; i <= 19; i++ {
		decision, err := limiter.Check(ctx, "u1", fmt.Sprintf("m%d", i))
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("match m%d should be allowed, got reason %q", i, decision.Reason)
		}
		mustRecord(t, limiter, "u1", fmt.Sprintf("m%d", i))
		clock.Advance(65 * time.Minute)
	}

	// The 20th check still passes.
	decision, err := limiter.Check(ctx, "u1", "m20")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("20th match should be allowed, got reason %q", decision.Reason)
	}
	mustRecord(t, limiter, "u1", "m20")
	clock.Advance(65 * time.Minute)

	// The 21st is rejected by the daily cap, with a retry hint reflecting
	// when m1 ages out of the 24-hour window.
	decision, err = limiter.Check(ctx, "u1", "m21")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("21st match should be rejected by the daily cap")
	}
	if decision.Reason != "daily limit of 20 verified matches reached" {
		t.Errorf("unexpected reason: %q", decision.Reason)
	}

	// m1 was recorded 20*65 minutes ago; 24h - 1300min = 140min remain.
	if decision.RetryAfterMinutes != 140 {
		t.Errorf("RetryAfterMinutes = %d, want 140", decision.RetryAfterMinutes)
	}
}

func TestCheck_Cooldown(t *testing.T) {
	limiter, clock := newTestLimiter(DefaultPolicy())
	ctx := context.Background()

	mustRecord(t, limiter, "u1", "m1")

	// A different match inside the cooldown is rejected.
	clock.Advance(90 * time.Second)
	decision, err := limiter.Check(ctx, "u1", "m2")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("check inside cooldown should be rejected")
	}
	// 3.5 minutes remain, rounded up to 4.
	if decision.RetryAfterMinutes != 4 {
		t.Errorf("RetryAfterMinutes = %d, want 4", decision.RetryAfterMinutes)
	}

	// Once the cooldown elapses the same check passes.
	clock.Advance(210 * time.Second)
	decision, err = limiter.Check(ctx, "u1", "m2")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("check after cooldown should be allowed, got reason %q", decision.Reason)
	}
}

func TestCheck_Velocity(t *testing.T) {
	limiter, clock := newTestLimiter(DefaultPolicy())
	ctx := context.Background()

	// 10 matches in 45 minutes: cooldown respected, daily cap untouched.
	for i := 1; i <= 10; i++ {
		mustRecord(t, limiter, "u1", fmt.Sprintf("m%d", i))
		clock.Advance(5 * time.Minute)
	}

	decision, err := limiter.Check(ctx, "u1", "m11")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("check inside the velocity window should be rejected")
	}
	if decision.Reason != "more than 10 verifications in the last hour" {
		t.Errorf("unexpected reason: %q", decision.Reason)
	}
	if decision.RetryAfterMinutes != 60 {
		t.Errorf("RetryAfterMinutes = %d, want fixed 60", decision.RetryAfterMinutes)
	}
}

func TestCheck_Duplicate(t *testing.T) {
	limiter, clock := newTestLimiter(DefaultPolicy())
	ctx := context.Background()

	mustRecord(t, limiter, "u1", "X")

	// Well past cooldown and velocity windows the duplicate is still
	// rejected, permanently and without a retry hint.
	clock.Advance(2 * time.Hour)
	decision, err := limiter.Check(ctx, "u1", "X")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("duplicate match should be rejected")
	}
	if decision.Reason != "this match has already been verified" {
		t.Errorf("unexpected reason: %q", decision.Reason)
	}
	if decision.RetryAfterMinutes != 0 {
		t.Errorf("duplicate rejection must carry no retry hint, got %d", decision.RetryAfterMinutes)
	}
}

func TestCheck_PruningAfterRetention(t *testing.T) {
	limiter, clock := newTestLimiter(DefaultPolicy())
	ctx := context.Background()

	mustRecord(t, limiter, "u1", "m1")
	clock.Advance(25 * time.Hour)

	stats, err := limiter.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.MatchesToday != 0 {
		t.Errorf("MatchesToday = %d, want 0 after retention", stats.MatchesToday)
	}
	if stats.LastVerification != nil {
		t.Error("LastVerification should be nil after retention")
	}

	// Even the duplicate rule forgets an aged-out match.
	decision, err := limiter.Check(ctx, "u1", "m1")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("aged-out match should be claimable again, got reason %q", decision.Reason)
	}
}

func TestCheck_EmptyInputs(t *testing.T) {
	limiter, _ := newTestLimiter(DefaultPolicy())
	ctx := context.Background()

	for _, pair := range [][2]string{{"", "m1"}, {"u1", ""}, {"", ""}} {
		decision, err := limiter.Check(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if decision.Allowed {
			t.Errorf("Check(%q, %q) should be rejected", pair[0], pair[1])
		}
	}
}

func TestStats(t *testing.T) {
	limiter, clock := newTestLimiter(DefaultPolicy())
	ctx := context.Background()

	// Two older matches, then two inside the trailing hour.
	mustRecord(t, limiter, "u1", "m1")
	clock.Advance(3 * time.Hour)
	mustRecord(t, limiter, "u1", "m2")
	clock.Advance(3 * time.Hour)
	mustRecord(t, limiter, "u1", "m3")
	clock.Advance(10 * time.Minute)
	mustRecord(t, limiter, "u1", "m4")
	clock.Advance(10 * time.Minute)

	stats, err := limiter.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.MatchesToday != 4 {
		t.Errorf("MatchesToday = %d, want 4", stats.MatchesToday)
	}
	if stats.MatchesThisHour != 2 {
		t.Errorf("MatchesThisHour = %d, want 2", stats.MatchesThisHour)
	}
	if stats.DailyLimit != 20 {
		t.Errorf("DailyLimit = %d, want 20", stats.DailyLimit)
	}
	if stats.RemainingToday != 16 {
		t.Errorf("RemainingToday = %d, want 16", stats.RemainingToday)
	}
	if stats.LastVerification == nil {
		t.Fatal("LastVerification should be set")
	}
}

func TestResetUser(t *testing.T) {
	limiter, _ := newTestLimiter(DefaultPolicy())
	ctx := context.Background()

	mustRecord(t, limiter, "u1", "m1")

	if err := limiter.ResetUser(ctx, "u1"); err != nil {
		t.Fatalf("ResetUser failed: %v", err)
	}

	// Cooldown and duplicate state are gone.
	decision, err := limiter.Check(ctx, "u1", "m1")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("check after reset should be allowed, got reason %q", decision.Reason)
	}
}

func TestSuspiciousUsers(t *testing.T) {
	limiter, clock := newTestLimiter(DefaultPolicy())
	ctx := context.Background()

	// heavy: 16 matches over the day (>= 80% of the daily cap).
	for i := 0; i < 16; i++ {
		mustRecord(t, limiter, "heavy", fmt.Sprintf("h%d", i))
		clock.Advance(70 * time.Minute)
	}

	// fast: 8 matches inside the last hour (>= 80% of the velocity cap).
	for i := 0; i < 8; i++ {
		mustRecord(t, limiter, "fast", fmt.Sprintf("f%d", i))
		clock.Advance(5 * time.Minute)
	}

	// casual: 2 matches, not flagged.
	mustRecord(t, limiter, "casual", "c1")
	clock.Advance(10 * time.Minute)
	mustRecord(t, limiter, "casual", "c2")

	flagged, err := limiter.SuspiciousUsers(ctx)
	if err != nil {
		t.Fatalf("SuspiciousUsers failed: %v", err)
	}

	if len(flagged) != 2 {
		t.Fatalf("flagged %d users, want 2: %+v", len(flagged), flagged)
	}
	// Sorted descending by 24h match count.
	if flagged[0].UserID != "heavy" || flagged[1].UserID != "fast" {
		t.Errorf("unexpected order: %s, %s", flagged[0].UserID, flagged[1].UserID)
	}
	if flagged[0].FlagReason != "approaching daily match limit" {
		t.Errorf("heavy: unexpected reason %q", flagged[0].FlagReason)
	}
	if flagged[1].FlagReason != "high verification velocity" {
		t.Errorf("fast: unexpected reason %q", flagged[1].FlagReason)
	}
}

func TestCheckAndRecord_Concurrent(t *testing.T) {
	// Cooldown and velocity disabled so only the daily cap is in play.
	policy := Policy{
		MaxMatchesPerDay: 20,
		Cooldown:         0,
		VelocityWindow:   time.Hour,
		MaxVelocity:      1000,
	}
	limiter, _ := newTestLimiter(policy)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision, err := limiter.CheckAndRecord(ctx, "u1", fmt.Sprintf("m%d", i))
			if err != nil {
				t.Errorf("CheckAndRecord failed: %v", err)
				return
			}
			if decision.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	// Without the per-user lock, concurrent requests could jointly exceed
	// the cap (check-then-act race).
	if allowed != 20 {
		t.Errorf("allowed %d concurrent verifications, want exactly 20", allowed)
	}
}

func TestCrossedFlagThreshold(t *testing.T) {
	limiter, _ := newTestLimiter(DefaultPolicy())

	tests := []struct {
		name       string
		stats      Stats
		wantReason string
		wantFlag   bool
	}{
		{"below both thresholds", Stats{MatchesToday: 15, MatchesThisHour: 7}, "", false},
		{"crosses daily threshold", Stats{MatchesToday: 16, MatchesThisHour: 5}, "approaching daily match limit", true},
		{"crosses velocity threshold", Stats{MatchesToday: 12, MatchesThisHour: 8}, "high verification velocity", true},
		// Already past the crossing point: no re-flag on later attempts.
		{"past daily threshold", Stats{MatchesToday: 17, MatchesThisHour: 5}, "", false},
		{"past velocity threshold", Stats{MatchesToday: 12, MatchesThisHour: 9}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, flagged := limiter.CrossedFlagThreshold(tt.stats)
			if flagged != tt.wantFlag {
				t.Errorf("flagged = %v, want %v", flagged, tt.wantFlag)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}
