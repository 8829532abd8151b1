package intent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GateKeeper evaluates intent gates. A blocked gate records a
// gate_blocked execution and leaves the intent scheduled for its next
// slot.
//
// Supported gate expressions:
//   - "quiet_hours:22-07" blocks runs between 22:00 and 07:00 local
//   - "rate_limit:5/24h" blocks once 5 runs succeeded in 24 hours
type GateKeeper struct {
	store Store

	// now is swappable for tests.
	now func() time.Time
}

// NewGateKeeper creates a gate evaluator backed by the intent store.
func NewGateKeeper(store Store) *GateKeeper {
	return &GateKeeper{store: store, now: time.Now}
}

// Evaluate checks an intent's gate. It returns whether the run is
// blocked and the reason when it is. An empty gate never blocks.
func (g *GateKeeper) Evaluate(ctx context.Context, intent *ScheduledIntent) (bool, string, error) {
	if intent.Gate == "" {
		return false, "", nil
	}

	kind, arg, found := strings.Cut(intent.Gate, ":")
	if !found {
		return false, "", fmt.Errorf("malformed gate %q", intent.Gate)
	}

	switch kind {
	case "quiet_hours":
		return g.evaluateQuietHours(arg)
	case "rate_limit":
		return g.evaluateRateLimit(ctx, intent, arg)
	default:
		return false, "", fmt.Errorf("unknown gate %q", kind)
	}
}

// evaluateQuietHours blocks runs inside an hour window. The window may
// wrap midnight, "22-07" covers 22:00 through 06:59.
func (g *GateKeeper) evaluateQuietHours(arg string) (bool, string, error) {
	fromStr, toStr, found := strings.Cut(arg, "-")
	if !found {
		return false, "", fmt.Errorf("malformed quiet_hours window %q", arg)
	}
	from, err := strconv.Atoi(fromStr)
	if err != nil || from < 0 || from > 23 {
		return false, "", fmt.Errorf("malformed quiet_hours start %q", fromStr)
	}
	to, err := strconv.Atoi(toStr)
	if err != nil || to < 0 || to > 23 {
		return false, "", fmt.Errorf("malformed quiet_hours end %q", toStr)
	}

	hour := g.now().Hour()
	var inWindow bool
	if from <= to {
		inWindow = hour >= from && hour < to
	} else {
		inWindow = hour >= from || hour < to
	}
	if inWindow {
		return true, fmt.Sprintf("quiet hours %02d:00-%02d:00", from, to), nil
	}
	return false, "", nil
}

// evaluateRateLimit blocks once the intent succeeded max times inside
// the window. The argument has the form "<max>/<window>", where the
// window is a Go duration.
func (g *GateKeeper) evaluateRateLimit(ctx context.Context, intent *ScheduledIntent, arg string) (bool, string, error) {
	maxStr, windowStr, found := strings.Cut(arg, "/")
	if !found {
		return false, "", fmt.Errorf("malformed rate_limit %q", arg)
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max <= 0 {
		return false, "", fmt.Errorf("malformed rate_limit count %q", maxStr)
	}
	window, err := time.ParseDuration(windowStr)
	if err != nil || window <= 0 {
		return false, "", fmt.Errorf("malformed rate_limit window %q", windowStr)
	}

	since := g.now().Add(-window)
	count, err := g.store.CountExecutionsSince(ctx, intent.ID, ExecSuccess, since)
	if err != nil {
		return false, "", fmt.Errorf("count executions: %w", err)
	}
	if count >= max {
		return true, fmt.Sprintf("rate limit %d per %s reached", max, windowStr), nil
	}
	return false, "", nil
}
