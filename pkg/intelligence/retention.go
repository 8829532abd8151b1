package intelligence

import (
	"math"
	"time"

	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// Memory lifecycle tiers derived from retention strength.
const (
	TierWorking   = "working"
	TierShortTerm = "short_term"
	TierLongTerm  = "long_term"
)

// RetentionManager scores memory retention with the Ebbinghaus
// forgetting curve and drives reinforcement, tiering, and forgetting
// decisions.
//
// Retention follows R = e^(-decayRate * hoursElapsed / 24), measured
// from the last access (or creation if never accessed).
type RetentionManager struct {
	decayRate           float64
	reinforcementFactor float64

	workingThreshold   float64
	shortTermThreshold float64
	longTermThreshold  float64
	initialRetention   float64

	// reviewIntervals are spaced repetition intervals in hours.
	reviewIntervals []float64
}

// RetentionConfig tunes the forgetting curve.
type RetentionConfig struct {
	// DecayRate controls how fast memories fade. Typical 0.05-0.2.
	DecayRate float64

	// ReinforcementFactor controls how much an access strengthens a
	// memory. Typical 0.2-0.5.
	ReinforcementFactor float64

	// WorkingThreshold, ShortTermThreshold, and LongTermThreshold are
	// the tier boundaries. Defaults: 0.3, 0.6, 0.8.
	WorkingThreshold   float64
	ShortTermThreshold float64
	LongTermThreshold  float64

	// InitialRetention is the strength of a new memory. Default 1.0.
	InitialRetention float64
}

// NewRetentionManager creates a manager with default thresholds.
func NewRetentionManager(decayRate, reinforcementFactor float64) *RetentionManager {
	return NewRetentionManagerWithConfig(&RetentionConfig{
		DecayRate:           decayRate,
		ReinforcementFactor: reinforcementFactor,
	})
}

// NewRetentionManagerWithConfig creates a manager with custom tuning.
// Zero thresholds fall back to the defaults.
func NewRetentionManagerWithConfig(cfg *RetentionConfig) *RetentionManager {
	m := &RetentionManager{
		decayRate:           cfg.DecayRate,
		reinforcementFactor: cfg.ReinforcementFactor,
		workingThreshold:    cfg.WorkingThreshold,
		shortTermThreshold:  cfg.ShortTermThreshold,
		longTermThreshold:   cfg.LongTermThreshold,
		initialRetention:    cfg.InitialRetention,
		reviewIntervals:     []float64{1, 6, 24, 72, 168},
	}
	if m.decayRate == 0 {
		m.decayRate = 0.1
	}
	if m.reinforcementFactor == 0 {
		m.reinforcementFactor = 0.3
	}
	if m.workingThreshold == 0 {
		m.workingThreshold = 0.3
	}
	if m.shortTermThreshold == 0 {
		m.shortTermThreshold = 0.6
	}
	if m.longTermThreshold == 0 {
		m.longTermThreshold = 0.8
	}
	if m.initialRetention == 0 {
		m.initialRetention = 1.0
	}
	return m
}

// InitialRetention returns the strength assigned to new memories.
func (m *RetentionManager) InitialRetention() float64 {
	return m.initialRetention
}

// CalculateRetention returns the current retention strength of a
// memory, between 0 and 1.
func (m *RetentionManager) CalculateRetention(createdAt time.Time, lastAccessedAt *time.Time) float64 {
	since := createdAt
	if lastAccessedAt != nil {
		since = *lastAccessedAt
	}
	hoursElapsed := time.Since(since).Hours()

	retention := math.Exp(-m.decayRate * hoursElapsed / 24.0)
	if retention > 1.0 {
		return 1.0
	}
	if retention < 0.0 {
		return 0.0
	}
	return retention
}

// Reinforce strengthens a memory on access:
//
//	new = min(1.0, current + factor * (1 - current))
//
// Weak memories gain more than strong ones.
func (m *RetentionManager) Reinforce(currentStrength float64) float64 {
	newStrength := currentStrength + m.reinforcementFactor*(1.0-currentStrength)
	if newStrength > 1.0 {
		return 1.0
	}
	return newStrength
}

// ClassifyTier maps retention strength to a memory tier.
func (m *RetentionManager) ClassifyTier(retentionStrength float64) string {
	switch {
	case retentionStrength >= m.longTermThreshold:
		return TierLongTerm
	case retentionStrength >= m.shortTermThreshold:
		return TierShortTerm
	default:
		return TierWorking
	}
}

// ShouldForget reports whether a memory is weak or stale enough to
// delete: retention below the working threshold, or never accessed
// and older than seven days.
func (m *RetentionManager) ShouldForget(memory *storage.Memory) bool {
	retention := m.CalculateRetention(memory.CreatedAt, memory.LastAccessedAt)
	if retention < m.workingThreshold {
		return true
	}
	if memory.LastAccessedAt == nil && time.Since(memory.CreatedAt) > 7*24*time.Hour {
		return true
	}
	return false
}

// ShouldArchive reports whether a memory is old and unimportant enough
// to move out of the active store: older than thirty days with an
// importance score below the working threshold.
func (m *RetentionManager) ShouldArchive(memory *storage.Memory) bool {
	return time.Since(memory.CreatedAt) > 30*24*time.Hour &&
		memory.ImportanceScore < m.workingThreshold
}

// GenerateReviewSchedule produces spaced repetition review times. More
// important memories get shorter intervals, reduced by up to 30%.
func (m *RetentionManager) GenerateReviewSchedule(createdAt time.Time, importanceScore float64) []time.Time {
	reviewTimes := make([]time.Time, len(m.reviewIntervals))
	for i, interval := range m.reviewIntervals {
		adjusted := interval * (1 - importanceScore*0.3)
		if adjusted < 0.5 {
			adjusted = 0.5
		}
		reviewTimes[i] = createdAt.Add(time.Duration(adjusted * float64(time.Hour)))
	}
	return reviewTimes
}

// CalculateNextReview returns when a memory should next be reviewed.
// Strong memories wait longer: hours = 24 * (1 + strength * 10).
func (m *RetentionManager) CalculateNextReview(retentionStrength float64) time.Time {
	hoursUntilReview := 24.0 * (1.0 + retentionStrength*10.0)
	return time.Now().Add(time.Duration(hoursUntilReview * float64(time.Hour)))
}
