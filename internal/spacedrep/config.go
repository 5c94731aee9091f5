package spacedrep

import "fmt"

// Defaults for the SM-2 family scheduler.
const (
	DefaultEase            = 2.5
	MinEase                = 1.3
	DefaultLapsePenalty    = 0.20
	DefaultMatureDays      = 21
	DefaultMaxIntervalDays = 365
	DefaultHardMultiplier  = 0.8
	DefaultEasyMultiplier  = 1.3
)

// First and second successful repetitions use fixed intervals; later ones
// grow by the ease factor.
const (
	FirstIntervalDays  = 1
	SecondIntervalDays = 6
)

// Config holds the tunable scheduler parameters.
type Config struct {
	// DefaultEase is the ease factor assigned to newly enrolled items.
	DefaultEase float64 `yaml:"default_ease"`

	// MinEase is the floor the ease factor is clamped to. Never below 1.3.
	MinEase float64 `yaml:"min_ease"`

	// LapsePenalty is subtracted from the ease factor on an Again grade.
	LapsePenalty float64 `yaml:"lapse_penalty"`

	// MatureDays is the interval an item must exceed to enter the Review phase.
	MatureDays int `yaml:"mature_days"`

	// MaxIntervalDays caps every computed interval.
	MaxIntervalDays int `yaml:"max_interval_days"`

	HardMultiplier float64 `yaml:"hard_multiplier"`
	EasyMultiplier float64 `yaml:"easy_multiplier"`
}

// DefaultConfig returns a Config with the standard SM-2 family defaults.
func DefaultConfig() Config {
	return Config{
		DefaultEase:     DefaultEase,
		MinEase:         MinEase,
		LapsePenalty:    DefaultLapsePenalty,
		MatureDays:      DefaultMatureDays,
		MaxIntervalDays: DefaultMaxIntervalDays,
		HardMultiplier:  DefaultHardMultiplier,
		EasyMultiplier:  DefaultEasyMultiplier,
	}
}

// Validate checks that every parameter is in range.
func (c Config) Validate() error {
	switch {
	case c.MinEase < MinEase:
		return fmt.Errorf("%w: min_ease %.2f is below %.2f", ErrInvalidConfig, c.MinEase, MinEase)
	case c.DefaultEase < c.MinEase:
		return fmt.Errorf("%w: default_ease %.2f is below min_ease %.2f", ErrInvalidConfig, c.DefaultEase, c.MinEase)
	case c.LapsePenalty < 0:
		return fmt.Errorf("%w: lapse_penalty must not be negative", ErrInvalidConfig)
	case c.MatureDays < 1:
		return fmt.Errorf("%w: mature_days must be at least 1", ErrInvalidConfig)
	case c.MaxIntervalDays < SecondIntervalDays:
		return fmt.Errorf("%w: max_interval_days must be at least %d", ErrInvalidConfig, SecondIntervalDays)
	case c.HardMultiplier <= 0 || c.HardMultiplier > 1:
		return fmt.Errorf("%w: hard_multiplier must be in (0, 1]", ErrInvalidConfig)
	case c.EasyMultiplier < 1:
		return fmt.Errorf("%w: easy_multiplier must be at least 1", ErrInvalidConfig)
	}
	return nil
}
