package spacedrep

import (
	"fmt"
	"strings"
)

// Signal is the raw difficulty button a learner pressed after a review.
type Signal int

const (
	Again Signal = iota + 1 // Failed to recall.
	Hard                    // Recalled with significant effort.
	Good                    // Recalled with some effort.
	Easy                    // Recalled effortlessly.
)

// Signals lists every signal from worst to best.
var Signals = []Signal{Again, Hard, Good, Easy}

var signalNames = [...]string{Again: "again", Hard: "hard", Good: "good", Easy: "easy"}

// IsValid reports whether s is one of the four defined signals.
func (s Signal) IsValid() bool {
	return s >= Again && s <= Easy
}

func (s Signal) String() string {
	if s.IsValid() {
		return signalNames[s]
	}
	return fmt.Sprintf("Signal(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Signal) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSignal, int(s))
	}
	return []byte(signalNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signal) UnmarshalText(text []byte) error {
	v, err := ParseSignal(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSignal parses a button name ("again", "hard", "good", "easy") or its
// 1-based position ("1".."4"). Matching is case-insensitive.
func ParseSignal(raw string) (Signal, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "again", "1":
		return Again, nil
	case "hard", "2":
		return Hard, nil
	case "good", "3":
		return Good, nil
	case "easy", "4":
		return Easy, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSignal, raw)
}

// Grade is the normalized 0-3 recall quality consumed by the scheduler.
type Grade int

const (
	GradeAgain Grade = 0
	GradeHard  Grade = 1
	GradeGood  Grade = 2
	GradeEasy  Grade = 3
)

// MaxGrade is the best possible grade.
const MaxGrade = GradeEasy

// Classify maps a signal to its grade. The zero Signal classifies as
// GradeAgain so the mapping stays total.
func Classify(s Signal) Grade {
	switch s {
	case Hard:
		return GradeHard
	case Good:
		return GradeGood
	case Easy:
		return GradeEasy
	default:
		return GradeAgain
	}
}

// Passed reports whether the grade counts as a successful recall.
func (g Grade) Passed() bool {
	return g > GradeAgain
}

func (g Grade) String() string {
	switch g {
	case GradeAgain:
		return "again"
	case GradeHard:
		return "hard"
	case GradeGood:
		return "good"
	case GradeEasy:
		return "easy"
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}
