package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidatePositive rejects zero, negative, NaN and infinite values.
// The error carries ErrCodeInvalidConfig because every float parameter the
// simulator accepts is part of the roundabout geometry or timing.
func ValidatePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidConfig, "%s must be a finite number, got %v", name, v)
	}
	if v <= 0 {
		return New(ErrCodeInvalidConfig, "%s must be > 0, got %v", name, v)
	}
	return nil
}

// ValidateAtLeast rejects integers below min.
func ValidateAtLeast(name string, v, min int) error {
	if v < min {
		return New(ErrCodeInvalidConfig, "%s must be >= %d, got %d", name, min, v)
	}
	return nil
}

// ValidateOrdinal checks a 1-based entry or exit ordinal against the number
// available. Out-of-range ordinals are routing failures: there is no such
// place to start or finish.
func ValidateOrdinal(kind string, ord, count int) error {
	if ord < 1 || ord > count {
		return New(ErrCodeRouting, "%s %d does not exist (have 1..%d)", kind, ord, count)
	}
	return nil
}

// ValidateLabel validates a vehicle label supplied by a spawn collaborator.
//
// The rules are intentionally conservative:
//   - Empty labels are allowed (a label is generated)
//   - No control characters
//   - Maximum length of 64 characters
//   - No leading or trailing whitespace
func ValidateLabel(label string) error {
	if label == "" {
		return nil
	}

	if len(label) > 64 {
		return New(ErrCodeInvalidInput, "label too long (max 64 characters)")
	}

	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "label contains invalid control characters")
		}
	}

	if strings.TrimSpace(label) != label {
		return New(ErrCodeInvalidInput, "label cannot start or end with whitespace")
	}

	return nil
}
