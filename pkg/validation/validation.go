package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
)

const maxHorizonMinutes = 24 * 60

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ParseTimestamp accepts RFC3339 or a zone-less ISO timestamp, which is
// read as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = SanitizeString(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: timestamp cannot be empty", ErrInvalidInput)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid timestamp %q, expected ISO 8601", ErrInvalidInput, raw)
}

// ParseOptionalTimestamp returns fallback for an empty value.
func ParseOptionalTimestamp(raw string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return ParseTimestamp(raw)
}

// ValidateHorizons checks forecast horizons in minutes.
func ValidateHorizons(horizons []int) error {
	for _, h := range horizons {
		if h < 0 {
			return fmt.Errorf("%w: horizon %d must not be negative", ErrInvalidInput, h)
		}
		if h > maxHorizonMinutes {
			return fmt.Errorf("%w: horizon %d exceeds %d minutes", ErrInvalidInput, h, maxHorizonMinutes)
		}
	}
	return nil
}

// ValidateLoad checks a requests-per-minute figure.
func ValidateLoad(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, name)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, name)
	}
	return nil
}

// ValidateScalingRequest checks the inputs of a scaling recommendation.
func ValidateScalingRequest(currentServers int, currentLoad, predictedLoad float64, utilization *float64) error {
	if currentServers < 1 {
		return fmt.Errorf("%w: current_servers must be at least 1", ErrInvalidInput)
	}
	if err := ValidateLoad("current_load", currentLoad); err != nil {
		return err
	}
	if err := ValidateLoad("predicted_load", predictedLoad); err != nil {
		return err
	}
	if utilization != nil && (*utilization < 0 || *utilization > 100) {
		return fmt.Errorf("%w: current_utilization must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

// ValidateServerCount checks if min/max server counts are valid
func ValidateServerCount(min, max int) error {
	if min < 1 {
		return fmt.Errorf("%w: minimum servers must be at least 1", ErrInvalidInput)
	}
	if max < min {
		return fmt.Errorf("%w: maximum servers must be greater than or equal to minimum servers", ErrInvalidInput)
	}
	if max > 1000 {
		return fmt.Errorf("%w: maximum servers cannot exceed 1000", ErrInvalidInput)
	}
	return nil
}

// ValidateWindowHours checks a trailing window length in hours.
func ValidateWindowHours(hours float64) error {
	if math.IsNaN(hours) || hours <= 0 {
		return fmt.Errorf("%w: hours must be positive", ErrInvalidInput)
	}
	if hours > 24*365 {
		return fmt.Errorf("%w: hours cannot exceed one year", ErrInvalidInput)
	}
	return nil
}

// ClampLimit applies the default for non-positive limits and caps at max.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}
