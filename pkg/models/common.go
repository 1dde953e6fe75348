package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// NewUUID generates a new UUID string
func NewUUID() string {
	return uuid.New().String()
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Hours converts a duration to fractional hours.
func Hours(d time.Duration) float64 {
	return d.Seconds() / 3600
}
