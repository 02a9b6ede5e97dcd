// Package format turns raw backend values into display strings.
package format

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	ColorNeutral  = "text-gray-400"
	ColorPositive = "text-green-600"
	ColorNegative = "text-red-600"
)

type PerformanceText struct {
	Text  string
	Color string
}

// Performance renders a percentage change with one decimal and a sign.
// Halves round away from zero, so -3.25 becomes "-3.3%".
func Performance(v *float64) PerformanceText {
	if v == nil || math.IsNaN(*v) {
		return PerformanceText{Text: "N/A", Color: ColorNeutral}
	}
	value := *v
	digits := strconv.FormatFloat(math.Round(math.Abs(value)*10)/10, 'f', 1, 64)
	if value >= 0 {
		return PerformanceText{Text: "+" + digits + "%", Color: ColorPositive}
	}
	return PerformanceText{Text: "-" + digits + "%", Color: ColorNegative}
}

// RelativeTime buckets the age of ts relative to now. Timestamps in the
// future are reported as "Just now".
func RelativeTime(ts *time.Time, now time.Time) string {
	if ts == nil {
		return "Never"
	}
	mins := int64(now.Sub(*ts) / time.Minute)
	if mins < 1 {
		return "Just now"
	}
	if mins < 60 {
		return fmt.Sprintf("%dm ago", mins)
	}
	hours := mins / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", hours/24)
}

// RelativeTimeString is RelativeTime for the ISO strings the backend sends.
func RelativeTimeString(iso string, now time.Time) string {
	if strings.TrimSpace(iso) == "" {
		return "Never"
	}
	ts, err := ParseTimestamp(iso)
	if err != nil {
		return "Unknown"
	}
	return RelativeTime(&ts, now)
}

// RelativeTimePtr accepts a nullable timestamp string.
func RelativeTimePtr(iso *string, now time.Time) string {
	if iso == nil {
		return "Never"
	}
	return RelativeTimeString(*iso, now)
}

var ErrBadTimestamp = errors.New("unrecognized timestamp")

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 and the naive ISO forms Python emits.
// Values without a zone are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

// Elapsed renders a duration in seconds the way the backend reports it.
func Elapsed(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64) + "s"
}
