// Package viewstate holds the user's dashboard selections and their
// persistence. Stored values are advisory: anything missing or corrupt falls
// back to the defaults.
package viewstate

import (
	"errors"
	"fmt"
	"strconv"

	"sector-intel/models"
)

// Storage key names.
const (
	KeyTimeWindow = "timeWindow"
	KeySignalType = "signalType"
	KeyViewType   = "viewType"
)

const AllSignalTypes = "all"

type ViewType string

const (
	ViewGrid ViewType = "grid"
	ViewList ViewType = "list"
)

var TimeWindowOptions = []int{7, 14, 30}

const DefaultTimeWindow = 7

var ErrInvalidValue = errors.New("invalid view state value")

// Storage is a synchronous key-value store for one browser.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

type ViewState struct {
	TimeWindow int
	SignalType string
	ViewType   ViewType
}

func Defaults() ViewState {
	return ViewState{
		TimeWindow: DefaultTimeWindow,
		SignalType: AllSignalTypes,
		ViewType:   ViewGrid,
	}
}

func ValidTimeWindow(days int) bool {
	for _, opt := range TimeWindowOptions {
		if opt == days {
			return true
		}
	}
	return false
}

// ValidSignalType accepts "all" and the built-in signal type codes that the
// filter offers, which excludes neutral.
func ValidSignalType(code string) bool {
	t := models.SignalType(code)
	return code == AllSignalTypes || (t.Known() && t != models.SignalNeutral)
}

func ValidViewType(v ViewType) bool {
	return v == ViewGrid || v == ViewList
}

// ParseTimeWindow parses a window in days, rejecting anything outside the
// offered options.
func ParseTimeWindow(raw string) (int, error) {
	days, err := strconv.Atoi(raw)
	if err != nil || !ValidTimeWindow(days) {
		return 0, fmt.Errorf("%w: timeWindow %q", ErrInvalidValue, raw)
	}
	return days, nil
}

func ParseViewType(raw string) (ViewType, error) {
	v := ViewType(raw)
	if !ValidViewType(v) {
		return "", fmt.Errorf("%w: viewType %q", ErrInvalidValue, raw)
	}
	return v, nil
}

// Load rehydrates view state, field by field, from s.
func Load(s Storage) ViewState {
	vs := Defaults()
	vs.TimeWindow = LoadTimeWindow(s)
	if raw, ok := s.Get(KeySignalType); ok && ValidSignalType(raw) {
		vs.SignalType = raw
	}
	if raw, ok := s.Get(KeyViewType); ok {
		if v, err := ParseViewType(raw); err == nil {
			vs.ViewType = v
		}
	}
	return vs
}

// LoadTimeWindow reads only the time window.
func LoadTimeWindow(s Storage) int {
	if raw, ok := s.Get(KeyTimeWindow); ok {
		if days, err := ParseTimeWindow(raw); err == nil {
			return days
		}
	}
	return DefaultTimeWindow
}

// Save writes every field of vs.
func Save(s Storage, vs ViewState) error {
	if err := SaveTimeWindow(s, vs.TimeWindow); err != nil {
		return err
	}
	if err := s.Set(KeySignalType, vs.SignalType); err != nil {
		return err
	}
	return s.Set(KeyViewType, string(vs.ViewType))
}

func SaveTimeWindow(s Storage, days int) error {
	return s.Set(KeyTimeWindow, strconv.Itoa(days))
}
