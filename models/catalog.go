package models

import "sort"

// Catalog resolves signal-type codes to labels and descriptions. The zero
// value uses only the built-in labels.
type Catalog struct {
	descriptions map[SignalType]string
}

// NewCatalog builds a catalog from the backend's code → description map.
func NewCatalog(descriptions map[string]string) *Catalog {
	c := &Catalog{descriptions: make(map[SignalType]string, len(descriptions))}
	for code, desc := range descriptions {
		c.descriptions[SignalType(code)] = desc
	}
	return c
}

func (c *Catalog) Label(t SignalType) string {
	return t.Label()
}

func (c *Catalog) Description(t SignalType) string {
	if c == nil {
		return ""
	}
	return c.descriptions[t]
}

// Filters reports whether t can be chosen in the dashboard signal type
// filter. Neutral is never offered there.
func (c *Catalog) Filters(t SignalType) bool {
	return t != SignalNeutral && c.Known(t)
}

// Known reports whether t is built-in or was announced by the backend.
func (c *Catalog) Known(t SignalType) bool {
	if t.Known() {
		return true
	}
	if c == nil {
		return false
	}
	_, ok := c.descriptions[t]
	return ok
}

// Filterable lists the types offered as filters: every built-in type except
// neutral, followed by backend-only codes in lexical order.
func (c *Catalog) Filterable() []SignalType {
	types := make([]SignalType, 0, len(AllSignalTypes))
	for _, t := range AllSignalTypes {
		if t != SignalNeutral {
			types = append(types, t)
		}
	}
	if c == nil {
		return types
	}
	var extra []SignalType
	for t := range c.descriptions {
		if !t.Known() {
			extra = append(extra, t)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(types, extra...)
}
