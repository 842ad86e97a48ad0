// Package models defines data structures for the scraper.
package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Summary is the card data scraped from the operator index page.
type Summary struct {
	Name   string `json:"name"`
	Banner string `json:"banner"`
	Icon   string `json:"icon"`
	URL    string `json:"url"`
}

// LoadoutEntry is a weapon, gadget or ability belonging to an operator.
// Subtype is copied from the payload as published and may be nil.
type LoadoutEntry struct {
	Name    string `json:"name"`
	Subtype any    `json:"subtype"`
	Image   string `json:"image"`
}

// Loadout groups an operator's loadout entries by type.
// Unique is nil when the operator has no unique ability; it still
// serializes as an empty object.
type Loadout struct {
	Primary   []LoadoutEntry `json:"primary"`
	Secondary []LoadoutEntry `json:"secondary"`
	Gadgets   []LoadoutEntry `json:"gadgets"`
	Unique    *LoadoutEntry  `json:"unique"`
}

// NewLoadout returns a loadout with empty, non-nil collections.
func NewLoadout() Loadout {
	return Loadout{
		Primary:   []LoadoutEntry{},
		Secondary: []LoadoutEntry{},
		Gadgets:   []LoadoutEntry{},
	}
}

type loadoutJSON struct {
	Primary   []LoadoutEntry  `json:"primary"`
	Secondary []LoadoutEntry  `json:"secondary"`
	Gadgets   []LoadoutEntry  `json:"gadgets"`
	Unique    json.RawMessage `json:"unique"`
}

var emptyObject = []byte("{}")

// MarshalJSON writes every collection as an array and a missing unique
// ability as an empty object.
func (l Loadout) MarshalJSON() ([]byte, error) {
	out := loadoutJSON{
		Primary:   nonNil(l.Primary),
		Secondary: nonNil(l.Secondary),
		Gadgets:   nonNil(l.Gadgets),
		Unique:    emptyObject,
	}
	if l.Unique != nil {
		raw, err := json.Marshal(l.Unique)
		if err != nil {
			return nil, err
		}
		out.Unique = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON, reading an empty or null unique
// object back as nil.
func (l *Loadout) UnmarshalJSON(data []byte) error {
	var in loadoutJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	l.Primary = nonNil(in.Primary)
	l.Secondary = nonNil(in.Secondary)
	l.Gadgets = nonNil(in.Gadgets)
	l.Unique = nil

	trimmed := bytes.TrimSpace(in.Unique)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || isEmptyObject(trimmed) {
		return nil
	}
	var unique LoadoutEntry
	if err := json.Unmarshal(trimmed, &unique); err != nil {
		return err
	}
	l.Unique = &unique
	return nil
}

func nonNil(entries []LoadoutEntry) []LoadoutEntry {
	if entries == nil {
		return []LoadoutEntry{}
	}
	return entries
}

func isEmptyObject(raw []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	return len(fields) == 0
}

// Stats holds the operator's rating values exactly as published.
type Stats struct {
	Armor      any `json:"armor"`
	Speed      any `json:"speed"`
	Difficulty any `json:"difficulty"`
}

// Info is the descriptive part of an operator record.
type Info struct {
	Name              string `json:"name"`
	PrettyName        string `json:"pretty_name"`
	Side              string `json:"side"`
	Banner            string `json:"banner"`
	Icon              string `json:"icon"`
	URL               string `json:"url"`
	UniqueDescription any    `json:"unique_description"`
	RealName          any    `json:"real_name"`
	DateOfBirth       any    `json:"date_of_birth"`
	PlaceOfBirth      any    `json:"place_of_birth"`
	Biography         any    `json:"biography"`
	Squad             any    `json:"squad"`
	Stats             Stats  `json:"stats"`
	Roles             any    `json:"roles"`
}

// Operator is one normalized output record.
type Operator struct {
	Info    Info    `json:"info"`
	Loadout Loadout `json:"loadout"`
}

// Side values.
const (
	SideAttacker = "attacker"
	SideDefender = "defender"
)

// ScraperResult holds the overall result of a scraping operation
type ScraperResult struct {
	Operators    []*Operator
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	ErrorCount   int
	ErrorsByType map[string]int
	RequestCount int
}
