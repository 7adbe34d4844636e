package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
)

const codecVersion = 1

type document struct {
	Version   int           `json:"version"`
	Name      string        `json:"name,omitempty"`
	Decimal   string        `json:"decimal,omitempty"`
	Thousands string        `json:"thousands,omitempty"`
	Columns   []columnEntry `json:"columns"`
}

type columnEntry struct {
	Name   string   `json:"name"`
	Kind   Kind     `json:"kind"`
	Values []string `json:"values"`
}

// Serialize encodes the dataset into an opaque string suitable for session storage.
func Serialize(d *Dataset) (string, error) {
	if d == nil {
		return "", errors.New("serialize dataset: nil dataset")
	}
	doc := document{
		Version:   codecVersion,
		Name:      d.Name,
		Decimal:   runeString(d.DecimalSeparator),
		Thousands: runeString(d.ThousandsSeparator),
		Columns:   make([]columnEntry, len(d.Columns)),
	}
	for i, c := range d.Columns {
		vals := c.Values
		if vals == nil {
			vals = []string{}
		}
		doc.Columns[i] = columnEntry{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("serialize dataset: %w", err)
	}
	return string(b), nil
}

// Deserialize decodes a string produced by Serialize.
func Deserialize(s string) (*Dataset, error) {
	var doc document
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("deserialize dataset: %w", err)
	}
	if doc.Version != codecVersion {
		return nil, fmt.Errorf("deserialize dataset: unsupported version %d", doc.Version)
	}
	d := &Dataset{
		Name:               doc.Name,
		Columns:            make([]Column, len(doc.Columns)),
		DecimalSeparator:   firstRune(doc.Decimal),
		ThousandsSeparator: firstRune(doc.Thousands),
	}
	rows := -1
	for i, c := range doc.Columns {
		if !c.Kind.valid() {
			return nil, fmt.Errorf("deserialize dataset: column %q has unknown kind %q", c.Name, c.Kind)
		}
		if rows >= 0 && len(c.Values) != rows {
			return nil, fmt.Errorf("deserialize dataset: column %q has %d values, want %d", c.Name, len(c.Values), rows)
		}
		rows = len(c.Values)
		vals := c.Values
		if vals == nil {
			vals = []string{}
		}
		d.Columns[i] = Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	d.bindLocale()
	return d, nil
}

func runeString(r rune) string {
	if r == 0 {
		return ""
	}
	return string(r)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
