package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Hierarchy is the period -> year -> issue index of file records.
// It is built once by a HierarchyBuilder and never modified afterwards.
// Every level keeps the order in which its keys were first seen.
type Hierarchy struct {
	periods []string
	years   map[string][]string
	issues  map[[2]string][]string
	files   map[SectionKey][]FileRecord
	count   int
}

// HierarchyBuilder accumulates records for a Hierarchy.
type HierarchyBuilder struct {
	h *Hierarchy
}

// NewHierarchyBuilder creates an empty builder
func NewHierarchyBuilder() *HierarchyBuilder {
	return &HierarchyBuilder{h: newHierarchy()}
}

func newHierarchy() *Hierarchy {
	return &Hierarchy{
		years:  make(map[string][]string),
		issues: make(map[[2]string][]string),
		files:  make(map[SectionKey][]FileRecord),
	}
}

// Add appends a record to the section identified by key.
func (b *HierarchyBuilder) Add(key SectionKey, rec FileRecord) {
	b.section(key)
	b.h.files[key] = append(b.h.files[key], rec)
	b.h.count++
}

// section registers key in insertion order without adding a record.
func (b *HierarchyBuilder) section(key SectionKey) {
	h := b.h
	if _, ok := h.years[key.Period]; !ok {
		h.periods = append(h.periods, key.Period)
		h.years[key.Period] = nil
	}
	py := [2]string{key.Period, key.Year}
	if _, ok := h.issues[py]; !ok {
		h.years[key.Period] = append(h.years[key.Period], key.Year)
		h.issues[py] = nil
	}
	if _, ok := h.files[key]; !ok {
		h.issues[py] = append(h.issues[py], key.Issue)
		h.files[key] = nil
	}
}

// Build hands over the accumulated Hierarchy. The builder must not be used afterwards.
func (b *HierarchyBuilder) Build() *Hierarchy {
	h := b.h
	b.h = nil
	return h
}

// Empty reports whether no file was recorded. Like every accessor it
// accepts a nil Hierarchy.
func (h *Hierarchy) Empty() bool {
	return h == nil || h.count == 0
}

// Len returns the total number of records.
func (h *Hierarchy) Len() int {
	if h == nil {
		return 0
	}
	return h.count
}

// Sections returns the number of issue sections, including any without files.
func (h *Hierarchy) Sections() int {
	if h == nil {
		return 0
	}
	return len(h.files)
}

// Periods returns level-1 keys in insertion order.
func (h *Hierarchy) Periods() []string {
	if h == nil {
		return nil
	}
	return slices.Clone(h.periods)
}

// Years returns the level-2 keys of period in insertion order.
func (h *Hierarchy) Years(period string) []string {
	if h == nil {
		return nil
	}
	return slices.Clone(h.years[period])
}

// Issues returns the level-3 keys of period/year in insertion order.
func (h *Hierarchy) Issues(period, year string) []string {
	if h == nil {
		return nil
	}
	return slices.Clone(h.issues[[2]string{period, year}])
}

// Files returns the records of one section in insertion order.
func (h *Hierarchy) Files(key SectionKey) []FileRecord {
	if h == nil {
		return nil
	}
	return slices.Clone(h.files[key])
}

func (h *Hierarchy) SortedPeriods() []string {
	return sorted(h.Periods())
}

func (h *Hierarchy) SortedYears(period string) []string {
	return sorted(h.Years(period))
}

func (h *Hierarchy) SortedIssues(period, year string) []string {
	return sorted(h.Issues(period, year))
}

// Walk calls fn for every section in insertion order.
func (h *Hierarchy) Walk(fn func(key SectionKey, files []FileRecord) error) error {
	if h == nil {
		return nil
	}
	for _, p := range h.periods {
		for _, y := range h.years[p] {
			for _, i := range h.issues[[2]string{p, y}] {
				key := SectionKey{Period: p, Year: y, Issue: i}
				if err := fn(key, h.files[key]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func sorted(keys []string) []string {
	slices.Sort(keys)
	return keys
}

// MarshalJSON encodes the hierarchy as nested objects keyed by period, year
// and issue, preserving insertion order. Non-ASCII and HTML characters are
// written as-is.
func (h *Hierarchy) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	writeKey := func(k string) error {
		if err := enc.Encode(k); err != nil {
			return err
		}
		// Encode appends a newline
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		return nil
	}

	buf.WriteByte('{')
	for pi, p := range h.periods {
		if pi > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(p); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for yi, y := range h.years[p] {
			if yi > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(y); err != nil {
				return nil, err
			}
			buf.WriteByte('{')
			for ii, i := range h.issues[[2]string{p, y}] {
				if ii > 0 {
					buf.WriteByte(',')
				}
				if err := writeKey(i); err != nil {
					return nil, err
				}
				files := h.files[SectionKey{Period: p, Year: y, Issue: i}]
				if files == nil {
					files = []FileRecord{}
				}
				if err := enc.Encode(files); err != nil {
					return nil, err
				}
				buf.Truncate(buf.Len() - 1)
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the nested object written by MarshalJSON, keeping key
// order. An issue holding an empty array is kept as a section without files.
func (h *Hierarchy) UnmarshalJSON(data []byte) error {
	b := NewHierarchyBuilder()
	dec := json.NewDecoder(bytes.NewReader(data))
	err := decodeObject(dec, func(period string) error {
		return decodeObject(dec, func(year string) error {
			return decodeObject(dec, func(issue string) error {
				var files []FileRecord
				if err := dec.Decode(&files); err != nil {
					return err
				}
				key := SectionKey{Period: period, Year: year, Issue: issue}
				b.section(key)
				for _, f := range files {
					b.Add(key, f)
				}
				return nil
			})
		})
	})
	if err != nil {
		return err
	}
	*h = *b.Build()
	return nil
}

func decodeObject(dec *json.Decoder, member func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object at offset %d", dec.InputOffset())
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key at offset %d", dec.InputOffset())
		}
		if err := member(key); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
