package models

import (
	"encoding/json"
	"reflect"
	"sort"
)

// Snapshot is the state of an entity at one point in time, keyed by field name.
// It stays an open map because the tracked fields differ per entity type and
// change as the schema evolves.
type Snapshot map[string]any

// Clone returns a deep copy of the snapshot (values are round-tripped through JSON
// so nested slices and maps are not shared)
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		out := make(Snapshot, len(s))
		for k, v := range s {
			out[k] = v
		}
		return out
	}
	var out Snapshot
	_ = json.Unmarshal(raw, &out)
	return out
}

// Pick returns a snapshot holding only the given fields. Fields missing from s
// are set to nil so that applying the result clears them.
func (s Snapshot) Pick(fields []string) Snapshot {
	out := make(Snapshot, len(fields))
	for _, f := range fields {
		out[f] = s[f]
	}
	return out
}

// Without returns a copy of s with the given fields removed
func (s Snapshot) Without(fields ...string) Snapshot {
	out := s.Clone()
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// Name returns the "name" field if it is a string
func (s Snapshot) Name() (string, bool) {
	if s == nil {
		return "", false
	}
	name, ok := s["name"].(string)
	return name, ok
}

// Int64 reads a numeric field. JSON decoding yields float64, typed snapshots
// hold int64, so both are accepted.
func (s Snapshot) Int64(field string) (int64, bool) {
	switch v := s[field].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

// NonNullFields lists the fields holding a value, in the given order; fields
// not present in order are appended sorted.
func (s Snapshot) NonNullFields(order []string) []string {
	seen := make(map[string]bool, len(order))
	var fields []string
	for _, f := range order {
		seen[f] = true
		if v, ok := s[f]; ok && v != nil {
			fields = append(fields, f)
		}
	}
	var rest []string
	for f, v := range s {
		if !seen[f] && v != nil {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	return append(fields, rest...)
}

// DiffFields returns the fields whose values differ between before and after,
// following the given field order. Ignored fields are never reported.
func DiffFields(before, after Snapshot, order []string, ignore ...string) []string {
	skip := make(map[string]bool, len(ignore))
	for _, f := range ignore {
		skip[f] = true
	}
	seen := make(map[string]bool)
	var changed []string
	check := func(f string) {
		if seen[f] || skip[f] {
			return
		}
		seen[f] = true
		if !sameValue(before[f], after[f]) {
			changed = append(changed, f)
		}
	}
	for _, f := range order {
		check(f)
	}
	var rest []string
	for f := range before {
		rest = append(rest, f)
	}
	for f := range after {
		rest = append(rest, f)
	}
	sort.Strings(rest)
	for _, f := range rest {
		check(f)
	}
	return changed
}

// sameValue compares two snapshot values after normalising them through JSON,
// so []string{"a"} and []any{"a"} or int64(3) and float64(3) compare equal
func sameValue(a, b any) bool {
	na, errA := normalise(a)
	nb, errB := normalise(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(na, nb)
}

func normalise(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	// an empty list and a missing list mean the same thing for tags/links/images
	if list, ok := out.([]any); ok && len(list) == 0 {
		return nil, nil
	}
	return out, nil
}

// Intersects reports whether the two field lists share at least one name
func Intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, f := range a {
		set[f] = struct{}{}
	}
	for _, f := range b {
		if _, ok := set[f]; ok {
			return true
		}
	}
	return false
}

// toSnapshot converts a typed record into a Snapshot using its JSON field names
func toSnapshot(v any) Snapshot {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return s
}

// fromSnapshot fills a typed record from a Snapshot
func fromSnapshot(s Snapshot, v any) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
