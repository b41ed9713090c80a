// Package naming models the identifiers used by the form-array convention:
// every field of entry i is named "<prefix>-<i>-<field>" and carries the id
// "id_<prefix>-<i>-<field>", while the management fields live under
// "<prefix>-TOTAL_FORMS" and friends.
//
// Values are kept as structured keys and formatted on demand, so re-indexing
// an entry never has to pattern-patch an opaque string it does not understand.
package naming

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// DefaultPrefix is the prefix used by server-side formsets when none is set.
const DefaultPrefix = "form"

// IDPrefix is prepended to field names to build element ids.
const IDPrefix = "id_"

// Management field names.
const (
	TotalForms   = "TOTAL_FORMS"
	InitialForms = "INITIAL_FORMS"
	MinNumForms  = "MIN_NUM_FORMS"
	MaxNumForms  = "MAX_NUM_FORMS"
)

// Key identifies one field of one entry.
type Key struct {
	Prefix string
	Index  int
	Field  string
}

// Name formats the key as a submitted field name, e.g. "form-0-name".
// Keys without a field format as the bare entry reference ("form-0").
func (k Key) Name() string {
	base := prefixOrDefault(k.Prefix) + "-" + strconv.Itoa(k.Index)
	if k.Field == "" {
		return base
	}
	return base + "-" + k.Field
}

// ID formats the key as an element id, e.g. "id_form-0-name".
func (k Key) ID() string {
	return IDPrefix + k.Name()
}

// WithIndex returns a copy of the key pointing at another entry.
func (k Key) WithIndex(index int) Key {
	k.Index = index
	return k
}

// Management returns the submitted name of a management field.
func Management(prefix, field string) string {
	return prefixOrDefault(prefix) + "-" + field
}

// ManagementID returns the element id of a management field.
func ManagementID(prefix, field string) string {
	return IDPrefix + Management(prefix, field)
}

// Ref is an attribute value split around its first "<prefix>-<digits>"
// occurrence. Before and After hold the untouched surrounding text.
//
// Digits keeps the matched digit run as written. Key.Index is -1 when the
// run does not fit an int, so such a reference never matches a position.
type Ref struct {
	Before string
	Key    Key
	Digits string
	After  string
}

// String reassembles the attribute value from its structured parts.
func (r Ref) String() string {
	var b strings.Builder
	b.WriteString(r.Before)
	b.WriteString(prefixOrDefault(r.Key.Prefix))
	b.WriteByte('-')
	if r.Digits != "" {
		b.WriteString(r.Digits)
	} else {
		b.WriteString(strconv.Itoa(r.Key.Index))
	}
	b.WriteString(r.After)
	return b.String()
}

// WithIndex returns a copy of the reference pointing at another entry.
func (r Ref) WithIndex(index int) Ref {
	r.Key = r.Key.WithIndex(index)
	r.Digits = ""
	return r
}

// Parse locates the first "<prefix>-<digits>" occurrence in raw. The field
// part of the key is filled when the occurrence is followed by "-<field>".
// ok is false when raw does not reference an entry.
func Parse(prefix, raw string) (Ref, bool) {
	prefix = prefixOrDefault(prefix)
	loc := pattern(prefix).FindStringSubmatchIndex(raw)
	if loc == nil {
		return Ref{}, false
	}
	digits := raw[loc[2]:loc[3]]
	index, err := strconv.Atoi(digits)
	if err != nil {
		index = -1
	}
	ref := Ref{
		Before: raw[:loc[0]],
		Key:    Key{Prefix: prefix, Index: index},
		Digits: digits,
		After:  raw[loc[1]:],
	}
	if field, ok := strings.CutPrefix(ref.After, "-"); ok && field != "" {
		ref.Key.Field = field
	}
	return ref, true
}

// Reindex rewrites the first entry reference in raw to point at index.
// Values that do not reference an entry are returned unchanged.
func Reindex(prefix, raw string, index int) string {
	ref, ok := Parse(prefix, raw)
	if !ok {
		return raw
	}
	return ref.WithIndex(index).String()
}

// ParseKey parses a strict "<prefix>-<index>-<field>" or "<prefix>-<index>"
// name, as submitted by a browser.
func ParseKey(prefix, name string) (Key, bool) {
	prefix = prefixOrDefault(prefix)
	rest, ok := strings.CutPrefix(name, prefix+"-")
	if !ok {
		return Key{}, false
	}
	digits, field, _ := strings.Cut(rest, "-")
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return Key{}, false
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return Key{}, false
	}
	return Key{Prefix: prefix, Index: index, Field: field}, true
}

var patterns sync.Map

func pattern(prefix string) *regexp.Regexp {
	if cached, ok := patterns.Load(prefix); ok {
		return cached.(*regexp.Regexp)
	}
	re := regexp.MustCompile(regexp.QuoteMeta(prefix) + `-(\d+)`)
	actual, _ := patterns.LoadOrStore(prefix, re)
	return actual.(*regexp.Regexp)
}

func prefixOrDefault(prefix string) string {
	if trimmed := strings.TrimSpace(prefix); trimmed != "" {
		return trimmed
	}
	return DefaultPrefix
}
