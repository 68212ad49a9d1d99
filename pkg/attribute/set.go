// Package attribute implements canonicalized, hashable attribute sets.
//
// A Set is an ordered mapping from non-empty string keys to scalar or list
// values. Construction canonicalizes the input: keys are sorted, duplicate
// keys collapse to the last occurrence, and list nesting is bounded. Two sets
// built from the same attributes in any insertion order share one Distinct
// key and one Fingerprint.
package attribute

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/brokle-ai/otelmetric/pkg/logging"
)

// nestingLimit bounds attribute list nesting depth. Deeper levels are
// truncated with a one-time warning per key.
var nestingLimit atomic.Int64

func init() {
	nestingLimit.Store(4)
}

// SetNestingLimit overrides the list nesting depth limit. Values below 1 are
// ignored.
func SetNestingLimit(limit int) {
	if limit >= 1 {
		nestingLimit.Store(int64(limit))
	}
}

// Distinct is a canonical, comparable identity of a Set, usable as a map key.
type Distinct struct {
	enc string
}

// String returns the canonical encoding.
func (d Distinct) String() string { return d.enc }

// Set is an immutable canonical attribute set.
type Set struct {
	kvs         []KeyValue
	distinct    Distinct
	fingerprint uint64
}

var emptySet = newSetFromSorted(nil)

// EmptySet returns the canonical empty set.
func EmptySet() Set { return emptySet }

// NewSet canonicalizes kvs into a Set. Attributes with empty keys or invalid
// values are dropped with a one-time warning per key; on duplicate keys the
// last value wins.
func NewSet(kvs ...KeyValue) Set {
	if len(kvs) == 0 {
		return emptySet
	}
	limit := int(nestingLimit.Load())

	valid := make([]KeyValue, 0, len(kvs))
	for _, kv := range kvs {
		if !kv.Valid() {
			logging.WarnOnce("attribute.invalid:"+kv.Key,
				"dropping invalid attribute", "key", kv.Key)
			continue
		}
		v, cut := kv.Value.truncate(0, limit)
		if cut {
			logging.WarnOnce("attribute.depth:"+kv.Key,
				"attribute list nesting exceeds limit, truncated",
				"key", kv.Key, "limit", limit)
		}
		valid = append(valid, KeyValue{Key: kv.Key, Value: v})
	}

	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Key < valid[j].Key })

	// Last occurrence wins for duplicate keys. After the stable sort the
	// last occurrence of a key is the last element of its run.
	out := valid[:0]
	for i, kv := range valid {
		if i+1 < len(valid) && valid[i+1].Key == kv.Key {
			continue
		}
		out = append(out, kv)
	}
	return newSetFromSorted(out)
}

func newSetFromSorted(kvs []KeyValue) Set {
	var b strings.Builder
	for _, kv := range kvs {
		b.WriteString(strconv.Itoa(len(kv.Key)))
		b.WriteByte(':')
		b.WriteString(kv.Key)
		b.WriteByte('=')
		kv.Value.appendCanonical(&b)
		b.WriteByte(',')
	}
	enc := b.String()
	return Set{
		kvs:         kvs,
		distinct:    Distinct{enc: enc},
		fingerprint: xxhash.Sum64String(enc),
	}
}

// Len returns the number of attributes.
func (s Set) Len() int { return len(s.kvs) }

// Get returns the i-th attribute in canonical (key-sorted) order.
func (s Set) Get(i int) (KeyValue, bool) {
	if i < 0 || i >= len(s.kvs) {
		return KeyValue{}, false
	}
	return s.kvs[i], true
}

// Value looks up an attribute value by key.
func (s Set) Value(key string) (Value, bool) {
	i := sort.Search(len(s.kvs), func(i int) bool { return s.kvs[i].Key >= key })
	if i < len(s.kvs) && s.kvs[i].Key == key {
		return s.kvs[i].Value, true
	}
	return Value{}, false
}

// ToSlice returns a copy of the attributes in canonical order.
func (s Set) ToSlice() []KeyValue {
	cp := make([]KeyValue, len(s.kvs))
	copy(cp, s.kvs)
	return cp
}

// Distinct returns the canonical identity of the set.
func (s Set) Distinct() Distinct { return s.distinct }

// Fingerprint returns a 64-bit hash of the canonical encoding. Permuting the
// insertion order of equal attributes never changes the fingerprint.
func (s Set) Fingerprint() uint64 { return s.fingerprint }

// Equals reports canonical equality.
func (s Set) Equals(o Set) bool { return s.distinct == o.distinct }

// Filter splits the set into attributes whose keys are in allowed and the
// dropped remainder, preserving canonical order in both.
func (s Set) Filter(allowed map[string]struct{}) (Set, []KeyValue) {
	if len(allowed) == 0 {
		return emptySet, s.ToSlice()
	}
	kept := make([]KeyValue, 0, len(s.kvs))
	var dropped []KeyValue
	for _, kv := range s.kvs {
		if _, ok := allowed[kv.Key]; ok {
			kept = append(kept, kv)
		} else {
			dropped = append(dropped, kv)
		}
	}
	if len(dropped) == 0 {
		return s, nil
	}
	return newSetFromSorted(kept), dropped
}
