package docstore

import (
	"fmt"
	"sort"
	"time"
)

// Match reports whether doc satisfies every entry of filter.
//
// Equality on a missing field never matches, except Ne and Exists(false).
// Values of different kinds (string vs number vs time) never compare equal.
func Match(doc Document, filter Filter) (bool, error) {
	for field, cond := range filter {
		value, present := doc[field]

		op, isOp := asOp(cond)
		if !isOp {
			if !present || !equal(value, cond) {
				return false, nil
			}
			continue
		}

		for name, arg := range op {
			ok, err := evalOp(name, value, present, arg)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

func asOp(cond any) (Op, bool) {
	switch v := cond.(type) {
	case Op:
		return v, true
	case map[string]any:
		for k := range v {
			if len(k) == 0 || k[0] != '$' {
				return nil, false
			}
		}
		return Op(v), len(v) > 0
	default:
		return nil, false
	}
}

func evalOp(name string, value any, present bool, arg any) (bool, error) {
	switch name {
	case "$exists":
		want, ok := arg.(bool)
		if !ok {
			return false, fmt.Errorf("%w: $exists expects bool", ErrUnsupportedOperator)
		}
		return present == want, nil
	case "$ne":
		return !present || !equal(value, arg), nil
	case "$in":
		if !present {
			return false, nil
		}
		items, ok := arg.([]any)
		if !ok {
			return false, fmt.Errorf("%w: $in expects a list", ErrUnsupportedOperator)
		}
		for _, item := range items {
			if equal(value, item) {
				return true, nil
			}
		}
		return false, nil
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false, nil
		}
		c, ok := compare(value, arg)
		if !ok {
			return false, nil
		}
		switch name {
		case "$gt":
			return c > 0, nil
		case "$gte":
			return c >= 0, nil
		case "$lt":
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedOperator, name)
	}
}

func equal(a, b any) bool {
	c, ok := compare(a, b)
	if ok {
		return c == 0
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	return aok && bok && ab == bb
}

// compare orders two scalar values of the same kind. ok is false when the
// kinds differ or are not ordered.
func compare(a, b any) (int, bool) {
	if at, ok := toTime(a); ok {
		bt, ok := toTime(b)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		}
		return 0, true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	}
	return time.Time{}, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Apply returns a copy of doc with update applied. The _id field cannot be unset.
func Apply(doc Document, update Update) Document {
	out := Clone(doc)
	for k, v := range update.Set {
		out[k] = cloneValue(v)
	}
	for _, k := range update.Unset {
		if k == IDField {
			continue
		}
		delete(out, k)
	}
	return out
}

// Clone deep-copies nested maps and slices so callers can never alias stored state.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return Clone(t)
	case map[string]any:
		return map[string]any(Clone(Document(t)))
	case map[string]string:
		m := make(map[string]string, len(t))
		for k, s := range t {
			m[k] = s
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i := range t {
			s[i] = cloneValue(t[i])
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Sort orders docs in place by opts.SortBy and truncates to opts.Limit.
// Documents whose sort values are not comparable keep their relative order.
func Sort(docs []Document, opts FindOptions) []Document {
	if opts.SortBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			c, _ := compare(docs[i][opts.SortBy], docs[j][opts.SortBy])
			if opts.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}
	return docs
}

// Int returns the integer stored under key, accepting any numeric encoding.
func (d Document) Int(key string) int {
	f, ok := toFloat(d[key])
	if !ok {
		return 0
	}
	return int(f)
}

// Time returns the timestamp stored under key and whether it was present.
func (d Document) Time(key string) (time.Time, bool) {
	return toTime(d[key])
}

// Map returns a nested map stored under key.
func (d Document) Map(key string) map[string]any {
	switch m := d[key].(type) {
	case map[string]any:
		return m
	case Document:
		return m
	}
	return nil
}
