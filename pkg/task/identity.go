package task

import (
	"crypto/sha1"
	"encoding/hex"
)

// Identity computes t's task_id: "<fully_qualified_type_name>.<sha1-hex>",
// where the digest covers a canonical JSON mapping built from t's fields.
// Identity is invariant across runs, serializations, and wrapper layers:
// a wrapper's task_id is its inner task's task_id, prefix and all.
func Identity(t Task) string {
	if w, ok := t.(Wrapper); ok {
		return Identity(w.Inner())
	}
	m := canonicalFields(t.Fields(), t.SpecVersion())
	digest := sha1.Sum([]byte(canonicalJSON(m)))
	return t.TypeName() + "." + hex.EncodeToString(digest[:])
}

// canonicalFields builds the mapping that gets hashed, applying:
//   - skip of non-comparable fields, except ResourceSpec under V0 which is
//     always included regardless of its Comparable annotation;
//   - default elision: under V1 any field whose value is none is elided
//     unconditionally; under V0 a field is elided only when its value is
//     none AND it has a declared default that is also none (this is what
//     keeps old task_ids stable when a new optional field is added later).
func canonicalFields(fields []Field, version SpecVersion) map[string]any {
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.IsResourceSpec && version == V0 {
			m[f.Name] = canonicalValue(f.Value)
			continue
		}
		if !f.Comparable {
			continue
		}
		if f.Value == nil {
			if version == V1 {
				continue
			}
			if f.HasDefault && f.DefaultIsNone {
				continue
			}
		}
		m[f.Name] = canonicalValue(f.Value)
	}
	return m
}
