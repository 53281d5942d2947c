package task

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TypeRef canonicalizes as "<module>:<name>", the identity hash's
// representation for types and functions appearing as field values.
type TypeRef struct {
	Module string
	Name   string
}

// canonicalValue recursively canonicalizes a field value for hashing:
// nested tasks substitute their task_id, nested outputs their output_id,
// types/functions serialize as "<module>:<name>", instants as ISO-8601,
// everything else as its native JSON form.
func canonicalValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case Task:
		return Identity(x)
	case *Output:
		return x.ID()
	case TypeRef:
		return x.Module + ":" + x.Name
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = canonicalValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = canonicalValue(item)
		}
		return out
	default:
		return x
	}
}

// canonicalJSON renders v using the same formatting as Python's
// json.dumps(v, sort_keys=True): default separators (", " and ": "), no
// indentation. Exact byte-for-byte separator fidelity matters because the
// result is SHA-1 hashed for task identity.
func canonicalJSON(v any) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if x {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case string:
		writeJSONString(b, x)
	case int:
		b.WriteString(strconv.Itoa(x))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case float64:
		writeJSONFloat(b, x)
	case []any:
		b.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			writeJSONString(b, k)
			b.WriteString(": ")
			writeCanonical(b, x[k])
		}
		b.WriteByte('}')
	default:
		// canonicalValue passes values of any other type (int32, []string,
		// []Task, ...) through unchanged; such field values are not
		// supported and panic here.
		panic(fmt.Sprintf("task: canonicalJSON: unsupported value %T", v))
	}
}

// writeJSONFloat matches Python's float repr: shortest round-trip digits,
// positional for decimal exponents in [-4, 16), scientific otherwise.
func writeJSONFloat(b *strings.Builder, f float64) {
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		b.WriteString(sci)
		return
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	b.WriteString(s)
}

func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else if r > 0x7e {
				// Matches Python's default ensure_ascii=True behavior.
				if r > 0xffff {
					r1, r2 := utf16Surrogates(r)
					fmt.Fprintf(b, `\u%04x\u%04x`, r1, r2)
				} else {
					fmt.Fprintf(b, `\u%04x`, r)
				}
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

func utf16Surrogates(r rune) (rune, rune) {
	r -= 0x10000
	return 0xd800 + (r >> 10), 0xdc00 + (r & 0x3ff)
}
