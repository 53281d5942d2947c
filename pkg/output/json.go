package output

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/flowforge/taskgraph/pkg/storage"
	"github.com/flowforge/taskgraph/pkg/task"
)

// Date renders as "YYYY-MM-DD" rather than a full RFC3339 instant.
type Date struct{ time.Time }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

// Duration stringifies a time.Duration rather than emitting raw
// nanoseconds, per the JSON codec's duration handling.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// JSON is the gzip-compressed JSON output variant. Instants marshal as
// ISO-8601 (time.Time already satisfies this via encoding/json's default
// RFC3339 behavior); dates and durations use the Date and Duration
// wrappers above. Numeric values round-trip as native JSON numbers
// regardless of their Go width (encoding/json writes every int/float kind
// as a plain JSON number, and decodes numbers into an interface value as
// float64).
type JSON struct {
	*task.Output
}

// NewJSON wraps o as a JSON output.
func NewJSON(o *task.Output) *JSON {
	return &JSON{Output: o}
}

// Store gzip-compresses the JSON encoding of v and writes it atomically.
func (j *JSON) Store(v any) error {
	s := j.Output.Storage()
	if s == nil {
		return fmt.Errorf("output: json %s: no storage bound", j.Output.ID())
	}
	acq, err := s.Path(j.Output.ID(), storage.WriteMode)
	if err != nil {
		return fmt.Errorf("output: json %s: acquire write path: %w", j.Output.ID(), err)
	}
	f, err := os.OpenFile(acq.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("output: json %s: create staging file: %w", j.Output.ID(), err)
	}
	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	if err := enc.Encode(v); err != nil {
		gz.Close()
		f.Close()
		return fmt.Errorf("output: json %s: encode: %w", j.Output.ID(), err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return fmt.Errorf("output: json %s: flush gzip: %w", j.Output.ID(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("output: json %s: close staging file: %w", j.Output.ID(), err)
	}
	return acq.Close()
}

// Load decodes the gzipped JSON artifact into v.
func (j *JSON) Load(v any) error {
	s := j.Output.Storage()
	if s == nil {
		return fmt.Errorf("output: json %s: no storage bound", j.Output.ID())
	}
	acq, err := s.Path(j.Output.ID(), storage.ReadMode)
	if err != nil {
		return err
	}
	defer acq.Close()
	f, err := os.Open(acq.Path)
	if err != nil {
		return fmt.Errorf("output: json %s: open: %w", j.Output.ID(), err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("output: json %s: open gzip stream: %w", j.Output.ID(), err)
	}
	defer gz.Close()
	if err := json.NewDecoder(gz).Decode(v); err != nil {
		return fmt.Errorf("output: json %s: decode: %w", j.Output.ID(), err)
	}
	return nil
}
