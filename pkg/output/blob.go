package output

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/flowforge/taskgraph/pkg/storage"
	"github.com/flowforge/taskgraph/pkg/task"
)

// Blob is the binary output variant: a native serialized object blob,
// stable across Store/Load cycles within this implementation.
type Blob struct {
	*task.Output
}

// NewBlob wraps o as a Blob output.
func NewBlob(o *task.Output) *Blob {
	return &Blob{Output: o}
}

// Store gob-encodes v and writes it atomically via the bound storage.
func (b *Blob) Store(v any) error {
	s := b.Output.Storage()
	if s == nil {
		return fmt.Errorf("output: blob %s: no storage bound", b.Output.ID())
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("output: blob %s: encode: %w", b.Output.ID(), err)
	}
	acq, err := s.Path(b.Output.ID(), storage.WriteMode)
	if err != nil {
		return fmt.Errorf("output: blob %s: acquire write path: %w", b.Output.ID(), err)
	}
	if err := writeAll(acq.Path, buf.Bytes()); err != nil {
		return fmt.Errorf("output: blob %s: write: %w", b.Output.ID(), err)
	}
	return acq.Close()
}

// Load gob-decodes the stored artifact into v.
func (b *Blob) Load(v any) error {
	s := b.Output.Storage()
	if s == nil {
		return fmt.Errorf("output: blob %s: no storage bound", b.Output.ID())
	}
	acq, err := s.Path(b.Output.ID(), storage.ReadMode)
	if err != nil {
		return err
	}
	defer acq.Close()
	f, err := os.Open(acq.Path)
	if err != nil {
		return fmt.Errorf("output: blob %s: open: %w", b.Output.ID(), err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("output: blob %s: decode: %w", b.Output.ID(), err)
	}
	return nil
}

func writeAll(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		return err
	}
	return f.Close()
}
