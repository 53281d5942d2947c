package output

import (
	"encoding"
	"fmt"
	"os"

	"github.com/flowforge/taskgraph/pkg/storage"
	"github.com/flowforge/taskgraph/pkg/task"
)

// Serializable is what the object output variant delegates serialization
// to. It is exactly the standard library's BinaryMarshaler/Unmarshaler
// pair, so existing types need no new interface to participate.
type Serializable interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// Object is the typed-object output variant: it stores and loads through
// a value's own Serializable implementation rather than a fixed codec.
type Object struct {
	*task.Output
}

// NewObject wraps o as an Object output.
func NewObject(o *task.Output) *Object {
	return &Object{Output: o}
}

// Store marshals v via its Serializable implementation and writes it
// atomically via the bound storage.
func (obj *Object) Store(v Serializable) error {
	s := obj.Output.Storage()
	if s == nil {
		return fmt.Errorf("output: object %s: no storage bound", obj.Output.ID())
	}
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("output: object %s: marshal: %w", obj.Output.ID(), err)
	}
	acq, err := s.Path(obj.Output.ID(), storage.WriteMode)
	if err != nil {
		return fmt.Errorf("output: object %s: acquire write path: %w", obj.Output.ID(), err)
	}
	if err := writeAll(acq.Path, data); err != nil {
		return fmt.Errorf("output: object %s: write: %w", obj.Output.ID(), err)
	}
	return acq.Close()
}

// Load reads the stored artifact and unmarshals it into v via its
// Serializable implementation.
func (obj *Object) Load(v Serializable) error {
	s := obj.Output.Storage()
	if s == nil {
		return fmt.Errorf("output: object %s: no storage bound", obj.Output.ID())
	}
	acq, err := s.Path(obj.Output.ID(), storage.ReadMode)
	if err != nil {
		return err
	}
	defer acq.Close()
	data, err := os.ReadFile(acq.Path)
	if err != nil {
		return fmt.Errorf("output: object %s: read: %w", obj.Output.ID(), err)
	}
	if err := v.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("output: object %s: unmarshal: %w", obj.Output.ID(), err)
	}
	return nil
}
