package storage

import "fmt"

// Composite overlays a read-only primary tier over a read-write secondary
// tier. Reads prefer the read-only tier; writes and removals are rejected
// with ErrReadOnlyAccess if the key is held by the read-only tier, and
// otherwise deferred to the read-write tier.
type Composite struct {
	ReadOnly  Storage
	ReadWrite Storage
}

// NewComposite builds a Composite overlay.
func NewComposite(readOnly, readWrite Storage) *Composite {
	return &Composite{ReadOnly: readOnly, ReadWrite: readWrite}
}

func (c *Composite) List(path string) ([]File, error) {
	roFiles, err := c.ReadOnly.List(path)
	if err != nil {
		return nil, fmt.Errorf("storage: composite list read-only tier %q: %w", path, err)
	}
	rwFiles, err := c.ReadWrite.List(path)
	if err != nil {
		return nil, fmt.Errorf("storage: composite list read-write tier %q: %w", path, err)
	}
	seen := make(map[string]bool, len(roFiles)+len(rwFiles))
	var union []File
	for _, f := range roFiles {
		if !seen[f.Path] {
			seen[f.Path] = true
			union = append(union, f)
		}
	}
	for _, f := range rwFiles {
		if !seen[f.Path] {
			seen[f.Path] = true
			union = append(union, f)
		}
	}
	return union, nil
}

func (c *Composite) Exists(path string) (bool, error) {
	ok, err := c.ReadOnly.Exists(path)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return c.ReadWrite.Exists(path)
}

func (c *Composite) Remove(path string) error {
	if ok, err := c.ReadOnly.Exists(path); err != nil {
		return err
	} else if ok {
		return &ReadOnlyAccessError{Key: path}
	}
	return c.ReadWrite.Remove(path)
}

func (c *Composite) Makedirs(path string, existOK bool) error {
	return c.ReadWrite.Makedirs(path, existOK)
}

func (c *Composite) Namespace(path string) Storage {
	return &Composite{
		ReadOnly:  c.ReadOnly.Namespace(path),
		ReadWrite: c.ReadWrite.Namespace(path),
	}
}

func (c *Composite) Path(path string, mode Mode) (*Acquisition, error) {
	switch mode {
	case ReadMode:
		if ok, err := c.ReadOnly.Exists(path); err != nil {
			return nil, err
		} else if ok {
			return c.ReadOnly.Path(path, ReadMode)
		}
		return c.ReadWrite.Path(path, ReadMode)
	case WriteMode:
		if ok, err := c.ReadOnly.Exists(path); err != nil {
			return nil, err
		} else if ok {
			return nil, &ReadOnlyAccessError{Key: path}
		}
		return c.ReadWrite.Path(path, WriteMode)
	default:
		return nil, fmt.Errorf("storage: unknown mode %q", mode)
	}
}
