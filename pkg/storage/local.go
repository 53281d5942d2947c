package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/flowforge/taskgraph/pkg/metrics"
)

const dirPerm = 0o755
const filePerm = 0o644

// Local is a filesystem-backed Storage rooted at a base directory. Writes
// are made atomically visible by staging the artifact in a temporary
// directory, moving it onto the final volume as "<final>.<uuid>", then
// renaming it into place. The two-step move guards against a temp
// directory living on a different filesystem than the final location,
// where a single os.Rename would not be atomic (or would fail outright).
type Local struct {
	root string
}

// NewLocal creates a Local backend rooted at root, creating it if absent.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("storage: create root %q: %w", root, err)
	}
	return &Local{root: root}, nil
}

func (l *Local) abs(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

func (l *Local) List(path string) ([]File, error) {
	base := l.abs(path)
	var files []File
	err := filepath.Walk(base, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		files = append(files, File{Path: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %q: %w", path, err)
	}
	return files, nil
}

func (l *Local) Exists(path string) (bool, error) {
	_, err := os.Stat(l.abs(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("storage: stat %q: %w", path, err)
}

func (l *Local) Remove(path string) error {
	if err := os.Remove(l.abs(path)); err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{Key: path}
		}
		return fmt.Errorf("storage: remove %q: %w", path, err)
	}
	return nil
}

func (l *Local) Makedirs(path string, existOK bool) error {
	abs := l.abs(path)
	if !existOK {
		if _, err := os.Stat(abs); err == nil {
			return fmt.Errorf("storage: makedirs %q: already exists", path)
		}
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return fmt.Errorf("storage: makedirs %q: %w", path, err)
	}
	return nil
}

func (l *Local) Namespace(path string) Storage {
	return &Local{root: l.abs(path)}
}

func (l *Local) Path(path string, mode Mode) (*Acquisition, error) {
	abs := l.abs(path)
	switch mode {
	case ReadMode:
		if _, err := os.Stat(abs); err != nil {
			if os.IsNotExist(err) {
				return nil, &NotFoundError{Key: path}
			}
			return nil, fmt.Errorf("storage: stat %q: %w", path, err)
		}
		metrics.StorageReads.WithLabelValues("local").Inc()
		return &Acquisition{Path: abs}, nil
	case WriteMode:
		if err := os.MkdirAll(filepath.Dir(abs), dirPerm); err != nil {
			return nil, fmt.Errorf("storage: prepare parent of %q: %w", path, err)
		}
		stagingDir, err := os.MkdirTemp("", "taskgraph-write-*")
		if err != nil {
			return nil, fmt.Errorf("storage: create staging dir for %q: %w", path, err)
		}
		staging := filepath.Join(stagingDir, filepath.Base(abs))
		return &Acquisition{
			Path: staging,
			commit: func() error {
				defer os.RemoveAll(stagingDir)
				if err := commitAtomic(staging, abs); err != nil {
					return err
				}
				metrics.StorageWrites.WithLabelValues("local").Inc()
				return nil
			},
		}, nil
	default:
		return nil, fmt.Errorf("storage: unknown mode %q", mode)
	}
}

// commitAtomic moves staging onto the same volume as final (as
// "<final>.<uuid>"), then renames it into place. Both moves are renames on
// the final volume, so the visible artifact never appears partially
// written under final.
func commitAtomic(staging, final string) error {
	if _, err := os.Stat(staging); err != nil {
		return fmt.Errorf("storage: commit %q: staged artifact missing: %w", final, err)
	}
	intermediate := final + "." + uuid.NewString()
	if err := os.Rename(staging, intermediate); err != nil {
		if err2 := copyFile(staging, intermediate); err2 != nil {
			return fmt.Errorf("storage: stage %q onto final volume: %w", final, err)
		}
	}
	if err := os.Rename(intermediate, final); err != nil {
		_ = os.Remove(intermediate)
		return fmt.Errorf("storage: commit %q: %w", final, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyTo implements the optional copier interface consulted by Copy. Local
// prefers a symbolic link between two Local backends, falling back to a
// byte copy if linking is not permitted (e.g. cross-device).
func (l *Local) CopyTo(dst Storage, path string) error {
	if other, ok := dst.(*Local); ok {
		srcAbs := l.abs(path)
		dstAbs := other.abs(path)
		if err := os.MkdirAll(filepath.Dir(dstAbs), dirPerm); err != nil {
			return fmt.Errorf("storage: prepare copy target %q: %w", path, err)
		}
		if err := os.Symlink(srcAbs, dstAbs); err == nil {
			return nil
		}
		// Fall through to the generic byte copy below on any symlink failure
		// (unsupported filesystem, permissions, existing target, ...).
	}
	return defaultCopy(l, dst, path)
}

func defaultCopy(src, dst Storage, path string) error {
	r, err := src.Path(path, ReadMode)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := dst.Path(path, WriteMode)
	if err != nil {
		return err
	}

	in, err := os.Open(r.Path)
	if err != nil {
		return fmt.Errorf("storage: copy read %q: %w", path, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(w.Path), dirPerm); err != nil {
		return fmt.Errorf("storage: copy prepare %q: %w", path, err)
	}
	out, err := os.OpenFile(w.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("storage: copy write %q: %w", path, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("storage: copy %q: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("storage: copy close %q: %w", path, err)
	}
	return w.Close()
}
