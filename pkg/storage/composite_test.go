package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompositeReadPrecedence(t *testing.T) {
	ro := newTestLocal(t)
	rw := newTestLocal(t)
	writeString(t, ro, "k.txt", "from-ro")
	writeString(t, rw, "k.txt", "from-rw")

	c := NewComposite(ro, rw)
	acq, err := c.Path("k.txt", ReadMode)
	require.NoError(t, err)
	defer acq.Close()
	require.Equal(t, "from-ro", readString(t, ro, "k.txt"))
	require.Contains(t, acq.Path, ro.root)
}

func TestCompositeWriteRejectedWhenReadOnlyHoldsKey(t *testing.T) {
	ro := newTestLocal(t)
	rw := newTestLocal(t)
	writeString(t, ro, "k.txt", "from-ro")

	c := NewComposite(ro, rw)
	_, err := c.Path("k.txt", WriteMode)
	require.ErrorIs(t, err, ErrReadOnlyAccess)
}

func TestCompositeWriteDefersToReadWrite(t *testing.T) {
	ro := newTestLocal(t)
	rw := newTestLocal(t)

	c := NewComposite(ro, rw)
	writeString(t, c, "new.txt", "value")

	ok, err := rw.Exists("new.txt")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCompositeExistsUnion(t *testing.T) {
	ro := newTestLocal(t)
	rw := newTestLocal(t)
	writeString(t, ro, "only-ro.txt", "x")
	writeString(t, rw, "only-rw.txt", "y")

	c := NewComposite(ro, rw)
	ok, err := c.Exists("only-ro.txt")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.Exists("only-rw.txt")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCompositeRemoveRejectedOnReadOnlyKey(t *testing.T) {
	ro := newTestLocal(t)
	rw := newTestLocal(t)
	writeString(t, ro, "k.txt", "x")

	c := NewComposite(ro, rw)
	err := c.Remove("k.txt")
	require.ErrorIs(t, err, ErrReadOnlyAccess)
}
