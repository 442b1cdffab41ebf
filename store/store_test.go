package store

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "test.tripe")
}

func TestOpenCreate(t *testing.T) {
	path := tempPath(t)
	s, err := Open(path, true)
	require.NoError(t, err)
	require.True(t, s.Writable())
	require.EqualValues(t, 0, s.Root())
	require.EqualValues(t, 0, s.FirstFree())
	require.EqualValues(t, HeaderSize, s.Size())
	require.NoError(t, s.Close())

	// the created file reopens read-only
	s, err = Open(path, false)
	require.NoError(t, err)
	require.False(t, s.Writable())
	require.NoError(t, s.Close())
}

func TestOpenMissingReadOnly(t *testing.T) {
	_, err := Open(tempPath(t), false)
	require.ErrorIs(t, err, ErrIO)
}

func TestOpenBadMagic(t *testing.T) {
	path := tempPath(t)
	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint64(header, 0xdeadbeef)
	require.NoError(t, os.WriteFile(path, header, 0o644))

	_, err := Open(path, false)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestOpenTruncatedHeader(t *testing.T) {
	path := tempPath(t)
	require.NoError(t, os.WriteFile(path, []byte("Tripe001"), 0o644))

	_, err := Open(path, false)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestNumbersRoundTrip(t *testing.T) {
	s, err := Open(tempPath(t), true)
	require.NoError(t, err)
	defer s.Close()

	handle, err := s.StoreNumbers([]uint64{1, 2, 3})
	require.NoError(t, err)
	require.EqualValues(t, HeaderSize+intSize, handle)

	loaded, err := s.LoadNumbers(handle)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, loaded)

	size, err := s.PayloadSize(handle)
	require.NoError(t, err)
	require.EqualValues(t, 24, size)

	require.NoError(t, s.UpdateNumbers(handle, []uint64{4, 5, 6}))
	loaded, err = s.LoadNumbers(handle)
	require.NoError(t, err)
	require.Equal(t, []uint64{4, 5, 6}, loaded)

	err = s.UpdateNumbers(handle, []uint64{4, 5})
	require.ErrorIs(t, err, ErrSizeMismatch)
}

func TestTextRoundTrip(t *testing.T) {
	s, err := Open(tempPath(t), true)
	require.NoError(t, err)
	defer s.Close()

	handle, err := s.StoreText("wörld")
	require.NoError(t, err)
	text, err := s.LoadText(handle)
	require.NoError(t, err)
	require.Equal(t, "wörld", text)

	size, err := s.PayloadSize(handle)
	require.NoError(t, err)
	require.EqualValues(t, len("wörld"), size)
}

func TestLoadTextInvalidUTF8(t *testing.T) {
	s, err := Open(tempPath(t), true)
	require.NoError(t, err)
	defer s.Close()

	handle, err := s.StoreNumbers([]uint64{0xfffefffefffefffe})
	require.NoError(t, err)
	_, err = s.LoadText(handle)
	require.ErrorIs(t, err, ErrBadText)
}

func TestSetRootPersists(t *testing.T) {
	path := tempPath(t)
	s, err := Open(path, true)
	require.NoError(t, err)
	handle, err := s.StoreNumbers([]uint64{0, 0})
	require.NoError(t, err)
	require.NoError(t, s.SetRoot(handle))
	require.Equal(t, handle, s.Root())
	require.NoError(t, s.Close())

	s, err = Open(path, false)
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, handle, s.Root())
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	path := tempPath(t)
	s, err := Open(path, true)
	require.NoError(t, err)
	handle, err := s.StoreNumbers([]uint64{1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, false)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.StoreNumbers([]uint64{2})
	require.ErrorIs(t, err, ErrIO)
	_, err = s.StoreText("x")
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, s.UpdateNumbers(handle, []uint64{2}), ErrIO)
	require.ErrorIs(t, s.Free(handle), ErrIO)
	require.ErrorIs(t, s.SetRoot(handle), ErrIO)
}

func TestBadHandles(t *testing.T) {
	s, err := Open(tempPath(t), true)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.PayloadSize(8)
	require.ErrorIs(t, err, ErrCorrupt)
	_, err = s.LoadNumbers(1 << 30)
	require.ErrorIs(t, err, ErrCorrupt)
	_, err = s.LoadText(s.Size() + 8)
	require.ErrorIs(t, err, ErrCorrupt)
}
