package store

import (
	"golang.org/x/xerrors"
)

var (
	// ErrBadMagic means the file does not begin with the tripe magic number
	ErrBadMagic = xerrors.New("bad magic")
	// ErrIO means a read, write, map or extend of the underlying file failed
	ErrIO = xerrors.New("i/o error")
	// ErrSizeMismatch means UpdateNumbers was called with the wrong count for the block
	ErrSizeMismatch = xerrors.New("size mismatch")
	// ErrBadText means a text block does not decode as UTF-8
	ErrBadText = xerrors.New("bad text")
	// ErrCorrupt means a handle or size prefix is implausible. Detection is best-effort
	ErrCorrupt = xerrors.New("corrupt index")
)
