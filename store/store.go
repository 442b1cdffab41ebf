// Package store implements the block store of a tripe index file: a single
// memory-mapped file split into a fixed header and a sequence of
// size-prefixed blocks, with a first-fit free list for reuse.
//
// A block is addressed by its handle, the byte offset of the block's payload
// within the file. The payload size is the little-endian u64 stored in the 8
// bytes immediately before the handle. Handle 0 is the null handle.
//
// The store is single-threaded. Two stores concurrently open writable on the
// same file are undefined behavior; the map is MAP_SHARED.
package store

import (
	"encoding/binary"
	"os"
	"syscall"
	"unicode/utf8"

	"golang.org/x/xerrors"
)

// Magic identifies a tripe index file: the bytes "Tripe001" read as a
// little-endian u64. It always occupies header slot 0.
const Magic = uint64(0x3130306570697254)

const (
	intSize     = 8
	headerCount = 16
	// HeaderSize is the size of the fixed file header: 16 little-endian u64 slots
	HeaderSize = intSize * headerCount

	offMagic     = 0
	offRoot      = 1 * intSize
	offFirstFree = 2 * intSize
)

// Store owns the index file and its memory map exclusively for its lifetime
type Store struct {
	path     string
	file     *os.File
	data     []byte
	writable bool
}

// Open opens the index file at path and maps it into memory. If the file
// does not exist and writable is true, it is created with an initialized
// header. A file whose slot 0 is not Magic fails with ErrBadMagic.
func Open(path string, writable bool) (*Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if !writable {
			return nil, xerrors.Errorf("store: open %s: %s: %w", path, err, ErrIO)
		}
		if err := writeEmptyHeader(path); err != nil {
			return nil, err
		}
	}
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, xerrors.Errorf("store: open %s: %s: %w", path, err, ErrIO)
	}
	s := &Store{
		path:     path,
		file:     file,
		writable: writable,
	}
	if err := s.mapFile(); err != nil {
		_ = file.Close()
		return nil, err
	}
	if len(s.data) < HeaderSize {
		_ = s.Close()
		return nil, xerrors.Errorf("store: %s: truncated header: %w", path, ErrCorrupt)
	}
	if s.loadNumber(offMagic) != Magic {
		_ = s.Close()
		return nil, xerrors.Errorf("store: %s: %w", path, ErrBadMagic)
	}
	return s, nil
}

// writeEmptyHeader creates the file with Magic in slot 0 and zeros elsewhere
func writeEmptyHeader(path string) error {
	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint64(header[offMagic:], Magic)
	if err := os.WriteFile(path, header, 0o644); err != nil {
		return xerrors.Errorf("store: create %s: %s: %w", path, err, ErrIO)
	}
	return nil
}

func (s *Store) mapFile() error {
	fi, err := s.file.Stat()
	if err != nil {
		return xerrors.Errorf("store: stat %s: %s: %w", s.path, err, ErrIO)
	}
	prot := syscall.PROT_READ
	if s.writable {
		prot |= syscall.PROT_WRITE
	}
	data, err := syscall.Mmap(int(s.file.Fd()), 0, int(fi.Size()), prot, syscall.MAP_SHARED)
	if err != nil {
		return xerrors.Errorf("store: mmap %s: %s: %w", s.path, err, ErrIO)
	}
	s.data = data
	return nil
}

// grow extends the file by n bytes and remaps it. Any slices derived from
// the previous mapping are invalid afterwards.
func (s *Store) grow(n uint64) error {
	size := uint64(len(s.data)) + n
	if err := syscall.Munmap(s.data); err != nil {
		return xerrors.Errorf("store: munmap %s: %s: %w", s.path, err, ErrIO)
	}
	s.data = nil
	if err := s.file.Truncate(int64(size)); err != nil {
		return xerrors.Errorf("store: extend %s: %s: %w", s.path, err, ErrIO)
	}
	return s.mapFile()
}

// Close releases the memory map and the file handle
func (s *Store) Close() error {
	var err error
	if s.data != nil {
		err = syscall.Munmap(s.data)
		s.data = nil
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return xerrors.Errorf("store: close %s: %s: %w", s.path, err, ErrIO)
	}
	return nil
}

// Writable reports whether the store was opened for writing
func (s *Store) Writable() bool {
	return s.writable
}

// Size is the current size of the mapped file in bytes
func (s *Store) Size() uint64 {
	return uint64(len(s.data))
}

// loadNumber reads the u64 at a byte offset the caller has bounds-checked
func (s *Store) loadNumber(off uint64) uint64 {
	return binary.LittleEndian.Uint64(s.data[off : off+intSize])
}

func (s *Store) storeNumber(off, number uint64) {
	binary.LittleEndian.PutUint64(s.data[off:off+intSize], number)
}

// checkHandle validates that h addresses a plausible block payload
func (s *Store) checkHandle(h uint64) error {
	if h < HeaderSize+intSize || h > uint64(len(s.data)) {
		return xerrors.Errorf("store: handle %d out of range: %w", h, ErrCorrupt)
	}
	size := s.loadNumber(h - intSize)
	if size == 0 || h+size > uint64(len(s.data)) {
		return xerrors.Errorf("store: handle %d has implausible size %d: %w", h, size, ErrCorrupt)
	}
	return nil
}

// PayloadSize is the size in bytes of the payload addressed by h
func (s *Store) PayloadSize(h uint64) (uint64, error) {
	if err := s.checkHandle(h); err != nil {
		return 0, err
	}
	return s.loadNumber(h - intSize), nil
}

// Root is the handle of the root trie node, or 0 if none has been stored
func (s *Store) Root() uint64 {
	return s.loadNumber(offRoot)
}

// SetRoot stores the handle of the root trie node in the header
func (s *Store) SetRoot(h uint64) error {
	if !s.writable {
		return xerrors.Errorf("store: %s is read-only: %w", s.path, ErrIO)
	}
	s.storeNumber(offRoot, h)
	return nil
}

// FirstFree is the handle of the first block on the free list, or 0
func (s *Store) FirstFree() uint64 {
	return s.loadNumber(offFirstFree)
}

// StoreNumbers allocates a block and stores the packed little-endian u64s.
// Returns the handle of the new block.
func (s *Store) StoreNumbers(numbers []uint64) (uint64, error) {
	handle, err := s.allocate(uint64(len(numbers)) * intSize)
	if err != nil {
		return 0, err
	}
	for i, n := range numbers {
		s.storeNumber(handle+uint64(i)*intSize, n)
	}
	return handle, nil
}

// LoadNumbers fetches the u64s stored at a handle. The count is derived from
// the block's size prefix.
func (s *Store) LoadNumbers(h uint64) ([]uint64, error) {
	size, err := s.PayloadSize(h)
	if err != nil {
		return nil, err
	}
	numbers := make([]uint64, size/intSize)
	for i := range numbers {
		numbers[i] = s.loadNumber(h + uint64(i)*intSize)
	}
	return numbers, nil
}

// UpdateNumbers overwrites an existing block in place. The count must match
// the block's payload size exactly, otherwise ErrSizeMismatch.
func (s *Store) UpdateNumbers(h uint64, numbers []uint64) error {
	if !s.writable {
		return xerrors.Errorf("store: %s is read-only: %w", s.path, ErrIO)
	}
	size, err := s.PayloadSize(h)
	if err != nil {
		return err
	}
	if uint64(len(numbers))*intSize != size {
		return xerrors.Errorf("store: update of %d numbers into %d byte block: %w",
			len(numbers), size, ErrSizeMismatch)
	}
	for i, n := range numbers {
		s.storeNumber(h+uint64(i)*intSize, n)
	}
	return nil
}

// StoreText allocates a block and stores the UTF-8 encoding of text.
// Returns the handle of the new block.
func (s *Store) StoreText(text string) (uint64, error) {
	encoded := []byte(text)
	handle, err := s.allocate(uint64(len(encoded)))
	if err != nil {
		return 0, err
	}
	copy(s.data[handle:], encoded)
	return handle, nil
}

// LoadText fetches the text stored at a handle. A payload that is not valid
// UTF-8 fails with ErrBadText.
func (s *Store) LoadText(h uint64) (string, error) {
	size, err := s.PayloadSize(h)
	if err != nil {
		return "", err
	}
	payload := s.data[h : h+size]
	if !utf8.Valid(payload) {
		return "", xerrors.Errorf("store: text block at %d: %w", h, ErrBadText)
	}
	return string(payload), nil
}
