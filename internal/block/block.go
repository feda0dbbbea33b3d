// Package block implements the fixed-size paged file layer the index is
// built on: a 512-byte header block followed by 512-byte node blocks,
// addressed purely by block index. There is no page cache here — every
// read and write goes straight through to the file, same as the layer
// it replaces.
package block

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
)

const (
	// Size is the fixed width of every block in the file, header and
	// node blocks alike.
	Size = 512

	// magicLen is the width of the file discriminator at offset 0 of
	// block 0.
	magicLen = 8
)

// Magic is the 8-byte tag every valid index file starts with.
var Magic = [magicLen]byte{'4', '3', '3', '7', 'P', 'R', 'J', '3'}

// Sentinel errors describing block-layer failures.
var (
	ErrNotAnIndex  = errors.New("block: file does not begin with the index magic tag")
	ErrShortRead   = errors.New("block: short read")
	ErrShortWrite  = errors.New("block: short write")
	ErrBadBlockLen = errors.New("block: buffer is not exactly one block wide")
)

// Header mirrors the contents of block 0: the root node id (0 for an
// empty tree) and the next id available for allocation.
type Header struct {
	RootID uint64
	NextID uint64
}

// Create truncates (or creates) path and writes a fresh header block
// with an empty tree (root id 0, next id 1). The caller is responsible
// for deciding whether overwriting an existing path is acceptable
// before calling Create.
func Create(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o666)
	if err != nil {
		return nil, errors.Wrap(err, "block: create index file")
	}
	h := Header{RootID: 0, NextID: 1}
	if err := WriteHeader(f, h); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// Open opens an existing index file, validates the magic tag, and
// returns the parsed header alongside the open handle.
func Open(path string) (*os.File, Header, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o666)
	if err != nil {
		return nil, Header{}, errors.Wrap(err, "block: open index file")
	}
	h, err := ReadHeader(f)
	if err != nil {
		_ = f.Close()
		return nil, Header{}, err
	}
	return f, h, nil
}

// ReadHeader reads and validates block 0, returning the root/next ids.
func ReadHeader(f *os.File) (Header, error) {
	buf, err := readAt(f, 0)
	if err != nil {
		return Header{}, err
	}
	if !bytes.Equal(buf[:magicLen], Magic[:]) {
		return Header{}, ErrNotAnIndex
	}
	h := Header{
		RootID: binary.BigEndian.Uint64(buf[8:16]),
		NextID: binary.BigEndian.Uint64(buf[16:24]),
	}
	return h, nil
}

// WriteHeader writes the magic tag plus root/next ids to block 0,
// zero-padded to a full block.
func WriteHeader(f *os.File, h Header) error {
	var buf [Size]byte
	copy(buf[:magicLen], Magic[:])
	binary.BigEndian.PutUint64(buf[8:16], h.RootID)
	binary.BigEndian.PutUint64(buf[16:24], h.NextID)
	return writeAt(f, 0, buf[:])
}

// ReadBlock reads the full 512-byte block for the given block index.
func ReadBlock(f *os.File, id uint64) ([]byte, error) {
	return readAt(f, id)
}

// WriteBlock writes data, which must be exactly Size bytes, as the
// block at the given block index.
func WriteBlock(f *os.File, id uint64, data []byte) error {
	if len(data) != Size {
		return ErrBadBlockLen
	}
	return writeAt(f, id, data)
}

func readAt(f *os.File, id uint64) ([]byte, error) {
	buf := make([]byte, Size)
	n, err := f.ReadAt(buf, int64(id)*Size)
	if err != nil {
		return nil, errors.Wrapf(err, "block: read block %d", id)
	}
	if n != Size {
		return nil, errors.Wrapf(ErrShortRead, "block %d: read %d of %d bytes", id, n, Size)
	}
	return buf, nil
}

func writeAt(f *os.File, id uint64, data []byte) error {
	n, err := f.WriteAt(data, int64(id)*Size)
	if err != nil {
		return errors.Wrapf(err, "block: write block %d", id)
	}
	if n != Size {
		return errors.Wrapf(ErrShortWrite, "block %d: wrote %d of %d bytes", id, n, Size)
	}
	return nil
}
