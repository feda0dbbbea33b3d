// Package node implements the B-tree node codec: the in-memory Node
// representation and its serialization to/from the fixed 512-byte
// block layout described by the index file format.
package node

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"btreeidx/internal/block"
)

const (
	// MinDegree is the B-tree branching parameter t.
	MinDegree = 10
	// MaxKeys is 2t-1, the maximum number of keys a node can hold.
	MaxKeys = 2*MinDegree - 1
	// MaxChildren is 2t, the maximum number of children a node can hold.
	MaxChildren = 2 * MinDegree

	idOff       = 0
	parentOff   = 8
	countOff    = 16
	keysOff     = 24
	valuesOff   = keysOff + MaxKeys*8
	childrenOff = valuesOff + MaxKeys*8
	encodedEnd  = childrenOff + MaxChildren*8
)

// ErrBadLength is returned by Decode when the supplied buffer is not
// exactly one block wide.
var ErrBadLength = errors.New("node: buffer is not exactly one block wide")

// Node is the in-memory view of one B-tree node. Keys[0:KeyCount] and
// Values[0:KeyCount] are the meaningful slots; slots at or beyond
// KeyCount carry no contract. Children beyond KeyCount+1 are zero for
// internal nodes, and all zero for leaves.
type Node struct {
	ID       uint64
	ParentID uint64
	KeyCount uint64
	Keys     [MaxKeys]uint64
	Values   [MaxKeys]uint64
	Children [MaxChildren]uint64
}

// New returns an empty node with the given id. ParentID is left at its
// zero value; the field is reserved on disk but never consulted by the
// tree engine.
func New(id uint64) *Node {
	return &Node{ID: id}
}

// IsLeaf reports whether the node is a leaf, derived from every child
// slot being zero — there is no separate stored flag.
func (n *Node) IsLeaf() bool {
	for _, c := range n.Children {
		if c != 0 {
			return false
		}
	}
	return true
}

// Encode serializes the node into a fresh 512-byte block.
func (n *Node) Encode() []byte {
	buf := make([]byte, block.Size)
	binary.BigEndian.PutUint64(buf[idOff:], n.ID)
	binary.BigEndian.PutUint64(buf[parentOff:], n.ParentID)
	binary.BigEndian.PutUint64(buf[countOff:], n.KeyCount)
	for i := 0; i < MaxKeys; i++ {
		binary.BigEndian.PutUint64(buf[keysOff+i*8:], n.Keys[i])
		binary.BigEndian.PutUint64(buf[valuesOff+i*8:], n.Values[i])
	}
	for i := 0; i < MaxChildren; i++ {
		binary.BigEndian.PutUint64(buf[childrenOff+i*8:], n.Children[i])
	}
	// buf[encodedEnd:block.Size] stays zero padding.
	return buf
}

// Decode deserializes a node from a 512-byte block.
func Decode(buf []byte) (*Node, error) {
	if len(buf) != block.Size {
		return nil, errors.Wrapf(ErrBadLength, "got %d bytes", len(buf))
	}
	n := &Node{
		ID:       binary.BigEndian.Uint64(buf[idOff:]),
		ParentID: binary.BigEndian.Uint64(buf[parentOff:]),
		KeyCount: binary.BigEndian.Uint64(buf[countOff:]),
	}
	for i := 0; i < MaxKeys; i++ {
		n.Keys[i] = binary.BigEndian.Uint64(buf[keysOff+i*8:])
		n.Values[i] = binary.BigEndian.Uint64(buf[valuesOff+i*8:])
	}
	for i := 0; i < MaxChildren; i++ {
		n.Children[i] = binary.BigEndian.Uint64(buf[childrenOff+i*8:])
	}
	return n, nil
}
