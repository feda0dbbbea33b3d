// Package tree implements the B-tree engine: proactive-split insertion,
// search, and the print/extract traversals. It reads and writes nodes
// through internal/block and internal/node and otherwise holds nothing
// but the current header state — there is no node cache.
package tree

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"btreeidx/internal/block"
	"btreeidx/internal/node"
)

// Engine drives one open index file: it knows the current root/next
// ids and performs every read/write against the file directly.
type Engine struct {
	f      *os.File
	Header block.Header
	log    *logrus.Logger
}

// New wraps an already-open file and its loaded header in an Engine.
func New(f *os.File, h block.Header, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{f: f, Header: h, log: log}
}

func (e *Engine) readNode(id uint64) (*node.Node, error) {
	buf, err := block.ReadBlock(e.f, id)
	if err != nil {
		return nil, err
	}
	return node.Decode(buf)
}

func (e *Engine) writeNode(n *node.Node) error {
	return block.WriteBlock(e.f, n.ID, n.Encode())
}

func (e *Engine) writeHeader() error {
	return block.WriteHeader(e.f, e.Header)
}

// createNode allocates the next node id, writes an empty block for it,
// and returns the in-memory node. The header's next-id advances but is
// not flushed here — Insert writes the header once, after the root or
// next-id has changed.
func (e *Engine) createNode(isLeaf bool) (*node.Node, error) {
	id := e.Header.NextID
	e.Header.NextID++
	n := node.New(id)
	_ = isLeaf // leaf-ness is derived from children, nothing to set
	if err := e.writeNode(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Insert adds key/value to the tree, splitting proactively on the way
// down so recursion never needs to propagate a split back up.
func (e *Engine) Insert(key, value uint64) error {
	if e.Header.RootID == 0 {
		leaf, err := e.createNode(true)
		if err != nil {
			return err
		}
		leaf.Keys[0] = key
		leaf.Values[0] = value
		leaf.KeyCount = 1
		if err := e.writeNode(leaf); err != nil {
			return err
		}
		e.Header.RootID = leaf.ID
		return e.writeHeader()
	}

	root, err := e.readNode(e.Header.RootID)
	if err != nil {
		return err
	}

	if root.KeyCount == node.MaxKeys {
		newRoot, err := e.createNode(false)
		if err != nil {
			return err
		}
		newRoot.Children[0] = root.ID
		if err := e.splitChild(newRoot, 0, root); err != nil {
			return err
		}
		e.Header.RootID = newRoot.ID
		if err := e.writeHeader(); err != nil {
			return err
		}
		return e.insertNonFull(newRoot, key, value)
	}

	nextID := e.Header.NextID
	if err := e.insertNonFull(root, key, value); err != nil {
		return err
	}
	if e.Header.NextID != nextID {
		return e.writeHeader()
	}
	return nil
}

// insertNonFull places key/value under node, which is guaranteed to
// have fewer than MaxKeys entries on entry.
func (e *Engine) insertNonFull(n *node.Node, key, value uint64) error {
	if n.IsLeaf() {
		i := int(n.KeyCount) - 1
		for i >= 0 && key < n.Keys[i] {
			n.Keys[i+1] = n.Keys[i]
			n.Values[i+1] = n.Values[i]
			i--
		}
		n.Keys[i+1] = key
		n.Values[i+1] = value
		n.KeyCount++
		return e.writeNode(n)
	}

	i := int(n.KeyCount) - 1
	for i >= 0 && key <= n.Keys[i] {
		i--
	}
	i++

	child, err := e.readNode(n.Children[i])
	if err != nil {
		return err
	}
	if child.KeyCount == node.MaxKeys {
		if err := e.splitChild(n, i, child); err != nil {
			return err
		}
		if key > n.Keys[i] {
			i++
		}
		child, err = e.readNode(n.Children[i])
		if err != nil {
			return err
		}
	}
	return e.insertNonFull(child, key, value)
}

// splitChild splits the full node at parent.Children[index], promoting
// its median key/value into parent at position index and writing the
// new right sibling.
func (e *Engine) splitChild(parent *node.Node, index int, child *node.Node) error {
	const t = node.MinDegree

	sibling, err := e.createNode(child.IsLeaf())
	if err != nil {
		return err
	}
	sibling.KeyCount = uint64(t - 1)
	for j := 0; j < t-1; j++ {
		sibling.Keys[j] = child.Keys[j+t]
		sibling.Values[j] = child.Values[j+t]
	}
	if !child.IsLeaf() {
		for j := 0; j < t; j++ {
			sibling.Children[j] = child.Children[j+t]
			child.Children[j+t] = 0
		}
	}
	child.KeyCount = uint64(t - 1)

	for j := int(parent.KeyCount); j > index; j-- {
		parent.Children[j+1] = parent.Children[j]
	}
	parent.Children[index+1] = sibling.ID

	for j := int(parent.KeyCount) - 1; j >= index; j-- {
		parent.Keys[j+1] = parent.Keys[j]
		parent.Values[j+1] = parent.Values[j]
	}
	parent.Keys[index] = child.Keys[t-1]
	parent.Values[index] = child.Values[t-1]
	parent.KeyCount++

	if err := e.writeNode(child); err != nil {
		return err
	}
	if err := e.writeNode(sibling); err != nil {
		return err
	}
	return e.writeNode(parent)
}

// Search returns the value stored for key, if any.
func (e *Engine) Search(key uint64) (uint64, bool, error) {
	if e.Header.RootID == 0 {
		return 0, false, nil
	}
	return e.searchFrom(e.Header.RootID, key)
}

func (e *Engine) searchFrom(id uint64, key uint64) (uint64, bool, error) {
	n, err := e.readNode(id)
	if err != nil {
		return 0, false, err
	}
	i := 0
	for i < int(n.KeyCount) && key > n.Keys[i] {
		i++
	}
	if i < int(n.KeyCount) && n.Keys[i] == key {
		return n.Values[i], true, nil
	}
	if n.IsLeaf() {
		return 0, false, nil
	}
	return e.searchFrom(n.Children[i], key)
}

// Print writes the indented structural dump of the tree to w.
func (e *Engine) Print(w io.Writer) error {
	if e.Header.RootID == 0 {
		_, err := fmt.Fprintln(w, "(empty tree)")
		return err
	}
	return e.printNode(w, e.Header.RootID, 0)
}

func (e *Engine) printNode(w io.Writer, id uint64, level int) error {
	n, err := e.readNode(id)
	if err != nil {
		return err
	}
	keys := n.Keys[:n.KeyCount]
	if _, err := fmt.Fprintf(w, "%sNode %d: %v\n", strings.Repeat("  ", level), n.ID, keys); err != nil {
		return err
	}
	if !n.IsLeaf() {
		for i := uint64(0); i <= n.KeyCount; i++ {
			if err := e.printNode(w, n.Children[i], level+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Extract writes the in-order key,value sequence to w, one pair per
// line. Unlike the source this method is derived from, it interleaves
// key emission with child recursion so the output is sorted.
func (e *Engine) Extract(w io.Writer) error {
	if e.Header.RootID == 0 {
		return nil
	}
	return e.extractNode(w, e.Header.RootID)
}

func (e *Engine) extractNode(w io.Writer, id uint64) error {
	n, err := e.readNode(id)
	if err != nil {
		return errors.Wrapf(err, "extract: read node %d", id)
	}
	if n.IsLeaf() {
		for i := uint64(0); i < n.KeyCount; i++ {
			if _, err := fmt.Fprintf(w, "%d,%d\n", n.Keys[i], n.Values[i]); err != nil {
				return err
			}
		}
		return nil
	}
	for i := uint64(0); i < n.KeyCount; i++ {
		if err := e.extractNode(w, n.Children[i]); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%d,%d\n", n.Keys[i], n.Values[i]); err != nil {
			return err
		}
	}
	return e.extractNode(w, n.Children[n.KeyCount])
}
