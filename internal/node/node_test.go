package node

import "testing"

func TestEncodeDecode_RoundTrip(t *testing.T) {
	n := New(3)
	n.ParentID = 0
	n.KeyCount = 2
	n.Keys[0], n.Values[0] = 10, 100
	n.Keys[1], n.Values[1] = 20, 200
	n.Children[0] = 7
	n.Children[1] = 8
	n.Children[2] = 9

	buf := n.Encode()
	if len(buf) != 512 {
		t.Fatalf("encoded block is %d bytes, want 512", len(buf))
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != n.ID || got.ParentID != n.ParentID || got.KeyCount != n.KeyCount {
		t.Fatalf("header mismatch: got %+v", got)
	}
	for i := uint64(0); i < n.KeyCount; i++ {
		if got.Keys[i] != n.Keys[i] || got.Values[i] != n.Values[i] {
			t.Fatalf("slot %d mismatch: got key=%d value=%d", i, got.Keys[i], got.Values[i])
		}
	}
	for i := 0; i < 3; i++ {
		if got.Children[i] != n.Children[i] {
			t.Fatalf("child %d mismatch: got %d want %d", i, got.Children[i], n.Children[i])
		}
	}
}

func TestDecode_RejectsWrongLength(t *testing.T) {
	if _, err := Decode(make([]byte, 511)); err == nil {
		t.Fatalf("expected error decoding undersized buffer")
	}
}

func TestIsLeaf_DerivedFromChildren(t *testing.T) {
	n := New(1)
	if !n.IsLeaf() {
		t.Fatalf("fresh node with all-zero children should be a leaf")
	}
	n.Children[5] = 99
	if n.IsLeaf() {
		t.Fatalf("node with a non-zero child slot should not be a leaf")
	}
}

func TestMaxKeysAndChildren_MatchMinDegree(t *testing.T) {
	if MaxKeys != 2*MinDegree-1 {
		t.Fatalf("MaxKeys = %d, want %d", MaxKeys, 2*MinDegree-1)
	}
	if MaxChildren != 2*MinDegree {
		t.Fatalf("MaxChildren = %d, want %d", MaxChildren, 2*MinDegree)
	}
}
