package search

import (
	"reflect"
	"testing"
)

func TestFusion_LexicalFirst(t *testing.T) {
	f := NewFusion()

	fused := f.Fuse([]int64{3, 1, 2}, []int64{5, 1, 4})
	want := []int64{3, 1, 2, 5, 4}
	if !reflect.DeepEqual(fused, want) {
		t.Errorf("expected %v, got %v", want, fused)
	}
}

func TestFusion_PreservesLexicalOrder(t *testing.T) {
	f := NewFusion()

	fused := f.Fuse([]int64{9, 7, 8}, nil)
	want := []int64{9, 7, 8}
	if !reflect.DeepEqual(fused, want) {
		t.Errorf("expected %v, got %v", want, fused)
	}
}

func TestFusion_SemanticOnly(t *testing.T) {
	f := NewFusion()

	fused := f.Fuse(nil, []int64{4, 4, 2})
	want := []int64{4, 2}
	if !reflect.DeepEqual(fused, want) {
		t.Errorf("expected %v, got %v", want, fused)
	}
}

func TestFusion_DiscardsSentinels(t *testing.T) {
	f := NewFusion()

	fused := f.Fuse([]int64{1, -1}, []int64{-1, 2})
	want := []int64{1, 2}
	if !reflect.DeepEqual(fused, want) {
		t.Errorf("expected %v, got %v", want, fused)
	}
}

func TestFusion_BothEmpty(t *testing.T) {
	f := NewFusion()

	if fused := f.Fuse(nil, nil); len(fused) != 0 {
		t.Errorf("expected empty fusion, got %v", fused)
	}
}

func TestFusion_NoTruncation(t *testing.T) {
	f := NewFusion()

	lexical := []int64{1, 2, 3}
	semantic := []int64{4, 5, 6}
	if fused := f.Fuse(lexical, semantic); len(fused) != 6 {
		t.Errorf("expected union of 6 ids, got %v", fused)
	}
}
