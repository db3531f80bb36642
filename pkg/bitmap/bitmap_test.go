package bitmap

import "testing"

func TestFirstFit(t *testing.T) {
	// 1 = free: only bits 5 and 70 are free.
	bm := New(128)
	bm.Set(5)
	bm.Set(70)

	idx, ok := bm.FirstSet(0)
	if !ok || idx != 5 {
		t.Fatalf("FirstSet(0) = %d, %v; want 5, true", idx, ok)
	}
	bm.Clear(5)
	idx, ok = bm.FirstSet(0)
	if !ok || idx != 70 {
		t.Fatalf("FirstSet(0) = %d, %v; want 70, true", idx, ok)
	}
	bm.Clear(70)
	if _, ok := bm.FirstSet(0); ok {
		t.Fatalf("expected no free bits")
	}
}

func TestRoundTrip(t *testing.T) {
	bm := New(20)
	bm.Set(0)
	bm.Set(19)
	raw := bm.Bytes()
	bm2 := FromBytes(raw, 20)
	if !bm2.Test(0) || !bm2.Test(19) || bm2.Test(5) {
		t.Fatalf("round trip mismatch")
	}
}

func TestPopCount(t *testing.T) {
	bm := New(10)
	bm.Set(1)
	bm.Set(2)
	bm.Set(9)
	if got := bm.PopCount(); got != 3 {
		t.Fatalf("PopCount() = %d, want 3", got)
	}
}
