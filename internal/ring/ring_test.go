package ring

import "testing"

func TestPushBelowCapacity(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 3; i++ {
		if _, ok := b.Push(i); ok {
			t.Fatalf("push %d should not evict", i)
		}
	}
	if b.Len() != 3 {
		t.Fatalf("expected len 3, got %d", b.Len())
	}
	items := b.Items()
	for i, want := range []int{1, 2, 3} {
		if items[i] != want {
			t.Fatalf("items[%d] = %d, want %d", i, items[i], want)
		}
	}
}

func TestPushEvictsOldest(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 3; i++ {
		b.Push(i)
	}
	evicted, ok := b.Push(4)
	if !ok || evicted != 1 {
		t.Fatalf("expected eviction of 1, got %d (ok=%v)", evicted, ok)
	}
	items := b.Items()
	for i, want := range []int{2, 3, 4} {
		if items[i] != want {
			t.Fatalf("items[%d] = %d, want %d", i, items[i], want)
		}
	}
	if b.Len() != 3 {
		t.Fatalf("len should stay at capacity, got %d", b.Len())
	}
}

func TestNewestOrderAndLimit(t *testing.T) {
	b := New[int](5)
	for i := 1; i <= 7; i++ {
		b.Push(i)
	}
	newest := b.Newest(3)
	for i, want := range []int{7, 6, 5} {
		if newest[i] != want {
			t.Fatalf("newest[%d] = %d, want %d", i, newest[i], want)
		}
	}
	all := b.Newest(0)
	if len(all) != 5 || all[4] != 3 {
		t.Fatalf("newest(0) should return all retained elements, got %v", all)
	}
}

func TestCapacityInvariantUnderChurn(t *testing.T) {
	b := New[int](100)
	for i := 0; i < 150; i++ {
		b.Push(i)
	}
	if b.Len() != 100 {
		t.Fatalf("expected len 100 after 150 pushes, got %d", b.Len())
	}
	items := b.Items()
	if items[0] != 50 || items[99] != 149 {
		t.Fatalf("expected retained window [50,149], got [%d,%d]", items[0], items[99])
	}
}
