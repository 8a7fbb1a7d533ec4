package malloc

import "testing"

func TestFreebits(t *testing.T) {
	fbits := newfreebits(64)
	for i := int64(0); i < 64; i++ {
		if nth, ok := fbits.alloc(); !ok {
			t.Fatalf("unexpected failure at %v", i)
		} else if nth != i {
			t.Errorf("expected %v, got %v", i, nth)
		}
	}
	if _, ok := fbits.alloc(); ok {
		t.Errorf("expected exhausted freebits")
	}
	fbits.free(10)
	fbits.free(3)
	if x := fbits.freeblocks(); x != 2 {
		t.Errorf("expected %v, got %v", 2, x)
	}
	if nth, _ := fbits.alloc(); nth != 3 {
		t.Errorf("expected %v, got %v", 3, nth)
	}
	if nth, _ := fbits.alloc(); nth != 10 {
		t.Errorf("expected %v, got %v", 10, nth)
	}
	for i := int64(0); i < 64; i++ {
		fbits.free(i)
	}
	if !fbits.isfull() {
		t.Errorf("expected all chunks free")
	}
}

func TestFreebitsPanic(t *testing.T) {
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic for odd segment")
			}
		}()
		newfreebits(12)
	}()
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic for double free")
			}
		}()
		fbits := newfreebits(8)
		nth, _ := fbits.alloc()
		fbits.free(nth)
		fbits.free(nth)
	}()
}
