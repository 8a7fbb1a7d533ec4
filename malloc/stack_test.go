package malloc

import "testing"

import "github.com/bnclabs/mheap/api"
import "github.com/stretchr/testify/require"

func TestStackallocator(t *testing.T) {
	ca := NewChunkallocator(testsettings())
	defer ca.Releaseall()
	sa := NewStackallocator(ca, 56)

	if x := sa.Recordsize(); x != 64 {
		t.Errorf("expected %v, got %v", 64, x)
	} else if x := sa.Top(); x != api.Nilref {
		t.Errorf("expected %v, got %v", api.Nilref, x)
	}

	n := 3000
	refs := make([]api.Ref, 0, n)
	for i := 0; i < n; i++ {
		ref := sa.Allocate()
		if x := sa.Top(); x != ref {
			t.Fatalf("expected %v, got %v", ref, x)
		}
		refs = append(refs, ref)
	}
	if x := sa.Chunks(); x != 3 {
		t.Errorf("expected %v, got %v", 3, x)
	} else if x := sa.Depth(); x != int64(n) {
		t.Errorf("expected %v, got %v", n, x)
	} else if x := sa.Usedmem(); x != int64(n)*64 {
		t.Errorf("expected %v, got %v", n*64, x)
	}

	walked := []api.Ref{}
	sa.Walk(func(ref api.Ref) { walked = append(walked, ref) })
	require.Equal(t, refs, walked)

	for i := n - 1; i >= 0; i-- {
		if x := sa.Top(); x != refs[i] {
			t.Fatalf("expected %v, got %v", refs[i], x)
		}
		sa.Free()
	}
	if x := sa.Chunks(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	} else if x := ca.Nchunks(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic on empty stack")
		}
	}()
	sa.Free()
}

func TestStackLIFO(t *testing.T) {
	ca := NewChunkallocator(testsettings())
	defer ca.Releaseall()
	sa := NewStackallocator(ca, 100)

	base := sa.Allocate()
	chunks, cursor := sa.Chunks(), sa.Cursor()
	for i := 0; i < 500; i++ {
		sa.Allocate()
	}
	for i := 0; i < 500; i++ {
		sa.Free()
	}
	require.Equal(t, chunks, sa.Chunks())
	require.Equal(t, cursor, sa.Cursor())
	require.Equal(t, base, sa.Top())

	ref := sa.Allocate()
	block := ca.Chunkfor(ref).Bytes(ref.Slot(), sa.Recordsize())
	for _, b := range block {
		require.Equal(t, byte(0), b)
	}
	ca.Chunkfor(ref).Setmark(ref.Slot())
	sa.Sweep(nil)
	require.False(t, ca.Chunkfor(ref).Ismarked(ref.Slot()))
	sa.Freeall()
	require.Equal(t, int64(0), sa.Depth())
}
