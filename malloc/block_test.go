package malloc

import "math/rand"
import "testing"

import "github.com/bnclabs/mheap/api"
import "github.com/stretchr/testify/require"

func newtestblock(t *testing.T) (*Chunkallocator, *Blockallocator) {
	ca := NewChunkallocator(testsettings())
	t.Cleanup(ca.Releaseall)
	return ca, NewBlockallocator(ca, testsettings())
}

func TestBlockAllocate(t *testing.T) {
	ca, ba := newtestblock(t)

	if _, ok := ba.Allocate(64, false); ok {
		t.Errorf("expected failure without chunks")
	}
	ref, ok := ba.Allocate(64, true)
	if !ok || ref == api.Nilref {
		t.Fatalf("unexpected allocation failure")
	} else if x := ba.Chunks(); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	}
	ref2, ok := ba.Allocate(0, false)
	if !ok {
		t.Fatalf("unexpected allocation failure")
	} else if x := ref2.Slot(); x != ref.Slot()+2 {
		t.Errorf("expected %v, got %v", ref.Slot()+2, x)
	}
	if x := ba.Usedslots(); x != 3 {
		t.Errorf("expected %v, got %v", 3, x)
	} else if x := ba.Usedmem(); x != 3*Slotsize {
		t.Errorf("expected %v, got %v", 3*Slotsize, x)
	} else if x := ba.Allocatedmem(); x != Chunksize {
		t.Errorf("expected %v, got %v", Chunksize, x)
	} else if !ba.Owns(ref) {
		t.Errorf("expected %v owned by block allocator", ref)
	} else if !ca.Chunkfor(ref).Isobject(ref.Slot()) {
		t.Errorf("expected object at %v", ref)
	}
	require.NoError(t, ba.Validate())

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic for oversized block")
		}
	}()
	ba.Allocate(Chunksize+1, true)
}

func TestBlockSweepBins(t *testing.T) {
	_, ba := newtestblock(t)

	refs := make(map[api.Ref]bool)
	for i := 0; i < 1000; i++ {
		ref, _ := ba.Allocate(64, true)
		refs[ref] = true
	}
	destroyed := 0
	ba.Sweep(func(ref api.Ref) {
		if !refs[ref] {
			t.Errorf("unexpected destroy %v", ref)
		}
		delete(refs, ref)
		destroyed++
	})
	if destroyed != 1000 {
		t.Errorf("expected %v, got %v", 1000, destroyed)
	} else if x := ba.Binlen(2); x != 1000 {
		t.Errorf("expected %v, got %v", 1000, x)
	} else if x := ba.Chunks(); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	} else if x := ba.Usedslotsafter(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	}
	require.NoError(t, ba.Validate())

	if _, ok := ba.Allocate(50, false); !ok {
		t.Errorf("expected allocation from bin")
	} else if x := ba.Binlen(2); x != 999 {
		t.Errorf("expected %v, got %v", 999, x)
	}
	require.NoError(t, ba.Validate())
}

func TestBlockSweepMarked(t *testing.T) {
	ca, ba := newtestblock(t)

	refs := []api.Ref{}
	for i := 0; i < 10; i++ {
		ref, _ := ba.Allocate(int64(i*10), true)
		refs = append(refs, ref)
	}
	for i, ref := range refs {
		if i%2 == 0 {
			ca.Chunkfor(ref).Setmark(ref.Slot())
		}
	}
	destroyed := []api.Ref{}
	ba.Sweep(func(ref api.Ref) { destroyed = append(destroyed, ref) })
	require.Equal(t, []api.Ref{refs[1], refs[3], refs[5], refs[7], refs[9]}, destroyed)
	for i, ref := range refs {
		chunk := ca.Chunkfor(ref)
		require.Equal(t, i%2 == 0, chunk.Isobject(ref.Slot()))
		require.False(t, chunk.Ismarked(ref.Slot()))
	}
	require.NoError(t, ba.Validate())
}

func TestBlockSplit(t *testing.T) {
	ca, ba := newtestblock(t)

	a, _ := ba.Allocate(20*Slotsize, true)
	b, _ := ba.Allocate((Numslots-20)*Slotsize, true)
	ca.Chunkfor(b).Setmark(b.Slot())
	ba.Sweep(nil)

	if x := ba.Binlen(Numbins - 1); x != 1 {
		t.Fatalf("expected %v, got %v", 1, x)
	}
	ref, ok := ba.Allocate(3*Slotsize, false)
	if !ok {
		t.Fatalf("expected allocation by splitting")
	} else if ref != a {
		t.Errorf("expected %v, got %v", a, ref)
	} else if x := ba.Binlen(Numbins - 1); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	}
	require.NoError(t, ba.Validate())

	// 17 slots left, 18 slots shall fail without force.
	if _, ok := ba.Allocate(18*Slotsize, false); ok {
		t.Errorf("expected failure without force")
	}
	if _, ok := ba.Allocate(18*Slotsize, true); !ok {
		t.Errorf("expected allocation with force")
	} else if x := ba.Chunks(); x != 2 {
		t.Errorf("expected %v, got %v", 2, x)
	}
	ref, _ = ba.Allocate(17*Slotsize, false)
	if x := api.Makeref(a.Chunkid(), a.Slot()+3); ref != x {
		t.Errorf("expected %v, got %v", x, ref)
	}
	require.NoError(t, ba.Validate())
}

func TestBlockSplitSmall(t *testing.T) {
	ca, ba := newtestblock(t)

	a, _ := ba.Allocate(5*Slotsize, true)
	b, _ := ba.Allocate((Numslots-5)*Slotsize, true)
	ca.Chunkfor(b).Setmark(b.Slot())
	ba.Sweep(nil)

	ref, ok := ba.Allocate(2*Slotsize, false)
	require.True(t, ok)
	require.Equal(t, a, ref)
	require.Equal(t, int64(0), ba.Binlen(5))
	require.Equal(t, int64(1), ba.Binlen(3))
	require.NoError(t, ba.Validate())
}

func TestBlockRelease(t *testing.T) {
	ca, ba := newtestblock(t)

	for i := 0; i < 3; i++ {
		ba.Allocate(Chunksize, true)
	}
	ref, _ := ba.Allocate(100, true)
	if x := ba.Chunks(); x != 4 {
		t.Fatalf("expected %v, got %v", 4, x)
	}
	ca.Chunkfor(ref).Setmark(ref.Slot())
	ba.Sweep(nil)
	if x := ba.Chunks(); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	} else if x := ca.Nchunks(); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	} else if !ca.Chunkfor(ref).Isobject(ref.Slot()) {
		t.Errorf("expected %v to survive", ref)
	}
	require.NoError(t, ba.Validate())

	ba.Sweep(nil)
	if x := ba.Chunks(); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	}
	require.NoError(t, ba.Validate())
}

func TestBlockAllocateInDestroy(t *testing.T) {
	ca, ba := newtestblock(t)

	for i := 0; i < 100; i++ {
		ba.Allocate(64, true)
	}
	fresh := []api.Ref{}
	ba.Sweep(func(ref api.Ref) {
		if len(fresh) < 10 {
			ref, _ := ba.Allocate(Chunksize/2, true)
			fresh = append(fresh, ref)
		}
	})
	for _, ref := range fresh {
		if chunk := ca.Chunkfor(ref); chunk == nil || !chunk.Isobject(ref.Slot()) {
			t.Errorf("expected %v to survive sweep", ref)
		} else if chunk.Ismarked(ref.Slot()) {
			t.Errorf("expected %v to be unmarked", ref)
		}
	}
	require.NoError(t, ba.Validate())
}

func TestBlockZeroed(t *testing.T) {
	ca, ba := newtestblock(t)

	ref, _ := ba.Allocate(128, true)
	block := ca.Chunkfor(ref).Bytes(ref.Slot(), 128)
	for i := range block {
		block[i] = 0xcd
	}
	ba.Sweep(nil)
	ref2, _ := ba.Allocate(128, false)
	require.Equal(t, ref, ref2)
	for i, b := range ca.Chunkfor(ref2).Bytes(ref2.Slot(), 128) {
		if b != 0 {
			t.Fatalf("byte %v not zeroed %x", i, b)
		}
	}
}

func TestBlockAccounting(t *testing.T) {
	ca, ba := newtestblock(t)
	rnd := rand.New(rand.NewSource(42))

	live := []api.Ref{}
	for round := 0; round < 10; round++ {
		for i := 0; i < 2000; i++ {
			size := int64(rnd.Intn(1024))
			if rnd.Intn(50) == 0 {
				size = int64(rnd.Intn(int(Chunksize)))
			}
			ref, ok := ba.Allocate(size, false)
			if !ok {
				ref, _ = ba.Allocate(size, true)
			}
			live = append(live, ref)
		}
		kept := live[:0]
		for _, ref := range live {
			if rnd.Intn(3) == 0 {
				ca.Chunkfor(ref).Setmark(ref.Slot())
				kept = append(kept, ref)
			}
		}
		live = kept
		ba.Sweep(nil)

		require.NoError(t, ba.Validate())
		require.Equal(t, ba.Totalslots(), ba.Usedslots()+ba.Freeslots())
		for _, ref := range live {
			require.True(t, ca.Chunkfor(ref).Isobject(ref.Slot()))
		}
	}
	ba.Freeall()
	require.Equal(t, int64(0), ba.Chunks())
	require.Equal(t, int64(0), ca.Nchunks())
}
