package malloc

import "testing"

import s "github.com/bnclabs/gosettings"
import "github.com/pkg/errors"
import "github.com/stretchr/testify/require"

func testsettings() s.Settings {
	return s.Settings{
		"maxchunksize":       Minsegmentchunks * Chunksize,
		"capacity":           int64(64 * 1024 * 1024),
		"block.retainchunks": int64(1),
	}
}

func TestChunkallocatorIDs(t *testing.T) {
	ca := NewChunkallocator(testsettings())
	defer ca.Releaseall()

	c1 := ca.Allocate(Chunkblock, Chunksize)
	c2 := ca.Allocate(Chunkblock, Chunksize)
	c3 := ca.Allocate(Chunkstack, 100)
	if c1.ID() != 1 || c2.ID() != 2 || c3.ID() != 3 {
		t.Errorf("unexpected ids %v %v %v", c1.ID(), c2.ID(), c3.ID())
	}
	if x := ca.Lookup(c2.ID()); x != c2 {
		t.Errorf("expected %v, got %v", c2, x)
	} else if x := ca.Chunkfor(c3.Ref(10)); x != c3 {
		t.Errorf("expected %v, got %v", c3, x)
	} else if x := ca.Lookup(0); x != nil {
		t.Errorf("expected nil, got %v", x)
	}

	id := c2.ID()
	ca.Release(c2)
	if x := ca.Lookup(id); x != nil {
		t.Errorf("expected nil, got %v", x)
	} else if c2.Kind() != Chunkfree {
		t.Errorf("expected %v, got %v", Chunkfree, c2.Kind())
	}
	c4 := ca.Allocate(Chunkblock, Chunksize)
	if c4.ID() != id {
		t.Errorf("expected %v, got %v", id, c4.ID())
	}
	if x := ca.Nchunks(); x != 3 {
		t.Errorf("expected %v, got %v", 3, x)
	}
}

func TestChunkallocatorZeroed(t *testing.T) {
	ca := NewChunkallocator(testsettings())
	defer ca.Releaseall()

	chunk := ca.Allocate(Chunkblock, Chunksize)
	for i := range chunk.data {
		chunk.data[i] = 0xab
	}
	ca.Release(chunk)
	chunk = ca.Allocate(Chunkblock, Chunksize)
	for i, b := range chunk.data {
		if b != 0 {
			t.Fatalf("byte %v not zeroed %x", i, b)
		}
	}
}

func TestChunkallocatorSegments(t *testing.T) {
	ca := NewChunkallocator(testsettings())
	defer ca.Releaseall()

	chunks := make([]*Chunk, 0)
	for i := int64(0); i < Minsegmentchunks+1; i++ {
		chunks = append(chunks, ca.Allocate(Chunkblock, Chunksize))
	}
	segsize := Minsegmentchunks * Chunksize
	if x := ca.Segments(); x != 2 {
		t.Errorf("expected %v, got %v", 2, x)
	} else if x := ca.Mapped(); x != 2*segsize {
		t.Errorf("expected %v, got %v", 2*segsize, x)
	}
	ca.Release(chunks[len(chunks)-1])
	if x := ca.Segments(); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	} else if x := ca.Mapped(); x != segsize {
		t.Errorf("expected %v, got %v", segsize, x)
	}
	// last segment is never unmapped.
	for _, chunk := range chunks[:len(chunks)-1] {
		ca.Release(chunk)
	}
	if x := ca.Segments(); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	} else if x := ca.Nchunks(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	}
}

func TestChunkallocatorDedicated(t *testing.T) {
	ca := NewChunkallocator(testsettings())
	defer ca.Releaseall()

	chunk := ca.Allocate(Chunkhuge, 2*Chunksize+1)
	if x := chunk.Size(); x != 3*Chunksize {
		t.Errorf("expected %v, got %v", 3*Chunksize, x)
	} else if x := chunk.Nchunks(); x != 3 {
		t.Errorf("expected %v, got %v", 3, x)
	} else if x := ca.Segments(); x != 1 {
		t.Errorf("expected %v, got %v", 1, x)
	} else if x := ca.Mapped(); x != 3*Chunksize {
		t.Errorf("expected %v, got %v", 3*Chunksize, x)
	}
	ca.Release(chunk)
	if x := ca.Segments(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	} else if x := ca.Mapped(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	}
}

func TestChunkallocatorCapacity(t *testing.T) {
	setts := testsettings()
	setts["capacity"] = Minsegmentchunks * Chunksize
	ca := NewChunkallocator(setts)
	defer ca.Releaseall()

	for i := int64(0); i < Minsegmentchunks; i++ {
		ca.Allocate(Chunkblock, Chunksize)
	}
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		require.Equal(t, ErrorOutofMemory, errors.Cause(err))
	}()
	ca.Allocate(Chunkblock, Chunksize)
}

func TestChunkallocatorPanic(t *testing.T) {
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic for maxchunksize")
			}
		}()
		setts := testsettings()
		setts["maxchunksize"] = Chunksize
		NewChunkallocator(setts)
	}()
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic for double release")
			}
		}()
		ca := NewChunkallocator(testsettings())
		defer ca.Releaseall()
		chunk := ca.Allocate(Chunkblock, Chunksize)
		ca.Release(chunk)
		ca.Release(chunk)
	}()
}

func TestChunkmeta(t *testing.T) {
	ca := NewChunkallocator(testsettings())
	defer ca.Releaseall()

	chunk := ca.Allocate(Chunkblock, Chunksize)
	chunk.setobject(0, 3)
	chunk.setobject(3, 1)
	chunk.setobject(10, 7)
	require.NoError(t, chunk.Validate())
	require.Equal(t, int64(11), chunk.Nused())
	require.Equal(t, Numslots-11, chunk.Nfree())
	require.True(t, chunk.Isobject(3))
	require.False(t, chunk.Isobject(4))
	require.False(t, chunk.Isobject(-1))
	require.Equal(t, int64(7), chunk.Objectslots(10))

	require.True(t, chunk.Setmark(10))
	require.False(t, chunk.Setmark(10))
	require.True(t, chunk.Ismarked(10))

	slots := []int64{}
	chunk.Objects(func(slot int64) bool {
		slots = append(slots, slot)
		return true
	})
	require.Equal(t, []int64{0, 3, 10}, slots)

	require.Equal(t, int64(7), chunk.clearobject(10))
	require.False(t, chunk.Ismarked(10))
	require.NoError(t, chunk.Validate())
	require.Equal(t, int64(4), chunk.Nused())
}

func TestChunkallocatorFits(t *testing.T) {
	setts := testsettings()
	setts["capacity"] = 2 * Minsegmentchunks * Chunksize
	ca := NewChunkallocator(setts)
	defer ca.Releaseall()

	require.True(t, ca.Fits(Chunksize))
	require.True(t, ca.Fits(2*Minsegmentchunks*Chunksize))
	require.False(t, ca.Fits(2*Minsegmentchunks*Chunksize+1))

	huge := ca.Allocate(Chunkhuge, (Minsegmentchunks+1)*Chunksize)
	require.False(t, ca.Fits(Chunksize))
	ca.Release(huge)

	chunks := []*Chunk{}
	for i := int64(0); i < 2*Minsegmentchunks; i++ {
		require.True(t, ca.Fits(Chunksize))
		chunks = append(chunks, ca.Allocate(Chunkblock, Chunksize))
	}
	require.False(t, ca.Fits(Chunksize))
	ca.Release(chunks[0])
	require.True(t, ca.Fits(Chunksize))
	require.False(t, ca.Fits(2*Chunksize))
}
