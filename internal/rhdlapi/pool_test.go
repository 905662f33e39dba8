package rhdlapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolAllocate(t *testing.T) {
	pool := NewPool[int]()
	a := pool.Allocate()
	*a = 42
	require.Equal(t, 1, pool.Allocated())
	require.Equal(t, 42, *pool.View(0))
}

func TestPoolAllocateAcrossPages(t *testing.T) {
	pool := NewPool[int]()
	for i := 0; i < poolPageSize*3+7; i++ {
		v := pool.Allocate()
		*v = i
	}
	require.Equal(t, poolPageSize*3+7, pool.Allocated())
	for i := 0; i < poolPageSize*3+7; i++ {
		require.Equal(t, i, *pool.View(i))
	}
}

func TestPoolInsert(t *testing.T) {
	pool := NewPool[int]()
	i0 := pool.Insert(7)
	i1 := pool.Insert(8)
	require.Equal(t, 0, i0)
	require.Equal(t, 1, i1)
	require.Equal(t, 7, *pool.View(i0))
	require.Equal(t, 8, *pool.View(i1))
}

func TestPoolReset(t *testing.T) {
	pool := NewPool[int]()
	v := pool.Allocate()
	*v = 9
	pool.Reset()
	require.Equal(t, 0, pool.Allocated())
	v2 := pool.Allocate()
	require.Equal(t, 0, *v2, "storage must be zeroed on reuse")
}
