// Package rhdlapi holds small, dependency-free utilities shared across the
// compiler packages: the arena allocator backing the symbol-table slot
// arenas, and the compile-time debug/validation switches.
package rhdlapi

const poolPageSize = 128

// Pool is a page-allocated arena of T. Slots are never individually freed;
// the whole arena is dropped (or Reset for reuse) at once. This backs the
// Literal and Register arenas in package symtab.
type Pool[T any] struct {
	pages            []*[poolPageSize]T
	allocated, index int
}

// NewPool returns a ready-to-use Pool.
func NewPool[T any]() Pool[T] {
	var ret Pool[T]
	ret.Reset()
	return ret
}

// Allocated returns the number of items allocated from the pool so far.
func (p *Pool[T]) Allocated() int {
	return p.allocated
}

// Allocate reserves and returns a pointer to a fresh, zero-valued T. The
// returned index (p.Allocated()-1 right after the call) is stable for the
// lifetime of the pool and can be handed to View.
func (p *Pool[T]) Allocate() *T {
	if p.index == poolPageSize {
		if len(p.pages) == cap(p.pages) {
			p.pages = append(p.pages, new([poolPageSize]T))
		} else {
			i := len(p.pages)
			p.pages = p.pages[:i+1]
			if p.pages[i] == nil {
				p.pages[i] = new([poolPageSize]T)
			}
		}
		p.index = 0
	}
	ret := &p.pages[len(p.pages)-1][p.index]
	p.index++
	p.allocated++
	return ret
}

// View returns a pointer to the i-th allocated item.
func (p *Pool[T]) View(i int) *T {
	page, index := i/poolPageSize, i%poolPageSize
	return &p.pages[page][index]
}

// Insert allocates a fresh slot holding v and returns its stable index.
// This is the shape every caller in this module actually wants (symtab's
// Literal/Register arenas never use a bare Allocate() without immediately
// storing a value and recovering its index), so it replaces the
// Allocate-then-Allocated()-1 pair at call sites.
func (p *Pool[T]) Insert(v T) int {
	r := p.Allocate()
	*r = v
	return p.allocated - 1
}

// Reset releases all allocated items, zeroing storage for reuse.
func (p *Pool[T]) Reset() {
	for _, ns := range p.pages {
		pages := ns[:]
		for i := range pages {
			var v T
			pages[i] = v
		}
	}
	p.pages = p.pages[:0]
	p.index = poolPageSize
	p.allocated = 0
}
