package utils

import (
	"math/rand/v2"
	"sync"
)

// RecyclableIDGenerator generate non-zero ids that are unique among live ids,
// a recycled id may be handed out again.
type RecyclableIDGenerator struct {
	sync.Mutex
	live map[uint32]struct{}
	next uint32
}

// NewRecyclableIDGenerator create an id generator starting at a random id
func NewRecyclableIDGenerator() *RecyclableIDGenerator {
	return &RecyclableIDGenerator{
		live: make(map[uint32]struct{}),
		next: rand.Uint32(),
	}
}

// NextID get the next id
func (g *RecyclableIDGenerator) NextID() (id uint32) {
	g.Lock()
	for {
		id = g.next
		g.next++
		if id == 0 {
			continue
		}
		if _, ok := g.live[id]; !ok {
			g.live[id] = struct{}{}
			break
		}
	}
	g.Unlock()
	return
}

// Recycle recyle the id for future use.
func (g *RecyclableIDGenerator) Recycle(id uint32) {
	g.Lock()
	delete(g.live, id)
	g.Unlock()
}

// Live returns the number of ids in use.
func (g *RecyclableIDGenerator) Live() int {
	g.Lock()
	n := len(g.live)
	g.Unlock()
	return n
}
