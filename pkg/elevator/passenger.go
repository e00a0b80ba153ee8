package elevator

import (
	"math/rand/v2"
	"sync/atomic"
)

const (
	minPassengerWeight = 20 // lighter than this counts as cargo
	meanWeight         = 150
	stdDevWeight       = 100
	meanCargo          = 25
	stdDevCargo        = 5
	maxCargo           = 100
)

// IDSource hands out passenger identifiers.
type IDSource interface {
	NextID() int
}

// Sequence is an IDSource counting up from zero.
// The composition root owns it and passes it to every dispatcher that should share ids.
// Sequence는 0부터 증가하는 승객 ID 생성기입니다.
type Sequence struct {
	last atomic.Int64
}

// NewSequence returns a sequence whose first id is 0.
func NewSequence() *Sequence {
	s := &Sequence{}
	s.last.Store(-1)
	return s
}

// NextID returns the next id.
func (s *Sequence) NextID() int {
	return int(s.last.Add(1))
}

// clampedNormal draws from N(mean, stdDev) and clamps into [lo, hi].
func clampedNormal(r *rand.Rand, mean, stdDev, lo, hi float64) float64 {
	return max(lo, min(r.NormFloat64()*stdDev+mean, hi))
}

// registry holds waiting passengers per floor and the car manifest.
// Per-floor order is arrival order.
type registry struct {
	floors map[int][]*Passenger
	car    []*Passenger
}

func newRegistry() registry {
	return registry{floors: make(map[int][]*Passenger)}
}

func (r *registry) wait(p *Passenger) {
	r.floors[p.Location] = append(r.floors[p.Location], p)
}

func (r *registry) waiting(floor int) []*Passenger {
	return r.floors[floor]
}

func (r *registry) setWaiting(floor int, ps []*Passenger) {
	if len(ps) == 0 {
		delete(r.floors, floor)
		return
	}
	r.floors[floor] = ps
}

func (r *registry) load() float64 {
	var total float64
	for _, p := range r.car {
		total += p.Load()
	}
	return total
}
