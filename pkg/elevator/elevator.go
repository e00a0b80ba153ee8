// Package elevator implements the dispatch scheduler of a single elevator car.
// 이 패키지는 단일 엘리베이터의 스레드 안전(Thread-safe)한 배차 스케줄러를 구현합니다.
// 상행/하행 큐를 SCAN 순서로 유지하고, 틱마다 한 층씩 이동합니다.
package elevator

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tiendc/go-deepcopy"
)

// EventType represents the category of a dispatcher event.
// EventType는 배차기 이벤트의 카테고리를 나타냅니다.
type EventType string

const (
	EventFloorChange     EventType = "FloorChange"
	EventDoorChange      EventType = "DoorChange"
	EventDirectionChange EventType = "DirectionChange"
	EventArrived         EventType = "Arrived"
	EventBoarded         EventType = "Boarded"
	EventDisembarked     EventType = "Disembarked"
)

// Event carries the state change information.
// Event는 시스템 내에서 발생한 상태 변화 정보를 담고 있습니다.
type Event struct {
	Type      EventType
	Payload   any
	Timestamp time.Time
}

// ArrivedPayload carries detail for arrival events.
type ArrivedPayload struct {
	Floor    int  `json:"floor"`
	Priority bool `json:"priority"`
}

const defaultEventBuffer = 1000

// Option customises a Dispatcher at construction.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithIDSource sets where passenger ids come from.
func WithIDSource(ids IDSource) Option {
	return func(d *Dispatcher) { d.ids = ids }
}

// WithRand sets the random source used for generated weights.
func WithRand(r *rand.Rand) Option {
	return func(d *Dispatcher) { d.rng = r }
}

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(n int) Option {
	return func(d *Dispatcher) { d.eventCh = make(chan Event, n) }
}

// Dispatcher is the elevator state machine.
// Dispatcher의 모든 상태 변경은 Mutex로 보호되며, 변경 사항은 Event 채널로 전파됩니다.
type Dispatcher struct {
	mu     sync.RWMutex
	Config Config

	// --- State (가변 상태) ---
	floor       int  // 현재 층
	directionUp bool // 운행 방향
	doorOpen    bool // 문 열림 여부

	// --- Queue (호출 저장소) ---
	priorityQueue []int // 우선 호출 (FIFO)
	upQueue       []int // 상행 큐 (SCAN 순서)
	downQueue     []int // 하행 큐 (SCAN 순서)

	passengers registry

	ids IDSource
	rng *rand.Rand

	// --- Observability ---
	logger            zerolog.Logger
	eventCh           chan Event
	droppedEventCount uint64
}

// New initializes a Dispatcher with strict validation.
// 잘못된 설정이 감지되면 즉시 에러를 반환합니다 (Fail Fast).
func New(config Config, opts ...Option) (*Dispatcher, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		Config:      config,
		floor:       config.InitialFloor,
		directionUp: config.InitialFloor != config.TopFloor,
		passengers:  newRegistry(),
		logger:      zerolog.Nop(),
		eventCh:     make(chan Event, defaultEventBuffer),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.ids == nil {
		d.ids = NewSequence()
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	d.logger = d.logger.With().Str("id", config.ID).Logger()

	d.logger.Info().
		Int("top", config.TopFloor).
		Int("forbidden", config.ForbiddenFloor).
		Int("init_floor", d.floor).
		Int("max_capacity", config.MaxCapacity).
		Float64("max_weight", config.MaxWeight).
		Msg("Dispatcher initialized")

	return d, nil
}

// CurrentFloor returns the current floor safely.
// CurrentFloor는 현재 층을 안전하게 반환합니다.
func (d *Dispatcher) CurrentFloor() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.floor
}

// DirectionUp reports the stored travel direction.
func (d *Dispatcher) DirectionUp() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.directionUp
}

// Direction returns DirIdle when nothing is queued, otherwise the travel direction.
// Direction은 큐가 비어 있으면 Idle, 아니면 운행 방향을 반환합니다.
func (d *Dispatcher) Direction() Direction {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.direction()
}

func (d *Dispatcher) direction() Direction {
	if len(d.priorityQueue) == 0 && len(d.upQueue) == 0 && len(d.downQueue) == 0 {
		return DirIdle
	}
	if d.directionUp {
		return DirUp
	}
	return DirDown
}

// DoorOpen reports whether the doors are open.
func (d *Dispatcher) DoorOpen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doorOpen
}

// UpQueue returns a copy of the up queue in service order.
func (d *Dispatcher) UpQueue() []int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.upQueue)
}

// DownQueue returns a copy of the down queue in service order.
func (d *Dispatcher) DownQueue() []int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.downQueue)
}

// PriorityQueue returns a copy of the priority queue in arrival order.
func (d *Dispatcher) PriorityQueue() []int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.priorityQueue)
}

// Passengers returns a copy of the waiting passengers per floor.
// Passengers는 층별 대기 승객의 복사본을 반환합니다.
func (d *Dispatcher) Passengers() map[int][]*Passenger {
	return d.Snapshot().Waiting
}

// Manifest returns a copy of the passengers inside the car.
func (d *Dispatcher) Manifest() []*Passenger {
	return d.Snapshot().Manifest
}

// DroppedEventCount returns diagnostic metric for channel health.
func (d *Dispatcher) DroppedEventCount() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.droppedEventCount
}

// Events returns the read-only channel for state change notifications.
// Events는 상태 변경 알림을 위한 읽기 전용 채널을 반환합니다.
func (d *Dispatcher) Events() <-chan Event {
	return d.eventCh
}

// publishEvent sends an event to the channel without blocking logic.
// 채널이 가득 차면 이벤트를 버리고 메트릭을 증가시킵니다.
func (d *Dispatcher) publishEvent(eventType EventType, payload any) {
	event := Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	select {
	case d.eventCh <- event:
	default:
		d.droppedEventCount++
		if d.droppedEventCount%100 == 1 {
			d.logger.Error().Uint64("dropped", d.droppedEventCount).Str("type", string(eventType)).Msg("Event Channel Saturated")
		}
	}
}

func (d *Dispatcher) setFloor(f int) {
	if d.floor != f {
		d.floor = f
		d.publishEvent(EventFloorChange, f)
	}
}

func (d *Dispatcher) setDirection(up bool) {
	if d.directionUp != up {
		d.directionUp = up
		dir := DirDown
		if up {
			dir = DirUp
		}
		d.publishEvent(EventDirectionChange, dir)
	}
}

func (d *Dispatcher) setDoor(open bool) {
	if d.doorOpen != open {
		d.doorOpen = open
		d.publishEvent(EventDoorChange, open)
	}
}

// Request registers a hall, car or priority call.
// 유효하지 않은 요청은 상태를 변경하지 않고 거부됩니다.
func (d *Dispatcher) Request(src Source, btn Button) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	target, priority, err := d.Config.resolve(src, btn)
	if err != nil {
		d.logger.Warn().Err(err).Stringer("source", src).Stringer("button", btn).Msg("Request rejected")
		return err
	}

	if priority {
		if slices.Contains(d.priorityQueue, target) {
			d.logger.Debug().Int("floor", target).Msg("Priority call already registered")
			return nil
		}
		d.priorityQueue = append(d.priorityQueue, target)
		d.logger.Info().Int("floor", target).Msg("Priority call registered")
		return nil
	}

	callType := "Hall"
	if src.Car {
		callType = "Car"
	}
	d.logger.Info().Int("floor", target).Stringer("button", btn).Msg(callType + " call registered")
	d.addStop(target)
	return nil
}

// AddPassenger creates a passenger waiting at origin.
// Nil weight or cargo is drawn from a clamped normal distribution.
// AddPassenger는 출발 층에서 대기하는 승객을 생성합니다.
func (d *Dispatcher) AddPassenger(origin, destination int, weight, cargo *float64) (Passenger, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.Config.checkFloor(origin); err != nil {
		return Passenger{}, fmt.Errorf("origin: %w", err)
	}
	if err := d.Config.checkFloor(destination); err != nil {
		return Passenger{}, fmt.Errorf("destination: %w", err)
	}
	if origin == destination {
		return Passenger{}, fmt.Errorf("%w: origin and destination are both %d", ErrInvalidRequest, origin)
	}
	for name, v := range map[string]*float64{"weight": weight, "cargo": cargo} {
		if v != nil && (*v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return Passenger{}, fmt.Errorf("%w: %s %v", ErrInvalidRequest, name, *v)
		}
	}

	p := &Passenger{
		ID:          d.ids.NextID(),
		Location:    origin,
		Origin:      origin,
		Destination: destination,
	}
	if weight != nil {
		p.Weight = *weight
	} else {
		p.Weight = clampedNormal(d.rng, meanWeight, stdDevWeight, minPassengerWeight, d.Config.MaxWeight)
	}
	if cargo != nil {
		p.Cargo = *cargo
	} else {
		p.Cargo = clampedNormal(d.rng, meanCargo, stdDevCargo, 0, maxCargo)
	}

	d.passengers.wait(p)
	d.logger.Info().
		Int("passenger", p.ID).
		Int("origin", origin).
		Int("destination", destination).
		Float64("weight", p.Weight).
		Float64("cargo", p.Cargo).
		Msg("Passenger added")

	if origin == d.floor {
		d.open()
	} else {
		d.addStop(origin)
	}
	return *p, nil
}

// addStop routes a floor to the up or down queue, or opens the doors when the car is already there.
func (d *Dispatcher) addStop(f int) {
	switch {
	case f > d.floor:
		d.upQueue = d.insertStop(d.upQueue, f)
	case f < d.floor:
		d.downQueue = d.insertStop(d.downQueue, f)
	default:
		if !d.doorOpen {
			d.open()
		}
	}
}

// insertStop adds f to q once and restores scan order.
func (d *Dispatcher) insertStop(q []int, f int) []int {
	if !d.Config.validFloor(f) || f == d.floor ||
		slices.Contains(d.upQueue, f) || slices.Contains(d.downQueue, f) {
		return q
	}
	return scanOrder(append(q, f), d.floor, d.directionUp)
}

// Tick advances the state machine by exactly one step.
// Tick은 상태 머신을 정확히 한 단계 진행시킵니다.
func (d *Dispatcher) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.step()
}

func (d *Dispatcher) step() {
	// 1. 우선 호출은 모든 예약된 운행보다 먼저 처리
	if len(d.priorityQueue) > 0 {
		d.upQueue, d.downQueue = nil, nil
		head := d.priorityQueue[0]
		if head == d.floor {
			d.arrive(head)
			return
		}
		d.moveToward(head)
		return
	}

	// 2. 현재 방향 큐, 3. 반대 방향 큐
	active, other := d.downQueue, d.upQueue
	if d.directionUp {
		active, other = d.upQueue, d.downQueue
	}
	var head int
	switch {
	case len(active) > 0:
		head = active[0]
	case len(other) > 0:
		head = other[0]
	default:
		// 4. 유휴 상태
		return
	}

	if head == d.floor {
		d.arrive(head)
		return
	}
	d.moveToward(head)
}

// moveToward moves one floor toward target, stopping there if reached.
func (d *Dispatcher) moveToward(target int) {
	departed := d.floor
	if target > d.floor {
		d.moveUp()
	} else {
		d.moveDown()
	}
	d.logger.Debug().Int("floor", d.floor).Int("target", target).Bool("up", d.directionUp).Msg("Moved")

	if d.floor == target {
		d.arrive(target)
	}
	d.requeueStranded(departed)
}

func (d *Dispatcher) moveUp() {
	d.setDoor(false)
	next := d.floor + 1
	if next == d.Config.ForbiddenFloor {
		next++
	}
	d.setFloor(next)
	d.setDirection(next != d.Config.TopFloor)
}

func (d *Dispatcher) moveDown() {
	d.setDoor(false)
	next := d.floor - 1
	if next == d.Config.ForbiddenFloor {
		next--
	}
	d.setFloor(next)
	d.setDirection(next == 1)
}

// arrive clears the stop for floor and opens the doors.
func (d *Dispatcher) arrive(floor int) {
	if len(d.priorityQueue) > 0 && d.priorityQueue[0] == floor {
		d.priorityQueue = d.priorityQueue[1:]
		d.logger.Info().Int("floor", floor).Msg("Arrived at priority floor")
		d.publishEvent(EventArrived, ArrivedPayload{Floor: floor, Priority: true})
		d.open()
		if len(d.priorityQueue) == 0 {
			d.requeuePending()
		}
		return
	}

	d.upQueue = without(d.upQueue, floor)
	d.downQueue = without(d.downQueue, floor)
	d.logger.Info().Int("floor", floor).Msg("Arrived at floor")
	d.publishEvent(EventArrived, ArrivedPayload{Floor: floor})
	d.open()
}

// open exchanges passengers at the current floor.
// open은 현재 층에서 승객의 하차와 탑승을 처리합니다.
func (d *Dispatcher) open() {
	d.exchange(true)
}

func (d *Dispatcher) exchange(mayFlip bool) {
	d.setDoor(true)

	// 하차
	riding := make([]*Passenger, 0, len(d.passengers.car))
	for _, p := range d.passengers.car {
		if p.Destination == d.floor {
			d.logger.Info().Int("passenger", p.ID).Int("floor", d.floor).Msg("Passenger disembarked")
			d.publishEvent(EventDisembarked, *p)
			continue
		}
		riding = append(riding, p)
	}
	d.passengers.car = riding

	// 탑승: 도착 순서대로, 반대 방향 승객은 건너뜀, 정원/무게 초과 시 중단
	var (
		left    []*Passenger
		boarded []*Passenger
		full    bool
		load    = d.passengers.load()
	)
	for _, p := range d.passengers.waiting(d.floor) {
		if full || p.heading(d.floor) != d.directionUp {
			left = append(left, p)
			continue
		}
		if len(d.passengers.car)+1 > d.Config.MaxCapacity || load+p.Load() > d.Config.MaxWeight {
			d.logger.Debug().Int("passenger", p.ID).Float64("load", load).Msg("Car full, boarding stopped")
			full = true
			left = append(left, p)
			continue
		}
		p.Location = InCar
		load += p.Load()
		d.passengers.car = append(d.passengers.car, p)
		boarded = append(boarded, p)
		d.logger.Info().Int("passenger", p.ID).Int("floor", d.floor).Int("destination", p.Destination).Msg("Passenger boarded")
		d.publishEvent(EventBoarded, *p)
	}
	d.passengers.setWaiting(d.floor, left)

	for _, p := range boarded {
		d.addStop(p.Destination)
	}

	// 빈 차량이 반대 방향 승객만 남기고 있으면 방향을 바꿔 즉시 태움
	if mayFlip && len(d.passengers.car) == 0 && slices.ContainsFunc(left, func(p *Passenger) bool {
		return p.heading(d.floor) != d.directionUp
	}) {
		d.logger.Info().Int("floor", d.floor).Msg("Empty car reversing for waiting passengers")
		d.setDirection(!d.directionUp)
		d.exchange(false)
		d.upQueue = without(d.upQueue, d.floor)
		d.downQueue = without(d.downQueue, d.floor)
	}
}

// fitsEmptyCar reports whether p could ever board.
func (d *Dispatcher) fitsEmptyCar(p *Passenger) bool {
	return p.Load() <= d.Config.MaxWeight
}

// requeueStranded queues floor again if anyone there was left behind.
func (d *Dispatcher) requeueStranded(floor int) {
	if slices.ContainsFunc(d.passengers.waiting(floor), d.fitsEmptyCar) {
		d.logger.Debug().Int("floor", floor).Msg("Requeueing stranded passengers")
		d.addStop(floor)
	}
}

// requeuePending rebuilds the sweep queues from the registry after a priority run.
func (d *Dispatcher) requeuePending() {
	for _, p := range d.passengers.car {
		d.addStop(p.Destination)
	}
	floors := make([]int, 0, len(d.passengers.floors))
	for f := range d.passengers.floors {
		floors = append(floors, f)
	}
	slices.Sort(floors)
	for _, f := range floors {
		d.requeueStranded(f)
	}
	d.logger.Info().Ints("up", d.upQueue).Ints("down", d.downQueue).Msg("Recovered queues after priority service")
}

// Snapshot is a consistent, deep-copied view of the dispatcher.
// Snapshot은 배차기 상태의 일관된 깊은 복사본입니다.
type Snapshot struct {
	ID            string               `json:"id"`
	Floor         int                  `json:"floor"`
	DirectionUp   bool                 `json:"directionUp"`
	Direction     Direction            `json:"direction"`
	DoorOpen      bool                 `json:"doorOpen"`
	UpQueue       []int                `json:"upQueue"`
	DownQueue     []int                `json:"downQueue"`
	PriorityQueue []int                `json:"priorityQueue"`
	Manifest      []*Passenger         `json:"manifest"`
	Waiting       map[int][]*Passenger `json:"waiting"`
	Load          float64              `json:"load"`
	MaxCapacity   int                  `json:"maxCapacity"`
	MaxWeight     float64              `json:"maxWeight"`
}

// Snapshot returns a deep copy of the current state.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	live := Snapshot{
		ID:            d.Config.ID,
		Floor:         d.floor,
		DirectionUp:   d.directionUp,
		Direction:     d.direction(),
		DoorOpen:      d.doorOpen,
		UpQueue:       d.upQueue,
		DownQueue:     d.downQueue,
		PriorityQueue: d.priorityQueue,
		Manifest:      d.passengers.car,
		Waiting:       d.passengers.floors,
		Load:          d.passengers.load(),
		MaxCapacity:   d.Config.MaxCapacity,
		MaxWeight:     d.Config.MaxWeight,
	}
	var snap Snapshot
	if err := deepcopy.Copy(&snap, &live); err != nil {
		panic(fmt.Sprintf("elevator: snapshot copy: %v", err))
	}
	if snap.Waiting == nil {
		snap.Waiting = make(map[int][]*Passenger)
	}
	return snap
}

// Run ticks the dispatcher at a fixed rate until ctx is cancelled.
// Run은 컨텍스트가 취소될 때까지 일정한 간격으로 Tick을 호출합니다.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}
	d.logger.Info().Dur("interval", interval).Msg("Dispatcher loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("Dispatcher loop stopping (context cancelled)")
			return ctx.Err()
		case <-ticker.C:
			d.Tick()
		}
	}
}
