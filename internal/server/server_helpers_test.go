package server

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"lucky-seven/internal/config"
	"lucky-seven/internal/ledger"
)

// fakeScheduler collects scheduled callbacks so tests can fire phase
// transitions on a virtual clock.
type fakeScheduler struct {
	mu      sync.Mutex
	pending map[string]func()
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{pending: make(map[string]func())}
}

func (f *fakeScheduler) Schedule(name string, _ time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[name] = fn
}

func (f *fakeScheduler) Cancel(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, name)
}

func (f *fakeScheduler) fire(t *testing.T, name string) {
	t.Helper()
	f.mu.Lock()
	fn, ok := f.pending[name]
	delete(f.pending, name)
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no %q timer scheduled", name)
	}
	fn()
}

func (f *fakeScheduler) scheduled(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[name]
	return ok
}

type recordedEvent struct {
	Handle  string
	Event   string
	Payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Broadcast(event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Event: event, Payload: payload})
}

func (p *fakePublisher) Send(handle, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Handle: handle, Event: event, Payload: payload})
}

func (p *fakePublisher) last(event string) (recordedEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Event == event {
			return p.events[i], true
		}
	}
	return recordedEvent{}, false
}

func (p *fakePublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func newTestTable(t *testing.T) (*Table, *ledger.Mem, *fakeScheduler, *fakePublisher) {
	t.Helper()
	mem := ledger.NewMem()
	sched := newFakeScheduler()
	pub := &fakePublisher{}
	table := NewTable(config.Default(), mem, sched, pub, newTestRand())
	return table, mem, sched, pub
}

func newTestRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

// startRound begins the cycle and leaves the table inside the open
// betting window.
func startRound(t *testing.T, table *Table) {
	t.Helper()
	table.Start(context.Background())
}

// tickN fires the countdown timer n times.
func tickN(t *testing.T, sched *fakeScheduler, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		sched.fire(t, timerTick)
	}
}

// closeBetting advances the countdown to the closed window.
func closeBetting(t *testing.T, table *Table, sched *fakeScheduler) {
	t.Helper()
	tickN(t, sched, table.cfg.BettingSeconds)
}

// runToReveal drives the countdown all the way to reveal and settlement.
func runToReveal(t *testing.T, table *Table, sched *fakeScheduler) {
	t.Helper()
	tickN(t, sched, table.cfg.CountdownSeconds)
}

func authedSeat(t *testing.T, table *Table, handle, name string) {
	t.Helper()
	table.Connect(handle)
	if err := table.Authenticate(context.Background(), handle, name); err != nil {
		t.Fatalf("authenticate %s: %v", name, err)
	}
}

func seatBalance(t *testing.T, table *Table, handle string) int64 {
	t.Helper()
	table.mu.Lock()
	defer table.mu.Unlock()
	seat, ok := table.seats[handle]
	if !ok {
		t.Fatalf("no seat for handle %s", handle)
	}
	return seat.Balance
}

func accountBalance(t *testing.T, mem *ledger.Mem, id uint) int64 {
	t.Helper()
	account, err := mem.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %d: %v", id, err)
	}
	return account.Balance
}
