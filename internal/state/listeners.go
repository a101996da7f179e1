package state

import (
	"sort"
	"sync"
)

// Listener observes every applied event together with the state it produced.
type Listener func(Event, AppState)

type listeners struct {
	listeners      map[uint64]Listener // map[subscriptionID]Listener
	nextID         uint64
	totalListeners int
	mu             sync.RWMutex
}

func newListeners() *listeners {
	return &listeners{
		listeners: make(map[uint64]Listener),
	}
}

func (ls *listeners) add(l Listener) *Subscription {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.nextID++
	ls.listeners[ls.nextID] = l
	ls.totalListeners++

	return &Subscription{id: ls.nextID, owner: ls}
}

func (ls *listeners) remove(id uint64) {
	if !ls.exists(id) {
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if _, ok := ls.listeners[id]; !ok {
		return
	}
	delete(ls.listeners, id)
	ls.totalListeners--
}

// Listeners are called in subscription order.
func (ls *listeners) notify(ev Event, st AppState) {
	for _, l := range ls.all() {
		l(ev, st)
	}
}

func (ls *listeners) all() []Listener {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	if ls.totalListeners == 0 {
		return nil
	}

	ids := make([]uint64, 0, ls.totalListeners)
	for id := range ls.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	all := make([]Listener, 0, len(ids))
	for _, id := range ids {
		all = append(all, ls.listeners[id])
	}
	return all
}

func (ls *listeners) exists(id uint64) bool {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	_, exists := ls.listeners[id]
	return exists
}

// Subscription is a registered listener. Cancel is safe to call more than once.
type Subscription struct {
	id    uint64
	owner *listeners
	once  sync.Once
}

func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.owner.remove(s.id) })
}
