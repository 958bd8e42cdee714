// Package store holds the reactive state container of a grid instance.
package store

import (
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"

	"github.com/askiada/go-gridcore/pkg/grid/model"
)

var ErrClosed = errors.New("store is closed")

// RowsState holds the row models indexed by id.
type RowsState struct {
	IDs    []model.RowID
	Lookup map[model.RowID]model.Row
}

// RowGroupingState holds the fields rows are grouped by, outermost first.
type RowGroupingState struct {
	Model []string
}

// State is the whole grid state. Values returned by Get must be treated as read-only.
type State struct {
	Rows        RowsState
	Columns     model.ColumnsState
	Filter      model.FilterModel
	RowGrouping RowGroupingState
	Locale      string
	RowHeight   int
}

// Clone returns a copy of the state whose slices and maps are not shared.
// Row models themselves are shared.
func (s State) Clone() State {
	res := s
	res.Rows.IDs = append([]model.RowID(nil), s.Rows.IDs...)
	if s.Rows.Lookup != nil {
		res.Rows.Lookup = make(map[model.RowID]model.Row, len(s.Rows.Lookup))
		for id, row := range s.Rows.Lookup {
			res.Rows.Lookup[id] = row
		}
	}
	res.Columns.All = append([]string(nil), s.Columns.All...)
	if s.Columns.Lookup != nil {
		res.Columns.Lookup = make(map[string]model.ColDef, len(s.Columns.Lookup))
		for field, def := range s.Columns.Lookup {
			res.Columns.Lookup[field] = def
		}
	}
	res.Filter = s.Filter.Clone()
	res.RowGrouping.Model = append([]string(nil), s.RowGrouping.Model...)

	return res
}

// Listener is called after every update that changed the state.
type Listener func(prev, next State)

type subscription struct {
	id uint64
	fn Listener
}

// Store is safe for concurrent use. Listeners run outside the lock, in
// subscription order, on the goroutine that performed the update.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners []subscription
	nextID    uint64
	closed    bool
}

// New creates a store seeded with initial.
func New(initial State) *Store {
	return &Store{
		state: initial.Clone(),
	}
}

// Get returns the current state.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

var stateCmpOpts = cmp.Options{
	cmpopts.EquateEmpty(),
}

// Update applies fn to a copy of the state. Listeners are notified only when the
// resulting state differs from the current one. It reports whether the state changed.
func (s *Store) Update(fn func(st *State)) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}

	prev := s.state
	next := prev.Clone()
	fn(&next)

	if cmp.Equal(prev, next, stateCmpOpts) {
		s.mu.Unlock()
		return false, nil
	}
	s.state = next
	listeners := make([]subscription, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(prev, next)
	}

	return true, nil
}

// SetFilterModel replaces the filter model wholesale.
func (s *Store) SetFilterModel(fm model.FilterModel) (bool, error) {
	return s.Update(func(st *State) {
		st.Filter = fm.Clone()
	})
}

// Subscribe registers fn and returns the function removing it.
// Unsubscribing twice is a no-op.
func (s *Store) Subscribe(fn Listener) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}, ErrClosed
	}

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}, nil
}

// Close drops every listener. Later updates and subscriptions fail with ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.listeners = nil
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}
