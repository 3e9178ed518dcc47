package provider

import (
	"slices"

	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/query"
)

// tracker maps keys to the one instance a context hands out for them.
type tracker struct {
	entries map[model.Key]*query.Entry
}

func newTracker() *tracker {
	return &tracker{entries: make(map[model.Key]*query.Entry)}
}

func (t *tracker) lookup(k model.Key) (model.Entity, bool) {
	e, ok := t.entries[k]
	if !ok {
		return nil, false
	}
	return e.Entity, true
}

func (t *tracker) add(e model.Entity) {
	k := e.Key()
	if _, ok := t.entries[k]; ok {
		return
	}
	t.entries[k] = &query.Entry{Key: k, Entity: e, State: query.Unchanged}
}

func (t *tracker) remove(k model.Key) bool {
	if _, ok := t.entries[k]; !ok {
		return false
	}
	delete(t.entries, k)
	return true
}

// list returns copies of all entries ordered by key.
func (t *tracker) list() []query.Entry {
	out := make([]query.Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b query.Entry) int { return a.Key.Compare(b.Key) })
	return out
}

// stage collects the entities one operation materializes. Lookups see the
// tracker first, so an already tracked instance always wins over a freshly
// read row.
type stage struct {
	tracker  *tracker // nil for no-tracking queries
	entities map[model.Key]model.Entity
	order    []model.Key
}

func newStage(t *tracker) *stage {
	return &stage{tracker: t, entities: make(map[model.Key]model.Entity)}
}

// resolve returns the canonical instance for e's key.
func (s *stage) resolve(e model.Entity) model.Entity {
	k := e.Key()
	if s.tracker != nil {
		if tracked, ok := s.tracker.lookup(k); ok {
			return tracked
		}
	}
	if staged, ok := s.entities[k]; ok {
		return staged
	}
	s.entities[k] = e
	s.order = append(s.order, k)
	return e
}

// commit moves staged entities into the tracker.
func (s *stage) commit() int {
	if s.tracker == nil {
		return 0
	}
	for _, k := range s.order {
		s.tracker.add(s.entities[k])
	}
	return len(s.order)
}
