// Package registry implements the SliceRegistry (spec.md C3): the
// live set of audio, waterfall, and event subscribers, plus the
// pending signal_changes map the control plane drains once a second.
//
// Grounded on the teacher's session.go (a mutex-guarded map keyed by
// uuid.UUID, used the same way for its radiod session table) and
// simplified from the original's std::multimap<(l,r), Subscriber> per
// level, since spec.md's own notes observe those keys exist only to
// support a coalescing optimisation no operation in scope here
// exercises — a plain map keyed by subscriber ID is sufficient and
// is what DESIGN.md's Open Question resolution (OQ-4) adopts.
package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cwsl/sdrbroadcast/internal/subscriber"
)

// Registry holds every live subscriber, indexed for O(1) lookup and
// O(n) fan-out iteration.
type Registry struct {
	audioMu sync.RWMutex
	audio   map[uuid.UUID]*subscriber.AudioSubscriber

	waterfallMu sync.RWMutex
	waterfall   map[uuid.UUID]*subscriber.WaterfallSubscriber

	eventsMu sync.RWMutex
	events   map[uuid.UUID]*subscriber.EventSubscriber

	changesMu sync.Mutex
	changes   map[string]string // signal name -> latest JSON-encoded state, drained by the control plane
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		audio:     make(map[uuid.UUID]*subscriber.AudioSubscriber),
		waterfall: make(map[uuid.UUID]*subscriber.WaterfallSubscriber),
		events:    make(map[uuid.UUID]*subscriber.EventSubscriber),
		changes:   make(map[string]string),
	}
}

// AddAudio registers an audio subscriber.
func (r *Registry) AddAudio(s *subscriber.AudioSubscriber) {
	r.audioMu.Lock()
	defer r.audioMu.Unlock()
	r.audio[s.ID] = s
}

// RemoveAudio unregisters an audio subscriber.
func (r *Registry) RemoveAudio(id uuid.UUID) {
	r.audioMu.Lock()
	defer r.audioMu.Unlock()
	delete(r.audio, id)
}

// EachAudio calls fn for every currently registered audio subscriber.
// fn must not call back into the Registry.
func (r *Registry) EachAudio(fn func(*subscriber.AudioSubscriber)) {
	r.audioMu.RLock()
	defer r.audioMu.RUnlock()
	for _, s := range r.audio {
		fn(s)
	}
}

// AddWaterfall registers a waterfall subscriber.
func (r *Registry) AddWaterfall(s *subscriber.WaterfallSubscriber) {
	r.waterfallMu.Lock()
	defer r.waterfallMu.Unlock()
	r.waterfall[s.ID] = s
}

// RemoveWaterfall unregisters a waterfall subscriber.
func (r *Registry) RemoveWaterfall(id uuid.UUID) {
	r.waterfallMu.Lock()
	defer r.waterfallMu.Unlock()
	delete(r.waterfall, id)
}

// EachWaterfall calls fn for every currently registered waterfall subscriber.
func (r *Registry) EachWaterfall(fn func(*subscriber.WaterfallSubscriber)) {
	r.waterfallMu.RLock()
	defer r.waterfallMu.RUnlock()
	for _, s := range r.waterfall {
		fn(s)
	}
}

// AddEvent registers an event subscriber.
func (r *Registry) AddEvent(s *subscriber.EventSubscriber) {
	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()
	r.events[s.ID] = s
}

// RemoveEvent unregisters an event subscriber.
func (r *Registry) RemoveEvent(id uuid.UUID) {
	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()
	delete(r.events, id)
}

// EachEvent calls fn for every currently registered event subscriber.
func (r *Registry) EachEvent(fn func(*subscriber.EventSubscriber)) {
	r.eventsMu.RLock()
	defer r.eventsMu.RUnlock()
	for _, s := range r.events {
		fn(s)
	}
}

// RecordChange records the latest state of a named signal (e.g. a
// user's tuned frequency) for the next periodic events broadcast.
func (r *Registry) RecordChange(name, jsonState string) {
	r.changesMu.Lock()
	defer r.changesMu.Unlock()
	r.changes[name] = jsonState
}

// DrainChanges returns and clears all pending signal changes, for the
// control plane's once-a-second broadcast (spec.md §4.6).
func (r *Registry) DrainChanges() map[string]string {
	r.changesMu.Lock()
	defer r.changesMu.Unlock()
	if len(r.changes) == 0 {
		return nil
	}
	out := r.changes
	r.changes = make(map[string]string)
	return out
}
