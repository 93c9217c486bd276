package events

import (
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

const defaultDedupeCapacity = 4096

type recordKey struct {
	collection domain.Collection
	id         string
}

// Deduper filters an at-least-once, unordered stream of change events. It
// keeps the newest version seen per record and a bounded window of event ids.
type Deduper struct {
	mu       sync.Mutex
	versions map[recordKey]time.Time
	seen     map[string]struct{}
	order    []string
	capacity int
}

// NewDeduper creates a deduper remembering up to capacity event ids.
func NewDeduper(capacity int) *Deduper {
	if capacity <= 0 {
		capacity = defaultDedupeCapacity
	}
	return &Deduper{
		versions: make(map[recordKey]time.Time),
		seen:     make(map[string]struct{}, capacity),
		capacity: capacity,
	}
}

// Accept reports whether event should be processed. Repeated event ids and
// versions not newer than the latest seen for the record are rejected.
func (d *Deduper) Accept(event domain.ChangeEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if event.ID != "" {
		if _, dup := d.seen[event.ID]; dup {
			return false
		}
		d.remember(event.ID)
	}

	key := recordKey{collection: event.Collection, id: event.RecordID}
	if latest, ok := d.versions[key]; ok && !event.Version.After(latest) {
		return false
	}
	d.versions[key] = event.Version
	return true
}

func (d *Deduper) remember(id string) {
	if len(d.order) >= d.capacity {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
}
