package testutil

import (
	"context"
	"sync"

	"github.com/roach88/causeway/internal/ir"
)

// Notification is one NewEntities call seen by a RecordingController.
type Notification struct {
	Seq      int64
	Entities []ir.Entity
}

// RecordingController records every notification it receives. It satisfies
// engine.Controller.
type RecordingController struct {
	mu    sync.Mutex
	calls []Notification
}

// NewEntities records the call.
func (c *RecordingController) NewEntities(_ context.Context, seq int64, entities []ir.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]ir.Entity, len(entities))
	copy(cp, entities)
	c.calls = append(c.calls, Notification{Seq: seq, Entities: cp})
}

// Calls returns a copy of the recorded notifications.
func (c *RecordingController) Calls() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.calls))
	copy(out, c.calls)
	return out
}

// IDs returns the entity ids of every notification, flattened in order.
func (c *RecordingController) IDs() []ir.ActivityID {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []ir.ActivityID
	for _, n := range c.calls {
		for _, e := range n.Entities {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
