package graph

import (
	"fmt"
	"strings"

	"github.com/roach88/causeway/internal/ir"
)

// Node is a vertex of the causality graph: a single entity, or a group of
// entities sharing a name once the group is large enough.
type Node interface {
	// GroupSize is 1 for a single entity and the live member count for a group.
	GroupSize() int
	Running() bool
	Name() string
	Kind() ir.Kind

	// DataID identifies the underlying data element.
	DataID() string
	// ViewID identifies the on-screen representation.
	ViewID() string
	// Query selects every entity the node represents.
	Query() string

	// Position is the placement hint assigned at creation.
	Position() (x, y int)
}

// EntityNode is the node of a single entity.
type EntityNode struct {
	entity *ir.Entity
	group  *Group
}

func (n *EntityNode) GroupSize() int       { return 1 }
func (n *EntityNode) Running() bool        { return n.entity.Running }
func (n *EntityNode) Name() string         { return n.entity.Name }
func (n *EntityNode) Kind() ir.Kind        { return n.entity.Kind }
func (n *EntityNode) DataID() string       { return entityDataID(n.entity.ID) }
func (n *EntityNode) ViewID() string       { return entityDataID(n.entity.ID) + "-rect" }
func (n *EntityNode) Query() string        { return "#" + entityDataID(n.entity.ID) }
func (n *EntityNode) Position() (int, int) { return n.entity.X, n.entity.Y }

// Entity returns the entity behind the node.
func (n *EntityNode) Entity() *ir.Entity { return n.entity }

// CausalMessage returns the id of the message that created the entity.
func (n *EntityNode) CausalMessage() ir.MessageID { return n.entity.CausalMessage }

// GroupNode stands in for every member of a name group. It reads the
// group live, so members registered after materialization are included.
type GroupNode struct {
	group *Group
	x, y  int
}

func (n *GroupNode) GroupSize() int { return len(n.group.Members) }

// Running reports whether any member is still running.
func (n *GroupNode) Running() bool {
	for _, e := range n.group.Members {
		if e.Running {
			return true
		}
	}
	return false
}

func (n *GroupNode) Name() string         { return n.group.Name }
func (n *GroupNode) Kind() ir.Kind        { return n.group.Members[0].Kind }
func (n *GroupNode) DataID() string       { return groupDataID(n.group.ID) }
func (n *GroupNode) ViewID() string       { return groupDataID(n.group.ID) + "-rect" }
func (n *GroupNode) Position() (int, int) { return n.x, n.y }

// Query joins the selectors of all members, in registration order.
func (n *GroupNode) Query() string {
	parts := make([]string, len(n.group.Members))
	for i, e := range n.group.Members {
		parts[i] = "#" + entityDataID(e.ID)
	}
	return strings.Join(parts, ",")
}

// Group returns the group behind the node.
func (n *GroupNode) Group() *Group { return n.group }

func entityDataID(id ir.ActivityID) string {
	return fmt.Sprintf("a%d", uint64(id))
}

func groupDataID(id int) string {
	return fmt.Sprintf("ag%d", id)
}
