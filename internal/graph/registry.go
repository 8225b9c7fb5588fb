package graph

import (
	"io"
	"log/slog"

	"github.com/roach88/causeway/internal/ir"
)

// DefaultGroupThreshold is the member count a name group must exceed
// before it is shown as a single GroupNode.
const DefaultGroupThreshold = 4

// Placement grid spacing for position hints.
const (
	horizontalDistance = 100
	verticalDistance   = 100
)

// Group is the set of entities sharing a name, in registration order.
// Groups never lose members.
type Group struct {
	ID      int
	Name    string
	Members []*ir.Entity

	node *GroupNode
}

// Materialized reports whether the group is represented by a GroupNode.
func (g *Group) Materialized() bool {
	return g.node != nil
}

// Registry indexes entities by identity and groups them by name.
//
// There is no removal. A group's GroupNode is created at most once, the
// first time the group is needed while larger than the threshold, and from
// then on replaces the members in every query.
type Registry struct {
	threshold int
	logger    *slog.Logger

	nodes      map[ir.ActivityID]*EntityNode
	order      []*EntityNode
	groups     map[string]*Group
	groupOrder []*Group
}

// NewRegistry creates an empty registry. threshold <= 0 selects
// DefaultGroupThreshold.
func NewRegistry(threshold int, logger *slog.Logger) *Registry {
	if threshold <= 0 {
		threshold = DefaultGroupThreshold
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		threshold: threshold,
		logger:    logger,
		nodes:     make(map[ir.ActivityID]*EntityNode),
		groups:    make(map[string]*Group),
	}
}

// Register adds e to its name group and assigns its placement hint from the
// group's size and the number of groups seen so far. It returns false if an
// entity with the same id is already registered; the first one wins.
func (r *Registry) Register(e *ir.Entity) bool {
	if _, exists := r.nodes[e.ID]; exists {
		r.logger.Warn("duplicate entity ignored", "id", uint64(e.ID), "name", e.Name)
		return false
	}

	numGroups := len(r.groups)
	g, ok := r.groups[e.Name]
	if !ok {
		g = &Group{ID: numGroups, Name: e.Name}
		r.groups[e.Name] = g
		r.groupOrder = append(r.groupOrder, g)
	}
	g.Members = append(g.Members, e)

	e.X = horizontalDistance + horizontalDistance*len(g.Members)
	e.Y = verticalDistance * numGroups

	n := &EntityNode{entity: e, group: g}
	r.nodes[e.ID] = n
	r.order = append(r.order, n)
	return true
}

// Resolve returns the node that currently represents the entity: its
// group's GroupNode if the group is materialized (materializing it now if
// it has grown past the threshold), else the entity's own node.
//
// ok is false if the entity is not known yet. Callers treat that as a race
// between message and creation order, not as an error.
func (r *Registry) Resolve(id ir.ActivityID) (Node, bool) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, false
	}
	if gn := r.groupNode(n.group); gn != nil {
		return gn, true
	}
	return n, true
}

// Nodes returns every node in first-seen order. A materialized group
// appears once, where its first member would have been.
func (r *Registry) Nodes() []Node {
	nodes := make([]Node, 0, len(r.order))
	seen := make(map[*Group]bool)
	for _, n := range r.order {
		gn := r.groupNode(n.group)
		if gn == nil {
			nodes = append(nodes, n)
			continue
		}
		if !seen[n.group] {
			seen[n.group] = true
			nodes = append(nodes, gn)
		}
	}
	return nodes
}

// Entity returns the registered entity with the given id.
func (r *Registry) Entity(id ir.ActivityID) (*ir.Entity, bool) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, false
	}
	return n.entity, true
}

// Entities returns all entities in registration order.
func (r *Registry) Entities() []*ir.Entity {
	out := make([]*ir.Entity, len(r.order))
	for i, n := range r.order {
		out[i] = n.entity
	}
	return out
}

// Groups returns all groups in discovery order.
func (r *Registry) Groups() []*Group {
	return append([]*Group(nil), r.groupOrder...)
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	return len(r.order)
}

// Threshold returns the group threshold in effect.
func (r *Registry) Threshold() int {
	return r.threshold
}

// groupNode returns g's GroupNode, materializing it if g has grown past the
// threshold. It returns nil while g is small enough to show its members.
func (r *Registry) groupNode(g *Group) *GroupNode {
	if g.node != nil {
		return g.node
	}
	if len(g.Members) <= r.threshold {
		return nil
	}

	g.node = &GroupNode{
		group: g,
		x:     horizontalDistance + horizontalDistance*len(g.Members),
		y:     verticalDistance * len(r.groups),
	}
	r.logger.Debug("group materialized", "group", g.ID, "name", g.Name, "members", len(g.Members))
	return g.node
}
