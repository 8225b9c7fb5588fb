package graph

import "github.com/roach88/causeway/internal/ir"

// NodeView is a detached copy of a Node.
type NodeView struct {
	DataID    string  `json:"data_id"`
	ViewID    string  `json:"view_id"`
	Name      string  `json:"name"`
	Kind      ir.Kind `json:"kind"`
	GroupSize int     `json:"group_size"`
	Running   bool    `json:"running"`
	Query     string  `json:"query"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
}

// LinkView is a detached copy of a Link, with nodes referenced by data id.
type LinkView struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Left         bool   `json:"left"`
	Right        bool   `json:"right"`
	MessageCount int    `json:"message_count"`
	Creation     bool   `json:"creation"`
}

// Snapshot is a point-in-time copy of the graph, safe to share.
type Snapshot struct {
	Nodes           []NodeView `json:"nodes"`
	Links           []LinkView `json:"links"`
	MaxMessageSends int        `json:"max_message_sends"`
	Entities        int        `json:"entities"`
	Groups          int        `json:"groups"`
	Messages        int        `json:"messages"`
}

// ViewOf copies a node.
func ViewOf(n Node) NodeView {
	x, y := n.Position()
	return NodeView{
		DataID:    n.DataID(),
		ViewID:    n.ViewID(),
		Name:      n.Name(),
		Kind:      n.Kind(),
		GroupSize: n.GroupSize(),
		Running:   n.Running(),
		Query:     n.Query(),
		X:         x,
		Y:         y,
	}
}

// Snapshot copies the current graph into plain values.
func (m *Model) Snapshot() Snapshot {
	nodes := m.Nodes()
	links := m.Links()

	s := Snapshot{
		Nodes:           make([]NodeView, len(nodes)),
		Links:           make([]LinkView, len(links)),
		MaxMessageSends: m.maxSends,
		Entities:        m.registry.Len(),
		Groups:          len(m.registry.groupOrder),
		Messages:        len(m.messages),
	}
	for i, n := range nodes {
		s.Nodes[i] = ViewOf(n)
	}
	for i, l := range links {
		s.Links[i] = LinkView{
			Source:       l.Source.DataID(),
			Target:       l.Target.DataID(),
			Left:         l.Left,
			Right:        l.Right,
			MessageCount: l.MessageCount,
			Creation:     l.Creation,
		}
	}
	return s
}

// Link returns the first link from source to target with the given
// creation flag.
func (s Snapshot) Link(source, target string, creation bool) (LinkView, bool) {
	for _, l := range s.Links {
		if l.Source == source && l.Target == target && l.Creation == creation {
			return l, true
		}
	}
	return LinkView{}, false
}

// Node returns the node with the given data id.
func (s Snapshot) Node(dataID string) (NodeView, bool) {
	for _, n := range s.Nodes {
		if n.DataID == dataID {
			return n, true
		}
	}
	return NodeView{}, false
}
