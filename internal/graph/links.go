package graph

import "github.com/roach88/causeway/internal/ir"

// Link is a directed edge between two resolved nodes.
//
// A message link counts the sends between the nodes; a creation link
// counts the entities the source caused to be created. Links are derived,
// never stored: every call to Links recomputes them.
type Link struct {
	Source       Node
	Target       Node
	Left         bool
	Right        bool
	MessageCount int
	Creation     bool
}

type linkKey struct {
	source string
	target string
}

// linkSet accumulates links keyed by resolved (source, target) data ids.
type linkSet struct {
	index map[linkKey]int
}

func newLinkSet() *linkSet {
	return &linkSet{index: make(map[linkKey]int)}
}

// add creates the link on first sight of the pair and sums counts after.
func (s *linkSet) add(links []Link, source, target Node, creation bool, count int) []Link {
	key := linkKey{source: source.DataID(), target: target.DataID()}
	if i, ok := s.index[key]; ok {
		links[i].MessageCount += count
		return links
	}
	s.index[key] = len(links)
	return append(links, Link{
		Source:       source,
		Target:       target,
		Left:         false,
		Right:        true,
		Creation:     creation,
		MessageCount: count,
	})
}

// Links recomputes all links from the current registry and tally.
//
// Message links come first, in first-seen sender/receiver order, then
// creation links in entity registration order. Pairs whose sender or
// receiver is not registered yet are skipped; they appear on a later call
// once the entity is known. The creator of an entity is the sender of its
// causal message.
func (m *Model) Links() []Link {
	var links []Link

	messages := newLinkSet()
	m.tally.each(func(sender, receiver ir.ActivityID, count int) {
		if count == 0 {
			return
		}
		src, ok := m.registry.Resolve(sender)
		if !ok {
			return
		}
		dst, ok := m.registry.Resolve(receiver)
		if !ok {
			return
		}
		links = messages.add(links, src, dst, false, count)
	})

	creations := newLinkSet()
	for _, n := range m.registry.order {
		msg, ok := m.messages[n.CausalMessage()]
		if !ok {
			continue
		}
		creator, ok := m.registry.Resolve(msg.Sender)
		if !ok {
			continue
		}
		target, _ := m.registry.Resolve(n.entity.ID)
		links = creations.add(links, creator, target, true, 1)
	}

	return links
}
