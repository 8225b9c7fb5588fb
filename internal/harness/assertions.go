package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/causeway/internal/graph"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Graph    graph.Snapshot // Final graph for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nNodes:\n")
	for _, n := range e.Graph.Nodes {
		fmt.Fprintf(&buf, "  %s %s %q (size %d)\n", n.DataID, n.Kind, n.Name, n.GroupSize)
	}
	if len(e.Graph.Links) > 0 {
		fmt.Fprintf(&buf, "Links:\n")
		for _, l := range e.Graph.Links {
			kind := "messages"
			if l.Creation {
				kind = "creation"
			}
			fmt.Fprintf(&buf, "  %s -> %s %s (count %d)\n", l.Source, l.Target, kind, l.MessageCount)
		}
	}
	return buf.String()
}

func assertNodeCount(result *Result, a Assertion) error {
	if got := len(result.Graph.Nodes); got != a.Count {
		return &AssertionError{
			Type:     AssertNodeCount,
			Expected: fmt.Sprintf("%d nodes", a.Count),
			Actual:   fmt.Sprintf("%d nodes", got),
			Graph:    result.Graph,
		}
	}
	return nil
}

// assertGroup checks a name group's size, counting members shown
// individually as well as collapsed group nodes.
func assertGroup(result *Result, a Assertion) error {
	size, collapsed := 0, false
	for _, n := range result.Graph.Nodes {
		if n.Name != a.Name {
			continue
		}
		size += n.GroupSize
		if strings.HasPrefix(n.DataID, "ag") {
			collapsed = true
		}
	}

	fail := func(expected, actual string) error {
		return &AssertionError{Type: AssertGroup, Expected: expected, Actual: actual, Graph: result.Graph}
	}
	if a.Size > 0 && size != a.Size {
		return fail(fmt.Sprintf("group %q with %d members", a.Name, a.Size),
			fmt.Sprintf("%d members", size))
	}
	if a.Collapsed != nil && *a.Collapsed != collapsed {
		return fail(fmt.Sprintf("group %q collapsed=%t", a.Name, *a.Collapsed),
			fmt.Sprintf("collapsed=%t", collapsed))
	}
	if size == 0 {
		return fail(fmt.Sprintf("group %q", a.Name), "no such group")
	}
	return nil
}

func assertLink(result *Result, a Assertion) error {
	l, ok := result.Graph.Link(a.Source, a.Target, a.Creation)
	fail := func(expected, actual string) error {
		return &AssertionError{Type: AssertLink, Expected: expected, Actual: actual, Graph: result.Graph}
	}
	desc := linkDesc(a)
	if !ok {
		return fail(desc, "no such link")
	}
	if a.MessageCount != nil && l.MessageCount != *a.MessageCount {
		return fail(fmt.Sprintf("%s with %d messages", desc, *a.MessageCount),
			fmt.Sprintf("%d messages", l.MessageCount))
	}
	if a.Left != nil && l.Left != *a.Left {
		return fail(fmt.Sprintf("%s left=%t", desc, *a.Left), fmt.Sprintf("left=%t", l.Left))
	}
	if a.Right != nil && l.Right != *a.Right {
		return fail(fmt.Sprintf("%s right=%t", desc, *a.Right), fmt.Sprintf("right=%t", l.Right))
	}
	return nil
}

func assertNoLink(result *Result, a Assertion) error {
	if _, ok := result.Graph.Link(a.Source, a.Target, a.Creation); ok {
		return &AssertionError{
			Type:     AssertNoLink,
			Expected: "no " + linkDesc(a),
			Actual:   "link present",
			Graph:    result.Graph,
		}
	}
	return nil
}

func linkDesc(a Assertion) string {
	kind := "message link"
	if a.Creation {
		kind = "creation link"
	}
	return fmt.Sprintf("%s %s -> %s", kind, a.Source, a.Target)
}

func assertNewEntities(result *Result, a Assertion) error {
	got := result.Chunks[a.Chunk-1].Entities
	want := a.IDs
	if want == nil {
		want = []uint64{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertNewEntities,
			Expected: fmt.Sprintf("chunk %d creates %v", a.Chunk, want),
			Actual:   fmt.Sprintf("%v", got),
			Graph:    result.Graph,
		}
	}
	return nil
}

func assertDecodeError(result *Result, a Assertion) error {
	c := result.Chunks[a.Chunk-1]
	if c.Error == "" || (a.Code != "" && c.Code != a.Code) {
		expected := fmt.Sprintf("chunk %d fails to decode", a.Chunk)
		if a.Code != "" {
			expected += " with " + a.Code
		}
		actual := "decoded"
		if c.Error != "" {
			actual = c.Code
		}
		return &AssertionError{Type: AssertDecodeError, Expected: expected, Actual: actual, Graph: result.Graph}
	}
	return nil
}

func assertMaxMessageSends(result *Result, a Assertion) error {
	if got := result.Graph.MaxMessageSends; got != a.Count {
		return &AssertionError{
			Type:     AssertMaxMessageSends,
			Expected: fmt.Sprintf("%d", a.Count),
			Actual:   fmt.Sprintf("%d", got),
			Graph:    result.Graph,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertNodeCount:
			err = assertNodeCount(result, a)
		case AssertGroup:
			err = assertGroup(result, a)
		case AssertLink:
			err = assertLink(result, a)
		case AssertNoLink:
			err = assertNoLink(result, a)
		case AssertNewEntities, AssertDecodeError:
			if a.Chunk < 1 || a.Chunk > len(result.Chunks) {
				err = fmt.Errorf("assertion[%d]: chunk %d out of range", i, a.Chunk)
			} else if a.Type == AssertNewEntities {
				err = assertNewEntities(result, a)
			} else {
				err = assertDecodeError(result, a)
			}
		case AssertMaxMessageSends:
			err = assertMaxMessageSends(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
