package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a trace ingest scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is an optional fixed session id. Defaults to
	// "test-session-default" so golden output is deterministic.
	Session string `yaml:"session,omitempty"`

	// GroupThreshold overrides the registry group threshold.
	GroupThreshold int `yaml:"group_threshold,omitempty"`

	// Strings are registered before the first chunk.
	Strings map[uint32]string `yaml:"strings,omitempty"`

	// Chunks are fed in order, one Feed call each.
	Chunks []ChunkSpec `yaml:"chunks"`

	// Assertions validate the outcomes and the final graph.
	Assertions []Assertion `yaml:"assertions"`
}

// ChunkSpec describes one chunk. Exactly one of Records and Hex is set.
type ChunkSpec struct {
	// Strings are registered immediately before this chunk.
	Strings map[uint32]string `yaml:"strings,omitempty"`

	Records []RecordSpec `yaml:"records,omitempty"`

	// Hex is a raw payload; whitespace is ignored.
	Hex string `yaml:"hex,omitempty"`
}

// RecordSpec describes one record. Exactly one field is set.
type RecordSpec struct {
	Actor   *CreationSpec `yaml:"actor,omitempty"`
	Process *CreationSpec `yaml:"process,omitempty"`
	Task    *CreationSpec `yaml:"task,omitempty"`

	Mailbox      *MailboxSpec `yaml:"mailbox,omitempty"`
	MailboxContd *MailboxSpec `yaml:"mailbox_contd,omitempty"`
	Send         *SendSpec    `yaml:"send,omitempty"`

	PromiseResolution *ParamSpec `yaml:"promise_resolution,omitempty"`

	// Lifecycle names a fixed-size record whose content is ignored, such
	// as "thread" or "task_join".
	Lifecycle string `yaml:"lifecycle,omitempty"`

	// Raw is a hex fragment appended verbatim.
	Raw string `yaml:"raw,omitempty"`
}

// CreationSpec describes an actor, process or task creation.
type CreationSpec struct {
	ID     uint64 `yaml:"id"`
	Causal uint64 `yaml:"causal,omitempty"`
	Name   uint16 `yaml:"name"`
	File   uint16 `yaml:"file,omitempty"`
	Line   uint16 `yaml:"line,omitempty"`
	Column uint16 `yaml:"column,omitempty"`
	Length uint16 `yaml:"length,omitempty"`
}

// MailboxSpec describes a mailbox or mailbox continuation record.
type MailboxSpec struct {
	Msg      uint64 `yaml:"msg"`
	Receiver uint64 `yaml:"receiver"`
}

// SendSpec describes a message send.
type SendSpec struct {
	Sender     uint64      `yaml:"sender"`
	Prefix     bool        `yaml:"prefix,omitempty"`
	Timestamps bool        `yaml:"timestamps,omitempty"`
	Params     []ParamSpec `yaml:"params,omitempty"`

	// Repeat emits the send this many times. Zero means once.
	Repeat int `yaml:"repeat,omitempty"`
}

// ParamSpec describes a parameter.
type ParamSpec struct {
	Type  uint8  `yaml:"type"`
	Value uint64 `yaml:"value,omitempty"`
}

// Assertion validates chunk outcomes or the final graph.
type Assertion struct {
	// Type specifies the assertion type:
	// - "node_count": number of visible nodes equals Count
	// - "group": name group Name has Size members (and Collapsed, if set)
	// - "link": a link Source → Target exists with the given flags
	// - "no_link": no link Source → Target of the given kind exists
	// - "new_entities": chunk Chunk created exactly IDs
	// - "decode_error": chunk Chunk failed with Code (any code if empty)
	// - "max_message_sends": the busiest link carries Count messages
	Type string `yaml:"type"`

	Count int    `yaml:"count,omitempty"`
	Name  string `yaml:"name,omitempty"`
	Size  int    `yaml:"size,omitempty"`

	// Collapsed, if set, requires the group to be (or not be) shown as a
	// single group node.
	Collapsed *bool `yaml:"collapsed,omitempty"`

	// Source and Target are node data ids such as "a1" or "ag0".
	Source   string `yaml:"source,omitempty"`
	Target   string `yaml:"target,omitempty"`
	Creation bool   `yaml:"creation,omitempty"`

	// MessageCount, Left and Right are checked on "link" when set.
	MessageCount *int  `yaml:"message_count,omitempty"`
	Left         *bool `yaml:"left,omitempty"`
	Right        *bool `yaml:"right,omitempty"`

	// Chunk is the 1-based chunk index.
	Chunk int      `yaml:"chunk,omitempty"`
	IDs   []uint64 `yaml:"ids,omitempty"`
	Code  string   `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertNodeCount       = "node_count"
	AssertGroup           = "group"
	AssertLink            = "link"
	AssertNoLink          = "no_link"
	AssertNewEntities     = "new_entities"
	AssertDecodeError     = "decode_error"
	AssertMaxMessageSends = "max_message_sends"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Chunks) == 0 {
		return fmt.Errorf("chunks list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.GroupThreshold < 0 {
		return fmt.Errorf("group_threshold must be positive")
	}

	for i, c := range s.Chunks {
		if (len(c.Records) == 0) == (c.Hex == "") {
			return fmt.Errorf("chunks[%d]: exactly one of records and hex is required", i)
		}
		for j, r := range c.Records {
			if n := r.fieldsSet(); n != 1 {
				return fmt.Errorf("chunks[%d].records[%d]: exactly one record kind is required, got %d", i, j, n)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Chunks)); err != nil {
			return err
		}
	}
	return nil
}

func (r RecordSpec) fieldsSet() int {
	n := 0
	for _, set := range []bool{
		r.Actor != nil, r.Process != nil, r.Task != nil,
		r.Mailbox != nil, r.MailboxContd != nil, r.Send != nil,
		r.PromiseResolution != nil, r.Lifecycle != "", r.Raw != "",
	} {
		if set {
			n++
		}
	}
	return n
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, chunks int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertNodeCount, AssertMaxMessageSends:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertGroup:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for group", index)
		}
	case AssertLink, AssertNoLink:
		if a.Source == "" || a.Target == "" {
			return fmt.Errorf("assertions[%d]: source and target are required for %s", index, a.Type)
		}
	case AssertNewEntities, AssertDecodeError:
		if a.Chunk < 1 || a.Chunk > chunks {
			return fmt.Errorf("assertions[%d]: chunk must be between 1 and %d for %s", index, chunks, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
