package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/causeway/internal/graph"
)

// GoldenSnapshot captures the observable outcome of a scenario run.
type GoldenSnapshot struct {
	Scenario string         `json:"scenario"`
	Session  string         `json:"session"`
	Chunks   []ChunkOutcome `json:"chunks"`
	Graph    graph.Snapshot `json:"graph"`
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s GoldenSnapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Snapshot builds the golden snapshot of a result.
func Snapshot(name string, result *Result) GoldenSnapshot {
	return GoldenSnapshot{
		Scenario: name,
		Session:  result.Session,
		Chunks:   result.Chunks,
		Graph:    result.Graph,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
