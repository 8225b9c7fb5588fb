package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity_String(t *testing.T) {
	e := Entity{ID: 42, Kind: KindActor, Name: "Worker"}
	assert.Equal(t, "Actor Worker#42", e.String())
}

func TestEntity_JSONSnakeCase(t *testing.T) {
	e := Entity{
		ID:            1 << 40,
		Kind:          KindTask,
		Name:          "t",
		CausalMessage: 7,
		Running:       true,
		Origin:        Origin{URI: "main.lang", StartLine: 10},
	}

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, "causal_message")
	assert.Contains(t, m, "name_id")
	origin := m["origin"].(map[string]any)
	assert.Contains(t, origin, "start_line")
	assert.Contains(t, origin, "char_length")
}

func TestMessageRecord_SelfSend(t *testing.T) {
	assert.True(t, MessageRecord{Sender: 3, Receiver: 3}.SelfSend())
	assert.False(t, MessageRecord{Sender: 3, Receiver: 4}.SelfSend())
}

func TestValidKinds(t *testing.T) {
	for _, k := range []Kind{KindActor, KindProcess, KindTask} {
		assert.True(t, ValidKinds[k], k)
	}
	assert.False(t, ValidKinds["Promise"])
}
