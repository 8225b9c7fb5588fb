package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParamLength_Table(t *testing.T) {
	cases := map[ParamType]int{
		ParamFalse:      1,
		ParamTrue:       1,
		ParamLong:       9,
		ParamDouble:     9,
		ParamPromise:    9,
		ParamResolver:   9,
		ParamObjectType: 3,
		ParamString:     1,
	}
	for typ, want := range cases {
		assert.Equal(t, want, ParamLength(byte(typ)), "type %d", typ)
	}
}

// Property: unknown parameter types occupy exactly one byte.
func TestProperty_UnknownParamsAreOneByte(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		typ := rapid.IntRange(8, 255).Draw(rt, "type")
		if got := ParamLength(byte(typ)); got != 1 {
			rt.Fatalf("ParamLength(%d) = %d, want 1", typ, got)
		}
	})
}

// Property: the encoder writes exactly ParamLength bytes per parameter.
func TestProperty_EncoderMatchesParamLength(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := Param{
			Type:  ParamType(rapid.IntRange(0, 255).Draw(rt, "type")),
			Value: rapid.Uint64().Draw(rt, "value"),
		}
		enc := NewEncoder()
		enc.param(p)
		if enc.Len() != ParamLength(byte(p.Type)) {
			rt.Fatalf("encoded %d bytes for type %d, want %d", enc.Len(), p.Type, ParamLength(byte(p.Type)))
		}
	})
}
