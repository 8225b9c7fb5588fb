package trace

// ParamType is the leading byte of an encoded message parameter.
type ParamType byte

const (
	ParamFalse      ParamType = 0
	ParamTrue       ParamType = 1
	ParamLong       ParamType = 2
	ParamDouble     ParamType = 3
	ParamPromise    ParamType = 4
	ParamResolver   ParamType = 5
	ParamObjectType ParamType = 6
	ParamString     ParamType = 7
)

const maxParamLength = 9

// ParamLength returns the total encoded length of a parameter, type byte
// included. Values are never interpreted; unknown types occupy one byte.
func ParamLength(typ byte) int {
	switch ParamType(typ) {
	case ParamFalse, ParamTrue:
		return 1
	case ParamLong, ParamDouble, ParamPromise, ParamResolver:
		return 9
	case ParamObjectType:
		return 3
	case ParamString:
		return 1
	default:
		return 1
	}
}
