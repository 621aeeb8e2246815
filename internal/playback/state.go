package playback

// State is the engine lifecycle state
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateStreaming
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateStreaming:
		return "streaming"
	case StateTornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
