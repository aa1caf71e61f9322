package engine

// Lifecycle state of the engine.
type State int32

const (
	Idle State = iota
	Playing
	Paused
	// Reached only by closing the engine.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Command int

const (
	Play Command = iota
	Pause
)

func (c Command) String() string {
	switch c {
	case Play:
		return "play"
	case Pause:
		return "pause"
	default:
		return "unknown"
	}
}

// The state reached by applying command in state.
// Commands that do not apply leave the state unchanged.
func Transition(state State, command Command) State {
	switch {
	case state == Idle && command == Play:
		return Playing
	case state == Playing && command == Pause:
		return Paused
	case state == Paused && command == Play:
		return Playing
	default:
		return state
	}
}
