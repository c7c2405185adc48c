package guard

import "github.com/louisbranch/gatehouse/internal/services/shell/session"

// Status is the guard's view of a session state.
type Status uint8

const (
	StatusLoading Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

// String returns the status label used in logs and telemetry.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// StatusOf applies the gating predicate to a provider observation.
func StatusOf(state session.State) Status {
	switch {
	case state.Loading:
		return StatusLoading
	case state.Session == nil:
		return StatusUnauthenticated
	default:
		return StatusAuthenticated
	}
}

type action uint8

const (
	actionNone action = iota
	actionNavigate
)

// transitions lists the effect of every (from, to) pair. Navigation happens
// only on entry to StatusUnauthenticated.
var transitions = [3][3]action{
	StatusLoading: {
		StatusLoading:         actionNone,
		StatusUnauthenticated: actionNavigate,
		StatusAuthenticated:   actionNone,
	},
	StatusUnauthenticated: {
		StatusLoading:         actionNone,
		StatusUnauthenticated: actionNone,
		StatusAuthenticated:   actionNone,
	},
	StatusAuthenticated: {
		StatusLoading:         actionNone,
		StatusUnauthenticated: actionNavigate,
		StatusAuthenticated:   actionNone,
	},
}

func transition(from, to Status) action {
	if int(from) >= len(transitions) || int(to) >= len(transitions[from]) {
		return actionNone
	}
	return transitions[from][to]
}
