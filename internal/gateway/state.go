package gateway

// state is the position of one logical call in the refresh-and-retry
// cycle. A call starts in stateInitial and always ends in stateDone; the
// only way back to sending is through stateAwaitingRefresh, which can be
// entered once.
type state int

const (
	stateInitial state = iota
	stateAwaitingRefresh
	stateRetried
	stateDone
)

func (s state) String() string {
	switch s {
	case stateInitial:
		return "initial"
	case stateAwaitingRefresh:
		return "awaiting_refresh"
	case stateRetried:
		return "retried"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// outcome is what happened in the step taken from a state.
type outcome int

const (
	// outcomeResponse is any response the caller should see as is.
	outcomeResponse outcome = iota
	// outcomeUnauthorized is a 401 on a call that carried a token.
	outcomeUnauthorized
	outcomeTransportFailure
	outcomeRefreshed
	outcomeRefreshRejected
	outcomeRefreshUnreachable
)

func (o outcome) String() string {
	switch o {
	case outcomeResponse:
		return "response"
	case outcomeUnauthorized:
		return "unauthorized"
	case outcomeTransportFailure:
		return "transport_failure"
	case outcomeRefreshed:
		return "refreshed"
	case outcomeRefreshRejected:
		return "refresh_rejected"
	case outcomeRefreshUnreachable:
		return "refresh_unreachable"
	default:
		return "unknown"
	}
}

func transition(s state, o outcome) state {
	switch s {
	case stateInitial:
		if o == outcomeUnauthorized {
			return stateAwaitingRefresh
		}
		return stateDone
	case stateAwaitingRefresh:
		if o == outcomeRefreshed {
			return stateRetried
		}
		return stateDone
	default:
		// A retried call is final whatever it returns.
		return stateDone
	}
}
