package shutdown

import "errors"

// Status classifies the outcome of a receive.
type Status int

const (
	Pending Status = iota
	Observed
	Lagged
	Closed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Observed:
		return "observed"
	case Lagged:
		return "lagged"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Stop reports whether s means the observer must stop. Lag and closure are
// degraded forms of the same signal.
func (s Status) Stop() bool {
	return s == Observed || s == Lagged || s == Closed
}

// Classify maps the error returned by TryRecv to a Status. ErrEmpty and any
// unknown error classify as Pending.
func Classify(err error) Status {
	var lagged *LaggedError
	switch {
	case err == nil:
		return Observed
	case errors.As(err, &lagged):
		return Lagged
	case errors.Is(err, ErrClosed):
		return Closed
	}
	return Pending
}
