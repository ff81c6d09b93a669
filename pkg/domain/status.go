package domain

// Status is the coarse lifecycle state of a session.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusProcessing   Status = "processing"
	StatusWaitingInput Status = "waiting_input"
	StatusComplete     Status = "complete"
	StatusError        Status = "error"
)

// Terminal reports whether no run is in flight for the status.
func (s Status) Terminal() bool {
	return s != StatusProcessing
}
