package domain

// Status is the lifecycle state of a persisted token.
// Transitions are forward-only: new -> kept | deleted.
type Status string

const (
	StatusNew     Status = "new"
	StatusKept    Status = "kept"
	StatusDeleted Status = "deleted"
)

// String returns the string representation of Status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s Status) IsValid() bool {
	return s == StatusNew || s == StatusKept || s == StatusDeleted
}

// IsTerminal reports whether no further automatic transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusKept || s == StatusDeleted
}
