package types

// State is the lifecycle state of a sell offer or buy order. States are
// persisted by tag, never by ordinal, so new states can be added without
// breaking stored data.
type State string

const (
	// StateDraft is a configured but unlisted/unescrowed entity. Only
	// drafts can be edited.
	StateDraft State = "draft"
	// StateActive is listed on the book with nothing filled yet.
	StateActive State = "active"
	// StatePartial is listed with some quantity already traded.
	StatePartial State = "partial"
	// StateCompleted means quantityRemaining reached zero. Terminal.
	StateCompleted State = "completed"
	// StateCancelled was withdrawn by its owner. Terminal.
	StateCancelled State = "cancelled"
	// StateExpired was swept after its expiration timestamp. Terminal.
	StateExpired State = "expired"
)

// IsTerminal reports whether the state can never change again.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateExpired:
		return true
	}
	return false
}

func (s State) String() string {
	return string(s)
}
