package orders

type State string

const (
	StatePending   State = "PENDIENTE"
	StateCompleted State = "COMPLETADO"
	StateCancelled State = "CANCELADO"
)

var validStates = map[State]bool{
	StatePending:   true,
	StateCompleted: true,
	StateCancelled: true,
}

// Any state may follow any other; only membership is checked.
func (s State) Valid() bool { return validStates[s] }
