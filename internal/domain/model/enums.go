package model

// BreachStatus represents what the breach scanners currently know about a
// credential.
type BreachStatus string

const (
	BreachStatusSafe        BreachStatus = "safe"
	BreachStatusCompromised BreachStatus = "compromised"
	BreachStatusUnknown     BreachStatus = "unknown"
)

// Valid reports whether s is one of the known breach statuses.
func (s BreachStatus) Valid() bool {
	switch s {
	case BreachStatusSafe, BreachStatusCompromised, BreachStatusUnknown:
		return true
	}
	return false
}
