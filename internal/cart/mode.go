package cart

import "fmt"

// Mode selects how an upsert treats an existing line.
type Mode string

const (
	ModeIncrement Mode = "increment"
	ModeSet       Mode = "set"
)

// ParseMode converts raw input into a Mode. Empty input means increment.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case "", ModeIncrement:
		return ModeIncrement, nil
	case ModeSet:
		return ModeSet, nil
	default:
		return "", fmt.Errorf("invalid cart mode %q", value)
	}
}
