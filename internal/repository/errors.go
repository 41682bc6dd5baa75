package repository

import (
	"errors"
	"fmt"
)

// ErrStatusChanged is returned when a conditional status update finds the row
// in a different status than expected.
var ErrStatusChanged = errors.New("request status changed concurrently")

// SlotFullError reports a slot that has no remaining capacity.
type SlotFullError struct {
	Count    int
	Capacity int
}

func (e *SlotFullError) Error() string {
	return fmt.Sprintf("slot full: %d of %d taken", e.Count, e.Capacity)
}
