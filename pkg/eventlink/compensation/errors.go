package compensation

import "fmt"

// CompensationFailure describes a compensation that could not be applied.
type CompensationFailure struct {
	TransactionID    string
	CompensationType string
	PostID           string
	Err              error
}

func (e *CompensationFailure) Error() string {
	return fmt.Sprintf("compensation %s (%s) on post %s: %v",
		e.TransactionID, e.CompensationType, e.PostID, e.Err)
}

func (e *CompensationFailure) Unwrap() error {
	return e.Err
}
