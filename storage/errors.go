package storage

import "fmt"

// OpError is the typed failure every gateway operation returns. The store
// never swallows a database error; callers decide whether to degrade
// (classification fails open) or count the item as failed (reconciliation).
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}
