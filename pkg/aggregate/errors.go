package aggregate

import "errors"

var (
	ErrNilAggregate = errors.New("aggregate cannot be nil")
)
