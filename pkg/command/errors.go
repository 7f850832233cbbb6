package command

import "errors"

var (
	ErrNilStore     = errors.New("event store cannot be nil")
	ErrNilCodec     = errors.New("codec cannot be nil")
	ErrNilAggregate = errors.New("aggregate cannot be nil")
	ErrNilHandler   = errors.New("handler cannot be nil")
)
