// Package console provides sources of raw server log lines.
package console

import (
	"context"
	"errors"
)

// Receiver handles incoming raw log message lines.
type Receiver interface {
	Send(line string)
}

// Source is responsible for setting up and sending console log messages
// to a Receiver.
type Source interface {
	Open(ctx context.Context) error
	Start(ctx context.Context, receiver Receiver)
	Close(ctx context.Context) error
}

var (
	ErrOpen  = errors.New("failed to open console source")
	ErrClose = errors.New("failed to close log source")
)
