package xcm

import (
	"errors"
	"fmt"

	"github.com/EgorPopelyaev/polkadot/location"
)

// Send errors
var (
	ErrCannotReachDestination = errors.New("cannot reach destination")
	ErrUnroutable             = errors.New("unroutable message")
	ErrTransport              = errors.New("transport error")
)

// Execution errors
var (
	ErrEmptyMessage        = errors.New("empty message")
	ErrTooManyInstructions = errors.New("too many instructions")
	ErrWeightLimitReached  = errors.New("weight limit reached")
	ErrBadOrigin           = errors.New("bad origin")
	ErrInvalidLocation     = errors.New("invalid location")
	ErrTrap                = errors.New("trapped")
	ErrUnhandled           = errors.New("unhandled instruction")
)

// CannotReachDestinationError hands the untouched destination and message
// back to the caller so that another router can be tried.
type CannotReachDestinationError struct {
	Destination location.Location
	Message     Xcm
}

// CannotReachDestination builds the error from copies of dest and msg.
func CannotReachDestination(dest location.Location, msg Xcm) *CannotReachDestinationError {
	return &CannotReachDestinationError{
		Destination: dest.Clone(),
		Message:     msg.Clone(),
	}
}

func (e *CannotReachDestinationError) Error() string {
	return fmt.Sprintf("cannot reach destination %s", e.Destination)
}

// Is matches ErrCannotReachDestination.
func (e *CannotReachDestinationError) Is(target error) bool {
	return target == ErrCannotReachDestination
}

// TransportError wraps a failure reported by a transport while moving a
// message toward a network.
type TransportError struct {
	Network location.NetworkID
	Err     error
}

func (e *TransportError) Error() string {
	if e.Network == "" {
		return fmt.Sprintf("transport failed: %v", e.Err)
	}
	return fmt.Sprintf("transport to %s failed: %v", e.Network, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
