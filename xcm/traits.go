package xcm

import (
	"context"
	"errors"
	"fmt"

	"github.com/EgorPopelyaev/polkadot/location"
)

// Weight is the execution cost of a message.
type Weight uint64

// SendXcm sends a message toward a destination relative to the sender.
//
// A router that cannot handle dest must fail with a
// *CannotReachDestinationError so that the caller can try another one.
type SendXcm interface {
	SendXcm(ctx context.Context, dest location.Location, msg Xcm) error
}

// SendXcmFunc adapts a function to SendXcm.
type SendXcmFunc func(ctx context.Context, dest location.Location, msg Xcm) error

// SendXcm calls f.
func (f SendXcmFunc) SendXcm(ctx context.Context, dest location.Location, msg Xcm) error {
	return f(ctx, dest, msg)
}

// ExportXcm moves an already wrapped message toward a remote network.
// Implementations must be safe for concurrent use if the host sends
// concurrently.
type ExportXcm interface {
	ExportXcm(ctx context.Context, network location.NetworkID, channel uint32, dest location.Junctions, msg Xcm) error
}

// ExportXcmFunc adapts a function to ExportXcm.
type ExportXcmFunc func(ctx context.Context, network location.NetworkID, channel uint32, dest location.Junctions, msg Xcm) error

// ExportXcm calls f.
func (f ExportXcmFunc) ExportXcm(ctx context.Context, network location.NetworkID, channel uint32, dest location.Junctions, msg Xcm) error {
	return f(ctx, network, channel, dest, msg)
}

// Prepared is a message that passed validation and has a known weight.
type Prepared interface {
	WeightOf() Weight
	Message() Xcm
}

// ExecuteXcm validates and executes messages locally.
type ExecuteXcm interface {
	Prepare(msg Xcm) (Prepared, error)
	Execute(ctx context.Context, origin location.Location, pre Prepared, weightCredit Weight) Outcome
}

// OutcomeKind classifies an execution result.
type OutcomeKind uint8

const (
	// OutcomeComplete means every instruction ran
	OutcomeComplete OutcomeKind = iota

	// OutcomeIncomplete means execution stopped part way
	OutcomeIncomplete

	// OutcomeError means nothing was executed
	OutcomeError
)

// String returns the string representation of OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeComplete:
		return "complete"
	case OutcomeIncomplete:
		return "incomplete"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the result of Execute.
type Outcome struct {
	Kind OutcomeKind
	Used Weight
	Err  error
}

// Complete reports full execution.
func Complete(used Weight) Outcome {
	return Outcome{Kind: OutcomeComplete, Used: used}
}

// Incomplete reports execution that stopped with err after using weight.
func Incomplete(used Weight, err error) Outcome {
	return Outcome{Kind: OutcomeIncomplete, Used: used, Err: err}
}

// Error reports execution that never started.
func Error(err error) Outcome {
	return Outcome{Kind: OutcomeError, Err: err}
}

// IsComplete reports whether every instruction ran.
func (o Outcome) IsComplete() bool {
	return o.Kind == OutcomeComplete
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s(%d): %v", o.Kind, o.Used, o.Err)
	}
	return fmt.Sprintf("%s(%d)", o.Kind, o.Used)
}

// Routers tries each router in order. A router failing with
// CannotReachDestination passes the original destination and message on to
// the next one; any other error ends the attempt.
type Routers []SendXcm

// SendXcm implements SendXcm.
func (rs Routers) SendXcm(ctx context.Context, dest location.Location, msg Xcm) error {
	var last error = CannotReachDestination(dest, msg)
	for _, r := range rs {
		err := r.SendXcm(ctx, dest.Clone(), msg.Clone())
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrCannotReachDestination) {
			return err
		}
		last = err
	}
	return last
}
