// Package executor is a small local execution engine for cross-consensus
// messages. It weighs messages, tracks the origin as instructions change it
// and hands ExportMessage payloads to a configured exporter.
package executor

import (
	"context"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

// Dispatcher runs an encoded call on behalf of origin.
type Dispatcher interface {
	Dispatch(ctx context.Context, origin location.Location, call []byte) error
}

// Config contains executor settings
type Config struct {
	// UniversalLocation is where this executor runs
	UniversalLocation location.Junctions

	// WeightPerInstruction is charged for every instruction, nested ones included
	WeightPerInstruction xcm.Weight

	// MaxInstructions bounds the instruction count, nested ones included
	MaxInstructions int

	// Exporter receives ExportMessage payloads
	Exporter xcm.ExportXcm

	// Dispatcher receives Transact calls; nil leaves them unhandled
	Dispatcher Dispatcher
}

// DefaultConfig returns default executor settings.
func DefaultConfig() Config {
	return Config{
		WeightPerInstruction: 1_000_000,
		MaxInstructions:      100,
	}
}

// Executor implements xcm.ExecuteXcm. It holds no mutable state and is safe
// for concurrent use when its Exporter and Dispatcher are.
type Executor struct {
	config Config
	logger *zap.Logger
}

// New creates an Executor.
func New(config Config, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxInstructions <= 0 {
		config.MaxInstructions = DefaultConfig().MaxInstructions
	}
	return &Executor{config: config, logger: logger}
}

type prepared struct {
	msg    xcm.Xcm
	weight xcm.Weight
}

func (p *prepared) WeightOf() xcm.Weight { return p.weight }
func (p *prepared) Message() xcm.Xcm     { return p.msg }

// Prepare validates msg and computes its weight.
func (e *Executor) Prepare(msg xcm.Xcm) (xcm.Prepared, error) {
	if len(msg) == 0 {
		return nil, xcm.ErrEmptyMessage
	}
	count := msg.Count()
	if count > e.config.MaxInstructions {
		return nil, fmt.Errorf("%w: %d > %d", xcm.ErrTooManyInstructions, count, e.config.MaxInstructions)
	}
	return &prepared{
		msg:    msg.Clone(),
		weight: xcm.Weight(count) * e.config.WeightPerInstruction,
	}, nil
}

// Execute runs a prepared message at origin. weightCredit must cover the
// prepared weight.
func (e *Executor) Execute(ctx context.Context, origin location.Location, pre xcm.Prepared, weightCredit xcm.Weight) xcm.Outcome {
	weight := pre.WeightOf()
	if weightCredit < weight {
		return xcm.Error(fmt.Errorf("%w: need %d, have %d", xcm.ErrWeightLimitReached, weight, weightCredit))
	}

	state := &execution{
		executor: e,
		origin:   origin.Clone(),
		hasOrig:  true,
	}

	var used xcm.Weight
	for i, in := range pre.Message() {
		used += e.weightOf(in)
		if err := state.apply(ctx, in); err != nil {
			e.logger.Debug("execution stopped",
				zap.Int("instruction", i),
				zap.String("op", in.Name()),
				zap.Error(err))
			return xcm.Incomplete(used, err)
		}
	}
	if state.topic != nil {
		e.logger.Debug("executed", zap.String("topic", hex.EncodeToString(state.topic[:])))
	}
	return xcm.Complete(used)
}

func (e *Executor) weightOf(in xcm.Instruction) xcm.Weight {
	n := 1
	if export, ok := in.(xcm.ExportMessage); ok {
		n += export.Message.Count()
	}
	return xcm.Weight(n) * e.config.WeightPerInstruction
}

// execution is the per-call register state.
type execution struct {
	executor *Executor
	origin   location.Location
	hasOrig  bool
	topic    *[32]byte
}

func (s *execution) apply(ctx context.Context, in xcm.Instruction) error {
	cfg := s.executor.config

	switch v := in.(type) {
	case xcm.UniversalOrigin:
		if !s.hasOrig {
			return xcm.ErrBadOrigin
		}
		network, ok := v.Junction.IsGlobalConsensus()
		if !ok {
			return fmt.Errorf("%w: %s is not a network", xcm.ErrInvalidLocation, v.Junction)
		}
		if own, ok := cfg.UniversalLocation.GlobalConsensus(); ok && own == network {
			return fmt.Errorf("%w: %s is the local network", xcm.ErrInvalidLocation, network)
		}
		s.origin = location.Junctions{v.Junction}.RelativeTo(cfg.UniversalLocation)

	case xcm.DescendOrigin:
		if !s.hasOrig {
			return xcm.ErrBadOrigin
		}
		next, err := s.origin.AppendedWith(v.Interior.AsLocation())
		if err != nil {
			return fmt.Errorf("%w: %v", xcm.ErrInvalidLocation, err)
		}
		s.origin = next

	case xcm.ClearOrigin:
		s.origin, s.hasOrig = location.Location{}, false

	case xcm.ExportMessage:
		if !s.hasOrig {
			return xcm.ErrBadOrigin
		}
		if cfg.Exporter == nil {
			return fmt.Errorf("%w: no exporter configured", xcm.ErrUnhandled)
		}
		return cfg.Exporter.ExportXcm(ctx, v.Network, 0, v.Destination, v.Message)

	case xcm.Transact:
		if !s.hasOrig {
			return xcm.ErrBadOrigin
		}
		if cfg.Dispatcher == nil {
			return fmt.Errorf("%w: no dispatcher configured", xcm.ErrUnhandled)
		}
		return cfg.Dispatcher.Dispatch(ctx, s.origin.Clone(), v.Call)

	case xcm.Trap:
		return fmt.Errorf("%w: code %d", xcm.ErrTrap, v.Code)

	case xcm.SetTopic:
		topic := v.Topic
		s.topic = &topic

	default:
		return fmt.Errorf("%w: %s", xcm.ErrUnhandled, in.Name())
	}
	return nil
}
