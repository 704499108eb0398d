// Package xcm defines cross-consensus messages and the narrow capabilities
// used to move and execute them.
//
// A message is an ordered list of instructions. Most instructions are opaque
// to the routing layer; UniversalOrigin, DescendOrigin and ExportMessage are
// the ones it builds itself.
package xcm

import (
	"github.com/EgorPopelyaev/polkadot/location"
)

// Instruction is a single step of a message.
type Instruction interface {
	// Name returns the instruction's wire name.
	Name() string

	isInstruction()
}

// UniversalOrigin declares that the message originates from the given
// global consensus system.
type UniversalOrigin struct {
	Junction location.Junction
}

// DescendOrigin moves the origin further into the given interior path.
type DescendOrigin struct {
	Interior location.Junctions
}

// ExportMessage asks the executing system to hand Message off to a bridge
// for Network, addressed to Destination inside it.
type ExportMessage struct {
	Network     location.NetworkID
	Destination location.Junctions
	Message     Xcm
}

// ClearOrigin drops the origin for the rest of the message.
type ClearOrigin struct{}

// Trap stops execution with the given code.
type Trap struct {
	Code uint64
}

// Transact dispatches an encoded call at the current origin.
type Transact struct {
	Call []byte
}

// SetTopic labels the message for tracing.
type SetTopic struct {
	Topic [32]byte
}

func (UniversalOrigin) Name() string { return "UniversalOrigin" }
func (DescendOrigin) Name() string   { return "DescendOrigin" }
func (ExportMessage) Name() string   { return "ExportMessage" }
func (ClearOrigin) Name() string     { return "ClearOrigin" }
func (Trap) Name() string            { return "Trap" }
func (Transact) Name() string        { return "Transact" }
func (SetTopic) Name() string        { return "SetTopic" }

func (UniversalOrigin) isInstruction() {}
func (DescendOrigin) isInstruction()   {}
func (ExportMessage) isInstruction()   {}
func (ClearOrigin) isInstruction()     {}
func (Trap) isInstruction()            {}
func (Transact) isInstruction()        {}
func (SetTopic) isInstruction()        {}

// cloneInstruction copies the slices held by an instruction.
func cloneInstruction(in Instruction) Instruction {
	switch v := in.(type) {
	case DescendOrigin:
		return DescendOrigin{Interior: v.Interior.Clone()}
	case ExportMessage:
		return ExportMessage{
			Network:     v.Network,
			Destination: v.Destination.Clone(),
			Message:     v.Message.Clone(),
		}
	case Transact:
		call := make([]byte, len(v.Call))
		copy(call, v.Call)
		return Transact{Call: call}
	default:
		return in
	}
}
