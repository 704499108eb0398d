package xcm

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/EgorPopelyaev/polkadot/location"
)

// Xcm is an ordered sequence of instructions. It is handled as a value:
// functions that build new messages never modify the ones they are given.
type Xcm []Instruction

// MessageHash identifies a message by the blake2b-256 digest of its
// canonical encoding.
type MessageHash [32]byte

// String returns the hex form of the hash.
func (h MessageHash) String() string {
	return hex.EncodeToString(h[:])
}

// Len returns the number of top-level instructions.
func (x Xcm) Len() int {
	return len(x)
}

// Clone returns a deep copy.
func (x Xcm) Clone() Xcm {
	out := make(Xcm, len(x))
	for i, in := range x {
		out[i] = cloneInstruction(in)
	}
	return out
}

// Concat returns x followed by other, as a new message.
func (x Xcm) Concat(other Xcm) Xcm {
	out := make(Xcm, 0, len(x)+len(other))
	out = append(out, x.Clone()...)
	return append(out, other.Clone()...)
}

// Count returns the number of instructions including those nested inside
// ExportMessage payloads.
func (x Xcm) Count() int {
	n := 0
	for _, in := range x {
		n++
		if export, ok := in.(ExportMessage); ok {
			n += export.Message.Count()
		}
	}
	return n
}

// Hash returns the message id.
func (x Xcm) Hash() MessageHash {
	data, err := json.Marshal(x)
	if err != nil {
		// every instruction type has a total encoding
		panic(fmt.Sprintf("xcm: encode: %v", err))
	}
	return blake2b.Sum256(data)
}

// String lists instruction names, for logs.
func (x Xcm) String() string {
	names := make([]string, len(x))
	for i, in := range x {
		names[i] = in.Name()
	}
	return fmt.Sprintf("%v", names)
}

// wireInstruction is the tagged JSON form of an instruction.
type wireInstruction struct {
	Op          string             `json:"op"`
	Junction    string             `json:"junction,omitempty"`
	Interior    string             `json:"interior,omitempty"`
	Network     location.NetworkID `json:"network,omitempty"`
	Destination string             `json:"destination,omitempty"`
	Message     Xcm                `json:"message,omitempty"`
	Code        uint64             `json:"code,omitempty"`
	Call        []byte             `json:"call,omitempty"`
	Topic       string             `json:"topic,omitempty"`
}

// MarshalJSON encodes the message as a list of tagged instructions.
func (x Xcm) MarshalJSON() ([]byte, error) {
	out := make([]wireInstruction, 0, len(x))
	for _, in := range x {
		w := wireInstruction{Op: in.Name()}
		switch v := in.(type) {
		case UniversalOrigin:
			w.Junction = v.Junction.String()
		case DescendOrigin:
			w.Interior = v.Interior.String()
		case ExportMessage:
			w.Network = v.Network
			w.Destination = v.Destination.String()
			w.Message = v.Message
		case ClearOrigin:
		case Trap:
			w.Code = v.Code
		case Transact:
			w.Call = v.Call
		case SetTopic:
			w.Topic = hex.EncodeToString(v.Topic[:])
		default:
			return nil, fmt.Errorf("%w: unknown instruction %T", ErrUnroutable, in)
		}
		out = append(out, w)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (x *Xcm) UnmarshalJSON(data []byte) error {
	var wire []wireInstruction
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	msg := make(Xcm, 0, len(wire))
	for _, w := range wire {
		in, err := w.decode()
		if err != nil {
			return err
		}
		msg = append(msg, in)
	}
	*x = msg
	return nil
}

func (w wireInstruction) decode() (Instruction, error) {
	switch w.Op {
	case "UniversalOrigin":
		j, err := location.ParseJunction(w.Junction)
		if err != nil {
			return nil, err
		}
		return UniversalOrigin{Junction: j}, nil
	case "DescendOrigin":
		interior, err := location.ParseJunctions(w.Interior)
		if err != nil {
			return nil, err
		}
		return DescendOrigin{Interior: interior}, nil
	case "ExportMessage":
		dest, err := location.ParseJunctions(w.Destination)
		if err != nil {
			return nil, err
		}
		if !w.Network.IsValid() {
			return nil, fmt.Errorf("%w: export network %q", location.ErrInvalidLocation, w.Network)
		}
		msg := w.Message
		if msg == nil {
			msg = Xcm{}
		}
		return ExportMessage{Network: w.Network, Destination: dest, Message: msg}, nil
	case "ClearOrigin":
		return ClearOrigin{}, nil
	case "Trap":
		return Trap{Code: w.Code}, nil
	case "Transact":
		return Transact{Call: w.Call}, nil
	case "SetTopic":
		var topic [32]byte
		raw, err := hex.DecodeString(w.Topic)
		if err != nil || len(raw) != len(topic) {
			return nil, fmt.Errorf("xcm: bad topic %q", w.Topic)
		}
		copy(topic[:], raw)
		return SetTopic{Topic: topic}, nil
	default:
		return nil, fmt.Errorf("xcm: unknown instruction %q", w.Op)
	}
}
