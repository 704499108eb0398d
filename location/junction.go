// Package location models positions in the nested hierarchy of consensus
// systems.
//
// A Location is a number of parent steps followed by an interior path of
// junctions, outermost first. A universal location is an interior path whose
// first junction is a GlobalConsensus anchor naming the network it lives in.
package location

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NetworkID names a global consensus system.
type NetworkID string

// Well-known networks.
const (
	Polkadot NetworkID = "Polkadot"
	Kusama   NetworkID = "Kusama"
	Westend  NetworkID = "Westend"
	Rococo   NetworkID = "Rococo"
	Wococo   NetworkID = "Wococo"
	Ethereum NetworkID = "Ethereum"
)

var networkPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// String returns the string representation of NetworkID
func (n NetworkID) String() string {
	return string(n)
}

// IsValid checks if the network identifier is well formed
func (n NetworkID) IsValid() bool {
	return networkPattern.MatchString(string(n))
}

// ParseNetworkID validates s as a network identifier.
func ParseNetworkID(s string) (NetworkID, error) {
	n := NetworkID(strings.TrimSpace(s))
	if !n.IsValid() {
		return "", fmt.Errorf("%w: network %q", ErrInvalidLocation, s)
	}
	return n, nil
}

// JunctionKind defines the type of a single location step.
type JunctionKind uint8

const (
	// KindParachain is a child parachain identified by its id
	KindParachain JunctionKind = iota + 1

	// KindAccountID32 is a 32-byte account
	KindAccountID32

	// KindAccountIndex64 is an account index
	KindAccountIndex64

	// KindAccountKey20 is a 20-byte account key
	KindAccountKey20

	// KindPalletInstance is a pallet inside a runtime
	KindPalletInstance

	// KindGeneralIndex is an opaque numeric child
	KindGeneralIndex

	// KindGeneralKey is an opaque keyed child
	KindGeneralKey

	// KindOnlyChild is the single child of a system with exactly one
	KindOnlyChild

	// KindGlobalConsensus anchors a path to a network
	KindGlobalConsensus
)

var kindNames = map[JunctionKind]string{
	KindParachain:       "Parachain",
	KindAccountID32:     "AccountId32",
	KindAccountIndex64:  "AccountIndex64",
	KindAccountKey20:    "AccountKey20",
	KindPalletInstance:  "PalletInstance",
	KindGeneralIndex:    "GeneralIndex",
	KindGeneralKey:      "GeneralKey",
	KindOnlyChild:       "OnlyChild",
	KindGlobalConsensus: "GlobalConsensus",
}

// String returns the string representation of JunctionKind
func (k JunctionKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", k)
}

// Junction is one step of an interior path. It is a comparable value:
// numeric children use Index, keyed children keep their raw bytes in Key and
// GlobalConsensus carries its Network.
type Junction struct {
	Kind    JunctionKind
	Index   uint64
	Key     string
	Network NetworkID
}

// Parachain returns a parachain junction.
func Parachain(id uint32) Junction {
	return Junction{Kind: KindParachain, Index: uint64(id)}
}

// AccountID32 returns a 32-byte account junction.
func AccountID32(id [32]byte) Junction {
	return Junction{Kind: KindAccountID32, Key: string(id[:])}
}

// AccountIndex64 returns an account index junction.
func AccountIndex64(index uint64) Junction {
	return Junction{Kind: KindAccountIndex64, Index: index}
}

// AccountKey20 returns a 20-byte account key junction.
func AccountKey20(key [20]byte) Junction {
	return Junction{Kind: KindAccountKey20, Key: string(key[:])}
}

// PalletInstance returns a pallet junction.
func PalletInstance(index uint8) Junction {
	return Junction{Kind: KindPalletInstance, Index: uint64(index)}
}

// GeneralIndex returns an opaque numeric junction.
func GeneralIndex(index uint64) Junction {
	return Junction{Kind: KindGeneralIndex, Index: index}
}

// GeneralKey returns an opaque keyed junction. Keys longer than 32 bytes are
// rejected by Validate.
func GeneralKey(key []byte) Junction {
	return Junction{Kind: KindGeneralKey, Key: string(key)}
}

// OnlyChild returns the only-child junction.
func OnlyChild() Junction {
	return Junction{Kind: KindOnlyChild}
}

// GlobalConsensus returns a network anchor junction.
func GlobalConsensus(network NetworkID) Junction {
	return Junction{Kind: KindGlobalConsensus, Network: network}
}

// IsGlobalConsensus reports whether j anchors a path to a network, and which.
func (j Junction) IsGlobalConsensus() (NetworkID, bool) {
	if j.Kind != KindGlobalConsensus {
		return "", false
	}
	return j.Network, true
}

// Validate checks the junction fields are consistent with its kind.
func (j Junction) Validate() error {
	switch j.Kind {
	case KindParachain:
		if j.Index > 0xFFFFFFFF {
			return fmt.Errorf("%w: parachain id %d out of range", ErrInvalidLocation, j.Index)
		}
	case KindPalletInstance:
		if j.Index > 0xFF {
			return fmt.Errorf("%w: pallet index %d out of range", ErrInvalidLocation, j.Index)
		}
	case KindAccountID32:
		if len(j.Key) != 32 {
			return fmt.Errorf("%w: account id must be 32 bytes", ErrInvalidLocation)
		}
	case KindAccountKey20:
		if len(j.Key) != 20 {
			return fmt.Errorf("%w: account key must be 20 bytes", ErrInvalidLocation)
		}
	case KindGeneralKey:
		if len(j.Key) > 32 {
			return fmt.Errorf("%w: general key longer than 32 bytes", ErrInvalidLocation)
		}
	case KindGlobalConsensus:
		if !j.Network.IsValid() {
			return fmt.Errorf("%w: network %q", ErrInvalidLocation, j.Network)
		}
	case KindAccountIndex64, KindGeneralIndex, KindOnlyChild:
	default:
		return fmt.Errorf("%w: unknown junction kind %d", ErrInvalidLocation, j.Kind)
	}
	return nil
}

// String renders the junction as Kind(arg).
func (j Junction) String() string {
	switch j.Kind {
	case KindParachain, KindAccountIndex64, KindPalletInstance, KindGeneralIndex:
		return fmt.Sprintf("%s(%d)", j.Kind, j.Index)
	case KindAccountID32, KindAccountKey20, KindGeneralKey:
		return fmt.Sprintf("%s(0x%s)", j.Kind, hex.EncodeToString([]byte(j.Key)))
	case KindGlobalConsensus:
		return fmt.Sprintf("%s(%s)", j.Kind, j.Network)
	case KindOnlyChild:
		return j.Kind.String()
	default:
		return j.Kind.String()
	}
}

// ParseJunction parses the form produced by Junction.String.
func ParseJunction(s string) (Junction, error) {
	s = strings.TrimSpace(s)
	if s == KindOnlyChild.String() {
		return OnlyChild(), nil
	}

	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return Junction{}, fmt.Errorf("%w: junction %q", ErrInvalidLocation, s)
	}
	name, arg := s[:open], s[open+1:len(s)-1]

	var kind JunctionKind
	for k, n := range kindNames {
		if n == name {
			kind = k
			break
		}
	}

	var j Junction
	switch kind {
	case KindParachain, KindAccountIndex64, KindPalletInstance, KindGeneralIndex:
		v, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return Junction{}, fmt.Errorf("%w: junction %q: %v", ErrInvalidLocation, s, err)
		}
		j = Junction{Kind: kind, Index: v}
	case KindAccountID32, KindAccountKey20, KindGeneralKey:
		raw, err := hex.DecodeString(strings.TrimPrefix(arg, "0x"))
		if err != nil {
			return Junction{}, fmt.Errorf("%w: junction %q: %v", ErrInvalidLocation, s, err)
		}
		j = Junction{Kind: kind, Key: string(raw)}
	case KindGlobalConsensus:
		network, err := ParseNetworkID(arg)
		if err != nil {
			return Junction{}, err
		}
		j = GlobalConsensus(network)
	default:
		return Junction{}, fmt.Errorf("%w: unknown junction %q", ErrInvalidLocation, name)
	}

	if err := j.Validate(); err != nil {
		return Junction{}, err
	}
	return j, nil
}
