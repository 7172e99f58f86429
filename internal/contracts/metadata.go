package contracts

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ErrNoMetadata indicates the bytecode carries no decodable compiler
// metadata trailer.
var ErrNoMetadata = errors.New("bytecode carries no metadata trailer")

// BuildMetadata is the compiler fingerprint appended to contract bytecode
// as a CBOR trailer. Which fields are present depends on the compiler
// generation: 0.4.x ships a swarm hash, later versions an IPFS hash and
// an explicit solc version.
type BuildMetadata struct {
	SolcVersion string
	IPFSHash    []byte
	SwarmHash   []byte
}

// DecodeMetadata extracts the compiler metadata from creation or runtime
// bytecode. The trailer's length lives in the final two bytes,
// big-endian, immediately after the CBOR payload.
func DecodeMetadata(bytecode []byte) (*BuildMetadata, error) {
	if len(bytecode) < 2 {
		return nil, ErrNoMetadata
	}

	n := len(bytecode)
	trailerLen := int(bytecode[n-2])<<8 | int(bytecode[n-1])
	if trailerLen == 0 || trailerLen+2 > n {
		return nil, ErrNoMetadata
	}

	payload := bytecode[n-2-trailerLen : n-2]
	var fields map[string]cbor.RawMessage
	if err := cbor.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}

	meta := &BuildMetadata{}
	for key, raw := range fields {
		switch key {
		case "solc":
			var version []byte
			if err := cbor.Unmarshal(raw, &version); err != nil {
				return nil, fmt.Errorf("decode solc version: %w", err)
			}
			if len(version) == 3 {
				meta.SolcVersion = fmt.Sprintf("%d.%d.%d", version[0], version[1], version[2])
			}
		case "ipfs":
			if err := cbor.Unmarshal(raw, &meta.IPFSHash); err != nil {
				return nil, fmt.Errorf("decode ipfs hash: %w", err)
			}
		case "bzzr0", "bzzr1":
			if err := cbor.Unmarshal(raw, &meta.SwarmHash); err != nil {
				return nil, fmt.Errorf("decode swarm hash: %w", err)
			}
		}
	}
	return meta, nil
}
