package contracts

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrUnknownContract indicates the artifact registry has no entry for the
// requested contract name.
var ErrUnknownContract = errors.New("unknown contract")

// Artifact is a compiled contract: its ABI and creation bytecode.
type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

// DeployData builds the creation payload: bytecode followed by the
// ABI-encoded constructor arguments.
func (a *Artifact) DeployData(args ...interface{}) ([]byte, error) {
	if len(a.Bytecode) == 0 {
		return nil, fmt.Errorf("artifact %s has no bytecode", a.Name)
	}
	packed, err := a.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s constructor args: %w", a.Name, err)
	}
	data := make([]byte, 0, len(a.Bytecode)+len(packed))
	data = append(data, a.Bytecode...)
	data = append(data, packed...)
	return data, nil
}

// Registry holds compiled contract artifacts loaded from a build file.
type Registry struct {
	artifacts map[string]*Artifact
}

// LoadRegistry reads a compiler output file. Both layouts in the wild are
// accepted: the flat map produced by populus-style builds
// ({"Name": {"abi": [...], "code": "0x..."}}) and solc --combined-json
// ({"contracts": {"file.sol:Name": {"abi": ..., "bin": "..."}}}).
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contracts file: %w", err)
	}
	reg, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("parse contracts file %s: %w", path, err)
	}
	return reg, nil
}

// ParseRegistry parses compiler output from memory.
func ParseRegistry(data []byte) (*Registry, error) {
	artifacts := make(map[string]*Artifact)

	var combined struct {
		Contracts map[string]rawArtifact `json:"contracts"`
	}
	if err := json.Unmarshal(data, &combined); err == nil && len(combined.Contracts) > 0 {
		for key, raw := range combined.Contracts {
			// Combined-json keys look like "contracts/auction.sol:DutchAuction".
			name := key
			if i := strings.LastIndex(key, ":"); i >= 0 {
				name = key[i+1:]
			}
			art, err := raw.toArtifact(name)
			if err != nil {
				return nil, err
			}
			artifacts[name] = art
		}
		return &Registry{artifacts: artifacts}, nil
	}

	var flat map[string]rawArtifact
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("unrecognized contracts file layout: %w", err)
	}
	for name, raw := range flat {
		art, err := raw.toArtifact(name)
		if err != nil {
			return nil, err
		}
		artifacts[name] = art
	}
	if len(artifacts) == 0 {
		return nil, errors.New("contracts file holds no artifacts")
	}
	return &Registry{artifacts: artifacts}, nil
}

// Get returns the artifact for a contract name.
func (r *Registry) Get(name string) (*Artifact, error) {
	art, ok := r.artifacts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, name)
	}
	return art, nil
}

// Names lists the loaded contract names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.artifacts))
	for name := range r.artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rawArtifact covers the field spellings of the supported build layouts.
type rawArtifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bin      string          `json:"bin"`
	Code     string          `json:"code"`
	Bytecode string          `json:"bytecode"`
}

func (r rawArtifact) toArtifact(name string) (*Artifact, error) {
	abiJSON := r.ABI
	if len(abiJSON) == 0 {
		return nil, fmt.Errorf("artifact %s has no abi", name)
	}
	// Older solc emits the abi as a JSON-encoded string.
	if abiJSON[0] == '"' {
		var s string
		if err := json.Unmarshal(abiJSON, &s); err != nil {
			return nil, fmt.Errorf("artifact %s: decode abi string: %w", name, err)
		}
		abiJSON = []byte(s)
	}

	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("artifact %s: parse abi: %w", name, err)
	}

	bytecode, err := decodeBytecode(firstNonEmpty(r.Bin, r.Code, r.Bytecode))
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", name, err)
	}

	return &Artifact{Name: name, ABI: parsed, Bytecode: bytecode}, nil
}

func decodeBytecode(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, nil
	}
	code, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode bytecode: %w", err)
	}
	return code, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
