// Package config resolves chain endpoints for the deployer. A built-in
// registry covers the networks the tooling targets day to day; a YAML
// file can override entries or add new ones.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownChain indicates the registry has no entry for the requested
// chain name.
var ErrUnknownChain = errors.New("unknown chain")

// Chain describes how to reach one Ethereum network.
type Chain struct {
	Name string `yaml:"name"`
	// HTTPURL is the JSON-RPC endpoint.
	HTTPURL string `yaml:"http_url"`
	// WSURL is the pub/sub endpoint, empty when the node exposes none.
	WSURL string `yaml:"ws_url,omitempty"`
	// NetworkID is the expected net_version; empty skips the check.
	NetworkID string `yaml:"network_id,omitempty"`
	// GasLimit, when non-zero, caps every transaction the deployer sends
	// on this chain.
	GasLimit uint64 `yaml:"gas_limit,omitempty"`
}

// Registry maps chain names to endpoints.
type Registry struct {
	chains map[string]Chain
}

// Builtin returns the registry the deployer ships with. Every entry
// expects a local node (or a tunnel to one) on the standard ports.
func Builtin() *Registry {
	chains := []Chain{
		{Name: "kovan", HTTPURL: "http://127.0.0.1:8545", WSURL: "ws://127.0.0.1:8546", NetworkID: "42"},
		{Name: "ropsten", HTTPURL: "http://127.0.0.1:8545", WSURL: "ws://127.0.0.1:8546", NetworkID: "3"},
		{Name: "rinkeby", HTTPURL: "http://127.0.0.1:8545", WSURL: "ws://127.0.0.1:8546", NetworkID: "4"},
		{Name: "tester", HTTPURL: "http://127.0.0.1:8545", WSURL: "ws://127.0.0.1:8546"},
		{Name: "privtest", HTTPURL: "http://127.0.0.1:8545", WSURL: "ws://127.0.0.1:8546"},
	}

	reg := &Registry{chains: make(map[string]Chain, len(chains))}
	for _, c := range chains {
		reg.chains[c.Name] = c
	}
	return reg
}

// registryFile is the on-disk registry layout.
type registryFile struct {
	Chains []Chain `yaml:"chains"`
}

// Load reads a YAML registry file and merges it over the built-in
// entries. File entries win on name collisions.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain registry: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal chain registry YAML: %w", err)
	}

	reg := Builtin()
	for i, c := range file.Chains {
		if err := validateChain(c); err != nil {
			return nil, fmt.Errorf("chain registry entry %d: %w", i, err)
		}
		reg.chains[c.Name] = c
	}
	return reg, nil
}

// validateChain checks the logical consistency of a registry entry.
func validateChain(c Chain) error {
	if c.Name == "" {
		return errors.New("chain name must not be empty")
	}
	if c.HTTPURL == "" {
		return fmt.Errorf("chain %s has no http_url", c.Name)
	}
	return nil
}

// Lookup returns the chain entry for a name.
func (r *Registry) Lookup(name string) (Chain, error) {
	c, ok := r.chains[name]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %s (known: %v)", ErrUnknownChain, name, r.Names())
	}
	return c, nil
}

// Names lists the registered chain names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.chains))
	for name := range r.chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
