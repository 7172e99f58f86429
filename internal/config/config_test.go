package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltin(t *testing.T) {
	reg := Builtin()

	for _, name := range []string{"kovan", "ropsten", "rinkeby", "tester", "privtest"} {
		c, err := reg.Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", name, err)
		}
		if c.HTTPURL == "" {
			t.Errorf("builtin chain %s has no http url", name)
		}
	}

	kovan, _ := reg.Lookup("kovan")
	if kovan.NetworkID != "42" {
		t.Errorf("kovan network id = %q, want 42", kovan.NetworkID)
	}

	_, err := reg.Lookup("mainnet")
	if !errors.Is(err, ErrUnknownChain) {
		t.Errorf("err = %v, want ErrUnknownChain", err)
	}
}

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chains.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
	return path
}

func TestLoad_OverridesAndAdds(t *testing.T) {
	path := writeRegistry(t, `
chains:
  - name: privtest
    http_url: http://10.0.0.5:8545
    ws_url: ws://10.0.0.5:8546
    network_id: "1337"
    gas_limit: 4000000
  - name: staging
    http_url: http://geth.staging.internal:8545
`)

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	privtest, err := reg.Lookup("privtest")
	if err != nil {
		t.Fatalf("Lookup(privtest): %v", err)
	}
	if privtest.HTTPURL != "http://10.0.0.5:8545" {
		t.Errorf("privtest http url = %q, override lost", privtest.HTTPURL)
	}
	if privtest.GasLimit != 4000000 {
		t.Errorf("privtest gas limit = %d, want 4000000", privtest.GasLimit)
	}

	staging, err := reg.Lookup("staging")
	if err != nil {
		t.Fatalf("Lookup(staging): %v", err)
	}
	if staging.HTTPURL != "http://geth.staging.internal:8545" {
		t.Errorf("staging http url = %q", staging.HTTPURL)
	}

	// Builtins without overrides survive the merge.
	if _, err := reg.Lookup("kovan"); err != nil {
		t.Errorf("Lookup(kovan) after merge: %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "chains:\n  - http_url: http://127.0.0.1:8545\n"},
		{"missing http url", "chains:\n  - name: broken\n"},
		{"not yaml", "{{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRegistry(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
