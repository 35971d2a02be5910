// Package genesis bootstraps a fresh store with the initial authority set,
// the controller account and the programme-wide spending defaults.
package genesis

import (
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"reliefchain/core/state"
	"reliefchain/crypto"
	"reliefchain/native/ledger"
)

// Spec describes the initial authority set. Addresses are bech32 strings so
// the file can be reviewed and diffed by operators.
type Spec struct {
	Admins            []string `yaml:"admins"`
	Minters           []string `yaml:"minters"`
	Pausers           []string `yaml:"pausers"`
	Controller        string   `yaml:"controller"`
	DefaultDailyLimit string   `yaml:"defaultDailyLimit"`
}

// LoadFile reads a genesis spec from a YAML file.
func LoadFile(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	spec := &Spec{}
	if err := yaml.Unmarshal(raw, spec); err != nil {
		return nil, fmt.Errorf("genesis: parse %s: %w", path, err)
	}
	return spec, nil
}

// Validate checks the spec is complete enough to bootstrap a usable network.
func (s *Spec) Validate() error {
	if len(s.Admins) == 0 {
		return fmt.Errorf("genesis: at least one admin is required")
	}
	if s.Controller == "" {
		return fmt.Errorf("genesis: controller address is required")
	}
	for _, list := range [][]string{s.Admins, s.Minters, s.Pausers, {s.Controller}} {
		for _, addr := range list {
			if _, err := crypto.DecodeAddress(addr); err != nil {
				return fmt.Errorf("genesis: invalid address %q: %w", addr, err)
			}
		}
	}
	if s.DefaultDailyLimit != "" {
		limit, ok := new(big.Int).SetString(s.DefaultDailyLimit, 10)
		if !ok || limit.Sign() < 0 {
			return fmt.Errorf("genesis: invalid defaultDailyLimit %q", s.DefaultDailyLimit)
		}
	}
	return nil
}

var appliedKey = []byte("genesis/applied")

// Applied reports whether the store has already been bootstrapped.
func Applied(m *state.Manager) (bool, error) {
	return m.KVHas(appliedKey)
}

// Apply writes the initial authority set into a fresh store. Calling it on an
// already bootstrapped store is an error so restarts cannot silently rewrite
// the role sets.
func Apply(m *state.Manager, spec *Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	done, err := Applied(m)
	if err != nil {
		return err
	}
	if done {
		return fmt.Errorf("genesis: store already bootstrapped")
	}
	assign := func(role string, addrs []string) error {
		for _, encoded := range addrs {
			addr, err := crypto.DecodeAddress(encoded)
			if err != nil {
				return fmt.Errorf("genesis: invalid address %q: %w", encoded, err)
			}
			if err := m.SetRole(role, addr.Bytes()); err != nil {
				return err
			}
		}
		return nil
	}
	if err := assign(ledger.RoleAdmin, spec.Admins); err != nil {
		return err
	}
	if err := assign(ledger.RoleMinter, spec.Minters); err != nil {
		return err
	}
	if err := assign(ledger.RolePauser, spec.Pausers); err != nil {
		return err
	}
	controller, err := crypto.DecodeAddress(spec.Controller)
	if err != nil {
		return fmt.Errorf("genesis: invalid controller %q: %w", spec.Controller, err)
	}
	if err := m.SetController(controller.Bytes()); err != nil {
		return err
	}
	if spec.DefaultDailyLimit != "" {
		limit, ok := new(big.Int).SetString(spec.DefaultDailyLimit, 10)
		if !ok {
			return fmt.Errorf("genesis: invalid defaultDailyLimit %q", spec.DefaultDailyLimit)
		}
		if err := m.SetDefaultDailyLimit(limit); err != nil {
			return err
		}
	}
	return m.KVPut(appliedKey, []byte{1})
}
