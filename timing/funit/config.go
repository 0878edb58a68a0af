package funit

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/minorsim/insts"
)

// TimingConfig is the JSON form of a per-opcode timing override.
type TimingConfig struct {
	Mnemonics           []string `json:"mnemonics"`
	Suppress            bool     `json:"suppress,omitempty"`
	ExtraCommitLatency  uint64   `json:"extra_commit_latency,omitempty"`
	ExtraAssumedLatency uint64   `json:"extra_assumed_latency,omitempty"`
	SrcRelativeLats     []uint64 `json:"src_relative_latencies,omitempty"`
}

// UnitConfig is the JSON form of one functional unit.
type UnitConfig struct {
	// OpClasses names the operation classes the unit supports, using the
	// OpClass string names (IntAlu, IntMult, IntDiv, Float, MemRead,
	// MemWrite).
	OpClasses []string `json:"op_classes"`

	// Latency is the unit's pipeline depth in cycles. Must be >= 1.
	Latency uint64 `json:"latency"`

	// CantForwardFrom lists unit indices whose results cannot be forwarded
	// early into this unit.
	CantForwardFrom []int `json:"cant_forward_from,omitempty"`

	// Timings are per-opcode overrides.
	Timings []TimingConfig `json:"timings,omitempty"`
}

// Config describes the whole functional-unit pool.
type Config struct {
	Units []UnitConfig `json:"units"`
}

// DefaultConfig returns a small general-purpose unit pool: two single-cycle
// integer ALUs, a multiplier, a divider, a floating-point unit and a memory
// address-generation unit.
func DefaultConfig() *Config {
	return &Config{
		Units: []UnitConfig{
			{OpClasses: []string{"IntAlu"}, Latency: 1},
			{OpClasses: []string{"IntAlu"}, Latency: 1},
			{OpClasses: []string{"IntMult"}, Latency: 3},
			{OpClasses: []string{"IntDiv"}, Latency: 9},
			{OpClasses: []string{"Float"}, Latency: 6},
			{OpClasses: []string{"MemRead", "MemWrite"}, Latency: 1},
		},
	}
}

// LoadConfig loads a Config from a JSON file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read functional-unit config: %w", err)
	}

	config := &Config{}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse functional-unit config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize functional-unit config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write functional-unit config: %w", err)
	}

	return nil
}

// Validate checks the configuration for construction-time errors.
func (c *Config) Validate() error {
	if len(c.Units) == 0 {
		return fmt.Errorf("functional-unit pool must contain at least one unit")
	}

	for i, u := range c.Units {
		if u.Latency < 1 {
			return fmt.Errorf("unit %d: latency must be >= 1 (%d)", i, u.Latency)
		}
		if len(u.OpClasses) == 0 {
			return fmt.Errorf("unit %d: must support at least one op class", i)
		}
		for _, name := range u.OpClasses {
			if _, err := insts.ParseOpClass(name); err != nil {
				return fmt.Errorf("unit %d: %w", i, err)
			}
		}
		for _, from := range u.CantForwardFrom {
			if from < 0 || from >= len(c.Units) {
				return fmt.Errorf("unit %d: cant_forward_from index %d out of range", i, from)
			}
		}
	}

	return nil
}

// Descs converts the configuration into unit descriptors. The configuration
// must have been validated.
func (c *Config) Descs() ([]*Desc, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	descs := make([]*Desc, 0, len(c.Units))
	for _, u := range c.Units {
		desc := &Desc{
			Latency:                  u.Latency,
			CantForwardFromFUIndices: append([]int(nil), u.CantForwardFrom...),
		}

		for _, name := range u.OpClasses {
			class, err := insts.ParseOpClass(name)
			if err != nil {
				return nil, err
			}
			desc.OpClasses = append(desc.OpClasses, class)
		}

		for _, t := range u.Timings {
			desc.Timings = append(desc.Timings, Timing{
				Mnemonics:           append([]string(nil), t.Mnemonics...),
				Suppress:            t.Suppress,
				ExtraCommitLat:      t.ExtraCommitLatency,
				ExtraAssumedLat:     t.ExtraAssumedLatency,
				SrcRegsRelativeLats: append([]uint64(nil), t.SrcRelativeLats...),
			})
		}

		descs = append(descs, desc)
	}

	return descs, nil
}
