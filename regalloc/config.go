// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Limits of the target register file.
//
//	registers = 256                # allocatable registers [0, registers)
//	max-registers = 65536          # including spill area and move temporaries
//	high-register-threshold = 15   # last register that fits a 4-bit field

type ConfigT struct {
	Registers             int `toml:"registers"`
	MaxRegisters          int `toml:"max-registers"`
	HighRegisterThreshold int `toml:"high-register-threshold"`
}

func DefaultConfig() *ConfigT {
	return &ConfigT{Registers: 256, MaxRegisters: 65536, HighRegisterThreshold: 15}
}

// Missing keys keep their default values.

func ParseConfig(data string) (*ConfigT, error) {
	config := DefaultConfig()
	metadata, err := toml.Decode(data, config)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if undecoded := metadata.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: unknown key %q", undecoded[0].String())
	}
	if err := config.Check(); err != nil {
		return nil, err
	}
	return config, nil
}

func LoadConfig(path string) (*ConfigT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	config, err := ParseConfig(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (config *ConfigT) Check() error {
	if config.Registers < 2 {
		return fmt.Errorf("config: registers is %d, need at least 2", config.Registers)
	}
	if config.MaxRegisters < config.Registers {
		return fmt.Errorf("config: max-registers %d is less than registers %d",
			config.MaxRegisters, config.Registers)
	}
	if config.HighRegisterThreshold < 0 {
		return fmt.Errorf("config: negative high-register-threshold %d", config.HighRegisterThreshold)
	}
	return nil
}
