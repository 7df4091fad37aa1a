// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		input string
		want  ConfigT
		err   string
	}{
		{"", *DefaultConfig(), ""},
		{"registers = 16\n", ConfigT{16, 65536, 15}, ""},
		{"registers = 4\nmax-registers = 8\nhigh-register-threshold = 3\n", ConfigT{4, 8, 3}, ""},
		{"register = 16\n", ConfigT{}, "unknown key"},
		{"registers = 1\n", ConfigT{}, "at least 2"},
		{"registers = 16\nmax-registers = 8\n", ConfigT{}, "less than registers"},
		{"high-register-threshold = -1\n", ConfigT{}, "negative"},
		{"registers = \n", ConfigT{}, "config:"},
	}
	for _, test := range tests {
		config, err := ParseConfig(test.input)
		if test.err != "" {
			if err == nil || !strings.Contains(err.Error(), test.err) {
				t.Errorf("%q: got error %v, want %q", test.input, err, test.err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %s", test.input, err)
		} else if *config != test.want {
			t.Errorf("%q: got %+v, want %+v", test.input, *config, test.want)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backend.toml")
	if err := os.WriteFile(path, []byte("registers = 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if config.Registers != 8 || config.MaxRegisters != 65536 {
		t.Errorf("got %+v", *config)
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("no error for a missing file")
	}
}
