package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml"

	"github.com/xplshn/gprev/pkg/cli"
	"github.com/xplshn/gprev/pkg/interp"
)

var ErrNegativeLimit = errors.New("interpreter limits must not be negative")

// Phase is a stage of the pipeline
type Phase int

const (
	PhaseLayout Phase = iota
	PhaseImcode
	PhaseLincode
	PhaseInterpret
	PhaseCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	// Dumps selects the phases whose result is printed
	Dumps    map[Phase]Info
	PhaseMap map[string]Phase

	StopAfter  Phase
	MemorySize int64
	MaxDepth   int
	Argument   int64
	Debug      bool
	Tree       bool
	Stats      bool
}

func NewConfig() *Config {
	cfg := &Config{
		Dumps:      make(map[Phase]Info),
		PhaseMap:   make(map[string]Phase),
		StopAfter:  PhaseInterpret,
		MemorySize: interp.DefaultMemorySize,
		MaxDepth:   interp.DefaultMaxDepth,
	}

	dumps := map[Phase]Info{
		PhaseLayout:    {"layout", false, "Print frames and the storage of every declaration."},
		PhaseImcode:    {"imcode", false, "Print the tree intermediate code."},
		PhaseLincode:   {"lincode", false, "Print the linearized code and data offsets."},
		PhaseInterpret: {"interpret", false, "Print the result and final state of the interpreter."},
	}

	cfg.Dumps = dumps
	for p, info := range dumps {
		cfg.PhaseMap[info.Name] = p
	}
	return cfg
}

func (c *Config) SetDump(p Phase, enabled bool) {
	if info, ok := c.Dumps[p]; ok {
		info.Enabled = enabled
		c.Dumps[p] = info
	}
}

func (c *Config) IsDumpEnabled(p Phase) bool { return c.Dumps[p].Enabled }

// SetPhase makes the pipeline stop after the named phase
func (c *Config) SetPhase(name string) error {
	p, ok := c.PhaseMap[name]
	if !ok {
		names := make([]string, 0, PhaseCount)
		for i := Phase(0); i < PhaseCount; i++ {
			names = append(names, c.Dumps[i].Name)
		}
		return fmt.Errorf("unknown phase '%s'. Supported: %s", name, strings.Join(names, ", "))
	}
	c.StopAfter = p
	return nil
}

// Reaches reports whether the pipeline runs phase p
func (c *Config) Reaches(p Phase) bool { return p <= c.StopAfter }

// Validate checks settings that may have come from the command line
func (c *Config) Validate() error {
	if c.MemorySize < 0 || c.MaxDepth < 0 {
		return ErrNegativeLimit
	}
	return nil
}

func (c *Config) Options() interp.Options {
	return interp.Options{MemorySize: c.MemorySize, MaxDepth: c.MaxDepth}
}

// SetupFlagGroups registers the -D<phase>/-Dno-<phase> dump toggles
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) []cli.FlagGroupEntry {
	entries := make([]cli.FlagGroupEntry, PhaseCount)
	for i := Phase(0); i < PhaseCount; i++ {
		info := c.Dumps[i]
		enabled, disabled := info.Enabled, false
		entries[i] = cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "D",
			Usage:    info.Description,
			Enabled:  &enabled,
			Disabled: &disabled,
		}
	}
	fs.AddFlagGroup("Dumps", "Print intermediate results.", "phase", "Available Phases:", entries)
	return entries
}

// ApplyFlagGroups copies the parsed dump toggles into the configuration
func (c *Config) ApplyFlagGroups(entries []cli.FlagGroupEntry) {
	for i, entry := range entries {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetDump(Phase(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetDump(Phase(i), false)
		}
	}
}

// tomlFile represents the configuration file as it is encoded in TOML
type tomlFile struct {
	Interpreter *tomlInterpreter `toml:"interpreter"`
	Compiler    *tomlCompiler    `toml:"compiler"`
}

type tomlInterpreter struct {
	MemorySize int64 `toml:"memory-size"`
	StackDepth int   `toml:"stack-depth"`
	Debug      bool  `toml:"debug"`
	Tree       bool  `toml:"tree"`
	Stats      bool  `toml:"stats"`
}

type tomlCompiler struct {
	Phase string   `toml:"phase"`
	Dump  []string `toml:"dump,omitempty"`
}

// LoadFile reads settings from a TOML file. Keys that are absent keep their
// current value.
func (c *Config) LoadFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.Load(buf)
}

func (c *Config) Load(buf []byte) error {
	tf := &tomlFile{}
	if err := toml.Unmarshal(buf, tf); err != nil {
		return fmt.Errorf("malformed configuration: %w", err)
	}

	if ti := tf.Interpreter; ti != nil {
		if ti.MemorySize < 0 || ti.StackDepth < 0 {
			return ErrNegativeLimit
		}
		if ti.MemorySize > 0 {
			c.MemorySize = ti.MemorySize
		}
		if ti.StackDepth > 0 {
			c.MaxDepth = ti.StackDepth
		}
		c.Debug = c.Debug || ti.Debug
		c.Tree = c.Tree || ti.Tree
		c.Stats = c.Stats || ti.Stats
	}

	if tc := tf.Compiler; tc != nil {
		if tc.Phase != "" {
			if err := c.SetPhase(tc.Phase); err != nil {
				return err
			}
		}
		for _, name := range tc.Dump {
			p, ok := c.PhaseMap[name]
			if !ok {
				return fmt.Errorf("unknown dump phase '%s'", name)
			}
			c.SetDump(p, true)
		}
	}
	return nil
}
