package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xplshn/gprev/pkg/cli"
	"github.com/xplshn/gprev/pkg/compiler"
	"github.com/xplshn/gprev/pkg/config"
	"github.com/xplshn/gprev/pkg/frame"
	"github.com/xplshn/gprev/pkg/interp"
	"github.com/xplshn/gprev/pkg/ir"
	"github.com/xplshn/gprev/pkg/linear"
	"github.com/xplshn/gprev/pkg/samples"
	"github.com/xplshn/gprev/pkg/util"
)

func main() {
	app := cli.NewApp("gprev")
	app.Synopsis = "[options] <sample>"
	app.Description = "Back end and interpreter for the PREV language. Lays out frames, generates tree intermediate code, linearizes it and runs it on a flat-memory machine."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/gprev>"
	app.Since = 2025

	cfg := config.NewConfig()

	var (
		phase      string
		configFile string
		memorySize int64
		maxDepth   int
		argument   int64
		debug      bool
		tree       bool
		stats      bool
		list       bool
	)

	fs := app.FlagSet
	fs.String(&phase, "phase", "p", "interpret", "Stop after the given phase (layout, imcode, lincode, interpret).", "phase")
	fs.String(&configFile, "config", "c", "", "Read settings from a TOML file. Command line flags take precedence.", "file")
	fs.Int64(&memorySize, "memory-size", "m", cfg.MemorySize, "Size of the interpreter's memory in bytes.", "bytes")
	fs.Int(&maxDepth, "stack-depth", "s", cfg.MaxDepth, "Maximum call depth before a stack overflow fault.", "calls")
	fs.Int64(&argument, "arg", "a", 0, "Argument passed to _main (defaults to the sample's own).", "int")
	fs.Bool(&debug, "debug", "d", false, "Trace every executed instruction.")
	fs.Bool(&tree, "tree", "t", false, "Interpret the tree intermediate code instead of the linearized code.")
	fs.Bool(&stats, "stats", "", false, "Print execution statistics.")
	fs.Bool(&list, "list", "l", false, "List the available samples and exit.")
	dumpFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(args []string) error {
		if list {
			for _, s := range samples.All() {
				fmt.Printf("%-12s %s (arg %d)\n", s.Name, s.Description, s.Arg)
			}
			return nil
		}

		if configFile != "" {
			if err := cfg.LoadFile(configFile); err != nil {
				util.Error("could not load '%s': %v", configFile, err)
			}
			util.Info("settings loaded from '%s'", configFile)
		}
		if fs.Changed("phase") || configFile == "" {
			if err := cfg.SetPhase(phase); err != nil {
				util.Error("%v", err)
			}
		}
		if fs.Changed("memory-size") {
			cfg.MemorySize = memorySize
		}
		if fs.Changed("stack-depth") {
			cfg.MaxDepth = maxDepth
		}
		if err := cfg.Validate(); err != nil {
			util.Error("%v", err)
		}
		cfg.Debug = cfg.Debug || debug
		cfg.Tree = cfg.Tree || tree
		cfg.Stats = cfg.Stats || stats
		cfg.ApplyFlagGroups(dumpFlags)

		if len(args) != 1 {
			util.Error("expected exactly one sample name, got %d (try --list)", len(args))
		}
		sample, ok := samples.Lookup(args[0])
		if !ok {
			util.Error("unknown sample '%s' (try --list)", args[0])
		}
		cfg.Argument = sample.Arg
		if fs.Changed("arg") {
			cfg.Argument = argument
		}
		return run(cfg, sample, os.Stdout)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, sample samples.Sample, out io.Writer) error {
	util.Phase(out, "Checking entry point...")
	unit, err := compiler.New(sample.Build())
	if err != nil {
		util.Error("%v", err)
	}

	util.Phase(out, "Laying out frames...")
	unit.LayOut()
	for _, f := range unit.Layout.Frames {
		if f.External() && !interp.IsBuiltin(f.Label.Name) {
			util.Warn("'%s' has no body and is not provided by the interpreter; calling it will fault", f.Label)
		}
	}
	if cfg.IsDumpEnabled(config.PhaseLayout) {
		frame.Dump(out, unit.Layout)
	}
	if !cfg.Reaches(config.PhaseImcode) {
		return nil
	}

	util.Phase(out, "Creating intermediate representation...")
	unit.Generate()
	if cfg.IsDumpEnabled(config.PhaseImcode) {
		ir.Dump(out, unit.Chunks)
	}
	if !cfg.Reaches(config.PhaseLincode) {
		return nil
	}

	util.Phase(out, "Linearizing...")
	unit.Linearize()
	if cfg.IsDumpEnabled(config.PhaseLincode) {
		linear.Dump(out, unit.Linear)
	}
	if !cfg.Reaches(config.PhaseInterpret) {
		return nil
	}

	prog := unit.Linear
	if cfg.Tree {
		prog = unit.Tree
	}
	opts := cfg.Options()
	opts.Output = out
	if cfg.Debug {
		opts.Trace = os.Stderr
	}
	m, err := interp.New(prog, opts)
	if err != nil {
		util.Error("%v", err)
	}

	util.Phase(out, "Running %s(%d)...", compiler.EntryName, cfg.Argument)
	ret, runErr := m.Run(compiler.EntryName, cfg.Argument)
	if cfg.IsDumpEnabled(config.PhaseInterpret) {
		fmt.Fprintf(out, "state=%s digest=%016x\n", m.State(), m.Digest())
	}
	if cfg.Stats {
		st := m.Stats()
		fmt.Fprintf(out, "instructions: %s\ncalls:        %s\nmax depth:    %d\npeak stack:   %s of %s\n",
			util.Count(st.Instructions), util.Count(st.Calls), st.MaxDepth, util.Bytes(st.PeakStack), util.Bytes(cfg.MemorySize))
	}

	var fault *interp.Fault
	if errors.As(runErr, &fault) {
		util.Error("runtime fault: %v", fault)
	} else if runErr != nil {
		util.Error("%v", runErr)
	}
	fmt.Fprintf(out, "%s returned %d\n", compiler.EntryName, ret)
	return nil
}
