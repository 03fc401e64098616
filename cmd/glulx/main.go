// glulx runs Glulx story files on a plain terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/glulx/blorb"
	"github.com/chazu/glulx/config"
	"github.com/chazu/glulx/glk/stdio"
	"github.com/chazu/glulx/savestore"
	"github.com/chazu/glulx/vm"
)

const profileRows = 20

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is main without the process exit, so it can be tested.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("glulx", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Configuration file (default: "+config.FileName+" found above the current directory)")
	verbosity := fs.Int("v", 0, "Log verbosity, -4 (silent) to 2 (debug)")
	seed := fs.Uint("seed", 0, "Random seed; 0 seeds from the clock")
	trace := fs.Bool("trace", false, "Log every instruction (with -v 2)")
	profile := fs.Bool("profile", false, "Print function and opcode counts on exit")
	noAccel := fs.Bool("no-accel", false, "Never run accelerated functions natively")
	width := fs.Int("width", 0, "Output width in columns; 0 detects the terminal")
	saves := fs.String("saves", "", "Directory for saved games and data files")
	savedb := fs.String("savedb", "", "SQLite database for saved games and data files")
	disasm := fs.Int("disasm", 0, "Print this many instructions of the start function and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: glulx [options] story.ulx|story.gblorb\n\n")
		fmt.Fprintf(stderr, "Runs a Glulx story file, reading commands from standard input.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  glulx advent.ulx                      # Play\n")
		fmt.Fprintf(stderr, "  glulx -seed 42 game.gblorb < walkthru # Replay a transcript\n")
		fmt.Fprintf(stderr, "  glulx -savedb saves.db game.gblorb    # Keep saves in SQLite\n")
		fmt.Fprintf(stderr, "  glulx -disasm 20 game.ulx             # List the start function\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	storyPath := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return 1
	}

	// Flags given on the command line override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Log.Verbosity = *verbosity
		case "seed":
			cfg.Interpreter.RandomSeed = uint32(*seed)
		case "trace":
			cfg.Interpreter.Trace = *trace
		case "profile":
			cfg.Interpreter.Profile = *profile
		case "no-accel":
			cfg.Interpreter.Accel = !*noAccel
		case "width":
			cfg.Display.Width = *width
		case "saves":
			cfg.Saves.Dir = *saves
		case "savedb":
			cfg.Saves.Database = *savedb
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid options: %v\n", err)
		return 2
	}

	if logFile := cfg.LogFile(); logFile != "" {
		commonlog.Configure(cfg.Log.Verbosity, &logFile)
	} else {
		commonlog.Configure(cfg.Log.Verbosity, nil)
	}
	log := commonlog.GetLogger("glulx.cli")

	data, err := os.ReadFile(storyPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading story file: %v\n", err)
		return 1
	}
	image, archive, err := blorb.FindExecutable(data)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", storyPath, err)
		return 1
	}
	hdr, err := vm.ParseHeader(image)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", storyPath, err)
		return 1
	}

	opts := stdio.Options{
		Width: cfg.Display.Width,
		Wrap:  cfg.Display.Wrap,
	}
	if f, ok := stdin.(*os.File); ok {
		opts.EchoInput = !stdio.IsTerminal(f)
	}
	if archive != nil {
		opts.Resources = archive
		log.Infof("blorb archive with %d resources", len(archive.Resources()))
	}
	if db := cfg.DatabasePath(); db != "" {
		store, err := savestore.Open(db)
		if err != nil {
			fmt.Fprintf(stderr, "Error opening save database: %v\n", err)
			return 1
		}
		defer store.Close()
		opts.Storage = store.Storage(gameKey(storyPath, hdr))
	} else {
		opts.Storage = stdio.DirStorage{Dir: cfg.SavesDir()}
	}

	term := stdio.New(stdin, stdout, opts)
	machine := vm.NewVM(term)
	machine.SetAccelEnabled(cfg.Interpreter.Accel)
	machine.SetTrace(cfg.Interpreter.Trace)
	machine.SeedRandom(cfg.Interpreter.RandomSeed)
	machine.SetStackLimit(cfg.Interpreter.StackLimit)
	var prof *vm.Profiler
	if cfg.Interpreter.Profile {
		prof = machine.EnableProfiler()
	}

	if err := machine.LoadImageFromBytes(image); err != nil {
		fmt.Fprintf(stderr, "Error loading %s: %v\n", storyPath, err)
		return 1
	}

	if *disasm > 0 {
		body, err := machine.FunctionBody(hdr.StartFunc)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		listing, err := machine.Disassemble(body, *disasm)
		fmt.Fprint(stdout, listing)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("running %s", storyPath)
	runErr := machine.Run(ctx)
	if err := term.Close(); err != nil {
		log.Warningf("closing terminal: %s", err)
	}
	if prof != nil {
		fmt.Fprint(stderr, prof.Report(profileRows))
	}

	switch {
	case runErr == nil:
		return 0
	case errors.Is(runErr, vm.ErrInterrupted):
		fmt.Fprintln(stderr, "Interrupted")
		return 130
	default:
		fmt.Fprintln(stderr, runErr)
		return 1
	}
}

// loadConfig reads the named file, or the nearest glulx.toml, or falls
// back to the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// gameKey names a story in the save database. The checksum keeps
// different releases with the same file name apart.
func gameKey(storyPath string, hdr *vm.Header) string {
	base := filepath.Base(storyPath)
	return fmt.Sprintf("%s-%08x", strings.TrimSuffix(base, filepath.Ext(base)), hdr.Checksum)
}
