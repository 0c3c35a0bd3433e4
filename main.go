// tsmodel extracts a language-agnostic semantic model from a TypeScript project.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	slogctx "github.com/veqryn/slog-context"
	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/tsmodel/internal/canon"
	"github.com/phobologic/tsmodel/internal/config"
	"github.com/phobologic/tsmodel/internal/discover"
	"github.com/phobologic/tsmodel/internal/enrich"
	"github.com/phobologic/tsmodel/internal/extract"
	"github.com/phobologic/tsmodel/internal/logging"
	"github.com/phobologic/tsmodel/internal/toon"
	"github.com/phobologic/tsmodel/internal/tsprogram"
)

var version = "dev"

// errUnresolved is returned after the artifact is written when
// --fail-on-unresolved is set and the report holds unresolved references.
var errUnresolved = errors.Base("unresolved references")

const (
	formatJSON = "json"
	formatTOON = "toon"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errUnresolved) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type cliFlags struct {
	output           string
	format           string
	deep             bool
	modules          bool
	configPath       string
	reportPath       string
	failOnUnresolved bool
	logLevel         string
	noColor          bool
	showVersion      bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) > 0 && args[0] == "init" {
		return runInit(args[1:], stdout, stderr)
	}

	fs := flag.NewFlagSet("tsmodel", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var f cliFlags
	fs.StringVar(&f.output, "o", "", "write the model to this file instead of stdout")
	fs.StringVar(&f.output, "output", "", "write the model to this file instead of stdout")
	fs.StringVar(&f.format, "format", formatJSON, "output format: json or toon")
	fs.BoolVar(&f.deep, "deep", false, "draw dependency edges for every member and signature type")
	fs.BoolVar(&f.modules, "modules", false, "model each source file as a MODULE classifier")
	fs.StringVar(&f.configPath, "config", "", "config file (default <root>/"+config.FileName+")")
	fs.StringVar(&f.reportPath, "report", "", "write the extraction report as JSON to this file")
	fs.BoolVar(&f.failOnUnresolved, "fail-on-unresolved", false, "exit 2 when references stay unresolved")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.BoolVar(&f.noColor, "no-color", false, "disable colored log output")
	fs.BoolVar(&f.showVersion, "V", false, "show version and exit")
	fs.BoolVar(&f.showVersion, "version", false, "show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tsmodel [flags] [root]\n       tsmodel init [--dry-run] [path]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if f.showVersion {
		_, _ = fmt.Fprintf(stdout, "tsmodel %s\n", version)
		return nil
	}
	if f.format != formatJSON && f.format != formatTOON {
		return errors.Errorf("unknown format %q", f.format)
	}

	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return errors.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return errors.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return errors.Errorf("%s: not a directory", root)
	}

	cfg, err := config.Load(root, f.configPath, getenv)
	if err != nil {
		return err
	}
	applyFlags(fs, &f, cfg)

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	ctx = logging.Setup(ctx, stderr, level, !f.noColor && logging.IsTerminal(stderr))
	if cfg.Source != "" {
		slogctx.Debug(ctx, "config loaded", "path", cfg.Source)
	}

	files, skipped, err := discover.Files(ctx, root, discover.Options{
		Include:             cfg.Include,
		Exclude:             cfg.Exclude,
		IncludeDeclarations: cfg.IncludeDeclarations,
		MaxFileSize:         cfg.MaxFileSize,
	})
	if err != nil {
		return errors.Errorf("discovering files: %w", err)
	}
	for _, s := range skipped {
		slogctx.Warn(ctx, "skipping file", "path", s.Path, "reason", s.Reason)
	}
	if len(files) == 0 {
		return errors.Errorf("%s: %w", root, tsprogram.ErrNoFiles)
	}

	prog, err := tsprogram.Load(ctx, root, files,
		tsprogram.WithBaseURL(cfg.BaseURL),
		tsprogram.WithPaths(cfg.Paths),
	)
	if err != nil {
		return errors.Errorf("loading program: %w", err)
	}

	res, err := extract.Run(ctx, prog, extract.Options{
		DeepDependencies:  cfg.DeepDependencies,
		ModuleClassifiers: cfg.ModuleClassifiers,
		MaxTypeDepth:      cfg.MaxTypeDepth,
		Enrichers:         enrich.Default(cfg.Frameworks),
	})
	if err != nil {
		return errors.Errorf("extracting model: %w", err)
	}

	if err := writeArtifact(f.output, stdout, func(w io.Writer) error {
		if f.format == formatTOON {
			_, err := fmt.Fprintln(w, toon.Encode(res.Model))
			return errors.WithStack(err)
		}
		return canon.Write(w, res.Model)
	}); err != nil {
		return err
	}
	if f.reportPath != "" {
		if err := writeArtifact(f.reportPath, stdout, func(w io.Writer) error {
			return canon.Write(w, res.Report.Summary())
		}); err != nil {
			return err
		}
	}

	var size int64
	for _, file := range files {
		size += file.Size
	}
	slogctx.Info(ctx, fmt.Sprintf("modeled %s files (%s): %s classifiers, %s relations, %s findings",
		humanize.Comma(int64(len(files))),
		humanize.Bytes(uint64(size)),
		humanize.Comma(int64(len(res.Model.Classifiers))),
		humanize.Comma(int64(len(res.Model.Relations))),
		humanize.Comma(int64(len(res.Report.Findings()))),
	))

	if cfg.FailOnUnresolved {
		if n := res.Report.Unresolved(); n > 0 {
			return errors.Errorf("%d %w", n, errUnresolved)
		}
	}
	return nil
}

// applyFlags lays explicitly set flags over the loaded configuration.
func applyFlags(fs *flag.FlagSet, f *cliFlags, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "deep":
			cfg.DeepDependencies = f.deep
		case "modules":
			cfg.ModuleClassifiers = f.modules
		case "fail-on-unresolved":
			cfg.FailOnUnresolved = f.failOnUnresolved
		case "log-level":
			cfg.LogLevel = f.logLevel
		}
	})
}

// writeArtifact writes to path, or to stdout when path is empty.
func writeArtifact(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	out, err := os.Create(path)
	if err != nil {
		return errors.Errorf("creating %s: %w", path, err)
	}
	if err := write(out); err != nil {
		_ = out.Close()
		return errors.Errorf("writing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return errors.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-o": true, "--o": true,
	"-output": true, "--output": true,
	"-format": true, "--format": true,
	"-config": true, "--config": true,
	"-report": true, "--report": true,
	"-log-level": true, "--log-level": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
