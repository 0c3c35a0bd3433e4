package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/tsmodel/internal/config"
)

const (
	sentinelStart = "# tsmodel:start"
	sentinelEnd   = "# tsmodel:end"
)

var keyComments = map[string]string{
	"include":             "Gitignore-style patterns; empty keeps every TypeScript file.",
	"exclude":             "Gitignore-style patterns removed after include.",
	"includeDeclarations": "Also model .d.ts files.",
	"deepDependencies":    "Draw DEPENDENCY edges for every member and signature type.",
	"moduleClassifiers":   "Model each source file as a MODULE classifier and emit the import graph.",
	"maxTypeDepth":        "Type nesting past this depth normalizes to UNKNOWN.",
	"maxFileSize":         "Files larger than this many bytes are skipped.",
	"baseUrl":             "Directory bare specifiers resolve against, relative to the project root.",
	"paths":               "Module aliases, e.g. \"@app/*\": [\"src/app/*\"].",
	"frameworks":          "Module prefix to framework namespace, merged over the built-in table.",
	"failOnUnresolved":    "Exit 2 when type or import references stay unresolved.",
	"logLevel":            "debug, info, warn or error.",
}

// runInit implements the `tsmodel init` subcommand, which writes (or updates)
// a commented default configuration block in .tsmodel.yaml.
func runInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tsmodel init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: tsmodel init [flags] [path]

Write the default tsmodel configuration to a YAML file. The block is wrapped in
sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

path defaults to ./%s.

Flags:
`, config.FileName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	section, err := generateSection()
	if err != nil {
		return err
	}

	if dryRun && fs.NArg() == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := config.FileName
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Errorf("reading %s: %w", path, err)
	}
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return errors.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote tsmodel configuration to %s\n", path)
	return nil
}

// generateSection renders the default configuration with one comment per key,
// wrapped in sentinels.
func generateSection() (string, error) {
	var doc yaml.Node
	if err := doc.Encode(config.Default()); err != nil {
		return "", errors.WithStack(err)
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		key.HeadComment = keyComments[key.Value]
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", errors.WithStack(err)
	}
	if err := enc.Close(); err != nil {
		return "", errors.WithStack(err)
	}
	return sentinelStart + "\n" + strings.TrimRight(buf.String(), "\n") + "\n" + sentinelEnd, nil
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	if content == "" {
		return section + "\n"
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
