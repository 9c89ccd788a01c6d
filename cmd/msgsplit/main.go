package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/msgsplit/internal/config"
	"github.com/dgallion1/msgsplit/internal/doctree"
	"github.com/dgallion1/msgsplit/internal/fragmenter"
	"github.com/dgallion1/msgsplit/internal/parser"
	"github.com/dgallion1/msgsplit/internal/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

// splitFlags are shared by the root and send commands.
type splitFlags struct {
	maxLen      int
	blocks      string
	maxDepth    int
	strict      bool
	profilePath string
	format      string

	// fallbackBlocks replaces the built-in block set when neither the
	// environment, the profile nor --blocks names one.
	fallbackBlocks string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags splitFlags
	log := slog.New(slog.NewTextHandler(stderr, nil))

	root := &cobra.Command{
		Use:   "msgsplit INPUT_FILE",
		Short: "Split HTML into length-limited, well-formed fragments",
		Long: `msgsplit splits an HTML document into fragments no longer than --max-len
characters. Block tags cut by a split are closed and reopened so every
fragment is valid HTML on its own.

Examples:
  msgsplit message.html
  msgsplit message.html --max-len 1024 --blocks p,div,ul
  msgsplit notes.md --format auto --config telegram.yaml
  msgsplit send message.html --to telegram`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, _, err := splitFile(cmd, args[0], flags, log)
			if err != nil {
				return err
			}
			writeFragments(stdout, seq)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.IntVar(&flags.maxLen, "max-len", fragmenter.DefaultMaxLen, "Maximum fragment length in characters")
	pf.StringVar(&flags.blocks, "blocks", "", "Comma-separated block tags that may be split (default p,b,strong,i,ul,ol,div,span)")
	pf.IntVar(&flags.maxDepth, "max-depth", fragmenter.DefaultMaxDepth, "Block nesting deeper than this is kept whole")
	pf.BoolVar(&flags.strict, "strict", false, "Fail instead of emitting oversized fragments")
	pf.StringVar(&flags.profilePath, "config", "", "YAML profile with max_len, block_tags, max_depth and strict")
	pf.StringVar(&flags.format, "format", "html", "Input format: html, or auto to choose by file extension")

	root.AddCommand(newSendCmd(&flags, log))

	root.SetOut(stdout)
	root.SetErr(stderr)
	return root
}

// resolveOptions layers settings: environment, then the profile file, then
// flags given on the command line.
func resolveOptions(cmd *cobra.Command, flags splitFlags) (fragmenter.Options, config.Config, error) {
	cfg := config.Load()
	if flags.profilePath != "" {
		p, err := config.LoadProfile(flags.profilePath)
		if err != nil {
			return fragmenter.Options{}, cfg, err
		}
		cfg = p.Apply(cfg)
	}
	if strings.TrimSpace(cfg.BlockTags) == "" {
		cfg.BlockTags = flags.fallbackBlocks
	}

	fs := cmd.Flags()
	if fs.Changed("max-len") {
		cfg.MaxLen = flags.maxLen
	}
	if fs.Changed("blocks") {
		cfg.BlockTags = flags.blocks
		if strings.TrimSpace(flags.blocks) == "" {
			return fragmenter.Options{}, cfg, &fragmenter.ConfigError{Field: "block_tags", Reason: "no tag names given"}
		}
	}
	if fs.Changed("max-depth") {
		cfg.MaxDepth = flags.maxDepth
	}
	if fs.Changed("strict") {
		cfg.Strict = flags.strict
	}

	opts, err := cfg.FragmenterOptions()
	return opts, cfg, err
}

// splitFile reads, parses and splits path. Oversized fragments are logged.
func splitFile(cmd *cobra.Command, path string, flags splitFlags, log *slog.Logger) (doctree.Sequence, config.Config, error) {
	opts, cfg, err := resolveOptions(cmd, flags)
	if err != nil {
		return nil, cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cfg, err
	}

	var p parser.Parser = &parser.HTMLParser{}
	switch flags.format {
	case "html":
	case "auto":
		if parser.IsSupportedExtension(path) {
			if p, err = parser.ForFile(path); err != nil {
				return nil, cfg, err
			}
		}
	default:
		return nil, cfg, fmt.Errorf("unknown format %q (want html or auto)", flags.format)
	}

	tree, err := p.Parse(bytes.NewReader(data), filepath.Base(path))
	if err != nil {
		return nil, cfg, err
	}
	seq, err := pipeline.SplitTree(tree, opts, nil)
	if err != nil {
		return nil, cfg, err
	}
	for _, f := range seq {
		if f.Overflow {
			log.Warn("fragment exceeds max length", "fragment", f.Index, "length", f.Length, "max_len", opts.MaxLen)
		}
	}
	return seq, cfg, nil
}

func writeFragments(w io.Writer, seq doctree.Sequence) {
	for _, f := range seq {
		fmt.Fprintf(w, "-- fragment #%d: %d chars --\n%s\n\n", f.Index, f.Length, f.Markup)
	}
}
