package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sanadlab/migmate/internal/differ"
	"github.com/sanadlab/migmate/internal/hunk"
	"github.com/sanadlab/migmate/internal/planner"
)

// Content sources.
const (
	SourceDir      = "dir"
	SourceGit      = "git"
	SourceMarkdown = "markdown"
)

// Document hosts.
const (
	HostDisk = "disk"
	HostNvim = "nvim"
)

// Config holds the merged settings of flags, MIGMATE_* environment variables and the .migmate.yaml config file, in that order of precedence.
type Config struct {
	Source      string
	OriginalDir string
	UpdatedDir  string
	Ref         string
	LookupDirs  []string
	Include     []string
	Exclude     []string

	Host   string
	Buffer bool

	// Selections maps a file path, as given, to the hunks chosen for it. All, or an empty map, selects every hunk of every file.
	Selections map[string]planner.Selection
	All        bool

	Algorithm    differ.Algorithm
	ContextLines int
	Workers      int
	Watch        bool

	Report  string
	Debug   bool
	LogFile string

	DryRun    bool
	PrintDiff bool
	FixDiff   bool
	NoTUI     bool
	Undo      bool
	Redo      bool
}

// Parse reads the configuration for args, which exclude the program name. It returns pflag.ErrHelp when help was requested.
func Parse(args []string, stderr io.Writer) (*Config, error) {
	flags := pflag.NewFlagSet("migmate", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configFile := flags.StringP("config", "c", "", "Config file (default .migmate.yaml in the current directory).")

	flags.StringP("source", "s", SourceDir, "Content source: dir, git or markdown.")
	flags.String("original-dir", "", "Directory holding the files to edit (dir source).")
	flags.String("updated-dir", "", "Directory holding the migrated files (dir source).")
	flags.String("ref", "HEAD", "Revision providing the updated content (git source).")
	flags.StringSliceP("lookup-dir", "l", nil, "Directories to resolve markdown file paths against.")
	flags.StringArrayP("include", "i", nil, "Only reconcile files matching this glob. Repeatable.")
	flags.StringArrayP("exclude", "x", nil, "Skip files matching this glob. Repeatable.")

	flags.String("host", HostDisk, "Where documents are edited: disk or nvim.")
	flags.BoolP("buffer", "b", false, "With the nvim host, update buffers without saving them to disk.")

	flags.StringArray("select", nil, "Hunks to apply as PATH:ID,ID or PATH:all. Repeatable. Unlisted files are left alone.")
	flags.BoolP("all", "a", false, "Apply every hunk of every file.")

	flags.String("algorithm", string(differ.DefaultAlgorithm), "Line diff algorithm: myers or difflib.")
	flags.Int("context-lines", hunk.DefaultContextLines, "Context lines kept around each hunk.")
	flags.IntP("workers", "j", 0, "Files diffed concurrently (0 means all at once).")
	flags.Bool("watch", true, "Drop pending changes of files modified while the session is open.")

	flags.String("report", "", "Write per-file results to this file (.json or .yaml).")
	flags.Bool("debug", false, "Write a debug log to the state directory.")
	flags.String("log-file", "", "Write the log to this file.")

	flags.BoolP("dry-run", "n", false, "Print the planned edits without applying them.")
	flags.BoolP("print-diff", "d", false, "Print a unified diff of every change and exit.")
	flags.BoolP("fix-diff", "o", false, "Print the diff blocks of the markdown input with corrected line numbers and exit.")
	flags.Bool("no-tui", false, "Apply without the interactive selection screen.")
	flags.BoolP("undo", "u", false, "Undo the last applied reconciliation.")
	flags.BoolP("redo", "r", false, "Redo the last undone reconciliation.")

	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: migmate [flags] [ORIGINAL_DIR UPDATED_DIR]")
		fmt.Fprintln(stderr, "\nReconcile migrated files with the live ones, hunk by hunk.")
		fmt.Fprintln(stderr, "\nExample: migmate --no-tui --select app.py:0,2 src/ migrated/src/")
		fmt.Fprintln(stderr, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("MIGMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName(".migmate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	alg, err := differ.ParseAlgorithm(v.GetString("algorithm"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Source:       v.GetString("source"),
		OriginalDir:  v.GetString("original-dir"),
		UpdatedDir:   v.GetString("updated-dir"),
		Ref:          v.GetString("ref"),
		LookupDirs:   v.GetStringSlice("lookup-dir"),
		Include:      stringList(flags, v, "include"),
		Exclude:      stringList(flags, v, "exclude"),
		Host:         v.GetString("host"),
		Buffer:       v.GetBool("buffer"),
		All:          v.GetBool("all"),
		Algorithm:    alg,
		ContextLines: v.GetInt("context-lines"),
		Workers:      v.GetInt("workers"),
		Watch:        v.GetBool("watch"),
		Report:       v.GetString("report"),
		Debug:        v.GetBool("debug"),
		LogFile:      v.GetString("log-file"),
		DryRun:       v.GetBool("dry-run"),
		PrintDiff:    v.GetBool("print-diff"),
		FixDiff:      v.GetBool("fix-diff"),
		NoTUI:        v.GetBool("no-tui"),
		Undo:         v.GetBool("undo"),
		Redo:         v.GetBool("redo"),
	}

	if rest := flags.Args(); len(rest) > 0 {
		if len(rest) != 2 {
			return nil, fmt.Errorf("expected ORIGINAL_DIR and UPDATED_DIR, got %d argument(s)", len(rest))
		}
		cfg.OriginalDir, cfg.UpdatedDir = rest[0], rest[1]
	}

	cfg.Selections, err = ParseSelections(stringList(flags, v, "select"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stringList reads a repeatable flag. Flag values are taken verbatim because viper would split them on commas, which globs and selections contain.
func stringList(flags *pflag.FlagSet, v *viper.Viper, name string) []string {
	if flags.Changed(name) {
		values, _ := flags.GetStringArray(name)
		return values
	}
	return v.GetStringSlice(name)
}

// ParseSelections parses PATH:IDS entries. A bare PATH selects all of its hunks.
func ParseSelections(entries []string) (map[string]planner.Selection, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]planner.Selection, len(entries))
	for _, e := range entries {
		path, ids, found := strings.Cut(e, ":")
		path = strings.TrimSpace(path)
		if path == "" {
			return nil, fmt.Errorf("invalid selection %q: missing path", e)
		}
		sel := planner.All()
		if found {
			var err error
			if sel, err = planner.ParseSelection(ids); err != nil {
				return nil, fmt.Errorf("invalid selection %q: %w", e, err)
			}
		}
		if prev, ok := out[path]; ok {
			if prev.IsAll() || sel.IsAll() {
				sel = planner.All()
			} else {
				sel = prev.Add(sel.IDs()...)
			}
		}
		out[path] = sel
	}
	return out, nil
}

// Validate checks that the settings are consistent.
func (c *Config) Validate() error {
	if c.Undo && c.Redo {
		return fmt.Errorf("--undo and --redo are mutually exclusive")
	}
	switch c.Source {
	case SourceDir:
		if !c.Undo && !c.Redo && !c.FixDiff && (c.OriginalDir == "" || c.UpdatedDir == "") {
			return fmt.Errorf("the dir source needs --original-dir and --updated-dir")
		}
	case SourceGit, SourceMarkdown:
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	switch c.Host {
	case HostDisk, HostNvim:
	default:
		return fmt.Errorf("unknown host %q", c.Host)
	}
	if c.ContextLines < 0 {
		return fmt.Errorf("--context-lines must not be negative")
	}
	return nil
}
