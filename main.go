// docdrift detects documentation that has drifted from the code it describes,
// ranks the drift by urgency and proposes repairs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tosin2013/docdrift/internal/config"
	"github.com/tosin2013/docdrift/internal/engine"
	"github.com/tosin2013/docdrift/internal/lang"
	"github.com/tosin2013/docdrift/internal/logging"
	"github.com/tosin2013/docdrift/internal/model"
)

var version = "dev"

// errDrift is returned by detect --fail-on when drift at or above the
// threshold was found.
var errDrift = errors.New("documentation drift found")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errDrift) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalOptions holds the persistent flags. Flags override the project
// configuration only when set.
type globalOptions struct {
	docs      string
	store     string
	logLevel  string
	logJSON   bool
	quiet     bool
	noColor   bool
	languages []string
	workers   int
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "docdrift",
		Short: "Detect documentation drift",
		Long: `docdrift models a project's source code and markdown documentation,
compares the model with a stored baseline snapshot, and reports which
documents no longer match the code, ranked by how urgently they need fixing.

Record a baseline with "docdrift snapshot", then run "docdrift detect" after
changing code. "docdrift apply" previews or writes the suggested repairs.

Settings are read from .docdrift.toml in the project root, then .env and
DOCDRIFT_* environment variables, then flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.docs, "docs", "", "documentation directory, relative to the project root")
	pf.StringVar(&opts.store, "store", "", "snapshot store: dir or badger")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&opts.logJSON, "log-json", false, "write log records as JSON")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "discard log output")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	pf.StringSliceVarP(&opts.languages, "langs", "l", nil, "comma-separated languages to include")
	pf.IntVar(&opts.workers, "workers", 0, "parse concurrency (0 means one per CPU)")

	cmd.AddCommand(
		newSnapshotCmd(opts),
		newDetectCmd(opts),
		newApplyCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("docdrift %s\n", version)
		},
	}
}

// session is the per-command state shared by every subcommand.
type session struct {
	root   string
	cfg    config.Config
	logger *slog.Logger
	engine *engine.Engine
}

func (s *session) Close() error {
	return s.engine.Close()
}

// open resolves the project root from args, loads its configuration, applies
// flag overrides and opens the engine.
func (o *globalOptions) open(cmd *cobra.Command, args []string) (*session, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("docs") {
		cfg.DocsDir = o.docs
	}
	if flags.Changed("store") {
		cfg.Store = o.store
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = o.logJSON
	}
	if flags.Changed("langs") {
		cfg.Languages = o.languages
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if err := validateLanguages(cfg.Languages); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		JSON:   cfg.LogJSON,
		Quiet:  o.quiet,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	store, err := engine.OpenStore(cfg, root, logger)
	if err != nil {
		return nil, err
	}
	return &session{
		root:   root,
		cfg:    cfg,
		logger: logger,
		engine: engine.New(cfg, store, engine.WithLogger(logger)),
	}, nil
}

func validateLanguages(names []string) error {
	known := lang.Names()
	for _, name := range names {
		if !slices.Contains(known, name) {
			return fmt.Errorf("unsupported language %q (supported: %s)", name, strings.Join(known, ", "))
		}
	}
	return nil
}

// parseTier validates a recommendation name.
func parseTier(name string) (model.Recommendation, error) {
	r := model.Recommendation(strings.ToLower(name))
	switch r {
	case model.RecommendCritical, model.RecommendHigh, model.RecommendMedium, model.RecommendLow:
		return r, nil
	}
	return "", fmt.Errorf("unknown priority %q (want critical, high, medium or low)", name)
}
