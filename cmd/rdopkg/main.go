// cmd/rdopkg/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jcapiitao/rdopkg/internal/config"
	"github.com/jcapiitao/rdopkg/internal/journal"
	"github.com/jcapiitao/rdopkg/internal/logging"
	"github.com/jcapiitao/rdopkg/internal/oracle"
	"github.com/jcapiitao/rdopkg/internal/workspace"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	specPath   string
	configPath string
	logLevel   string
	dryRun     bool
	defines    []string
)

// app is the per-invocation state built before any subcommand runs
var app struct {
	cfg     *config.Config
	logger  *logging.Logger
	oracle  oracle.Oracle
	session string
	journal *journal.Journal
}

var rootCmd = &cobra.Command{
	Use:   "rdopkg",
	Short: "rdopkg edits RPM .spec files in place",
	Long: `rdopkg reads and edits RPM .spec files without reformatting them.
Tags, macros, magic comments, the Release field, the patch series,
subpackage dependencies and the changelog can be inspected and changed
while every untouched byte of the file is preserved.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func setup(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		configPath = config.Path()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	app.session = uuid.NewString()
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	app.logger = logger.WithSession(app.session)
	app.cfg = cfg

	app.oracle, err = oracle.Resolve(cfg.Oracle, cfg.RPMBinary, app.logger.Logger)
	if err != nil {
		return err
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if app.journal != nil {
		return app.journal.Close()
	}
	return nil
}

// openJournal opens the snapshot journal once, when the config enables it
func openJournal() (*journal.Journal, error) {
	if app.journal != nil || !app.cfg.Journal.Enabled {
		return app.journal, nil
	}
	j, err := journal.Open(app.cfg.Journal.Path, journal.Options{
		CacheSize: app.cfg.Journal.CacheSize,
		Logger:    app.logger.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	app.journal = j
	return j, nil
}

func parseDefines() (map[string]string, error) {
	out := make(map[string]string, len(defines))
	for _, d := range defines {
		name, value, ok := strings.Cut(d, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --define %q (want NAME=VALUE)", d)
		}
		out[name] = value
	}
	return out, nil
}

func openWorkspace() (*workspace.Workspace, error) {
	j, err := openJournal()
	if err != nil {
		return nil, err
	}
	defs, err := parseDefines()
	if err != nil {
		return nil, err
	}
	return workspace.Open(specPath, workspace.Options{
		Oracle:  app.oracle,
		Logger:  app.logger,
		Journal: j,
		Keep:    app.cfg.Journal.Keep,
		Session: app.session,
		Defines: defs,
	})
}

// finish saves the workspace, or prints what would change with --dry-run
func finish(ws *workspace.Workspace, op string) error {
	if dryRun {
		d, err := ws.Diff()
		if err != nil {
			return err
		}
		if d == "" {
			fmt.Println("No changes")
			return nil
		}
		printColoredDiff(d)
		return nil
	}

	snap, err := ws.Save(op)
	if err != nil {
		return err
	}
	if snap != nil {
		app.logger.Debug("snapshot recorded", zap.String("id", snap.ID))
	}
	return nil
}

func printColoredDiff(diff string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			header.Println(line)
		case strings.HasPrefix(line, "@@"):
			header.Println(line)
		case strings.HasPrefix(line, "+"):
			added.Println(line)
		case strings.HasPrefix(line, "-"):
			removed.Println(line)
		default:
			fmt.Println(line)
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&specPath, "spec", "s", ".", "Spec file, or directory holding it")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $RDOPKG_CONFIG or user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the diff instead of saving")
	rootCmd.PersistentFlags().StringArrayVarP(&defines, "define", "D", nil, "Define a macro for this spec (NAME=VALUE)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
