package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/abo-offspring-analyzer/internal/batch"
	"github.com/abo-offspring-analyzer/internal/config"
	"github.com/abo-offspring-analyzer/internal/database"
	"github.com/abo-offspring-analyzer/internal/domain"
	"github.com/abo-offspring-analyzer/internal/ingest"
	"github.com/abo-offspring-analyzer/internal/logging"
	"github.com/abo-offspring-analyzer/internal/report"
	"github.com/abo-offspring-analyzer/internal/results"
	"github.com/abo-offspring-analyzer/internal/service"
)

// ErrUsage is returned for unknown commands and malformed arguments.
var ErrUsage = errors.New("invalid usage")

// CLI implements the abo-analyzer command line.
type CLI struct {
	Stdout io.Writer
	Stderr io.Writer
	// Logs receives log output; it defaults to Stderr.
	Logs io.Writer
}

// NewCLI creates a CLI bound to the process streams.
func NewCLI() *CLI {
	return &CLI{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes the command named by args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	global := flag.NewFlagSet("abo-analyzer", flag.ContinueOnError)
	global.SetOutput(c.Stderr)
	configFile := global.String("config", "", "path to a configuration file")
	global.Usage = func() { c.showHelp(c.Stderr) }
	if err := global.Parse(args); err != nil {
		return usageError(err)
	}
	args = global.Args()

	if len(args) == 0 {
		c.showHelp(c.Stdout)
		return nil
	}

	switch args[0] {
	case "process":
		return c.process(ctx, *configFile, args[1:])
	case "cross":
		return c.cross(ctx, *configFile, args[1:])
	case "export":
		return c.export(ctx, *configFile, args[1:])
	case "migrate":
		return c.migrate(ctx, *configFile, args[1:])
	case "help", "--help", "-h":
		c.showHelp(c.Stdout)
		return nil
	default:
		fmt.Fprintf(c.Stderr, "Unknown command: %s\n\n", args[0])
		c.showHelp(c.Stderr)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func (c *CLI) showHelp(w io.Writer) {
	help := `
ABO offspring blood-group analyzer

Usage:
  abo-analyzer [--config FILE] <command> [options]

Commands:
  process [--data-dir DIR]          Analyze every JSON file in DIR/pending
  cross <father> <mother> [--json]  Print the offspring distribution of one pair
  export [--out FILE]               Export the stored result history as JSON
  migrate up|down                   Apply or roll back PostgreSQL migrations

Input files hold a list of parent pairs, either
  [{"padre": "A", "madre": "O"}, ...]
or
  {"parents": [{"father": {"gs": "A", "rh": "+"}, "mother": {"gs": "O"}}, ...]}

Processed files move to DIR/done; results accumulate in
DIR/resultados/resultados.json with one chart per pair in
DIR/resultados/graficos.

Configuration is read from config.yaml and ABO_* environment variables,
for example ABO_STORAGE_BACKEND=sqlite or ABO_LOGGING_LEVEL=debug.
`
	fmt.Fprint(w, help)
}

func (c *CLI) loadConfig(configFile string) (*domain.Config, *logrus.Logger, error) {
	var opts []config.Option
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	manager, err := config.NewManager(opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := manager.GetConfig()
	out := c.Logs
	if out == nil {
		out = c.Stderr
	}
	logger := logging.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, out)
	if used := manager.ConfigFileUsed(); used != "" {
		logger.WithField("config_file", used).Debug("Configuration loaded")
	}
	return cfg, logger, nil
}

func (c *CLI) process(ctx context.Context, configFile string, args []string) error {
	fs := c.flagSet("process")
	dataDir := fs.String("data-dir", "", "data directory holding pending/, done/ and resultados/")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}

	cfg, logger, err := c.loadConfig(configFile)
	if err != nil {
		return err
	}
	SetDataDir(cfg, *dataDir)

	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.Processor().Run(ctx)
	if summary != nil {
		for _, f := range summary.Files {
			if f.Failed() {
				fmt.Fprintf(c.Stdout, "%s: %s\n", f.Name, f.Error)
			}
		}
		if werr := report.WriteSummaryLine(c.Stdout, summary.Processed, summary.FailedFiles,
			summary.Records, summary.FailedRecords, summary.ResultsFile); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

func (c *CLI) cross(ctx context.Context, configFile string, args []string) error {
	fs := c.flagSet("cross")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	fatherRh := fs.String("father-rh", "", "father Rh factor (+ or -)")
	motherRh := fs.String("mother-rh", "", "mother Rh factor (+ or -)")
	if err := fs.Parse(interspersed(args)); err != nil {
		return usageError(err)
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: cross needs a father and a mother blood group", ErrUsage)
	}

	_, logger, err := c.loadConfig(configFile)
	if err != nil {
		return err
	}

	analyzer := batch.NewAnalyzer(service.NewInheritanceEngine(logger), logger)
	out := analyzer.AnalyzeRecord(ingest.RawRecord{
		Father:   fs.Arg(0),
		Mother:   fs.Arg(1),
		FatherRh: *fatherRh,
		MotherRh: *motherRh,
	}, "cli")

	if *asJSON {
		enc := json.NewEncoder(c.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out.Result); err != nil {
			return err
		}
	} else if err := report.WriteText(c.Stdout, out.Result); err != nil {
		return err
	}
	return out.Err
}

func (c *CLI) export(ctx context.Context, configFile string, args []string) error {
	fs := c.flagSet("export")
	outFile := fs.String("out", "", "write the export to FILE instead of stdout")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}

	cfg, logger, err := c.loadConfig(configFile)
	if err != nil {
		return err
	}

	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	w := c.Stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := results.ExportJSON(ctx, a.History, w); err != nil {
		return err
	}
	if *outFile != "" {
		logger.WithField("file", *outFile).Info("Result history exported")
	}
	return nil
}

func (c *CLI) migrate(ctx context.Context, configFile string, args []string) error {
	fs := c.flagSet("migrate")
	path := fs.String("path", "", "directory of migration files (defaults to the embedded set)")
	if err := fs.Parse(interspersed(args)); err != nil {
		return usageError(err)
	}
	if fs.NArg() != 1 || (fs.Arg(0) != "up" && fs.Arg(0) != "down") {
		return fmt.Errorf("%w: migrate needs up or down", ErrUsage)
	}

	cfg, logger, err := c.loadConfig(configFile)
	if err != nil {
		return err
	}
	if cfg.Storage.DatabaseURL == "" {
		return errors.New("storage.database_url is not configured")
	}
	migrationsPath := *path
	if migrationsPath == "" {
		migrationsPath = cfg.Storage.Migrations
	}

	runner, err := database.NewMigrationRunner(cfg.Storage.DatabaseURL, migrationsPath, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	if fs.Arg(0) == "down" {
		return runner.Down(ctx)
	}
	return runner.Up(ctx)
}

func (c *CLI) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.Stderr)
	return fs
}

// interspersed moves flags ahead of positional arguments so that
// "cross A O --json" parses like "cross --json A O".
func interspersed(args []string) []string {
	flags := make([]string, 0, len(args))
	positional := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			flags = append(flags, arg)
			if !strings.Contains(arg, "=") && takesValue(arg) && i+1 < len(args) {
				flags = append(flags, args[i+1])
				i++
			}
		default:
			positional = append(positional, arg)
		}
	}
	return append(flags, positional...)
}

func takesValue(arg string) bool {
	switch strings.TrimLeft(arg, "-") {
	case "father-rh", "mother-rh", "path":
		return true
	}
	return false
}

func usageError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}
