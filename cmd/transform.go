package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jscodegen/go-codegen/internal/comment"
	"github.com/jscodegen/go-codegen/internal/config"
	"github.com/jscodegen/go-codegen/internal/diag"
	"github.com/jscodegen/go-codegen/internal/execute"
	"github.com/jscodegen/go-codegen/internal/resolve"
	"github.com/jscodegen/go-codegen/internal/telemetry"
	"github.com/jscodegen/go-codegen/transform"
)

const (
	defaultAppPath        = ""
	defaultOutputFilePath = ""
	defaultConfigFile     = ""
	defaultDiffFileName   = "codegen.diff"
	defaultKeyword        = ""
	defaultJobs           = 0
	defaultWrite          = false
	defaultDebug          = false

	telemetryShutdownTimeout = 10 * time.Second
)

var (
	debug      bool
	write      bool
	appPath    string
	diffFile   string
	configFile string
	keyword    string
	jobs       int
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "expand codegen sites",
	Long:  "run every codegen site under a path and write the generated code as a diff or back to the files",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		Transform(cmd.Flags())
	},
}

// validateOutputFile checks that the custom output path is valid
func validateOutputFile(path string) error {
	if filepath.Ext(path) != ".diff" {
		return errors.New("output file must have a .diff extension")
	}

	_, err := os.Stat(filepath.Dir(path))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("output file directory does not exist: %v", err)
	}

	return nil
}

// setOutputFilePath returns a complete output file path based on the provided
// diffFile flag value. If the flag is empty, the diff is written next to the
// transformed directory, or next to the transformed file.
func setOutputFilePath(outputFilePath, applicationPath string) (string, error) {
	if outputFilePath == "" {
		dir := applicationPath
		if info, err := os.Stat(applicationPath); err == nil && !info.IsDir() {
			dir = filepath.Dir(applicationPath)
		}
		outputFilePath = filepath.Join(dir, defaultDiffFileName)
	}

	err := validateOutputFile(outputFilePath)
	if err != nil {
		return "", err
	}

	return outputFilePath, nil
}

// loadConfig reads the project config and applies the flags that were set on top.
func loadConfig(flags *pflag.FlagSet, applicationPath string) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.Discover(applicationPath)
	}
	if err != nil {
		return config.Config{}, err
	}

	if flags.Changed("keyword") {
		cfg.Keyword = keyword
	}
	if flags.Changed("jobs") {
		cfg.Jobs = jobs
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// newDispatcher wires a dispatcher reading modules from the local file system.
func newDispatcher(cfg config.Config, reporter *telemetry.Reporter) (*transform.Dispatcher, error) {
	target, err := execute.ParseTarget(cfg.Target)
	if err != nil {
		return nil, err
	}
	modules := resolve.NewOS()
	runner := execute.NewGojaRunner(modules, execute.WithTarget(target))
	return transform.NewDispatcher(cfg.Keyword, modules, runner, reporter), nil
}

// reportErrors prints every failed file with a code frame of its failing site.
func reportErrors(err error) {
	colored := isatty.IsTerminal(os.Stderr.Fd())
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, e := range errs {
		diag.Render(os.Stderr, e, colored)
	}
}

func Transform(flags *pflag.FlagSet) {
	if appPath == "" {
		log.Fatal("--path is required")
	}

	if _, err := os.Stat(appPath); err != nil {
		cobra.CheckErr(fmt.Errorf("--path \"%s\" is invalid: %v", appPath, err))
	}

	cfg, err := loadConfig(flags, appPath)
	if err != nil {
		cobra.CheckErr(err)
	}

	var outputFile string
	if !write {
		outputFile, err = setOutputFilePath(diffFile, appPath)
		if err != nil {
			cobra.CheckErr(err)
		}
	}

	if debug {
		comment.EnableConsolePrinter(appPath)
	}
	ctx := newContext(debug)

	reporter, err := telemetry.New(telemetry.Config{
		AppName: cfg.Telemetry.AppName,
		License: cfg.Telemetry.License,
		Enabled: cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer reporter.Shutdown(telemetryShutdownTimeout)

	dispatcher, err := newDispatcher(cfg, reporter)
	if err != nil {
		log.Fatal(err)
	}
	manager := transform.NewManager(dispatcher, cfg, appPath, outputFile)

	files, err := manager.LoadFiles()
	if err != nil {
		log.Fatal(err)
	}

	transformErr := manager.TransformAll(ctx, files)

	if write {
		err = manager.WriteFiles()
	} else {
		err = manager.CreateDiffFile()
		if err == nil {
			err = manager.WriteDiff()
		}
	}
	if err != nil {
		log.Fatal(err)
	}

	comment.WriteAll()

	if transformErr != nil {
		reportErrors(transformErr)
		reporter.Shutdown(telemetryShutdownTimeout)
		os.Exit(1)
	}
}

func init() {
	transformCmd.Flags().BoolVar(&debug, "debug", defaultDebug, "enable debugging output")
	transformCmd.Flags().BoolVar(&write, "write", defaultWrite, "rewrite the transformed files in place instead of writing a diff")
	transformCmd.Flags().StringVar(&appPath, "path", defaultAppPath, "file or directory to transform")
	transformCmd.Flags().StringVar(&diffFile, "diff", defaultOutputFilePath, "specify diff output file path")
	transformCmd.Flags().StringVar(&configFile, "config", defaultConfigFile, "config file, found by walking up from --path when unset")
	transformCmd.Flags().StringVar(&keyword, "keyword", defaultKeyword, "codegen marker keyword")
	transformCmd.Flags().IntVar(&jobs, "jobs", defaultJobs, "number of files transformed concurrently")
	cobra.MarkFlagFilename(transformCmd.Flags(), "diff", ".diff") // for file completion
	cobra.MarkFlagFilename(transformCmd.Flags(), "config", "toml", "yaml", "yml")
	transformCmd.MarkFlagsMutuallyExclusive("diff", "write")

	rootCmd.AddCommand(transformCmd)
}
