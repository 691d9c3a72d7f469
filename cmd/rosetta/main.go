package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/app"
	"github.com/paiml/rosetta-ruchy-sub000/internal/config"
	"github.com/paiml/rosetta-ruchy-sub000/internal/constants"
	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type cliFlags struct {
	host     string
	port     int
	lang     string
	noVerify bool
	format   string
	analysis string
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:           "rosetta",
		Short:         "rosetta - translate source code to Ruchy and analyze it",
		Version:       constants.Service.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.format, "format", formatText, "Output format (text|json)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP translation service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	serveCmd.Flags().StringVar(&flags.host, "host", "", "Listen host (overrides SERVER_HOST)")
	serveCmd.Flags().IntVarP(&flags.port, "port", "p", 0, "Listen port (overrides SERVER_PORT)")

	translateCmd := &cobra.Command{
		Use:   "translate [file]",
		Short: "Translate a file or stdin to Ruchy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, flags)
		},
	}
	translateCmd.Flags().StringVarP(&flags.lang, "lang", "l", "", "Source language hint")
	translateCmd.Flags().BoolVar(&flags.noVerify, "no-verify", false, "Skip verification")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Print complexity or the full analysis of a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, flags)
		},
	}
	analyzeCmd.Flags().StringVarP(&flags.lang, "lang", "l", "", "Source language hint")
	analyzeCmd.Flags().StringVarP(&flags.analysis, "type", "t", string(domain.AnalysisComplexity), "Analysis type (complexity|all)")

	verifyCmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Verify Ruchy code from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, args, flags)
		},
	}

	languagesCmd := &cobra.Command{
		Use:   "languages",
		Short: "List supported source languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLanguages(cmd, flags)
		},
	}

	rootCmd.AddCommand(serveCmd, translateCmd, analyzeCmd, verifyCmd, languagesCmd)
	return rootCmd
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, flags *cliFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.host != "" {
		cfg.Server.Host = flags.host
	}
	if flags.port != 0 {
		cfg.Server.Port = flags.port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Rosetta translation service starting...",
		zap.String("version", constants.Service.Version),
		zap.String("log_level", cfg.Logging.Level),
	)

	buildCtx, buildCancel := context.WithTimeout(cmd.Context(), constants.Timeouts.Build)
	container, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		return err
	}
	defer container.Close()

	srv := container.NewServer()
	container.StartJobs()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	logger.Info("Server started, waiting for signals...", zap.String("addr", cfg.Server.Addr()))

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		logger.Error("Server error", zap.Error(runErr))
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return runErr
}

// buildOffline assembles a container for a one-shot command. Console logs
// go to stderr and are limited to warnings.
func buildOffline(ctx context.Context) (*app.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := "warn"
	if cfg.Logging.File != "" {
		level = cfg.Logging.Level
	}
	logger, err := util.NewCLILogger(level, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	buildCtx, cancel := context.WithTimeout(ctx, constants.Timeouts.Build)
	defer cancel()
	return app.Build(buildCtx, cfg, logger)
}

func runTranslate(cmd *cobra.Command, args []string, flags *cliFlags) error {
	if err := checkFormat(flags.format); err != nil {
		return err
	}
	source, filename, err := readSource(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	container, err := buildOffline(cmd.Context())
	if err != nil {
		return err
	}
	defer container.Close()

	verify := !flags.noVerify
	res, err := container.Pipeline.Translate(cmd.Context(), domain.TranslateRequest{
		SourceCode:       source,
		DeclaredLanguage: flags.lang,
		TargetLanguage:   constants.Service.TargetLanguage,
		Filename:         filename,
		Options:          &domain.TranslateOptions{Verify: &verify},
	}, nil)
	if err != nil {
		return fmt.Errorf("%s", container.Formatter.FormatError(err))
	}

	if flags.format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	out, err := container.Formatter.FormatTranslation(res)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func runAnalyze(cmd *cobra.Command, args []string, flags *cliFlags) error {
	if err := checkFormat(flags.format); err != nil {
		return err
	}
	source, filename, err := readSource(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	container, err := buildOffline(cmd.Context())
	if err != nil {
		return err
	}
	defer container.Close()

	language := flags.lang
	if language == "" && filename != "" {
		if p, ok := container.Registry.ByFilename(filename); ok {
			language = p.Language
		}
	}

	analysisType := domain.AnalysisType(util.Normalize(flags.analysis))
	report, err := container.Pipeline.Analyze(cmd.Context(), source, language, analysisType)
	if err != nil {
		return fmt.Errorf("%s", container.Formatter.FormatError(err))
	}

	if flags.format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	out, err := container.Formatter.FormatAnalysis(report)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func runVerify(cmd *cobra.Command, args []string, flags *cliFlags) error {
	if err := checkFormat(flags.format); err != nil {
		return err
	}
	source, _, err := readSource(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	container, err := buildOffline(cmd.Context())
	if err != nil {
		return err
	}
	defer container.Close()

	report, err := container.Pipeline.Verify(cmd.Context(), source)
	if err != nil {
		return fmt.Errorf("%s", container.Formatter.FormatError(err))
	}

	if flags.format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	out, err := container.Formatter.FormatVerification(report)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func runLanguages(cmd *cobra.Command, flags *cliFlags) error {
	if err := checkFormat(flags.format); err != nil {
		return err
	}
	container, err := buildOffline(cmd.Context())
	if err != nil {
		return err
	}
	defer container.Close()

	target := container.Registry.Target().Language
	sources := container.Registry.SupportedLanguages()
	if flags.format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"target_language":     target,
			"supported_languages": sources,
		})
	}
	out, err := container.Formatter.FormatLanguages(target, sources)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

// readSource returns the named file, or stdin when no file is given.
func readSource(stdin io.Reader, args []string) (source, filename string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("read source: %w", err)
	}
	return string(data), filepath.Base(args[0]), nil
}

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
