package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"war-api-analyzer/internal/api"
	"war-api-analyzer/internal/archive"
	"war-api-analyzer/internal/classfile"
	"war-api-analyzer/internal/config"
	"war-api-analyzer/internal/domain"
	"war-api-analyzer/internal/logger"
	"war-api-analyzer/internal/mapping"
	"war-api-analyzer/internal/mutation"
	"war-api-analyzer/internal/report"
	"war-api-analyzer/internal/usecases"
	"war-api-analyzer/internal/validation"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configFile string
	warFile    string
	outputFile string
	format     string
	debug      bool
	timeout    int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "war-api-analyzer",
	Short: "WAR API Analyzer - Discover the HTTP endpoints a WAR file exposes",
	Long: `A static analyzer for deployable web archives. It walks the archive,
decodes every class file without executing anything, and reports each HTTP
endpoint with its URL pattern, verb, declaring controller, a state-mutation
verdict, and the request-validation constraints on the handler.`,
}

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a WAR file and write the endpoint report",
	Long: `Analyze a WAR file offline and produce the endpoint report in JSON,
CSV, HTML, or plain-summary form. Class files are decoded concurrently;
nested archives under WEB-INF/lib are included.`,
	RunE: runAnalyze,
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP API",
	Long: `Start an HTTP server exposing the analyzer. POST a WAR file path to
/api/analyze (or its csv/html/summary variants) to receive the report.`,
	RunE: runServe,
}

func setupCommands() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging with verbose output")

	// Analyze command flags
	analyzeCmd.Flags().StringVarP(&warFile, "war", "w", "", "Path to the WAR file to analyze (required)")
	if err := analyzeCmd.MarkFlagRequired("war"); err != nil {
		panic(fmt.Sprintf("failed to mark war flag as required: %v", err))
	}
	analyzeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (defaults to stdout)")
	analyzeCmd.Flags().StringVarP(&format, "format", "f", "", "Report format: json, csv, html, summary")
	analyzeCmd.Flags().IntVarP(&timeout, "timeout", "", 0,
		"Analysis timeout in seconds (overrides config, 0 = use config default)")

	// Bind flags to viper
	if err := viper.BindPFlag("output.file", analyzeCmd.Flags().Lookup("output")); err != nil {
		panic(fmt.Sprintf("failed to bind output flag: %v", err))
	}
	if err := viper.BindPFlag("output.format", analyzeCmd.Flags().Lookup("format")); err != nil {
		panic(fmt.Sprintf("failed to bind format flag: %v", err))
	}
	if err := viper.BindPFlag("analysis.timeout_seconds", analyzeCmd.Flags().Lookup("timeout")); err != nil {
		panic(fmt.Sprintf("failed to bind timeout flag: %v", err))
	}
}

func main() {
	setupCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if debug {
		logger.SetLevel(zap.DebugLevel)
	}

	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if format != "" {
		cfg.Output.Format = format
	}
	if outputFile != "" {
		cfg.Output.File = outputFile
	}

	timeoutSeconds := cfg.Analysis.TimeoutSeconds
	if timeout > 0 {
		timeoutSeconds = timeout
	}
	timeoutDuration := time.Duration(timeoutSeconds) * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()

	l := logger.GetLogger()

	// Build the pipeline
	walker := archive.NewWalker(l)
	cache := classfile.NewCache()
	analyzer := mapping.NewAnalyzer(classfile.NewDecoder(l), cache, l)
	assembler := report.NewAssembler(mutation.NewClassifier(l), validation.NewCollector(l), l)

	useCase := usecases.NewAnalyzeUseCase(ctx, walker, analyzer, assembler, cache, cfg.Analysis.DecodeWorkers, l)

	result, err := useCase.Execute(warFile)
	if err != nil {
		return fmt.Errorf("failed to analyze WAR file: %w", err)
	}

	if err := writeReport(cfg, result); err != nil {
		return err
	}

	printSummary(result)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	server := api.NewServer(cfg, logger.GetLogger())
	return server.Run()
}

// writeReport renders the configured format to the output file, or to
// stdout when no file is configured.
func writeReport(cfg *config.Config, result *domain.Report) error {
	renderer := report.NewRenderer(cfg.Output.Title)

	var data []byte
	var err error
	switch cfg.Output.Format {
	case "json":
		data, err = renderer.RenderJSON(result)
	case "csv":
		data, err = renderer.RenderCSV(result)
	case "html":
		data, err = renderer.RenderHTML(result)
	case "summary":
		data = []byte(renderer.RenderSummary(result))
	default:
		return fmt.Errorf("unsupported output format: %s", cfg.Output.Format)
	}
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if cfg.Output.File == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.WriteFile(cfg.Output.File, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	fmt.Printf("Report written to %s\n", cfg.Output.File)
	return nil
}

func printSummary(result *domain.Report) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	bold.Printf("\nAnalyzed %s\n", result.WarFileName)
	fmt.Printf("  Endpoints:          %d\n", result.TotalAPIs)
	red.Printf("  State altering:     %d\n", result.Summary.StateAlteringAPIs)
	green.Printf("  Read only:          %d\n", result.Summary.ReadOnlyAPIs)
	fmt.Printf("  Validated:          %d\n", result.Summary.ValidatedAPIs)
	fmt.Printf("  Controller classes: %d\n", result.Summary.ControllerClasses)

	dist := result.Summary.HTTPMethods
	fmt.Printf("  Verbs:              GET=%d POST=%d PUT=%d DELETE=%d PATCH=%d OPTIONS=%d HEAD=%d\n",
		dist.Get, dist.Post, dist.Put, dist.Delete, dist.Patch, dist.Options, dist.Head)
}
