package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/kmw/qualcoder/internal/models"
	"github.com/kmw/qualcoder/internal/types"
	"github.com/kmw/qualcoder/pkg/coder"
	cfgPkg "github.com/kmw/qualcoder/pkg/config"
	"github.com/kmw/qualcoder/pkg/export"
	"github.com/kmw/qualcoder/pkg/logging"
)

type Config struct {
	ConfigPath string
	Project    string
	Mode       string
	BaseURL    string
	DBUrl      string
	Model      string
	Embeddings bool
	Format     string
	OutFile    string
	Query      string
	TopK       int
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		if errors.Is(err, coder.ErrNoInput) {
			color.Red("No input found: %v", err)
			color.Yellow("Place .txt files under <inputs>/%s/ (or its transcripts/ subdirectory) and retry.", config.Project)
			os.Exit(1)
		}
		log.Fatal(err)
	}
}

func parseFlags() Config {
	var config Config

	flag.StringVar(&config.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&config.Project, "project", "", "Project directory under the inputs root")
	flag.StringVar(&config.Mode, "mode", "project", "Analysis mode: project, transcripts or search")
	flag.StringVar(&config.BaseURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&config.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&config.Model, "model", "", "LLM model to use")
	flag.BoolVar(&config.Embeddings, "embeddings", false, "Enable embedding and similarity features")
	flag.StringVar(&config.Format, "format", "all", "Export format: json, markdown, csv, text or all")
	flag.StringVar(&config.OutFile, "out", "", "Output file name (default is timestamped)")
	flag.StringVar(&config.Query, "query", "", "Similarity search query (mode=search)")
	flag.IntVar(&config.TopK, "top-k", 5, "Number of similarity search results")
	flag.Parse()

	return config
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(config Config) error {
	// .env is optional, absence is not an error
	godotenv.Load()

	cfg, err := cfgPkg.LoadConfig(config.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Flags beat file and environment values.
	if config.BaseURL != "" {
		cfg.LLM.BaseURL = config.BaseURL
		cfg.Embeddings.BaseURL = config.BaseURL
	}
	if config.DBUrl != "" {
		cfg.Database.URL = config.DBUrl
	}
	if config.Model != "" {
		cfg.LLM.Model = config.Model
	}
	if config.Embeddings {
		cfg.Embeddings.Enabled = true
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			color.Red("invalid config: %s: %s", p.Field, p.Message)
		}
		return fmt.Errorf("configuration is invalid")
	}

	if config.Project == "" {
		return fmt.Errorf("a project directory is required (-project)")
	}

	logger := logging.NewConsole()
	ctx := context.Background()

	qc, err := coder.New(ctx, cfg, logger, cfg.Embeddings.Enabled)
	if err != nil {
		return fmt.Errorf("failed to initialize coder: %v", err)
	}
	defer qc.Close()

	var result *models.AnalysisResult

	switch config.Mode {
	case "project":
		color.Blue("\nAnalyzing project %s\n", config.Project)
		spinner := getSpinner(" Coding texts...")
		result, err = qc.ProcessProjectDir(ctx, config.Project)
		spinner.Finish()
		fmt.Print("\n")
	case "transcripts":
		color.Blue("\nAnalyzing transcripts in %s\n", config.Project)
		spinner := getSpinner(" Coding transcripts...")
		result, err = qc.ProcessTranscripts(ctx, config.Project)
		spinner.Finish()
		fmt.Print("\n")
	case "search":
		if config.Query == "" {
			return fmt.Errorf("a query is required in search mode (-query)")
		}
		// Index the project first so there is something to search.
		if _, err := qc.ProcessProjectDir(ctx, config.Project); err != nil {
			return err
		}
		matches, err := qc.SearchSimilar(ctx, config.Query, config.TopK)
		if err != nil {
			return fmt.Errorf("similarity search failed: %v", err)
		}
		printMatches(config.Query, matches)
		return nil
	default:
		return fmt.Errorf("unknown mode %q (want project, transcripts or search)", config.Mode)
	}
	if err != nil {
		return err
	}

	printSummary(result)
	return exportResult(result, cfg.Paths.OutputsDir, config.Format, config.OutFile, logger)
}

func printSummary(result *models.AnalysisResult) {
	color.Green("✓ Analysis complete\n")
	fmt.Printf("  Clusters:   %d\n", result.Consolidated.TotalClusters)
	fmt.Printf("  Themes:     %d\n", result.Consolidated.TotalThemes)
	fmt.Printf("  Sub-themes: %d\n", result.Consolidated.TotalSubThemes)
	if len(result.Consolidated.CommonThemes) > 0 {
		fmt.Printf("  Cross-cluster themes: %s\n", strings.Join(result.Consolidated.CommonThemes, ", "))
	}

	if len(result.Insights) > 0 {
		color.Cyan("\nInsights:")
		for _, insight := range result.Insights {
			fmt.Printf("  * %s\n", insight)
		}
	}
}

func printMatches(query string, matches []types.SearchMatch) {
	if len(matches) == 0 {
		color.Yellow("No similar chunks found for %q", query)
		return
	}
	color.Cyan("\nTop matches for %q:\n", query)
	for i, m := range matches {
		fmt.Printf("%d. [%.3f] %s\n", i+1, m.Score, m.ID)
		if text := m.Metadata["text"]; text != "" {
			fmt.Printf("   %s\n", text)
		}
	}
}

func exportResult(result *models.AnalysisResult, outputsDir, format, outFile string, logger *logging.Console) error {
	exporter := export.New(outputsDir, logger)

	switch format {
	case "json":
		_, err := exporter.JSON(result, outFile)
		return err
	case "markdown":
		_, err := exporter.Markdown(result, outFile)
		return err
	case "csv":
		_, err := exporter.CSV(result, outFile)
		return err
	case "text":
		_, err := exporter.Text(result, outFile)
		return err
	case "all":
		paths, err := exporter.All(result)
		if err != nil {
			return err
		}
		color.Green("\n✓ Exported %d files\n", len(paths))
		return nil
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
