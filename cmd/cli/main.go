package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/articlerag/internal/app"
	"github.com/xhad/articlerag/internal/models"
	cfgPkg "github.com/xhad/articlerag/pkg/config"
	"github.com/xhad/articlerag/pkg/pipeline"
)

type Config struct {
	ConfigPath string
	URL        string
	ArticleID  string
	Streaming  bool
	Verbose    bool
}

// processStages are the stages a process run reports after starting.
var processStages = map[pipeline.Stage]string{
	pipeline.StageExtract:   "📄 Extracted article",
	pipeline.StageChunk:     "✂️  Split into chunks",
	pipeline.StageEmbed:     "🧮 Embedded chunks",
	pipeline.StageEnsure:    "🗂  Collection ready",
	pipeline.StageStore:     "💾 Stored vectors",
	pipeline.StageSummarize: "📝 Summarized",
	pipeline.StageQuiz:      "❓ Quiz generated",
	pipeline.StageDone:      "✓ Done",
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() Config {
	var config Config

	flag.StringVar(&config.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&config.URL, "url", "", "Article URL to process")
	flag.StringVar(&config.ArticleID, "article-id", "", "Article id (derived from the URL when empty)")
	flag.BoolVar(&config.Streaming, "stream", true, "Enable streaming responses")
	flag.BoolVar(&config.Verbose, "verbose", false, "Show pipeline logs")
	flag.Parse()

	return config
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("stages"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
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
	if config.URL == "" {
		return fmt.Errorf("-url is required")
	}

	_ = godotenv.Load()

	cfg, err := cfgPkg.LoadConfig(config.ConfigPath)
	if err != nil {
		return err
	}

	logCfg := cfg.Log
	if !config.Verbose {
		logCfg.Level = "error"
	}
	logCfg.Pretty = true
	app.SetupLogger(logCfg, os.Stderr)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s\n", e.Error())
		}
		return fmt.Errorf("invalid configuration")
	}

	ctx := context.Background()
	p, closeAll, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	articleID := config.ArticleID
	if articleID == "" {
		articleID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(config.URL)).String()
	}

	color.Blue("\nProcessing %s\n", config.URL)

	bar := getProgressBar(len(processStages), "🔄 Processing article...")
	start := time.Now()
	observed := p.WithObserver(func(flow pipeline.Flow, stage pipeline.Stage) {
		if label, ok := processStages[stage]; ok {
			bar.Describe(color.BlueString("%s (%.1fs)", label, time.Since(start).Seconds()))
			bar.Add(1)
		}
	})

	result, err := observed.Process(ctx, config.URL, articleID)
	bar.Finish()
	fmt.Print("\n")
	if err != nil {
		return describe(err)
	}

	color.Green("\n✓ Stored %d chunks for article %s\n", result.ChunksStored, result.ArticleID)
	color.Cyan("\nSummary\n")
	fmt.Println(result.Summary)

	printQuiz(result.Quiz)

	return chat(ctx, p, articleID, config.Streaming)
}

func printQuiz(quiz []models.MCQ) {
	if len(quiz) == 0 {
		color.Yellow("\nNo quiz could be generated for this article\n")
		return
	}

	color.Cyan("\nQuiz\n")
	for i, q := range quiz {
		color.New(color.Bold).Printf("%d. %s\n", i+1, q.Question)
		for j, option := range q.Options {
			marker := " "
			if option == q.Answer {
				marker = color.GreenString("*")
			}
			fmt.Printf("   %s %c) %s\n", marker, 'a'+j, option)
		}
	}
}

// chat answers questions about the article until the user types exit.
func chat(ctx context.Context, p *pipeline.Pipeline, articleID string, streaming bool) error {
	color.Cyan("\nAsk about the article (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.ToLower(question) == "exit" {
			break
		}

		if streaming {
			fmt.Print("\n")
			assistantPrompt("Assistant: ")

			_, err := p.AskStream(ctx, articleID, question, func(token string) error {
				assistantPrompt("%s", token)
				return nil
			})
			fmt.Print("\n")
			if err != nil {
				color.Red("Error: %v\n", describe(err))
			}
			continue
		}

		spinner := getSpinner("🤖 Generating response...")
		result, err := p.Ask(ctx, articleID, question)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", describe(err))
			continue
		}
		assistantPrompt("Assistant: %s\n", result.Answer)
	}

	return scanner.Err()
}

// describe turns pipeline errors into something a person can act on.
func describe(err error) error {
	switch {
	case errors.Is(err, models.ErrExtractionRejected):
		return fmt.Errorf("this does not look like an article: %w", err)
	case errors.Is(err, models.ErrNoRelevantContext):
		return fmt.Errorf("nothing in the article matches that question")
	case errors.Is(err, models.ErrStoreUnavailable):
		return fmt.Errorf("vector store unavailable: %w", err)
	}
	return err
}
