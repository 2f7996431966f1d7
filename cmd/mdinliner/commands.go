package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"mdinliner/internal/catalog"
	"mdinliner/internal/server"
	"mdinliner/pkg/converter"

	"github.com/rs/zerolog"
)

// convertCmd converts a single file, stdin, or every Markdown file in a directory
type convertCmd struct {
	Input     string `long:"input" short:"i" description:"Input Markdown file path (default: stdin)"`
	Output    string `long:"output" short:"o" description:"Output HTML file path (default: stdout)"`
	InputDir  string `long:"input-dir" description:"Process all Markdown files in directory"`
	OutputDir string `long:"output-dir" description:"Output directory for batch processing"`
	Theme     string `long:"theme" short:"t" env:"MDINLINER_THEME" description:"Theme name (default: configured default theme)"`
	Stats     bool   `long:"stats" description:"Show processing statistics"`
}

func (c *convertCmd) Execute(args []string) error {
	if c.Input != "" && c.InputDir != "" {
		return fmt.Errorf("cannot specify both --input and --input-dir")
	}
	if c.InputDir != "" && c.OutputDir == "" {
		return fmt.Errorf("--output-dir required when using --input-dir")
	}

	app, log, err := setup()
	if err != nil {
		return err
	}
	conv, _, err := newConverter(app, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case c.InputDir != "":
		return c.runBatch(ctx, conv, log)
	case c.Input != "":
		return c.runSingleFile(ctx, conv)
	default:
		return c.runStdin(ctx, conv)
	}
}

// runSingleFile processes a single input file
func (c *convertCmd) runSingleFile(ctx context.Context, conv *converter.Converter) error {
	inputContent, err := os.ReadFile(c.Input)
	if err != nil {
		return fmt.Errorf("failed to read input file %s: %w", c.Input, err)
	}

	result, err := conv.Convert(ctx, string(inputContent), c.Theme)
	if err != nil {
		return err
	}

	if err := writeOutput(result.HTML, c.Output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if c.Stats {
		showProcessingStats(result, c.Input)
	}
	return nil
}

// runStdin processes Markdown from stdin
func (c *convertCmd) runStdin(ctx context.Context, conv *converter.Converter) error {
	inputContent, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read from stdin: %w", err)
	}

	result, err := conv.Convert(ctx, string(inputContent), c.Theme)
	if err != nil {
		return err
	}

	if err := writeOutput(result.HTML, c.Output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	// Statistics go to stderr so they don't interfere with HTML output
	if c.Stats {
		showProcessingStats(result, "<stdin>")
	}
	return nil
}

// runBatch processes all Markdown files in a directory, mirroring the tree under OutputDir
func (c *convertCmd) runBatch(ctx context.Context, conv *converter.Converter, log zerolog.Logger) error {
	mdFiles, err := findMarkdownFiles(c.InputDir)
	if err != nil {
		return fmt.Errorf("failed to find Markdown files: %w", err)
	}
	if len(mdFiles) == 0 {
		return fmt.Errorf("no Markdown files found in directory: %s", c.InputDir)
	}

	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var total converter.Stats
	converted := 0
	for i, inputPath := range mdFiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug().Msgf("processing %d/%d: %s", i+1, len(mdFiles), inputPath)

		inputContent, err := os.ReadFile(inputPath)
		if err != nil {
			log.Warn().Err(err).Str("path", inputPath).Msg("failed to read file")
			continue
		}

		result, err := conv.Convert(ctx, string(inputContent), c.Theme)
		if err != nil {
			log.Warn().Err(err).Str("path", inputPath).Msg("failed to convert file")
			continue
		}

		relPath, _ := filepath.Rel(c.InputDir, inputPath)
		outputPath := filepath.Join(c.OutputDir, strings.TrimSuffix(relPath, filepath.Ext(relPath))+".html")

		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			log.Warn().Err(err).Str("path", outputPath).Msg("failed to create output directory")
			continue
		}
		if err := writeOutput(result.HTML, outputPath); err != nil {
			log.Warn().Err(err).Str("path", outputPath).Msg("failed to write file")
			continue
		}

		converted++
		total.Inline.CSSRulesParsed += result.Stats.Inline.CSSRulesParsed
		total.Inline.HTMLElementsProcessed += result.Stats.Inline.HTMLElementsProcessed
		total.Inline.SelectorsMatched += result.Stats.Inline.SelectorsMatched
		total.Duration += result.Stats.Duration
	}

	if c.Stats {
		fmt.Fprintf(os.Stderr, "\nBatch Processing Summary:\n")
		fmt.Fprintf(os.Stderr, "Files converted: %d/%d\n", converted, len(mdFiles))
		fmt.Fprintf(os.Stderr, "CSS rules parsed: %d\n", total.Inline.CSSRulesParsed)
		fmt.Fprintf(os.Stderr, "HTML elements styled: %d\n", total.Inline.HTMLElementsProcessed)
		fmt.Fprintf(os.Stderr, "Selectors matched: %d\n", total.Inline.SelectorsMatched)
		fmt.Fprintf(os.Stderr, "Total processing time: %v\n", total.Duration)
	}

	return nil
}

// themesCmd lists installed themes, marking the default one
type themesCmd struct{}

func (c *themesCmd) Execute(args []string) error {
	app, log, err := setup()
	if err != nil {
		return err
	}
	_, store, err := newConverter(app, log)
	if err != nil {
		return err
	}

	names, err := store.Names()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintf(os.Stderr, "No themes in %s; run fetch first\n", app.ThemeDir)
		return nil
	}

	def, _ := store.Default()
	for _, name := range names {
		marker := " "
		if name == def {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
	return nil
}

// serveCmd runs the HTTP service until interrupted
type serveCmd struct {
	Listen string `long:"listen" short:"l" env:"MDINLINER_LISTEN" description:"HTTP listen address (default: from config)"`
}

func (c *serveCmd) Execute(args []string) error {
	app, log, err := setup()
	if err != nil {
		return err
	}
	if c.Listen != "" {
		app.Listen = c.Listen
	}

	conv, store, err := newConverter(app, log)
	if err != nil {
		return err
	}

	srv := server.New(app.Listen, conv, store, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// fetchCmd downloads the theme catalog into the theme directory
type fetchCmd struct {
	Dir     string        `long:"dir" short:"d" description:"Target directory (default: theme dir)"`
	Auth    string        `long:"auth" env:"MDNICE_AUTH" description:"Authorization header value for the catalog API"`
	BaseURL string        `long:"base-url" env:"MDINLINER_CATALOG_URL" default:"https://api.mdnice.com" description:"Catalog API base URL"`
	Delay   time.Duration `long:"delay" default:"200ms" description:"Pause between theme requests"`
}

func (c *fetchCmd) Execute(args []string) error {
	app, log, err := setup()
	if err != nil {
		return err
	}

	dir := c.Dir
	if dir == "" {
		dir = app.ThemeDir
	}
	if c.Auth == "" {
		log.Warn().Msgf("%s is not set; the catalog API may reject requests", catalog.AuthEnv)
	}

	client := catalog.New(
		catalog.WithBaseURL(c.BaseURL),
		catalog.WithAuthorization(c.Auth),
		catalog.WithDelay(c.Delay),
		catalog.WithLogger(log),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := client.Sync(ctx, dir)
	if err != nil {
		return err
	}

	log.Info().
		Int("listed", report.Listed).
		Int("saved", report.Saved).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Str("dir", dir).
		Msg("theme fetch complete")
	return nil
}

// writeOutput writes content to a file or stdout
func writeOutput(content, filename string) error {
	if filename == "" {
		_, err := fmt.Print(content)
		return err
	}
	return os.WriteFile(filename, []byte(content), 0644)
}

// findMarkdownFiles finds all Markdown files in a directory
func findMarkdownFiles(dir string) ([]string, error) {
	var mdFiles []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			ext := strings.ToLower(filepath.Ext(path))
			if ext == ".md" || ext == ".markdown" {
				mdFiles = append(mdFiles, path)
			}
		}

		return nil
	})

	return mdFiles, err
}

// showProcessingStats displays processing statistics
func showProcessingStats(result *converter.Result, filename string) {
	fmt.Fprintf(os.Stderr, "\nProcessing Statistics for %s:\n", filename)
	fmt.Fprintf(os.Stderr, "  Theme: %s\n", result.Theme)
	fmt.Fprintf(os.Stderr, "  Code blocks decorated: %d\n", result.Stats.Transform.CodeBlocksDecorated)
	fmt.Fprintf(os.Stderr, "  List items wrapped: %d\n", result.Stats.Transform.ListItemsWrapped)
	fmt.Fprintf(os.Stderr, "  CSS rules parsed: %d (skipped %d)\n", result.Stats.Inline.CSSRulesParsed, result.Stats.Inline.SelectorsSkipped)
	fmt.Fprintf(os.Stderr, "  HTML elements styled: %d\n", result.Stats.Inline.HTMLElementsProcessed)
	fmt.Fprintf(os.Stderr, "  Selectors matched: %d\n", result.Stats.Inline.SelectorsMatched)
	fmt.Fprintf(os.Stderr, "  Processing time: %v\n", result.Stats.Duration)
}
