package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"yashubustudio/biasmap/biasmap"
)

type cliOptions struct {
	configPath string
	template   string
	example    int
	sortOrder  string
	outputPath string
	outputDir  string
	limit      int
	stdout     bool
	share      bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("biasmap-cli: %v", err)
	}
	if err := run(opts); err != nil {
		log.Fatalf("biasmap-cli: %v", err)
	}
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("biasmap-cli", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to config.json (default: ./config.json)")
	fs.StringVar(&opts.template, "template", "", "Sentence template using '*' as the country placeholder")
	fs.IntVar(&opts.example, "example", 0, "Use canned example template 1-3 instead of --template")
	fs.StringVar(&opts.sortOrder, "sort", "asc", "Preview order: asc, desc or catalog")
	fs.StringVar(&opts.outputPath, "output", "", "CSV file to write results (default uses --output-dir/biasmap_*.csv)")
	fs.StringVar(&opts.outputDir, "output-dir", "csv", "Directory where result CSVs are written when --output is omitted")
	fs.IntVar(&opts.limit, "limit", 10, "Rows to show at each end of the preview")
	fs.BoolVar(&opts.stdout, "stdout", false, "Print the preview to STDOUT")
	fs.BoolVar(&opts.share, "share", false, "Print a share link for the result")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s --template \"My partner is from *\" [options]\n\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.configPath = strings.TrimSpace(opts.configPath)
	opts.outputPath = strings.TrimSpace(opts.outputPath)
	opts.outputDir = strings.TrimSpace(opts.outputDir)
	opts.sortOrder = strings.ToLower(strings.TrimSpace(opts.sortOrder))

	if opts.example != 0 {
		examples := biasmap.ExampleTemplates()
		if opts.example < 1 || opts.example > len(examples) {
			return opts, fmt.Errorf("--example must be between 1 and %d", len(examples))
		}
		opts.template = examples[opts.example-1]
	}
	switch opts.sortOrder {
	case "asc", "desc", "catalog":
	default:
		return opts, fmt.Errorf("unknown --sort %q", opts.sortOrder)
	}
	return opts, nil
}

func run(opts cliOptions) error {
	cfg, err := biasmap.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.template == "" {
		opts.template = cfg.DefaultTemplate
	}
	if err := biasmap.ValidateTemplate(opts.template); err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	oracle, err := biasmap.NewOracle(cfg, logger)
	if err != nil {
		return fmt.Errorf("init oracle: %w", err)
	}
	ctx := context.Background()
	catalog := biasmap.NewCatalogLoader(cfg.Catalog, logger)
	service, err := biasmap.NewService(ctx, catalog, oracle, cfg, logger)
	if err != nil {
		if c, ok := oracle.(io.Closer); ok {
			_ = c.Close()
		}
		return fmt.Errorf("init service: %w", err)
	}
	defer service.Close()

	table, err := service.Query(ctx, opts.template)
	if err != nil {
		return fmt.Errorf("score template: %w", err)
	}

	outputPath, err := resolveOutputPath(opts.outputPath, opts.outputDir)
	if err != nil {
		return err
	}
	if err := writeResultCSV(outputPath, table); err != nil {
		return err
	}
	fmt.Printf("Saved %d rows to %s\n", table.Len(), outputPath)

	if opts.stdout {
		printPreview(os.Stdout, table, opts.sortOrder, opts.limit)
	}
	if opts.share {
		fmt.Println(biasmap.ShareURL(table, cfg.AppURL))
	}
	return nil
}

func resolveOutputPath(path, dir string) (string, error) {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return absPath, nil
	}
	if dir == "" {
		dir = "csv"
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("biasmap_%s.csv", time.Now().Format("20060102150405"))
	return filepath.Join(absDir, filename), nil
}

func writeResultCSV(path string, table biasmap.ResultTable) error {
	if table.Len() == 0 {
		return errors.New("no rows to write")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	if err := biasmap.WriteCSV(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printPreview(w io.Writer, table biasmap.ResultTable, order string, limit int) {
	var rows []biasmap.ScoredRegion
	switch order {
	case "desc":
		rows = table.Sorted(false)
	case "catalog":
		rows = table.Rows()
	default:
		rows = table.Sorted(true)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "==== %q ====\n", table.Template())
	if limit <= 0 || len(rows) <= limit*2 {
		printRows(w, rows, 0)
	} else {
		printRows(w, rows[:limit], 0)
		fmt.Fprintf(w, "    ... %d more ...\n", len(rows)-limit*2)
		printRows(w, rows[len(rows)-limit:], len(rows)-limit)
	}
	s := biasmap.Summarize(table)
	fmt.Fprintf(w, "\n%d countries, mean=%.3f, most positive: %s (%.3f), least positive: %s (%.3f)\n",
		s.Count, s.Mean, s.MostPositive, s.Max, s.LeastPositive, s.Min)
}

func printRows(w io.Writer, rows []biasmap.ScoredRegion, offset int) {
	for i, r := range rows {
		fmt.Fprintf(w, "%4d. %-40s %.3f %s\n", offset+i+1, r.Region.Name, r.PositiveProbability, bar(r.PositiveProbability, 20))
	}
}

func bar(p float64, width int) string {
	n := int(p*float64(width) + 0.5)
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n) + strings.Repeat("·", width-n)
}
