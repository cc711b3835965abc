package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"skufetch/lib/configutil"
	"skufetch/lib/crawler"
	"skufetch/lib/extract"
	"skufetch/lib/proxyconf"
	"skufetch/lib/sink"
	"skufetch/lib/telemetry"

	"github.com/spf13/cobra"
)

type FieldConfig struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Selector string `json:"selector"`
	Numeric  bool   `json:"numeric"`
	Expr     string `json:"expr"`
}

type OutputConfig struct {
	// Format is json (default), table or sqlite.
	Format string `json:"format"`
	Path   string `json:"path"`
	// Raw saves the unprocessed response bodies instead of records.
	Raw bool `json:"raw"`
}

type Config struct {
	UrlTemplate     string            `json:"url_template"`
	Headers         map[string]string `json:"headers"`
	Proxy           string            `json:"proxy"`
	TimeoutSeconds  int               `json:"timeout_seconds"`
	Insecure        bool              `json:"insecure"`
	Body            string            `json:"body"`
	Concurrency     int               `json:"concurrency"`
	Fields          []FieldConfig     `json:"fields"`
	Identifiers     []string          `json:"identifiers"`
	IdentifiersFile string            `json:"identifiers_file"`
	Output          OutputConfig      `json:"output"`
}

var flags struct {
	config      string
	out         string
	concurrency int
	debug       bool
}

var rootCmd = &cobra.Command{
	Use:   "skufetch [identifiers...]",
	Short: "Fetches a batch of records by identifier and extracts the declared fields.",
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd.Context(), args)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flags.config, "config", "c", "config.json5", "path to the run configuration")
	rootCmd.Flags().StringVarP(&flags.out, "out", "o", "", "override the configured output path")
	rootCmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "override the configured number of parallel fetches")
	rootCmd.Flags().BoolVar(&flags.debug, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// fatal is for setup failures only; once fetching starts, per-identifier
// failures are recorded in the result and never change the exit status.
func fatal(message string, err error) {
	slog.Error(message, "err", err)
	os.Exit(1)
}

func run(ctx context.Context, args []string) {
	telemetry.InitSlog(flags.debug)

	tel, err := telemetry.SetupFromEnv(ctx, "skufetch")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fatal("failed to setup telemetry", err)
	}
	defer tel.Shutdown(context.Background())

	config, err := configutil.ReadConfig[Config](flags.config)
	if err != nil {
		fatal("failed to read config", err)
	}
	if flags.out != "" {
		config.Output.Path = flags.out
	}
	if flags.concurrency > 0 {
		config.Concurrency = flags.concurrency
	}

	identifiers, err := collectIdentifiers(config, args)
	if err != nil {
		fatal("failed to collect identifiers", err)
	}

	extractor, err := buildExtractor(config)
	if err != nil {
		fatal("invalid field spec", err)
	}

	transportOpts := crawler.TransportOptions{
		Timeout:            time.Duration(config.TimeoutSeconds) * time.Second,
		InsecureSkipVerify: config.Insecure,
	}
	if config.Proxy != "" {
		descriptor, err := proxyconf.Parse(config.Proxy)
		if err != nil {
			fatal("failed to parse proxy string", err)
		}
		transportOpts.Proxy = &descriptor
		slog.Info("proxy configured", "host", descriptor.Host, "port", descriptor.Port)
	}

	transport, err := crawler.NewRestyTransport(transportOpts)
	if err != nil {
		fatal("failed to build transport", err)
	}
	defer transport.Close()

	out, cleanup, err := buildSink(config)
	if err != nil {
		fatal("failed to build output sink", err)
	}
	defer cleanup()

	fetcher := crawler.Fetcher{
		Template:  crawler.Template{URL: config.UrlTemplate, Headers: config.Headers},
		Extractor: extractor,
		Transport: transport,
		Observer:  crawler.SlogObserver{},
		Options: crawler.Options{
			Concurrency:   config.Concurrency,
			KeepRawBodies: config.Output.Raw,
		},
	}

	result := fetcher.Run(ctx, identifiers)

	summary := result.Summary()
	slog.Info("run complete",
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)
	for _, failure := range result.Failures() {
		slog.Warn("failed identifier", "id", failure.Identifier, "reason", failure.Err)
	}

	if err := out.Write(ctx, result); err != nil {
		fatal("failed to write results", err)
	}
}

func collectIdentifiers(config Config, args []string) ([]string, error) {
	identifiers := append([]string{}, config.Identifiers...)
	identifiers = append(identifiers, args...)

	if config.IdentifiersFile != "" {
		fromFile, err := readIdentifiersFile(config.IdentifiersFile)
		if err != nil {
			return nil, err
		}
		identifiers = append(identifiers, fromFile...)
	}

	if len(identifiers) == 0 {
		return nil, errors.New("no identifiers: provide them in the config, a file or as arguments")
	}
	return identifiers, nil
}

// readIdentifiersFile reads one identifier per line, skipping blank lines
// and '#' comments.
func readIdentifiersFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var identifiers []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		identifiers = append(identifiers, line)
	}
	return identifiers, scanner.Err()
}

func buildExtractor(config Config) (extract.Extractor, error) {
	if config.UrlTemplate == "" {
		return nil, errors.New("url_template is required")
	}
	if !strings.Contains(config.UrlTemplate, crawler.Placeholder) {
		return nil, fmt.Errorf("url_template must contain the %s placeholder", crawler.Placeholder)
	}
	if len(config.Fields) == 0 {
		return nil, errors.New("at least one field must be declared")
	}

	fields := make([]extract.FieldSpec, 0, len(config.Fields))
	for _, f := range config.Fields {
		switch {
		case f.Name == "":
			return nil, errors.New("every field needs a name")
		case f.Path != "":
			fields = append(fields, extract.Path{Name: f.Name, Path: f.Path})
		case f.Selector != "":
			fields = append(fields, extract.Selector{Name: f.Name, Selector: f.Selector, Numeric: f.Numeric})
		case f.Expr != "":
			fn, err := extract.DeriveExpr(f.Expr)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			fields = append(fields, extract.Derive{Name: f.Name, Fn: fn})
		default:
			return nil, fmt.Errorf("field %q declares neither path, selector nor expr", f.Name)
		}
	}

	switch config.Body {
	case "", "json":
		return extract.JSONExtractor{Fields: fields}, nil
	case "html":
		return extract.HTMLExtractor{Fields: fields}, nil
	}
	return nil, fmt.Errorf("unknown body kind %q", config.Body)
}

func buildSink(config Config) (sink.Sink, func(), error) {
	nop := func() {}

	switch config.Output.Format {
	case "", "json":
		path := config.Output.Path
		if path == "" {
			path = "records.json"
		}
		return sink.JSONFile{Path: path, Raw: config.Output.Raw}, nop, nil
	case "table":
		return sink.Table{}, nop, nil
	case "sqlite":
		path := config.Output.Path
		if path == "" {
			path = "history.db"
		}
		history, err := sink.OpenHistory(path)
		if err != nil {
			return nil, nop, err
		}
		return history, func() { history.Close() }, nil
	}
	return nil, nop, fmt.Errorf("unknown output format %q", config.Output.Format)
}
