package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/jaywantadh/pdfdiff/config"
	"github.com/jaywantadh/pdfdiff/internal/cache"
	"github.com/jaywantadh/pdfdiff/internal/compare"
	"github.com/jaywantadh/pdfdiff/internal/extractor"
	"github.com/jaywantadh/pdfdiff/internal/report"
	"github.com/jaywantadh/pdfdiff/internal/storage"
	"github.com/jaywantadh/pdfdiff/pkg/env"
	"github.com/jaywantadh/pdfdiff/pkg/httpserver"
	"github.com/jaywantadh/pdfdiff/pkg/logging"
)

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "pdfdiff",
		Usage:  "Compare the text of same-named PDFs in two directories",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: env.GetEnv("PDFDIFF_CONFIG_DIR", ""), Usage: "directory holding config.yaml"},
			&cli.BoolFlag{Name: "debug", Usage: "verbose text logging"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			if c.Bool("debug") {
				cfg.Debug = true
			}
			logging.InitLogger(cfg.Debug)
			return nil
		},
		Action: runCompare,
		Commands: []*cli.Command{
			{
				Name:    "compare",
				Aliases: []string{"cmp"},
				Usage:   "Compare both directories and write the PDF report",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "old", Usage: "directory with the old PDFs"},
					&cli.StringFlag{Name: "new", Usage: "directory with the new PDFs"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "report path"},
					&cli.StringFlag{Name: "json", Usage: "also write the results as JSON to this path"},
					&cli.StringFlag{Name: "backend", Usage: "extractor backend: rsc, ledongthuc or tabula"},
					&cli.BoolFlag{Name: "keep-going", Usage: "record failing files and continue"},
					&cli.BoolFlag{Name: "include-missing", Usage: "report files found in one directory only"},
					&cli.IntFlag{Name: "workers", Usage: "files compared concurrently"},
					&cli.BoolFlag{Name: "cache", Usage: "use the extraction cache"},
				},
				Action: runCompare,
			},
			{
				Name:      "extract",
				Usage:     "Print the extracted lines of one PDF",
				ArgsUsage: "<file.pdf>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "backend", Usage: "extractor backend: rsc, ledongthuc or tabula"},
				},
				Action: runExtract,
			},
			{
				Name:  "cache",
				Usage: "Inspect or clear the extraction cache",
				Subcommands: []*cli.Command{
					{Name: "stats", Usage: "Show entry count and size", Action: runCacheStats},
					{Name: "clear", Usage: "Remove all cached extractions", Action: runCacheClear},
				},
			},
			{
				Name:  "serve",
				Usage: "Serve comparisons over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address"},
				},
				Action: runServe,
			},
		},
	}
}

// applyFlags copies explicitly set command flags over the loaded config.
func applyFlags(c *cli.Context, cfg *config.AppConfig) error {
	if c.IsSet("old") {
		cfg.OldDir = c.String("old")
	}
	if c.IsSet("new") {
		cfg.NewDir = c.String("new")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.IsSet("json") {
		cfg.Report.JSONPath = c.String("json")
	}
	if c.IsSet("backend") {
		cfg.Extractor.Backend = c.String("backend")
	}
	if c.IsSet("keep-going") {
		cfg.Compare.KeepGoing = c.Bool("keep-going")
	}
	if c.IsSet("include-missing") {
		cfg.Compare.IncludeMissing = c.Bool("include-missing")
	}
	if c.IsSet("workers") {
		cfg.Compare.Workers = c.Int("workers")
	}
	if c.IsSet("cache") {
		cfg.Cache.Enabled = c.Bool("cache")
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	return cfg.Validate()
}

// newExtractor builds the configured extractor. The returned close
// function releases the cache store when one is used.
func newExtractor(cfg *config.AppConfig) (extractor.Extractor, func(), error) {
	ex, err := extractor.New(extractor.Options{
		Backend:   cfg.Extractor.Backend,
		Validate:  cfg.Extractor.Validate,
		Normalize: cfg.Extractor.Normalize,
		TrimSpace: cfg.Extractor.TrimSpace,
		Password:  cfg.Extractor.Password,
	}, logging.Log)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Cache.Enabled {
		return ex, func() {}, nil
	}

	store, err := cache.Open(cfg.Cache.Path, cfg.Cache.Passphrase, logging.Log)
	if err != nil {
		return nil, nil, err
	}
	return extractor.NewCaching(ex, store, logging.Log), func() { store.Close() }, nil
}

func newComparer(cfg *config.AppConfig, ex extractor.Extractor, out io.Writer) (*compare.Comparer, error) {
	return compare.New(compare.Config{
		Old:               storage.NewLocalDir(cfg.OldDir),
		New:               storage.NewLocalDir(cfg.NewDir),
		Extractor:         ex,
		KeepGoing:         cfg.Compare.KeepGoing,
		IncludeMissing:    cfg.Compare.IncludeMissing,
		Workers:           cfg.Compare.Workers,
		SourceLineNumbers: cfg.Diff.LineNumbers == "source",
		Console:           out,
		Logger:            logging.Log,
	})
}

func runCompare(c *cli.Context) error {
	cfg := config.Config
	if err := applyFlags(c, cfg); err != nil {
		return err
	}

	ex, closeCache, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	cmp, err := newComparer(cfg, ex, c.App.Writer)
	if err != nil {
		return err
	}
	run, err := cmp.Run(c.Context)
	if err != nil {
		return err
	}

	if cfg.Report.JSONPath != "" {
		if err := report.WriteJSON(run, cfg.Report.JSONPath); err != nil {
			return err
		}
	}
	if err := report.Build(run, cfg.Output); err != nil {
		return err
	}
	logging.Log.WithField("output", cfg.Output).Info("📝 Report written")

	compare.WriteSummary(c.App.Writer, run.Total)
	return nil
}

func runExtract(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("extract needs exactly one PDF path")
	}
	path := c.Args().First()

	cfg := config.Config
	if err := applyFlags(c, cfg); err != nil {
		return err
	}
	ex, closeCache, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	doc, err := ex.Extract(c.Context, path)
	if err != nil {
		return err
	}
	if pages, err := extractor.PageCount(path); err == nil && pages != doc.Pages {
		logging.Log.WithFields(logrus.Fields{
			"backend_pages": doc.Pages,
			"pdfcpu_pages":  pages,
		}).Warn("⚠️ Page count mismatch")
	}

	for i, line := range doc.Lines {
		fmt.Fprintf(c.App.Writer, "%4d  %s\n", i+1, line)
	}
	return nil
}

func openCache() (*cache.Store, error) {
	cfg := config.Config
	return cache.Open(cfg.Cache.Path, cfg.Cache.Passphrase, logging.Log)
}

func runCacheStats(c *cli.Context) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "entries: %d\nbytes: %d\n", st.Entries, st.Bytes)
	return nil
}

func runCacheClear(c *cli.Context) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "cache cleared")
	return nil
}

func runServe(c *cli.Context) error {
	cfg := config.Config
	if err := applyFlags(c, cfg); err != nil {
		return err
	}
	ex, closeCache, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	cmp, err := newComparer(cfg, ex, io.Discard)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return httpserver.New(cmp, logging.Log).ListenAndServe(ctx, cfg.Server.Addr)
}
