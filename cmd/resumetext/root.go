package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wudi/resumetext/classify"
	"github.com/wudi/resumetext/config"
	"github.com/wudi/resumetext/extraction"
	"github.com/wudi/resumetext/observability"
	"github.com/wudi/resumetext/ocr"
	"github.com/wudi/resumetext/ocr/tesseract"
	"github.com/wudi/resumetext/pdfdoc"
	"github.com/wudi/resumetext/raster"
	"github.com/wudi/resumetext/recovery"
)

type globalOptions struct {
	cfgFile string
	envFile string
	verbose bool

	cfg    *config.Config
	logger observability.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "resumetext",
		Short:         "Extract plain text from résumé PDFs and images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}
	root.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file path")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newExtractCmd(opts), newServeCmd(opts))
	return root
}

func (o *globalOptions) load() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	o.cfg = cfg
	o.logger = observability.NewZerolog(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}).With(observability.String("run_id", uuid.NewString()))
	return nil
}

// newExtractor wires the pipeline from configuration.
func newExtractor(cfg *config.Config, logger observability.Logger) *extraction.Extractor {
	progress := func(p ocr.Progress) {
		logger.Debug("ocr progress",
			observability.String("status", p.Status),
			observability.String("input", p.InputID),
			observability.Float64("fraction", p.Fraction),
		)
	}
	worker := ocr.NewWorker(
		tesseract.Factory(tesseract.Options{TessdataPrefix: cfg.OCR.TessdataPrefix}),
		ocr.WithLanguage(cfg.OCR.Language),
		ocr.WithProgress(progress),
		ocr.WithLogger(logger),
	)

	classifier := classify.NewFontErrorClassifier(cfg.Extraction.FontErrorTerms...)
	var strategy recovery.Strategy = recovery.NewFallbackStrategy(classifier)
	if cfg.Extraction.Strict {
		strategy = recovery.NewStrictStrategy(classifier)
	}
	rasterizer := &raster.Rasterizer{
		Policy: raster.ScalePolicy(cfg.Extraction.RenderScales),
		Logger: logger,
	}

	return extraction.New(pdfdoc.NewLoader(logger), worker,
		extraction.WithLogger(logger),
		extraction.WithClassifier(classifier),
		extraction.WithStrategy(strategy),
		extraction.WithRasterizer(rasterizer),
		extraction.WithMinNativeChars(cfg.Extraction.MinNativeChars),
		extraction.WithMinOCRChars(cfg.Extraction.MinOCRChars),
		extraction.WithMaxImageDimension(cfg.Limits.MaxImageDimension),
		extraction.WithMaxImagePixels(cfg.Limits.MaxImagePixels),
		extraction.WithInputOptions(
			ocr.WithPageSegMode(cfg.OCR.PageSegMode),
			ocr.WithWhitelist(cfg.OCR.Whitelist),
		),
	)
}
