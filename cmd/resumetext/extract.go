package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wudi/resumetext/document"
	"github.com/wudi/resumetext/extraction"
	"github.com/wudi/resumetext/observability"
)

type extractOptions struct {
	kind     string
	output   string
	asJSON   bool
	noLimits bool
}

func newExtractCmd(g *globalOptions) *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract text from a PDF or image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), g, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "", "document kind (pdf or image); detected when empty")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the text to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print a JSON result with method and page count")
	cmd.Flags().BoolVar(&opts.noLimits, "no-limits", false, "skip upload size and type checks")
	return cmd
}

type extractOutput struct {
	File     string `json:"file"`
	Text     string `json:"text"`
	Method   string `json:"method"`
	Pages    int    `json:"pages"`
	Fallback string `json:"fallback,omitempty"`
}

func runExtract(ctx context.Context, g *globalOptions, opts *extractOptions, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)
	mimeType := document.SniffMIME(data)

	kind := document.ParseKind(opts.kind)
	if opts.kind == "" {
		kind = document.DetectKind("", name, data)
	}
	if !opts.noLimits {
		lim := g.cfg.SecurityLimits()
		if kind == document.KindPDF {
			mimeType = "application/pdf"
		}
		if err := lim.Check(mimeType, int64(len(data))); err != nil {
			return err
		}
	}
	if d := g.cfg.Limits.ExtractTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	ext := newExtractor(g.cfg, g.logger)
	defer func() {
		if err := ext.Cleanup(); err != nil {
			g.logger.Warn("release ocr engine", observability.Error("error", err))
		}
	}()

	res, err := ext.Extract(ctx, document.Source{Data: data, Kind: kind, Name: name})
	if err != nil {
		if extraction.KindOf(err) != "" {
			g.logger.Debug("extraction error", observability.Error("error", err))
			return errors.New(extraction.UserMessage(err))
		}
		return err
	}

	out := os.Stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create %s: %w", opts.output, err)
		}
		defer f.Close()
		out = f
	}
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(extractOutput{
			File:     name,
			Text:     res.Text,
			Method:   string(res.Method),
			Pages:    res.Pages,
			Fallback: string(res.Fallback),
		})
	}
	_, err = fmt.Fprintln(out, res.Text)
	return err
}
