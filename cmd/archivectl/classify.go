package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/catalog-archive-analyzer/internal/bootstrap"
	"github.com/kirillkom/catalog-archive-analyzer/internal/config"
	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
	"github.com/kirillkom/catalog-archive-analyzer/internal/observability/logging"
)

type classifyOptions struct {
	jsonOutput bool
	rulesFile  string
	maxBytes   int64
	maxSheet   int64
	verbose    bool
}

func newClassifyCmd() *cobra.Command {
	opts := classifyOptions{}
	cmd := &cobra.Command{
		Use:   "classify <archive.zip>",
		Short: "Classify the structure of a ZIP archive without contacting any service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			slog.SetDefault(logging.NewTextLogger(cmd.ErrOrStderr(), level))
			return runClassify(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the full report as JSON")
	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "YAML classifier rules file")
	cmd.Flags().Int64Var(&opts.maxBytes, "max-bytes", 512<<20, "reject archives larger than this many bytes")
	cmd.Flags().Int64Var(&opts.maxSheet, "max-sheet-bytes", 64<<20, "skip spreadsheets that inflate to more than this many bytes")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")
	return cmd
}

func runClassify(ctx context.Context, out io.Writer, archivePath string, opts classifyOptions) error {
	analyzer, err := bootstrap.NewAnalyzer(config.Config{
		ClassifierRulesFile: opts.rulesFile,
		MaxArchiveBytes:     opts.maxBytes,
		MaxSpreadsheetBytes: opts.maxSheet,
	}, nil, nil)
	if err != nil {
		return err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	report, err := analyzer.Analyze(ctx, filepath.Base(archivePath), f)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	renderReport(out, report)
	return nil
}

func renderReport(out io.Writer, report *domain.AnalysisReport) {
	title := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	warn := color.New(color.FgYellow)

	result := report.Result
	title.Fprintf(out, "%s\n", report.ArchiveName)
	fmt.Fprintf(out, "  sha256:        %s\n", report.ArchiveSHA256)
	fmt.Fprintf(out, "  total size:    %d bytes\n", result.TotalByteSize)
	fmt.Fprintf(out, "  images:        %d\n", result.ImageCount)

	if result.HasSpreadsheet {
		ok.Fprintf(out, "  spreadsheet:   %s\n", result.SpreadsheetFileName)
	} else {
		bad.Fprintf(out, "  spreadsheet:   missing\n")
	}
	if result.HasImageFolder {
		ok.Fprintf(out, "  image folder:  yes\n")
	} else {
		bad.Fprintf(out, "  image folder:  no\n")
	}

	fmt.Fprintf(out, "  sku folders:   %d\n", len(result.SkuFolders))
	for _, folder := range result.SkuFolders {
		marker := ok.Sprint("main")
		if !folder.HasMainImage {
			marker = bad.Sprint("no main")
		}
		fmt.Fprintf(out, "    %-24s %s, %d secondary\n", folder.SKU, marker, folder.SecondaryImageCount)
	}

	if sheet := report.Spreadsheet; sheet != nil && sheet.Supported {
		fmt.Fprintf(out, "  sheet rows:    %d (sheet %s, column %s)\n", sheet.RowCount, sheet.SheetName, sheet.SkuColumn)
	}
	if rec := report.Reconciliation; rec != nil {
		if len(rec.SkusWithoutFolder) > 0 {
			warn.Fprintf(out, "  rows without folder: %s\n", strings.Join(rec.SkusWithoutFolder, ", "))
		}
		if len(rec.FoldersWithoutRow) > 0 {
			warn.Fprintf(out, "  folders without row: %s\n", strings.Join(rec.FoldersWithoutRow, ", "))
		}
	}
	for _, w := range report.Warnings {
		warn.Fprintf(out, "  ! %s\n", w)
	}
}
