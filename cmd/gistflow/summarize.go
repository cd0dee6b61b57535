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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yanqian/gistflow/internal/domain/studyguide"
)

const formatJSON = "json"

var (
	summarizeFile   string
	summarizeStyle  string
	summarizeFormat string
	summarizeOut    string
)

// runner executes study guide operations for the CLI.
type runner struct {
	svc    studyguide.Service
	cfg    studyguide.Config
	logger *slog.Logger
}

func newRunner(svc studyguide.Service, cfg studyguide.Config, logger *slog.Logger) *runner {
	return &runner{svc: svc, cfg: cfg, logger: logger.With("component", "cli")}
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a notes file",
	Long: `Summarize a plain text notes file and print the result.

Examples:
  gistflow summarize --file notes.txt
  gistflow summarize --file notes.txt --style exam-focus --format markdown
  cat notes.txt | gistflow summarize --format html --out guide.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := initializeRunner(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to wire application: %w", err)
		}

		notes, err := r.readNotes(cmd.InOrStdin(), summarizeFile)
		if err != nil {
			return err
		}

		out, err := r.summarize(cmd.Context(), notes, studyguide.StyleID(summarizeStyle), summarizeFormat)
		if err != nil {
			return err
		}

		if summarizeOut == "" || summarizeOut == "-" {
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}
		if err := os.WriteFile(summarizeOut, out, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		r.logger.Info("study guide written", "path", summarizeOut, "bytes", len(out))
		return nil
	},
}

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List summary styles",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := initializeRunner(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to wire application: %w", err)
		}
		return r.writeStyles(cmd.OutOrStdout())
	},
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeFile, "file", "f", "", "notes file to summarize (default: stdin)")
	summarizeCmd.Flags().StringVarP(&summarizeStyle, "style", "s", "", "summary style: concise, detailed, key-concepts or exam-focus")
	summarizeCmd.Flags().StringVar(&summarizeFormat, "format", formatJSON, "output format: json, text, markdown or html")
	summarizeCmd.Flags().StringVarP(&summarizeOut, "out", "o", "", "write output to a file instead of stdout")
}

// readNotes applies the same validation as the upload endpoint. The content
// type is always sniffed since file extensions vary.
func (r *runner) readNotes(stdin io.Reader, path string) (string, error) {
	if path == "" || path == "-" {
		return studyguide.ReadNotes(studyguide.Upload{Filename: "stdin", Body: stdin}, r.cfg.MaxUploadBytes)
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open notes: %w", err)
	}
	defer file.Close()
	return studyguide.ReadNotes(studyguide.Upload{Filename: filepath.Base(path), Body: file}, r.cfg.MaxUploadBytes)
}

func (r *runner) summarize(ctx context.Context, notes string, style studyguide.StyleID, format string) ([]byte, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	var exportFormat studyguide.ExportFormat
	if format != formatJSON {
		parsed, err := studyguide.ParseExportFormat(format)
		if err != nil {
			return nil, err
		}
		exportFormat = parsed
	}

	resp, err := r.svc.Summarize(ctx, studyguide.Request{Notes: notes, Style: style})
	if err != nil {
		return nil, err
	}

	if format == formatJSON {
		payload, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		return append(payload, '\n'), nil
	}

	artifact, err := r.svc.Export(ctx, studyguide.ExportRequest{Result: resp.Result, Topic: resp.Topic, Format: exportFormat})
	if err != nil {
		return nil, err
	}
	return artifact.Body, nil
}

func (r *runner) writeStyles(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tMAX TOKENS\tSECTIONS")
	for _, style := range r.svc.Styles() {
		sections := make([]string, 0, len(style.Sections))
		for _, id := range style.Sections {
			sections = append(sections, studyguide.Title(id))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", style.ID, style.Label, style.MaxTokens, strings.Join(sections, ", "))
	}
	return tw.Flush()
}
