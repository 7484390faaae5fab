package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/track-notifier/internal/ai"
	"github.com/nhle/track-notifier/internal/extract"
	"github.com/nhle/track-notifier/internal/fanout"
	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/summary"
	"github.com/nhle/track-notifier/internal/theme"
	"github.com/nhle/track-notifier/internal/track"
)

var previewOffline bool

// previewCmd shows what subscribers would receive for an announcement
var previewCmd = &cobra.Command{
	Use:   "preview [file]",
	Short: "Classify an announcement and print the summary subscribers would get",
	Long: `Read announcement text from a file or stdin, classify it and print
the assembled summary. Nothing is sent.

Examples:
  # Preview a saved announcement
  trackctl preview announcement.txt

  # Preview from stdin without calling the summarizer
  pbpaste | trackctl preview --offline -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().BoolVar(&previewOffline, "offline", false, "skip the summarizer and use the fallback summary")
}

func runPreview(cmd *cobra.Command, args []string) error {
	var (
		text []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		text, err = io.ReadAll(cmd.InOrStdin())
	} else {
		text, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading announcement: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if previewOffline {
		cfg.Summarizer.Provider = "none"
	}
	return preview(cmd.Context(), cfg, string(text), cmd.OutOrStdout())
}

// preview classifies text and writes the message subscribers would get.
func preview(ctx context.Context, cfg *model.AppConfig, text string, w io.Writer) error {
	catalog, err := track.ParseCatalog(cfg.Tracks.Catalog)
	if err != nil {
		return err
	}
	policy, err := track.ParsePolicy(cfg.Tracks.Policy)
	if err != nil {
		return err
	}
	classifier, err := track.NewClassifier(catalog, policy)
	if err != nil {
		return err
	}
	endpointPolicy, err := extract.ParseEndpointPolicy(cfg.Extraction.EndpointPolicy)
	if err != nil {
		return err
	}

	t, ok := classifier.Classify(text)
	if !ok {
		fmt.Fprintln(w, theme.ErrorStyle.Render("No track matched; the announcement would be dropped."))
		return nil
	}

	summarizer, err := ai.New(cfg.Summarizer)
	if err != nil {
		return err
	}
	assembler := summary.NewAssembler(
		summarizer,
		extract.New(endpointPolicy),
		catalog,
		summary.Options{
			MaxInputTokens: cfg.Summarizer.MaxInputTokens,
			MinLength:      cfg.Summarizer.MinLength,
			MaxLength:      cfg.Summarizer.MaxLength,
			Timeout:        cfg.Summarizer.Timeout(),
		},
		nil,
	)
	doc := assembler.Assemble(ctx, text, t)

	fmt.Fprintln(w, theme.SuccessStyle.Render("Track: "+catalog.Label(t)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.PanelStyle.Render(fanout.ComposePlainMessage(doc, "", cfg.Fanout.Attribution)))
	return nil
}
