package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/bootstrap"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/telemetry"
)

const evaluateReasonWidth = 80

type evaluateOptions struct {
	profileID string
	strategy  string
	file      string
	verbose   bool
}

func newEvaluateCommand(configPath *string) *cobra.Command {
	var opts evaluateOptions

	cmd := &cobra.Command{
		Use:   "evaluate [text]",
		Short: "Curate one piece of content in-process and print the decision",
		Example: `  curation evaluate --profile kid "Volcanoes erupt when pressure builds."
  curation evaluate --profile teen --strategy llm_only --file post.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, *configPath, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.profileID, "profile", "p", "", "safety profile id (required)")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "", "strategy override for this request")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read the content from a file instead of arguments")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline activity to stderr")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func runEvaluate(cmd *cobra.Command, configPath string, opts evaluateOptions, args []string) error {
	text, err := evaluateText(opts.file, args)
	if err != nil {
		return err
	}

	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.Logging.OutputPaths = []string{"stderr"}
	if !opts.verbose {
		cfg.Logging.Level = "warn"
	}
	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	infra, err := bootstrap.SetupInfra(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to set up infrastructure: %w", err)
	}
	defer infra.Close(log)

	pipeline, err := bootstrap.BuildPipeline(cfg, infra, log, telemetry.NewProvider())
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	content := domain.ContentItem{ID: uuid.NewString(), Text: text, ContentType: domain.ContentTypeText}
	decision, err := pipeline.Router.Route(ctx, content, opts.profileID, opts.strategy)
	if err != nil {
		return err
	}

	renderDecision(cmd.OutOrStdout(), content.ID, opts.profileID, decision)
	return nil
}

func evaluateText(file string, args []string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read content: %w", err)
		}
		return string(data), nil
	}
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", errors.New("no content: pass text as arguments or use --file")
	}
	return text, nil
}

func renderDecision(w io.Writer, contentID, profileID string, d domain.CurationDecision) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: evaluateReasonWidth},
	})

	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Content", contentID},
		{"Profile", profileID},
		{"Action", strings.ToUpper(string(d.Action))},
		{"Reason", d.Reason},
		{"Confidence", fmt.Sprintf("%.2f", d.Confidence)},
		{"Strategy", d.StrategyUsed},
		{"Layers", strings.Join(d.LayerNames(), " -> ")},
		{"Cached", d.Cached},
		{"Time", fmt.Sprintf("%d ms", d.ProcessingTimeMs)},
	})
	for _, e := range d.Errors {
		t.AppendRow(table.Row{"Error", e})
	}
	t.Render()
}
