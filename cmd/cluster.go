package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/joeypohie/photorank/internal/config"
	"github.com/joeypohie/photorank/internal/photos"
	"github.com/joeypohie/photorank/internal/pipeline"
	"github.com/joeypohie/photorank/internal/quality"
	"github.com/joeypohie/photorank/internal/report"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster <dir>",
	Short: "Group similar photos in a directory and rank each group",
	Long: `Analyze every image directly inside a directory, group near-duplicates
and print each group ranked by quality with a recommendation of which photo
to keep.

Examples:
  # Cluster with the configured defaults
  photorank cluster ./holiday

  # Looser grouping, machine-readable output
  photorank cluster ./holiday --eps 0.4 --json

  # Flat list of photo -> cluster label (-1 for unclustered)
  photorank cluster ./holiday --json --assignments`,
	Args: cobra.ExactArgs(1),
	RunE: runCluster,
}

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.Flags().Float64("eps", 0, "Maximum cosine distance between neighbors (default from config)")
	clusterCmd.Flags().Int("min-samples", 0, "Neighbors (including the photo itself) needed to form a cluster (default from config)")
	clusterCmd.Flags().String("index", "", "Neighbor index: brute or hnsw (default from config)")
	clusterCmd.Flags().Int("workers", 0, "Number of photos analyzed in parallel (default from config)")
	clusterCmd.Flags().String("scorer", "", "Quality scorer: sharpness, blended, openai or gemini (default from config)")
	clusterCmd.Flags().Bool("json", false, "Output as JSON instead of text")
	clusterCmd.Flags().Bool("assignments", false, "With --json, print per-photo labels instead of clusters")
}

// applyClusterFlags overrides config values with the flags the user set.
func applyClusterFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("eps") {
		cfg.Cluster.Eps = mustGetFloat64(cmd, "eps")
	}
	if cmd.Flags().Changed("min-samples") {
		cfg.Cluster.MinSamples = mustGetInt(cmd, "min-samples")
	}
	if cmd.Flags().Changed("index") {
		cfg.Cluster.Index = mustGetString(cmd, "index")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Processing.Workers = mustGetInt(cmd, "workers")
	}
	if cmd.Flags().Changed("scorer") {
		cfg.Quality.Scorer = mustGetString(cmd, "scorer")
	}
}

// dirSources lists the images in dir as pipeline sources keyed by file name.
func dirSources(dir string) ([]pipeline.Source, error) {
	paths, err := photos.ScanDir(dir)
	if err != nil {
		return nil, err
	}
	sources := make([]pipeline.Source, len(paths))
	for i, path := range paths {
		name := filepath.Base(path)
		sources[i] = pipeline.Source{
			ID:       name,
			Filename: name,
			Read:     func() ([]byte, error) { return os.ReadFile(path) },
		}
	}
	return sources, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCluster(cmd *cobra.Command, args []string) error {
	dir := args[0]
	jsonOutput := mustGetBool(cmd, "json")
	assignments := mustGetBool(cmd, "assignments")

	cfg := config.Load()
	applyClusterFlags(cmd, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, err := dirSources(dir)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no images found in %s", dir)
	}

	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	var progress func(pipeline.Progress)
	if !jsonOutput {
		fmt.Fprintf(out, "Analyzing %d images (provider: %s, scorer: %s, eps: %.2f, min samples: %d)\n\n",
			len(sources), c.provider.Name(), c.scorer.Name(), cfg.Cluster.Eps, cfg.Cluster.MinSamples)

		bar := progressbar.NewOptions(len(sources),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("Analyzing"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		progress = func(p pipeline.Progress) {
			if p.Stage == pipeline.StageAnalyze {
				bar.Set(p.Done)
			}
		}
		defer bar.Finish()
	}

	outcome, err := c.pipeline.Run(ctx, sources, progress)
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}

	if jsonOutput {
		if assignments {
			return writeJSON(out, outcome.Assignments())
		}
		return writeJSON(out, outcome.Result)
	}

	if err := report.WriteText(out, outcome.Result); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nDone in %s\n", outcome.Duration.Round(time.Millisecond))

	if u, ok := c.scorer.(interface{ Usage() quality.Usage }); ok {
		usage := u.Usage()
		fmt.Fprintf(out, "Tokens used: %d input, %d output\n", usage.InputTokens, usage.OutputTokens)
	}
	return nil
}
