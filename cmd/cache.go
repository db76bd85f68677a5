package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joeypohie/photorank/internal/config"
	"github.com/joeypohie/photorank/internal/database"
	"github.com/joeypohie/photorank/internal/embedding"
	"github.com/joeypohie/photorank/internal/photos"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Embedding cache management commands",
	Long: `Commands for managing the embedding cache in PostgreSQL or MariaDB.
The cache is selected with DATABASE_URL (postgres://... or mysql://...).`,
}

var cacheCountCmd = &cobra.Command{
	Use:   "count [dir]",
	Short: "Show how many embeddings are cached",
	Long: `Without arguments, print the number of cached embeddings per model.
With a directory, print how many of its images are already cached for the
configured embedding provider.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCacheCount,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached embeddings",
	Long: `Remove cached embeddings of one model, or of all models.

Examples:
  # Remove everything, asking first
  photorank cache clear

  # Remove only perceptual hash embeddings without asking
  photorank cache clear --model phash --yes

Remote models are keyed as http:<model>/<pretrained>@<dim>; "cache count"
lists the keys present.`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheCountCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().String("model", "", "Only remove embeddings of this model")
	cacheClearCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
}

// openCache opens the cache configured by DATABASE_URL.
func openCache(ctx context.Context, cfg *config.Config) (database.EmbeddingCache, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	cache, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	return cache, nil
}

func confirmAction(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func runCacheCount(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	out := cmd.OutOrStdout()

	cache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	if len(args) == 0 {
		counts, err := cache.Count(ctx)
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			fmt.Fprintln(out, "Cache is empty")
			return nil
		}
		total := 0
		for _, c := range counts {
			fmt.Fprintf(out, "%-12s %d\n", c.Model, c.Count)
			total += c.Count
		}
		fmt.Fprintf(out, "%-12s %d\n", "total", total)
		return nil
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	paths, err := photos.ScanDir(args[0])
	if err != nil {
		return err
	}

	hashes := make([]string, 0, len(paths))
	var first []byte
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if first == nil {
			first = data
		}
		hashes = append(hashes, embedding.ContentHash(data))
	}

	model, err := cacheModelKey(ctx, provider, first)
	if err != nil {
		return err
	}
	cached, err := cache.CountByHashes(ctx, model, hashes)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Images: %d\n", len(paths))
	fmt.Fprintf(out, "Cached (%s): %d\n", model, cached)
	return nil
}

// cacheModelKey returns the key the provider's embeddings are cached under.
// Remote providers only know it after one embedding, so sample is embedded
// when needed.
func cacheModelKey(ctx context.Context, provider embedding.Provider, sample []byte) (string, error) {
	if key := embedding.CacheKey(provider); key != "" {
		return key, nil
	}
	if sample == nil {
		return "", errors.New("no images to determine the embedding model")
	}
	if _, err := provider.Embed(ctx, sample); err != nil {
		return "", fmt.Errorf("failed to determine the embedding model: %w", err)
	}
	return embedding.CacheKey(provider), nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	model := mustGetString(cmd, "model")
	skipConfirm := mustGetBool(cmd, "yes")

	ctx := context.Background()
	cfg := config.Load()

	cache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	target := "all cached embeddings"
	if model != "" {
		target = fmt.Sprintf("cached embeddings of model %q", model)
	}
	if !skipConfirm && !confirmAction(fmt.Sprintf("Remove %s? [y/N]: ", target)) {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
		return nil
	}

	removed, err := cache.Clear(ctx, model)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d embeddings\n", removed)
	return nil
}
