package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photorank",
	Short: "Group similar photos and recommend the best shot of each group",
	Long: `photorank embeds a batch of photos, groups near-duplicates with density
clustering over cosine distance, and ranks every group by image quality so
you only keep the best shot.

Run it on a directory with "photorank cluster", or start the web UI with
"photorank serve".`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
