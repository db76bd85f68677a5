package report

import (
	"fmt"
	"io"
)

// WriteText prints the console listing of r. Clusters are numbered from 1.
func WriteText(w io.Writer, r Result) error {
	pw := &printer{w: w}

	if len(r.Clusters) == 0 {
		pw.printf("\nNo clusters found. This might mean:\n")
		pw.printf("1. No similar images were found\n")
		pw.printf("2. The clustering parameters might need adjustment\n")
	} else {
		pw.printf("\nClustering and Ranking Results:\n")
	}

	if len(r.Unclustered) > 0 {
		pw.printf("\nUnclustered images (no similar matches found):\n")
		for _, p := range r.Unclustered {
			pw.printf("- %s (Score: %s)\n", p.Filename, formatScore(p.Score))
		}
	}

	for i, c := range r.Clusters {
		pw.printf("\nCluster %d (similar images, ranked by quality):\n", i+1)
		pw.printf("Number of images in cluster: %d\n", len(c.Photos))
		for _, p := range c.Photos {
			pw.printf("- %s (Score: %s)\n", p.Filename, formatScore(p.Score))
		}
		pw.printf("  Recommended to keep: %s (Score: %s)\n",
			c.RecommendedPhoto.Filename, formatScore(c.RecommendedPhoto.Score))
	}

	if len(r.Skipped) > 0 {
		pw.printf("\nSkipped images (could not be analyzed):\n")
		for _, s := range r.Skipped {
			pw.printf("- %s: %s\n", s.Filename, s.Reason)
		}
	}

	return pw.err
}

func formatScore(s *float64) string {
	if s == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *s)
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
