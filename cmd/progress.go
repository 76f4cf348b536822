package cmd

import (
	"fmt"

	"github.com/schollz/progressbar/v3"

	"github.com/ukogan/removebadphotos/internal/catalog"
)

// barProgress adapts pipeline progress reports to a terminal progress bar.
// A new bar is started whenever the stage changes.
func barProgress() catalog.ProgressFunc {
	var bar *progressbar.ProgressBar
	var stage string

	return func(p catalog.Progress) {
		if p.Total <= 0 {
			return
		}
		if bar == nil || stage != p.Stage {
			if bar != nil {
				_ = bar.Finish()
				fmt.Println()
			}
			stage = p.Stage
			bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetDescription(stage),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("photos"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
		}
		_ = bar.Set(p.Current)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
