package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/pkg/backend"
)

func getProgressBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

// withSpinner runs fn while a spinner animates on the terminal.
func withSpinner(enabled bool, description string, fn func()) {
	if !enabled {
		fn()
		return
	}

	spinner := getSpinner(description)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			spinner.Finish()
			return
		case <-ticker.C:
			spinner.Add(1)
		}
	}
}

func uploadProgress(enabled bool) backend.ProgressFunc {
	return func(file models.PendingUpload, total int64) io.Writer {
		if !enabled {
			return nil
		}
		return getProgressBar(total, "Uploading "+file.Name)
	}
}
