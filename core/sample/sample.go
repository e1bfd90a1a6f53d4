// Package sample generates the built-in owner stream: a procedural ASCII
// animation written through the same storage layer as converted uploads, so
// there is always something to play before anyone uploads a video.
package sample

import (
	"fmt"
	"strings"

	"AsciiTV/logger"
	"AsciiTV/model"
	"AsciiTV/storage"
)

const (
	frameCount = 100
	fps        = 10
	gridWidth  = 80
)

// Generate writes the owner asset if it does not already exist. Idempotent:
// an existing metadata record short-circuits.
func Generate(store *storage.Store) error {
	if store.HasMetadata(model.OwnerAssetID) {
		logger.Debug("owner stream already present, skipping generation")
		return nil
	}

	if err := store.EnsureAssetDirs(model.OwnerAssetID); err != nil {
		return err
	}

	framePaths := make([]string, 0, frameCount)
	for i := 0; i < frameCount; i++ {
		name, err := store.WriteFrame(model.OwnerAssetID, i, renderFrame(i))
		if err != nil {
			return err
		}
		framePaths = append(framePaths, name)
	}

	meta := &model.Metadata{
		FPS:        fps,
		FrameCount: frameCount,
		Duration:   float64(frameCount) / fps,
		Width:      gridWidth,
		FramePaths: framePaths,
	}
	if err := store.WriteMetadata(model.OwnerAssetID, meta); err != nil {
		return err
	}

	logger.Info("owner stream created",
		logger.Int("frames", frameCount),
		logger.Float64("fps", fps))
	return nil
}

func renderFrame(i int) string {
	var lines []string
	lines = append(lines, strings.Repeat(" ", 40)+"ASCII VIDEO STREAMER")
	lines = append(lines, strings.Repeat(" ", 38)+strings.Repeat("=", 25))
	lines = append(lines, "")

	// Diagonal wave of '#' cells drifting one column per frame.
	for j := 0; j < 15; j++ {
		var b strings.Builder
		b.WriteString(strings.Repeat(" ", 20))
		for k := 0; k < 40; k++ {
			if (i+j+k)%4 == 0 {
				b.WriteByte('#')
			} else {
				b.WriteByte(' ')
			}
		}
		lines = append(lines, b.String())
	}

	lines = append(lines, "")
	lines = append(lines, strings.Repeat(" ", 35)+fmt.Sprintf("Frame: %03d/%d", i+1, frameCount))
	lines = append(lines, strings.Repeat(" ", 30)+"Streaming ASCII Art...")
	lines = append(lines, "")
	lines = append(lines, strings.Repeat(" ", 25)+"Upload your own video at:")
	lines = append(lines, strings.Repeat(" ", 25)+"POST /api/upload")

	return strings.Join(lines, "\n")
}
