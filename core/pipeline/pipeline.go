// Package pipeline turns one uploaded source video into a complete asset
// bundle: rendered frame artifacts, an extracted audio track, and an
// atomically published metadata record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"AsciiTV/core/ascii"
	"AsciiTV/core/video"
	"AsciiTV/logger"
	"AsciiTV/model"
	"AsciiTV/storage"
)

const thumbnailName = "thumbnail.jpg"

// Pipeline converts source videos into asset bundles.
type Pipeline struct {
	store      *storage.Store
	source     video.FrameSource
	audio      video.AudioExtractor
	rasterizer *ascii.Rasterizer
}

// New creates a Pipeline. The frame source and audio extractor are injected
// so conversions can be exercised without external binaries.
func New(store *storage.Store, source video.FrameSource, audio video.AudioExtractor, rasterizer *ascii.Rasterizer) *Pipeline {
	return &Pipeline{
		store:      store,
		source:     source,
		audio:      audio,
		rasterizer: rasterizer,
	}
}

// Run converts the source file at srcPath into the asset identified by id and
// returns the published metadata. The uploaded source file is removed on
// every exit path, success or failure. Frames are written in emission order
// before the metadata record becomes visible, so a concurrent reader either
// sees no asset or a complete one.
func (p *Pipeline) Run(ctx context.Context, id, srcPath string) (*model.Metadata, error) {
	defer func() {
		if err := os.Remove(srcPath); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove uploaded source",
				logger.String("assetId", id),
				logger.String("path", srcPath),
				logger.ErrorField(err))
		}
	}()

	if err := p.store.EnsureAssetDirs(id); err != nil {
		return nil, err
	}

	info, err := p.source.Probe(ctx, srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source for %s: %w", id, err)
	}
	if info.FPS <= 0 {
		// Playback falls back to model.FallbackFPS; conversion proceeds with
		// the rate recorded as-is.
		logger.Warn("source reports non-positive frame rate, playback will use fallback",
			logger.String("assetId", id),
			logger.Float64("fps", info.FPS))
	}

	meta := &model.Metadata{
		FPS:      info.FPS,
		Duration: info.Duration,
		Width:    p.rasterizer.Width(),
	}

	// Thumbnail capture is best effort and never fails the job.
	thumbPath := filepath.Join(p.store.AssetDir(id), thumbnailName)
	if err := p.source.Thumbnail(ctx, srcPath, thumbPath); err != nil {
		logger.Warn("thumbnail capture failed",
			logger.String("assetId", id),
			logger.ErrorField(err))
	} else {
		meta.Thumbnail = thumbnailName
	}

	// Missing audio leaves the asset valid; playback tolerates it.
	audioName, err := p.audio.Extract(ctx, srcPath, p.store.AssetDir(id))
	if err != nil {
		logger.Warn("audio extraction failed, asset will have no audio",
			logger.String("assetId", id),
			logger.ErrorField(err))
	} else {
		meta.AudioPath = audioName
	}

	framePaths, err := p.renderFrames(ctx, id, srcPath)
	if err != nil {
		return nil, err
	}

	meta.FrameCount = len(framePaths)
	meta.FramePaths = framePaths
	if meta.Duration <= 0 && meta.FPS > 0 {
		meta.Duration = float64(meta.FrameCount) / meta.FPS
	}

	if err := p.store.WriteMetadata(id, meta); err != nil {
		return nil, err
	}

	logger.Info("conversion complete",
		logger.String("assetId", id),
		logger.Int("frames", meta.FrameCount),
		logger.Float64("fps", meta.FPS))
	return meta, nil
}

// renderFrames decodes the source sequentially, rasterizes every frame, and
// persists the results in emission order. A decode error mid-stream truncates
// the list at the last written frame; a raster failure aborts the job.
func (p *Pipeline) renderFrames(ctx context.Context, id, srcPath string) ([]string, error) {
	stream, err := p.source.OpenFrames(ctx, srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame stream for %s: %w", id, err)
	}
	defer stream.Close()

	w, h := stream.Bounds()
	framePaths := make([]string, 0, 256)

	for {
		pix, err := stream.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			logger.Warn("decode error mid-stream, keeping frames produced so far",
				logger.String("assetId", id),
				logger.Int("frames", len(framePaths)),
				logger.ErrorField(err))
			break
		}

		text, err := p.rasterizer.Frame(pix, w, h)
		if err != nil {
			var rasterErr *ascii.RasterError
			if errors.As(err, &rasterErr) {
				return nil, fmt.Errorf("failed to rasterize frames for %s: %w", id, err)
			}
			return nil, fmt.Errorf("failed to render frame %d for %s: %w", len(framePaths), id, err)
		}

		name, err := p.store.WriteFrame(id, len(framePaths), text)
		if err != nil {
			return nil, err
		}
		framePaths = append(framePaths, name)
	}

	return framePaths, nil
}
