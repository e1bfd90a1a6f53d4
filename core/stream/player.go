// Package stream replays a completed asset's frame artifacts over a live
// connection at the recorded rate, looping until the connection goes away.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"AsciiTV/logger"
	"AsciiTV/model"
	"AsciiTV/storage"
)

// ClearScreen moves the cursor home and clears the terminal; every emitted
// frame is prefixed with it so the consumer renders a full-screen replace.
const ClearScreen = "\x1b[2J\x1b[H"

// FrameDelay converts a recorded frame rate into the pause between frames,
// substituting model.FallbackFPS for non-positive rates.
func FrameDelay(fps float64) time.Duration {
	if fps <= 0 {
		fps = model.FallbackFPS
	}
	return time.Duration(float64(time.Second) / fps)
}

// Player replays assets from a Store. One Player serves any number of
// concurrent connections; each Play call paces independently.
type Player struct {
	store *storage.Store
}

// NewPlayer creates a Player over the given store.
func NewPlayer(store *storage.Store) *Player {
	return &Player{store: store}
}

// Play streams the asset's frames to w in order, looping from the start
// after the last frame, until ctx is canceled or w stops accepting writes.
// Missing individual frame artifacts are skipped. Returns
// storage.ErrAssetNotFound when the asset has no published metadata.
func (p *Player) Play(ctx context.Context, w io.Writer, id string) error {
	meta, err := p.store.ReadMetadata(id)
	if err != nil {
		return err
	}
	if len(meta.FramePaths) == 0 {
		return fmt.Errorf("asset %s has no frames", id)
	}

	delay := FrameDelay(meta.FPS)
	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	logger.Debug("playback started",
		logger.String("assetId", id),
		logger.Int("frames", len(meta.FramePaths)),
		logger.Duration("frameDelay", delay))

	for {
		for _, name := range meta.FramePaths {
			content, err := p.store.Frame(id, name)
			if err != nil {
				// Artifacts deleted out-of-band are skipped, not fatal.
				continue
			}

			if _, err := io.WriteString(w, ClearScreen); err != nil {
				return nil
			}
			if _, err := w.Write(content); err != nil {
				return nil
			}
			if f, ok := w.(interface{ Flush() }); ok {
				f.Flush()
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}

// IsNotFound reports whether a Play error means the asset does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrAssetNotFound)
}
