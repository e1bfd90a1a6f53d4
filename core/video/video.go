// Package video wraps the external ffmpeg/ffprobe tooling behind small
// interfaces so the conversion pipeline can be driven without the real
// binaries in tests.
package video

import (
	"context"
	"errors"
)

// ErrSourceUnreadable reports a source container or codec that cannot be
// opened.
var ErrSourceUnreadable = errors.New("source video unreadable")

// ErrAudioExtraction reports that no audio track could be demuxed from the
// source after all fallback encodes were attempted.
var ErrAudioExtraction = errors.New("audio extraction failed")

// Info describes a probed source video.
type Info struct {
	FPS      float64
	Duration float64 // seconds, 0 when the container does not report it
	Width    int
	Height   int
}

// FrameStream yields decoded RGB24 frames in presentation order.
type FrameStream interface {
	// Next returns the next frame as packed RGB24 bytes. The returned slice
	// is only valid until the following call. io.EOF marks end of stream.
	Next() ([]byte, error)
	// Bounds returns the pixel geometry of every frame in the stream.
	Bounds() (width, height int)
	Close() error
}

// FrameSource opens source videos for probing and sequential decoding.
type FrameSource interface {
	Probe(ctx context.Context, src string) (*Info, error)
	OpenFrames(ctx context.Context, src string) (FrameStream, error)
	Thumbnail(ctx context.Context, src, dest string) error
}

// AudioExtractor demuxes the audio track of a source video into destDir and
// returns the artifact filename.
type AudioExtractor interface {
	Extract(ctx context.Context, src, destDir string) (string, error)
}
