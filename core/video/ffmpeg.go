package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"AsciiTV/logger"
)

// FFmpeg implements FrameSource and AudioExtractor using the ffmpeg and
// ffprobe binaries.
type FFmpeg struct {
	ffmpegPath string
}

// NewFFmpeg creates an FFmpeg wrapper. ffmpegPath names the ffmpeg binary;
// the ffprobe binary is derived from it.
func NewFFmpeg(ffmpegPath string) *FFmpeg {
	return &FFmpeg{ffmpegPath: ffmpegPath}
}

func (f *FFmpeg) ffprobePath() string {
	return strings.Replace(f.ffmpegPath, "ffmpeg", "ffprobe", 1)
}

// ffprobeStreams maps the subset of ffprobe JSON output we read.
type ffprobeStreams struct {
	Streams []struct {
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		FrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe inspects the first video stream of the source container.
func (f *FFmpeg) Probe(ctx context.Context, src string) (*Info, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json",
		src,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath(), args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffprobe failed for %s: %v: %s", ErrSourceUnreadable, src, err, stderr.String())
	}

	var probe ffprobeStreams
	if err := json.Unmarshal(out.Bytes(), &probe); err != nil {
		return nil, fmt.Errorf("%w: failed to parse ffprobe output for %s: %v", ErrSourceUnreadable, src, err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("%w: no video streams in %s", ErrSourceUnreadable, src)
	}

	stream := probe.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return nil, fmt.Errorf("%w: %s reports geometry %dx%d", ErrSourceUnreadable, src, stream.Width, stream.Height)
	}

	info := &Info{
		Width:  stream.Width,
		Height: stream.Height,
		FPS:    parseFrameRate(stream.FrameRate),
	}
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	return info, nil
}

// parseFrameRate parses ffprobe's rational rate string (e.g. "30000/1001").
// Returns 0 when the rate is absent or malformed; callers treat a
// non-positive rate as "unknown".
func parseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// ffmpegStream reads packed RGB24 frames from an ffmpeg stdout pipe.
type ffmpegStream struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	buf    []byte
	width  int
	height int
}

func (s *ffmpegStream) Next() ([]byte, error) {
	if _, err := io.ReadFull(s.out, s.buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			// A truncated trailing frame counts as end of stream.
			return nil, io.EOF
		}
		return nil, err
	}
	return s.buf, nil
}

func (s *ffmpegStream) Bounds() (int, int) {
	return s.width, s.height
}

func (s *ffmpegStream) Close() error {
	s.out.Close()
	if err := s.cmd.Wait(); err != nil {
		// ffmpeg exits non-zero when the pipe closes early; nothing to do.
		logger.Debug("ffmpeg decode process exit", logger.ErrorField(err))
	}
	return nil
}

// OpenFrames starts a decode of the full video stream as raw RGB24 frames at
// the source resolution, delivered over a stdout pipe.
func (f *FFmpeg) OpenFrames(ctx context.Context, src string) (FrameStream, error) {
	info, err := f.Probe(ctx, src)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-i", src,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start ffmpeg for %s: %v", ErrSourceUnreadable, src, err)
	}

	return &ffmpegStream{
		cmd:    cmd,
		out:    out,
		buf:    make([]byte, info.Width*info.Height*3),
		width:  info.Width,
		height: info.Height,
	}, nil
}

// Thumbnail captures the first frame of the source as a JPEG. Best effort;
// callers tolerate failure.
func (f *FFmpeg) Thumbnail(ctx context.Context, src, dest string) error {
	args := []string{
		"-i", src,
		"-vframes", "1",
		"-q:v", "3",
		dest, "-y",
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg thumbnail capture failed for %s: %w: %s", src, err, stderr.String())
	}
	return nil
}

// Extract demuxes the source's audio track into destDir. It first attempts a
// compressed mp3 encode; on failure it retries once with an uncompressed wav
// encode under a different name. The returned value is the artifact filename
// relative to destDir.
func (f *FFmpeg) Extract(ctx context.Context, src, destDir string) (string, error) {
	mp3Path := filepath.Join(destDir, "audio.mp3")
	mp3Args := []string{
		"-i", src,
		"-q:a", "0", "-map", "a",
		mp3Path, "-y",
	}
	if err := f.runFFmpeg(ctx, mp3Args); err == nil {
		return "audio.mp3", nil
	} else {
		logger.Warn("mp3 audio encode failed, retrying with wav",
			logger.String("source", src),
			logger.ErrorField(err))
		os.Remove(mp3Path)
	}

	wavPath := filepath.Join(destDir, "audio.wav")
	wavArgs := []string{
		"-i", src,
		"-vn", "-acodec", "pcm_s16le",
		"-ar", "44100", "-ac", "2",
		wavPath, "-y",
	}
	if err := f.runFFmpeg(ctx, wavArgs); err != nil {
		os.Remove(wavPath)
		return "", fmt.Errorf("%w: %v", ErrAudioExtraction, err)
	}
	return "audio.wav", nil
}

func (f *FFmpeg) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg execution failed: %w: %s", err, stderr.String())
	}
	return nil
}
