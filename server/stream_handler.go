package server

import (
	"net/http"

	"AsciiTV/core/stream"
	"AsciiTV/logger"

	"github.com/gorilla/mux"
)

// StreamHandler serves the looping terminal playback stream. Each connection
// gets its own independently paced loop; the handler returns only when the
// client disconnects.
type StreamHandler struct {
	player *stream.Player
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(player *stream.Player) *StreamHandler {
	return &StreamHandler{player: player}
}

// flushWriter flushes the HTTP response after every frame so the terminal
// renders in real time instead of waiting on response buffering.
type flushWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	return fw.w.Write(p)
}

func (fw *flushWriter) Flush() {
	if fw.flusher != nil {
		fw.flusher.Flush()
	}
}

// ServeHTTP implements http.Handler.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["video_id"]

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, _ := w.(http.Flusher)
	fw := &flushWriter{w: w, flusher: flusher}

	err := h.player.Play(r.Context(), fw, videoID)
	if err != nil {
		if stream.IsNotFound(err) {
			http.Error(w, "Video not found", http.StatusNotFound)
			return
		}
		logger.Warn("playback ended with error",
			logger.String("assetId", videoID),
			logger.ErrorField(err))
		http.Error(w, "Stream unavailable", http.StatusInternalServerError)
		return
	}

	logger.Debug("playback connection closed", logger.String("assetId", videoID))
}
