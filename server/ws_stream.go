package server

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"AsciiTV/core/job"
	"AsciiTV/core/stream"
	"AsciiTV/logger"
	"AsciiTV/model"
	"AsciiTV/storage"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSStreamHandler streams frames over a websocket. For assets still being
// converted it follows the frames directory live and pushes artifacts as the
// pipeline writes them, then switches to the normal replay loop once the job
// completes.
type WSStreamHandler struct {
	store    *storage.Store
	registry *job.Registry
}

// NewWSStreamHandler creates a WSStreamHandler.
func NewWSStreamHandler(store *storage.Store, registry *job.Registry) *WSStreamHandler {
	return &WSStreamHandler{store: store, registry: registry}
}

// ServeWS upgrades the connection and runs the playback loop until the peer
// disconnects.
func (h *WSStreamHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	videoID := mux.Vars(r)["video_id"]

	// Reads are discarded, but the read pump notices the peer closing.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	if h.registry.Status(ctx, videoID).Status == model.JobRunning {
		if err := h.followLive(ctx, conn, videoID); err != nil {
			logger.Debug("live follow ended",
				logger.String("assetId", videoID),
				logger.ErrorField(err))
			return
		}
	}

	meta, err := h.store.ReadMetadata(videoID)
	if err != nil {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "video not found")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		return
	}
	if len(meta.FramePaths) == 0 {
		return
	}

	ticker := time.NewTicker(stream.FrameDelay(meta.FPS))
	defer ticker.Stop()

	for {
		for _, name := range meta.FramePaths {
			content, err := h.store.Frame(videoID, name)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, append([]byte(stream.ClearScreen), content...)); err != nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

// followLive watches the asset's frames directory and pushes new artifacts
// as the conversion produces them. Returns nil once the job leaves the
// running state so the caller can start the replay loop.
func (h *WSStreamHandler) followLive(ctx context.Context, conn *websocket.Conn, videoID string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(h.store.FramesDir(videoID)); err != nil {
		return err
	}

	processed := make(map[string]bool)
	statusTicker := time.NewTicker(500 * time.Millisecond)
	defer statusTicker.Stop()

	for {
		select {
		case event := <-watcher.Events:
			if event.Op&fsnotify.Create != fsnotify.Create || !strings.HasSuffix(event.Name, ".txt") {
				continue
			}
			if processed[event.Name] {
				continue
			}
			processed[event.Name] = true

			content, err := h.store.Frame(videoID, filepath.Base(event.Name))
			if err != nil {
				logger.Warn("read live frame", logger.ErrorField(err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, append([]byte(stream.ClearScreen), content...)); err != nil {
				return err
			}
		case err := <-watcher.Errors:
			logger.Warn("watcher error", logger.ErrorField(err))
		case <-statusTicker.C:
			if h.registry.Status(ctx, videoID).Status != model.JobRunning {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
