package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"AsciiTV/config"
	"AsciiTV/core/job"
	"AsciiTV/logger"
	"AsciiTV/model"
	"AsciiTV/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// APIHandler serves the upload, status, and asset-info endpoints.
type APIHandler struct {
	store    *storage.Store
	registry *job.Registry
	cfg      *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(store *storage.Store, registry *job.Registry, cfg *config.Config) *APIHandler {
	return &APIHandler{
		store:    store,
		registry: registry,
		cfg:      cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to write JSON response", logger.ErrorField(err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// UploadVideoHandler accepts a multipart video upload, assigns it a fresh
// asset id, and submits the conversion to run in the background. Expected
// form field: "video".
func (h *APIHandler) UploadVideoHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse multipart form: %v", err))
		return
	}

	videoFile, videoHeader, err := r.FormFile("video")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "No video file")
		return
	}
	defer videoFile.Close()

	if videoHeader.Filename == "" {
		writeJSONError(w, http.StatusBadRequest, "No selected file")
		return
	}
	if !h.cfg.ExtensionAllowed(videoHeader.Filename) {
		writeJSONError(w, http.StatusBadRequest, "Invalid file type")
		return
	}

	videoID := uuid.NewString()
	if err := h.store.EnsureAssetDirs(videoID); err != nil {
		logger.Error("failed to create asset directories",
			logger.String("assetId", videoID),
			logger.ErrorField(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to prepare storage")
		return
	}

	// The original upload lives inside the asset directory until the
	// pipeline removes it.
	ext := filepath.Ext(videoHeader.Filename)
	sourcePath := filepath.Join(h.store.AssetDir(videoID), "source"+ext)
	if err := saveUploadedFile(videoFile, sourcePath); err != nil {
		logger.Error("failed to save uploaded video",
			logger.String("assetId", videoID),
			logger.ErrorField(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}

	h.registry.Submit(videoID, sourcePath)

	logger.Info("upload accepted",
		logger.String("assetId", videoID),
		logger.String("filename", videoHeader.Filename),
		logger.Int64("size", videoHeader.Size))

	writeJSON(w, http.StatusOK, map[string]string{
		"video_id":     videoID,
		"status":       string(model.JobRunning),
		"stream_url":   fmt.Sprintf("/stream/%s", videoID),
		"audio_url":    fmt.Sprintf("/audio/%s", videoID),
		"curl_command": fmt.Sprintf("curl -N http://%s/stream/%s", r.Host, videoID),
	})
}

func saveUploadedFile(file multipart.File, destPath string) error {
	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", destPath, err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, file); err != nil {
		return fmt.Errorf("failed to copy uploaded file to %s: %w", destPath, err)
	}
	return nil
}

// StatusHandler reports the conversion state for one asset id.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["video_id"]
	status := h.registry.Status(r.Context(), videoID)
	writeJSON(w, http.StatusOK, status)
}

// InfoHandler returns the raw metadata record of a completed asset.
func (h *APIHandler) InfoHandler(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["video_id"]

	meta, err := h.store.ReadMetadata(videoID)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "Video not found")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// AudioHandler serves the asset's extracted audio track.
func (h *APIHandler) AudioHandler(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["video_id"]

	audioPath, ok := h.store.AudioPath(videoID)
	if !ok {
		http.Error(w, "Audio not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, audioPath)
}

// ListVideosHandler lists the owner stream plus all uploaded assets,
// completed or still converting.
func (h *APIHandler) ListVideosHandler(w http.ResponseWriter, r *http.Request) {
	videos := []model.VideoSummary{}

	if ownerMeta, err := h.store.ReadMetadata(model.OwnerAssetID); err == nil {
		videos = append(videos, model.VideoSummary{
			ID:       model.OwnerAssetID,
			Name:     "Default Stream",
			Duration: ownerMeta.Duration,
			FPS:      ownerMeta.FPS,
			Status:   string(model.JobCompleted),
		})
	}

	ids, err := h.store.ListUploadedIDs()
	if err != nil {
		logger.Error("failed to list uploaded assets", logger.ErrorField(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to list videos")
		return
	}

	for _, id := range ids {
		name := "Uploaded Video " + shortID(id)
		if meta, err := h.store.ReadMetadata(id); err == nil {
			videos = append(videos, model.VideoSummary{
				ID:       id,
				Name:     name,
				Duration: meta.Duration,
				FPS:      meta.FPS,
				Status:   string(model.JobCompleted),
			})
			continue
		}

		// No metadata yet: surface the registry state if the job is known.
		status := h.registry.Status(r.Context(), id)
		if status.Status != model.JobNotFound {
			videos = append(videos, model.VideoSummary{
				ID:     id,
				Name:   name,
				Status: string(status.Status),
			})
		}
	}

	writeJSON(w, http.StatusOK, videos)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
