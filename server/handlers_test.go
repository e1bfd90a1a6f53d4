package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"AsciiTV/config"
	"AsciiTV/core/job"
	"AsciiTV/core/stream"
	"AsciiTV/model"
	"AsciiTV/storage"

	"github.com/gorilla/mux"
)

// stubRunner blocks until released, keeping submitted jobs in the running
// state for the duration of a test.
type stubRunner struct {
	release chan struct{}
}

func (s *stubRunner) Run(ctx context.Context, id, srcPath string) (*model.Metadata, error) {
	<-s.release
	return &model.Metadata{}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *storage.Store, *stubRunner) {
	t.Helper()
	tmp := t.TempDir()
	store := storage.NewStore(filepath.Join(tmp, "uploads"), filepath.Join(tmp, "owner"))

	runner := &stubRunner{release: make(chan struct{})}
	registry := job.NewRegistry(job.NewMemoryStore(), runner)

	cfg := &config.Config{
		MaxUploadBytes:    10 << 20,
		AllowedExtensions: []string{"mp4", "mov"},
	}

	apiHandler := NewAPIHandler(store, registry, cfg)
	streamHandler := NewStreamHandler(stream.NewPlayer(store))

	router := mux.NewRouter()
	router.HandleFunc("/api/upload", apiHandler.UploadVideoHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/status/{video_id}", apiHandler.StatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/videos", apiHandler.ListVideosHandler).Methods(http.MethodGet)
	router.Handle("/stream/{video_id}", streamHandler).Methods(http.MethodGet)
	router.HandleFunc("/audio/{video_id}", apiHandler.AudioHandler).Methods(http.MethodGet)
	router.HandleFunc("/info/{video_id}", apiHandler.InfoHandler).Methods(http.MethodGet)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(runner.release) })
	return srv, store, runner
}

func uploadBody(t *testing.T, field, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("fake video bytes")); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadRejectsBadExtension(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body, contentType := uploadBody(t, "video", "notes.txt")
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body, contentType := uploadBody(t, "wrongfield", "clip.mp4")
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadAcceptedAndRunning(t *testing.T) {
	srv, store, _ := newTestServer(t)

	body, contentType := uploadBody(t, "video", "clip.mp4")
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, raw)
	}

	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	videoID := payload["video_id"]
	if videoID == "" {
		t.Fatal("response missing video_id")
	}
	if payload["stream_url"] != "/stream/"+videoID {
		t.Errorf("stream_url = %q", payload["stream_url"])
	}

	// The uploaded source is staged inside the asset directory.
	if _, err := os.Stat(filepath.Join(store.AssetDir(videoID), "source.mp4")); err != nil {
		t.Errorf("staged source missing: %v", err)
	}

	// Status immediately after submission reports running.
	statusResp, err := http.Get(srv.URL + "/api/status/" + videoID)
	if err != nil {
		t.Fatal(err)
	}
	defer statusResp.Body.Close()

	var status model.JobStatus
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Status != model.JobRunning {
		t.Errorf("status = %s, want %s", status.Status, model.JobRunning)
	}
}

func TestStatusUnknownID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/status/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var status model.JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Status != model.JobNotFound {
		t.Errorf("status = %s, want %s", status.Status, model.JobNotFound)
	}
}

func TestInfoNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/info/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAudioNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/audio/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStreamNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/stream/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListVideosIncludesInFlight(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body, contentType := uploadBody(t, "video", "clip.mp4")
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	listResp, err := http.Get(srv.URL + "/api/videos")
	if err != nil {
		t.Fatal(err)
	}
	defer listResp.Body.Close()

	var videos []model.VideoSummary
	if err := json.NewDecoder(listResp.Body).Decode(&videos); err != nil {
		t.Fatal(err)
	}
	if len(videos) != 1 {
		t.Fatalf("videos = %+v, want one in-flight entry", videos)
	}
	if videos[0].Status != string(model.JobRunning) {
		t.Errorf("in-flight video status = %q", videos[0].Status)
	}
}
