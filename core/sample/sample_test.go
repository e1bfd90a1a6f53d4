package sample

import (
	"os"
	"path/filepath"
	"testing"

	"AsciiTV/model"
	"AsciiTV/storage"
)

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	tmp := t.TempDir()
	return storage.NewStore(filepath.Join(tmp, "uploads"), filepath.Join(tmp, "owner"))
}

func TestGenerateOwnerStream(t *testing.T) {
	store := newStore(t)
	if err := Generate(store); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	meta, err := store.ReadMetadata(model.OwnerAssetID)
	if err != nil {
		t.Fatalf("owner metadata missing: %v", err)
	}
	if meta.FrameCount != 100 || meta.FPS != 10 || meta.Width != 80 {
		t.Errorf("owner metadata = %+v", meta)
	}
	if meta.Duration != 10 {
		t.Errorf("owner duration = %v, want 10", meta.Duration)
	}

	entries, err := os.ReadDir(store.FramesDir(model.OwnerAssetID))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != meta.FrameCount {
		t.Errorf("frame artifacts = %d, frame_count = %d", len(entries), meta.FrameCount)
	}
}

func TestGenerateIdempotent(t *testing.T) {
	store := newStore(t)
	if err := Generate(store); err != nil {
		t.Fatal(err)
	}

	first, err := store.Frame(model.OwnerAssetID, "frame_000000.txt")
	if err != nil {
		t.Fatal(err)
	}

	if err := Generate(store); err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	second, err := store.Frame(model.OwnerAssetID, "frame_000000.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("existing owner frames were rewritten")
	}
}

func TestFramesAnimate(t *testing.T) {
	if renderFrame(0) == renderFrame(1) {
		t.Error("consecutive sample frames are identical")
	}
}
