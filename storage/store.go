// Package storage manages asset bundles on the local filesystem. Each asset
// lives in its own directory holding a frames/ subdirectory of immutable text
// artifacts, at most one audio file, and a metadata.json record that is only
// visible once the whole bundle is durable.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"AsciiTV/model"
)

// ErrAssetNotFound reports that no completed asset exists for the given id.
var ErrAssetNotFound = errors.New("asset not found")

const (
	metadataFile = "metadata.json"
	framesSubdir = "frames"
)

// Store resolves asset ids to directories and performs all artifact I/O.
type Store struct {
	uploadRoot string
	ownerRoot  string
}

// NewStore creates a Store over the given roots. Uploaded assets live under
// uploadRoot/<id>; the sentinel owner asset lives directly in ownerRoot.
func NewStore(uploadRoot, ownerRoot string) *Store {
	return &Store{uploadRoot: uploadRoot, ownerRoot: ownerRoot}
}

// AssetDir returns the directory holding the given asset's bundle.
func (s *Store) AssetDir(id string) string {
	if id == model.OwnerAssetID {
		return s.ownerRoot
	}
	return filepath.Join(s.uploadRoot, id)
}

// FramesDir returns the directory holding the asset's frame artifacts.
func (s *Store) FramesDir(id string) string {
	return filepath.Join(s.AssetDir(id), framesSubdir)
}

// EnsureAssetDirs creates the asset directory tree if it does not exist.
func (s *Store) EnsureAssetDirs(id string) error {
	if err := os.MkdirAll(s.FramesDir(id), 0755); err != nil {
		return fmt.Errorf("failed to create asset directories for %s: %w", id, err)
	}
	return nil
}

// FrameName returns the artifact filename for a frame index. Indices are
// zero-padded so lexicographic order matches emission order.
func FrameName(index int) string {
	return fmt.Sprintf("frame_%06d.txt", index)
}

// WriteFrame persists one rendered frame and returns its artifact filename.
// Frames are written exactly once and never rewritten.
func (s *Store) WriteFrame(id string, index int, content string) (string, error) {
	name := FrameName(index)
	path := filepath.Join(s.FramesDir(id), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write frame %s: %w", name, err)
	}
	return name, nil
}

// Frame reads one frame artifact by filename.
func (s *Store) Frame(id, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.FramesDir(id), name))
}

// WriteMetadata publishes the asset's metadata record. The record is written
// to a temporary file and renamed into place so a concurrent reader never
// observes a half-written file.
func (s *Store) WriteMetadata(id string, meta *model.Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata for %s: %w", id, err)
	}

	dir := s.AssetDir(id)
	tmp, err := os.CreateTemp(dir, metadataFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create metadata temp file for %s: %w", id, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write metadata for %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close metadata temp file for %s: %w", id, err)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, metadataFile)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to publish metadata for %s: %w", id, err)
	}
	return nil
}

// ReadMetadata loads the asset's metadata record. Returns ErrAssetNotFound
// when the asset is absent or not yet complete.
func (s *Store) ReadMetadata(id string) (*model.Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.AssetDir(id), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
		}
		return nil, fmt.Errorf("failed to read metadata for %s: %w", id, err)
	}

	var meta model.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata for %s: %w", id, err)
	}
	return &meta, nil
}

// HasMetadata reports whether the asset has a published metadata record.
func (s *Store) HasMetadata(id string) bool {
	_, err := os.Stat(filepath.Join(s.AssetDir(id), metadataFile))
	return err == nil
}

// AudioPath locates the asset's audio artifact, preferring the compressed
// encode. The second value reports whether any audio exists.
func (s *Store) AudioPath(id string) (string, bool) {
	for _, name := range []string{"audio.mp3", "audio.wav"} {
		path := filepath.Join(s.AssetDir(id), name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// ListUploadedIDs returns the ids of all asset directories under the upload
// root, completed or not. The owner asset is not included.
func (s *Store) ListUploadedIDs() ([]string, error) {
	entries, err := os.ReadDir(s.uploadRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list upload root: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}
