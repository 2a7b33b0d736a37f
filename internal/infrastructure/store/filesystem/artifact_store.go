package filesystem

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
	"text2model/internal/infrastructure/metrics"
)

const (
	imagesDir = "images"
	modelsDir = "models"
	stampFmt  = "20060102_150405"
)

// ArtifactStore writes generated images and models below basePath:
//
//	<basePath>/images/<prefix>_<ts>_<rand>.png   (+ .json sidecar)
//	<basePath>/models/<prefix>_<ts>_<rand>.json
type ArtifactStore struct {
	basePath  string
	now       func() time.Time
	writeFile func(name string, data []byte, perm os.FileMode) error
}

var _ repository.ArtifactStore = (*ArtifactStore)(nil)

func NewArtifactStore(basePath string) (*ArtifactStore, error) {
	for _, dir := range []string{basePath, filepath.Join(basePath, imagesDir), filepath.Join(basePath, modelsDir)} {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
	}
	return &ArtifactStore{basePath: basePath, now: time.Now, writeFile: os.WriteFile}, nil
}

func ensureDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(path, 0755); mkErr != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, mkErr)
		}
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to check directory %s: %w", path, err)
	} else if !info.IsDir() {
		return fmt.Errorf("path %s exists but is not a directory", path)
	}
	return nil
}

// filename combines a timestamp with a random suffix so that concurrent runs
// never write to the same file.
func (s *ArtifactStore) filename(prefix, ext string) (string, string) {
	ts := s.now().Format(stampFmt)
	return fmt.Sprintf("%s_%s_%s%s", prefix, ts, uuid.NewString()[:8], ext), ts
}

func (s *ArtifactStore) SaveImage(ctx context.Context, data, prompt, prefix string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if i := strings.Index(data, ","); i >= 0 && strings.HasPrefix(data, "data:") {
		data = data[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		metrics.IncError("artifact_store", "decode")
		return "", "", fmt.Errorf("failed to decode image data: %w", err)
	}

	filename, ts := s.filename(prefix, ".png")
	path := filepath.Join(s.basePath, imagesDir, filename)
	if err := s.writeFile(path, raw, 0644); err != nil {
		metrics.IncError("artifact_store", "write")
		return "", "", fmt.Errorf("failed to write image %s: %w", filename, err)
	}

	sidecar := map[string]interface{}{
		"prompt":    prompt,
		"timestamp": ts,
		"filename":  filename,
	}
	if err := s.writeJSON(sidecarPath(path), sidecar); err != nil {
		metrics.IncError("artifact_store", "write")
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return "", "", fmt.Errorf("failed to write image metadata: %w (cleanup: %w)", err, rmErr)
		}
		return "", "", fmt.Errorf("failed to write image metadata: %w", err)
	}

	metrics.IncArtifactSaved(string(entity.ArtifactImage))
	return path, filename, nil
}

func (s *ArtifactStore) SaveModel(ctx context.Context, data map[string]any, prompt, sourceImage, prefix string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	filename, ts := s.filename(prefix, ".json")
	path := filepath.Join(s.basePath, modelsDir, filename)

	doc := map[string]interface{}{
		"model_data": data,
		"metadata": map[string]interface{}{
			"original_prompt": prompt,
			"source_image":    sourceImage,
			"timestamp":       ts,
			"generation_time": s.now().UTC().Format(time.RFC3339),
		},
	}
	if err := s.writeJSON(path, doc); err != nil {
		metrics.IncError("artifact_store", "write")
		return "", "", fmt.Errorf("failed to write model %s: %w", filename, err)
	}

	metrics.IncArtifactSaved(string(entity.ArtifactModel))
	return path, filename, nil
}

// Remove deletes an artifact and its sidecar. Missing files are not an error.
func (s *ArtifactStore) Remove(path string) error {
	rel, err := filepath.Rel(s.basePath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path %s is outside of %s", path, s.basePath)
	}
	for _, p := range []string{path, sidecarPath(path)} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// sidecarPath is the metadata file next to an image; models carry their
// metadata inline and have none.
func sidecarPath(path string) string {
	if filepath.Ext(path) != ".png" {
		return ""
	}
	return strings.TrimSuffix(path, ".png") + ".json"
}

func (s *ArtifactStore) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return s.writeFile(path, data, 0644)
}
