package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/slidereel/api/internal/assembly"
	"github.com/slidereel/api/internal/client"
)

// AssetService stages submitted input blobs into object storage under
// deterministic, order-preserving keys. Staging happens before the run is
// enqueued; the worker only ever reads keys back.
type AssetService struct {
	storage client.StorageClient
}

func NewAssetService(storage client.StorageClient) *AssetService {
	return &AssetService{storage: storage}
}

// StageImage stores one slideshow image at its sequence position.
func (s *AssetService) StageImage(ctx context.Context, projectID string, index int, file io.Reader, size int64, filename, contentType string) (assembly.Asset, error) {
	key := fmt.Sprintf("projects/%s/images/img_%02d%s", projectID, index, keyExt(filename, ".jpg"))
	return s.stage(ctx, key, file, size, contentType)
}

// StageNarration stores the narration track.
func (s *AssetService) StageNarration(ctx context.Context, projectID string, file io.Reader, size int64, filename, contentType string) (assembly.Asset, error) {
	key := fmt.Sprintf("projects/%s/narration%s", projectID, keyExt(filename, ".mp3"))
	return s.stage(ctx, key, file, size, contentType)
}

// StageThumbnail stores the optional intro still.
func (s *AssetService) StageThumbnail(ctx context.Context, projectID string, file io.Reader, size int64, filename, contentType string) (assembly.Asset, error) {
	key := fmt.Sprintf("projects/%s/thumbnail%s", projectID, keyExt(filename, ".jpg"))
	return s.stage(ctx, key, file, size, contentType)
}

// Fetch reads a staged blob back; implements the pipeline's storage contract.
func (s *AssetService) Fetch(ctx context.Context, key string) ([]byte, error) {
	return s.storage.Download(ctx, key)
}

// Store writes a finished artifact and returns its public reference;
// implements the pipeline's storage contract.
func (s *AssetService) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return s.storage.Upload(ctx, key, bytes.NewReader(data), contentType)
}

func (s *AssetService) stage(ctx context.Context, key string, file io.Reader, size int64, contentType string) (assembly.Asset, error) {
	if _, err := s.storage.Upload(ctx, key, file, contentType); err != nil {
		return assembly.Asset{}, fmt.Errorf("failed to stage %s: %w", key, err)
	}
	return assembly.Asset{Key: key, Size: size}, nil
}

// keyExt keeps the uploaded extension so decoders probe the right format.
func keyExt(filename, fallback string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		return fallback
	}
	return ext
}
