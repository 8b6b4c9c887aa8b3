// Package storage persists post images on local disk or in an S3 compatible bucket.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/Morgoth-Ryuk/hw05-final/config"
)

// ImagePrefix is the key prefix for post images.
const ImagePrefix = "posts/"

// ImageStore saves and locates uploaded images by key.
type ImageStore interface {
	Save(ctx context.Context, key, contentType string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New builds the store selected in configuration.
func New(ctx context.Context, cfg config.AppConfig) (ImageStore, error) {
	switch cfg.StorageBackend {
	case "", "local":
		return NewLocal(cfg.UploadDir, cfg.MediaURL)
	case "minio":
		return NewMinio(ctx, MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.MinioBucket,
			PublicURL: cfg.MinioPublicURL,
		})
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}

// SaveImage stores data under posts/<name>, adding a short suffix when the key is taken.
// It returns the key actually used.
func SaveImage(ctx context.Context, s ImageStore, name, contentType string, data []byte) (string, error) {
	key := ImagePrefix + name
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("check image key: %w", err)
	}
	if exists {
		ext := path.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		key = ImagePrefix + stem + "_" + uuid.NewString()[:7] + ext
	}
	if err := s.Save(ctx, key, contentType, data); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return key, nil
}

func joinURL(base, key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
