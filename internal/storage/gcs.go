package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

type GCSStorage struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSStorage(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// CredentialsOptions loads a service account or user credentials file for the
// storage client. An empty path leaves discovery to Application Default
// Credentials.
func CredentialsOptions(ctx context.Context, credentialsFile string) ([]option.ClientOption, error) {
	if credentialsFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, storage.ScopeReadWrite)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) ObjectPath(objectName string) string {
	return path.Join(s.prefix, objectName)
}

func (s *GCSStorage) Publish(ctx context.Context, localPath, objectName string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	name := s.ObjectPath(objectName)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = mime.TypeByExtension(filepath.Ext(localPath))

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %s: %w", name, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}

var _ Publisher = (*GCSStorage)(nil)
