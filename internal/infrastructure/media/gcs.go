package media

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	"github.com/oksasatya/go-media-identity/pkg/helpers"
)

// GCSUploader stores media in a Google Cloud Storage bucket.
type GCSUploader struct {
	client *storage.Client
	bucket string
}

func NewGCSUploader(client *storage.Client, bucket string) *GCSUploader {
	return &GCSUploader{client: client, bucket: bucket}
}

func (u *GCSUploader) Upload(ctx context.Context, file *entity.StagedFile, folder string) (*entity.UploadedMedia, error) {
	if file == nil || file.Path == "" {
		return nil, errors.New("no staged file")
	}
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	key := ObjectKey(folder, file.Filename)
	url, err := helpers.UploadObject(ctx, u.client, u.bucket, key, contentTypeOr(file.ContentType), f)
	if err != nil {
		return nil, err
	}
	return &entity.UploadedMedia{URL: url, Key: key}, nil
}

// Delete treats an already missing object as deleted.
func (u *GCSUploader) Delete(ctx context.Context, key string) error {
	return helpers.DeleteObject(ctx, u.client, u.bucket, key)
}
