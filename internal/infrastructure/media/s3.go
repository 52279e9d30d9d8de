package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
)

// S3Options configures an S3 compatible store such as MinIO.
type S3Options struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Uploader stores media in an S3 bucket.
type S3Uploader struct {
	client  s3API
	bucket  string
	baseURL string
}

// NewS3Client builds a client with static credentials, or the default AWS
// chain when no access key is set. A custom endpoint switches to path-style addressing.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3Uploader(client s3API, opts S3Options) *S3Uploader {
	base := opts.PublicBaseURL
	if base == "" {
		if opts.Endpoint != "" {
			base = strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
		}
	}
	return &S3Uploader{client: client, bucket: opts.Bucket, baseURL: strings.TrimRight(base, "/")}
}

func (u *S3Uploader) Upload(ctx context.Context, file *entity.StagedFile, folder string) (*entity.UploadedMedia, error) {
	if file == nil || file.Path == "" {
		return nil, errors.New("no staged file")
	}
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	key := ObjectKey(folder, file.Filename)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentTypeOr(file.ContentType)),
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	return &entity.UploadedMedia{URL: u.baseURL + "/" + key, Key: key}, nil
}

func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	return err
}
