package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/roamline/roamline-server/internal/config"
)

// Storage is where uploaded trip media lives. Keys are relative paths; the
// public URL for a key is the configured base plus the key.
type Storage interface {
	Open(name string) (File, error)
	Create(name string) (File, error)
	Mkdir(name string, perm fs.FileMode) error
	MkdirAll(name string, perm fs.FileMode) error
	Remove(name string) error
	Sub(dir string) (Storage, error)
	Close() error
}

type File interface {
	io.ReadCloser
	io.Writer
}

func NewStorage(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.Persistence.Uploads.Driver {
	case config.UploadsDriverFilesystem:
		root := cfg.Persistence.Uploads.FilesystemOptions.Directory
		err := os.MkdirAll(root, 0755)
		if err != nil {
			return nil, fmt.Errorf("failed to create uploads directory: %w", err)
		}
		fsStorage, err := newFilesystem(root)
		if err != nil {
			return nil, err
		}
		return fsStorage, nil
	case config.UploadsDriverS3:
		awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Persistence.Uploads.S3Options.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsConfig, func(options *s3.Options) {
			options.UsePathStyle = true
			if cfg.Persistence.Uploads.S3Options.Endpoint != "" {
				options.BaseEndpoint = aws.String(cfg.Persistence.Uploads.S3Options.Endpoint)
			}
		})
		s3Storage, err := newS3(
			cfg.Persistence.Uploads.S3Options.Region,
			cfg.Persistence.Uploads.S3Options.Bucket,
			"",
			client)
		if err != nil {
			return nil, err
		}
		return s3Storage, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Persistence.Uploads.Driver)
	}
}
