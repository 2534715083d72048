package config

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds S3 client and bucket info
type S3Config struct {
	Client     *s3.Client
	Presigner  *s3.PresignClient
	BucketName string
}

// NewS3Config initializes the S3 client for the configured clinic media bucket
func NewS3Config(ctx context.Context, cfg *Config) (*S3Config, error) {
	if !cfg.MediaEnabled() {
		return nil, errors.New("S3_BUCKET_NAME is not set")
	}

	// Load AWS config from environment or shared config
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg)

	return &S3Config{
		Client:     client,
		Presigner:  s3.NewPresignClient(client),
		BucketName: cfg.S3BucketName,
	}, nil
}
