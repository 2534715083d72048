package service

import (
	"context"
	"strings"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ahrie-ai/backend/config"
	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/models"
)

// ErrMediaUnavailable is returned for bucket keys when no bucket is configured.
var ErrMediaUnavailable = apperr.New(apperr.CodeNotFound, "image storage not configured")

// Presigner is the subset of *s3.PresignClient the media service uses.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// MediaService turns stored clinic image references into fetchable URLs
type MediaService struct {
	presigner Presigner
	bucket    string
	expiry    time.Duration
}

var _ IMediaService = (*MediaService)(nil)

// NewMediaService creates a MediaService. A nil s3cfg serves absolute URLs only.
func NewMediaService(s3cfg *config.S3Config, expiry time.Duration) *MediaService {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	m := &MediaService{expiry: expiry}
	if s3cfg != nil {
		m.presigner = s3cfg.Presigner
		m.bucket = s3cfg.BucketName
	}
	return m
}

// NewMediaServiceWithPresigner is used when the presign client is built elsewhere.
func NewMediaServiceWithPresigner(p Presigner, bucket string, expiry time.Duration) *MediaService {
	m := NewMediaService(nil, expiry)
	m.presigner = p
	m.bucket = bucket
	return m
}

// ImageURL returns ref unchanged when it is already an absolute URL, otherwise a presigned GET for the bucket key.
func (m *MediaService) ImageURL(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", apperr.New(apperr.CodeInvalidArgument, "empty image reference")
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	if m.presigner == nil || m.bucket == "" {
		return "", ErrMediaUnavailable
	}

	key := strings.TrimPrefix(ref, "/")
	req, err := m.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &m.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(m.expiry))
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeUpstreamUnavailable, "failed to presign image")
	}
	return req.URL, nil
}

// ClinicImage resolves the first usable image of a clinic.
func (m *MediaService) ClinicImage(ctx context.Context, clinic *models.Clinic) (string, bool) {
	for _, ref := range clinic.Images {
		url, err := m.ImageURL(ctx, ref)
		if err == nil {
			return url, true
		}
		logger.FromContext(ctx).Debug("skipping clinic image", "clinic_id", clinic.ID, "error", err)
	}
	return "", false
}
