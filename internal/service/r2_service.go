package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	cfg "github.com/IsaiahDupree/MediaPoster-sub001/configs"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const assetURLTTL = 6 * time.Hour

// R2Service hands out URLs platforms can pull assets from. Public buckets get
// a plain URL, private ones a presigned GET.
type R2Service struct {
	config cfg.R2

	mu     sync.Mutex
	client *s3.Client
}

func NewR2Service(c cfg.R2) *R2Service {
	return &R2Service{config: c}
}

// R2Client builds the client on first use. A failed build is not cached, so
// the next call tries again.
func (r *R2Service) R2Client(ctx context.Context) (*s3.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return r.client, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r.config.AccessKey, r.config.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("loading r2 config: %w", err)
	}
	r.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.config.AccountID))
	})
	return r.client, nil
}

func (r *R2Service) AssetURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty storage key")
	}
	if r.config.PublicURL != "" {
		return strings.TrimRight(r.config.PublicURL, "/") + "/" + strings.TrimLeft(key, "/"), nil
	}

	client, err := r.R2Client(ctx)
	if err != nil {
		return "", err
	}
	presigned, err := s3.NewPresignClient(client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.config.BucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(assetURLTTL))
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	return presigned.URL, nil
}
