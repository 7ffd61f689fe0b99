// Package media resolves stored media keys into URLs LinkedIn can fetch.
// Post rows carry opaque object-storage keys; the publish pipeline needs
// concrete, time-limited URLs at the moment of the API call.
package media

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrPresignFailed is returned when a presigned URL cannot be generated.
var ErrPresignFailed = errors.New("media: presign failed")

// Config holds object storage settings.
type Config struct {
	Bucket    string `env:"MEDIA_BUCKET,required"`
	Region    string `env:"MEDIA_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"MEDIA_ACCESS_KEY,required"`
	SecretKey string `env:"MEDIA_SECRET_KEY,required"`
	// Endpoint overrides the AWS default for S3-compatible providers.
	Endpoint  string `env:"MEDIA_ENDPOINT"`
	PathStyle bool   `env:"MEDIA_PATH_STYLE" envDefault:"false"`
	// URLTTL must outlive the publish call plus LinkedIn's fetch.
	URLTTL time.Duration `env:"MEDIA_URL_TTL" envDefault:"1h"`
}

// Resolver turns media keys into fetchable URLs.
type Resolver interface {
	Resolve(ctx context.Context, keys []string) ([]string, error)
}

// S3Resolver implements Resolver with presigned GET URLs.
type S3Resolver struct {
	presigner *s3.PresignClient
	cfg       Config
}

// NewS3Resolver creates a resolver over S3-compatible storage.
func NewS3Resolver(cfg Config) *S3Resolver {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	client := s3.New(s3.Options{}, opts...)

	return &S3Resolver{
		presigner: s3.NewPresignClient(client),
		cfg:       cfg,
	}
}

// Resolve presigns a GET URL per key, preserving order.
func (r *S3Resolver) Resolve(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		out, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.cfg.Bucket),
			Key:    aws.String(key),
		}, func(po *s3.PresignOptions) {
			po.Expires = r.cfg.URLTTL
		})
		if err != nil {
			return nil, errors.Join(ErrPresignFailed, err)
		}
		urls = append(urls, out.URL)
	}
	return urls, nil
}
