package resource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Config contains configuration for S3-compatible storage
type S3Config struct {
	// Endpoint is the S3-compatible endpoint URL (e.g., https://account-id.r2.cloudflarestorage.com)
	// For AWS S3, leave empty to use default
	Endpoint string `yaml:"endpoint"`

	// Region for the bucket (e.g., "us-east-1", "auto" for R2)
	Region string `yaml:"region"`

	// AccessKeyID falls back to R2_ACCESS_KEY_ID, then AWS_ACCESS_KEY_ID.
	AccessKeyID string `yaml:"access_key_id"`

	// SecretAccessKey falls back to R2_SECRET_ACCESS_KEY, then AWS_SECRET_ACCESS_KEY.
	SecretAccessKey string `yaml:"secret_access_key"`

	// MaxObjectBytes bounds a single download. Zero means 32 MiB.
	MaxObjectBytes int64 `yaml:"max_object_bytes"`
}

// Enabled reports whether enough is set to build a client.
func (c S3Config) Enabled() bool {
	return c.Endpoint != "" || c.Region != ""
}

// S3Client reads and writes objects in S3-compatible storage (AWS S3, Cloudflare R2, etc.)
type S3Client struct {
	client   *s3.Client
	maxBytes int64
}

// NewS3Client creates a client. Without explicit or R2/AWS env credentials
// the SDK default chain is used.
func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey

	if accessKey == "" {
		accessKey = os.Getenv("R2_ACCESS_KEY_ID")
		if accessKey == "" {
			accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		}
	}
	if secretKey == "" {
		secretKey = os.Getenv("R2_SECRET_ACCESS_KEY")
		if secretKey == "" {
			secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		}
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for R2
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	maxBytes := cfg.MaxObjectBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}

	log.Info().
		Str("region", region).
		Str("endpoint", cfg.Endpoint).
		Bool("staticCredentials", accessKey != "" && secretKey != "").
		Msg("Object storage client initialized")

	return &S3Client{client: client, maxBytes: maxBytes}, nil
}

// Fetch downloads s3://bucket/key.
func (f *S3Client) Fetch(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseObjectURL(location)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("bucket", bucket).Str("key", key).Msg("Fetching object")

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", location, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("object %s exceeds %d bytes", location, f.maxBytes)
	}
	return data, nil
}

// Store uploads data to s3://bucket/key.
func (f *S3Client) Store(ctx context.Context, location string, data []byte, contentType string) error {
	bucket, key, err := ParseObjectURL(location)
	if err != nil {
		return err
	}

	log.Debug().Str("bucket", bucket).Str("key", key).Str("contentType", contentType).Msg("Uploading object")

	_, err = f.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", location, err)
	}
	return nil
}
