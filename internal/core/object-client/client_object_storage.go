package objectclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/markdave123-py/Learnify/internal/config"
	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/logger"
)

// S3Client talks to Cloudflare R2 (or plain S3 when no endpoint is configured).
type S3Client struct {
	client   *s3.Client
	bucket   string
	endpoint string
	region   string
}

var _ core.ObjectClient = (*S3Client)(nil)

func NewS3Client(ctx context.Context, cfg *cfg.Config) (*S3Client, error) {
	if cfg.AwsAccessKey == "" || cfg.AwsSecretKey == "" {
		return nil, fmt.Errorf("object storage credentials not set")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("bucket name not set")
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(cfg.AwsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := Endpoint(cfg.R2Endpoint, cfg.R2AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Info("object storage client ready", "bucket", cfg.BucketName, "endpoint", endpoint)

	return &S3Client{
		client:   client,
		bucket:   cfg.BucketName,
		endpoint: endpoint,
		region:   cfg.AwsRegion,
	}, nil
}

// Endpoint resolves the R2 endpoint. An explicit endpoint wins over the account id;
// both empty means the default AWS endpoint resolution.
func Endpoint(explicit, accountID string) string {
	if explicit != "" {
		return strings.TrimRight(explicit, "/")
	}
	if accountID != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}
	return ""
}

// ObjectKey builds the storage key for an upload: "<unix-millis>-<basename>".
func ObjectKey(now time.Time, filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "document.pdf"
	}
	name = strings.ReplaceAll(name, " ", "_")
	return fmt.Sprintf("%d-%s", now.UnixMilli(), name)
}

// UploadFile uploads a file and returns the object URL.
func (c *S3Client) UploadFile(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	uploader := manager.NewUploader(c.client)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if _, err := uploader.Upload(ctxUpload, input); err != nil {
		return "", fmt.Errorf("object upload failed: %w", err)
	}
	return c.objectURL(key), nil
}

func (c *S3Client) objectURL(key string) string {
	if c.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}

func (c *S3Client) DeleteFile(ctx context.Context, key string) error {
	ctxDel, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := c.client.DeleteObject(ctxDel, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("object delete failed: %w", err)
	}
	return nil
}

func (c *S3Client) GetFile(ctx context.Context, key string) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.client.GetObject(ctxGet, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("object get failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
