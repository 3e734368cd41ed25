package snapshot

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/sitestore/internal/codec"
	"github.com/dmitrijs2005/sitestore/internal/common"
)

// maxObjectSize caps the object body read from S3.
const maxObjectSize = 256 << 20

// S3GetObjectAPI is the part of *s3.Client used by S3Fetcher.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures the S3 client. Empty AccessKey means the default AWS
// credential chain is used.
type S3Options struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Client builds an S3 client for S3-compatible storage (AWS or MinIO).
func NewS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
			so.UsePathStyle = true
		}
	}), nil
}

// S3Fetcher reads the image from one object. When Base64 is set the object
// holds base64 text (as the local slot does) instead of raw bytes.
type S3Fetcher struct {
	Client S3GetObjectAPI
	Bucket string
	Key    string
	Base64 bool
}

func (f *S3Fetcher) Describe() string {
	return fmt.Sprintf("s3://%s/%s", f.Bucket, f.Key)
}

func (f *S3Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	out, err := f.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.Bucket),
		Key:    aws.String(f.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, maxObjectSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", common.ErrRemoteUnavailable, err)
	}

	if !f.Base64 {
		return body, nil
	}

	text := strings.NewReplacer("\n", "", "\r", "").Replace(string(body))
	image, err := codec.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err)
	}
	return image, nil
}
