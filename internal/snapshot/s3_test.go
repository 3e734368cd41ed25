package snapshot

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/sitestore/internal/codec"
	"github.com/dmitrijs2005/sitestore/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	body   string
	err    error
	bucket string
	key    string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3Fetcher_RawObject(t *testing.T) {
	client := &fakeS3{body: "raw-image-bytes"}
	f := &S3Fetcher{Client: client, Bucket: "snapshots", Key: "data/app.db"}

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("raw-image-bytes"), got)
	assert.Equal(t, "snapshots", client.bucket)
	assert.Equal(t, "data/app.db", client.key)
	assert.Equal(t, "s3://snapshots/data/app.db", f.Describe())
}

func TestS3Fetcher_Base64Object(t *testing.T) {
	enc := codec.Encode([]byte("image"))
	f := &S3Fetcher{Client: &fakeS3{body: enc + "\n"}, Bucket: "b", Key: "k", Base64: true}

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("image"), got)
}

func TestS3Fetcher_Errors(t *testing.T) {
	_, err := (&S3Fetcher{Client: &fakeS3{err: errors.New("NoSuchKey")}, Bucket: "b", Key: "k"}).Fetch(context.Background())
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)

	_, err = (&S3Fetcher{Client: &fakeS3{body: "@@@"}, Bucket: "b", Key: "k", Base64: true}).Fetch(context.Background())
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)
	require.ErrorIs(t, err, common.ErrCorruptEncoding)
}

func TestNewS3Client_AppliesEndpointAndCredentials(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	var optCount int
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		optCount = len(optFns)
		return aws.Config{Region: "us-east-1"}, nil
	}

	c, err := NewS3Client(context.Background(), S3Options{
		Region: "us-east-1", BaseEndpoint: "http://127.0.0.1:9000/", AccessKey: "admin", SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, optCount, "region and static credentials")
	assert.Equal(t, "http://127.0.0.1:9000/", aws.ToString(c.Options().BaseEndpoint))
	assert.True(t, c.Options().UsePathStyle)
}

func TestNewS3Client_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Client(context.Background(), S3Options{Region: "eu-west-1"})
	require.ErrorContains(t, err, "load aws config")
}
