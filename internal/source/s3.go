package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds settings for the S3 backend. Credentials come from the
// default AWS chain (environment, shared config, IRSA, instance role).
type S3Config struct {
	Region   string `yaml:"region" json:"region" toml:"region"`
	Bucket   string `yaml:"bucket" json:"bucket" toml:"bucket"`
	Endpoint string `yaml:"endpoint" json:"endpoint" toml:"endpoint"`
	// ForcePathStyle is needed by MinIO, LocalStack and similar services.
	ForcePathStyle bool `yaml:"forcePathStyle" json:"forcePathStyle" toml:"forcePathStyle"`
}

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Provider streams objects from one bucket.
type S3Provider struct {
	client s3API
	bucket string
}

// NewS3Provider loads the AWS configuration and builds a client.
func NewS3Provider(ctx context.Context, cfg S3Config) (*S3Provider, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 source: bucket is required")
	}
	var options []func(*config.LoadOptions) error
	if cfg.Region != "" {
		options = append(options, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoint for LocalStack or other S3 compatible services
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return &S3Provider{client: client, bucket: cfg.Bucket}, nil
}

// Open returns the object body. The SDK streams it from the network as it is
// read.
func (p *S3Provider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, notFound(key, err)
		}
		return nil, fmt.Errorf("s3 get %s/%s: %w", p.bucket, key, err)
	}
	return out.Body, nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}
