package datarecording

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures an S3Publisher.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// S3Publisher uploads result files to an S3 compatible bucket.
type S3Publisher struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Publisher creates a publisher that uses the default AWS credential
// chain.
func NewS3Publisher(ctx context.Context, opt S3Options) (*S3Publisher, error) {
	if opt.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}

	region := opt.Region
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	return NewS3PublisherFromConfig(cfg, opt), nil
}

// NewS3PublisherFromConfig creates a publisher from a loaded AWS config.
func NewS3PublisherFromConfig(
	cfg aws.Config,
	opt S3Options,
	optFns ...func(*s3.Options),
) *S3Publisher {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opt.PathStyle
		if opt.Endpoint != "" {
			o.BaseEndpoint = aws.String(opt.Endpoint)
		}

		for _, fn := range optFns {
			fn(o)
		}
	})

	return &S3Publisher{
		client: client,
		bucket: opt.Bucket,
		prefix: opt.Prefix,
	}
}

// Key returns the object key of a file name.
func (p *S3Publisher) Key(name string) string {
	return path.Join(p.prefix, filepath.ToSlash(name))
}

// PublishFile uploads one file under its base name.
func (p *S3Publisher) PublishFile(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := p.Key(filepath.Base(file))
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(file)),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", file, err)
	}

	return key, nil
}

// PublishDir uploads all regular files of a directory, in name order, and
// returns their keys.
func (p *S3Publisher) PublishDir(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var keys []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}

		key, err := p.PublishFile(ctx, filepath.Join(dir, e.Name()))
		if err != nil {
			return keys, err
		}

		keys = append(keys, key)
	}

	return keys, nil
}

func contentType(file string) string {
	switch filepath.Ext(file) {
	case ".csv":
		return "text/csv"
	case ".sqlite3":
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}
