package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultS3Endpoint = "s3.amazonaws.com"

// S3Options configures access to an S3 compatible store.
type S3Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3Fetcher reads chunks stored as objects under a bucket prefix.
type S3Fetcher struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Fetcher returns a fetcher for an s3://bucket/prefix location.
func NewS3Fetcher(location string, opts S3Options) (*S3Fetcher, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parsing source url %s: %w", location, err)
	}
	bucket := strings.TrimSpace(u.Host)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required in %s", location)
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = defaultS3Endpoint
	}
	access := strings.TrimSpace(opts.AccessKey)
	secret := strings.TrimSpace(opts.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: opts.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Fetcher{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(u.Path, "/"),
	}, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	key := objectKey(f.prefix, name)
	obj, err := f.client.GetObject(ctx, f.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller starts reading.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("s3://%s/%s: %s", f.bucket, key, errResp.Code)
		}
		return nil, err
	}
	return obj, nil
}

func objectKey(prefix, name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
