package filestore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/pkg/errors"

	"github.com/kdadks/eyogi/core"
)

type ossStore struct {
	bucket   *oss.Bucket
	endpoint string
}

var _ core.FileStore = (*ossStore)(nil)

// NewOSSStore connects to the configured Alibaba OSS bucket.
func NewOSSStore(conf *core.Config) (*ossStore, error) {
	client, err := oss.New(conf.Storage.Endpoint, conf.Storage.AccessKeyID, conf.Storage.AccessKeySecret)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to OSS")
	}
	bucket, err := client.Bucket(conf.Storage.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "opening OSS bucket")
	}
	return &ossStore{bucket: bucket, endpoint: conf.Storage.Endpoint}, nil
}

func (s ossStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	opts := []oss.Option{
		oss.ContentLength(size),
		oss.ContentType(contentType),
		oss.WithContext(ctx),
	}
	if err := s.bucket.PutObject(key, r, opts...); err != nil {
		return "", errors.Wrap(err, "uploading object "+key)
	}
	return s.publicURL(key), nil
}

func (s ossStore) Delete(ctx context.Context, key string) error {
	return errors.Wrap(s.bucket.DeleteObject(key, oss.WithContext(ctx)), "deleting object "+key)
}

func (s ossStore) publicURL(key string) string {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(s.endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.bucket.BucketName, endpoint, key)
}
