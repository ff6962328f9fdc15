package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3 struct {
	Bucket   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3 loads credentials and region from the default AWS chain.
func NewS3(ctx context.Context, bucket string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3{Bucket: bucket, client: client, uploader: manager.NewUploader(client)}, nil
}

func (s *S3) Save(ctx context.Context, dir string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	result, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(objectName(dir, fh)),
		Body:        f,
		ContentType: aws.String(fh.Header.Get("Content-Type")),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", fh.Filename, err)
	}
	return result.Location, nil
}

// Delete accepts the location Save returned, virtual-hosted or path style.
func (s *S3) Delete(ctx context.Context, location string) error {
	key, err := s.objectKey(location)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *S3) objectKey(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	key := strings.TrimPrefix(u.Path, "/")
	key = strings.TrimPrefix(key, s.Bucket+"/")
	if key == "" {
		return "", fmt.Errorf("no object key in %s", location)
	}
	return key, nil
}
