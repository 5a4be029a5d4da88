package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Options struct {
	Bucket        string
	Region        string
	Endpoint      string // 为空使用AWS默认endpoint，MinIO等需要填写
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

type s3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Gateway 创建S3客户端，只在启动时构造一次，通过依赖注入传给业务层
func NewS3Gateway(ctx context.Context, o S3Options, opts ...Option) (*Gateway, error) {
	if o.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket must be set")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.AccessKey != "" && o.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})

	baseURL := strings.TrimRight(o.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", o.Bucket, o.Region)
	}

	store := &s3Store{client: client, bucket: o.Bucket, baseURL: baseURL}
	return newGateway("s3", store, opts...), nil
}

func (s *s3Store) put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	return err
}

// remove S3 的 DeleteObject 对不存在的key也返回成功
func (s *s3Store) remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *s3Store) url(key string) string {
	return s.baseURL + "/" + key
}
