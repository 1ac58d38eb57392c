package oss

import (
	"bytes"
	"context"
	"dewatermark-mcp/common"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client S3 兼容的 OSS 客户端实现
type S3Client struct {
	client   *s3.Client
	endpoint string
	region   string
}

// S3Config S3 客户端配置
type S3Config struct {
	Endpoint  string // OSS 服务端点，例如：s3.amazonaws.com
	Region    string // 区域，例如：us-east-1
	AccessKey string // Access Key ID
	SecretKey string // Secret Access Key
}

// NewS3Client 创建新的 S3 客户端
func NewS3Client(cfg S3Config) (*S3Client, error) {
	// 构建 AWS 配置选项
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	}

	// 如果提供了自定义端点（用于兼容其他 OSS 服务），使用自定义端点解析器
	if cfg.Endpoint != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           fmt.Sprintf("https://%s", cfg.Endpoint),
				SigningRegion: cfg.Region,
			}, nil
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(customResolver))
	}

	// 加载配置
	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// 创建 S3 客户端
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s", cfg.Endpoint))
		}
	})

	return &S3Client{
		client:   client,
		endpoint: cfg.Endpoint,
		region:   cfg.Region,
	}, nil
}

// UploadFile 上传文件到 OSS
func (c *S3Client) UploadFile(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error) {
	common.WithFields(map[string]interface{}{
		"bucket":       bucket,
		"key":          key,
		"content_type": contentType,
	}).Debug("Starting file upload to OSS")

	// 读取文件内容
	body, err := io.ReadAll(reader)
	if err != nil {
		common.WithError(err).WithFields(map[string]interface{}{
			"bucket": bucket,
			"key":    key,
		}).Error("Failed to read file for upload")
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	// 执行上传
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	}

	if _, err := c.client.PutObject(ctx, input); err != nil {
		common.WithError(err).WithFields(map[string]interface{}{
			"bucket": bucket,
			"key":    key,
			"size":   len(body),
		}).Error("Failed to upload file to OSS")
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	filePath := fmt.Sprintf("%s/%s", bucket, key)
	common.WithFields(map[string]interface{}{
		"bucket":    bucket,
		"key":       key,
		"file_path": filePath,
		"size":      len(body),
	}).Info("File uploaded to OSS successfully")

	// 返回文件路径（格式：bucket/key）
	return filePath, nil
}

// UploadFileWithURL 上传文件并返回对象的公开访问 URL（不带签名）
func (c *S3Client) UploadFileWithURL(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error) {
	// 先上传文件
	if _, err := c.UploadFile(ctx, bucket, key, reader, contentType); err != nil {
		return "", err
	}

	// 返回对象的普通访问 URL（非签名）
	return c.buildObjectURL(bucket, key), nil
}

// buildObjectURL 构造对象的公开 URL（不带签名）
func (c *S3Client) buildObjectURL(bucket, key string) string {
	// 优先使用自定义 endpoint
	if c.endpoint != "" {
		return fmt.Sprintf("https://%s.%s/%s", bucket, c.endpoint, key)
	}

	// 如果知道 region，则使用区域化的 S3 域名
	if c.region != "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, c.region, key)
	}

	// 回退到通用 S3 域名
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}
