package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"dewatermark-mcp/common"
	"dewatermark-mcp/internal/oss"
	"dewatermark-mcp/internal/utils"
)

// OutputFormatter 决定工具返回图片的最终形式（base64 data URI 或 OSS URL）。
// 服务端返回的图片统一是 base64 文本，格式为 "url" 时会先上传到 OSS。
type OutputFormatter struct {
	imageFormat      string // 图片输出格式: "base64" 或 "url"
	ossClient        oss.OSSIface
	ossBucket        string
	ossUploadEnabled bool
}

// NewOutputFormatterFromConfig 从通用配置创建输出格式化器。
// 仅当 DEWATERMARK_IMAGE_FORMAT=url 时才创建 OSS 客户端。
func NewOutputFormatterFromConfig(cfg *common.Config) (*OutputFormatter, error) {
	// 当格式为 "url" 时，启用 OSS 上传；否则直接返回 base64 data URI
	ossUploadEnabled := strings.EqualFold(cfg.DewatermarkImageFormat, "url")

	f := &OutputFormatter{
		imageFormat:      cfg.DewatermarkImageFormat,
		ossBucket:        cfg.OSSBucket,
		ossUploadEnabled: ossUploadEnabled,
	}

	// 如果启用了 OSS 上传，创建 OSS 客户端
	if ossUploadEnabled {
		if cfg.OSSBucket == "" {
			return nil, fmt.Errorf("OSS_BUCKET is required when DEWATERMARK_IMAGE_FORMAT is 'url'")
		}
		ossClient, err := oss.NewOSSClientFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create OSS client for output formatting: %w", err)
		}
		f.ossClient = ossClient
	}

	return f, nil
}

// FormatImage 根据配置输出最终图片字符串。
// 入参是服务端返回的 base64 文本（无 data URI 前缀）：
// base64 模式嗅探 MIME 后拼成 data URI；url 模式上传 OSS 后返回对象 URL。
func (f *OutputFormatter) FormatImage(ctx context.Context, imageBase64 string) (string, error) {
	if imageBase64 == "" {
		return "", fmt.Errorf("image content is empty")
	}

	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", fmt.Errorf("failed to decode image content: %w", err)
	}
	mimeType := utils.DetectImageMimeType(data)

	// url 输出：上传 OSS 并返回对象 URL
	if f.ossUploadEnabled {
		if f.ossClient == nil || f.ossBucket == "" {
			common.WithFields(map[string]interface{}{
				"oss_enabled": f.ossUploadEnabled,
				"has_client":  f.ossClient != nil,
				"bucket":      f.ossBucket,
			}).Error("OSS is not properly configured but image format is set to 'url'")
			return "", fmt.Errorf("OSS is not configured but image format is set to 'url'")
		}
		return f.uploadImageToOSS(ctx, data, mimeType)
	}

	// 默认 base64 输出：拼成 data URI
	return fmt.Sprintf("data:%s;base64,%s", mimeType, imageBase64), nil
}

// uploadImageToOSS 将图片二进制上传到 OSS，返回对象的公开 URL
func (f *OutputFormatter) uploadImageToOSS(ctx context.Context, data []byte, mimeType string) (string, error) {
	path := utils.GenerateImagePath()
	fileName := utils.GenerateImageFileName(mimeType)
	key := fmt.Sprintf("%s%s", path, fileName)

	common.WithFields(map[string]interface{}{
		"bucket":       f.ossBucket,
		"key":          key,
		"content_type": mimeType,
		"size":         len(data),
	}).Debug("Uploading dewatermarked image to OSS")

	reader := bytes.NewReader(data)
	url, err := f.ossClient.UploadFileWithURL(ctx, f.ossBucket, key, reader, mimeType)
	if err != nil {
		common.WithError(err).WithFields(map[string]interface{}{
			"bucket": f.ossBucket,
			"key":    key,
		}).Error("Failed to upload dewatermarked image to OSS")
		return "", fmt.Errorf("failed to upload image to OSS: %w", err)
	}

	common.WithFields(map[string]interface{}{
		"bucket": f.ossBucket,
		"key":    key,
		"url":    url,
	}).Debug("Dewatermarked image uploaded to OSS successfully")

	return url, nil
}
