package oss

import (
	"context"
	"io"
)

// OSSIface OSS 客户端接口
type OSSIface interface {
	// UploadFile 上传文件到 OSS，返回文件路径（格式：bucket/key）
	UploadFile(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error)

	// UploadFileWithURL 上传文件并返回对象的公开访问 URL
	// 这是一个便捷方法，结合了 UploadFile 和对象 URL 构造
	UploadFileWithURL(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error)
}
