package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"dewatermark-mcp/common"
	"dewatermark-mcp/internal/dewatermark"
	"dewatermark-mcp/internal/utils"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterDewatermarkTools 注册 Dewatermark 水印擦除相关的 MCP tools。
//
// 约定工具列表：
//   - dewatermark_erase_watermark   擦除水印：上传图片或引用先前会话，返回处理后图片与 session_id
//   - dewatermark_save_large_image  高清出图：基于先前会话渲染高分辨率大图
//
// DewatermarkIface 的具体实现由调用方创建（例如使用 internal/dewatermark/client.go）。
func RegisterDewatermarkTools(s *server.MCPServer, client dewatermark.DewatermarkIface, formatter *OutputFormatter) error {
	// 1. 擦除水印
	eraseTool := mcp.NewTool(
		"dewatermark_erase_watermark",
		mcp.WithDescription("Detect and erase the watermark from an image using Dewatermark AI. Provide either an image or a session_id from a previous call. Returns a JSON object with sessionId, imageBase64, maskBase and watermarkMask fields; pass sessionId and the masks back to refine the same image."),
		mcp.WithString("image",
			mcp.Description("Image to process: a local file path, an HTTP/HTTPS URL, a data URI, or a base64-encoded string."),
		),
		mcp.WithString("session_id",
			mcp.Description("Session ID returned by a previous dewatermark_erase_watermark call. Used to refine the same image without re-uploading; ignored when image is provided."),
		),
		mcp.WithString("mask_base",
			mcp.Description("Optional base mask from a previous call: base64 text, a data URI, or an HTTP/HTTPS URL."),
		),
		mcp.WithString("mask_brush",
			mcp.Description("Optional local file path of a manually brushed mask image."),
		),
		mcp.WithBoolean("remove_text",
			mcp.Description("Whether to also remove text from the image. Defaults to true."),
		),
	)

	s.AddTool(eraseTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		image := req.GetString("image", "")
		sessionID := req.GetString("session_id", "")
		maskBrush := req.GetString("mask_brush", "")
		removeText := req.GetBool("remove_text", true)

		// 图片与会话标识至少提供其一
		if image == "" && sessionID == "" {
			common.Error("Dewatermark: erase_watermark called without image or session_id")
			return mcp.NewToolResultError("either image or session_id must be provided"), nil
		}

		imageInput, err := resolveImageInput(ctx, image)
		if err != nil {
			common.WithError(err).WithField("image", utils.TruncateForLog(image, 64)).Error("Dewatermark: failed to resolve image parameter")
			return mcp.NewToolResultError(fmt.Sprintf("failed to resolve image parameter: %v", err)), nil
		}

		maskBase, err := resolveBase64Field(ctx, req.GetString("mask_base", ""))
		if err != nil {
			common.WithError(err).Error("Dewatermark: failed to resolve mask_base parameter")
			return mcp.NewToolResultError(fmt.Sprintf("failed to resolve mask_base parameter: %v", err)), nil
		}

		common.WithFields(map[string]interface{}{
			"image":       utils.TruncateForLog(image, 64),
			"session_id":  sessionID,
			"has_mask":    maskBase != "" || maskBrush != "",
			"remove_text": removeText,
		}).Info("Dewatermark: erasing watermark")

		result, err := client.EraseWatermark(ctx, &dewatermark.EraseRequest{
			Image:      imageInput,
			SessionID:  sessionID,
			MaskBase:   maskBase,
			MaskBrush:  maskBrush,
			RemoveText: &removeText,
		})
		if err != nil {
			common.WithError(err).WithField("session_id", sessionID).Error("Dewatermark: failed to erase watermark")
			return mcp.NewToolResultError(fmt.Sprintf("failed to erase watermark: %v", err)), nil
		}

		text, err := formatEraseResult(ctx, formatter, result)
		if err != nil {
			common.WithError(err).WithField("session_id", result.SessionID).Error("Dewatermark: failed to format erase result")
			return mcp.NewToolResultError(fmt.Sprintf("failed to format erase result: %v", err)), nil
		}

		common.WithFields(map[string]interface{}{
			"session_id": result.SessionID,
			"result":     utils.TruncateForLog(text, 64),
		}).Info("Dewatermark: watermark erased successfully")

		return mcp.NewToolResultText(text), nil
	})

	// 2. 高清出图
	saveLargeTool := mcp.NewTool(
		"dewatermark_save_large_image",
		mcp.WithDescription("Render a high-resolution version of a previously dewatermarked image. Typically called with the session_id returned by dewatermark_erase_watermark, optionally with the original full-resolution image. Returns a JSON object with a largeImageToSave field."),
		mcp.WithString("original_image",
			mcp.Description("Optional original full-resolution image: a local file path, an HTTP/HTTPS URL, a data URI, or a base64-encoded string."),
		),
		mcp.WithString("preview_image_to_save",
			mcp.Description("Optional preview image to upscale: base64 text, a data URI, or an HTTP/HTTPS URL. Typically the imageBase64 returned by dewatermark_erase_watermark."),
		),
		mcp.WithString("preview_mask_to_save",
			mcp.Description("Optional preview mask: base64 text, a data URI, or an HTTP/HTTPS URL. Typically the maskBase returned by dewatermark_erase_watermark."),
		),
		mcp.WithString("session_id",
			mcp.Description("Session ID returned by a previous dewatermark_erase_watermark call."),
		),
		mcp.WithBoolean("remove_text",
			mcp.Description("Whether to also remove text from the image. Defaults to true."),
		),
	)

	s.AddTool(saveLargeTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		originalImage := req.GetString("original_image", "")
		sessionID := req.GetString("session_id", "")
		removeText := req.GetBool("remove_text", true)

		originalInput, err := resolveImageInput(ctx, originalImage)
		if err != nil {
			common.WithError(err).WithField("original_image", utils.TruncateForLog(originalImage, 64)).Error("Dewatermark: failed to resolve original_image parameter")
			return mcp.NewToolResultError(fmt.Sprintf("failed to resolve original_image parameter: %v", err)), nil
		}

		previewImage, err := resolveBase64Field(ctx, req.GetString("preview_image_to_save", ""))
		if err != nil {
			common.WithError(err).Error("Dewatermark: failed to resolve preview_image_to_save parameter")
			return mcp.NewToolResultError(fmt.Sprintf("failed to resolve preview_image_to_save parameter: %v", err)), nil
		}

		previewMask, err := resolveBase64Field(ctx, req.GetString("preview_mask_to_save", ""))
		if err != nil {
			common.WithError(err).Error("Dewatermark: failed to resolve preview_mask_to_save parameter")
			return mcp.NewToolResultError(fmt.Sprintf("failed to resolve preview_mask_to_save parameter: %v", err)), nil
		}

		common.WithFields(map[string]interface{}{
			"original_image": utils.TruncateForLog(originalImage, 64),
			"has_preview":    previewImage != "",
			"session_id":     sessionID,
			"remove_text":    removeText,
		}).Info("Dewatermark: saving large image")

		// 字段组合是否满足要求由服务端校验，这里原样透传
		result, err := client.SaveLargeImage(ctx, &dewatermark.SaveLargeImageRequest{
			OriginalImage:      originalInput,
			PreviewImageToSave: previewImage,
			PreviewMaskToSave:  previewMask,
			SessionID:          sessionID,
			RemoveText:         &removeText,
		})
		if err != nil {
			common.WithError(err).WithField("session_id", sessionID).Error("Dewatermark: failed to save large image")
			return mcp.NewToolResultError(fmt.Sprintf("failed to save large image: %v", err)), nil
		}

		imageOut, err := formatter.FormatImage(ctx, result.LargeImageToSave)
		if err != nil {
			common.WithError(err).WithField("session_id", sessionID).Error("Dewatermark: failed to format large image")
			return mcp.NewToolResultError(fmt.Sprintf("failed to format large image: %v", err)), nil
		}

		payload, err := json.Marshal(&dewatermark.SaveLargeImageResult{LargeImageToSave: imageOut})
		if err != nil {
			common.WithError(err).WithField("session_id", sessionID).Error("Dewatermark: failed to marshal save result")
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal save result: %v", err)), nil
		}

		common.WithFields(map[string]interface{}{
			"session_id": sessionID,
			"image":      utils.TruncateForLog(imageOut, 64),
		}).Info("Dewatermark: large image saved successfully")

		return mcp.NewToolResultText(string(payload)), nil
	})

	return nil
}

// formatEraseResult 将擦除结果中的各图片字段渲染为配置的输出格式，
// 并按结果结构的 JSON 形状序列化为文本。空字段保持为空，
// 便于上层把 sessionId 与蒙版直接回填到后续调用。
func formatEraseResult(ctx context.Context, formatter *OutputFormatter, result *dewatermark.EraseResult) (string, error) {
	out := *result
	images := []struct {
		name  string
		value *string
	}{
		{"image", &out.ImageBase64},
		{"mask_base", &out.MaskBase},
		{"watermark_mask", &out.WatermarkMask},
	}
	for _, img := range images {
		if *img.value == "" {
			continue
		}
		formatted, err := formatter.FormatImage(ctx, *img.value)
		if err != nil {
			return "", fmt.Errorf("failed to format %s: %w", img.name, err)
		}
		*img.value = formatted
	}

	payload, err := json.Marshal(&out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal erase result: %w", err)
	}
	return string(payload), nil
}

// resolveImageInput 把工具入参的图片字符串解析为客户端的图片输入形式：
// data URI 解码为二进制，HTTP/HTTPS URL 下载为二进制，
// 其余字符串按"存在的文件路径 / base64"启发式区分。空串返回 nil。
func resolveImageInput(ctx context.Context, value string) (dewatermark.ImageInput, error) {
	if value == "" {
		return nil, nil
	}

	// data URI：解析并解码
	if strings.HasPrefix(value, "data:") {
		data, _, err := utils.ParseDataURI(value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse data URI: %w", err)
		}
		return dewatermark.BinaryData(data), nil
	}

	// HTTP/HTTPS URL：下载后按二进制处理
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		data, _, err := utils.DownloadImageFromURL(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("failed to download image from URL: %w", err)
		}
		return dewatermark.BinaryData(data), nil
	}

	return dewatermark.DetectImageInput(value), nil
}

// resolveBase64Field 把工具入参中按约定只接受 base64 的图片字段归一化为纯 base64 文本，
// 以便上一次调用返回的 data URI 或 URL 能直接回填：
// data URI 取出负载重新编码，HTTP/HTTPS URL 下载后编码，其余字符串原样返回。空串返回空串。
func resolveBase64Field(ctx context.Context, value string) (string, error) {
	if value == "" {
		return "", nil
	}

	if strings.HasPrefix(value, "data:") {
		data, _, err := utils.ParseDataURI(value)
		if err != nil {
			return "", fmt.Errorf("failed to parse data URI: %w", err)
		}
		return base64.StdEncoding.EncodeToString(data), nil
	}

	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		data, _, err := utils.DownloadImageFromURL(ctx, value)
		if err != nil {
			return "", fmt.Errorf("failed to download image from URL: %w", err)
		}
		return base64.StdEncoding.EncodeToString(data), nil
	}

	return value, nil
}
