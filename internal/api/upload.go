package api

import (
	"bytes"
	"context"

	"github.com/qidianbox/aicreator-client/internal/errors"
	"github.com/qidianbox/aicreator-client/internal/types"

	"github.com/google/uuid"
)

// UploadImage 以 multipart 形式上传图片，返回对象存储引用。
// 单次尝试，不做分片和断点续传，失败由调用方决定是否重试。
func (c *Client) UploadImage(ctx context.Context, data []byte, mimeType string) (*types.UploadResponse, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.CodeParameterMissing, "上传内容为空")
	}

	// 上传耗时高于普通请求，没有截止时间时补一个上传超时
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.API.UploadTimeout)
		defer cancel()
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.New().String()).
		SetFileReader("file", filenameFor(mimeType), bytes.NewReader(data))

	if token := c.tokens.AccessToken(); token != "" {
		req.SetAuthToken(token)
	}

	resp, err := req.Post("/upload/image")
	if err != nil {
		return nil, classifyTransportError(err)
	}

	return decodeEnvelope[types.UploadResponse](resp.Body())
}

// filenameFor 根据 MIME 类型确定表单文件名
func filenameFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "image.png"
	case "image/webp":
		return "image.webp"
	case "image/heic":
		return "image.heic"
	default:
		return "image.jpg"
	}
}
