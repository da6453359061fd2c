package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/qidianbox/aicreator-client/internal/types"
)

// CreateGeneration 提交一个生成任务
func (c *Client) CreateGeneration(ctx context.Context, templateID, imageURL string) (*types.GenerationResponse, error) {
	body := map[string]any{
		"template_id": templateID,
		"image_url":   imageURL,
	}
	return call[types.GenerationResponse](ctx, c, http.MethodPost, "/generation/create", body, true)
}

// GetGenerationStatus 查询生成任务状态
func (c *Client) GetGenerationStatus(ctx context.Context, taskID string) (*types.GenerationTask, error) {
	return call[types.GenerationTask](ctx, c, http.MethodGet, fmt.Sprintf("/generation/%s", taskID), nil, true)
}

// CancelGeneration 通知后端取消生成任务
func (c *Client) CancelGeneration(ctx context.Context, taskID string) error {
	_, err := call[types.EmptyData](ctx, c, http.MethodPost, fmt.Sprintf("/generation/%s/cancel", taskID), nil, true)
	return err
}
