package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/qidianbox/aicreator-client/internal/types"
)

// listQuery 构造分页查询参数
func listQuery(page, pageSize int, category string) map[string]string {
	query := map[string]string{
		"page":      strconv.Itoa(page),
		"page_size": strconv.Itoa(pageSize),
	}
	if category != "" {
		query["category"] = category
	}
	return query
}

// GetWorks 获取作品列表
func (c *Client) GetWorks(ctx context.Context, page, pageSize int, category string) (*types.PaginatedResponse[types.WorkListItem], error) {
	req := c.http.R().SetContext(ctx).SetQueryParams(listQuery(page, pageSize, category))
	resp, err := req.Get("/works")
	if err != nil {
		return nil, classifyTransportError(err)
	}
	return decodeEnvelope[types.PaginatedResponse[types.WorkListItem]](resp.Body())
}

// GetWorkDetail 获取作品详情
func (c *Client) GetWorkDetail(ctx context.Context, id string) (*types.WorkDetail, error) {
	return call[types.WorkDetail](ctx, c, http.MethodGet, fmt.Sprintf("/works/%s", id), nil, true)
}

// LikeWork 点赞作品
func (c *Client) LikeWork(ctx context.Context, id string) error {
	_, err := call[types.EmptyData](ctx, c, http.MethodPost, fmt.Sprintf("/works/%s/like", id), nil, true)
	return err
}

// UnlikeWork 取消点赞
func (c *Client) UnlikeWork(ctx context.Context, id string) error {
	_, err := call[types.EmptyData](ctx, c, http.MethodDelete, fmt.Sprintf("/works/%s/like", id), nil, true)
	return err
}

// DeleteWork 删除自己的作品
func (c *Client) DeleteWork(ctx context.Context, id string) error {
	_, err := call[types.EmptyData](ctx, c, http.MethodDelete, fmt.Sprintf("/works/%s", id), nil, true)
	return err
}

// GetTemplates 获取模板列表
func (c *Client) GetTemplates(ctx context.Context, page, pageSize int, category string) (*types.PaginatedResponse[types.TemplateListItem], error) {
	req := c.http.R().SetContext(ctx).SetQueryParams(listQuery(page, pageSize, category))
	resp, err := req.Get("/templates")
	if err != nil {
		return nil, classifyTransportError(err)
	}
	return decodeEnvelope[types.PaginatedResponse[types.TemplateListItem]](resp.Body())
}

// GetTemplateDetail 获取模板详情
func (c *Client) GetTemplateDetail(ctx context.Context, id string) (*types.Template, error) {
	return call[types.Template](ctx, c, http.MethodGet, fmt.Sprintf("/templates/%s", id), nil, false)
}
