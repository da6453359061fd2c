package api

import (
	"context"
	"net/http"

	"github.com/qidianbox/aicreator-client/internal/types"
)

// GetCurrentUser 获取当前用户信息
func (c *Client) GetCurrentUser(ctx context.Context) (*types.User, error) {
	return call[types.User](ctx, c, http.MethodGet, "/user/me", nil, true)
}

// UpdateProfile 更新用户资料，nickname/avatar 为空时不修改
func (c *Client) UpdateProfile(ctx context.Context, nickname, avatar string) (*types.User, error) {
	body := map[string]any{}
	if nickname != "" {
		body["nickname"] = nickname
	}
	if avatar != "" {
		body["avatar"] = avatar
	}
	return call[types.User](ctx, c, http.MethodPut, "/user/profile", body, true)
}

// VerifyPurchase 向后端上报购买凭据做权威验证
func (c *Client) VerifyPurchase(ctx context.Context, productID, transactionID, receipt string) (*types.VerifyPurchaseResponse, error) {
	body := map[string]any{
		"product_id":     productID,
		"transaction_id": transactionID,
		"receipt":        receipt,
		"platform":       "ios",
	}
	return call[types.VerifyPurchaseResponse](ctx, c, http.MethodPost, "/payment/verify", body, true)
}
