package api

import (
	"context"
	"net/http"

	"github.com/qidianbox/aicreator-client/internal/types"
)

// LoginWithWeChat 微信授权码换取会话
func (c *Client) LoginWithWeChat(ctx context.Context, code string) (*types.LoginResponse, error) {
	body := map[string]any{
		"code":     code,
		"platform": "wechat",
	}
	return call[types.LoginResponse](ctx, c, http.MethodPost, "/auth/wechat", body, false)
}

// LoginWithApple Apple身份令牌换取会话
func (c *Client) LoginWithApple(ctx context.Context, identityToken, authorizationCode string) (*types.LoginResponse, error) {
	body := map[string]any{
		"identity_token":     identityToken,
		"authorization_code": authorizationCode,
		"platform":           "apple",
	}
	return call[types.LoginResponse](ctx, c, http.MethodPost, "/auth/apple", body, false)
}

// LoginWithPhone 手机号+验证码登录
func (c *Client) LoginWithPhone(ctx context.Context, phone, code string) (*types.LoginResponse, error) {
	body := map[string]any{
		"phone": phone,
		"code":  code,
	}
	return call[types.LoginResponse](ctx, c, http.MethodPost, "/auth/phone", body, false)
}

// SendVerifyCode 发送短信验证码
func (c *Client) SendVerifyCode(ctx context.Context, phone string) error {
	body := map[string]any{
		"phone": phone,
	}
	_, err := call[types.EmptyData](ctx, c, http.MethodPost, "/auth/send-code", body, false)
	return err
}

// RefreshToken 使用刷新令牌换取新会话
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*types.LoginResponse, error) {
	body := map[string]any{
		"refresh_token": refreshToken,
	}
	return call[types.LoginResponse](ctx, c, http.MethodPost, "/auth/refresh", body, false)
}

// Logout 通知后端注销当前会话
func (c *Client) Logout(ctx context.Context) error {
	_, err := call[types.EmptyData](ctx, c, http.MethodPost, "/auth/logout", nil, true)
	return err
}
