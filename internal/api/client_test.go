package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/qidianbox/aicreator-client/internal/config"
	"github.com/qidianbox/aicreator-client/internal/errors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// staticToken 测试用 TokenSource
type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseURL:        baseURL,
			RequestTimeout: 5 * time.Second,
			UploadTimeout:  5 * time.Second,
		},
		HTTPClient: config.HTTPClientConfig{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			MaxConnsPerHost:     10,
		},
	}
}

func ok(data any) map[string]any {
	return map[string]any{"code": 0, "message": "ok", "data": data}
}

func fail(code int, message string) map[string]any {
	return map[string]any{"code": code, "message": message, "data": nil}
}

func TestLoginWithPhoneDecodesEnvelope(t *testing.T) {
	e := echo.New()
	e.POST("/auth/phone", func(c echo.Context) error {
		var body map[string]any
		require.NoError(t, c.Bind(&body))
		require.Equal(t, "13800138000", body["phone"])
		require.Equal(t, "123456", body["code"])

		return c.JSON(http.StatusOK, ok(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    7200,
			"user":          map[string]any{"id": "u1", "nickname": "小明", "points": 30},
		}))
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), staticToken(""))
	resp, err := client.LoginWithPhone(context.Background(), "13800138000", "123456")

	require.NoError(t, err)
	require.Equal(t, "at-1", resp.AccessToken)
	require.Equal(t, 7200, resp.ExpiresIn)
	require.Equal(t, "u1", resp.User.ID)
}

func TestBackendErrorMapsToAppError(t *testing.T) {
	e := echo.New()
	e.POST("/auth/phone", func(c echo.Context) error {
		return c.JSON(http.StatusOK, fail(1005, "verify code invalid"))
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), staticToken(""))
	_, err := client.LoginWithPhone(context.Background(), "13800138000", "000000")

	require.Error(t, err)
	appErr := errors.AsAppError(err)
	require.Equal(t, errors.CodeVerifyCodeInvalid, appErr.Code)
	require.False(t, appErr.RequiresReauth())
}

func TestAuthedRequestCarriesBearerToken(t *testing.T) {
	var gotAuth string
	e := echo.New()
	e.GET("/user/me", func(c echo.Context) error {
		gotAuth = c.Request().Header.Get("Authorization")
		return c.JSON(http.StatusOK, ok(map[string]any{"id": "u1", "nickname": "n"}))
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), staticToken("token-123"))
	_, err := client.GetCurrentUser(context.Background())

	require.NoError(t, err)
	require.Equal(t, "Bearer token-123", gotAuth)
}

func TestRequestCarriesRequestID(t *testing.T) {
	var gotRequestID string
	e := echo.New()
	e.GET("/user/me", func(c echo.Context) error {
		gotRequestID = c.Request().Header.Get("X-Request-ID")
		return c.JSON(http.StatusOK, ok(map[string]any{"id": "u1"}))
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), staticToken("t"))
	_, err := client.GetCurrentUser(context.Background())

	require.NoError(t, err)
	require.NotEmpty(t, gotRequestID)
}

func TestTransportFailureMapsToNetworkError(t *testing.T) {
	srv := httptest.NewServer(echo.New())
	srv.Close() // 立即关闭，模拟无法连接

	client := NewClient(testConfig(srv.URL), staticToken(""))
	_, err := client.GetCurrentUser(context.Background())

	require.Error(t, err)
	code := errors.CodeOf(err)
	require.Contains(t, []errors.ErrorCode{errors.CodeNetworkError, errors.CodeNetworkNoConnection}, code)
}

func TestUploadImageMultipart(t *testing.T) {
	e := echo.New()
	e.POST("/upload/image", func(c echo.Context) error {
		file, err := c.FormFile("file")
		require.NoError(t, err)
		require.Equal(t, "image.png", file.Filename)
		require.Equal(t, "Bearer tok", c.Request().Header.Get("Authorization"))

		return c.JSON(http.StatusOK, ok(map[string]any{"url": "https://cdn/x.png", "key": "x.png"}))
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), staticToken("tok"))
	resp, err := client.UploadImage(context.Background(), []byte{0x89, 0x50, 0x4e, 0x47}, "image/png")

	require.NoError(t, err)
	require.Equal(t, "https://cdn/x.png", resp.URL)
	require.Equal(t, "x.png", resp.Key)
}

func TestUploadImageRejectsEmptyPayload(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:1"), staticToken(""))
	_, err := client.UploadImage(context.Background(), nil, "image/jpeg")

	require.Equal(t, errors.CodeParameterMissing, errors.CodeOf(err))
}

func TestEmptyDataSuccess(t *testing.T) {
	e := echo.New()
	e.POST("/auth/send-code", func(c echo.Context) error {
		return c.JSON(http.StatusOK, ok(nil))
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), staticToken(""))
	require.NoError(t, client.SendVerifyCode(context.Background(), "13800138000"))
}
