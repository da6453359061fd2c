package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/qidianbox/aicreator-client/internal/analytics"
	"github.com/qidianbox/aicreator-client/internal/api"
	"github.com/qidianbox/aicreator-client/internal/config"
	"github.com/qidianbox/aicreator-client/internal/entitlement"
	"github.com/qidianbox/aicreator-client/internal/errors"
	"github.com/qidianbox/aicreator-client/internal/events"
	"github.com/qidianbox/aicreator-client/internal/session"
	"github.com/qidianbox/aicreator-client/internal/types"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	manager *Manager
	store   *session.Store
	cache   *entitlement.Cache
	bus     *events.Bus
}

func newFixture(t *testing.T, handler http.Handler) *fixture {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		API: config.APIConfig{
			BaseURL:        srv.URL,
			RequestTimeout: 5 * time.Second,
			UploadTimeout:  5 * time.Second,
		},
		HTTPClient: config.HTTPClientConfig{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			MaxConnsPerHost:     10,
		},
	}

	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	cache := entitlement.NewCache()
	bus := events.NewBus()
	apiClient := api.NewClient(cfg, store)

	return &fixture{
		manager: NewManager(apiClient, store, cache, bus, analytics.Noop{}),
		store:   store,
		cache:   cache,
		bus:     bus,
	}
}

func ok(data any) map[string]any {
	return map[string]any{"code": 0, "message": "ok", "data": data}
}

func fail(code int, message string) map[string]any {
	return map[string]any{"code": code, "message": message, "data": nil}
}

func loginPayload(points int) map[string]any {
	return map[string]any{
		"access_token":  "at-1",
		"refresh_token": "rt-1",
		"expires_in":    7200,
		"user": map[string]any{
			"id":       "u1",
			"nickname": "小明",
			"points":   points,
		},
	}
}

func TestLoginWithPhoneSuccess(t *testing.T) {
	e := echo.New()
	e.POST("/auth/phone", func(c echo.Context) error {
		return c.JSON(http.StatusOK, ok(loginPayload(30)))
	})
	f := newFixture(t, e)

	require.NoError(t, f.manager.LoginWithPhone(context.Background(), "13800138000", "123456"))

	require.Equal(t, StateLoggedIn, f.manager.State())
	require.True(t, f.store.IsValid())

	sess := f.store.Get()
	require.Equal(t, "at-1", sess.AccessToken)
	require.Equal(t, "rt-1", sess.RefreshToken)
	require.WithinDuration(t, time.Now().Add(7200*time.Second), sess.ExpiresAt, 5*time.Second)

	// 登录成功同步刷新权益缓存
	require.Equal(t, 30, f.cache.Snapshot().Points)

	user := f.manager.CurrentUser()
	require.NotNil(t, user)
	require.Equal(t, "小明", user.Nickname)
}

func TestLoginWithWrongOTPLeavesStoreUntouched(t *testing.T) {
	e := echo.New()
	e.POST("/auth/phone", func(c echo.Context) error {
		return c.JSON(http.StatusOK, fail(1005, "verify code invalid"))
	})
	f := newFixture(t, e)

	err := f.manager.LoginWithPhone(context.Background(), "13800138000", "000000")

	require.Equal(t, errors.CodeVerifyCodeInvalid, errors.CodeOf(err))
	appErr := errors.AsAppError(err)
	require.False(t, appErr.RequiresReauth())

	require.Equal(t, StateLoggedOut, f.manager.State())
	require.Nil(t, f.store.Get())
}

func TestRefreshRequiresReauthClearsSession(t *testing.T) {
	e := echo.New()
	e.POST("/auth/refresh", func(c echo.Context) error {
		return c.JSON(http.StatusOK, fail(1003, "refresh token expired"))
	})
	f := newFixture(t, e)

	f.store.Save(session.Session{
		AccessToken:  "stale",
		RefreshToken: "stale-refresh",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})

	eventCh, unsubscribe := f.bus.Subscribe(8)
	defer unsubscribe()

	err := f.manager.Refresh(context.Background())
	require.Error(t, err)
	require.True(t, errors.AsAppError(err).RequiresReauth())

	// 会话被强制清除，状态回到未登录
	require.Nil(t, f.store.Get())
	require.Equal(t, StateLoggedOut, f.manager.State())

	// 广播会话失效事件
	select {
	case event := <-eventCh:
		_, isInvalidated := event.(events.SessionInvalidated)
		require.True(t, isInvalidated, "unexpected event %T", event)
	case <-time.After(time.Second):
		t.Fatal("expected SessionInvalidated event")
	}
}

func TestRefreshSuccessRotatesSession(t *testing.T) {
	e := echo.New()
	e.POST("/auth/refresh", func(c echo.Context) error {
		var body map[string]any
		require.NoError(t, c.Bind(&body))
		require.Equal(t, "rt-old", body["refresh_token"])

		payload := loginPayload(10)
		payload["access_token"] = "at-new"
		payload["refresh_token"] = "rt-new"
		return c.JSON(http.StatusOK, ok(payload))
	})
	f := newFixture(t, e)

	f.store.Save(session.Session{
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
		ExpiresAt:    time.Now().Add(time.Minute),
	})

	require.NoError(t, f.manager.Refresh(context.Background()))

	sess := f.store.Get()
	require.Equal(t, "at-new", sess.AccessToken)
	require.Equal(t, "rt-new", sess.RefreshToken)
	require.Equal(t, StateLoggedIn, f.manager.State())
}

func TestRefreshWithoutTokenFails(t *testing.T) {
	f := newFixture(t, echo.New())

	err := f.manager.Refresh(context.Background())
	require.Equal(t, errors.CodeRefreshTokenExpired, errors.CodeOf(err))
}

func TestLogoutClearsEverything(t *testing.T) {
	e := echo.New()
	e.POST("/auth/logout", func(c echo.Context) error {
		return c.JSON(http.StatusOK, ok(nil))
	})
	f := newFixture(t, e)

	f.store.Save(session.Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)})
	f.cache.UpdateFromUser(&types.User{ID: "u1", Points: 88})

	f.manager.Logout(context.Background())

	require.Nil(t, f.store.Get())
	require.Equal(t, StateLoggedOut, f.manager.State())
	require.Zero(t, f.cache.Snapshot().Points)
}

func TestExpiryFallsBackToJWTExp(t *testing.T) {
	// exp = 4102444800 (2100-01-01)，HS256签名内容无关紧要，只解析不验证
	const token = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
		"eyJzdWIiOiJ1MSIsImV4cCI6NDEwMjQ0NDgwMH0." +
		"signature-not-checked"

	e := echo.New()
	e.POST("/auth/phone", func(c echo.Context) error {
		payload := loginPayload(0)
		payload["access_token"] = token
		payload["expires_in"] = 0
		return c.JSON(http.StatusOK, ok(payload))
	})
	f := newFixture(t, e)

	require.NoError(t, f.manager.LoginWithPhone(context.Background(), "13800138000", "123456"))

	sess := f.store.Get()
	require.Equal(t, time.Unix(4102444800, 0).UTC(), sess.ExpiresAt.UTC())
}
