package works

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/qidianbox/aicreator-client/internal/analytics"
	"github.com/qidianbox/aicreator-client/internal/api"
	"github.com/qidianbox/aicreator-client/internal/auth"
	"github.com/qidianbox/aicreator-client/internal/config"
	"github.com/qidianbox/aicreator-client/internal/events"
	"github.com/qidianbox/aicreator-client/internal/session"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func newWorksService(t *testing.T, register func(e *echo.Echo)) *Service {
	t.Helper()

	e := echo.New()
	register(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		API:        config.APIConfig{BaseURL: srv.URL, RequestTimeout: 5 * time.Second, UploadTimeout: 5 * time.Second},
		HTTPClient: config.HTTPClientConfig{MaxIdleConns: 10, MaxIdleConnsPerHost: 5, MaxConnsPerHost: 10},
	}
	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	sink := &auth.ErrorSink{Store: store, Bus: events.NewBus(), Reporter: analytics.Noop{}}
	return NewService(api.NewClient(cfg, store), sink)
}

func TestToggleLikeOptimisticConfirm(t *testing.T) {
	var liked, unliked int
	s := newWorksService(t, func(e *echo.Echo) {
		e.POST("/works/:id/like", func(c echo.Context) error {
			liked++
			return c.JSON(http.StatusOK, map[string]any{"code": 0, "message": "ok", "data": nil})
		})
		e.DELETE("/works/:id/like", func(c echo.Context) error {
			unliked++
			return c.JSON(http.StatusOK, map[string]any{"code": 0, "message": "ok", "data": nil})
		})
	})

	// 点赞：乐观置 true，服务端确认后保持
	var applied []bool
	result, err := s.ToggleLike(context.Background(), "w1", false, func(l bool) { applied = append(applied, l) })
	require.NoError(t, err)
	require.True(t, result.Liked)
	require.False(t, result.Reverted)
	require.Equal(t, []bool{true}, applied)
	require.Equal(t, 1, liked)

	// 取消点赞走 DELETE
	applied = nil
	result, err = s.ToggleLike(context.Background(), "w1", true, func(l bool) { applied = append(applied, l) })
	require.NoError(t, err)
	require.False(t, result.Liked)
	require.Equal(t, []bool{false}, applied)
	require.Equal(t, 1, unliked)
}

func TestToggleLikeRevertsOnRejection(t *testing.T) {
	s := newWorksService(t, func(e *echo.Echo) {
		e.POST("/works/:id/like", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]any{"code": 3001, "message": "作品不存在", "data": nil})
		})
	})

	// 服务端拒绝后，乐观状态必须回到原值
	var applied []bool
	result, err := s.ToggleLike(context.Background(), "w1", false, func(l bool) { applied = append(applied, l) })
	require.Error(t, err)
	require.True(t, result.Reverted)
	require.False(t, result.Liked)
	require.Equal(t, []bool{true, false}, applied)
}

func TestToggleLikeNilApply(t *testing.T) {
	s := newWorksService(t, func(e *echo.Echo) {
		e.POST("/works/:id/like", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]any{"code": 0, "message": "ok", "data": nil})
		})
	})

	result, err := s.ToggleLike(context.Background(), "w1", false, nil)
	require.NoError(t, err)
	require.True(t, result.Liked)
}

func TestListPagination(t *testing.T) {
	s := newWorksService(t, func(e *echo.Echo) {
		e.GET("/works", func(c echo.Context) error {
			require.Equal(t, "2", c.QueryParam("page"))
			require.Equal(t, "10", c.QueryParam("page_size"))
			require.Equal(t, "portrait", c.QueryParam("category"))
			return c.JSON(http.StatusOK, map[string]any{
				"code": 0, "message": "ok",
				"data": map[string]any{
					"items": []map[string]any{
						{"id": "w1", "cover_url": "https://cdn/x1.jpg", "like_count": 3},
						{"id": "w2", "cover_url": "https://cdn/x2.jpg", "like_count": 0},
					},
					"total": 12, "page": 2, "page_size": 10, "has_more": false,
				},
			})
		})
	})

	resp, err := s.List(context.Background(), 2, 10, "portrait")
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	require.Equal(t, "w1", resp.Items[0].ID)
	require.Equal(t, 12, resp.Total)
	require.False(t, resp.HasMore)
}

func TestTemplates(t *testing.T) {
	s := newWorksService(t, func(e *echo.Echo) {
		e.GET("/templates", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]any{
				"code": 0, "message": "ok",
				"data": map[string]any{
					"items":     []map[string]any{{"id": "t1", "name": "赛博朋克"}},
					"total":     1,
					"page":      1,
					"page_size": 20,
				},
			})
		})
	})

	resp, err := s.Templates(context.Background(), 1, 20, "")
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "赛博朋克", resp.Items[0].Name)
}
