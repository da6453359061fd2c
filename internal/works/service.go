package works

import (
	"context"

	"github.com/qidianbox/aicreator-client/internal/api"
	"github.com/qidianbox/aicreator-client/internal/auth"
	"github.com/qidianbox/aicreator-client/internal/logger"
	"github.com/qidianbox/aicreator-client/internal/types"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Service 作品浏览与互动
type Service struct {
	api  *api.Client
	sink *auth.ErrorSink
}

// NewService 创建作品服务
func NewService(apiClient *api.Client, sink *auth.ErrorSink) *Service {
	return &Service{api: apiClient, sink: sink}
}

// List 作品列表
func (s *Service) List(ctx context.Context, page, pageSize int, category string) (*types.PaginatedResponse[types.WorkListItem], error) {
	resp, err := s.api.GetWorks(ctx, page, pageSize, category)
	if err != nil {
		return nil, s.sink.Handle(err, "general")
	}
	return resp, nil
}

// Detail 作品详情
func (s *Service) Detail(ctx context.Context, id string) (*types.WorkDetail, error) {
	detail, err := s.api.GetWorkDetail(ctx, id)
	if err != nil {
		return nil, s.sink.Handle(err, "general")
	}
	return detail, nil
}

// Delete 删除自己的作品
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteWork(ctx, id); err != nil {
		return s.sink.Handle(err, "general")
	}
	return nil
}

// LikeResult 两阶段点赞的最终结果
type LikeResult struct {
	WorkID string
	// Liked 服务端确认后的最终状态
	Liked bool
	// Reverted 服务端拒绝，乐观状态已回滚
	Reverted bool
}

// ToggleLike 显式两阶段的点赞切换：先通过 apply 回调落乐观状态，
// 后端确认后保持，失败则用旧状态再次调用 apply 回滚。
// apply 允许为 nil（调用方不需要乐观更新时）。
func (s *Service) ToggleLike(ctx context.Context, workID string, currentlyLiked bool, apply func(liked bool)) (*LikeResult, error) {
	desired := !currentlyLiked

	// 第一阶段：乐观应用
	if apply != nil {
		apply(desired)
	}

	// 第二阶段：服务端确认
	call := lo.Ternary(desired, s.api.LikeWork, s.api.UnlikeWork)
	if err := call(ctx, workID); err != nil {
		// 回滚乐观状态
		if apply != nil {
			apply(currentlyLiked)
		}
		logger.Debug("点赞状态已回滚",
			zap.String("work_id", workID),
			zap.Bool("liked", currentlyLiked),
		)
		return &LikeResult{WorkID: workID, Liked: currentlyLiked, Reverted: true}, s.sink.Handle(err, "general")
	}

	return &LikeResult{WorkID: workID, Liked: desired}, nil
}

// Templates 模板列表
func (s *Service) Templates(ctx context.Context, page, pageSize int, category string) (*types.PaginatedResponse[types.TemplateListItem], error) {
	resp, err := s.api.GetTemplates(ctx, page, pageSize, category)
	if err != nil {
		return nil, s.sink.Handle(err, "general")
	}
	return resp, nil
}

// TemplateDetail 模板详情
func (s *Service) TemplateDetail(ctx context.Context, id string) (*types.Template, error) {
	tpl, err := s.api.GetTemplateDetail(ctx, id)
	if err != nil {
		return nil, s.sink.Handle(err, "general")
	}
	return tpl, nil
}
