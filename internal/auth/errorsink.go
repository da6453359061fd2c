package auth

import (
	"github.com/qidianbox/aicreator-client/internal/analytics"
	"github.com/qidianbox/aicreator-client/internal/errors"
	"github.com/qidianbox/aicreator-client/internal/events"
	"github.com/qidianbox/aicreator-client/internal/session"
)

// ErrorSink 错误的统一出口：上报一次、按错误码决定是弹提示还是强制重登。
// 需要重登的错误绕过普通提示路径，直接清会话并广播会话失效。
type ErrorSink struct {
	Store    *session.Store
	Bus      *events.Bus
	Reporter analytics.Reporter
}

// Handle 处理一个错误并返回归一化的AppError
func (s *ErrorSink) Handle(err error, context string) *errors.AppError {
	appErr := errors.AsAppError(err)
	if appErr == nil {
		return nil
	}

	s.Reporter.TrackError(int(appErr.Code), appErr.Message, context)

	if appErr.RequiresReauth() {
		s.Store.Clear()
		s.Bus.Publish(events.SessionInvalidated{Reason: appErr.UserMessage()})
		return appErr
	}

	s.Bus.Publish(events.Toast{Kind: "error", Message: appErr.UserMessage()})
	return appErr
}
