package analytics

import (
	"sync"

	"github.com/qidianbox/aicreator-client/internal/logger"
	"github.com/qidianbox/aicreator-client/internal/utils"

	"go.uber.org/zap"
)

// Reporter 埋点/可观测性协作方的窄接口。核心只依赖这三个动作，
// 事件口径和上报通道由外部实现决定。
type Reporter interface {
	// TrackAction 记录一次用户动作
	TrackAction(action string, properties map[string]any)
	// TrackError 记录一次错误，每个错误在被抛给上层前上报且只上报一次
	TrackError(code int, message string, context string)
	// ResetSession 重置埋点会话关联ID（登录成功后调用）
	ResetSession()
}

// logReporter 基于日志的Reporter实现，持有当前会话关联ID
type logReporter struct {
	mu        sync.Mutex
	sessionID string
}

// NewLogReporter 创建日志版Reporter
func NewLogReporter() Reporter {
	return &logReporter{sessionID: utils.RandString(16)}
}

func (r *logReporter) currentSession() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

func (r *logReporter) TrackAction(action string, properties map[string]any) {
	logger.Info("埋点事件",
		zap.String("action", action),
		zap.String("analytics_session", r.currentSession()),
		zap.Any("properties", properties),
	)
}

func (r *logReporter) TrackError(code int, message string, context string) {
	logger.Warn("错误上报",
		zap.Int("error_code", code),
		zap.String("error_msg", message),
		zap.String("context", context),
		zap.String("analytics_session", r.currentSession()),
	)
}

func (r *logReporter) ResetSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = utils.RandString(16)
}

// Noop 空实现，测试和无埋点场景使用
type Noop struct{}

func (Noop) TrackAction(string, map[string]any) {}
func (Noop) TrackError(int, string, string)     {}
func (Noop) ResetSession()                      {}
