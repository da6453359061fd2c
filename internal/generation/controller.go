package generation

import (
	"context"
	"sync"
	"time"

	"github.com/qidianbox/aicreator-client/internal/api"
	"github.com/qidianbox/aicreator-client/internal/auth"
	"github.com/qidianbox/aicreator-client/internal/config"
	"github.com/qidianbox/aicreator-client/internal/errors"
	"github.com/qidianbox/aicreator-client/internal/events"
	"github.com/qidianbox/aicreator-client/internal/logger"
	"github.com/qidianbox/aicreator-client/internal/types"

	"go.uber.org/zap"
)

// State 控制器状态。Completed/Failed/Cancelled 为终态，
// 只有显式 Reset 才能回到 Idle。
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePolling
	StateCompleted
	StateFailed
	StateCancelled
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// IsTerminal 判断是否为终态
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Snapshot 对外暴露的控制器快照
type Snapshot struct {
	State         State
	Task          *types.GenerationTask
	EstimatedTime int
}

// Controller 生成任务控制器：提交、轮询、取消、重置，同一时刻只跟踪一个任务。
// 并发 Submit 按当前状态同步拒绝，不排队。轮询节拍之间单槽在途守卫，
// 迟到的响应按代次和序号丢弃。
type Controller struct {
	mu sync.Mutex

	state         State
	task          *types.GenerationTask
	estimatedTime int

	// epoch 任务代次，Cancel/Reset 时递增，使在途响应全部失效
	epoch uint64
	// seq/appliedSeq 轮询响应序号，丢弃乱序的旧响应
	seq        uint64
	appliedSeq uint64
	inFlight   bool
	attempts   int
	deadline   time.Time

	pollCancel context.CancelFunc

	api  *api.Client
	cfg  config.GenerationConfig
	bus  *events.Bus
	sink *auth.ErrorSink
	now  func() time.Time
}

// NewController 创建生成任务控制器
func NewController(apiClient *api.Client, cfg config.GenerationConfig, bus *events.Bus, sink *auth.ErrorSink) *Controller {
	return &Controller{
		api:  apiClient,
		cfg:  cfg,
		bus:  bus,
		sink: sink,
		now:  time.Now,
	}
}

// Snapshot 返回当前状态与任务副本
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{State: c.state, EstimatedTime: c.estimatedTime}
	if c.task != nil {
		copied := *c.task
		snap.Task = &copied
	}
	return snap
}

// Submit 提交生成任务。仅 Idle 状态可提交，任务在途时同步拒绝。
// 成功后进入 Polling 并启动轮询循环，返回任务ID。
func (c *Controller) Submit(ctx context.Context, templateID, imageRef string) (string, error) {
	if templateID == "" || imageRef == "" {
		return "", errors.New(errors.CodeParameterMissing, "模板和图片引用不能为空")
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return "", errors.NewInvalidStateError("已有生成任务在进行中")
	}
	c.state = StateSubmitting
	epoch := c.epoch
	c.mu.Unlock()

	resp, err := c.api.CreateGeneration(ctx, templateID, imageRef)
	if err != nil {
		c.mu.Lock()
		if c.epoch == epoch && c.state == StateSubmitting {
			c.state = StateIdle
		}
		c.mu.Unlock()
		return "", c.sink.Handle(err, "generation")
	}

	c.mu.Lock()
	if c.epoch != epoch || c.state != StateSubmitting {
		// 提交期间被取消，任务已在后端创建，补发取消通知
		c.mu.Unlock()
		c.fireCancel(resp.TaskID)
		return "", errors.New(errors.CodeGenerationCancelled, "任务提交期间已被取消")
	}

	now := c.now()
	c.task = &types.GenerationTask{
		ID:         resp.TaskID,
		TemplateID: templateID,
		ImageRef:   imageRef,
		Status:     types.GenerationPending,
		CreatedAt:  now,
	}
	c.estimatedTime = resp.EstimatedTime
	c.state = StatePolling
	c.attempts = 0
	c.appliedSeq = 0
	c.seq = 0
	c.inFlight = false
	c.deadline = now.Add(c.cfg.MaxPollDuration)

	pollCtx, cancel := context.WithCancel(context.Background())
	c.pollCancel = cancel
	c.mu.Unlock()

	go c.pollLoop(pollCtx, epoch, resp.TaskID)

	logger.Info("生成任务已提交",
		zap.String("task_id", resp.TaskID),
		zap.String("template_id", templateID),
		zap.Int("estimated_time", resp.EstimatedTime),
	)
	return resp.TaskID, nil
}

// Cancel 取消当前任务。仅 Submitting/Polling 状态有效，
// 客户端乐观转入 Cancelled，后端取消为尽力而为，不等待结果。
func (c *Controller) Cancel() error {
	c.mu.Lock()
	if c.state != StateSubmitting && c.state != StatePolling {
		c.mu.Unlock()
		return errors.NewInvalidStateError("当前没有可取消的任务")
	}

	c.state = StateCancelled
	c.epoch++
	taskID := ""
	if c.task != nil {
		taskID = c.task.ID
		c.task.Status = types.GenerationCancelled
	}
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.mu.Unlock()

	if taskID != "" {
		c.fireCancel(taskID)
	}

	logger.Info("生成任务已取消", zap.String("task_id", taskID))
	return nil
}

// Reset 从终态回到 Idle，清空任务字段，允许下一次提交
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.IsTerminal() {
		return errors.NewInvalidStateError("任务未结束，不能重置")
	}

	c.state = StateIdle
	c.task = nil
	c.estimatedTime = 0
	c.epoch++
	return nil
}

// pollLoop 轮询循环：固定间隔节拍，直到终态或代次失效
func (c *Controller) pollLoop(ctx context.Context, epoch uint64, taskID string) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq, ok := c.beginTick(epoch)
			if !ok {
				continue
			}
			c.pollOnce(ctx, epoch, seq, taskID)
		}
	}
}

// beginTick 节拍前置检查：状态/代次有效、超时预算未用尽、且上一次请求已返回
func (c *Controller) beginTick(epoch uint64) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch || c.state != StatePolling {
		return 0, false
	}

	// 轮询预算用尽即判定超时失败，杜绝对不可达后端的无限轮询
	if c.attempts >= c.cfg.MaxPollAttempts || !c.now().Before(c.deadline) {
		c.failLocked(errors.CodeGenerationTimeout, "轮询超出时间预算")
		return 0, false
	}

	if c.inFlight {
		// 上一跳还没回来，跳过本次节拍
		return 0, false
	}

	c.inFlight = true
	c.attempts++
	c.seq++
	return c.seq, true
}

// pollOnce 执行一次状态查询并应用响应
func (c *Controller) pollOnce(ctx context.Context, epoch, seq uint64, taskID string) {
	task, err := c.api.GetGenerationStatus(ctx, taskID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight = false

	// 离开 Polling 或代次变化后到达的响应一律丢弃
	if c.epoch != epoch || c.state != StatePolling {
		return
	}
	// 乱序保护：旧响应不得覆盖新响应
	if seq <= c.appliedSeq {
		return
	}

	if err != nil {
		appErr := errors.AsAppError(err)
		if appErr.RequiresReauth() {
			// 会话已失效，继续轮询没有意义
			c.mu.Unlock()
			c.sink.Handle(appErr, "generation")
			c.mu.Lock()
			if c.epoch == epoch && c.state == StatePolling {
				c.failLocked(appErr.Code, appErr.Message)
			}
			return
		}
		// 瞬时错误吞掉，循环继续
		logger.Debug("轮询失败，等待下一跳",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		return
	}

	c.appliedSeq = seq
	c.applyLocked(task)
}

// applyLocked 应用一次轮询响应，调用方持锁
func (c *Controller) applyLocked(remote *types.GenerationTask) {
	switch remote.Status {
	case types.GenerationCompleted:
		c.state = StateCompleted
		c.task.Status = types.GenerationCompleted
		c.task.Progress = 100
		c.task.ResultRef = remote.ResultRef
		now := c.now()
		c.task.CompletedAt = &now
		c.stopPollingLocked()

		taskID, resultRef := c.task.ID, c.task.ResultRef
		// 终态事件恰好发布一次
		c.publishAsync(events.TaskCompleted{TaskID: taskID, ResultRef: resultRef})

		logger.Info("生成任务完成",
			zap.String("task_id", taskID),
			zap.String("result_ref", resultRef),
		)

	case types.GenerationFailed:
		c.state = StateFailed
		c.task.Status = types.GenerationFailed
		c.task.ErrorMessage = remote.ErrorMessage
		c.stopPollingLocked()

		c.publishAsync(events.TaskFailed{
			TaskID:  c.task.ID,
			Code:    int(errors.CodeGenerationFailed),
			Message: remote.ErrorMessage,
		})
		c.publishAsync(events.Toast{
			Kind:    "error",
			Message: errors.New(errors.CodeGenerationFailed, remote.ErrorMessage).UserMessage(),
		})

		logger.Warn("生成任务失败",
			zap.String("task_id", c.task.ID),
			zap.String("error_message", remote.ErrorMessage),
		)

	case types.GenerationCancelled:
		// 后端侧取消（如超时被回收），与本地取消同样处理
		c.state = StateCancelled
		c.task.Status = types.GenerationCancelled
		c.stopPollingLocked()

	default:
		// 非终态：更新状态，进度只增不减
		c.task.Status = remote.Status
		if remote.Progress > c.task.Progress {
			c.task.Progress = remote.Progress
		}
	}
}

// failLocked 强制判定任务失败，调用方持锁
func (c *Controller) failLocked(code errors.ErrorCode, message string) {
	c.state = StateFailed
	if c.task != nil {
		c.task.Status = types.GenerationFailed
		c.task.ErrorMessage = message
	}
	c.stopPollingLocked()

	taskID := ""
	if c.task != nil {
		taskID = c.task.ID
	}
	c.publishAsync(events.TaskFailed{TaskID: taskID, Code: int(code), Message: message})
	c.publishAsync(events.Toast{Kind: "error", Message: errors.New(code, message).UserMessage()})

	logger.Warn("生成任务判定失败",
		zap.String("task_id", taskID),
		zap.Int("code", int(code)),
		zap.String("message", message),
	)
}

// stopPollingLocked 停止轮询循环，调用方持锁
func (c *Controller) stopPollingLocked() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
}

// publishAsync 持锁期间发布事件（Publish 本身不阻塞）
func (c *Controller) publishAsync(event events.Event) {
	c.bus.Publish(event)
}

// fireCancel 尽力通知后端取消任务，既不等待也不依赖其结果
func (c *Controller) fireCancel(taskID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CancelTimeout)
		defer cancel()

		if err := c.api.CancelGeneration(ctx, taskID); err != nil {
			logger.Debug("后端取消通知失败", zap.String("task_id", taskID), zap.Error(err))
		}
	}()
}
