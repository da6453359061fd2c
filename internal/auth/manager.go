package auth

import (
	"context"
	"sync"
	"time"

	"github.com/qidianbox/aicreator-client/internal/analytics"
	"github.com/qidianbox/aicreator-client/internal/api"
	"github.com/qidianbox/aicreator-client/internal/entitlement"
	"github.com/qidianbox/aicreator-client/internal/errors"
	"github.com/qidianbox/aicreator-client/internal/events"
	"github.com/qidianbox/aicreator-client/internal/logger"
	"github.com/qidianbox/aicreator-client/internal/session"
	"github.com/qidianbox/aicreator-client/internal/types"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// State 认证状态
type State int

const (
	StateLoggedOut State = iota
	StateAuthenticating
	StateLoggedIn
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateLoggedIn:
		return "logged_in"
	default:
		return "logged_out"
	}
}

// Manager 认证管理器。状态机：LoggedOut -> Authenticating -> LoggedIn；
// 刷新时 LoggedIn -> Authenticating；任何需要重登的错误强制回到 LoggedOut。
// 登录调用自身串行（Authenticating 期间拒绝并发登录）。
type Manager struct {
	mu           sync.Mutex
	state        State
	user         *types.User
	api          *api.Client
	store        *session.Store
	entitlements *entitlement.Cache
	bus          *events.Bus
	reporter     analytics.Reporter
	sink         *ErrorSink
	now          func() time.Time
}

// NewManager 创建认证管理器。已有有效落盘会话时直接进入 LoggedIn。
func NewManager(apiClient *api.Client, store *session.Store, cache *entitlement.Cache, bus *events.Bus, reporter analytics.Reporter) *Manager {
	m := &Manager{
		api:          apiClient,
		store:        store,
		entitlements: cache,
		bus:          bus,
		reporter:     reporter,
		sink:         &ErrorSink{Store: store, Bus: bus, Reporter: reporter},
		now:          time.Now,
	}
	if store.IsValid() {
		m.state = StateLoggedIn
	}
	return m
}

// State 返回当前认证状态
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser 返回最近一次登录/刷新得到的用户信息
func (m *Manager) CurrentUser() *types.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return nil
	}
	copied := *m.user
	return &copied
}

// LoginWithWeChat 微信授权码登录
func (m *Manager) LoginWithWeChat(ctx context.Context, code string) error {
	return m.login(ctx, "wechat_login", func(ctx context.Context) (*types.LoginResponse, error) {
		return m.api.LoginWithWeChat(ctx, code)
	})
}

// LoginWithApple Apple身份令牌登录
func (m *Manager) LoginWithApple(ctx context.Context, identityToken, authorizationCode string) error {
	return m.login(ctx, "apple_login", func(ctx context.Context) (*types.LoginResponse, error) {
		return m.api.LoginWithApple(ctx, identityToken, authorizationCode)
	})
}

// LoginWithPhone 手机号+验证码登录
func (m *Manager) LoginWithPhone(ctx context.Context, phone, otp string) error {
	return m.login(ctx, "phone_login", func(ctx context.Context) (*types.LoginResponse, error) {
		return m.api.LoginWithPhone(ctx, phone, otp)
	})
}

// SendVerifyCode 发送短信验证码
func (m *Manager) SendVerifyCode(ctx context.Context, phone string) error {
	if err := m.api.SendVerifyCode(ctx, phone); err != nil {
		return m.sink.Handle(err, "login")
	}
	return nil
}

// login 三种登录入口的公共路径：单次请求，成功后原子写入会话
func (m *Manager) login(ctx context.Context, action string, do func(context.Context) (*types.LoginResponse, error)) error {
	m.mu.Lock()
	if m.state == StateAuthenticating {
		m.mu.Unlock()
		return errors.NewInvalidStateError("登录进行中，请勿重复操作")
	}
	prev := m.state
	m.state = StateAuthenticating
	m.mu.Unlock()

	resp, err := do(ctx)
	if err != nil {
		m.mu.Lock()
		m.state = prev
		m.mu.Unlock()
		return m.sink.Handle(err, "login")
	}

	m.finishLogin(resp)
	m.reporter.TrackAction(action, map[string]any{"user_id": resp.User.ID})
	return nil
}

// Refresh 用刷新令牌换取新会话。requiresReauth 类错误会清会话并广播失效。
func (m *Manager) Refresh(ctx context.Context) error {
	refreshToken := m.store.RefreshToken()
	if refreshToken == "" {
		return m.sink.Handle(errors.New(errors.CodeRefreshTokenExpired, "无可用的刷新令牌"), "refresh")
	}

	m.mu.Lock()
	if m.state == StateAuthenticating {
		m.mu.Unlock()
		return errors.NewInvalidStateError("认证进行中，请勿重复操作")
	}
	prev := m.state
	m.state = StateAuthenticating
	m.mu.Unlock()

	resp, err := m.api.RefreshToken(ctx, refreshToken)
	if err != nil {
		appErr := m.sink.Handle(err, "refresh")
		m.mu.Lock()
		if appErr.RequiresReauth() {
			m.state = StateLoggedOut
			m.user = nil
		} else {
			m.state = prev
		}
		m.mu.Unlock()
		return appErr
	}

	m.finishLogin(resp)
	return nil
}

// Logout 登出：尽力通知后端，无论结果本地会话必定清除
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		logger.Warn("登出请求失败，继续清理本地会话", zap.Error(err))
	}

	m.store.Clear()
	m.entitlements.Reset()

	m.mu.Lock()
	m.state = StateLoggedOut
	m.user = nil
	m.mu.Unlock()

	m.reporter.TrackAction("logout", nil)
}

// RefreshProfile 拉取最新用户信息并刷新权益缓存
func (m *Manager) RefreshProfile(ctx context.Context) (*types.User, error) {
	user, err := m.api.GetCurrentUser(ctx)
	if err != nil {
		appErr := m.sink.Handle(err, "profile")
		if appErr.RequiresReauth() {
			m.mu.Lock()
			m.state = StateLoggedOut
			m.user = nil
			m.mu.Unlock()
		}
		return nil, appErr
	}

	ent := m.entitlements.UpdateFromUser(user)
	m.bus.Publish(events.EntitlementUpdated{Points: ent.Points, MembershipActive: ent.MembershipActive})

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return user, nil
}

// finishLogin 登录/刷新成功后的收尾：写会话、刷权益、重置埋点会话
func (m *Manager) finishLogin(resp *types.LoginResponse) {
	m.store.Save(session.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    m.expiresAt(resp),
	})

	ent := m.entitlements.UpdateFromUser(&resp.User)
	m.bus.Publish(events.EntitlementUpdated{Points: ent.Points, MembershipActive: ent.MembershipActive})

	m.reporter.ResetSession()

	m.mu.Lock()
	m.state = StateLoggedIn
	m.user = &resp.User
	m.mu.Unlock()

	logger.Info("登录成功",
		zap.String("user_id", resp.User.ID),
		zap.Time("expires_at", m.expiresAt(resp)),
	)
}

// expiresAt 计算会话过期时间；expires_in 缺失时回退到JWT exp声明
func (m *Manager) expiresAt(resp *types.LoginResponse) time.Time {
	if resp.ExpiresIn > 0 {
		return m.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	if exp, ok := jwtExpiry(resp.AccessToken); ok {
		return exp
	}

	// 双方都没给出过期时间，按保守的1小时处理
	return m.now().Add(time.Hour)
}

// jwtExpiry 不验证签名，仅提取 exp 声明
func jwtExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
