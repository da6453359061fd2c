package session

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/qidianbox/aicreator-client/internal/logger"
	"github.com/qidianbox/aicreator-client/internal/utils"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// Session 客户端会话凭据，令牌和过期时间永远一起读写
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// persistedSession 落盘格式，带内容校验和用于探测文件损坏
type persistedSession struct {
	Checksum uint64  `json:"checksum"`
	Session  Session `json:"session"`
}

// Store 会话存储，进程内唯一可信来源，落盘保证重启后会话可恢复。
// 存储读写失败一律降级为未登录，不向上抛错——会话总能通过重新登录再造。
type Store struct {
	mu      sync.RWMutex
	path    string
	session *Session
	now     func() time.Time
}

// NewStore 创建会话存储并尝试恢复落盘会话
func NewStore(path string) *Store {
	s := &Store{
		path: path,
		now:  time.Now,
	}
	s.session = s.loadFromDisk()
	return s
}

// Get 返回当前会话的副本，未登录时返回 nil
func (s *Store) Get() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return nil
	}
	copied := *s.session
	return &copied
}

// Save 写入新会话并落盘
func (s *Store) Save(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = &sess
	s.persist(&sess)

	logger.Debug("会话已保存",
		zap.String("access_token", utils.MaskToken(sess.AccessToken)),
		zap.Time("expires_at", sess.ExpiresAt),
	)
}

// Clear 清除会话并删除落盘文件
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		logger.Warn("删除会话文件失败", zap.Error(err))
	}
}

// IsValid 判断会话是否存在且未过期
func (s *Store) IsValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return false
	}
	return s.now().Before(s.session.ExpiresAt)
}

// AccessToken 返回当前访问令牌，实现 api.TokenSource
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return ""
	}
	return s.session.AccessToken
}

// RefreshToken 返回当前刷新令牌
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return ""
	}
	return s.session.RefreshToken
}

// persist 会话落盘，失败只记日志
func (s *Store) persist(sess *Session) {
	raw, err := sonic.Marshal(sess)
	if err != nil {
		logger.Warn("会话序列化失败", zap.Error(err))
		return
	}

	data, err := sonic.Marshal(&persistedSession{
		Checksum: xxhash.Sum64(raw),
		Session:  *sess,
	})
	if err != nil {
		logger.Warn("会话序列化失败", zap.Error(err))
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		logger.Warn("创建会话目录失败", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		logger.Warn("写入会话文件失败", zap.Error(err))
	}
}

// loadFromDisk 恢复落盘会话；文件缺失、解析失败、校验和不符都视为未登录
func (s *Store) loadFromDisk() *Session {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("读取会话文件失败", zap.Error(err))
		}
		return nil
	}

	var stored persistedSession
	if err := sonic.Unmarshal(data, &stored); err != nil {
		logger.Warn("会话文件解析失败，视为未登录", zap.Error(err))
		return nil
	}

	raw, err := sonic.Marshal(&stored.Session)
	if err != nil {
		return nil
	}
	if xxhash.Sum64(raw) != stored.Checksum {
		logger.Warn("会话文件校验和不符，视为未登录")
		return nil
	}

	return &stored.Session
}
