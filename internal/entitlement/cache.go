package entitlement

import (
	"sync"
	"time"

	"github.com/qidianbox/aicreator-client/internal/types"
)

// Entitlement 会员/积分的派生只读模型，付费墙UI的读取来源
type Entitlement struct {
	MembershipActive    bool
	MembershipExpiresAt *time.Time
	Points              int
}

// Cache 共享权益缓存。写入方只有认证管理器（登录/刷新资料）和
// 购买控制器（验证通过的购买），其余组件只读。
type Cache struct {
	mu      sync.RWMutex
	current Entitlement
	now     func() time.Time
}

// NewCache 创建权益缓存
func NewCache() *Cache {
	return &Cache{now: time.Now}
}

// Snapshot 返回当前权益的副本
func (c *Cache) Snapshot() Entitlement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// UpdateFromUser 根据用户信息重建权益（登录、资料刷新后调用）
func (c *Cache) UpdateFromUser(user *types.User) Entitlement {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = Entitlement{
		MembershipActive:    user.IsMember(c.now()),
		MembershipExpiresAt: user.MembershipExpireTime,
		Points:              user.Points,
	}
	return c.current
}

// ApplyPurchase 应用后端验证通过的购买结果
func (c *Cache) ApplyPurchase(resp *types.VerifyPurchaseResponse) Entitlement {
	c.mu.Lock()
	defer c.mu.Unlock()

	if resp.Points != nil {
		c.current.Points = *resp.Points
	}
	if resp.Membership != nil {
		c.current.MembershipExpiresAt = resp.Membership.ExpireTime
		c.current.MembershipActive = resp.Membership.Type != types.MembershipNone &&
			resp.Membership.ExpireTime != nil &&
			resp.Membership.ExpireTime.After(c.now())
	}
	return c.current
}

// Reset 清空权益（登出后调用）
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = Entitlement{}
}
