package entitlement

import (
	"testing"
	"time"

	"github.com/qidianbox/aicreator-client/internal/types"

	"github.com/stretchr/testify/require"
)

func TestUpdateFromUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(30 * 24 * time.Hour)

	cache := NewCache()
	cache.now = func() time.Time { return now }

	ent := cache.UpdateFromUser(&types.User{
		ID:                   "u1",
		Points:               50,
		MembershipType:       types.MembershipMonthly,
		MembershipExpireTime: &expires,
	})
	require.True(t, ent.MembershipActive)
	require.Equal(t, 50, ent.Points)
	require.Equal(t, &expires, ent.MembershipExpiresAt)

	// 会员到期后重建权益，active 归零
	cache.now = func() time.Time { return expires.Add(time.Hour) }
	ent = cache.UpdateFromUser(&types.User{
		ID:                   "u1",
		Points:               50,
		MembershipType:       types.MembershipMonthly,
		MembershipExpireTime: &expires,
	})
	require.False(t, ent.MembershipActive)
}

func TestApplyPurchasePartialUpdate(t *testing.T) {
	cache := NewCache()
	cache.UpdateFromUser(&types.User{ID: "u1", Points: 10})

	// 只带积分的响应不动会员字段
	points := 110
	ent := cache.ApplyPurchase(&types.VerifyPurchaseResponse{Success: true, Points: &points})
	require.Equal(t, 110, ent.Points)
	require.False(t, ent.MembershipActive)

	// 带会员的响应激活会员
	expires := time.Now().Add(365 * 24 * time.Hour)
	ent = cache.ApplyPurchase(&types.VerifyPurchaseResponse{
		Success:    true,
		Membership: &types.Membership{Type: types.MembershipYearly, ExpireTime: &expires},
	})
	require.True(t, ent.MembershipActive)
	require.Equal(t, 110, ent.Points)

	cache.Reset()
	require.Equal(t, Entitlement{}, cache.Snapshot())
}
