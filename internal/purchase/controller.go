package purchase

import (
	"context"
	"sync"

	"github.com/qidianbox/aicreator-client/internal/analytics"
	"github.com/qidianbox/aicreator-client/internal/api"
	"github.com/qidianbox/aicreator-client/internal/auth"
	"github.com/qidianbox/aicreator-client/internal/entitlement"
	"github.com/qidianbox/aicreator-client/internal/errors"
	"github.com/qidianbox/aicreator-client/internal/events"
	"github.com/qidianbox/aicreator-client/internal/logger"

	"go.uber.org/zap"
)

// Transaction 平台内购产生的交易凭据
type Transaction struct {
	ProductID     string
	TransactionID string
	Receipt       string // base64 收据
}

// ResultState 平台购买结果状态
type ResultState int

const (
	ResultPurchased ResultState = iota
	ResultCancelled
	ResultPending
)

// PlatformResult 平台购买返回
type PlatformResult struct {
	State       ResultState
	Transaction *Transaction
}

// StoreClient 平台内购的窄接口（StoreKit 等原生SDK的封装）
type StoreClient interface {
	// Purchase 发起一次平台购买
	Purchase(ctx context.Context, productID string) (*PlatformResult, error)
	// CurrentEntitlements 枚举当前平台侧有效的交易
	CurrentEntitlements(ctx context.Context) ([]Transaction, error)
}

// ReceiptVerifier 本地收据签名校验
type ReceiptVerifier interface {
	Verify(tx *Transaction) error
}

// Outcome 购买流程的结果。用户取消和待定不是错误：
// Completed=false 表示无任何状态变化，待定交易留给恢复流程处理。
type Outcome struct {
	Completed   bool
	Pending     bool
	Entitlement *entitlement.Entitlement
}

// attempt 一次购买尝试的瞬时状态，流程结束即丢弃
type attempt struct {
	productID     string
	transactionID string
	verified      bool
}

// Controller 购买控制器：平台购买 -> 本地收据校验 -> 后端权威验证 -> 刷新权益。
// 同一时刻只允许一笔购买在途。
type Controller struct {
	mu         sync.Mutex
	purchasing bool

	store    StoreClient
	verifier ReceiptVerifier
	api      *api.Client
	cache    *entitlement.Cache
	bus      *events.Bus
	sink     *auth.ErrorSink
	reporter analytics.Reporter
}

// NewController 创建购买控制器
func NewController(store StoreClient, verifier ReceiptVerifier, apiClient *api.Client, cache *entitlement.Cache, bus *events.Bus, sink *auth.ErrorSink, reporter analytics.Reporter) *Controller {
	return &Controller{
		store:    store,
		verifier: verifier,
		api:      apiClient,
		cache:    cache,
		bus:      bus,
		sink:     sink,
		reporter: reporter,
	}
}

// Purchase 执行一次完整购买流程
func (c *Controller) Purchase(ctx context.Context, productID string) (*Outcome, error) {
	c.mu.Lock()
	if c.purchasing {
		c.mu.Unlock()
		return nil, errors.NewInvalidStateError("已有购买在进行中")
	}
	c.purchasing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.purchasing = false
		c.mu.Unlock()
	}()

	c.reporter.TrackAction("purchase_start", map[string]any{"product_id": productID})

	// 1. 平台购买
	result, err := c.store.Purchase(ctx, productID)
	if err != nil {
		return nil, c.sink.Handle(errors.Wrap(errors.CodeUnknown, "平台购买失败", err), "payment")
	}

	switch result.State {
	case ResultCancelled:
		// 用户取消不报错、不触发后端验证、权益不变
		logger.Info("用户取消购买", zap.String("product_id", productID))
		return &Outcome{Completed: false}, nil
	case ResultPending:
		// 待定交易留给 RestoreEntitlements 对账
		logger.Info("购买待定，等待后续对账", zap.String("product_id", productID))
		return &Outcome{Completed: false, Pending: true}, nil
	}

	att := attempt{productID: productID, transactionID: result.Transaction.TransactionID}

	// 2. 本地收据校验，失败对本次购买是致命的，不重试
	if err := c.verifier.Verify(result.Transaction); err != nil {
		return nil, c.sink.Handle(errors.NewVerificationError(err), "payment")
	}
	att.verified = true

	// 3. 后端权威验证
	resp, err := c.api.VerifyPurchase(ctx, att.productID, att.transactionID, result.Transaction.Receipt)
	if err != nil {
		return nil, c.sink.Handle(err, "payment")
	}

	// 4. 刷新权益缓存并返回
	ent := c.cache.ApplyPurchase(resp)
	c.bus.Publish(events.EntitlementUpdated{Points: ent.Points, MembershipActive: ent.MembershipActive})

	c.reporter.TrackAction("purchase_success", map[string]any{
		"product_id":     att.productID,
		"transaction_id": att.transactionID,
	})
	logger.Info("购买完成",
		zap.String("product_id", att.productID),
		zap.String("transaction_id", att.transactionID),
	)

	return &Outcome{Completed: true, Entitlement: &ent}, nil
}

// RestoreEntitlements 重新枚举平台侧有效交易并逐笔上报后端，
// 对账完成后重新发布权益缓存。单笔失败不会中断其余交易的对账。
func (c *Controller) RestoreEntitlements(ctx context.Context) (*entitlement.Entitlement, error) {
	txs, err := c.store.CurrentEntitlements(ctx)
	if err != nil {
		return nil, c.sink.Handle(errors.Wrap(errors.CodeUnknown, "平台权益枚举失败", err), "payment")
	}

	restored := 0
	for i := range txs {
		tx := &txs[i]
		if err := c.verifier.Verify(tx); err != nil {
			logger.Warn("恢复购买时收据校验失败，跳过",
				zap.String("transaction_id", tx.TransactionID),
				zap.Error(err),
			)
			continue
		}

		resp, err := c.api.VerifyPurchase(ctx, tx.ProductID, tx.TransactionID, tx.Receipt)
		if err != nil {
			logger.Warn("恢复购买时后端验证失败，跳过",
				zap.String("transaction_id", tx.TransactionID),
				zap.Error(err),
			)
			continue
		}

		c.cache.ApplyPurchase(resp)
		restored++
	}

	ent := c.cache.Snapshot()
	c.bus.Publish(events.EntitlementUpdated{Points: ent.Points, MembershipActive: ent.MembershipActive})

	logger.Info("恢复购买完成",
		zap.Int("total", len(txs)),
		zap.Int("restored", restored),
	)
	return &ent, nil
}
