package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qidianbox/aicreator-client/internal/analytics"
	"github.com/qidianbox/aicreator-client/internal/api"
	"github.com/qidianbox/aicreator-client/internal/auth"
	"github.com/qidianbox/aicreator-client/internal/config"
	"github.com/qidianbox/aicreator-client/internal/entitlement"
	"github.com/qidianbox/aicreator-client/internal/events"
	"github.com/qidianbox/aicreator-client/internal/generation"
	"github.com/qidianbox/aicreator-client/internal/logger"
	"github.com/qidianbox/aicreator-client/internal/purchase"
	"github.com/qidianbox/aicreator-client/internal/session"
	"github.com/qidianbox/aicreator-client/internal/types"
	"github.com/qidianbox/aicreator-client/internal/works"

	"github.com/common-nighthawk/go-figure"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)

	app := newApp(cfg)

	if err := app.run(os.Args[1], os.Args[2:]); err != nil {
		logger.Error("命令执行失败", zap.Error(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: aicreator <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  send-code  -phone <号码>                  发送登录验证码")
	fmt.Fprintln(os.Stderr, "  login      -phone <号码> -code <验证码>    手机号登录")
	fmt.Fprintln(os.Stderr, "  me                                        查看当前用户")
	fmt.Fprintln(os.Stderr, "  templates  [-page N] [-category 分类]     浏览模板")
	fmt.Fprintln(os.Stderr, "  generate   -template <ID> -image <文件>   上传并生成，Ctrl-C 取消")
	fmt.Fprintln(os.Stderr, "  restore                                   恢复购买并刷新权益")
	fmt.Fprintln(os.Stderr, "  logout                                    登出")
}

// App CLI 应用实例，负责把各组件装配起来
type App struct {
	cfg          *config.Config
	api          *api.Client
	store        *session.Store
	entitlements *entitlement.Cache
	bus          *events.Bus
	auth         *auth.Manager
	generation   *generation.Controller
	purchase     *purchase.Controller
	works        *works.Service
}

// cliStoreKit CLI 环境没有平台内购SDK，购买一律按用户取消处理，
// 恢复流程枚举不到任何平台侧交易
type cliStoreKit struct{}

func (cliStoreKit) Purchase(ctx context.Context, productID string) (*purchase.PlatformResult, error) {
	return &purchase.PlatformResult{State: purchase.ResultCancelled}, nil
}

func (cliStoreKit) CurrentEntitlements(ctx context.Context) ([]purchase.Transaction, error) {
	return nil, nil
}

// cliVerifier 收据签名校验在原生端完成，CLI 直接放行
type cliVerifier struct{}

func (cliVerifier) Verify(tx *purchase.Transaction) error { return nil }

// newApp 装配全部依赖，组件显式注入，不使用全局单例
func newApp(cfg *config.Config) *App {
	store := session.NewStore(cfg.Session.StorePath)
	cache := entitlement.NewCache()
	bus := events.NewBus()
	reporter := analytics.NewLogReporter()

	apiClient := api.NewClient(cfg, store)
	authManager := auth.NewManager(apiClient, store, cache, bus, reporter)
	sink := &auth.ErrorSink{Store: store, Bus: bus, Reporter: reporter}

	return &App{
		cfg:          cfg,
		api:          apiClient,
		store:        store,
		entitlements: cache,
		bus:          bus,
		auth:         authManager,
		generation:   generation.NewController(apiClient, cfg.Generation, bus, sink),
		purchase:     purchase.NewController(cliStoreKit{}, cliVerifier{}, apiClient, cache, bus, sink, reporter),
		works:        works.NewService(apiClient, sink),
	}
}

// run 分发子命令
func (a *App) run(command string, args []string) error {
	ctx := context.Background()

	switch command {
	case "send-code":
		fs := flag.NewFlagSet("send-code", flag.ExitOnError)
		phone := fs.String("phone", "", "手机号")
		_ = fs.Parse(args)
		return a.auth.SendVerifyCode(ctx, *phone)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		phone := fs.String("phone", "", "手机号")
		code := fs.String("code", "", "短信验证码")
		_ = fs.Parse(args)

		if err := a.auth.LoginWithPhone(ctx, *phone, *code); err != nil {
			return err
		}
		user := a.auth.CurrentUser()
		fmt.Printf("登录成功: %s (积分 %d)\n", user.Nickname, user.Points)
		return nil

	case "me":
		user, err := a.auth.RefreshProfile(ctx)
		if err != nil {
			return err
		}
		ent := a.entitlements.Snapshot()
		fmt.Printf("用户: %s\n积分: %d\n会员: %v\n", user.Nickname, ent.Points, ent.MembershipActive)
		return nil

	case "templates":
		fs := flag.NewFlagSet("templates", flag.ExitOnError)
		page := fs.Int("page", 1, "页码")
		category := fs.String("category", "", "分类")
		_ = fs.Parse(args)

		resp, err := a.works.Templates(ctx, *page, 20, *category)
		if err != nil {
			return err
		}
		names := lo.Map(resp.Items, func(item types.TemplateListItem, _ int) string {
			return fmt.Sprintf("  %s  %s (%d积分)", item.ID, item.Name, item.PointsCost)
		})
		fmt.Printf("模板 第%d页 共%d个:\n", resp.Page, resp.Total)
		for _, line := range names {
			fmt.Println(line)
		}
		return nil

	case "generate":
		fs := flag.NewFlagSet("generate", flag.ExitOnError)
		template := fs.String("template", "", "模板ID")
		image := fs.String("image", "", "本地图片路径")
		_ = fs.Parse(args)
		return a.generate(ctx, *template, *image)

	case "restore":
		ent, err := a.purchase.RestoreEntitlements(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("权益已恢复: 积分 %d, 会员 %v\n", ent.Points, ent.MembershipActive)
		return nil

	case "logout":
		a.auth.Logout(ctx)
		fmt.Println("已登出")
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// generate 完整生成流程：上传 -> 提交 -> 订阅事件直到终态，Ctrl-C 触发取消
func (a *App) generate(ctx context.Context, templateID, imagePath string) error {
	banner := figure.NewFigure("AICreator", "cybermedium", true)
	banner.Print()

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("读取图片失败: %w", err)
	}

	uploaded, err := a.api.UploadImage(ctx, data, "image/jpeg")
	if err != nil {
		return err
	}
	fmt.Printf("图片已上传: %s\n", uploaded.URL)

	eventCh, unsubscribe := a.bus.Subscribe(32)
	defer unsubscribe()

	taskID, err := a.generation.Submit(ctx, templateID, uploaded.URL)
	if err != nil {
		return err
	}
	fmt.Printf("任务已提交: %s (预计 %d 秒)\n", taskID, a.generation.Snapshot().EstimatedTime)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			if err := a.generation.Cancel(); err != nil {
				return err
			}
			fmt.Println("任务已取消")
			return nil

		case event := <-eventCh:
			switch e := event.(type) {
			case events.TaskCompleted:
				fmt.Printf("生成完成: %s\n", e.ResultRef)
				return a.generation.Reset()
			case events.TaskFailed:
				_ = a.generation.Reset()
				return fmt.Errorf("生成失败: %s", e.Message)
			case events.SessionInvalidated:
				return fmt.Errorf("登录已过期，请重新登录")
			}
		}
	}
}
