// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Corphon/InfraAdvisor/internal/api"
	"github.com/Corphon/InfraAdvisor/internal/auth"
	"github.com/Corphon/InfraAdvisor/internal/config"
	"github.com/Corphon/InfraAdvisor/internal/di"
	"github.com/Corphon/InfraAdvisor/internal/services"
	"github.com/Corphon/InfraAdvisor/internal/storage"
	"github.com/Corphon/InfraAdvisor/internal/utils"
)

// Server 可启动、可优雅关闭的HTTP服务
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App 服务端应用：配置、服务容器、路由与HTTP服务
type App struct {
	config    *config.AppConfig
	container *di.Container
	router    http.Handler
	server    Server
	stopChan  chan os.Signal

	closers       []func()
	cancelMetrics context.CancelFunc
	logger        *utils.Logger
}

// New 按依赖顺序初始化应用
func New(base *config.Config) (*App, error) {
	if err := createDirectories(base); err != nil {
		return nil, err
	}

	if err := config.InitConfig(base.DataDir); err != nil {
		return nil, fmt.Errorf("初始化配置失败: %w", err)
	}
	cfg := config.GetCurrentConfig()

	if err := initLogger(cfg.LogDir); err != nil {
		return nil, fmt.Errorf("初始化日志系统失败: %w", err)
	}

	a := &App{
		config:    cfg,
		container: di.NewContainer(),
		stopChan:  make(chan os.Signal, 1),
		logger:    utils.GetLogger(),
	}

	if err := a.InitServices(base.AuthSecret); err != nil {
		a.cleanup()
		return nil, fmt.Errorf("初始化服务失败: %w", err)
	}

	router, err := api.SetupRouter(a.container)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("设置路由失败: %w", err)
	}
	a.router = router
	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// InitServices 创建并注册全部服务
func (a *App) InitServices(authSecret string) error {
	cfg := a.config
	container := a.container
	container.Register(di.ServiceConfig, cfg)

	fileStorage, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return err
	}
	a.onClose(func() { fileStorage.Close() })
	container.Register(di.ServiceStorage, fileStorage)

	locks := services.NewLockManager()
	a.onClose(locks.Stop)
	container.Register(di.ServiceLocks, locks)

	metrics := utils.NewAPIMetrics()
	container.Register(di.ServiceMetrics, metrics)

	events := api.NewDraftEventHub()
	a.onClose(events.Stop)
	container.Register(di.ServiceEvents, events)

	drafts := services.NewDraftService(fileStorage, locks, events, metrics)
	container.Register(di.ServiceDrafts, drafts)
	container.Register(di.ServiceAssessments, services.NewAssessmentService(fileStorage, drafts, events))

	tokens, err := auth.NewTokenConfig(authSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("初始化令牌配置失败: %w", err)
	}
	container.Register(di.ServiceAuth, api.NewAuthenticator(tokens))

	limiter := api.NewRateLimiter(10 * time.Minute)
	a.onClose(limiter.Stop)
	container.Register(di.ServiceRateLimiter, limiter)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancelMetrics = cancel
	metrics.StartMetricsCollection(ctx, 5*time.Minute)

	a.logger.Info("services initialized", map[string]interface{}{
		"services": container.GetNames(),
		"data_dir": cfg.DataDir,
	})
	return container.Require(di.ServiceDrafts, di.ServiceAssessments, di.ServiceAuth)
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Run 启动HTTP服务，收到 SIGINT/SIGTERM 后优雅关闭
func (a *App) Run() error {
	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(a.stopChan)

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", map[string]interface{}{"port": a.config.Port})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		a.cleanup()
		return fmt.Errorf("启动服务器失败: %w", err)
	case sig := <-a.stopChan:
		a.logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := a.server.Shutdown(ctx)
	a.cleanup()
	if err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}
	a.logger.Info("server stopped", nil)
	return nil
}

// cleanup 逆序释放资源
func (a *App) cleanup() {
	if a.cancelMetrics != nil {
		a.cancelMetrics()
		a.cancelMetrics = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	a.logger.Sync()
}

// GetConfig 获取应用配置
func (a *App) GetConfig() *config.AppConfig {
	return a.config
}

// GetDIContainer 获取依赖注入容器
func (a *App) GetDIContainer() *di.Container {
	return a.container
}

// Handler 返回路由，供测试直接发请求
func (a *App) Handler() http.Handler {
	return a.router
}

// initLogger 日志写入 LOG_DIR/app_<日期>.log
func initLogger(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	logFile := filepath.Join(logDir, fmt.Sprintf("app_%s.log", time.Now().Format("2006-01-02")))
	return utils.InitLogger(logFile)
}

// createDirectories 创建应用所需的目录结构
func createDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.DataDir,
		filepath.Join(cfg.DataDir, "users"),
		cfg.LogDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录失败 %s: %w", dir, err)
		}
	}
	return nil
}
