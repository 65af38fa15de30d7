package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/Corphon/InfraAdvisor/internal/config"
	"github.com/Corphon/InfraAdvisor/internal/di"
)

// 测试创建模拟服务器
type mockServer struct {
	ShutdownCalled bool
	started        chan struct{}
}

func (m *mockServer) ListenAndServe() error {
	close(m.started)
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.ShutdownCalled = true
	return nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("DATA_DIR", filepath.Join(tempDir, "data"))
	t.Setenv("LOG_DIR", filepath.Join(tempDir, "logs"))
	t.Setenv("DEBUG_MODE", "true")

	base, err := config.Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	a, err := New(base)
	if err != nil {
		t.Fatalf("初始化应用失败: %v", err)
	}
	return a
}

// TestNewApp 测试应用初始化
func TestNewApp(t *testing.T) {
	a := newTestApp(t)
	defer a.cleanup()

	if a.GetConfig() == nil {
		t.Fatal("应用配置应该已被设置")
	}
	if a.Handler() == nil {
		t.Fatal("应用路由应该已被设置")
	}

	// 验证配置文件已创建
	configFilePath := filepath.Join(a.GetConfig().DataDir, "config.json")
	if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
		t.Error("配置文件应该已被创建")
	}

	// 检查日志文件是否已创建
	files, _ := os.ReadDir(a.GetConfig().LogDir)
	if len(files) == 0 {
		t.Error("应该已创建日志文件")
	}

	// 验证关键服务
	for _, name := range []string{di.ServiceDrafts, di.ServiceAssessments, di.ServiceEvents, di.ServiceRateLimiter} {
		if !a.GetDIContainer().Has(name) {
			t.Errorf("服务 %s 应该已被注册", name)
		}
	}
}

// TestHealthThroughApp 测试路由已接入
func TestHealthThroughApp(t *testing.T) {
	a := newTestApp(t)
	defer a.cleanup()

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("健康检查应返回200，实际为 %d", w.Code)
	}
}

// TestRun 测试应用运行和关闭
func TestRun(t *testing.T) {
	a := newTestApp(t)

	mockSrv := &mockServer{started: make(chan struct{})}
	a.server = mockSrv

	// 模拟发送停止信号
	go func() {
		<-mockSrv.started
		time.Sleep(50 * time.Millisecond)
		a.stopChan <- syscall.SIGTERM
	}()

	if err := a.Run(); err != nil {
		t.Fatalf("运行应用失败: %v", err)
	}

	if !mockSrv.ShutdownCalled {
		t.Error("应该调用了server.Shutdown")
	}
	if len(a.closers) != 0 {
		t.Error("关闭后资源应该已被释放")
	}
}
