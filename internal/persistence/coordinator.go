// internal/persistence/coordinator.go
package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Corphon/InfraAdvisor/internal/client"
	"github.com/Corphon/InfraAdvisor/internal/models"
	"github.com/Corphon/InfraAdvisor/internal/utils"
	"golang.org/x/sync/errgroup"
)

// DefaultRemoteTimeout 远程调用的默认超时
const DefaultRemoteTimeout = 10 * time.Second

// RemoteStore 远程草稿端点，每个操作对应一次HTTP调用
type RemoteStore interface {
	SaveProgress(ctx context.Context, draft models.Draft) (*models.Draft, error)
	LoadProgress(ctx context.Context, formID string) (*models.Draft, error)
	DeleteProgress(ctx context.Context, formID, assessmentID string) error
	ListSaved(ctx context.Context) ([]models.SavedFormSummary, error)
}

// Options 协调器可选项
type Options struct {
	RemoteTimeout time.Duration
	TotalSteps    int
	NewTicker     TickerFactory
	Now           func() time.Time
	Metrics       *utils.APIMetrics
	Logger        *utils.Logger
}

// Coordinator 草稿持久化协调器：优先远程，失败时回退本地
//
// 所有持久化操作通过同一把锁串行执行。Seal 之后该表单的保存一律拒绝，
// 提交或放弃后迟到的自动保存不会让草稿复活。
type Coordinator struct {
	remote RemoteStore
	local  *LocalDraftStore
	opts   Options

	mu sync.Mutex

	stateMu     sync.RWMutex
	lastSavedAt time.Time
	lastSource  string
	stale       bool
	sealed      map[string]struct{}
}

// NewCoordinator 创建协调器；remote 为 nil 时只使用本地存储
func NewCoordinator(remote RemoteStore, local *LocalDraftStore, opts Options) *Coordinator {
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = DefaultRemoteTimeout
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewRealTicker
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	return &Coordinator{
		remote: remote,
		local:  local,
		opts:   opts,
		sealed: make(map[string]struct{}),
	}
}

func (c *Coordinator) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opts.RemoteTimeout)
}

func (c *Coordinator) record(op, source string, ok bool, start time.Time) {
	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordPersistence(op, source, ok, time.Since(start))
	}
}

// Save 保存草稿，任一存储成功即返回 true，从不返回错误
func (c *Coordinator) Save(ctx context.Context, formID string, formData map[string]interface{}, currentStep int, assessmentID string) bool {
	if c.IsSealed(formID) {
		c.opts.Logger.Debug("save refused for sealed form", map[string]interface{}{"form_id": formID})
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// 等锁期间可能已被封存
	if c.IsSealed(formID) {
		return false
	}

	draft := models.Draft{
		FormID:       formID,
		AssessmentID: assessmentID,
		FormData:     copyFormData(formData),
		CurrentStep:  currentStep,
		TotalSteps:   c.opts.TotalSteps,
		SavedAt:      c.opts.Now().UTC(),
	}

	if c.remote != nil {
		start := time.Now()
		rctx, cancel := c.remoteContext(ctx)
		saved, err := c.remote.SaveProgress(rctx, draft)
		cancel()
		c.record("save", models.DraftSourceRemote, err == nil, start)
		if err == nil {
			savedAt := draft.SavedAt
			if saved != nil && !saved.SavedAt.IsZero() {
				savedAt = saved.SavedAt
			}
			c.markSaved(savedAt, models.DraftSourceRemote, false)
			return true
		}
		c.opts.Logger.Warn("remote save failed, falling back to local", map[string]interface{}{
			"form_id": formID,
			"error":   err,
		})
		// 调用方已放弃（如自动保存被取消）时不再写本地
		if ctx.Err() != nil {
			return false
		}
	}

	start := time.Now()
	err := c.local.Save(&draft)
	c.record("save", models.DraftSourceLocal, err == nil, start)
	if err != nil {
		c.opts.Logger.Error("local save failed", map[string]interface{}{
			"form_id": formID,
			"error":   err,
		})
		return false
	}
	c.markSaved(draft.SavedAt, models.DraftSourceLocal, c.remote != nil)
	return true
}

func (c *Coordinator) markSaved(at time.Time, source string, stale bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.lastSavedAt = at
	c.lastSource = source
	c.stale = stale
}

// Load 读取草稿，远程优先，均不存在时返回 nil
func (c *Coordinator) Load(ctx context.Context, formID string) *models.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remote != nil {
		start := time.Now()
		rctx, cancel := c.remoteContext(ctx)
		draft, err := c.remote.LoadProgress(rctx, formID)
		cancel()
		c.record("load", models.DraftSourceRemote, err == nil, start)
		if err == nil && draft != nil {
			if draft.FormData == nil {
				draft.FormData = map[string]interface{}{}
			}
			return draft
		}
		if err != nil && !errors.Is(err, client.ErrNotFound) {
			c.opts.Logger.Warn("remote load failed, trying local", map[string]interface{}{
				"form_id": formID,
				"error":   err,
			})
		}
	}

	start := time.Now()
	draft, err := c.local.Load(formID)
	c.record("load", models.DraftSourceLocal, err == nil, start)
	if err != nil {
		if !errors.Is(err, ErrDraftNotFound) {
			c.opts.Logger.Warn("local load failed", map[string]interface{}{
				"form_id": formID,
				"error":   err,
			})
		}
		return nil
	}
	return draft
}

// Delete 同时删除两个存储中的草稿，任一失败不影响另一个
func (c *Coordinator) Delete(ctx context.Context, formID, assessmentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var g errgroup.Group

	if c.remote != nil {
		g.Go(func() error {
			start := time.Now()
			rctx, cancel := c.remoteContext(ctx)
			defer cancel()
			err := c.remote.DeleteProgress(rctx, formID, assessmentID)
			if errors.Is(err, client.ErrNotFound) {
				err = nil
			}
			c.record("delete", models.DraftSourceRemote, err == nil, start)
			if err != nil {
				c.opts.Logger.Warn("remote delete failed", map[string]interface{}{
					"form_id": formID,
					"error":   err,
				})
			}
			return err
		})
	}

	g.Go(func() error {
		start := time.Now()
		err := c.local.Delete(formID)
		c.record("delete", models.DraftSourceLocal, err == nil, start)
		if err != nil {
			c.opts.Logger.Warn("local delete failed", map[string]interface{}{
				"form_id": formID,
				"error":   err,
			})
		}
		return err
	})

	_ = g.Wait()
}

// ListSaved 列出可恢复的草稿，远程失败时枚举本地记录
func (c *Coordinator) ListSaved(ctx context.Context) []models.SavedFormSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remote != nil {
		start := time.Now()
		rctx, cancel := c.remoteContext(ctx)
		summaries, err := c.remote.ListSaved(rctx)
		cancel()
		c.record("list", models.DraftSourceRemote, err == nil, start)
		if err == nil {
			if summaries == nil {
				summaries = []models.SavedFormSummary{}
			}
			return summaries
		}
		c.opts.Logger.Warn("remote list failed, enumerating local drafts", map[string]interface{}{"error": err})
	}

	start := time.Now()
	summaries, err := c.local.List()
	c.record("list", models.DraftSourceLocal, err == nil, start)
	if err != nil {
		c.opts.Logger.Error("local list failed", map[string]interface{}{"error": err})
		return []models.SavedFormSummary{}
	}
	return summaries
}

// HasLocalDraft 只检查本地存储，不等待网络
func (c *Coordinator) HasLocalDraft(formID string) bool {
	return c.local.Has(formID)
}

// Seal 拒绝该表单之后的所有保存
func (c *Coordinator) Seal(formID string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.sealed[formID] = struct{}{}
}

// IsSealed 表单是否已封存
func (c *Coordinator) IsSealed(formID string) bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	_, ok := c.sealed[formID]
	return ok
}

// LastSavedAt 最近一次成功保存的时间
func (c *Coordinator) LastSavedAt() time.Time {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.lastSavedAt
}

// LastSaveSource 最近一次成功保存写入的存储（remote/local）
func (c *Coordinator) LastSaveSource() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.lastSource
}

// Stale 最近一次保存只落在本地回退存储，服务端副本可能已过期
func (c *Coordinator) Stale() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.stale
}

func copyFormData(formData map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(formData))
	for k, v := range formData {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out[k] = v
	}
	return out
}
