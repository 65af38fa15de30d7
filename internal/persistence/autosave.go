// internal/persistence/autosave.go
package persistence

import (
	"context"
	"sync"
	"time"
)

// SetupAutoSave 按间隔调用 Save，每次都从访问器读取最新值。
// 返回的 cancel 停止定时器并等待进行中的保存结束，可重复调用。
func (c *Coordinator) SetupAutoSave(
	formID string,
	getFormData func() map[string]interface{},
	getCurrentStep func() int,
	getAssessmentID func() string,
	interval time.Duration,
) (cancel func()) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ctx, stop := context.WithCancel(context.Background())
	ticker := c.opts.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				if ctx.Err() != nil {
					return
				}
				var assessmentID string
				if getAssessmentID != nil {
					assessmentID = getAssessmentID()
				}
				ok := c.Save(ctx, formID, getFormData(), getCurrentStep(), assessmentID)
				c.opts.Logger.Debug("auto-save tick", map[string]interface{}{
					"form_id": formID,
					"ok":      ok,
				})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-done
		})
	}
}
