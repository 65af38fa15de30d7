// internal/persistence/ticker.go
package persistence

import "time"

// Ticker 自动保存使用的定时器
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory 创建定时器，测试中替换为可手动推进的实现
type TickerFactory func(interval time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// NewRealTicker 基于 time.Ticker 的默认实现
func NewRealTicker(interval time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(interval)}
}
