package backup

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrSchedulerRunning 定时备份已在运行
var ErrSchedulerRunning = errors.New("定时备份已在运行")

// Start 启动定时备份：每隔 interval 创建一次默认格式的备份并执行保留策略
// ctx 取消或调用 Stop 后退出
func (m *Manager) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("定时备份间隔必须大于 0")
	}

	m.schedMu.Lock()
	defer m.schedMu.Unlock()
	if m.schedCancel != nil {
		return ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	m.schedCancel = cancel
	m.schedWg.Add(1)
	go m.runScheduler(ctx, interval)

	m.logger.Info("定时备份已启动", zap.Duration("interval", interval))
	return nil
}

// Stop 停止定时备份并等待进行中的任务结束
func (m *Manager) Stop() {
	m.schedMu.Lock()
	cancel := m.schedCancel
	m.schedCancel = nil
	m.schedMu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.schedWg.Wait()
}

func (m *Manager) runScheduler(ctx context.Context, interval time.Duration) {
	defer m.schedWg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runScheduledOnce(ctx)
		}
	}
}

func (m *Manager) runScheduledOnce(ctx context.Context) {
	if m.beforeTick != nil {
		if err := m.beforeTick(ctx); err != nil {
			m.logger.Warn("定时备份准备失败，继续备份", zap.Error(err))
		}
	}

	b, err := m.Create(ctx, "")
	if err != nil {
		m.logger.Error("定时备份失败", zap.Error(err))
	} else {
		m.logger.Info("定时备份完成", zap.String("name", b.Name))
	}

	if _, err := m.ApplyRetention(ctx); err != nil {
		m.logger.Error("执行备份保留策略失败", zap.Error(err))
	}
}
