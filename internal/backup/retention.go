package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ApplyRetention 按保留策略清理旧备份，返回被删除的文件名
//
// 按日期从新到旧：最新的 min_count 个始终保留；其余早于 max_age_days 的删除，
// 保留数已达 max_count 时更旧的也删除。两项上限为 0 表示不限制。
func (m *Manager) ApplyRetention(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	backups, err := m.list()
	if err != nil {
		return nil, err
	}
	toDelete := selectExpired(backups, m.retention.MinCount, m.retention.MaxCount, m.retention.MaxAgeDays, m.now())

	deleted := make([]string, 0, len(toDelete))
	for _, b := range toDelete {
		if err := os.Remove(filepath.Join(m.dir, b.Name)); err != nil && !os.IsNotExist(err) {
			return deleted, fmt.Errorf("删除过期备份 %s 失败: %w", b.Name, err)
		}
		deleted = append(deleted, b.Name)
	}

	if len(deleted) > 0 {
		m.logger.Info("已清理过期备份", zap.Strings("names", deleted))
	}
	return deleted, nil
}

// selectExpired 返回需要删除的备份（不修改入参顺序）
func selectExpired(backups []*Backup, minCount, maxCount, maxAgeDays int, now time.Time) []*Backup {
	sorted := make([]*Backup, len(backups))
	copy(sorted, backups)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Name > sorted[j].Name
		}
		return sorted[i].Date.After(sorted[j].Date)
	})

	cutoff := now.AddDate(0, 0, -maxAgeDays)
	kept := 0
	var expired []*Backup
	for i, b := range sorted {
		if i < minCount {
			kept++
			continue
		}
		if maxAgeDays > 0 && b.Date.Before(cutoff) {
			expired = append(expired, b)
			continue
		}
		if maxCount > 0 && kept >= maxCount {
			expired = append(expired, b)
			continue
		}
		kept++
	}
	return expired
}
