package service

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ideascube/ideascube-sub000/internal/backup"
	"github.com/ideascube/ideascube-sub000/internal/dto"
)

// BackupService 备份业务接口
type BackupService interface {
	List(ctx context.Context) ([]dto.BackupResponse, error)
	Create(ctx context.Context, req *dto.CreateBackupRequest) (*dto.BackupResponse, error)
	Restore(ctx context.Context, name string) (*dto.BackupResponse, error)
	Upload(ctx context.Context, name string, r io.Reader) (*dto.BackupResponse, error)
	Open(name string) (*os.File, *dto.BackupResponse, error)
	Delete(ctx context.Context, name string) error
	Push(ctx context.Context, name string) error
	ApplyRetention(ctx context.Context) (*dto.RetentionResponse, error)
}

type backupService struct {
	manager    BackupManager
	checkpoint func(context.Context) error
	logger     *zap.Logger
}

// NewBackupService 创建 BackupService 实例
// checkpoint 在归档前将数据库 WAL 合并进主文件，可为 nil
func NewBackupService(manager BackupManager, checkpoint func(context.Context) error, logger *zap.Logger) BackupService {
	return &backupService{manager: manager, checkpoint: checkpoint, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *backupService) List(ctx context.Context) ([]dto.BackupResponse, error) {
	backups, err := s.manager.List(ctx)
	if err != nil {
		s.logger.Error("列出备份失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.BackupResponse, 0, len(backups))
	for _, b := range backups {
		result = append(result, toBackupResponse(b))
	}
	return result, nil
}

// ────────────────────── Create ──────────────────────

// Create 创建备份并按保留策略清理旧备份，清理失败只记录日志
func (s *backupService) Create(ctx context.Context, req *dto.CreateBackupRequest) (*dto.BackupResponse, error) {
	if s.checkpoint != nil {
		if err := s.checkpoint(ctx); err != nil {
			s.logger.Warn("数据库 checkpoint 失败，继续备份", zap.Error(err))
		}
	}

	b, err := s.manager.Create(ctx, req.Format)
	if err != nil {
		if !backup.IsUserError(err) {
			s.logger.Error("创建备份失败", zap.String("format", req.Format), zap.Error(err))
		}
		return nil, err
	}

	if deleted, err := s.manager.ApplyRetention(ctx); err != nil {
		s.logger.Warn("备份保留策略执行失败", zap.Error(err))
	} else if len(deleted) > 0 {
		s.logger.Info("已清理过期备份", zap.Strings("deleted", deleted))
	}

	resp := toBackupResponse(b)
	return &resp, nil
}

// ────────────────────── Restore ──────────────────────

func (s *backupService) Restore(ctx context.Context, name string) (*dto.BackupResponse, error) {
	b, err := s.manager.Restore(ctx, name)
	if err != nil {
		if !backup.IsUserError(err) {
			s.logger.Error("恢复备份失败", zap.String("name", name), zap.Error(err))
		}
		return nil, err
	}
	s.logger.Warn("备份已恢复，需重启服务以加载恢复后的数据库", zap.String("name", name))
	resp := toBackupResponse(b)
	return &resp, nil
}

// ────────────────────── Upload ──────────────────────

func (s *backupService) Upload(ctx context.Context, name string, r io.Reader) (*dto.BackupResponse, error) {
	b, err := s.manager.Load(ctx, name, r)
	if err != nil {
		if !backup.IsUserError(err) {
			s.logger.Error("上传备份失败", zap.String("name", name), zap.Error(err))
		}
		return nil, err
	}
	resp := toBackupResponse(b)
	return &resp, nil
}

// ────────────────────── Open ──────────────────────

// Open 打开备份文件供下载，调用方负责关闭
func (s *backupService) Open(name string) (*os.File, *dto.BackupResponse, error) {
	f, b, err := s.manager.Open(name)
	if err != nil {
		return nil, nil, err
	}
	resp := toBackupResponse(b)
	return f, &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *backupService) Delete(ctx context.Context, name string) error {
	if _, err := s.manager.Get(name); err != nil {
		return err
	}
	if err := s.manager.Delete(ctx, name); err != nil {
		s.logger.Error("删除备份失败", zap.String("name", name), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Push ──────────────────────

func (s *backupService) Push(ctx context.Context, name string) error {
	if !s.manager.RemoteEnabled() {
		return backup.ErrRemoteDisabled
	}
	if err := s.manager.Push(ctx, name); err != nil {
		if !backup.IsUserError(err) {
			s.logger.Error("推送备份失败", zap.String("name", name), zap.Error(err))
		}
		return err
	}
	return nil
}

// ────────────────────── ApplyRetention ──────────────────────

func (s *backupService) ApplyRetention(ctx context.Context) (*dto.RetentionResponse, error) {
	deleted, err := s.manager.ApplyRetention(ctx)
	if err != nil {
		s.logger.Error("备份保留策略执行失败", zap.Error(err))
		return nil, err
	}
	if deleted == nil {
		deleted = []string{}
	}
	return &dto.RetentionResponse{Deleted: deleted}, nil
}

// ── 辅助函数 ──

func toBackupResponse(b *backup.Backup) dto.BackupResponse {
	return dto.BackupResponse{
		Name:    b.Name,
		Source:  b.Source,
		Version: b.Version,
		Date:    b.Date.Format("2006-01-02 15:04"),
		Format:  b.Format,
		Size:    b.Size,
	}
}
