package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ideascube/ideascube-sub000/internal/configuration"
	"github.com/ideascube/ideascube-sub000/internal/dto"
	"github.com/ideascube/ideascube-sub000/internal/model"
	"github.com/ideascube/ideascube-sub000/internal/repository"
)

// ConfigService 服务器配置业务接口
type ConfigService interface {
	List(ctx context.Context) ([]dto.ConfigNamespaceResponse, error)
	Get(ctx context.Context, namespace, key string) (*dto.ConfigValueResponse, error)
	Value(ctx context.Context, namespace, key string) (interface{}, error)
	Set(ctx context.Context, namespace, key string, raw json.RawMessage, actorID *uint) (*dto.ConfigValueResponse, error)
	Reset(ctx context.Context, namespace, key string) error
	Describe(namespace, key string) (*configuration.Option, error)
}

type configService struct {
	repo     *repository.Repository
	registry *configuration.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// NewConfigService 创建 ConfigService 实例
func NewConfigService(repo *repository.Repository, registry *configuration.Registry, logger *zap.Logger) ConfigService {
	return &configService{repo: repo, registry: registry, logger: logger, now: time.Now}
}

// ────────────────────── List ──────────────────────

func (s *configService) List(ctx context.Context) ([]dto.ConfigNamespaceResponse, error) {
	stored, err := s.repo.Configuration.List(ctx)
	if err != nil {
		s.logger.Error("列出配置失败", zap.Error(err))
		return nil, err
	}
	byKey := make(map[[2]string]*model.Configuration, len(stored))
	for i := range stored {
		c := &stored[i]
		byKey[[2]string{c.Namespace, c.Key}] = c
	}

	namespaces := s.registry.Namespaces()
	result := make([]dto.ConfigNamespaceResponse, 0, len(namespaces))
	for _, ns := range namespaces {
		keys, _ := s.registry.Keys(ns)
		item := dto.ConfigNamespaceResponse{Namespace: ns, Options: make([]dto.ConfigValueResponse, 0, len(keys))}
		for _, key := range keys {
			opt, _ := s.registry.Describe(ns, key)
			item.Options = append(item.Options, s.toValueResponse(opt, byKey[[2]string{ns, key}]))
		}
		result = append(result, item)
	}
	return result, nil
}

// ────────────────────── Get ──────────────────────

func (s *configService) Get(ctx context.Context, namespace, key string) (*dto.ConfigValueResponse, error) {
	opt, err := s.registry.Describe(namespace, key)
	if err != nil {
		return nil, err
	}
	stored, err := s.load(ctx, namespace, key)
	if err != nil {
		return nil, err
	}
	resp := s.toValueResponse(opt, stored)
	return &resp, nil
}

// Value 返回配置值，未保存时为默认值
func (s *configService) Value(ctx context.Context, namespace, key string) (interface{}, error) {
	resp, err := s.Get(ctx, namespace, key)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// ────────────────────── Set ──────────────────────

// Set 校验类型后写入，记录操作人与时间
func (s *configService) Set(ctx context.Context, namespace, key string, raw json.RawMessage, actorID *uint) (*dto.ConfigValueResponse, error) {
	opt, err := s.registry.Describe(namespace, key)
	if err != nil {
		return nil, err
	}
	value, err := s.registry.Decode(namespace, key, raw)
	if err != nil {
		return nil, err
	}
	encoded, err := s.registry.Encode(namespace, key, value)
	if err != nil {
		return nil, err
	}

	cfg := &model.Configuration{
		Namespace: namespace,
		Key:       key,
		Value:     string(encoded),
		ActorID:   actorID,
		Date:      s.now(),
	}
	if err := s.repo.Configuration.Upsert(ctx, cfg); err != nil {
		s.logger.Error("保存配置失败", zap.String("namespace", namespace), zap.String("key", key), zap.Error(err))
		return nil, err
	}

	resp := s.toValueResponse(opt, cfg)
	return &resp, nil
}

// ────────────────────── Reset ──────────────────────

// Reset 删除已保存的值，恢复为默认值
func (s *configService) Reset(ctx context.Context, namespace, key string) error {
	if _, err := s.registry.Describe(namespace, key); err != nil {
		return err
	}
	if err := s.repo.Configuration.Delete(ctx, namespace, key); err != nil {
		s.logger.Error("重置配置失败", zap.String("namespace", namespace), zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Describe ──────────────────────

func (s *configService) Describe(namespace, key string) (*configuration.Option, error) {
	opt, err := s.registry.Describe(namespace, key)
	if err != nil {
		return nil, err
	}
	return &opt, nil
}

// ── 辅助函数 ──

func (s *configService) load(ctx context.Context, namespace, key string) (*model.Configuration, error) {
	stored, err := s.repo.Configuration.Get(ctx, namespace, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询配置失败", zap.String("namespace", namespace), zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return stored, nil
}

// toValueResponse stored 为 nil 或无法解码时使用默认值
func (s *configService) toValueResponse(opt configuration.Option, stored *model.Configuration) dto.ConfigValueResponse {
	resp := dto.ConfigValueResponse{
		Namespace:  opt.Namespace,
		Key:        opt.Key,
		Value:      opt.Default,
		Default:    opt.Default,
		IsDefault:  true,
		Summary:    opt.Summary,
		PrettyType: opt.PrettyType,
	}
	if stored == nil {
		return resp
	}

	value, err := s.registry.Decode(opt.Namespace, opt.Key, []byte(stored.Value))
	if err != nil {
		s.logger.Warn("已保存的配置值无效，使用默认值",
			zap.String("namespace", opt.Namespace), zap.String("key", opt.Key), zap.Error(err))
		return resp
	}
	resp.Value = value
	resp.IsDefault = false
	resp.ActorID = stored.ActorID
	resp.Date = stored.Date.Format(time.RFC3339)
	return resp
}
