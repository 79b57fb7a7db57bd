package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ideascube/ideascube-sub000/config"
)

// Uploader 异地备份存储（S3 兼容）
type Uploader interface {
	Upload(ctx context.Context, name string, body io.Reader, size int64) error
}

// Manager 管理备份目录中的归档
// 创建、恢复、导入、删除与保留策略互斥执行
type Manager struct {
	mu sync.Mutex

	dir       string
	root      string
	format    string
	source    string
	version   string
	retention config.RetentionConfig

	uploader   Uploader
	logger     *zap.Logger
	now        func() time.Time
	beforeTick func(context.Context) error

	schedMu     sync.Mutex
	schedCancel context.CancelFunc
	schedWg     sync.WaitGroup
}

// Option Manager 可选项
type Option func(*Manager)

// WithUploader 创建或导入后同步到异地存储
func WithUploader(u Uploader) Option {
	return func(m *Manager) { m.uploader = u }
}

// WithScheduledPrepare 定时备份每次归档前执行，出错只记录日志
func WithScheduledPrepare(fn func(context.Context) error) Option {
	return func(m *Manager) { m.beforeTick = fn }
}

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager 创建备份管理器
func NewManager(cfg *config.BackupConfig, storage *config.StorageConfig, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		dir:       absPath(storage.BackupsDir()),
		root:      absPath(storage.BackupedRoot),
		format:    cfg.Format,
		source:    cfg.SourceID,
		version:   cfg.AppVersion,
		retention: cfg.Retention,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// Dir 备份目录
func (m *Manager) Dir() string { return m.dir }

// Root 被备份的数据目录
func (m *Manager) Root() string { return m.root }

// RemoteEnabled 是否配置了异地存储
func (m *Manager) RemoteEnabled() bool { return m.uploader != nil }

// Path 返回备份文件路径，名称非法时返回错误
func (m *Manager) Path(name string) (string, error) {
	if _, err := Parse(name); err != nil {
		return "", err
	}
	return filepath.Join(m.dir, name), nil
}

// Exists 备份文件是否存在
func (m *Manager) Exists(name string) bool {
	p, err := m.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Get 返回已存在的备份
func (m *Manager) Get(name string) (*Backup, error) {
	b, err := Parse(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(filepath.Join(m.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	b.Size = info.Size()
	return b, nil
}

// Open 打开备份文件用于下载，调用方负责关闭
func (m *Manager) Open(name string) (*os.File, *Backup, error) {
	b, err := m.Get(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(filepath.Join(m.dir, name))
	if err != nil {
		return nil, nil, err
	}
	return f, b, nil
}

// List 按名称排序列出备份，无法解析的文件被忽略
func (m *Manager) List(_ context.Context) ([]*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list()
}

func (m *Manager) list() ([]*Backup, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Backup{}, nil
		}
		return nil, fmt.Errorf("读取备份目录失败: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	backups := make([]*Backup, 0, len(names))
	for _, name := range names {
		b, err := Parse(name)
		if err != nil {
			continue
		}
		if info, err := os.Stat(filepath.Join(m.dir, name)); err == nil {
			b.Size = info.Size()
		}
		backups = append(backups, b)
	}
	return backups, nil
}

// Create 归档数据目录，format 为空时使用配置的默认格式
func (m *Manager) Create(ctx context.Context, format string) (*Backup, error) {
	if format == "" {
		format = m.format
	}
	if !IsCreatable(format) {
		return nil, fmt.Errorf("%w: %s", ErrFormatNotCreatable, format)
	}

	m.mu.Lock()
	b, err := m.create(ctx, format)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.pushQuietly(ctx, b)
	return b, nil
}

func (m *Manager) create(ctx context.Context, format string) (*Backup, error) {
	name, err := MakeName(m.source, m.version, m.now(), format)
	if err != nil {
		return nil, err
	}
	b, err := Parse(name)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建备份目录失败: %w", err)
	}
	if _, err := os.Stat(m.root); err != nil {
		return nil, fmt.Errorf("数据目录不可用: %w", err)
	}

	// 先写临时文件再改名，避免列表中出现半成品
	final := filepath.Join(m.dir, name)
	tmp := filepath.Join(m.dir, "."+name+".part")
	if err := writeArchive(ctx, tmp, format, m.root, m.dir, tmp); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("创建归档失败: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("保存归档失败: %w", err)
	}

	if info, err := os.Stat(final); err == nil {
		b.Size = info.Size()
	}
	m.logger.Info("备份已创建", zap.String("name", b.Name), zap.Int64("size", b.Size))
	return b, nil
}

// Restore 将备份解压到数据目录，已有文件被覆盖
func (m *Manager) Restore(ctx context.Context, name string) (*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	path := filepath.Join(m.dir, name)
	if b.Format == FormatZip {
		err = extractZip(ctx, path, m.root)
	} else {
		err = extractTar(ctx, path, m.root)
	}
	if err != nil {
		return nil, fmt.Errorf("恢复备份 %s 失败: %w", name, err)
	}

	m.logger.Info("备份已恢复", zap.String("name", name), zap.String("root", m.root))
	return b, nil
}

// Load 导入上传的备份文件，name 取其文件名部分
// 内容不是有效的 zip/tar 时删除已写入的文件并返回 ErrInvalidArchive
func (m *Manager) Load(ctx context.Context, name string, r io.Reader) (*Backup, error) {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	b, err := Parse(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	err = m.load(ctx, b, r)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.pushQuietly(ctx, b)
	return b, nil
}

func (m *Manager) load(ctx context.Context, b *Backup, r io.Reader) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("创建备份目录失败: %w", err)
	}

	path := filepath.Join(m.dir, b.Name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("写入备份文件失败: %w", err)
	}
	n, err := io.Copy(f, readerWithContext(ctx, r))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("写入备份文件失败: %w", err)
	}

	var valid bool
	if b.Format == FormatZip {
		valid = isZipFile(path)
	} else {
		valid = isTarFile(path)
	}
	if !valid {
		_ = os.Remove(path)
		kind := "tar"
		if b.Format == FormatZip {
			kind = "zip"
		}
		return fmt.Errorf("%w: 不是 %s 文件", ErrInvalidArchive, kind)
	}

	b.Size = n
	m.logger.Info("备份已导入", zap.String("name", b.Name), zap.Int64("size", n))
	return nil
}

// Delete 删除备份，文件不存在时不报错
func (m *Manager) Delete(_ context.Context, name string) error {
	path, err := m.Path(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除备份失败: %w", err)
	}
	return nil
}

// Push 将已有备份上传到异地存储
func (m *Manager) Push(ctx context.Context, name string) error {
	if m.uploader == nil {
		return ErrRemoteDisabled
	}
	f, b, err := m.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := m.uploader.Upload(ctx, b.Name, f, b.Size); err != nil {
		return fmt.Errorf("上传备份 %s 失败: %w", b.Name, err)
	}
	m.logger.Info("备份已上传", zap.String("name", b.Name))
	return nil
}

// pushQuietly 异地上传失败只记录日志，不影响本地结果
func (m *Manager) pushQuietly(ctx context.Context, b *Backup) {
	if m.uploader == nil {
		return
	}
	if err := m.Push(ctx, b.Name); err != nil {
		m.logger.Warn("异地备份上传失败", zap.String("name", b.Name), zap.Error(err))
	}
}

// ctxReader 在每次读取前检查 ctx
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

// IsUserError 错误是否由调用方输入导致（名称、格式、归档内容、不存在的备份）
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrUnsupportedExtension, ErrInvalidName, ErrUnknownFormat, ErrNotFound,
		ErrFormatNotCreatable, ErrInvalidArchive, ErrUnsafePath, ErrEntryTooLarge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
