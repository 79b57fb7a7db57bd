package service

import (
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/ideascube/ideascube-sub000/internal/backup"
	"github.com/ideascube/ideascube-sub000/internal/model"
	"github.com/ideascube/ideascube-sub000/internal/search"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users  map[uint]*model.User
	nextID uint
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uint]*model.User), nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	}
	user.CreatedAt = time.Date(2024, 1, 2, 15, 4, 0, 0, time.UTC)
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uint) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetBySerial(_ context.Context, serial string) (*model.User, error) {
	for _, u := range m.users {
		if u.Serial == serial {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	ids := make([]int, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	var result []model.User
	for i, id := range ids {
		if i < offset || len(result) >= limit {
			continue
		}
		result = append(result, *m.users[uint(id)])
	}
	return result, int64(len(ids)), nil
}

// ── Mock DocumentRepository ──

type mockDocumentRepo struct {
	docs    map[uint]*model.Document
	nextID  uint
	saveErr error
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{docs: make(map[uint]*model.Document), nextID: 1}
}

func (m *mockDocumentRepo) Model() string { return model.ModelDocument }

func (m *mockDocumentRepo) LoadByIDs(_ context.Context, ids []uint) ([]search.Searchable, error) {
	var out []search.Searchable
	for _, id := range ids {
		if d, ok := m.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDocumentRepo) Each(_ context.Context, fn func(search.Searchable) error) error {
	for _, d := range m.docs {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockDocumentRepo) Create(_ context.Context, d *model.Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	d.ID = m.nextID
	m.nextID++
	m.docs[d.ID] = d
	return nil
}

func (m *mockDocumentRepo) GetByID(_ context.Context, id uint) (*model.Document, error) {
	if d, ok := m.docs[id]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDocumentRepo) FindByTitleKind(_ context.Context, title, kind string) (*model.Document, error) {
	for _, d := range m.docs {
		if d.Title == title && d.Kind == kind {
			return d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDocumentRepo) Update(_ context.Context, d *model.Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[d.ID] = d
	return nil
}

func (m *mockDocumentRepo) Delete(_ context.Context, d *model.Document) error {
	delete(m.docs, d.ID)
	return nil
}

// ── Mock ConfigurationRepository ──

type mockConfigurationRepo struct {
	values map[[2]string]*model.Configuration
	err    error
}

func newMockConfigurationRepo() *mockConfigurationRepo {
	return &mockConfigurationRepo{values: make(map[[2]string]*model.Configuration)}
}

func (m *mockConfigurationRepo) Get(_ context.Context, namespace, key string) (*model.Configuration, error) {
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.values[[2]string{namespace, key}]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockConfigurationRepo) Upsert(_ context.Context, cfg *model.Configuration) error {
	if m.err != nil {
		return m.err
	}
	m.values[[2]string{cfg.Namespace, cfg.Key}] = cfg
	return nil
}

func (m *mockConfigurationRepo) Delete(_ context.Context, namespace, key string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.values, [2]string{namespace, key})
	return nil
}

func (m *mockConfigurationRepo) List(_ context.Context) ([]model.Configuration, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Configuration
	for _, c := range m.values {
		out = append(out, *c)
	}
	return out, nil
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	entries map[string]time.Duration
	err     error
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{entries: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.entries[jti] = ttl
	return nil
}

// ── Mock SearchEngine ──

type mockSearchEngine struct {
	results   []search.Result
	err       error
	lastQuery *search.Query
	counts    map[string]int
}

func (m *mockSearchEngine) Models() []string {
	return []string{model.ModelBook, model.ModelContent, model.ModelDocument}
}

func (m *mockSearchEngine) Search(_ context.Context, q search.Query) ([]search.Result, error) {
	m.lastQuery = &q
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockSearchEngine) Reindex(_ context.Context) (map[string]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.counts, nil
}

// ── Mock BackupManager ──

type mockBackupManager struct {
	backups   map[string]*backup.Backup
	remote    bool
	pushed    []string
	retention []string
	createErr error
	pushErr   error
	formats   []string
}

func newMockBackupManager() *mockBackupManager {
	return &mockBackupManager{backups: make(map[string]*backup.Backup)}
}

func (m *mockBackupManager) add(name string) *backup.Backup {
	b, err := backup.Parse(name)
	if err != nil {
		panic(err)
	}
	b.Size = 42
	m.backups[name] = b
	return b
}

func (m *mockBackupManager) RemoteEnabled() bool { return m.remote }

func (m *mockBackupManager) List(_ context.Context) ([]*backup.Backup, error) {
	names := make([]string, 0, len(m.backups))
	for name := range m.backups {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*backup.Backup, 0, len(names))
	for _, name := range names {
		out = append(out, m.backups[name])
	}
	return out, nil
}

func (m *mockBackupManager) Get(name string) (*backup.Backup, error) {
	if _, err := backup.Parse(name); err != nil {
		return nil, err
	}
	if b, ok := m.backups[name]; ok {
		return b, nil
	}
	return nil, backup.ErrNotFound
}

func (m *mockBackupManager) Open(name string) (*os.File, *backup.Backup, error) {
	b, err := m.Get(name)
	if err != nil {
		return nil, nil, err
	}
	return nil, b, nil
}

func (m *mockBackupManager) Create(_ context.Context, format string) (*backup.Backup, error) {
	m.formats = append(m.formats, format)
	if m.createErr != nil {
		return nil, m.createErr
	}
	if format == "" {
		format = backup.FormatBzTar
	}
	name, err := backup.MakeName("ideascube", "0.1.0", time.Date(2024, 1, 2, 15, 4, 0, 0, time.Local), format)
	if err != nil {
		return nil, err
	}
	return m.add(name), nil
}

func (m *mockBackupManager) Restore(_ context.Context, name string) (*backup.Backup, error) {
	return m.Get(name)
}

func (m *mockBackupManager) Load(_ context.Context, name string, r io.Reader) (*backup.Backup, error) {
	if _, err := backup.Parse(name); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, backup.ErrInvalidArchive
	}
	return m.add(name), nil
}

func (m *mockBackupManager) Delete(_ context.Context, name string) error {
	delete(m.backups, name)
	return nil
}

func (m *mockBackupManager) Push(_ context.Context, name string) error {
	if m.pushErr != nil {
		return m.pushErr
	}
	if _, err := m.Get(name); err != nil {
		return err
	}
	m.pushed = append(m.pushed, name)
	return nil
}

func (m *mockBackupManager) ApplyRetention(_ context.Context) ([]string, error) {
	for _, name := range m.retention {
		delete(m.backups, name)
	}
	return m.retention, nil
}

var errMockDB = errors.New("mock: database is locked")
