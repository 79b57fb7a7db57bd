package search

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeRecord 测试用的可检索记录
type fakeRecord struct {
	model     string
	id        uint
	strings   []string
	public    bool
	lang      string
	kind      string
	tags      []string
	source    string
	indexable bool
}

func (f *fakeRecord) SearchModel() string    { return f.model }
func (f *fakeRecord) SearchID() uint         { return f.id }
func (f *fakeRecord) IndexStrings() []string { return f.strings }
func (f *fakeRecord) IndexPublic() bool      { return f.public }
func (f *fakeRecord) IndexLang() string      { return f.lang }
func (f *fakeRecord) IndexKind() string      { return f.kind }
func (f *fakeRecord) IndexTags() []string    { return f.tags }
func (f *fakeRecord) IndexSource() string    { return f.source }
func (f *fakeRecord) IsIndexable() bool      { return f.indexable }

func newRecord(model string, id uint, text ...string) *fakeRecord {
	return &fakeRecord{model: model, id: id, strings: text, public: true, indexable: true}
}

// fakeSource 内存数据来源
type fakeSource struct {
	model   string
	records []*fakeRecord
}

func (s *fakeSource) Model() string { return s.model }

func (s *fakeSource) LoadByIDs(_ context.Context, ids []uint) ([]Searchable, error) {
	var out []Searchable
	for _, id := range ids {
		for _, r := range s.records {
			if r.id == id {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (s *fakeSource) Each(_ context.Context, fn func(Searchable) error) error {
	for _, r := range s.records {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func setupIndex(t *testing.T) (*Index, *gorm.DB) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "search.sqlite")
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: DriverName, DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	idx := NewIndex(db)
	require.NoError(t, idx.CreateTable(context.Background(), false))
	return idx, db
}

func TestCreateTable_IdempotentAndForce(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	require.NoError(t, idx.Index(ctx, newRecord("Document", 1, "hello")))
	require.NoError(t, idx.CreateTable(ctx, false))

	n, err := idx.Count(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "非强制创建不应清空索引")

	require.NoError(t, idx.CreateTable(ctx, true))
	n, err = idx.Count(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestIndex_UpsertKeepsSingleRow(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	rec := newRecord("Content", 7, "first version")
	require.NoError(t, idx.Index(ctx, rec))
	rec.strings = []string{"second version"}
	require.NoError(t, idx.Index(ctx, rec))

	n, err := idx.Count(ctx, "Content")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ids, err := idx.IDs(ctx, Query{Text: "second", Model: "Content"})
	require.NoError(t, err)
	assert.Equal(t, []uint{7}, ids)

	ids, err = idx.IDs(ctx, Query{Text: "first", Model: "Content"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIndex_SkipsNonIndexable(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	rec := newRecord("Document", 3, "secret")
	rec.indexable = false
	require.NoError(t, idx.Index(ctx, rec))

	n, err := idx.Count(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	// 已索引的记录变为不可索引后，旧行被移除
	rec.indexable = true
	require.NoError(t, idx.Index(ctx, rec))
	rec.indexable = false
	require.NoError(t, idx.Index(ctx, rec))
	n, err = idx.Count(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestDeindex(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	a := newRecord("Book", 1, "moby dick")
	b := newRecord("Book", 2, "moby dick returns")
	require.NoError(t, idx.Index(ctx, a))
	require.NoError(t, idx.Index(ctx, b))
	require.NoError(t, idx.Deindex(ctx, a))

	ids, err := idx.IDs(ctx, Query{Text: "moby", Model: "Book"})
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, ids)
}

func TestIDs_ScopedToModel(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	require.NoError(t, idx.Index(ctx, newRecord("Content", 1, "volcano")))
	require.NoError(t, idx.Index(ctx, newRecord("Book", 1, "volcano")))

	hits, err := idx.Search(ctx, Query{Text: "volcano"})
	require.NoError(t, err)
	assert.Len(t, hits, 2, "不同模型的同号记录不应合并")

	for _, model := range []string{"Content", "Book"} {
		ids, err := idx.IDs(ctx, Query{Text: "volcano", Model: model})
		require.NoError(t, err)
		assert.Equal(t, []uint{1}, ids, model)
	}

	_, err = idx.IDs(ctx, Query{Text: "volcano"})
	assert.ErrorIs(t, err, ErrModelRequired)
}

func TestSearch_OrdersByRelevancy(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	require.NoError(t, idx.Index(ctx, newRecord("Document", 1, "apple cherry")))
	require.NoError(t, idx.Index(ctx, newRecord("Document", 2, "apple apple apple banana")))
	require.NoError(t, idx.Index(ctx, newRecord("Document", 3, "banana only")))

	hits, err := idx.Search(ctx, Query{Text: "apple"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.EqualValues(t, 2, hits[0].ModelID)
	assert.EqualValues(t, 1, hits[1].ModelID)
	assert.Greater(t, hits[0].Relevancy, hits[1].Relevancy)
}

func TestSearch_MatchesOnlyTextColumn(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	rec := newRecord("Document", 1, "plain words")
	rec.lang = "fr"
	rec.kind = "video"
	require.NoError(t, idx.Index(ctx, rec))

	ids, err := idx.IDs(ctx, Query{Text: "video", Model: "Document"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearch_Filters(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	pub := newRecord("Document", 1, "river")
	pub.lang, pub.kind, pub.source = "fr", "video", "pkg-a"
	priv := newRecord("Document", 2, "river")
	priv.public = false
	priv.lang, priv.kind = "en", "pdf"
	book := newRecord("Book", 2, "river")
	book.lang = "fr"

	for _, r := range []*fakeRecord{pub, priv, book} {
		require.NoError(t, idx.Index(ctx, r))
	}

	hits, err := idx.Search(ctx, Query{Text: "river", PublicOnly: true, Model: "Document"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.EqualValues(t, 1, hits[0].ModelID)

	hits, err = idx.Search(ctx, Query{Text: "river", Lang: "fr"})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = idx.Search(ctx, Query{Text: "river", Kind: "pdf"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Document", hits[0].Model)
	assert.EqualValues(t, 2, hits[0].ModelID)

	hits, err = idx.Search(ctx, Query{Source: "pkg-a"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.EqualValues(t, 1, hits[0].ModelID)
}

func TestSearch_TagsAreAnded(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	both := newRecord("Content", 1, "post")
	both.tags = []string{"culture", "music"}
	one := newRecord("Content", 2, "post")
	one.tags = []string{"music"}
	none := newRecord("Content", 3, "post")

	for _, r := range []*fakeRecord{both, one, none} {
		require.NoError(t, idx.Index(ctx, r))
	}

	ids, err := idx.IDs(ctx, Query{Model: "Content", Text: "post", Tags: []string{"music"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 2}, ids)

	ids, err = idx.IDs(ctx, Query{Model: "Content", Text: "post", Tags: []string{"Music", "culture"}})
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids)

	// 标签按整段匹配，不做前缀匹配
	ids, err = idx.IDs(ctx, Query{Model: "Content", Text: "post", Tags: []string{"mus"}})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearch_MalformedExpression(t *testing.T) {
	ctx := context.Background()
	idx, db := setupIndex(t)
	require.NoError(t, idx.Index(ctx, newRecord("Document", 1, "volcano")))

	_, err := idx.Search(ctx, Query{Text: "(volcano"})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	// 其他 SQLITE_ERROR（如缺表）不属于表达式错误
	require.NoError(t, db.Exec("DROP TABLE " + TableName).Error)
	_, err = idx.Search(ctx, Query{Text: "volcano"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidQuery)
}

func TestIsMatchSyntaxError(t *testing.T) {
	assert.False(t, isMatchSyntaxError(errors.New("malformed MATCH expression: [(]")), "非 SQLite 错误")
	assert.False(t, isMatchSyntaxError(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, isMatchSyntaxError(sqlite3.Error{Code: sqlite3.ErrError}), "缺少表达式错误信息")
}

func TestEncoding(t *testing.T) {
	assert.Equal(t, "||", EncodeTags(nil))
	assert.Equal(t, "|a|b-c|", EncodeTags([]string{"a", "b-c"}))
	assert.Equal(t, "a c", JoinText([]string{"a", "", "c"}))
	assert.Equal(t, "%|music|%", TagPattern("MUSIC"))
}

func TestRegistry_ReindexAndSearch(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	docs := &fakeSource{model: "Document", records: []*fakeRecord{
		newRecord("Document", 1, "solar energy basics"),
		newRecord("Document", 2, "solar solar panels"),
	}}
	hidden := newRecord("Content", 5, "solar news")
	hidden.public = false
	skipped := newRecord("Content", 6, "solar draft")
	skipped.indexable = false
	posts := &fakeSource{model: "Content", records: []*fakeRecord{hidden, skipped}}

	reg := NewRegistry(docs, posts)
	assert.Equal(t, []string{"Content", "Document"}, reg.Models())

	counts, err := reg.Reindex(ctx, idx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Document": 2, "Content": 1}, counts)

	results, err := reg.Search(ctx, idx, Query{Text: "solar", PublicOnly: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.EqualValues(t, 2, results[0].Record.SearchID())
	assert.EqualValues(t, 1, results[1].Record.SearchID())

	results, err = reg.Search(ctx, idx, Query{Text: "solar"})
	require.NoError(t, err)
	assert.Len(t, results, 3)

	_, err = reg.Search(ctx, idx, Query{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestEngine(t *testing.T) {
	ctx := context.Background()
	idx, _ := setupIndex(t)

	docs := &fakeSource{model: "Document", records: []*fakeRecord{newRecord("Document", 1, "wind turbine")}}
	engine := NewEngine(idx, docs)
	assert.Equal(t, []string{"Document"}, engine.Models())

	counts, err := engine.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["Document"])

	results, err := engine.Search(ctx, Query{Text: "turbine"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.EqualValues(t, 1, results[0].Record.SearchID())
}
