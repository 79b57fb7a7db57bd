package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// 可检索模型名，与索引表 model 列一致
const (
	ModelContent  = "Content"
	ModelBook     = "Book"
	ModelDocument = "Document"
)

// BaseModel 通用时间字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// ── 逗号分隔标签 ──

// TagList 以逗号分隔文本存储的标签列表，实现 GORM Scanner/Valuer 接口。
type TagList []string

// ParseTags 解析 "a, b,,c" 形式的标签文本，去空白、去重并保持顺序
func ParseTags(s string) TagList {
	parts := strings.Split(s, ",")
	seen := make(map[string]bool, len(parts))
	tags := make(TagList, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		tags = append(tags, p)
	}
	return tags
}

// Scan 将 "a,b,c" 文本解析为标签列表。
func (t *TagList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = TagList{}
	case []byte:
		*t = ParseTags(string(v))
	case string:
		*t = ParseTags(v)
	default:
		return fmt.Errorf("TagList.Scan: unsupported type %T", src)
	}
	return nil
}

// Value 序列化为逗号分隔文本，空列表存为空串。
func (t TagList) Value() (driver.Value, error) {
	return strings.Join(t, ","), nil
}

// Slugs 返回各标签的 slug（去重）
func (t TagList) Slugs() []string {
	seen := make(map[string]bool, len(t))
	slugs := make([]string, 0, len(t))
	for _, tag := range t {
		s := Slugify(tag)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		slugs = append(slugs, s)
	}
	return slugs
}

// Slugify 转为小写 ASCII slug：去除变音符号，非字母数字折叠为 "-"
// "Économie Sociale" -> "economie-sociale"
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
