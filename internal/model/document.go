package model

import (
	"mime"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/ideascube/ideascube-sub000/internal/search"
)

// Document 类型
const (
	KindImage = "image"
	KindVideo = "video"
	KindPDF   = "pdf"
	KindText  = "text"
	KindAudio = "audio"
	KindOther = "other"
)

// DocumentKinds 合法的媒体类型
var DocumentKinds = []string{KindImage, KindVideo, KindPDF, KindText, KindAudio, KindOther}

// Document 媒体中心文件，对应表 documents
type Document struct {
	ID        uint    `gorm:"primaryKey"                            json:"id"`
	Title     string  `gorm:"type:varchar(100);not null"            json:"title"`
	Summary   string  `gorm:"type:text;not null;default:''"         json:"summary"`
	Credits   string  `gorm:"type:varchar(300);not null;default:''" json:"credits"`
	Lang      string  `gorm:"type:varchar(10);not null;default:''"  json:"lang"`
	Kind      string  `gorm:"type:varchar(5);not null;default:'other'" json:"kind"`
	Original  string  `gorm:"type:varchar(255);not null"            json:"original"` // 相对 media_root 的路径
	Preview   string  `gorm:"type:varchar(255);not null;default:''" json:"preview"`
	Tags      TagList `gorm:"type:text;not null;default:''"         json:"tags"`
	PackageID string  `gorm:"type:varchar(100);not null;default:''" json:"package_id"`
	BaseModel
}

// TableName 指定表名
func (Document) TableName() string { return "documents" }

// IsValidKind 是否为合法的媒体类型
func IsValidKind(kind string) bool {
	for _, k := range DocumentKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// kindByExt 常见扩展名，不依赖系统 mime.types
var kindByExt = map[string]string{
	".pdf": KindPDF,
	".jpg": KindImage, ".jpeg": KindImage, ".png": KindImage, ".gif": KindImage, ".svg": KindImage, ".webp": KindImage,
	".mp4": KindVideo, ".webm": KindVideo, ".ogv": KindVideo, ".avi": KindVideo, ".mkv": KindVideo, ".mov": KindVideo,
	".mp3": KindAudio, ".ogg": KindAudio, ".oga": KindAudio, ".wav": KindAudio, ".flac": KindAudio, ".m4a": KindAudio,
	".txt": KindText, ".md": KindText, ".html": KindText, ".htm": KindText, ".csv": KindText,
}

// GuessKind 根据文件名推断媒体类型，无法识别时返回 other
func GuessKind(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if kind, ok := kindByExt[ext]; ok {
		return kind
	}
	ctype := mime.TypeByExtension(ext)
	if ctype == "" {
		return KindOther
	}
	return KindFromContentType(ctype)
}

// KindFromContentType 根据 MIME 类型推断媒体类型
func KindFromContentType(ctype string) string {
	if i := strings.IndexByte(ctype, ';'); i >= 0 {
		ctype = ctype[:i]
	}
	ctype = strings.TrimSpace(strings.ToLower(ctype))
	if ctype == "application/pdf" {
		return KindPDF
	}
	major, _, _ := strings.Cut(ctype, "/")
	switch major {
	case KindImage, KindVideo, KindAudio, KindText:
		return major
	}
	return KindOther
}

// ── search.Searchable ──

func (d *Document) SearchModel() string { return ModelDocument }
func (d *Document) SearchID() uint      { return d.ID }

func (d *Document) IndexStrings() []string {
	return append([]string{d.Title, d.Summary, d.Credits}, d.Tags...)
}

func (d *Document) IndexPublic() bool   { return true }
func (d *Document) IndexLang() string   { return d.Lang }
func (d *Document) IndexKind() string   { return d.Kind }
func (d *Document) IndexTags() []string { return d.Tags.Slugs() }
func (d *Document) IndexSource() string { return d.PackageID }
func (d *Document) IsIndexable() bool   { return true }

// BeforeSave 未指定或无效的类型按原始文件名推断
func (d *Document) BeforeSave(_ *gorm.DB) error {
	if d.Kind == "" || d.Kind == KindOther || !IsValidKind(d.Kind) {
		d.Kind = GuessKind(d.Original)
	}
	return nil
}

func (d *Document) AfterSave(tx *gorm.DB) error   { return search.IndexWith(tx, d) }
func (d *Document) AfterDelete(tx *gorm.DB) error { return search.DeindexWith(tx, d) }
