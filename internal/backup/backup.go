// Package backup 数据目录的版本化归档
//
// 归档文件名为 source-version-YYYYMMDDHHMM.ext，存放于 storage.root/backups。
// 创建支持 tar、tar.gz、tar.bz2；zip 仅用于恢复和导入旧归档。
package backup

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// 归档格式
const (
	FormatZip   = "zip"
	FormatBzTar = "bztar"
	FormatGzTar = "gztar"
	FormatTar   = "tar"
)

// DateFormat 文件名中的时间格式（精确到分钟）
const DateFormat = "200601021504"

// SupportedFormats 可恢复的格式
var SupportedFormats = []string{FormatZip, FormatBzTar, FormatGzTar, FormatTar}

// SupportedExtensions 与 SupportedFormats 一一对应
var SupportedExtensions = []string{".zip", ".tar.bz2", ".tar.gz", ".tar"}

var creatableFormats = map[string]bool{FormatBzTar: true, FormatGzTar: true, FormatTar: true}

var (
	ErrUnsupportedExtension = errors.New("备份文件扩展名不受支持")
	ErrInvalidName          = errors.New("备份文件名格式错误")
	ErrUnknownFormat        = errors.New("未知的备份格式")
	ErrFormatNotCreatable   = errors.New("该格式不支持创建备份")
	ErrNotFound             = errors.New("备份不存在")
	ErrInvalidArchive       = errors.New("备份文件不是有效的归档")
	ErrUnsafePath           = errors.New("归档包含非法路径")
	ErrEntryTooLarge        = errors.New("归档条目超出大小限制")
	ErrRemoteDisabled       = errors.New("未启用异地备份")
)

// Backup 一个备份归档
type Backup struct {
	Name    string    `json:"name"`
	Source  string    `json:"source"`
	Version string    `json:"version"`
	Date    time.Time `json:"date"`
	Format  string    `json:"format"`
	Size    int64     `json:"size"`
}

// IsCreatable 格式是否可用于创建备份
func IsCreatable(format string) bool {
	return creatableFormats[format]
}

// Extension 返回格式对应的扩展名
func Extension(format string) (string, error) {
	for i, f := range SupportedFormats {
		if f == format {
			return SupportedExtensions[i], nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// GuessFormat 根据文件名扩展名推断格式
func GuessFormat(name string) (string, error) {
	for i, ext := range SupportedExtensions {
		if strings.HasSuffix(name, ext) {
			return SupportedFormats[i], nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, name)
}

// MakeName 生成备份文件名 source-version-YYYYMMDDHHMM.ext
func MakeName(source, version string, t time.Time, format string) (string, error) {
	ext, err := Extension(format)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{source, version, t.Format(DateFormat)}, "-") + ext, nil
}

// Parse 解析备份文件名
// 以 "-" 分为三段；不满足时兼容旧版的 "_" 分隔
func Parse(name string) (*Backup, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	format, err := GuessFormat(name)
	if err != nil {
		return nil, fmt.Errorf("%w: 需以 %s 结尾", ErrUnsupportedExtension, strings.Join(SupportedExtensions, ", "))
	}
	ext, _ := Extension(format)
	base := strings.TrimSuffix(name, ext)

	parts := strings.Split(base, "-")
	if len(parts) != 3 {
		parts = strings.Split(base, "_")
	}
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	date, err := time.ParseInLocation(DateFormat, parts[2], time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: 日期 %q 无法解析", ErrInvalidName, parts[2])
	}

	return &Backup{
		Name:    name,
		Source:  parts[0],
		Version: parts[1],
		Date:    date,
		Format:  format,
	}, nil
}

// Basename 去除扩展名的文件名
func (b *Backup) Basename() string {
	ext, err := Extension(b.Format)
	if err != nil {
		return b.Name
	}
	return strings.TrimSuffix(b.Name, ext)
}
