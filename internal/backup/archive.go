package backup

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
)

// maxEntrySize 单个归档条目解压后的最大字节数
const maxEntrySize int64 = 8 << 30

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
)

// ── 写入 ──

// archiveWriters 归档写入链：file -> 压缩 -> tar
type archiveWriters struct {
	tw      *tar.Writer
	closers []io.Closer
}

// Close 逆序关闭写入链，返回第一个错误
func (aw *archiveWriters) Close() error {
	var firstErr error
	for i := len(aw.closers) - 1; i >= 0; i-- {
		if err := aw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func newArchiveWriters(path, format string) (*archiveWriters, error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return nil, fmt.Errorf("创建归档文件失败: %w", err)
	}
	aw := &archiveWriters{closers: []io.Closer{out}}

	var dest io.Writer = out
	switch format {
	case FormatGzTar:
		gz := gzip.NewWriter(out)
		aw.closers = append(aw.closers, gz)
		dest = gz
	case FormatBzTar:
		bz, err := bzip2.NewWriter(out, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("创建 bzip2 写入器失败: %w", err)
		}
		aw.closers = append(aw.closers, bz)
		dest = bz
	case FormatTar:
	default:
		_ = out.Close()
		return nil, fmt.Errorf("%w: %s", ErrFormatNotCreatable, format)
	}

	aw.tw = tar.NewWriter(dest)
	aw.closers = append(aw.closers, aw.tw)
	return aw, nil
}

// writeArchive 将 root 目录以 "./" 为前缀递归写入归档
// 符号链接与非普通文件不写入；skip 下的路径（如位于 root 内的备份目录）被排除
func writeArchive(ctx context.Context, path, format, root string, skip ...string) (err error) {
	aw, err := newArchiveWriters(path, format)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := aw.Close(); err == nil {
			err = closeErr
		}
	}()

	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		if s != "" {
			skipped[filepath.Clean(s)] = true
		}
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if skipped[filepath.Clean(p)] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		return addEntry(aw.tw, p, archiveName(rel, d.IsDir()), d)
	})
}

// archiveName 归档内名称："./"、"./a/"、"./a/b.txt"
func archiveName(rel string, dir bool) string {
	name := "./"
	if rel != "." {
		name += filepath.ToSlash(rel)
		if dir {
			name += "/"
		}
	}
	return name
}

func addEntry(tw *tar.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("生成归档头失败 %s: %w", path, err)
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("写入归档头失败 %s: %w", path, err)
	}
	if d.IsDir() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.CopyN(tw, f, hdr.Size); err != nil {
		return fmt.Errorf("写入归档内容失败 %s: %w", path, err)
	}
	return nil
}

// ── 读取 ──

// openTarReader 打开 tar 归档，按文件头自动识别 gzip/bzip2 压缩
// 调用方负责逆序关闭返回的 closers
func openTarReader(path string) (*tar.Reader, []io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	closers := []io.Closer{f}

	br := bufio.NewReader(f)
	head, _ := br.Peek(3)

	var r io.Reader = br
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		closers = append(closers, gz)
		r = gz
	case bytes.HasPrefix(head, bzip2Magic):
		bz, err := bzip2.NewReader(br, nil)
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		closers = append(closers, bz)
		r = bz
	}
	return tar.NewReader(r), closers, nil
}

func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i].Close()
	}
}

// extractTar 将 tar 归档解压到 root
func extractTar(ctx context.Context, path, root string) error {
	tr, closers, err := openTarReader(path)
	if err != nil {
		return err
	}
	defer closeAll(closers)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		// 非本地路径交由 validateAndBuildDestPath 统一拒绝
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("读取归档条目失败: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		dest, err := validateAndBuildDestPath(root, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if dest == filepath.Clean(root) {
				return fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
			}
			if err := extractFile(tr, dest, hdr.Size, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("解压 %s 失败: %w", hdr.Name, err)
			}
		default:
			// 链接与设备文件不还原
		}
	}
}

// extractZip 将 zip 归档解压到 root
func extractZip(ctx context.Context, path, root string) error {
	zr, err := zip.OpenReader(path)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		dest, err := validateAndBuildDestPath(root, f.Name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		if mode.IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}
		if !mode.IsRegular() || dest == filepath.Clean(root) {
			continue
		}

		if err := extractZipEntry(f, dest); err != nil {
			return fmt.Errorf("解压 %s 失败: %w", f.Name, err)
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, dest string) error {
	if f.UncompressedSize64 > uint64(maxEntrySize) {
		return fmt.Errorf("%w: %d bytes", ErrEntryTooLarge, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return extractFile(rc, dest, int64(f.UncompressedSize64), f.Mode().Perm())
}

// validateAndBuildDestPath 拼接解压目标路径，拒绝逃逸出 root 的条目
func validateAndBuildDestPath(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	cleanRoot := filepath.Clean(root)
	dest := filepath.Join(cleanRoot, filepath.FromSlash(name))
	if dest != cleanRoot && !strings.HasPrefix(dest, cleanRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return dest, nil
}

// extractFile 写出单个文件，实际读取量不超过 maxEntrySize
func extractFile(r io.Reader, dest string, size int64, perm fs.FileMode) error {
	if size > maxEntrySize {
		return fmt.Errorf("%w: %d bytes", ErrEntryTooLarge, size)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o600)
	if err != nil {
		return err
	}

	n, err := io.Copy(out, io.LimitReader(r, maxEntrySize+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if n > maxEntrySize {
		return fmt.Errorf("%w: 超过 %d bytes", ErrEntryTooLarge, maxEntrySize)
	}
	return nil
}

// ── 校验 ──

// isZipFile 文件能否作为 zip 打开
func isZipFile(path string) bool {
	zr, err := zip.OpenReader(path)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return false
	}
	_ = zr.Close()
	return true
}

// isTarFile 文件非空且首个 tar 头可读（支持 gzip/bzip2 压缩）
func isTarFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return false
	}
	tr, closers, err := openTarReader(path)
	if err != nil {
		return false
	}
	defer closeAll(closers)

	_, err = tr.Next()
	return err == nil || errors.Is(err, io.EOF) || errors.Is(err, tar.ErrInsecurePath)
}
