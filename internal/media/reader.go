// Package media 媒体元数据文件的读取与导入报告
package media

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var (
	ErrEmptyFile       = errors.New("元数据文件为空")
	ErrUnknownEncoding = errors.New("不支持的文件编码")
)

// 必需与可选列
var (
	RequiredColumns = []string{"title", "summary", "path", "credits"}
	OptionalColumns = []string{"lang", "preview", "kind", "tags"}
)

// candidateDelimiters 分隔符嗅探的候选，顺序即优先级
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// sniffLines 嗅探时读取的行数
const sniffLines = 10

// Row 一行元数据，键为小写去空白的列名
type Row map[string]string

// Get 取列值并去除首尾空白
func (r Row) Get(col string) string { return strings.TrimSpace(r[col]) }

// Table 解析后的元数据表：规范化后的表头与非空数据行
type Table struct {
	Header []string
	Rows   []Row
}

// String 以 "col=value" 形式输出已知列，用于报告
func (r Row) String() string {
	cols := make([]string, 0, len(r))
	for _, c := range append(append([]string{}, RequiredColumns...), OptionalColumns...) {
		if v, ok := r[c]; ok && v != "" {
			cols = append(cols, c+"="+v)
		}
	}
	return "{" + strings.Join(cols, ", ") + "}"
}

// ReadFile 按扩展名读取元数据：.xlsx 读取第一个工作表，其他按 CSV 处理
// encoding 仅对 CSV 生效，为空时按 UTF-8 读取
func ReadFile(path, encoding string) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if encoding != "" && !strings.EqualFold(encoding, "utf-8") && !strings.EqualFold(encoding, "utf8") {
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, encoding)
		}
		r = transform.NewReader(f, enc.NewDecoder())
	}
	return ReadCSV(r)
}

// ReadCSV 读取 CSV，分隔符从 , ; \t | 中自动嗅探
func ReadCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取 CSV 失败: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = SniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析 CSV 失败: %w", err)
	}
	return toTable(records), nil
}

// SniffDelimiter 选出在样本行中列数一致且最多的分隔符，均不满足时返回 ','
func SniffDelimiter(data []byte) rune {
	sample := sampleLines(data, sniffLines)

	best, bestFields := ',', 1
	for _, delim := range candidateDelimiters {
		cr := csv.NewReader(strings.NewReader(sample))
		cr.Comma = delim
		cr.LazyQuotes = true
		records, err := cr.ReadAll()
		if err != nil || len(records) == 0 {
			continue
		}
		if n := len(records[0]); n > bestFields {
			best, bestFields = delim, n
		}
	}
	return best
}

func sampleLines(data []byte, n int) string {
	var b strings.Builder
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for i := 0; i < n && sc.Scan(); i++ {
		b.WriteString(sc.Text())
		b.WriteByte('\n')
	}
	return b.String()
}

// ReadXLSX 读取工作簿第一个工作表，首行为表头
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开 Excel 文件失败: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	return toTable(records), nil
}

// toTable 以首行为表头转换记录，跳过空行
// 短于表头的行缺少的尾部单元格按空串补齐
func toTable(records [][]string) *Table {
	t := &Table{}
	if len(records) == 0 {
		return t
	}
	t.Header = make([]string, len(records[0]))
	for i, h := range records[0] {
		t.Header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	t.Rows = make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(t.Header))
		empty := true
		for i, col := range t.Header {
			if col == "" {
				continue
			}
			if i >= len(rec) {
				row[col] = ""
				continue
			}
			row[col] = rec[i]
			if strings.TrimSpace(rec[i]) != "" {
				empty = false
			}
		}
		if !empty {
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

// MissingColumns 返回表头中缺失的必需列
func (t *Table) MissingColumns() []string {
	present := make(map[string]bool, len(t.Header))
	for _, h := range t.Header {
		present[h] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
