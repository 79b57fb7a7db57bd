package media

import (
	"strings"
	"unicode"
)

// TitleMaxLength 标题最大长度（字符数）
const TitleMaxLength = 100

const ellipsis = "…"

// SmartTruncate 超出 length 个字符时在单词边界截断并追加省略号
// 截断后末尾的标点会被移除
func SmartTruncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}

	cut := string(runes[:length])
	if i := strings.LastIndex(cut, " "); i >= 0 {
		cut = cut[:i]
	} else {
		r := []rune(cut)
		cut = string(r[:len(r)-1])
	}
	cut = strings.TrimRightFunc(cut, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return cut + ellipsis
}
