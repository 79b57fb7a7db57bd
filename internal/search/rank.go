package search

import "encoding/binary"

// MatchInfo FTS4 matchinfo(idx) 默认 "pcx" 格式的解码结果
//
// 缓冲区为本机字节序的 uint32 序列：
//
//	p c  x y z  x y z ...
//
// p 为查询短语数，c 为列数，随后每个 (短语, 列) 组合占一组三元组：
//   - x 当前行该列中短语的命中次数
//   - y 全表该列中短语的命中总次数
//   - z 该列中包含该短语的行数
type MatchInfo struct {
	Phrases int
	Columns int
	Words   []uint32 // 三元组部分（不含 p、c）
}

// ParseMatchInfo 解码 matchinfo 缓冲区，不足 4 字节的尾部被忽略
func ParseMatchInfo(buf []byte) MatchInfo {
	n := len(buf) / 4
	words := make([]uint32, n)
	for i := 0; i < n; i++ {
		words[i] = binary.NativeEndian.Uint32(buf[i*4:])
	}

	var mi MatchInfo
	if n >= 1 {
		mi.Phrases = int(words[0])
	}
	if n >= 2 {
		mi.Columns = int(words[1])
		mi.Words = words[2:]
	}
	return mi
}

// Hits 返回指定短语在指定列的 (x, y)；越界时 ok=false
func (m MatchInfo) Hits(phrase, column int) (x, y uint32, ok bool) {
	if phrase < 0 || column < 0 || phrase >= m.Phrases || column >= m.Columns {
		return 0, 0, false
	}
	idx := (phrase*m.Columns + column) * 3
	if idx < 0 || idx+1 >= len(m.Words) {
		return 0, 0, false
	}
	return m.Words[idx], m.Words[idx+1], true
}

// Rank 根据 matchinfo 计算相关度，注册为 SQL 函数 rank(matchinfo(idx))
//
// 每个短语在每列命中 x 次时累加 x / y：行内命中越多得分越高，
// 全表出现越普遍得分越低。缓冲区为空或被截断时只统计完整的三元组，列数为 0 时得分为 0。
func Rank(buf []byte) float64 {
	score := 0.0
	if len(buf) == 0 {
		return score
	}

	mi := ParseMatchInfo(buf)
	if mi.Columns == 0 {
		return score
	}
	for p := 0; p < mi.Phrases; p++ {
		for c := 0; c < mi.Columns; c++ {
			x, y, ok := mi.Hits(p, c)
			if !ok {
				return score
			}
			if x > 0 && y > 0 {
				score += float64(x) / float64(y)
			}
		}
	}
	return score
}
