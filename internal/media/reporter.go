package media

import (
	"fmt"
	"strings"
	"sync"
)

// Level 报告级别，数值越小越严重
type Level int

const (
	LevelError Level = iota + 1
	LevelWarning
	LevelNotice
)

var levelLabels = map[Level]string{
	LevelError:   "Errors",
	LevelWarning: "Warnings",
	LevelNotice:  "Notices",
}

// group 同一消息下的全部条目，保持首次出现顺序
type group struct {
	msg   string
	items []string
}

// Reporter 收集导入过程中的错误、警告与提示
type Reporter struct {
	mu     sync.Mutex
	groups map[Level][]*group
}

// NewReporter 创建 Reporter
func NewReporter() *Reporter {
	return &Reporter{groups: make(map[Level][]*group)}
}

func (r *Reporter) report(level Level, msg, data string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups[level] {
		if g.msg == msg {
			g.items = append(g.items, data)
			return
		}
	}
	r.groups[level] = append(r.groups[level], &group{msg: msg, items: []string{data}})
}

func (r *Reporter) Error(msg, data string)   { r.report(LevelError, msg, data) }
func (r *Reporter) Warning(msg, data string) { r.report(LevelWarning, msg, data) }
func (r *Reporter) Notice(msg, data string)  { r.report(LevelNotice, msg, data) }

// HasErrors 是否记录过错误
func (r *Reporter) HasErrors() bool { return r.Count(LevelError) > 0 }

// Count 某一级别的条目总数
func (r *Reporter) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, g := range r.groups[level] {
		n += len(g.items)
	}
	return n
}

// Items 某一级别下指定消息的条目
func (r *Reporter) Items(level Level, msg string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups[level] {
		if g.msg == msg {
			return append([]string(nil), g.items...)
		}
	}
	return nil
}

// Render 输出报告；verbosity >= 级别数值时列出每个条目
func (r *Reporter) Render(verbosity int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.WriteString("Reports\n")
	for _, level := range []Level{LevelError, LevelWarning, LevelNotice} {
		groups := r.groups[level]
		if len(groups) == 0 {
			continue
		}
		b.WriteString(levelLabels[level] + "\n")
		for _, g := range groups {
			fmt.Fprintf(&b, "- %s (%d)\n", g.msg, len(g.items))
			if verbosity >= int(level) {
				for _, item := range g.items {
					fmt.Fprintf(&b, "  . %s\n", item)
				}
			}
		}
	}
	return b.String()
}
