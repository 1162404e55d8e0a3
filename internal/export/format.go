package export

import (
	"fmt"
	"strings"
	"time"
)

// 结构化文件头部
const (
	titleFormat     = "# Instagram Reels URLs for @%s"
	formatLine      = "# Format: number. URL"
	generatedFormat = "# Generated: %s"
	totalFormat     = "# Total URLs: %d"

	// GeneratedLayout 头部中的时间格式
	GeneratedLayout = "2006-01-02 15:04:05"

	// FilenameLayout 默认文件名中的时间戳格式
	FilenameLayout = "20060102_150405"
)

// Entry 编号条目
type Entry struct {
	Index int    `json:"index" csv:"index"` // 从1开始
	URL   string `json:"url" csv:"url"`
}

// String 返回 "N. url"
func (e Entry) String() string {
	return fmt.Sprintf("%d. %s", e.Index, e.URL)
}

// Entries 把URL列表编号,从1开始
func Entries(urls []string) []Entry {
	entries := make([]Entry, 0, len(urls))
	for i, u := range urls {
		entries = append(entries, Entry{Index: i + 1, URL: u})
	}
	return entries
}

// FormatNumbered 生成 "1. url" 每行一条的文本,不带结尾换行
func FormatNumbered(urls []string) string {
	lines := make([]string, 0, len(urls))
	for _, e := range Entries(urls) {
		lines = append(lines, e.String())
	}
	return strings.Join(lines, "\n")
}

// FormatStructured 生成带注释头部的结构化文件内容
func FormatStructured(username string, urls []string, generated time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, titleFormat+"\n", username)
	b.WriteString(formatLine + "\n")
	fmt.Fprintf(&b, generatedFormat+"\n", generated.Format(GeneratedLayout))
	fmt.Fprintf(&b, totalFormat+"\n", len(urls))
	b.WriteString("\n")
	for _, e := range Entries(urls) {
		b.WriteString(e.String())
		b.WriteString("\n")
	}
	return b.String()
}

// StructuredFilename 默认文件名 {username}_structured_urls_{timestamp}.txt
func StructuredFilename(username string, t time.Time) string {
	if username == "" {
		username = "unknown"
	}
	return fmt.Sprintf("%s_structured_urls_%s.txt", username, t.Format(FilenameLayout))
}
