package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// WriteCSV 以 index,url 两列写出条目
func WriteCSV(w io.Writer, entries []Entry) error {
	if err := gocsv.Marshal(&entries, w); err != nil {
		return fmt.Errorf("导出CSV失败: %w", err)
	}
	return nil
}

// ReadCSV 读取 WriteCSV 写出的条目
func ReadCSV(r io.Reader) ([]Entry, error) {
	entries := make([]Entry, 0)
	if err := gocsv.Unmarshal(r, &entries); err != nil {
		return nil, fmt.Errorf("解析CSV失败: %w", err)
	}
	return entries, nil
}
