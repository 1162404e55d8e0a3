package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/ReelScroll/internal/utils"
)

var numberedLine = regexp.MustCompile(`^(\d+)\.\s+(\S+)$`)

// ParseNumbered 解析编号列表
// 接受 "N. url" 行和裸URL行(marker非空时必须包含marker),跳过空行和#注释
// 裸URL编号接在已出现的最大编号之后,不与显式编号冲突
func ParseNumbered(r io.Reader, marker string) ([]Entry, error) {
	entries := make([]Entry, 0)
	scanner := bufio.NewScanner(r)
	lineNum := 0
	maxIndex := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := numberedLine.FindStringSubmatch(line); m != nil {
			index, err := strconv.Atoi(m[1])
			if err != nil || index <= 0 {
				utils.Warnf("跳过无效编号 (行 %d): %s", lineNum, line)
				continue
			}
			entries = append(entries, Entry{Index: index, URL: m[2]})
			maxIndex = max(maxIndex, index)
			continue
		}

		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			if marker != "" && !strings.Contains(line, marker) {
				utils.Debugf("跳过非条目URL (行 %d): %s", lineNum, line)
				continue
			}
			maxIndex++
			entries = append(entries, Entry{Index: maxIndex, URL: line})
			continue
		}

		utils.Debugf("跳过无法识别的行 (行 %d): %s", lineNum, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取编号列表失败: %w", err)
	}
	return entries, nil
}

// ReadStructuredFile 读取结构化文件或纯URL文件
func ReadStructuredFile(path, marker string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	entries, err := ParseNumbered(file, marker)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("文件中没有有效的条目: %s", path)
	}
	return entries, nil
}

// ParseSelection 解析选择表达式,如 "1,3,5" 或 "2-5,8,10-12"
// 空字符串或"all"表示全部;结果升序去重,范围 [1, max]
func ParseSelection(expr string, max int) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || strings.EqualFold(expr, "all") {
		all := make([]int, 0, max)
		for i := 1; i <= max; i++ {
			all = append(all, i)
		}
		return all, nil
	}

	picked := make(map[int]bool)
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		start, end, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		if start < 1 || end > max {
			return nil, fmt.Errorf("选择 %q 超出范围 1-%d", part, max)
		}
		for i := start; i <= end; i++ {
			picked[i] = true
		}
	}

	if len(picked) == 0 {
		return nil, fmt.Errorf("选择表达式为空: %q", expr)
	}

	result := make([]int, 0, len(picked))
	for i := range picked {
		result = append(result, i)
	}
	sort.Ints(result)
	return result, nil
}

// parseRange 解析 "N" 或 "A-B"
func parseRange(part string) (int, int, error) {
	if lo, hi, ok := strings.Cut(part, "-"); ok {
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return 0, 0, fmt.Errorf("无效的范围起点 %q", part)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return 0, 0, fmt.Errorf("无效的范围终点 %q", part)
		}
		if start > end {
			return 0, 0, fmt.Errorf("范围起点大于终点 %q", part)
		}
		return start, end, nil
	}

	n, err := strconv.Atoi(part)
	if err != nil {
		return 0, 0, fmt.Errorf("无效的编号 %q", part)
	}
	return n, n, nil
}

// SelectEntries 按编号挑选条目,保持indices顺序
func SelectEntries(entries []Entry, indices []int) []Entry {
	byIndex := make(map[int]Entry, len(entries))
	for _, e := range entries {
		if _, exists := byIndex[e.Index]; !exists {
			byIndex[e.Index] = e
		}
	}

	selected := make([]Entry, 0, len(indices))
	for _, i := range indices {
		if e, ok := byIndex[i]; ok {
			selected = append(selected, e)
		}
	}
	return selected
}

// MaxIndex 条目中的最大编号
func MaxIndex(entries []Entry) int {
	max := 0
	for _, e := range entries {
		if e.Index > max {
			max = e.Index
		}
	}
	return max
}
