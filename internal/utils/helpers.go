package utils

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/RecoveryAshes/ReelScroll/internal/models"
)

var usernamePattern = regexp.MustCompile(`^@?[A-Za-z0-9._]{1,30}$`)

// ReadProfileTargets 读取批量主页列表
//
// 每行可以是主页URL、用户名或 @用户名,用户名会拼成 origin/<user>/reels/。
// 同一主页(主机+用户名,不区分大小写)只保留第一次出现;
// 空行和 # 开头的行被忽略,行尾的 " #备注" 会被去掉。
func ReadProfileTargets(path, origin string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开主页列表失败: %w", err)
	}
	defer file.Close()

	targets := make([]string, 0)
	seen := make(map[string]int)
	scanner := bufio.NewScanner(file)

	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := scanner.Text()
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		target, err := profileTarget(line, origin)
		if err != nil {
			Warnf("⚠️  跳过第%d行 %q: %v", lineNum, line, err)
			continue
		}

		key := profileKey(target)
		if first, dup := seen[key]; dup {
			Debugf("第%d行与第%d行是同一主页,已跳过: %s", lineNum, first, line)
			continue
		}
		seen[key] = lineNum
		targets = append(targets, target)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取主页列表失败: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("主页列表中没有可用的目标: %s", path)
	}

	Infof("📋 从 %s 加载了 %d 个主页", path, len(targets))
	return targets, nil
}

// profileTarget 把一行内容转换为主页URL
func profileTarget(line, origin string) (string, error) {
	if strings.Contains(line, "://") {
		if err := models.ValidateURL(line); err != nil {
			return "", err
		}
		return line, nil
	}
	if !usernamePattern.MatchString(line) {
		return "", fmt.Errorf("既不是URL也不是有效的用户名")
	}
	if origin == "" {
		return "", fmt.Errorf("用户名需要配置 site.origin")
	}
	return models.ProfileReelsURL(origin, line), nil
}

func profileKey(target string) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return target
	}
	user := models.ProfileUsername(target)
	if user == "" {
		return strings.ToLower(parsed.Host + parsed.Path)
	}
	return strings.ToLower(parsed.Host + "/" + user)
}
