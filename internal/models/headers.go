package models

import (
	"fmt"
	"net/http"
	"strings"
)

// CliHeaders -H 传入的头部,每项为 "Name: Value"
// 多次传入 Cookie 时按顺序用 "; " 拼接,便于分段粘贴会话Cookie;其余头部后者覆盖前者
type CliHeaders []string

// Parse 解析为 http.Header,第一处格式错误即返回 *ValidationError
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header)
	for i, raw := range ch {
		name, value, err := splitHeader(raw)
		if err != nil {
			return nil, fmt.Errorf("-H 第%d项 %q: %w", i+1, raw, err)
		}
		if prev := result.Get(name); prev != "" && strings.EqualFold(name, "Cookie") && value != "" {
			value = strings.TrimSuffix(prev, ";") + "; " + value
		}
		result.Set(name, value)
	}
	return result, nil
}

func splitHeader(raw string) (string, string, error) {
	name, value, ok := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if !ok {
		return "", "", &ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "缺少冒号",
			Suggestion: `-H "Cookie: sessionid=..."`,
		}
	}
	if name == "" {
		return "", "", &ValidationError{
			Field:      "name",
			Reason:     "头部名称为空",
			Suggestion: `-H "X-IG-App-ID: 936619743392459"`,
		}
	}
	return name, strings.TrimSpace(value), nil
}

// HeaderProvider HTTP头部提供者
// 浏览器页面和静态抓取都通过它获取请求头
type HeaderProvider interface {
	// GetHeaders 返回合并后的头部(默认 < 配置文件 < 命令行)
	GetHeaders() (http.Header, error)
}

// ValidationError 头部验证错误
type ValidationError struct {
	Field      string // "name" 或 "value"
	HeaderName string
	Reason     string
	Suggestion string
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("头部验证失败 [%s]: %s", e.HeaderName, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (建议: %s)", e.Suggestion)
	}
	return msg
}
