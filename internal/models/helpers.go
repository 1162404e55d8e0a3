package models

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ValidateURL 验证URL
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL必须是HTTP或HTTPS协议")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL必须包含主机名")
	}
	return nil
}

// ProfileUsername 从主页URL中取出用户名
// 例如 https://www.instagram.com/bruno.casasdotejo/reels/ -> bruno.casasdotejo
func ProfileUsername(profileURL string) string {
	parsed, err := url.Parse(profileURL)
	if err != nil {
		return ""
	}
	for _, segment := range strings.Split(parsed.Path, "/") {
		if segment != "" {
			return segment
		}
	}
	return ""
}

// ProfileReelsURL 由用户名拼出主页短视频列表URL
// 例如 ("https://www.instagram.com", "@someone") -> https://www.instagram.com/someone/reels/
func ProfileReelsURL(origin, username string) string {
	username = strings.Trim(strings.TrimPrefix(strings.TrimSpace(username), "@"), "/")
	return strings.TrimRight(origin, "/") + "/" + username + "/reels/"
}

// NewRunID 生成运行ID
func NewRunID() string {
	return uuid.New().String()
}
