package crawlers

import "strings"

const (
	// DefaultOrigin 默认站点
	DefaultOrigin = "https://www.instagram.com"

	// DefaultItemMarker 条目路径标记
	DefaultItemMarker = "/reel/"
)

// Normalize 规范化URL: 去掉第一个'?'起的全部内容,保证以'/'结尾
// 幂等: Normalize(Normalize(u)) == Normalize(u)
func Normalize(rawURL string) string {
	clean := rawURL
	if idx := strings.IndexByte(clean, '?'); idx != -1 {
		clean = clean[:idx]
	}
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	return clean
}

// stripFragment 去掉页面链接中的 #片段
// 元素href在进入发现渠道前调用,规范化本身不处理片段
func stripFragment(href string) string {
	if idx := strings.IndexByte(href, '#'); idx != -1 {
		return href[:idx]
	}
	return href
}

// CompleteURL 把脚本文本中匹配到的片段补全为绝对URL
//
//	https://www.instagram.com/reel/ID  -> 原样
//	"/reel/ID                          -> origin + /reel/ID
//	instagram.com/reel/ID              -> https://www.instagram.com/reel/ID
//	ID                                 -> origin + marker + ID
func CompleteURL(match, origin, marker string) string {
	url := strings.Trim(strings.TrimSpace(match), `"'`)
	if url == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return url
	case strings.HasPrefix(url, "//"):
		return "https:" + url
	case strings.HasPrefix(url, "/"):
		return strings.TrimSuffix(origin, "/") + url
	case strings.Contains(url, marker):
		// 缺少协议的主机形式
		if strings.HasPrefix(url, "www.") {
			return "https://" + url
		}
		return "https://www." + url
	default:
		return strings.TrimSuffix(origin, "/") + marker + strings.TrimPrefix(url, "/")
	}
}

// CanonicalKey 去重使用的规范键
func CanonicalKey(rawURL, origin, marker string) string {
	return Normalize(CompleteURL(rawURL, origin, marker))
}

// HasMarker 判断URL是否包含条目路径标记
func HasMarker(rawURL, marker string) bool {
	return marker != "" && strings.Contains(rawURL, marker)
}
