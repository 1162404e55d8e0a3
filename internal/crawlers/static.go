package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/ReelScroll/internal/models"
	"github.com/RecoveryAshes/ReelScroll/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// ErrEmptyResponse 目标页面返回空内容
var ErrEmptyResponse = errors.New("响应内容为空")

// StaticFetchConfig 静态抓取配置
type StaticFetchConfig struct {
	Timeout        time.Duration
	UserAgent      string
	HeaderProvider models.HeaderProvider

	LandmarkSelector string // 为空时使用 DefaultLandmarkSelector
}

// StaticFetcher 静态抓取器(使用Colly)
// 单次GET目标页面,返回可供提取器扫描的HTMLPage
type StaticFetcher struct {
	config StaticFetchConfig
	client *http.Client
}

// NewStaticFetcher 创建静态抓取器
func NewStaticFetcher(config StaticFetchConfig) *StaticFetcher {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		},
		Timeout: config.Timeout,
	}
	utils.Debugf("静态抓取器: HTTP超时设置为 %d 秒", int(config.Timeout.Seconds()))

	return &StaticFetcher{config: config, client: client}
}

// Fetch 抓取目标页面
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string) (*HTMLPage, error) {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetClient(f.client)
	c.SetRequestTimeout(f.config.Timeout)
	if f.config.UserAgent != "" {
		c.UserAgent = f.config.UserAgent
	}

	var (
		body     []byte
		finalURL = targetURL
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		if f.config.HeaderProvider != nil {
			headers, err := f.config.HeaderProvider.GetHeaders()
			if err != nil {
				utils.Warnf("获取HTTP头部失败: %v", err)
			} else {
				for name, values := range headers {
					if len(values) > 0 {
						r.Headers.Set(name, values[0])
					}
				}
			}
		}
		utils.Debugf("访问: %s", r.URL.String())
	})

	c.OnResponse(func(r *colly.Response) {
		finalURL = r.Request.URL.String()
		body = r.Body

		if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
			decompressed, err := decompressResponse(encoding, r.Body)
			if err != nil {
				// 解压失败仍然使用原始body
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", finalURL, encoding, err)
			} else {
				body = decompressed
				utils.Debugf("成功解压响应 [%s]: 原始=%d bytes, 解压后=%d bytes", finalURL, len(r.Body), len(body))
			}
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = fmt.Errorf("HTTP %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := c.Visit(targetURL); err != nil {
		return nil, fmt.Errorf("访问目标URL失败: %w", err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("抓取失败 [%s]: %w", targetURL, fetchErr)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("抓取失败 [%s]: %w", targetURL, ErrEmptyResponse)
	}

	utils.Debugf("静态抓取完成: %s (%d bytes)", finalURL, len(body))
	page, err := NewHTMLPage(bytes.NewReader(body), finalURL)
	if err != nil {
		return nil, err
	}
	page.SetLandmark(f.config.LandmarkSelector)
	return page, nil
}

// decompressResponse 根据Content-Encoding解压响应体
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
