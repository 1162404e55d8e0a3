package crawlers

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultLandmarkSelector 主内容区域选择器
const DefaultLandmarkSelector = `main, [role="main"], article`

// HTMLPage 基于已解析HTML文档的页面快照(静态抓取或离线文件)
// 没有几何信息,视口渠道始终为空;RequestMore不产生变化
type HTMLPage struct {
	doc      *goquery.Document
	base     *url.URL
	landmark string
}

// NewHTMLPage 从HTML内容创建页面快照
// baseURL用于把相对href解析为绝对URL
func NewHTMLPage(r io.Reader, baseURL string) (*HTMLPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("解析baseURL失败: %w", err)
	}

	return &HTMLPage{
		doc:      doc,
		base:     base,
		landmark: DefaultLandmarkSelector,
	}, nil
}

// SetLandmark 替换主内容区域选择器,空字符串时保持不变
func (p *HTMLPage) SetLandmark(selector string) {
	if selector != "" {
		p.landmark = selector
	}
}

// Elements 按选择器查询元素(文档顺序)
func (p *HTMLPage) Elements(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	elements := make([]Element, 0)

	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		ref, err := url.Parse(stripFragment(strings.TrimSpace(href)))
		if err != nil || (ref.Path == "" && ref.Host == "") {
			return
		}

		position := -1
		if len(s.Nodes) > 0 {
			position = structuralPosition(s.Nodes[0])
		}

		elements = append(elements, Element{
			Href:       p.base.ResolveReference(ref).String(),
			Position:   position,
			InLandmark: s.ParentsFiltered(p.landmark).Length() > 0,
		})
	})

	return elements, nil
}

// Viewport 静态文档没有视口
func (p *HTMLPage) Viewport(ctx context.Context) (Viewport, error) {
	return Viewport{}, nil
}

// ScriptPayloads 返回内联脚本文本
func (p *HTMLPage) ScriptPayloads(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payloads := make([]string, 0)
	p.doc.Find("script:not([src])").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); text != "" {
			payloads = append(payloads, text)
		}
	})
	return payloads, nil
}

// RequestMore 静态文档无法加载更多内容
func (p *HTMLPage) RequestMore(ctx context.Context) error {
	return nil
}

// Wait 可取消的等待
func (p *HTMLPage) Wait(ctx context.Context, d time.Duration) error {
	return sleepContext(ctx, d)
}

// structuralPosition 祖先链上每一层在兄弟元素中的序号之和
func structuralPosition(n *html.Node) int {
	sum := 0
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		index := 0
		for sib := cur.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Type == html.ElementNode {
				index++
			}
		}
		sum += index
	}
	return sum
}
