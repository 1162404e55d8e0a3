package crawlers

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/RecoveryAshes/ReelScroll/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ExtractorOptions 提取器参数
type ExtractorOptions struct {
	Origin       string // 补全相对URL使用的站点, 如 https://www.instagram.com
	ItemMarker   string // 条目路径标记, 如 /reel/
	TargetCount  int    // 达到该数量后不再查询脚本渠道
	ParallelScan bool   // 并行扫描各渠道
}

// Extractor 候选项提取器
// 职责: 对一个页面快照按优先级扫描全部渠道,去重后返回候选项
// 只读,不触发任何页面变更
type Extractor struct {
	opts     ExtractorOptions
	selector string
	patterns []scriptPattern
	channels []channel
}

// hit 渠道原始命中
type hit struct {
	url      string
	position int // -1 表示未知
}

// channel 一个独立的发现渠道
type channel interface {
	source() models.SourceChannel
	scan(ctx context.Context, view *passView) ([]hit, error)
}

// NewExtractor 创建提取器实例
func NewExtractor(opts ExtractorOptions) *Extractor {
	if opts.Origin == "" {
		opts.Origin = DefaultOrigin
	}
	if opts.ItemMarker == "" {
		opts.ItemMarker = DefaultItemMarker
	}

	e := &Extractor{
		opts:     opts,
		selector: fmt.Sprintf(`a[href*="%s"]`, opts.ItemMarker),
		patterns: buildScriptPatterns(opts.Origin, opts.ItemMarker),
	}
	e.channels = []channel{
		viewportChannel{},
		landmarkChannel{},
		directLinkChannel{},
		scriptChannel{patterns: e.patterns},
	}
	return e
}

// Selector 返回链接选择器
func (e *Extractor) Selector() string {
	return e.selector
}

// Scan 扫描页面,返回未出现在seen中的新候选项(未规范化)
// 渠道失败不会中断扫描,只视为该渠道本次无结果
func (e *Extractor) Scan(ctx context.Context, page Page, seen SeenSet) []models.Candidate {
	view := newPassView(page, e.selector)

	var precomputed [][]hit
	if e.opts.ParallelScan {
		precomputed = e.scanParallel(ctx, view)
	}

	emitted := make(map[string]bool)
	candidates := make([]models.Candidate, 0)

	for i, ch := range e.channels {
		src := ch.source()

		// 脚本渠道只在前面各层未达到目标数量时查询
		if src == models.ChannelScriptPayload && e.opts.TargetCount > 0 &&
			seen.Len()+len(candidates) >= e.opts.TargetCount {
			log.Debug().Int("emitted", len(candidates)).Msg("已达到目标数量,跳过脚本渠道")
			continue
		}

		var hits []hit
		if precomputed != nil {
			hits = precomputed[i]
		} else {
			hits = runChannel(ctx, ch, view)
		}

		for order, h := range hits {
			rawURL := CompleteURL(h.url, e.opts.Origin, e.opts.ItemMarker)
			if !HasMarker(rawURL, e.opts.ItemMarker) {
				continue
			}

			key := CanonicalKey(rawURL, e.opts.Origin, e.opts.ItemMarker)
			if seen.Contains(key) || emitted[key] {
				continue
			}
			emitted[key] = true

			position := h.position
			if position < 0 {
				position = order
			}

			candidates = append(candidates, models.Candidate{
				URL:           rawURL,
				SourceChannel: src,
				PriorityTier:  src.Tier(),
				DOMPosition:   position,
			})
		}
	}

	return candidates
}

// scanParallel 并行扫描全部渠道,结果按渠道下标存放,合并仍按层级顺序进行
func (e *Extractor) scanParallel(ctx context.Context, view *passView) [][]hit {
	results := make([][]hit, len(e.channels))

	var g errgroup.Group
	for i, ch := range e.channels {
		g.Go(func() error {
			results[i] = runChannel(ctx, ch, view)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// runChannel 执行单个渠道,错误和panic都吞掉
func runChannel(ctx context.Context, ch channel, view *passView) (hits []hit) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("channel", string(ch.source())).Msgf("渠道扫描panic: %v", r)
			hits = nil
		}
	}()

	hits, err := ch.scan(ctx, view)
	if err != nil {
		log.Debug().Err(err).Str("channel", string(ch.source())).Msg("渠道扫描失败,本次视为无结果")
		return nil
	}
	return hits
}

// passView 单次扫描内对页面查询的缓存
// 多个DOM渠道共享同一次元素查询结果
type passView struct {
	page     Page
	selector string

	elementsOnce sync.Once
	elements     []Element
	elementsErr  error

	viewportOnce sync.Once
	viewport     Viewport
	viewportErr  error
}

func newPassView(page Page, selector string) *passView {
	return &passView{page: page, selector: selector}
}

func (v *passView) Elements(ctx context.Context) ([]Element, error) {
	v.elementsOnce.Do(func() {
		v.elements, v.elementsErr = v.page.Elements(ctx, v.selector)
	})
	return v.elements, v.elementsErr
}

func (v *passView) Viewport(ctx context.Context) (Viewport, error) {
	v.viewportOnce.Do(func() {
		v.viewport, v.viewportErr = v.page.Viewport(ctx)
	})
	return v.viewport, v.viewportErr
}

// viewportChannel 层级0: 完整位于视口内的元素
type viewportChannel struct{}

func (viewportChannel) source() models.SourceChannel { return models.ChannelViewport }

func (viewportChannel) scan(ctx context.Context, view *passView) ([]hit, error) {
	vp, err := view.Viewport(ctx)
	if err != nil {
		return nil, err
	}
	elements, err := view.Elements(ctx)
	if err != nil {
		return nil, err
	}

	hits := make([]hit, 0)
	for _, el := range elements {
		if el.Rect != nil && vp.Contains(*el.Rect) {
			hits = append(hits, hit{url: el.Href, position: el.Position})
		}
	}
	return hits, nil
}

// landmarkChannel 层级1: 主内容区域中的元素
type landmarkChannel struct{}

func (landmarkChannel) source() models.SourceChannel { return models.ChannelMainContent }

func (landmarkChannel) scan(ctx context.Context, view *passView) ([]hit, error) {
	elements, err := view.Elements(ctx)
	if err != nil {
		return nil, err
	}

	hits := make([]hit, 0)
	for _, el := range elements {
		if el.InLandmark {
			hits = append(hits, hit{url: el.Href, position: el.Position})
		}
	}
	return hits, nil
}

// directLinkChannel 层级2: 任意位置的匹配链接
type directLinkChannel struct{}

func (directLinkChannel) source() models.SourceChannel { return models.ChannelDirectLink }

func (directLinkChannel) scan(ctx context.Context, view *passView) ([]hit, error) {
	elements, err := view.Elements(ctx)
	if err != nil {
		return nil, err
	}

	hits := make([]hit, 0, len(elements))
	for _, el := range elements {
		if el.Href != "" {
			hits = append(hits, hit{url: el.Href, position: el.Position})
		}
	}
	return hits, nil
}

// scriptPattern 脚本文本匹配规则
// group > 0 时取子匹配(仅ID形式)
type scriptPattern struct {
	re    *regexp.Regexp
	group int
}

// buildScriptPatterns 根据站点和标记构造脚本匹配规则
func buildScriptPatterns(origin, marker string) []scriptPattern {
	host := "instagram.com"
	if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
		host = strings.TrimPrefix(parsed.Host, "www.")
	}
	h := regexp.QuoteMeta(host)
	m := regexp.QuoteMeta(marker)
	id := `[A-Za-z0-9_-]+`

	return []scriptPattern{
		{re: regexp.MustCompile(`https?://(?:www\.)?` + h + m + id + `/?`)},
		{re: regexp.MustCompile(`"` + m + id + `/?`)},
		{re: regexp.MustCompile(`(?:^|[^/.\w])((?:www\.)?` + h + m + id + `/?)`), group: 1},
		{re: regexp.MustCompile(`"shortcode"\s*:\s*"(` + id + `)"`), group: 1},
	}
}

// scriptChannel 层级3: 内嵌脚本文本中的匹配
type scriptChannel struct {
	patterns []scriptPattern
}

func (scriptChannel) source() models.SourceChannel { return models.ChannelScriptPayload }

func (c scriptChannel) scan(ctx context.Context, view *passView) ([]hit, error) {
	payloads, err := view.page.ScriptPayloads(ctx)
	if err != nil {
		return nil, err
	}

	hits := make([]hit, 0)
	for _, payload := range payloads {
		if payload == "" {
			continue
		}
		// JSON中常见的转义斜杠
		text := strings.ReplaceAll(payload, `\/`, "/")

		for _, p := range c.patterns {
			if p.group == 0 {
				for _, match := range p.re.FindAllString(text, -1) {
					hits = append(hits, hit{url: match, position: -1})
				}
				continue
			}
			for _, sub := range p.re.FindAllStringSubmatch(text, -1) {
				if len(sub) > p.group {
					hits = append(hits, hit{url: sub[p.group], position: -1})
				}
			}
		}
	}
	return hits, nil
}
