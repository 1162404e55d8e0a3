package crawlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/ReelScroll/internal/models"
	"github.com/RecoveryAshes/ReelScroll/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// 错误类型定义
var (
	ErrBrowserCrashed = errors.New("浏览器崩溃")
	ErrBrowserClosed  = errors.New("浏览器已关闭")
)

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	Headless         bool
	WaitTime         time.Duration // 页面加载后的额外等待
	LandmarkSelector string
	HeaderProvider   models.HeaderProvider
}

// DynamicPage 无头浏览器中的实时页面
// RequestMore 滚动到底部触发懒加载
type DynamicPage struct {
	browser  *rod.Browser
	page     *rod.Page
	landmark string
	url      string
}

// elementsJS 查询匹配元素,返回href/结构位置/是否位于主内容区/包围盒
const elementsJS = `(selector, landmark) => {
	var position = function(el) {
		var sum = 0;
		for (var cur = el; cur && cur.parentElement; cur = cur.parentElement) {
			var index = 0;
			for (var sib = cur.previousElementSibling; sib; sib = sib.previousElementSibling) {
				index++;
			}
			sum += index;
		}
		return sum;
	};

	var nodes = document.querySelectorAll(selector);
	var result = [];
	for (var i = 0; i < nodes.length; i++) {
		var el = nodes[i];
		if (!el.href) {
			continue;
		}
		var rect = el.getBoundingClientRect();
		result.push({
			href: el.href,
			position: position(el),
			inLandmark: !!(el.parentElement && el.parentElement.closest(landmark)),
			top: rect.top,
			left: rect.left,
			bottom: rect.bottom,
			right: rect.right
		});
	}
	return result;
}`

const viewportJS = `() => ({ width: window.innerWidth, height: window.innerHeight })`

const scriptsJS = `() => {
	var nodes = document.querySelectorAll('script:not([src])');
	var result = [];
	for (var i = 0; i < nodes.length; i++) {
		result.push(nodes[i].textContent || '');
	}
	return result;
}`

const scrollJS = `() => {
	window.scrollTo(0, document.body.scrollHeight);
	return document.body.scrollHeight;
}`

// OpenDynamicPage 启动浏览器并打开目标页面
func OpenDynamicPage(ctx context.Context, targetURL string, config BrowserConfig) (dp *DynamicPage, err error) {
	if config.LandmarkSelector == "" {
		config.LandmarkSelector = DefaultLandmarkSelector
	}

	l := launcher.New().Headless(config.Headless)
	l = l.Set("ignore-certificate-errors")
	utils.Debugf("浏览器启动参数: --ignore-certificate-errors (跳过TLS证书验证)")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}
	utils.Debugf("浏览器已启动: %s", controlURL)

	opened := &DynamicPage{
		browser:  browser,
		landmark: config.LandmarkSelector,
		url:      targetURL,
	}

	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("浏览器操作panic: %v", r)
			dp, err = nil, ErrBrowserCrashed
		}
		if err != nil {
			opened.Close()
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}
	opened.page = page

	if config.HeaderProvider != nil {
		headers, err := config.HeaderProvider.GetHeaders()
		if err != nil {
			utils.Warnf("获取HTTP头部失败: %v", err)
		} else if len(headers) > 0 {
			pairs := make([]string, 0, len(headers)*2)
			for name, values := range headers {
				if len(values) > 0 {
					pairs = append(pairs, name, values[0])
				}
			}
			if _, err := page.SetExtraHeaders(pairs); err != nil {
				utils.Warnf("设置浏览器HTTP头部失败: %v", err)
			}
		}
	}

	if err := page.Context(ctx).Navigate(targetURL); err != nil {
		return nil, fmt.Errorf("导航失败 [%s]: %w", targetURL, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		return nil, fmt.Errorf("等待页面加载失败 [%s]: %w", targetURL, err)
	}

	// 额外等待首屏动态内容
	if err := sleepContext(ctx, config.WaitTime); err != nil {
		return nil, err
	}

	utils.Debugf("页面加载完成: %s", targetURL)
	return opened, nil
}

// Elements 实现Page
func (p *DynamicPage) Elements(ctx context.Context, selector string) (elements []Element, err error) {
	defer p.recoverCrash(&err)

	if p.page == nil {
		return nil, ErrBrowserClosed
	}

	result, err := p.page.Context(ctx).Eval(elementsJS, selector, p.landmark)
	if err != nil {
		return nil, fmt.Errorf("执行JavaScript查询元素失败: %w", err)
	}

	items := result.Value.Arr()
	elements = make([]Element, 0, len(items))
	for _, item := range items {
		href := stripFragment(item.Get("href").Str())
		if href == "" {
			continue
		}
		elements = append(elements, Element{
			Href:       href,
			Position:   item.Get("position").Int(),
			InLandmark: item.Get("inLandmark").Bool(),
			Rect: &Rect{
				Top:    item.Get("top").Num(),
				Left:   item.Get("left").Num(),
				Bottom: item.Get("bottom").Num(),
				Right:  item.Get("right").Num(),
			},
		})
	}
	return elements, nil
}

// Viewport 实现Page
func (p *DynamicPage) Viewport(ctx context.Context) (vp Viewport, err error) {
	defer p.recoverCrash(&err)

	if p.page == nil {
		return Viewport{}, ErrBrowserClosed
	}

	result, err := p.page.Context(ctx).Eval(viewportJS)
	if err != nil {
		return Viewport{}, fmt.Errorf("读取视口失败: %w", err)
	}
	return Viewport{
		Width:  result.Value.Get("width").Num(),
		Height: result.Value.Get("height").Num(),
	}, nil
}

// ScriptPayloads 实现Page
func (p *DynamicPage) ScriptPayloads(ctx context.Context) (payloads []string, err error) {
	defer p.recoverCrash(&err)

	if p.page == nil {
		return nil, ErrBrowserClosed
	}

	result, err := p.page.Context(ctx).Eval(scriptsJS)
	if err != nil {
		return nil, fmt.Errorf("读取内联脚本失败: %w", err)
	}

	items := result.Value.Arr()
	payloads = make([]string, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, item.Str())
	}
	return payloads, nil
}

// RequestMore 滚动到页面底部
func (p *DynamicPage) RequestMore(ctx context.Context) (err error) {
	defer p.recoverCrash(&err)

	if p.page == nil {
		return ErrBrowserClosed
	}

	result, err := p.page.Context(ctx).Eval(scrollJS)
	if err != nil {
		return fmt.Errorf("滚动页面失败: %w", err)
	}
	utils.Debugf("已滚动到底部: scrollHeight=%d", result.Value.Int())
	return nil
}

// Wait 实现Page
func (p *DynamicPage) Wait(ctx context.Context, d time.Duration) error {
	return sleepContext(ctx, d)
}

// Close 关闭标签页和浏览器
func (p *DynamicPage) Close() {
	if p.page != nil {
		if err := p.page.Close(); err != nil {
			utils.Debugf("关闭标签页失败: %v", err)
		}
		p.page = nil
	}
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			utils.Debugf("关闭浏览器失败: %v", err)
		}
		p.browser = nil
		utils.Debugf("浏览器已关闭")
	}
}

// recoverCrash 把浏览器操作中的panic转换为ErrBrowserCrashed
func (p *DynamicPage) recoverCrash(err *error) {
	if r := recover(); r != nil {
		utils.Errorf("浏览器操作panic [%s]: %v", p.url, r)
		*err = ErrBrowserCrashed
	}
}
