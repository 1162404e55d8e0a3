package crawlers

import (
	"context"
	"errors"
	"sync"
	"time"
)

// snapshot 页面在某次滚动后的状态
type snapshot struct {
	elements []Element
	viewport Viewport
	scripts  []string
}

// fakePage 按RequestMore次数切换快照的页面
// 快照用完后停留在最后一个
type fakePage struct {
	mu        sync.Mutex
	snapshots []snapshot
	index     int

	elementsErr  error
	scriptsErr   error
	moreErr      error
	waitErr      error
	panicScripts bool

	elementsCalls int
	scriptCalls   int
	moreCalls     int
	waits         []time.Duration
}

func newFakePage(snapshots ...snapshot) *fakePage {
	if len(snapshots) == 0 {
		snapshots = []snapshot{{}}
	}
	return &fakePage{snapshots: snapshots}
}

func (p *fakePage) current() snapshot {
	return p.snapshots[p.index]
}

func (p *fakePage) Elements(ctx context.Context, selector string) ([]Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elementsCalls++
	if p.elementsErr != nil {
		return nil, p.elementsErr
	}
	return append([]Element(nil), p.current().elements...), nil
}

func (p *fakePage) Viewport(ctx context.Context) (Viewport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current().viewport, nil
}

func (p *fakePage) ScriptPayloads(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scriptCalls++
	if p.panicScripts {
		panic("脚本读取崩溃")
	}
	if p.scriptsErr != nil {
		return nil, p.scriptsErr
	}
	return append([]string(nil), p.current().scripts...), nil
}

func (p *fakePage) RequestMore(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moreCalls++
	if p.index < len(p.snapshots)-1 {
		p.index++
	}
	return p.moreErr
}

func (p *fakePage) Wait(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	p.waits = append(p.waits, d)
	waitErr := p.waitErr
	p.mu.Unlock()
	if waitErr != nil {
		return waitErr
	}
	return sleepContext(ctx, d)
}

var errFakeQuery = errors.New("查询失败")

// links 生成一组直接链接元素(位置未知)
func links(hrefs ...string) []Element {
	elements := make([]Element, 0, len(hrefs))
	for _, h := range hrefs {
		elements = append(elements, Element{Href: h, Position: -1})
	}
	return elements
}
