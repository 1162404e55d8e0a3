package crawlers

import (
	"context"
	"time"
)

// Rect 元素边界矩形(视口坐标)
type Rect struct {
	Top    float64
	Left   float64
	Bottom float64
	Right  float64
}

// Empty 宽或高为0
func (r Rect) Empty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// Viewport 当前视口尺寸
type Viewport struct {
	Width  float64
	Height float64
}

// Contains 判断矩形是否完整落在视口内
func (v Viewport) Contains(r Rect) bool {
	if v.Width <= 0 || v.Height <= 0 || r.Empty() {
		return false
	}
	return r.Top >= 0 && r.Left >= 0 && r.Bottom <= v.Height && r.Right <= v.Width
}

// Element 页面中匹配到的一个链接元素
type Element struct {
	Href       string // 绝对URL
	Position   int    // 祖先链兄弟序号之和,-1表示未知
	InLandmark bool   // 是否位于主内容区域
	Rect       *Rect  // 边界矩形,nil表示无几何信息
}

// Page 页面快照能力
// 只读查询 + 一个"加载更多"的变更原语 + 等待原语
type Page interface {
	// Elements 按CSS选择器查询可渲染元素,按文档顺序返回
	Elements(ctx context.Context, selector string) ([]Element, error)

	// Viewport 返回当前视口尺寸,无几何信息时返回零值
	Viewport(ctx context.Context) (Viewport, error)

	// ScriptPayloads 返回非渲染脚本的文本内容
	ScriptPayloads(ctx context.Context) ([]string, error)

	// RequestMore 触发加载更多内容(滚动到底部)
	RequestMore(ctx context.Context) error

	// Wait 挂起指定时长,ctx取消时提前返回ctx.Err()
	Wait(ctx context.Context, d time.Duration) error
}

// sleepContext 可取消的等待
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
