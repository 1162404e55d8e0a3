package models

// SourceChannel 候选项的发现渠道
type SourceChannel string

const (
	ChannelViewport      SourceChannel = "viewport"       // 当前视口内可见元素
	ChannelMainContent   SourceChannel = "main_content"   // 主内容区域(main/article等)
	ChannelDirectLink    SourceChannel = "direct_link"    // 页面任意位置的链接
	ChannelScriptPayload SourceChannel = "script_payload" // 内嵌脚本文本中的匹配
)

// 优先级层级,数值越小优先级越高
const (
	TierViewport      = 0
	TierMainContent   = 1
	TierDirectLink    = 2
	TierScriptPayload = 3
)

// Channels 按优先级排列的全部渠道
var Channels = []SourceChannel{
	ChannelViewport,
	ChannelMainContent,
	ChannelDirectLink,
	ChannelScriptPayload,
}

// Tier 返回渠道对应的优先级层级
func (c SourceChannel) Tier() int {
	switch c {
	case ChannelViewport:
		return TierViewport
	case ChannelMainContent:
		return TierMainContent
	case ChannelDirectLink:
		return TierDirectLink
	default:
		return TierScriptPayload
	}
}

// Candidate 一次扫描发现的候选条目
// URL保持原始形式,规范化推迟到最终输出阶段
type Candidate struct {
	URL           string        `json:"url"`            // 原始URL(未规范化)
	SourceChannel SourceChannel `json:"source_channel"` // 发现渠道
	PriorityTier  int           `json:"priority_tier"`  // 优先级层级(越小越优先)
	DOMPosition   int           `json:"dom_position"`   // 同层级内的排序依据
}

// Less 按 (PriorityTier, DOMPosition) 比较
func (c Candidate) Less(other Candidate) bool {
	if c.PriorityTier != other.PriorityTier {
		return c.PriorityTier < other.PriorityTier
	}
	return c.DOMPosition < other.DOMPosition
}
