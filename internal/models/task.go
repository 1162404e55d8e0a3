package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SourceMode 页面来源模式
type SourceMode string

const (
	ModeDynamic SourceMode = "dynamic" // 无头浏览器渲染并滚动
	ModeStatic  SourceMode = "static"  // 单次HTTP抓取,不滚动
	ModeFile    SourceMode = "file"    // 离线HTML文件,不滚动
)

// StopReason 驱动循环结束原因
type StopReason string

const (
	StopTargetReached StopReason = "target_reached" // 已达到目标数量
	StopSinglePass    StopReason = "single_pass"    // 关闭滚动,仅采样一次
	StopConverged     StopReason = "converged"      // 连续多次无新增
	StopBudget        StopReason = "budget"         // 滚动次数用尽
	StopAborted       StopReason = "aborted"        // 外部取消
)

// ExtractConfig 提取配置
type ExtractConfig struct {
	TargetCount     int  `json:"target_count" mapstructure:"target_count"`           // 最多返回条目数 (默认:100)
	MaxAttempts     int  `json:"max_attempts" mapstructure:"max_attempts"`           // 最多滚动次数 (默认:5)
	NoGrowthLimit   int  `json:"no_growth_limit" mapstructure:"no_growth_limit"`     // 连续无增长次数上限 (默认:2)
	MutationDelayMs int  `json:"mutation_delay_ms" mapstructure:"mutation_delay_ms"` // 每次滚动后等待(毫秒) (默认:1500)
	EnableMutation  bool `json:"enable_mutation" mapstructure:"enable_mutation"`     // 是否自动滚动 (默认:true)
	ParallelScan    bool `json:"parallel_scan" mapstructure:"parallel_scan"`         // 渠道并行扫描
}

// DefaultExtractConfig 默认提取配置
func DefaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		TargetCount:     100,
		MaxAttempts:     5,
		NoGrowthLimit:   2,
		MutationDelayMs: 1500,
		EnableMutation:  true,
	}
}

// MutationDelay 返回滚动等待时长
func (c ExtractConfig) MutationDelay() time.Duration {
	return time.Duration(c.MutationDelayMs) * time.Millisecond
}

// Validate 验证配置,失败返回 *ConfigurationError
func (c ExtractConfig) Validate() error {
	if c.TargetCount <= 0 {
		return &ConfigurationError{Field: "target_count", Value: c.TargetCount, Reason: "必须大于0"}
	}
	if c.MaxAttempts <= 0 {
		return &ConfigurationError{Field: "max_attempts", Value: c.MaxAttempts, Reason: "必须大于0"}
	}
	if c.NoGrowthLimit <= 0 {
		return &ConfigurationError{Field: "no_growth_limit", Value: c.NoGrowthLimit, Reason: "必须大于0"}
	}
	if c.MutationDelayMs < 0 {
		return &ConfigurationError{Field: "mutation_delay_ms", Value: c.MutationDelayMs, Reason: "不能为负数"}
	}
	return nil
}

// ConfigurationError 配置参数错误
// 在任何采样开始前返回
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

// Error 实现error接口
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("配置无效 [%s=%v]: %s", e.Field, e.Value, e.Reason)
}

// RunStats 一次提取运行的统计
type RunStats struct {
	RunID          string         `json:"run_id"`
	Passes         int            `json:"passes"`           // 采样次数
	AttemptsUsed   int            `json:"attempts_used"`    // 已执行的滚动次数
	MutationErrors int            `json:"mutation_errors"`  // 滚动失败次数
	Discovered     int            `json:"discovered"`       // 累积集合大小
	Returned       int            `json:"returned"`         // 截断后返回数量
	PassSizes      []int          `json:"pass_sizes"`       // 每次采样后的累积集合大小
	TierCounts     map[string]int `json:"tier_counts"`      // 各渠道命中数量
	StopReason     StopReason     `json:"stop_reason"`
	Duration       float64        `json:"duration"` // 秒
}

// ToJSON 序列化为JSON
func (s *RunStats) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
