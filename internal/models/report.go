package models

import (
	"encoding/json"
	"time"
)

// ExtractReport 提取报告
type ExtractReport struct {
	// 任务信息
	RunID     string     `json:"run_id"`
	TargetURL string     `json:"target_url"`
	Username  string     `json:"username"`
	Mode      SourceMode `json:"mode"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	// 统计信息
	Stats RunStats `json:"stats"`

	// 结果
	URLs  []string `json:"urls"`
	Empty bool     `json:"empty"`

	// 输出位置
	StructuredFile string   `json:"structured_file,omitempty"`
	SinkFailures   []string `json:"sink_failures,omitempty"`

	// 配置快照
	Config ExtractConfig `json:"config"`
}

// ToJSON 序列化为JSON
func (r *ExtractReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *ExtractReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
