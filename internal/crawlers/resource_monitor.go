package crawlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ErrInsufficientResources 系统资源不足以启动浏览器
var ErrInsufficientResources = errors.New("系统资源不足")

// ResourceMonitorConfig 资源检查配置
type ResourceMonitorConfig struct {
	SafetyReserveMB  int // 启动浏览器后仍需保留的内存(MB)
	BrowserMemoryMB  int // 单个浏览器实例平均内存消耗(MB)
	CPULoadThreshold int // CPU负载阈值(%), 0表示不检查
	MaxBrowsers      int // 并发浏览器绝对上限
}

// ResourceStatus 一次采样结果
type ResourceStatus struct {
	TotalMemory     uint64  // 字节
	AvailableMemory uint64  // 字节
	CPUPercent      float64 // 采样失败时为-1
}

// ResourceMonitor 系统资源检查器
// 职责: 启动浏览器前检查内存/CPU,计算批量模式下允许的并发浏览器数
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 采样函数,测试中可替换
	memorySampler func() (total, available uint64, err error)
	cpuSampler    func() (float64, error)
}

// NewResourceMonitor 创建资源检查器
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.BrowserMemoryMB <= 0 {
		config.BrowserMemoryMB = 300
	}
	if config.MaxBrowsers <= 0 {
		config.MaxBrowsers = 4
	}

	return &ResourceMonitor{
		config:        config,
		memorySampler: sampleMemory,
		cpuSampler:    sampleCPU,
	}
}

func sampleMemory() (uint64, uint64, error) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}
	return vmStat.Total, vmStat.Available, nil
}

func sampleCPU() (float64, error) {
	percents, err := cpu.Percent(200*time.Millisecond, false)
	if err != nil {
		return -1, err
	}
	if len(percents) == 0 {
		return -1, errors.New("CPU采样结果为空")
	}
	return percents[0], nil
}

// Sample 采样当前系统资源
// 采样失败不视为错误,只记录警告
func (rm *ResourceMonitor) Sample() ResourceStatus {
	status := ResourceStatus{CPUPercent: -1}

	total, available, err := rm.memorySampler()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败")
	} else {
		status.TotalMemory = total
		status.AvailableMemory = available
	}

	if rm.config.CPULoadThreshold > 0 {
		percent, err := rm.cpuSampler()
		if err != nil {
			log.Warn().Err(err).Msg("获取CPU使用率失败")
		} else {
			status.CPUPercent = percent
		}
	}

	return status
}

// Preflight 启动浏览器前的资源检查
func (rm *ResourceMonitor) Preflight() (ResourceStatus, error) {
	status := rm.Sample()

	if status.TotalMemory > 0 {
		required := uint64(rm.config.BrowserMemoryMB+rm.config.SafetyReserveMB) * 1024 * 1024
		if status.AvailableMemory < required {
			return status, fmt.Errorf("%w: 可用内存 %.0fMB, 需要 %dMB",
				ErrInsufficientResources,
				float64(status.AvailableMemory)/(1024*1024),
				rm.config.BrowserMemoryMB+rm.config.SafetyReserveMB)
		}
	}

	if rm.config.CPULoadThreshold > 0 && status.CPUPercent >= float64(rm.config.CPULoadThreshold) {
		return status, fmt.Errorf("%w: CPU负载 %.1f%% 超过阈值 %d%%",
			ErrInsufficientResources, status.CPUPercent, rm.config.CPULoadThreshold)
	}

	log.Debug().
		Float64("available_mb", float64(status.AvailableMemory)/(1024*1024)).
		Float64("cpu", status.CPUPercent).
		Msg("资源检查通过")
	return status, nil
}

// MaxConcurrentBrowsers 根据可用内存计算允许的并发浏览器数量
// 结果范围 [1, MaxBrowsers]
func (rm *ResourceMonitor) MaxConcurrentBrowsers() int {
	status := rm.Sample()
	if status.TotalMemory == 0 {
		return 1
	}

	reserve := uint64(rm.config.SafetyReserveMB) * 1024 * 1024
	if status.AvailableMemory <= reserve {
		return 1
	}

	perBrowser := uint64(rm.config.BrowserMemoryMB) * 1024 * 1024
	n := int((status.AvailableMemory - reserve) / perBrowser)
	if n < 1 {
		n = 1
	}
	if n > rm.config.MaxBrowsers {
		n = rm.config.MaxBrowsers
	}
	return n
}
