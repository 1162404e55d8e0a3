package main

import (
	"fmt"
	"strings"

	"github.com/RecoveryAshes/ReelScroll/internal/models"
)

// ValidateFlags 验证命令行标志
func ValidateFlags(
	targetURL string,
	htmlFile string,
	mode models.SourceMode,
	waitTime int,
	batchDelay int,
	workers int,
) error {
	// 验证URL
	if targetURL != "" {
		if err := models.ValidateURL(targetURL); err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
	}

	// 验证模式
	switch mode {
	case models.ModeDynamic, models.ModeStatic:
		if targetURL == "" && htmlFile != "" {
			return fmt.Errorf("%s 模式需要 --url, 离线文件请使用 --mode file", mode)
		}
	case models.ModeFile:
		if htmlFile == "" {
			return fmt.Errorf("file 模式需要 --html-file")
		}
	default:
		return fmt.Errorf("无效的提取模式: %s (有效值: dynamic, static, file)", mode)
	}

	// 验证等待时间
	if waitTime < 0 || waitTime > 60 {
		return fmt.Errorf("等待时间必须在0-60秒之间,当前值: %d", waitTime)
	}

	if batchDelay < 0 {
		return fmt.Errorf("批量延迟不能为负数,当前值: %d", batchDelay)
	}

	// 验证并发数
	if workers < 1 || workers > 16 {
		return fmt.Errorf("并发数必须在1-16之间,当前值: %d", workers)
	}

	return nil
}

// resolveMode 确定提取模式
// 未显式指定 --mode 且给出 --html-file 时使用 file 模式
func resolveMode(mode string, modeChanged bool, htmlFile string) models.SourceMode {
	if !modeChanged && htmlFile != "" {
		return models.ModeFile
	}
	return models.SourceMode(strings.ToLower(strings.TrimSpace(mode)))
}
