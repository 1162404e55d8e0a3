package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/ReelScroll/internal/models"
	"github.com/schollz/progressbar/v3"
)

// ReportFilename 提取报告文件名
const ReportFilename = "extract_report.json"

// Reporter 报告生成器
type Reporter struct {
	outputDir string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string) *Reporter {
	return &Reporter{outputDir: outputDir}
}

// ReportDir 目标用户的报告目录 output/<user>/reports
func (r *Reporter) ReportDir(username string) string {
	if username == "" {
		username = "unknown"
	}
	return filepath.Join(r.outputDir, username, "reports")
}

// SaveExtractReport 保存提取报告,返回文件路径
func (r *Reporter) SaveExtractReport(report *models.ExtractReport) (string, error) {
	reportsDir := r.ReportDir(report.Username)
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	path := filepath.Join(reportsDir, ReportFilename)
	if err := saveJSON(path, report); err != nil {
		return "", err
	}

	Infof("✅ 报告已生成: %s", path)
	return path, nil
}

// LoadExtractReport 读取提取报告
func LoadExtractReport(path string) (*models.ExtractReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取报告文件失败: %w", err)
	}

	var report models.ExtractReport
	if err := report.FromJSON(data); err != nil {
		return nil, fmt.Errorf("解析报告文件失败: %w", err)
	}
	return &report, nil
}

// saveJSON 保存JSON文件
func saveJSON(path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return nil
}

// NewProgressBar 创建进度条,输出到w(nil时为stderr)
func NewProgressBar(max int, description string, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = os.Stderr
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
