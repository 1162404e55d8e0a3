package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/RecoveryAshes/ReelScroll/internal/crawlers"
	"github.com/atotto/clipboard"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"
)

// checkLevel 检查结果级别
type checkLevel int

const (
	checkOK checkLevel = iota
	checkWarn
	checkFail
)

// checkResult 单项检查结果
type checkResult struct {
	level   checkLevel
	message string
	hint    string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "检查运行环境",
	RunE: func(cmd *cobra.Command, args []string) error {
		results := runChecks(appConfig.Output.BaseDir, crawlers.NewResourceMonitor(appConfig.ResourceMonitorConfig()))
		if !printChecks(cmd.OutOrStdout(), results) {
			return fmt.Errorf("环境检查失败,请解决上述问题")
		}
		return nil
	},
}

// runChecks 执行全部环境检查
func runChecks(outputDir string, monitor *crawlers.ResourceMonitor) []checkResult {
	results := []checkResult{
		{level: checkOK, message: fmt.Sprintf("Go版本: %s", runtime.Version())},
		{level: checkOK, message: fmt.Sprintf("操作系统: %s/%s", runtime.GOOS, runtime.GOARCH)},
	}

	// 浏览器: 找不到时rod会在首次启动时自动下载
	if path, found := launcher.LookPath(); found {
		results = append(results, checkResult{level: checkOK, message: "浏览器: " + path})
	} else {
		results = append(results, checkResult{
			level:   checkWarn,
			message: "未找到本地Chrome/Chromium",
			hint:    "dynamic 模式首次运行时会自动下载浏览器",
		})
	}

	if clipboard.Unsupported {
		results = append(results, checkResult{
			level:   checkWarn,
			message: "系统剪贴板不可用",
			hint:    "Linux 需要安装 xclip 或 xsel, 结果将只打印到控制台",
		})
	} else {
		results = append(results, checkResult{level: checkOK, message: "系统剪贴板可用"})
	}

	results = append(results, checkOutputDir(outputDir))

	status := monitor.Sample()
	if status.TotalMemory > 0 {
		results = append(results, checkResult{
			level: checkOK,
			message: fmt.Sprintf("可用内存: %.0fMB / %.0fMB",
				float64(status.AvailableMemory)/(1024*1024), float64(status.TotalMemory)/(1024*1024)),
		})
	}
	if _, err := monitor.Preflight(); err != nil {
		results = append(results, checkResult{level: checkWarn, message: err.Error()})
	}
	results = append(results, checkResult{
		level:   checkOK,
		message: fmt.Sprintf("允许的并发浏览器数: %d", monitor.MaxConcurrentBrowsers()),
	})

	return results
}

// checkOutputDir 输出目录是否可写
func checkOutputDir(dir string) checkResult {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return checkResult{level: checkFail, message: fmt.Sprintf("无法创建输出目录 %s: %v", dir, err)}
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return checkResult{level: checkFail, message: fmt.Sprintf("输出目录不可写 %s: %v", dir, err)}
	}
	probe.Close()
	os.Remove(probe.Name())

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return checkResult{level: checkOK, message: "输出目录可写: " + abs}
}

// printChecks 打印检查结果,存在失败项时返回false
func printChecks(w io.Writer, results []checkResult) bool {
	fmt.Fprintln(w, "==============================================")
	fmt.Fprintln(w, "  ReelScroll 环境检查")
	fmt.Fprintln(w, "==============================================")

	allOK := true
	for _, r := range results {
		switch r.level {
		case checkOK:
			fmt.Fprintf(w, "✅ %s\n", r.message)
		case checkWarn:
			fmt.Fprintf(w, "⚠️  %s\n", r.message)
		case checkFail:
			fmt.Fprintf(w, "❌ %s\n", r.message)
			allOK = false
		}
		if r.hint != "" {
			fmt.Fprintf(w, "   %s\n", r.hint)
		}
	}

	fmt.Fprintln(w, "==============================================")
	if allOK {
		fmt.Fprintln(w, "✅ 环境检查通过!")
	} else {
		fmt.Fprintln(w, "❌ 环境检查失败")
	}
	return allOK
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
