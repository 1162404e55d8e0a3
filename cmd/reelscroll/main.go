package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/ReelScroll/internal/core"
	"github.com/RecoveryAshes/ReelScroll/internal/models"
	"github.com/RecoveryAshes/ReelScroll/internal/utils"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers []string

	// 提取参数
	targetURL      string
	urlFile        string
	htmlFile       string
	mode           string
	username       string
	maxReels       int
	maxScrolls     int
	noGrowthLimit  int
	scrollDelay    int
	autoScroll     bool
	parallelScan   bool
	headless       bool
	waitTime       int
	outputDir      string
	clipboardOut   bool
	structuredFile bool

	// 批量处理参数
	batchDelay      int
	continueOnError bool
	workers         int
)

// appConfig 在PersistentPreRunE中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "reelscroll",
	Short: "主页短视频链接提取工具",
	Long: `ReelScroll - 无限滚动主页的短视频链接提取工具

打开主页(如 https://www.instagram.com/<user>/reels/),边滚动边收集条目链接:
  • 视口/主内容区/页面链接/内嵌脚本 四级优先级
  • 规范化去重 (去掉查询参数,补全结尾斜杠)
  • 连续无新增或达到滚动上限时结束
  • 编号列表输出到控制台/剪贴板/结构化文件
  • 批量主页处理
  • 自定义HTTP请求头

示例:
  reelscroll -u https://www.instagram.com/someone/reels/ -n 50
  reelscroll -u https://www.instagram.com/someone/reels/ --auto-scroll=false
  reelscroll --html-file saved_profile.html
  reelscroll -f profiles.txt --batch-delay 5
  reelscroll -u https://www.instagram.com/someone/reels/ -H "Cookie: sessionid=..."

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			config.Logging.Level = logLevel
		} else if verbose {
			config.Logging.Level = "debug"
		}

		if err := utils.InitLogger(config.LogConfig()); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}

		appConfig = config
		return nil
	},
	RunE: runExtract,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ReelScroll %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// runExtract 执行提取(单个主页或批量)
func runExtract(cmd *cobra.Command, args []string) error {
	// 如果没有提供任何目标,显示帮助信息
	if targetURL == "" && urlFile == "" && htmlFile == "" {
		return cmd.Help()
	}

	sourceMode := resolveMode(mode, cmd.Flags().Changed("mode"), htmlFile)
	if err := ValidateFlags(targetURL, htmlFile, sourceMode, waitTime, batchDelay, workers); err != nil {
		return err
	}

	appConfig.Apply(overridesFromFlags(cmd))

	// Ctrl+C 取消运行, 已收集的结果仍会输出
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 创建HTTP头部管理器
	headerManager, err := core.NewHeaderManager(appConfig.Browser.UserAgent, appConfig.Headers, headers)
	if err != nil {
		return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	if err := headerManager.Validate(); err != nil {
		return fmt.Errorf("HTTP头部验证失败: %w", err)
	}

	opts := []core.HarvesterOption{core.WithStdout(os.Stdout)}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		opts = append(opts, core.WithProgress(os.Stderr))
	}
	harvester := core.NewHarvester(appConfig, sourceMode, headerManager, opts...)

	// 批量处理模式
	if urlFile != "" {
		return runBatch(ctx, harvester)
	}

	report, err := harvester.Harvest(ctx, core.Target{
		URL:      targetURL,
		HTMLFile: htmlFile,
		Username: username,
	})
	if err != nil {
		return fmt.Errorf("提取失败: %w", err)
	}
	if ctx.Err() != nil {
		utils.Warn("⚠️  已中断, 输出的是部分结果")
	}

	if report.Empty {
		utils.Info("未发现任何条目, 无内容输出")
		return nil
	}
	utils.Info("✨ 提取任务完成!")
	return nil
}

// runBatch 批量处理主页列表中的目标
func runBatch(ctx context.Context, harvester *core.Harvester) error {
	urls, err := utils.ReadProfileTargets(urlFile, appConfig.Site.Origin)
	if err != nil {
		return fmt.Errorf("读取主页列表失败: %w", err)
	}

	targets := make([]core.Target, 0, len(urls))
	for _, u := range urls {
		targets = append(targets, core.Target{URL: u})
	}

	batch := core.NewBatchHarvester(harvester, time.Duration(batchDelay)*time.Second, continueOnError, workers)
	summary, err := batch.HarvestBatch(ctx, targets)
	if summary != nil {
		printBatchTable(os.Stderr, summary)
	}
	if err != nil {
		return fmt.Errorf("批量提取失败: %w", err)
	}
	if summary.Interrupted {
		utils.Warn("⚠️  已中断, 输出的是部分结果")
		return nil
	}

	utils.Info("✨ 批量提取任务完成!")
	return nil
}

// printBatchTable 以表格打印批量结果
func printBatchTable(w io.Writer, summary *core.BatchSummary) {
	tbl := table.New("#", "目标", "状态", "条目", "停止原因").WithWriter(w)
	for i, result := range summary.Results {
		status, count, reason := "⏭️ 跳过", 0, ""
		switch {
		case result.Error != nil:
			status = "❌ 失败"
		case result.Report != nil:
			status = "✅ 成功"
			count = len(result.Report.URLs)
			reason = string(result.Report.Stats.StopReason)
			if result.Report.Empty {
				status = "⚠️ 无结果"
			}
		}
		tbl.AddRow(i+1, result.Target.Label(), status, count, reason)
	}
	tbl.Print()
}

// overridesFromFlags 收集显式指定的命令行参数
func overridesFromFlags(cmd *cobra.Command) core.Overrides {
	flags := cmd.Flags()
	var o core.Overrides
	if flags.Changed("max-reels") {
		o.TargetCount = &maxReels
	}
	if flags.Changed("max-scrolls") {
		o.MaxAttempts = &maxScrolls
	}
	if flags.Changed("no-growth-limit") {
		o.NoGrowthLimit = &noGrowthLimit
	}
	if flags.Changed("scroll-delay") {
		o.MutationDelayMs = &scrollDelay
	}
	if flags.Changed("auto-scroll") {
		o.EnableMutation = &autoScroll
	}
	if flags.Changed("parallel-scan") {
		o.ParallelScan = &parallelScan
	}
	if flags.Changed("headless") {
		o.Headless = &headless
	}
	if flags.Changed("wait") {
		o.WaitTime = &waitTime
	}
	if flags.Changed("output") {
		o.OutputDir = &outputDir
	}
	if flags.Changed("clipboard") {
		o.Clipboard = &clipboardOut
	}
	if flags.Changed("structured-file") {
		o.StructuredFile = &structuredFile
	}
	return o
}

func init() {
	defaults := models.DefaultExtractConfig()

	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")

	// 提取参数
	rootCmd.Flags().StringVarP(&targetURL, "url", "u", "", "主页URL")
	rootCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "主页列表文件 (每行一个主页URL或用户名)")
	rootCmd.Flags().StringVar(&htmlFile, "html-file", "", "离线HTML文件 (另存的主页)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", string(models.ModeDynamic), "提取模式 (dynamic|static|file)")
	rootCmd.Flags().StringVar(&username, "username", "", "输出使用的用户名 (默认从URL推断)")
	rootCmd.Flags().IntVarP(&maxReels, "max-reels", "n", defaults.TargetCount, "最多返回条目数")
	rootCmd.Flags().IntVar(&maxScrolls, "max-scrolls", defaults.MaxAttempts, "最多滚动次数")
	rootCmd.Flags().IntVar(&noGrowthLimit, "no-growth-limit", defaults.NoGrowthLimit, "连续无新增多少次后结束")
	rootCmd.Flags().IntVar(&scrollDelay, "scroll-delay", defaults.MutationDelayMs, "每次滚动后等待(毫秒)")
	rootCmd.Flags().BoolVar(&autoScroll, "auto-scroll", defaults.EnableMutation, "自动滚动加载更多")
	rootCmd.Flags().BoolVar(&parallelScan, "parallel-scan", false, "并行扫描各发现渠道")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().IntVarP(&waitTime, "wait", "w", 3, "页面加载后等待时间(秒)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "output", "输出目录")
	rootCmd.Flags().BoolVar(&clipboardOut, "clipboard", true, "复制结果到剪贴板")
	rootCmd.Flags().BoolVar(&structuredFile, "structured-file", true, "写出结构化URL文件")

	// 批量处理参数
	rootCmd.Flags().IntVar(&batchDelay, "batch-delay", 1, "批量处理主页间延迟(秒)")
	rootCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "遇到错误继续处理")
	rootCmd.Flags().IntVar(&workers, "workers", 1, "批量处理并发数 (dynamic模式受资源检查限制)")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
