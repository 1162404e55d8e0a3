package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/ReelScroll/internal/crawlers"
	"github.com/RecoveryAshes/ReelScroll/internal/export"
	"github.com/RecoveryAshes/ReelScroll/internal/models"
	"github.com/RecoveryAshes/ReelScroll/internal/utils"
)

// FallbackTitle 所有输出目标失败时的控制台标题
const FallbackTitle = "📋 请手动复制以下内容:"

// ErrNoSource 目标未给出URL也未给出HTML文件
var ErrNoSource = errors.New("未指定目标URL或HTML文件")

// Target 一个提取目标
type Target struct {
	URL      string // 主页URL (dynamic/static)
	HTMLFile string // 离线HTML文件 (file)
	Username string // 为空时从URL或文件名推断
}

// Label 日志中显示的目标
func (t Target) Label() string {
	if t.URL != "" {
		return t.URL
	}
	return t.HTMLFile
}

// ResolveUsername 推断输出使用的用户名
func (t Target) ResolveUsername() string {
	if t.Username != "" {
		return t.Username
	}
	if t.URL != "" {
		if name := models.ProfileUsername(t.URL); name != "" {
			return name
		}
	}
	if t.HTMLFile != "" {
		base := filepath.Base(t.HTMLFile)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return ""
}

// pageOpener 打开页面,返回页面与释放函数
type pageOpener func(ctx context.Context, target Target) (crawlers.Page, func(), error)

// Harvester 提取协调器
// 职责: 打开页面 -> 驱动滚动提取 -> 投递结果 -> 生成报告
type Harvester struct {
	config  *Config
	mode    models.SourceMode
	headers models.HeaderProvider

	// 结果列表输出(默认stdout)
	stdout io.Writer
	// 进度条输出,nil时不显示
	progress io.Writer

	clipboard export.Sink
	open      pageOpener
	reporter  *utils.Reporter
	monitor   *crawlers.ResourceMonitor
}

// HarvesterOption 可选参数
type HarvesterOption func(*Harvester)

// WithStdout 设置结果列表输出
func WithStdout(w io.Writer) HarvesterOption {
	return func(h *Harvester) { h.stdout = w }
}

// WithProgress 设置进度条输出
func WithProgress(w io.Writer) HarvesterOption {
	return func(h *Harvester) { h.progress = w }
}

// WithClipboard 替换剪贴板输出
func WithClipboard(s export.Sink) HarvesterOption {
	return func(h *Harvester) { h.clipboard = s }
}

// NewHarvester 创建提取协调器
func NewHarvester(config *Config, mode models.SourceMode, headers models.HeaderProvider, opts ...HarvesterOption) *Harvester {
	h := &Harvester{
		config:    config,
		mode:      mode,
		headers:   headers,
		stdout:    os.Stdout,
		clipboard: export.NewClipboardSink(),
		reporter:  utils.NewReporter(config.Output.BaseDir),
	}
	if config.Resource.Enabled {
		h.monitor = crawlers.NewResourceMonitor(config.ResourceMonitorConfig())
	}
	for _, opt := range opts {
		opt(h)
	}
	switch mode {
	case models.ModeStatic:
		h.open = h.openStatic
	case models.ModeFile:
		h.open = h.openFile
	default:
		h.open = h.openDynamic
	}
	return h
}

// ExtractConfig 返回本模式实际使用的提取配置
// static/file模式页面不会变化,强制单次采样
func (h *Harvester) ExtractConfig() models.ExtractConfig {
	cfg := h.config.Extract
	if h.mode != models.ModeDynamic {
		cfg.EnableMutation = false
	}
	return cfg
}

// Harvest 执行一次提取
// 执行流程:
//  1. 验证提取配置 (失败时不打开任何页面)
//  2. 根据模式打开页面 (dynamic/static/file)
//  3. 运行滚动驱动器
//  4. 投递结果到控制台/剪贴板/文件
//  5. 生成提取报告
//
// 返回: 提取报告;未发现条目不是错误
func (h *Harvester) Harvest(ctx context.Context, target Target) (*models.ExtractReport, error) {
	startTime := time.Now()
	extractCfg := h.ExtractConfig()

	if err := extractCfg.Validate(); err != nil {
		return nil, err
	}
	if target.URL == "" && target.HTMLFile == "" {
		return nil, ErrNoSource
	}

	report := &models.ExtractReport{
		RunID:     models.NewRunID(),
		TargetURL: target.Label(),
		Username:  target.ResolveUsername(),
		Mode:      h.mode,
		StartTime: startTime,
		Config:    extractCfg,
	}
	utils.Infof("🚀 开始提取任务")
	utils.Infof("目标: %s", report.TargetURL)
	utils.Infof("模式: %s", h.mode)
	utils.Infof("目标数量: %d, 最多滚动: %d次", extractCfg.TargetCount, extractCfg.MaxAttempts)
	if h.mode != models.ModeDynamic && h.config.Extract.EnableMutation {
		utils.Infof("ℹ️  %s 模式不支持滚动,仅采样一次", h.mode)
	}

	page, release, err := h.open(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("打开页面失败: %w", err)
	}
	defer release()

	extractor := crawlers.NewExtractor(crawlers.ExtractorOptions{
		Origin:       h.config.Site.Origin,
		ItemMarker:   h.config.Site.ItemMarker,
		TargetCount:  extractCfg.TargetCount,
		ParallelScan: extractCfg.ParallelScan,
	})
	driver := crawlers.NewScrollDriver(page, extractor, extractCfg)

	if h.progress != nil {
		bar := utils.NewProgressBar(extractCfg.TargetCount, "🔍 提取中", h.progress)
		driver.OnPass(func(e crawlers.PassEvent) {
			bar.Describe(fmt.Sprintf("🔍 第%d次采样 (滚动 %d/%d)", e.Pass, e.AttemptsUsed, e.MaxAttempts))
			_ = bar.Set(min(e.Total, extractCfg.TargetCount))
		})
		defer func() { _ = bar.Finish() }()
	}

	result, err := driver.Run(ctx)
	if err != nil {
		return nil, err
	}
	result.Stats.RunID = report.RunID

	report.Stats = result.Stats
	report.URLs = result.URLs
	report.Empty = result.IsEmpty()

	if report.Empty {
		utils.Warnf("⚠️  未找到任何条目 (停止原因: %s)", result.Stats.StopReason)
	} else {
		h.deliver(ctx, report)
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(startTime).Seconds()

	h.printSummary(report)

	if h.config.Output.Report {
		if _, err := h.reporter.SaveExtractReport(report); err != nil {
			utils.Warnf("生成报告失败: %v", err)
		}
	}

	return report, nil
}

// deliver 投递结果到所有启用的输出目标
// 剪贴板或文件失败时退回控制台输出
func (h *Harvester) deliver(ctx context.Context, report *models.ExtractReport) {
	payload := export.Payload{
		Username:    report.Username,
		URLs:        report.URLs,
		GeneratedAt: time.Now(),
	}

	sinks := make([]export.Sink, 0, 3)
	if h.config.Output.Console {
		sinks = append(sinks, export.NewConsoleSink(h.stdout, ""))
	}
	if h.config.Output.Clipboard && h.clipboard != nil {
		sinks = append(sinks, h.clipboard)
	}
	if h.config.Output.StructuredFile {
		dir := filepath.Join(h.config.Output.BaseDir, usernameOrUnknown(report.Username))
		sinks = append(sinks, export.NewFileSink(dir, export.StructuredFilename(report.Username, payload.GeneratedAt)))
	}

	var fallback export.Sink
	if !h.config.Output.Console {
		fallback = export.NewConsoleSink(h.stdout, FallbackTitle)
	}

	delivery := export.Deliver(ctx, payload, sinks, fallback)
	report.StructuredFile = delivery.Locations["file"]
	for name, msg := range delivery.Failures {
		report.SinkFailures = append(report.SinkFailures, name+": "+msg)
	}
	if delivery.FallbackUsed {
		utils.Info("已退回控制台输出")
	}
}

// openDynamic 启动浏览器并打开目标页面
func (h *Harvester) openDynamic(ctx context.Context, target Target) (crawlers.Page, func(), error) {
	if target.URL == "" {
		return nil, nil, ErrNoSource
	}
	if h.monitor != nil {
		if _, err := h.monitor.Preflight(); err != nil {
			utils.Warnf("⚠️  %v, 继续启动浏览器", err)
		}
	}

	page, err := crawlers.OpenDynamicPage(ctx, target.URL, crawlers.BrowserConfig{
		Headless:         h.config.Browser.Headless,
		WaitTime:         h.config.PageWait(),
		LandmarkSelector: h.config.Site.LandmarkSelector,
		HeaderProvider:   h.headers,
	})
	if err != nil {
		return nil, nil, err
	}
	return page, page.Close, nil
}

// openStatic 单次HTTP抓取目标页面
func (h *Harvester) openStatic(ctx context.Context, target Target) (crawlers.Page, func(), error) {
	if target.URL == "" {
		return nil, nil, ErrNoSource
	}
	fetcher := crawlers.NewStaticFetcher(crawlers.StaticFetchConfig{
		Timeout:          h.config.FetchTimeout(),
		UserAgent:        h.config.Browser.UserAgent,
		HeaderProvider:   h.headers,
		LandmarkSelector: h.config.Site.LandmarkSelector,
	})
	page, err := fetcher.Fetch(ctx, target.URL)
	if err != nil {
		return nil, nil, err
	}
	return page, func() {}, nil
}

// openFile 解析离线HTML文件
func (h *Harvester) openFile(ctx context.Context, target Target) (crawlers.Page, func(), error) {
	if target.HTMLFile == "" {
		return nil, nil, ErrNoSource
	}
	f, err := os.Open(target.HTMLFile)
	if err != nil {
		return nil, nil, fmt.Errorf("打开HTML文件失败: %w", err)
	}
	defer f.Close()

	base := target.URL
	if base == "" {
		base = h.config.Site.Origin
	}
	page, err := crawlers.NewHTMLPage(f, base)
	if err != nil {
		return nil, nil, err
	}
	page.SetLandmark(h.config.Site.LandmarkSelector)
	return page, func() {}, nil
}

// printSummary 打印提取摘要
func (h *Harvester) printSummary(report *models.ExtractReport) {
	stats := report.Stats
	utils.Info("==================== 提取完成 ====================")
	utils.Infof("📦 返回条目: %d (累计发现 %d)", stats.Returned, stats.Discovered)
	utils.Infof("🔁 采样次数: %d, 滚动次数: %d, 滚动失败: %d", stats.Passes, stats.AttemptsUsed, stats.MutationErrors)
	utils.Infof("🛑 停止原因: %s", stats.StopReason)
	utils.Infof("⏱️  总耗时: %.2f秒", report.Duration)
	if report.StructuredFile != "" {
		utils.Infof("💾 结构化文件: %s", report.StructuredFile)
	}
}

func usernameOrUnknown(username string) string {
	if username == "" {
		return "unknown"
	}
	return username
}
