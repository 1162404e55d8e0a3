package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/ReelScroll/internal/crawlers"
	"github.com/RecoveryAshes/ReelScroll/internal/export"
	"github.com/RecoveryAshes/ReelScroll/internal/models"
	"github.com/RecoveryAshes/ReelScroll/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileHTML = `<html><head>` +
	`<script>window.__data = {"items":[{"shortcode":"SCRIPT1"}]}</script></head>` +
	`<body><main><a href="/reel/A/">A</a><a href="/reel/B/?igsh=1">B</a></main>` +
	`<a href="/reel/C">C</a><a href="/p/POST/">post</a></body></html>`

var profileURLs = []string{
	"https://www.instagram.com/reel/A/",
	"https://www.instagram.com/reel/B/",
	"https://www.instagram.com/reel/C/",
	"https://www.instagram.com/reel/SCRIPT1/",
}

// failingSink 模拟不可用的剪贴板
type failingSink struct {
	calls int
}

func (s *failingSink) Name() string { return "clipboard" }

func (s *failingSink) Write(ctx context.Context, p export.Payload) (string, error) {
	s.calls++
	return "", fmt.Errorf("%w: 测试环境", export.ErrSinkUnavailable)
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Extract: models.DefaultExtractConfig(),
		Browser: BrowserConfig{Headless: true, FetchTimeout: 5},
		Site: SiteConfig{
			Origin:           crawlers.DefaultOrigin,
			ItemMarker:       crawlers.DefaultItemMarker,
			LandmarkSelector: crawlers.DefaultLandmarkSelector,
		},
		Output: OutputConfig{
			BaseDir:        t.TempDir(),
			Console:        true,
			Clipboard:      false,
			StructuredFile: true,
			Report:         true,
		},
		Headers: map[string]string{},
	}
}

func writeHTML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestHarvest_FileMode(t *testing.T) {
	config := testConfig(t)
	var stdout bytes.Buffer
	h := NewHarvester(config, models.ModeFile, nil, WithStdout(&stdout))

	path := writeHTML(t, "someone.html", profileHTML)
	report, err := h.Harvest(context.Background(), Target{HTMLFile: path})
	require.NoError(t, err)

	assert.Equal(t, profileURLs, report.URLs)
	assert.False(t, report.Empty)
	assert.Equal(t, "someone", report.Username)
	assert.Equal(t, models.StopSinglePass, report.Stats.StopReason)
	assert.Equal(t, report.RunID, report.Stats.RunID)
	assert.NotEmpty(t, report.RunID)

	assert.Equal(t, export.FormatNumbered(profileURLs)+"\n", stdout.String())

	// 结构化文件
	require.NotEmpty(t, report.StructuredFile)
	assert.Equal(t, filepath.Join(config.Output.BaseDir, "someone"), filepath.Dir(report.StructuredFile))
	entries, err := export.ReadStructuredFile(report.StructuredFile, config.Site.ItemMarker)
	require.NoError(t, err)
	assert.Len(t, entries, len(profileURLs))

	// 报告
	loaded, err := utils.LoadExtractReport(filepath.Join(config.Output.BaseDir, "someone", "reports", utils.ReportFilename))
	require.NoError(t, err)
	assert.Equal(t, report.URLs, loaded.URLs)
}

func TestHarvest_ForcesSinglePass(t *testing.T) {
	config := testConfig(t)
	config.Extract.EnableMutation = true

	h := NewHarvester(config, models.ModeFile, nil, WithStdout(&bytes.Buffer{}))
	assert.False(t, h.ExtractConfig().EnableMutation)
	assert.True(t, config.Extract.EnableMutation, "原配置不应被修改")

	dynamic := NewHarvester(config, models.ModeDynamic, nil)
	assert.True(t, dynamic.ExtractConfig().EnableMutation)
}

func TestHarvest_EmptyResult(t *testing.T) {
	config := testConfig(t)
	var stdout bytes.Buffer
	h := NewHarvester(config, models.ModeFile, nil, WithStdout(&stdout))

	path := writeHTML(t, "nobody.html", `<html><body><a href="/p/X/">post</a></body></html>`)
	report, err := h.Harvest(context.Background(), Target{HTMLFile: path})
	require.NoError(t, err)

	assert.True(t, report.Empty)
	assert.Empty(t, report.URLs)
	assert.Empty(t, stdout.String())
	assert.Empty(t, report.StructuredFile)
}

func TestHarvest_ConfigErrorBeforeOpen(t *testing.T) {
	config := testConfig(t)
	config.Extract.TargetCount = 0
	h := NewHarvester(config, models.ModeFile, nil)

	// 文件不存在也应先返回配置错误
	_, err := h.Harvest(context.Background(), Target{HTMLFile: "/does/not/exist.html"})
	var cfgErr *models.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "应返回ConfigurationError: %v", err)
	assert.Equal(t, "target_count", cfgErr.Field)
}

func TestHarvest_NoSource(t *testing.T) {
	h := NewHarvester(testConfig(t), models.ModeFile, nil)
	_, err := h.Harvest(context.Background(), Target{})
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestHarvest_ClipboardFallback(t *testing.T) {
	config := testConfig(t)
	config.Output.Console = false
	config.Output.Clipboard = true
	config.Output.StructuredFile = false

	clip := &failingSink{}
	var stdout bytes.Buffer
	h := NewHarvester(config, models.ModeFile, nil, WithStdout(&stdout), WithClipboard(clip))

	path := writeHTML(t, "someone.html", profileHTML)
	report, err := h.Harvest(context.Background(), Target{HTMLFile: path})
	require.NoError(t, err)

	assert.Equal(t, 1, clip.calls)
	require.Len(t, report.SinkFailures, 1)
	assert.True(t, strings.HasPrefix(report.SinkFailures[0], "clipboard: "))
	assert.Equal(t, FallbackTitle+"\n"+export.FormatNumbered(profileURLs)+"\n", stdout.String())
}

func TestHarvest_StaticMode(t *testing.T) {
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, profileHTML)
	}))
	defer server.Close()

	config := testConfig(t)
	config.Output.StructuredFile = false
	config.Output.Report = false

	hm, err := NewHeaderManager("", nil, []string{"Cookie: sessionid=abc"})
	require.NoError(t, err)

	var stdout bytes.Buffer
	h := NewHarvester(config, models.ModeStatic, hm, WithStdout(&stdout))
	report, err := h.Harvest(context.Background(), Target{URL: server.URL + "/someone/reels/"})
	require.NoError(t, err)

	assert.Equal(t, "sessionid=abc", gotCookie)
	assert.Equal(t, "someone", report.Username)
	assert.Equal(t, models.StopSinglePass, report.Stats.StopReason)
	// 相对链接按抓取地址解析,脚本匹配按站点补全
	assert.Equal(t, []string{
		server.URL + "/reel/A/",
		server.URL + "/reel/B/",
		server.URL + "/reel/C/",
		"https://www.instagram.com/reel/SCRIPT1/",
	}, report.URLs)
}

func TestTarget_ResolveUsername(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{"显式指定", Target{URL: "https://www.instagram.com/a/reels/", Username: "given"}, "given"},
		{"从URL推断", Target{URL: "https://www.instagram.com/bruno.casasdotejo/reels/"}, "bruno.casasdotejo"},
		{"从文件名推断", Target{HTMLFile: "/tmp/saved/someone.html"}, "someone"},
		{"无法推断", Target{URL: "https://www.instagram.com/"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.ResolveUsername())
		})
	}
}

func TestBatchHarvest(t *testing.T) {
	good := writeHTML(t, "someone.html", profileHTML)
	missing := filepath.Join(t.TempDir(), "missing.html")

	tests := []struct {
		name          string
		targets       []Target
		continueOnErr bool
		wantErr       bool
		success       int
		fail          int
		skipped       int
	}{
		{"全部成功", []Target{{HTMLFile: good}, {HTMLFile: good, Username: "other"}}, false, false, 2, 0, 0},
		{"失败后继续", []Target{{HTMLFile: missing}, {HTMLFile: good}}, true, false, 1, 1, 0},
		{"失败后停止", []Target{{HTMLFile: missing}, {HTMLFile: good}}, false, true, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig(t)
			h := NewHarvester(config, models.ModeFile, nil, WithStdout(&bytes.Buffer{}))

			summary, err := NewBatchHarvester(h, 0, tt.continueOnErr, 1).HarvestBatch(context.Background(), tt.targets)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, summary)
			assert.Equal(t, len(tt.targets), summary.TotalTargets)
			assert.Equal(t, tt.success, summary.SuccessCount)
			assert.Equal(t, tt.fail, summary.FailCount)
			assert.Equal(t, tt.skipped, summary.SkippedCount)
			assert.Equal(t, tt.success*len(profileURLs), summary.TotalURLs)
		})
	}
}

// cancelSink 首次写出时取消运行
type cancelSink struct {
	cancel context.CancelFunc
}

func (s *cancelSink) Name() string { return "clipboard" }

func (s *cancelSink) Write(ctx context.Context, p export.Payload) (string, error) {
	s.cancel()
	return "clipboard", nil
}

func TestBatchHarvest_InterruptedDuringDelay(t *testing.T) {
	good := writeHTML(t, "someone.html", profileHTML)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := testConfig(t)
	config.Output.Clipboard = true
	h := NewHarvester(config, models.ModeFile, nil,
		WithStdout(&bytes.Buffer{}),
		WithClipboard(&cancelSink{cancel: cancel}))

	targets := []Target{{HTMLFile: good}, {HTMLFile: good, Username: "other"}}
	summary, err := NewBatchHarvester(h, time.Minute, false, 1).HarvestBatch(ctx, targets)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, 1, summary.SkippedCount)
	assert.Equal(t, len(profileURLs), summary.TotalURLs)
}
