package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/ReelScroll/internal/crawlers"
	"github.com/RecoveryAshes/ReelScroll/internal/models"
	"github.com/RecoveryAshes/ReelScroll/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀, 如 REELSCROLL_EXTRACT_TARGET_COUNT
const EnvPrefix = "REELSCROLL"

// Config 应用程序配置
type Config struct {
	Extract  models.ExtractConfig `mapstructure:"extract"`
	Browser  BrowserConfig        `mapstructure:"browser"`
	Site     SiteConfig           `mapstructure:"site"`
	Logging  LoggingConfig        `mapstructure:"logging"`
	Output   OutputConfig         `mapstructure:"output"`
	Resource ResourceConfig       `mapstructure:"resource"`
	Headers  map[string]string    `mapstructure:"headers"`
}

// BrowserConfig 浏览器与抓取配置
type BrowserConfig struct {
	Headless     bool   `mapstructure:"headless"`
	WaitTime     int    `mapstructure:"wait_time"`     // 页面加载后额外等待(秒)
	FetchTimeout int    `mapstructure:"fetch_timeout"` // 静态抓取超时(秒)
	UserAgent    string `mapstructure:"user_agent"`
}

// SiteConfig 目标站点配置
type SiteConfig struct {
	Origin           string `mapstructure:"origin"`
	ItemMarker       string `mapstructure:"item_marker"`
	LandmarkSelector string `mapstructure:"landmark_selector"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir        string `mapstructure:"base_dir"`
	Console        bool   `mapstructure:"console"`         // 打印编号列表
	Clipboard      bool   `mapstructure:"clipboard"`       // 复制到剪贴板
	StructuredFile bool   `mapstructure:"structured_file"` // 写出结构化文件
	Report         bool   `mapstructure:"report"`          // 写出JSON报告
}

// ResourceConfig 资源检查配置
type ResourceConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	SafetyReserveMB  int  `mapstructure:"safety_reserve_mb"`
	BrowserMemoryMB  int  `mapstructure:"browser_memory_mb"`
	CPULoadThreshold int  `mapstructure:"cpu_load_threshold"`
	MaxBrowsers      int  `mapstructure:"max_browsers"`
}

// LoadConfig 加载配置文件
// 优先级: 默认值 < 配置文件 < 环境变量(.env会先被载入) < 命令行
func LoadConfig(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if config.Headers == nil {
		config.Headers = make(map[string]string)
	}

	return &config, nil
}

// Settings 返回合并后的全部配置项 (用于 config show / config init)
func Settings(configPath string) (map[string]interface{}, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return v.AllSettings(), nil
}

// DefaultSettings 返回全部默认配置项
func DefaultSettings() map[string]interface{} {
	v := viper.New()
	setDefaults(v)
	return v.AllSettings()
}

// newViper 创建并读取配置
func newViper(configPath string) (*viper.Viper, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".reelscroll"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在,使用默认值
	} else {
		utils.Debugf("使用配置文件: %s", v.ConfigFileUsed())
	}

	return v, nil
}

// loadDotEnv 载入.env文件,文件不存在时忽略
// 已存在的环境变量不会被覆盖
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("读取环境文件失败: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("解析环境文件失败 [%s]: %w", path, err)
	}
	return nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	defaults := models.DefaultExtractConfig()

	// 提取配置默认值
	v.SetDefault("extract.target_count", defaults.TargetCount)
	v.SetDefault("extract.max_attempts", defaults.MaxAttempts)
	v.SetDefault("extract.no_growth_limit", defaults.NoGrowthLimit)
	v.SetDefault("extract.mutation_delay_ms", defaults.MutationDelayMs)
	v.SetDefault("extract.enable_mutation", defaults.EnableMutation)
	v.SetDefault("extract.parallel_scan", false)

	// 浏览器配置默认值
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.wait_time", 3)
	v.SetDefault("browser.fetch_timeout", 30)
	v.SetDefault("browser.user_agent", DefaultUserAgent)

	// 站点配置默认值
	v.SetDefault("site.origin", crawlers.DefaultOrigin)
	v.SetDefault("site.item_marker", crawlers.DefaultItemMarker)
	v.SetDefault("site.landmark_selector", crawlers.DefaultLandmarkSelector)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.base_dir", "output")
	v.SetDefault("output.console", true)
	v.SetDefault("output.clipboard", true)
	v.SetDefault("output.structured_file", true)
	v.SetDefault("output.report", true)

	// 资源检查默认值
	v.SetDefault("resource.enabled", true)
	v.SetDefault("resource.safety_reserve_mb", 512)
	v.SetDefault("resource.browser_memory_mb", 300)
	v.SetDefault("resource.cpu_load_threshold", 0)
	v.SetDefault("resource.max_browsers", 4)
}

// Overrides 命令行覆盖项,nil表示未指定
type Overrides struct {
	TargetCount     *int
	MaxAttempts     *int
	NoGrowthLimit   *int
	MutationDelayMs *int
	EnableMutation  *bool
	ParallelScan    *bool
	Headless        *bool
	WaitTime        *int
	OutputDir       *string
	Clipboard       *bool
	StructuredFile  *bool
	LogLevel        *string
}

// Apply 合并命令行参数到配置,命令行优先于配置文件
func (c *Config) Apply(o Overrides) {
	if o.TargetCount != nil {
		c.Extract.TargetCount = *o.TargetCount
	}
	if o.MaxAttempts != nil {
		c.Extract.MaxAttempts = *o.MaxAttempts
	}
	if o.NoGrowthLimit != nil {
		c.Extract.NoGrowthLimit = *o.NoGrowthLimit
	}
	if o.MutationDelayMs != nil {
		c.Extract.MutationDelayMs = *o.MutationDelayMs
	}
	if o.EnableMutation != nil {
		c.Extract.EnableMutation = *o.EnableMutation
	}
	if o.ParallelScan != nil {
		c.Extract.ParallelScan = *o.ParallelScan
	}
	if o.Headless != nil {
		c.Browser.Headless = *o.Headless
	}
	if o.WaitTime != nil {
		c.Browser.WaitTime = *o.WaitTime
	}
	if o.OutputDir != nil {
		c.Output.BaseDir = *o.OutputDir
	}
	if o.Clipboard != nil {
		c.Output.Clipboard = *o.Clipboard
	}
	if o.StructuredFile != nil {
		c.Output.StructuredFile = *o.StructuredFile
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
}

// LogConfig 转换为日志系统配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// PageWait 页面加载后的额外等待
func (c *Config) PageWait() time.Duration {
	return time.Duration(c.Browser.WaitTime) * time.Second
}

// FetchTimeout 静态抓取超时
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Browser.FetchTimeout) * time.Second
}

// ResourceMonitorConfig 转换为资源检查配置
func (c *Config) ResourceMonitorConfig() crawlers.ResourceMonitorConfig {
	return crawlers.ResourceMonitorConfig{
		SafetyReserveMB:  c.Resource.SafetyReserveMB,
		BrowserMemoryMB:  c.Resource.BrowserMemoryMB,
		CPULoadThreshold: c.Resource.CPULoadThreshold,
		MaxBrowsers:      c.Resource.MaxBrowsers,
	}
}
