package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/ReelScroll/internal/core"
	"github.com/RecoveryAshes/ReelScroll/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath config init 默认写出位置
const DefaultConfigPath = "configs/config.yaml"

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "管理配置文件",
	Long: `管理配置文件

配置优先级 (从低到高):
  - 默认值
  - 配置文件 (./configs/config.yaml, ./config.yaml, ~/.reelscroll/config.yaml)
  - 环境变量 (REELSCROLL_EXTRACT_TARGET_COUNT 等, 支持 .env 文件)
  - 命令行参数`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "生成默认配置文件",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			path = DefaultConfigPath
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("配置文件已存在: %s (使用 --force 覆盖)", path)
		}

		settings := core.DefaultSettings()
		settings["headers"] = map[string]string{}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("创建配置文件失败: %w", err)
		}
		defer f.Close()

		fmt.Fprintln(f, "# ReelScroll 配置文件")
		if err := writeYAML(f, settings); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ 已生成配置文件: %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "显示当前生效的配置 (敏感头部已脱敏)",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := core.Settings(configFile)
		if err != nil {
			return err
		}
		if raw, ok := settings["headers"].(map[string]interface{}); ok {
			settings["headers"] = redactSettingsHeaders(raw)
		}
		return writeYAML(cmd.OutOrStdout(), settings)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "验证配置文件和HTTP头部",
	RunE: func(cmd *cobra.Command, args []string) error {
		utils.Info("🔍 验证配置...")

		if err := appConfig.Extract.Validate(); err != nil {
			return fmt.Errorf("配置验证失败: %w", err)
		}

		headerManager, err := core.NewHeaderManager(appConfig.Browser.UserAgent, appConfig.Headers, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}
		if err := headerManager.Validate(); err != nil {
			return fmt.Errorf("配置验证失败: %w", err)
		}

		// 显示合并后的头部(脱敏)
		merged := headerManager.GetMergedHeaders()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "✅ 配置验证通过!")
		fmt.Fprintf(out, "当前有效的HTTP头部 (%d个):\n", len(merged))
		fmt.Fprintf(out, "  %s\n", headerManager.GetSafeHeaders())
		return nil
	},
}

// redactSettingsHeaders 脱敏配置中的头部值
func redactSettingsHeaders(raw map[string]interface{}) map[string]string {
	result := make(map[string]string, len(raw))
	for name, value := range raw {
		result[name] = utils.RedactHeaderValue(name, fmt.Sprint(value))
	}
	return result
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	return enc.Close()
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "覆盖已存在的配置文件")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
