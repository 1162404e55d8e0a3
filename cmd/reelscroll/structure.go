package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/ReelScroll/internal/crawlers"
	"github.com/RecoveryAshes/ReelScroll/internal/export"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var (
	structureInput         string
	structureFromClipboard bool
	structureUser          string
	structureOutput        string
	structureName          string
	structureCSV           bool

	listSelect string
	listCSV    bool
)

var structureCmd = &cobra.Command{
	Use:   "structure [url...]",
	Short: "由URL列表生成结构化URL文件",
	Long: `由URL列表生成结构化URL文件 (带注释头部的 "N. url" 格式)

URL来源可以组合使用:
  • 命令行参数 (完整URL、/reel/ID 或 ID)
  • --input 文本文件 (编号列表或每行一个URL)
  • --from-clipboard 剪贴板内容 (例如之前复制的提取结果)

示例:
  reelscroll structure --from-clipboard --user someone
  reelscroll structure -i urls.txt --user someone --csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		readers := make([]io.Reader, 0, 2)
		if structureInput != "" {
			f, err := os.Open(structureInput)
			if err != nil {
				return fmt.Errorf("打开输入文件失败: %w", err)
			}
			defer f.Close()
			readers = append(readers, f)
		}
		if structureFromClipboard {
			text, err := clipboard.ReadAll()
			if err != nil {
				return fmt.Errorf("%w: %v", export.ErrSinkUnavailable, err)
			}
			readers = append(readers, strings.NewReader(text))
		}

		urls, err := collectURLs(args, readers, appConfig.Site.Origin, appConfig.Site.ItemMarker)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("未找到任何有效的条目URL")
		}

		dir := structureOutput
		if dir == "" {
			dir = filepath.Join(appConfig.Output.BaseDir, userDir(structureUser))
		}
		payload := export.Payload{Username: structureUser, URLs: urls, GeneratedAt: time.Now()}

		path, err := export.NewFileSink(dir, structureName).Write(context.Background(), payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ 已生成结构化文件: %s (%d 条)\n", path, len(urls))

		if structureCSV {
			csvPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".csv"
			if err := writeCSVFile(csvPath, export.Entries(urls)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ 已生成CSV文件: %s\n", csvPath)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list <file>",
	Short: "列出结构化文件中的条目",
	Long: `列出结构化URL文件 (或 structure --csv 生成的CSV) 中的条目

--select 选择部分条目:
  all        全部 (默认)
  1,3,5      指定编号
  2-5,8      范围与编号组合`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := readEntries(args[0], appConfig.Site.ItemMarker)
		if err != nil {
			return err
		}

		indices, err := export.ParseSelection(listSelect, export.MaxIndex(entries))
		if err != nil {
			return err
		}
		return renderList(cmd.OutOrStdout(), export.SelectEntries(entries, indices), listCSV)
	},
}

// collectURLs 合并参数与文本来源中的URL,按首次出现顺序去重并规范化
func collectURLs(args []string, readers []io.Reader, origin, marker string) ([]string, error) {
	seen := make(map[string]bool)
	urls := make([]string, 0)

	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.ContainsAny(raw, " \t") {
			return
		}
		key := crawlers.CanonicalKey(raw, origin, marker)
		if key == "" || !crawlers.HasMarker(key, marker) || seen[key] {
			return
		}
		seen[key] = true
		urls = append(urls, key)
	}

	for _, arg := range args {
		add(arg)
	}
	for _, r := range readers {
		entries, err := export.ParseNumbered(r, marker)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			add(e.URL)
		}
	}
	return urls, nil
}

// readEntries 按扩展名读取结构化文件或CSV
func readEntries(path, marker string) ([]export.Entry, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("打开CSV文件失败: %w", err)
		}
		defer f.Close()
		return export.ReadCSV(f)
	}
	return export.ReadStructuredFile(path, marker)
}

// renderList 输出条目
func renderList(w io.Writer, entries []export.Entry, asCSV bool) error {
	if asCSV {
		return export.WriteCSV(w, entries)
	}
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVFile(path string, entries []export.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建CSV文件失败: %w", err)
	}
	defer f.Close()
	return export.WriteCSV(f, entries)
}

func userDir(user string) string {
	if user == "" {
		return "unknown"
	}
	return user
}

func init() {
	structureCmd.Flags().StringVarP(&structureInput, "input", "i", "", "输入文本文件")
	structureCmd.Flags().BoolVar(&structureFromClipboard, "from-clipboard", false, "从剪贴板读取URL")
	structureCmd.Flags().StringVar(&structureUser, "user", "", "用户名 (写入文件头部和文件名)")
	structureCmd.Flags().StringVarP(&structureOutput, "output", "o", "", "输出目录 (默认 <output>/<user>)")
	structureCmd.Flags().StringVar(&structureName, "name", "", "文件名 (默认 {user}_structured_urls_{时间}.txt)")
	structureCmd.Flags().BoolVar(&structureCSV, "csv", false, "同时生成CSV文件")

	listCmd.Flags().StringVarP(&listSelect, "select", "s", "all", "选择条目,如 2-5,8")
	listCmd.Flags().BoolVar(&listCSV, "csv", false, "以CSV格式输出")

	rootCmd.AddCommand(structureCmd)
	rootCmd.AddCommand(listCmd)
}
