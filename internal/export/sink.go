package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/ReelScroll/internal/utils"
	"github.com/atotto/clipboard"
)

// ErrSinkUnavailable 输出目标在当前环境不可用(例如没有系统剪贴板)
var ErrSinkUnavailable = errors.New("输出目标不可用")

// Payload 一次投递的内容
type Payload struct {
	Username    string
	URLs        []string
	GeneratedAt time.Time
}

// Sink 输出目标
type Sink interface {
	Name() string
	// Write 写出内容,返回可读的位置描述
	Write(ctx context.Context, p Payload) (string, error)
}

// ConsoleSink 打印编号列表
type ConsoleSink struct {
	w     io.Writer
	title string
}

// NewConsoleSink 创建控制台输出,title为空时不打印标题
func NewConsoleSink(w io.Writer, title string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: w, title: title}
}

// Name 实现Sink
func (s *ConsoleSink) Name() string { return "console" }

// Write 实现Sink
func (s *ConsoleSink) Write(ctx context.Context, p Payload) (string, error) {
	if s.title != "" {
		if _, err := fmt.Fprintln(s.w, s.title); err != nil {
			return "", err
		}
	}
	if _, err := fmt.Fprintln(s.w, FormatNumbered(p.URLs)); err != nil {
		return "", fmt.Errorf("写入控制台失败: %w", err)
	}
	return "stdout", nil
}

// ClipboardSink 复制编号列表到系统剪贴板
type ClipboardSink struct {
	write       func(string) error
	unsupported bool
}

// NewClipboardSink 使用系统剪贴板
func NewClipboardSink() *ClipboardSink {
	return &ClipboardSink{
		write:       clipboard.WriteAll,
		unsupported: clipboard.Unsupported,
	}
}

// Name 实现Sink
func (s *ClipboardSink) Name() string { return "clipboard" }

// Write 实现Sink
func (s *ClipboardSink) Write(ctx context.Context, p Payload) (string, error) {
	if s.unsupported {
		return "", fmt.Errorf("%w: 系统剪贴板不受支持", ErrSinkUnavailable)
	}
	if err := s.write(FormatNumbered(p.URLs)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	return "clipboard", nil
}

// FileSink 写出结构化文件
type FileSink struct {
	dir      string
	filename string
}

// NewFileSink 创建文件输出,filename为空时使用默认文件名
func NewFileSink(dir, filename string) *FileSink {
	return &FileSink{dir: dir, filename: filename}
}

// Name 实现Sink
func (s *FileSink) Name() string { return "file" }

// Write 实现Sink
func (s *FileSink) Write(ctx context.Context, p Payload) (string, error) {
	generated := p.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	filename := s.filename
	if filename == "" {
		filename = StructuredFilename(p.Username, generated)
	}

	path := filename
	if !filepath.IsAbs(filename) && s.dir != "" {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return "", fmt.Errorf("创建输出目录失败: %w", err)
		}
		path = filepath.Join(s.dir, filename)
	}

	content := FormatStructured(p.Username, p.URLs, generated)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("写入结构化文件失败: %w", err)
	}

	utils.Debugf("保存结构化文件: %s", path)
	return path, nil
}

// DeliveryReport 投递结果
type DeliveryReport struct {
	Locations    map[string]string // sink名称 -> 位置
	Failures     map[string]string // sink名称 -> 错误信息
	FallbackUsed bool
}

// Deliver 依次写出到每个sink
// 任何sink失败都不会中断其余sink;有失败时写一次fallback
func Deliver(ctx context.Context, p Payload, sinks []Sink, fallback Sink) DeliveryReport {
	report := DeliveryReport{
		Locations: make(map[string]string),
		Failures:  make(map[string]string),
	}

	for _, sink := range sinks {
		location, err := sink.Write(ctx, p)
		if err != nil {
			report.Failures[sink.Name()] = err.Error()
			if errors.Is(err, ErrSinkUnavailable) {
				utils.Warnf("⚠️  %s 不可用: %v", sink.Name(), err)
			} else {
				utils.Errorf("写出到 %s 失败: %v", sink.Name(), err)
			}
			continue
		}
		report.Locations[sink.Name()] = location
	}

	if len(report.Failures) > 0 && fallback != nil {
		location, err := fallback.Write(ctx, p)
		if err != nil {
			report.Failures[fallback.Name()] = err.Error()
			utils.Errorf("备用输出失败: %v", err)
		} else {
			report.FallbackUsed = true
			report.Locations[fallback.Name()] = location
		}
	}

	return report
}
