package crawlers

import (
	"context"
	"errors"
	"time"

	"github.com/RecoveryAshes/ReelScroll/internal/models"
	"github.com/rs/zerolog/log"
)

// driverState 驱动状态
type driverState int

const (
	stateSampling driverState = iota
	stateMutating
	stateFinalizing
)

// PassEvent 每次采样完成后的进度事件
type PassEvent struct {
	Pass         int
	Added        int
	Total        int
	AttemptsUsed int
	MaxAttempts  int
}

// ExtractionRun 单次运行的临时状态,Run结束即丢弃
type ExtractionRun struct {
	attemptsUsed        int
	consecutiveNoGrowth int
	passes              int
	mutationErrors      int
	lastSize            int
	passSizes           []int
}

// recordPass 记录一次采样后的集合大小,更新无增长计数
func (r *ExtractionRun) recordPass(size int) {
	r.passes++
	if size > r.lastSize {
		r.consecutiveNoGrowth = 0
	} else {
		r.consecutiveNoGrowth++
	}
	r.lastSize = size
	r.passSizes = append(r.passSizes, size)
}

// Result 驱动运行结果
type Result struct {
	URLs       []string           // 规范化、排序、截断后的URL
	Candidates []models.Candidate // 与URLs一一对应的原始候选项
	Stats      models.RunStats
}

// IsEmpty 未发现任何条目(合法的终止状态,不是错误)
func (r *Result) IsEmpty() bool {
	return len(r.URLs) == 0
}

// ScrollDriver 滚动驱动器
// 职责: 交替执行"采样 -> 加载更多 -> 等待",判断收敛,输出最终有序URL列表
type ScrollDriver struct {
	page      Page
	extractor *Extractor
	config    models.ExtractConfig

	// 每次采样后回调(可选)
	onPass func(PassEvent)
}

// NewScrollDriver 创建滚动驱动器
func NewScrollDriver(page Page, extractor *Extractor, config models.ExtractConfig) *ScrollDriver {
	return &ScrollDriver{
		page:      page,
		extractor: extractor,
		config:    config,
	}
}

// OnPass 设置采样回调
func (d *ScrollDriver) OnPass(fn func(PassEvent)) {
	d.onPass = fn
}

// Run 执行驱动循环
// 配置无效时在采样前返回 *models.ConfigurationError
// ctx取消只会提前收敛,返回已累积的部分结果
func (d *ScrollDriver) Run(ctx context.Context) (*Result, error) {
	if err := d.config.Validate(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	acc := NewAccumulator()
	run := &ExtractionRun{passSizes: make([]int, 0)}
	state := stateSampling
	var reason models.StopReason

	for state != stateFinalizing {
		switch state {
		case stateSampling:
			candidates := d.extractor.Scan(ctx, d.page, acc)
			added := acc.Merge(candidates)
			run.recordPass(acc.Len())

			log.Debug().
				Int("pass", run.passes).
				Int("added", added).
				Int("total", acc.Len()).
				Int("no_growth", run.consecutiveNoGrowth).
				Msg("采样完成")

			if d.onPass != nil {
				d.onPass(PassEvent{
					Pass:         run.passes,
					Added:        added,
					Total:        acc.Len(),
					AttemptsUsed: run.attemptsUsed,
					MaxAttempts:  d.config.MaxAttempts,
				})
			}

			state, reason = d.next(acc, run)

		case stateMutating:
			run.attemptsUsed++
			failed := false
			if err := d.page.RequestMore(ctx); err != nil {
				// 变更失败等同于本次无增长
				failed = true
				log.Debug().Err(err).Int("attempt", run.attemptsUsed).Msg("加载更多失败")
			}

			if err := d.page.Wait(ctx, d.config.MutationDelay()); err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					log.Info().Int("attempt", run.attemptsUsed).Msg("运行被取消,输出已累积结果")
					state, reason = stateFinalizing, models.StopAborted
					continue
				}
				// 等待失败同样按本次滚动失败处理,继续采样
				failed = true
				log.Debug().Err(err).Int("attempt", run.attemptsUsed).Msg("等待页面失败")
			}
			if failed {
				run.mutationErrors++
			}
			state = stateSampling
		}
	}

	result := d.finalize(acc)
	result.Stats = models.RunStats{
		Passes:         run.passes,
		AttemptsUsed:   run.attemptsUsed,
		MutationErrors: run.mutationErrors,
		Discovered:     acc.Len(),
		Returned:       len(result.URLs),
		PassSizes:      run.passSizes,
		TierCounts:     acc.TierCounts(),
		StopReason:     reason,
		Duration:       time.Since(startTime).Seconds(),
	}
	return result, nil
}

// next 采样后的状态转移
func (d *ScrollDriver) next(acc *Accumulator, run *ExtractionRun) (driverState, models.StopReason) {
	switch {
	case acc.Len() >= d.config.TargetCount:
		return stateFinalizing, models.StopTargetReached
	case !d.config.EnableMutation:
		return stateFinalizing, models.StopSinglePass
	case run.consecutiveNoGrowth >= d.config.NoGrowthLimit:
		return stateFinalizing, models.StopConverged
	case run.attemptsUsed >= d.config.MaxAttempts:
		return stateFinalizing, models.StopBudget
	default:
		return stateMutating, ""
	}
}

// finalize 排序、规范化、截断
func (d *ScrollDriver) finalize(acc *Accumulator) *Result {
	sorted := acc.Sorted()
	if len(sorted) > d.config.TargetCount {
		sorted = sorted[:d.config.TargetCount]
	}

	urls := make([]string, 0, len(sorted))
	for _, c := range sorted {
		urls = append(urls, Normalize(c.URL))
	}

	return &Result{URLs: urls, Candidates: sorted}
}
