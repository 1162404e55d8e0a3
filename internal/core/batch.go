package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/ReelScroll/internal/models"
	"github.com/RecoveryAshes/ReelScroll/internal/utils"
	"golang.org/x/sync/errgroup"
)

// BatchHarvester 批量提取器
type BatchHarvester struct {
	harvester     *Harvester
	batchDelay    time.Duration
	continueOnErr bool
	workers       int
}

// BatchResult 单个目标的提取结果
type BatchResult struct {
	Target      Target
	Success     bool
	Error       error
	Report      *models.ExtractReport
	ProcessedAt time.Time
	Duration    float64
}

// BatchSummary 批量提取摘要
type BatchSummary struct {
	TotalTargets  int
	SuccessCount  int
	FailCount     int
	EmptyCount    int
	SkippedCount  int
	TotalURLs     int
	TotalDuration float64
	Interrupted   bool // 运行被取消,结果不完整
	Results       []BatchResult
}

// NewBatchHarvester 创建批量提取器
// workers<=1时顺序执行;dynamic模式下并发数受资源检查限制
func NewBatchHarvester(harvester *Harvester, batchDelay time.Duration, continueOnErr bool, workers int) *BatchHarvester {
	if workers < 1 {
		workers = 1
	}
	if harvester.mode == models.ModeDynamic && harvester.monitor != nil {
		if limit := harvester.monitor.MaxConcurrentBrowsers(); workers > limit {
			utils.Warnf("⚠️  并发数 %d 超出资源上限,调整为 %d", workers, limit)
			workers = limit
		}
	}
	return &BatchHarvester{
		harvester:     harvester,
		batchDelay:    batchDelay,
		continueOnErr: continueOnErr,
		workers:       workers,
	}
}

// HarvestBatch 批量提取
// continueOnErr为false时,首个失败后不再启动新的目标
func (bh *BatchHarvester) HarvestBatch(ctx context.Context, targets []Target) (*BatchSummary, error) {
	utils.Infof("🚀 开始批量提取: %d个目标 (并发: %d)", len(targets), bh.workers)

	startTime := time.Now()
	summary := &BatchSummary{
		TotalTargets: len(targets),
		Results:      make([]BatchResult, len(targets)),
	}
	started := make([]bool, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bh.workers)

	var (
		mu       sync.Mutex
		firstErr error
	)

dispatch:
	for i, target := range targets {
		if i > 0 && bh.batchDelay > 0 {
			utils.Infof("⏳ 等待 %v 后处理下一个目标...", bh.batchDelay)
			select {
			case <-gctx.Done():
				break dispatch
			case <-time.After(bh.batchDelay):
			}
		}
		if gctx.Err() != nil {
			break
		}

		i, target := i, target
		g.Go(func() error {
			// 等待并发槽位期间可能已有目标失败
			if gctx.Err() != nil {
				return nil
			}
			started[i] = true
			utils.Infof("==================== [%d/%d] ====================", i+1, len(targets))
			result := bh.harvestOne(gctx, target)
			summary.Results[i] = result

			if result.Error != nil && !bh.continueOnErr {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("目标 %d 提取失败: %w", i+1, result.Error)
				}
				mu.Unlock()
				return firstErr
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, result := range summary.Results {
		if !started[i] {
			summary.Results[i] = BatchResult{Target: targets[i]}
			summary.SkippedCount++
			continue
		}
		if !result.Success {
			summary.FailCount++
			continue
		}
		summary.SuccessCount++
		if result.Report.Empty {
			summary.EmptyCount++
		}
		summary.TotalURLs += len(result.Report.URLs)
	}
	summary.TotalDuration = time.Since(startTime).Seconds()

	bh.printSummary(summary)

	if firstErr != nil {
		return summary, firstErr
	}
	if ctx.Err() != nil {
		summary.Interrupted = true
		utils.Warnf("⚠️  批量提取已中断, 已完成 %d 个目标, 跳过 %d 个", summary.SuccessCount+summary.FailCount, summary.SkippedCount)
	}
	return summary, nil
}

// harvestOne 提取单个目标
func (bh *BatchHarvester) harvestOne(ctx context.Context, target Target) BatchResult {
	startTime := time.Now()
	report, err := bh.harvester.Harvest(ctx, target)

	result := BatchResult{
		Target:      target,
		Success:     err == nil,
		Error:       err,
		Report:      report,
		ProcessedAt: time.Now(),
		Duration:    time.Since(startTime).Seconds(),
	}
	if err != nil {
		utils.Errorf("❌ 提取失败 [%s]: %v", target.Label(), err)
	}
	return result
}

// printSummary 打印批量提取摘要
func (bh *BatchHarvester) printSummary(summary *BatchSummary) {
	utils.Info("==================== 批量提取完成 ====================")
	utils.Infof("总目标数: %d", summary.TotalTargets)
	utils.Infof("✅ 成功: %d (其中无结果: %d)", summary.SuccessCount, summary.EmptyCount)
	utils.Infof("❌ 失败: %d", summary.FailCount)
	if summary.SkippedCount > 0 {
		utils.Infof("⏭️  跳过: %d", summary.SkippedCount)
	}
	utils.Infof("📦 总条目数: %d", summary.TotalURLs)
	utils.Infof("⏱️  总耗时: %.2f秒", summary.TotalDuration)

	for i, result := range summary.Results {
		if result.Error != nil {
			utils.Infof("  [%d] %s: %v", i+1, result.Target.Label(), result.Error)
		}
	}
}
