// Package crawlers 提供无限滚动页面中条目URL的发现、去重与排序
//
// # 概述
//
// crawlers包把"页面"抽象为Page接口(只读查询 + 加载更多 + 等待),
// 在其之上实现按优先级分层的候选项提取器和滚动驱动器。
// 页面来源有三种:go-rod驱动的实时浏览器页面、Colly单次抓取的静态HTML、本地HTML文件。
//
// # 核心组件
//
// ## Extractor
//
// 对一个页面快照依次扫描4个渠道,层级越小优先级越高:
//   - 0 viewport: 完整位于视口内的链接
//   - 1 main_content: 位于 main / [role="main"] / article 内的链接
//   - 2 direct_link: 任意位置的匹配链接
//   - 3 script_payload: 内联脚本文本中的匹配(仅在前面各层未达到目标数量时查询)
//
// 同一规范化URL只保留层级最小的那次命中。单个渠道失败或panic只视为该渠道无结果。
//
//	extractor := NewExtractor(ExtractorOptions{ItemMarker: "/reel/", TargetCount: 100})
//	candidates := extractor.Scan(ctx, page, accumulator)
//
// ## ScrollDriver
//
// 状态机: 采样 -> 加载更多 -> 等待 -> 采样 ... -> 收尾。
// 以下任一条件满足即收尾:
//   - 累积数量达到TargetCount
//   - 关闭了滚动(EnableMutation=false),只采样一次
//   - 连续NoGrowthLimit次采样无新增
//   - 滚动次数达到MaxAttempts
//   - ctx被取消(返回部分结果,不是错误)
//
// 收尾时按 (层级, 结构位置) 排序,截断到TargetCount并规范化。
//
//	driver := NewScrollDriver(page, extractor, config)
//	result, err := driver.Run(ctx)
//
// ## Accumulator
//
// 规范化URL到首次发现候选项的映射,只增不改,大小单调不减。
//
// ## Normalize
//
// 去掉第一个'?'起的全部内容并保证以'/'结尾,幂等。
//
// ## 页面实现
//
//   - DynamicPage: go-rod无头浏览器,RequestMore滚动到底部
//   - HTMLPage: goquery解析的静态文档,没有几何信息,RequestMore无效果
//   - StaticFetcher: Colly抓取目标URL并返回HTMLPage,支持gzip/deflate/brotli
//
// ## ResourceMonitor
//
// 启动浏览器前用gopsutil检查可用内存和CPU负载,并计算批量模式下的并发浏览器数。
//
//	monitor := NewResourceMonitor(ResourceMonitorConfig{SafetyReserveMB: 512, CPULoadThreshold: 90})
//	if _, err := monitor.Preflight(); err != nil { /* 资源不足 */ }
package crawlers
