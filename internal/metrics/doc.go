// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、
调参、反馈、控制回路与数据库五个维度。

# 核心类型

  - Collector：指标收集器，使用 promauto 注册，按 namespace 隔离，
    并实现 tuning.MetricsRecorder，由 tuning.Service 直接调用。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - 调参指标：调整次数、参数变更数、跳过的缺失参数、乐观锁冲突、策略选择与得分。
  - 反馈指标：按状态统计评估次数，记录最近一次 gap。
  - 控制回路：drive、bias、blend_weight、global 四个状态量的 Gauge。
  - 数据库指标：连接池活跃/空闲连接数、查询耗时。
*/
package metrics
