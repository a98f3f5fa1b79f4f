// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 TuneFlow HTTP API 的请求处理器实现。

# 概述

handlers 包把 tuning.Service 暴露为 JSON 接口：参数调整、策略选择、
敏感度分析、反馈评估、状态控制环与平衡审计，另含健康检查以及统一的
响应/错误处理。所有 Handler 均遵循标准 net/http 接口，路由使用
Go 1.22+ 的方法模式注册到 http.ServeMux。

# 核心类型

  - TuningHandler    — 调整、策略、敏感度、反馈、样本记录、调优循环
  - ControlHandler   — drive / bias / global / tick 与平衡审计
  - HealthHandler    — 服务健康检查（/health, /ready, /version）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码与字节数

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求解码：DecodeJSONBody（1 MB 限制 + 拒绝未知字段）
  - types.ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 可扩展健康检查：RegisterCheck 注册数据库、Redis 等检查
*/
package handlers
