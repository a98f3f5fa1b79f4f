// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 TuneFlow 服务端程序入口。

# 概述

cmd/tuneflow 是 TuneFlow 的可执行入口，提供 HTTP API 服务、数据库迁移、
健康检查和版本查询等子命令。程序支持 YAML 配置文件加载、环境变量覆盖、
结构化日志（zap）、Prometheus 指标采集与 OpenTelemetry 追踪。

# 核心类型

  - Server         — 主服务器，管理存储后端、HTTP 与 Metrics 双端口及优雅关闭
  - Middleware     — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - Authenticator  — API Key 与 JWT（HS256 / RS256）身份认证

# 主要能力

  - 子命令：serve（启动服务，可 --seed 导入目录）、migrate、version、health
  - 中间件链：Recovery、RequestID、OTelTracing、SecurityHeaders、RequestLogger、
    MetricsMiddleware、CORS、RateLimiter（基于 IP）、Authenticate
  - 存储选择：memory / database（自动迁移）/ redis
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics → 关闭后端 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
