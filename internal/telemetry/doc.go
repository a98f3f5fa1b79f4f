// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

// Package telemetry 初始化 OpenTelemetry SDK。tuning.Service 的每个操作
// 都会生成 span，启用遥测后经 OTLP gRPC 导出；禁用时保持 noop。
package telemetry
