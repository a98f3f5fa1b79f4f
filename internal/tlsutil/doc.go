// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

// Package tlsutil 提供加固的 TLS 配置（TLS 1.2+，仅 AEAD 密码套件），
// 用于 HTTPS 服务端与 Redis 连接。
package tlsutil
