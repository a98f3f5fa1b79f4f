// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
Package server 管理 HTTP/HTTPS 服务器的生命周期。

Manager 封装 net/http.Server：Start 非阻塞监听，配置了证书时
使用 tlsutil 的加固 TLS 配置；Wait 在上下文结束或服务异常时返回；
Shutdown 按 ShutdownTimeout 优雅关闭。tuneflow serve 用它分别
承载 API 端口与 /metrics 端口。
*/
package server
