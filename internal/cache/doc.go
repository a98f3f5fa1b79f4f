// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
Package cache 管理 Redis 连接，供 store.RedisStore 使用。

Manager 在创建时 Ping 确认连通，后台按间隔做健康检查，
GetStats 暴露 go-redis 连接池统计。TLSEnabled 时使用
tlsutil.DefaultTLSConfig 的加固配置。
*/
package cache
