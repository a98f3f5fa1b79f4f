// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
Package migration 管理调优目录的数据库 Schema，基于 golang-migrate，
支持 PostgreSQL、MySQL 与 SQLite。

各方言的 SQL 文件通过 embed.FS 内嵌在 migrations/<dialect>/ 下，
表结构与 store.GormStore 的行模型一一对应：

  - 000001 tuning_parameters / tuning_adjustment_history / tuning_strategies
  - 000002 tuning_performance_samples / tuning_agent_feedback

SQLite 使用纯 Go 驱动 glebarez/go-sqlite，无需 cgo。

CLI 把 Migrator 的操作渲染为终端输出，由 `tuneflow migrate <cmd>` 调用。
*/
package migration
