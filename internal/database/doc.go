// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
包 database 提供基于 GORM 的数据库连接池管理，供 store.GormStore 使用。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB、Ping、GetStats、Close。
  - PoolConfig：连接数、生命周期、健康检查间隔与事务重试退避。
  - StatsObserver：健康检查后接收连接数快照，metrics.Collector 实现了它。

# 主要能力

  - Open/Dialector：按驱动名（postgres、mysql、sqlite）打开数据库。
  - 健康检查：后台定时探活，Close 时停止。
  - 事务：WithTransaction 单次执行；WithTransactionRetry 仅对死锁、
    序列化失败、SQLITE_BUSY 等瞬时错误做指数退避重试，业务错误原样返回。
*/
package database
