// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 TuneFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / CallerContext，
    自动注册 Cleanup 防止泄漏

# 子包

  - testutil/mocks: MockStore，包装任意 tuning.Store，
    支持版本冲突注入、错误注入与调用计数
  - testutil/fixtures: 标准参数目录与策略目录，以及 Seed 辅助函数

# 使用示例

	ctx := testutil.CallerContext(t, "tester")
	store := mocks.NewMockStore(store.NewMemoryStore()).WithConflicts(1)
	fixtures.Seed(t, store)
*/
package testutil
