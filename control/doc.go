// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
Package control 提供辩论过程的标量控制状态更新器。

# 概述

所有更新函数均为纯函数：给定完整输入向量，返回完整的下一状态，
包内不持有任何跨调用的会话状态。唯一的例外是 DriveState，
它是调用方显式持有的滚动累加器。

# 核心组件

  - UpdateDrive  — 驱动信号 D(t)，事件高斯核加成减去历史衰减，截断到 [0,1]
  - DriveState   — 增量维护历史与累计和的滚动累加器
  - UpdateBias   — 按智能体贡献计算的偏置 B(t)，未匹配的智能体被跳过
  - UpdateGlobal — 混合权重 ω 的前向欧拉积分与全局状态 G(t)
  - Tick         — 依次执行以上三步并返回完整 State

# 配置

Policy 暴露全部公式常量，DefaultPolicy 保持历史数值行为。
*/
package control
