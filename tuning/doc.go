// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
Package tuning 实现自适应参数调优核心：参数目录、调整算法、策略选择、
敏感度分析与反馈评估。

# 概述

参数是带边界的数值旋钮，可选离散化。Adjuster 以梯度、随机搜索或
探索/利用三种算法提出新值，随后统一执行截断、离散吸附与锁定检查，
每次变更追加一条调整历史。Adjuster 从不修改输入目录。

# 核心组件

  - Parameter / Strategy        — 由构造函数强制不变量的强类型记录
  - Adjuster                    — AdjustScoped（仅策略关联参数）与 AdjustAll（全部未锁定参数）
  - Selector                    — 按情境得分排序活跃策略，同分保持目录顺序
  - SensitivityAnalyzer         — 按回溯窗口内平均 |Δ性能| 分级
  - FeedbackEvaluator           — 计算差距、状态与独立的改进建议
  - Policy                      — 全部启发式常量的可注入配置
  - Store                       — 持久化契约，ApplyAdjustments 带版本号乐观并发
  - Service                     — 身份校验、请求校验、查找、计算与乐观写入的编排

# 并发

纯计算组件无共享可变状态。Service 通过版本号比较写入目录，
冲突时重新读取并重算，超过重试次数返回 VERSION_CONFLICT。
随机源可注入且可设种子，测试可完全复现。
*/
package tuning
