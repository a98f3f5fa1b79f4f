// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
Package config 提供 TuneFlow 的配置加载。

配置按 默认值 → YAML 文件 → 环境变量（前缀 TUNEFLOW_）的顺序叠加。
调优、控制环与平衡审计的常量以扁平字段暴露，便于环境变量覆盖，
通过 Policy() 还原为 tuning、control、balance 包的领域类型。
*/
package config
