// Copyright (c) TuneFlow Authors.
// Licensed under the MIT License.

/*
包 balance 对最终合成输出做事后的平衡审计。

统计各半球标签（left/right/central）的陈述占比，并在输出文本中
不区分大小写地检查分析型与创造型关键词是否出现（按出现与否计数，
不按次数）。相似度为 1 - |a-c| / max(a+c, 1)，超过共识阈值即认为
达成共识；左右占比差小于容差即认为平衡。阈值与关键词集合均可通过
Policy 注入。
*/
package balance
