/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
调研循环、网络搜索、知识库与 LLM 四大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
工厂注册到调用方提供的 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram 等
    Prometheus 向量指标，按业务域分组管理。nil 接收者上的
    记录方法是空操作，指标采集因此始终是可选项。

# 主要能力

  - 调研指标：运行总数与耗时、反思循环总数、已派发查询数，
    按 status/kind 分组。
  - 搜索指标：网络搜索失败计数。
  - 知识库指标：索引缓存命中与未命中计数、嵌入请求耗时，
    按 backend/provider 分组。
  - LLM 指标：请求总数与耗时，按 provider/status 分组。
*/
package metrics
