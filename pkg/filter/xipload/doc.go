// Package xipload 负责把外部数据导入 xipfilter 范围表，以及持久化构建好的表。
//
// # 数据来源
//
//   - CSV：[LoadCSV]、[LoadCSVFiles]，每行 "start,end,name" 或 "cidr,name"
//   - JSON 文件：[ReadFile] / [WriteFile]，格式见 xipfilter 包文档
//   - 对象存储：[LoadBucketCSV] 读取 bucket 前缀下的所有 CSV 对象，[NewS3Bucket] 创建 S3 客户端
//   - Redis 快照：[RedisStore] 在多个进程之间共享同一张表
//
// 这些来源都实现了 [Source]，可交给 xipreload 定时或在文件变化时重新加载。
//
// # 错误处理
//
// 导入时表的报告模式决定行为：严格模式在第一行错误时返回（带 "来源:行号"），
// 宽容模式把错误交给表的 Reporter 并继续，被拒绝的行计入 [Stats].Rejected。
package xipload
