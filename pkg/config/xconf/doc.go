// Package xconf 基于 koanf 加载 YAML/JSON 配置文件。
//
// 只负责读取、解析和解码，不做必填校验、默认值注入或环境变量覆盖。
// 默认值的惯用做法是先填好结构体再 Unmarshal，未出现的键保持原值：
//
//	cfg := DefaultConfig()
//	if err := xconf.Load("xipfilter.yaml", &cfg); err != nil {
//	    return err
//	}
//
// Reload 解析成功后原子替换内部的 koanf 实例，可与 Unmarshal 并发调用。
package xconf
