package config

import (
	"fmt"
	"os"

	"github.com/go-micro/plugins/v4/config/encoder/toml"
	"go-micro.dev/v4/config"
	"go-micro.dev/v4/config/reader"
	"go-micro.dev/v4/config/reader/json"
	"go-micro.dev/v4/config/source"
	"go-micro.dev/v4/config/source/file"
)

// BatchConfig 批处理默认配置，CLI的命令行参数可以覆盖
type BatchConfig struct {
	Workers            int
	DelaySeconds       float64
	TimeoutSeconds     float64
	UserAgent          string
	AnalyzeRobots      bool
	CheckpointInterval int
	StateDir           string
	OutputDir          string
	ShowProgress       bool
	ProxyURLs          []string
	Limits             []LimitConfig
}

// LimitConfig 整体限速的一条配置：每EventDur秒允许EventCount个请求
// 多条配置叠加生效，如"每秒1个且每分钟20个"
type LimitConfig struct {
	EventCount int
	EventDur   int // seconds
	Bucket     int
}

// StorageConfig 可选的MySQL结果落库配置，DSN为空时不启用
type StorageConfig struct {
	SqlURL     string
	Table      string
	BatchCount int
}

func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Workers:            5,
		DelaySeconds:       1.0,
		TimeoutSeconds:     30.0,
		UserAgent:          "PoliteFetch/1.0 (Ethical Web Scraper)",
		AnalyzeRobots:      true,
		CheckpointInterval: 10,
		StateDir:           "./batch_states",
		OutputDir:          "./batch_results",
		ShowProgress:       true,
	}
}

func GetCfg() (config.Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	// load config
	enc := toml.NewEncoder()
	cfg, err := config.NewConfig(config.WithReader(json.NewReader(reader.WithEncoder(enc))))
	if err != nil {
		return nil, err
	}
	configPath := fmt.Sprintf("%s/config.toml", dir)
	err = cfg.Load(file.NewSource(
		file.WithPath(configPath),
		source.WithEncoder(enc),
	))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadBatchConfig 读取config.toml的Batch段，文件不存在时用默认值
func LoadBatchConfig() (BatchConfig, error) {
	batchCfg := DefaultBatchConfig()
	if _, err := os.Stat("config.toml"); os.IsNotExist(err) {
		return batchCfg, nil
	}
	cfg, err := GetCfg()
	if err != nil {
		return batchCfg, err
	}
	if err := cfg.Get("Batch").Scan(&batchCfg); err != nil {
		return batchCfg, err
	}
	return batchCfg, nil
}

// LoadStorageConfig 读取config.toml的Storage段
func LoadStorageConfig() (StorageConfig, error) {
	var storageCfg StorageConfig
	if _, err := os.Stat("config.toml"); os.IsNotExist(err) {
		return storageCfg, nil
	}
	cfg, err := GetCfg()
	if err != nil {
		return storageCfg, err
	}
	if err := cfg.Get("Storage").Scan(&storageCfg); err != nil {
		return storageCfg, err
	}
	return storageCfg, nil
}
