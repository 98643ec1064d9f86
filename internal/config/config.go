package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Pension PensionConfig `mapstructure:"pension"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers  []string         `mapstructure:"brokers"`
	Topic    KafkaTopicConfig `mapstructure:"topic"`
	MaxRetry int              `mapstructure:"max_retry"`
}

type KafkaTopicConfig struct {
	PensionEvents string `mapstructure:"pension_events"`
}

// ChainConfig 区块时钟换算常数
// 【说明】块->天/年 的换算是策略常数（近似值），不是测量时间，
// 统一由配置注入，避免在代码里散落硬编码
type ChainConfig struct {
	GenesisTime          string `mapstructure:"genesis_time"`           // RFC3339，高度 0 对应时刻
	BlockIntervalSeconds int    `mapstructure:"block_interval_seconds"` // 出块间隔（秒）
	BlocksPerDay         int64  `mapstructure:"blocks_per_day"`         // 每天区块数
	BlocksPerYear        int64  `mapstructure:"blocks_per_year"`        // 每年区块数
	BaseYear             int    `mapstructure:"base_year"`              // 高度 0 对应的公历年份
}

// PensionConfig 养老金业务策略
type PensionConfig struct {
	AdminID              int64 `mapstructure:"admin_id"`               // 管理员身份ID
	FundWalletID         int64 `mapstructure:"fund_wallet_id"`         // 基金托管钱包ID
	RetirementAge        int   `mapstructure:"retirement_age"`         // 退休年龄门槛
	EarlyPenaltyPercent  int64 `mapstructure:"early_penalty_percent"`  // 提前提取罚金比例（百分比）
	DefaultVestingDays   int64 `mapstructure:"default_vesting_days"`   // 默认归属期（天）
	MinVestingDays       int64 `mapstructure:"min_vesting_days"`       // 归属期下限
	MaxVestingDays       int64 `mapstructure:"max_vesting_days"`       // 归属期上限
	MaxContributionRate  int   `mapstructure:"max_contribution_rate"`  // 缴存比例上限（百分比）
	MinBirthYear         int   `mapstructure:"min_birth_year"`         // 出生年份下限
	MaxBirthYear         int   `mapstructure:"max_birth_year"`         // 出生年份上限
	ConservativeReturnBP int64 `mapstructure:"conservative_return_bp"` // 保守型默认年化（基点）
	BalancedReturnBP     int64 `mapstructure:"balanced_return_bp"`     // 平衡型默认年化（基点）
	AggressiveReturnBP   int64 `mapstructure:"aggressive_return_bp"`   // 进取型默认年化（基点）
	DefaultLimitYear     int   `mapstructure:"default_limit_year"`     // 初始化播种的限额年份
	DefaultEmployeeLimit int64 `mapstructure:"default_employee_limit"` // 初始个人年度缴存上限
	DefaultCatchUpLimit  int64 `mapstructure:"default_catch_up_limit"` // 初始追加缴存上限
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
