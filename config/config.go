package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProviderConfig 单个外部搜索源的配置
type ProviderConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BaseURL     string `yaml:"base_url"`
	Token       string `yaml:"token"`
	PerPage     int    `yaml:"per_page"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	MaxQueryLen int    `yaml:"max_query_len"` // 编码后查询串的长度预算
}

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Addr string `yaml:"-"` // 不从配置文件读取，而是在加载后计算
	} `yaml:"server"`
	LLM struct {
		APIKey         string  `yaml:"api_key"`
		Model          string  `yaml:"model"`
		BaseURL        string  `yaml:"base_url"`
		Temperature    float64 `yaml:"temperature"`
		MaxTokens      int     `yaml:"max_tokens"`
		TimeoutSec     int     `yaml:"timeout_sec"`
		MaxConcurrency int     `yaml:"max_concurrency"` // LLM并发请求数
	} `yaml:"llm"`
	Providers struct {
		GitHub  ProviderConfig `yaml:"github"`
		Gitee   ProviderConfig `yaml:"gitee"`
		GitCode ProviderConfig `yaml:"gitcode"`
	} `yaml:"providers"`
	Recommend struct {
		MinResults        int    `yaml:"min_results"`        // 合并后结果下限（池子足够时）
		MaxResults        int    `yaml:"max_results"`        // 合并后结果上限
		RewriteMinChars   int    `yaml:"rewrite_min_chars"`  // 触发长需求改写的字符数阈值
		ConfirmMinChars   int    `yaml:"confirm_min_chars"`  // 长文档需LLM画像确认硬性意图的阈值
		MaxQueryVariants  int    `yaml:"max_query_variants"` // 参与联邦检索的查询变体数
		FederationWorkers int    `yaml:"federation_workers"` // 联邦检索worker上限
		DocFetchWorkers   int    `yaml:"doc_fetch_workers"`  // 深度模式文档抓取worker上限
		DocFetchTimeout   int    `yaml:"doc_fetch_timeout_sec"`
		DeepFetchTopN     int    `yaml:"deep_fetch_top_n"` // 深度模式抓取文档的候选数
		HTTPProxy         string `yaml:"http_proxy"`       // 文档抓取代理，可为空
	} `yaml:"recommend"`
	Log struct {
		Level    string `yaml:"level"`
		Format   string `yaml:"format"`
		Output   string `yaml:"output"`
		FilePath string `yaml:"file_path"`
	} `yaml:"log"`

	DB struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		Username        string `yaml:"username"`
		Password        string `yaml:"password"`
		Database        string `yaml:"database"`
		Charset         string `yaml:"charset"`
		ParseTime       bool   `yaml:"parse_time"`
		DSN             string `yaml:"-"`                 // 不从配置文件读取，而是在加载后计算
		MaxOpenConns    int    `yaml:"max_open_conns"`    // 最大打开连接数
		MaxIdleConns    int    `yaml:"max_idle_conns"`    // 最大空闲连接数
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 连接最大生命周期（分钟）
	} `yaml:"database"`
	Scheduler struct {
		CatalogRefreshSec int `yaml:"catalog_refresh_sec"` // 案例缓存刷新间隔（秒）
	} `yaml:"scheduler"`
	Timeouts struct {
		RequestSec  int `yaml:"request_sec"`  // 请求超时，单位：秒
		ResponseSec int `yaml:"response_sec"` // 响应超时，单位：秒
		IdleSec     int `yaml:"idle_sec"`     // 空闲超时，单位：秒
	} `yaml:"timeouts"`
}

func Load() *Config {
	// 首先尝试加载.env文件中的环境变量
	_ = godotenv.Load() // 忽略错误，如果.env文件不存在，继续使用系统环境变量

	var cfg Config

	// 尝试从config.yaml文件加载配置
	if data, err := os.ReadFile("config.yaml"); err == nil {
		err = yaml.Unmarshal(data, &cfg)
		if err != nil {
			log.Printf("Error loading config.yaml: %v, falling back to environment variables", err)
			return loadFromEnv()
		}
		log.Println("Loading configuration from config.yaml")

		// 计算 Server.Addr 字段
		cfg.Server.Addr = fmt.Sprintf(":%d", cfg.Server.Port)

		applyEnvOverrides(&cfg)
		applyDefaults(&cfg)

		// 计算 DB.DSN 字段
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = buildDSN(&cfg)
		}

		return &cfg
	}

	// 如果config.yaml不存在，则完全从环境变量加载配置
	return loadFromEnv()
}

// applyEnvOverrides 从环境变量中加载敏感信息，覆盖配置文件中的占位值
func applyEnvOverrides(cfg *Config) {
	if envUsername := os.Getenv("DATABASE_USERNAME"); envUsername != "" {
		cfg.DB.Username = envUsername
	}
	if envPassword := os.Getenv("DATABASE_PASSWORD"); envPassword != "" {
		cfg.DB.Password = envPassword
	}
	if envAPIKey := os.Getenv("LLM_API_KEY"); envAPIKey != "" {
		cfg.LLM.APIKey = envAPIKey
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.Providers.GitHub.Token = token
	}
	if token := os.Getenv("GITEE_TOKEN"); token != "" {
		cfg.Providers.Gitee.Token = token
	}
	if token := os.Getenv("GITCODE_TOKEN"); token != "" {
		cfg.Providers.GitCode.Token = token
	}
}

// applyDefaults 为未配置的调优参数填入默认值
func applyDefaults(cfg *Config) {
	if cfg.Recommend.MinResults <= 0 {
		cfg.Recommend.MinResults = 10
	}
	if cfg.Recommend.MaxResults <= 0 {
		cfg.Recommend.MaxResults = 20
	}
	if cfg.Recommend.RewriteMinChars <= 0 {
		cfg.Recommend.RewriteMinChars = 100
	}
	if cfg.Recommend.ConfirmMinChars <= 0 {
		cfg.Recommend.ConfirmMinChars = 100
	}
	if cfg.Recommend.MaxQueryVariants <= 0 {
		cfg.Recommend.MaxQueryVariants = 2
	}
	if cfg.Recommend.FederationWorkers <= 0 {
		cfg.Recommend.FederationWorkers = 12
	}
	if cfg.Recommend.DocFetchWorkers <= 0 {
		cfg.Recommend.DocFetchWorkers = 4
	}
	if cfg.Recommend.DocFetchTimeout <= 0 {
		cfg.Recommend.DocFetchTimeout = 8
	}
	if cfg.Recommend.DeepFetchTopN <= 0 {
		cfg.Recommend.DeepFetchTopN = 3
	}
	if cfg.LLM.TimeoutSec <= 0 {
		cfg.LLM.TimeoutSec = 60
	}
	if cfg.LLM.MaxConcurrency <= 0 {
		cfg.LLM.MaxConcurrency = 5
	}
	if cfg.Scheduler.CatalogRefreshSec <= 0 {
		cfg.Scheduler.CatalogRefreshSec = 600
	}
	// 各搜索源的默认查询长度预算，GitHub的256是最紧的一档
	if cfg.Providers.GitHub.MaxQueryLen <= 0 {
		cfg.Providers.GitHub.MaxQueryLen = 256
	}
	if cfg.Providers.Gitee.MaxQueryLen <= 0 {
		cfg.Providers.Gitee.MaxQueryLen = 255
	}
	if cfg.Providers.GitCode.MaxQueryLen <= 0 {
		cfg.Providers.GitCode.MaxQueryLen = 200
	}
}

func buildDSN(cfg *Config) string {
	if cfg.DB.Charset == "" {
		cfg.DB.Charset = "utf8mb4"
	}
	parseTime := ""
	if cfg.DB.ParseTime {
		parseTime = "&parseTime=true"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s%s",
		cfg.DB.Username,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.Database,
		cfg.DB.Charset,
		parseTime)
}

func loadFromEnv() *Config {
	// 当config.yaml加载失败时，创建一个最小配置
	var cfg Config

	// 设置服务器地址
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	cfg.Server.Addr = fmt.Sprintf(":%d", cfg.Server.Port)

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		cfg.DB.DSN = dsn
	} else if cfg.DB.Host != "" {
		cfg.DB.DSN = buildDSN(&cfg)
	}

	log.Println("配置从环境变量加载，部分配置可能缺失")
	return &cfg
}
