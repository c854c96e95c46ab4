// Package config loads the run configuration from an optional YAML
// file, then lets environment variables override the sensitive or
// deployment-specific knobs.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/VandeeFeng/wisecrawl/internal/source"
)

// Config is the full runtime configuration.
type Config struct {
	DataDir          string   `yaml:"data_dir"`
	Workers          int      `yaml:"workers"`
	FilterDays       int      `yaml:"filter_days"`
	TechOnly         bool     `yaml:"tech_only"`
	RetentionDays    int      `yaml:"retention_days"`
	PreferredSources []string `yaml:"preferred_sources"`

	Hotspot HotspotConfig `yaml:"hotspot"`
	RSS     RSSConfig     `yaml:"rss"`
	Twitter TwitterConfig `yaml:"twitter"`
	LLM     LLMConfig     `yaml:"llm"`
	Cache   CacheConfig   `yaml:"cache"`
	Notify  NotifyConfig  `yaml:"notify"`
	Server  ServerConfig  `yaml:"server"`
	Feed    FeedConfig    `yaml:"feed"`
}

type HotspotConfig struct {
	BaseURL string            `yaml:"base_url"`
	Boards  []string          `yaml:"boards"`
	Limit   int               `yaml:"limit"`
	NameMap map[string]string `yaml:"name_map"`
}

type RSSConfig struct {
	Feeds []source.Feed `yaml:"feeds"`
}

type TwitterConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ArchiveBase string `yaml:"archive_base"`
	Days        int    `yaml:"days"`
}

type LLMConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Model       string `yaml:"model"`
	DigestModel string `yaml:"digest_model"`
	APIKey      string `yaml:"api_key"`
}

type CacheConfig struct {
	Backend    string `yaml:"backend"` // memory, badger or redis
	BadgerPath string `yaml:"badger_path"`
	RedisAddr  string `yaml:"redis_addr"`
}

type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Telegram   struct {
		APIHost string `yaml:"api_host"`
		Token   string `yaml:"token"`
		ChatID  string `yaml:"chat_id"`
	} `yaml:"telegram"`
	BarkPush string `yaml:"bark_push"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type FeedConfig struct {
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
}

// Default returns the stock configuration: the boards, feeds and
// source name map the project ships with.
func Default() Config {
	return Config{
		DataDir:          "data",
		Workers:          5,
		FilterDays:       1,
		RetentionDays:    7,
		PreferredSources: []string{"RSS", "Twitter"},
		Hotspot: HotspotConfig{
			BaseURL: source.DefaultHotspotBase,
			Boards: []string{
				"sspai", "juejin", "ifanr", "v2ex",
				"guokr", "hellogithub", "zhihu-daily",
			},
			NameMap: map[string]string{
				"sspai":       "少数派",
				"juejin":      "掘金",
				"ifanr":       "爱范儿",
				"v2ex":        "V2EX",
				"guokr":       "果壳",
				"hellogithub": "HelloGitHub",
				"zhihu-daily": "知乎日报",
				"36kr":        "36氪",
				"bilibili":    "哔哩哔哩",
				"zhihu":       "知乎",
				"thepaper":    "澎湃新闻",
			},
		},
		RSS: RSSConfig{
			Feeds: []source.Feed{
				{Name: "Github Trending", URL: "https://rsshub.rssforever.com/github/trending/daily/any"},
				{Name: "Hacker News 近期最佳", URL: "https://hnrss.org/best"},
				{Name: "阮一峰的网络日志", URL: "http://www.ruanyifeng.com/blog/atom.xml"},
				{Name: "Solidot", URL: "https://www.solidot.org/index.rss"},
				{Name: "机器之心", URL: "https://www.jiqizhixin.com/rss"},
				{Name: "极客公园", URL: "http://www.geekpark.net/rss"},
				{Name: "Google DeepMind", URL: "https://deepmind.google/blog/rss.xml"},
				{Name: "V2ex 热门", URL: "https://rsshub.rssforever.com/v2ex/topics/hot"},
				{Name: "LINUX DO 今日热门", URL: "https://r4l.deno.dev/https://linux.do/top.rss?period=daily"},
			},
		},
		Twitter: TwitterConfig{
			Enabled:     true,
			ArchiveBase: source.DefaultTweetArchiveBase,
			Days:        1,
		},
		LLM: LLMConfig{
			Endpoint: "http://127.0.0.1:11434/v1/chat/completions",
			Model:    "qwen2.5:14b",
		},
		Cache: CacheConfig{
			Backend:    "badger",
			BadgerPath: "data/summary-cache",
		},
		Server: ServerConfig{Addr: ":8080"},
		Feed: FeedConfig{
			Title:       "每日热点",
			Link:        "http://localhost:5173",
			Description: "聚合去重后的每日热点新闻",
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides. A missing file with an empty path is fine; a
// named file that cannot be read is not.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.FilterDays <= 0 {
		cfg.FilterDays = 1
	}
	return cfg, nil
}

// applyEnv lets deployment environments override the file without
// editing it. Secrets in particular should come from here.
func applyEnv(cfg *Config) {
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.Endpoint, "LLM_ENDPOINT")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.LLM.DigestModel, "LLM_DIGEST_MODEL")
	setString(&cfg.Hotspot.BaseURL, "HOTSPOT_BASE_URL")
	setString(&cfg.Notify.WebhookURL, "WEBHOOK_URL")
	setString(&cfg.Notify.Telegram.Token, "TG_BOT_TOKEN")
	setString(&cfg.Notify.Telegram.ChatID, "TG_CHAT_ID")
	setString(&cfg.Notify.Telegram.APIHost, "TG_API_HOST")
	setString(&cfg.Notify.BarkPush, "BARK_PUSH")
	setString(&cfg.Cache.RedisAddr, "REDIS_ADDR")
	setString(&cfg.DataDir, "DATA_DIR")
	setInt(&cfg.Workers, "MAX_WORKERS")
	setInt(&cfg.FilterDays, "FILTER_DAYS")
	setBool(&cfg.TechOnly, "TECH_ONLY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
