package config

import (
	"fmt"
	"os"
	"path/filepath"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zenv"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

// Config is the environment-driven configuration. The API key comes from
// an authenticated browser session; everything else has a default.
type Config struct {
	APIKey    string `zog:"RESY_API_KEY"`
	UserAgent string `zog:"RESY_USER_AGENT"`
	BaseURL   string `zog:"RESY_BASE_URL"`

	CacheDir        string `zog:"RESYD_CACHE_DIR"`
	CacheHashKey    string `zog:"RESYD_CACHE_HASH_KEY"`
	CacheBlockKey   string `zog:"RESYD_CACHE_BLOCK_KEY"`
	CachePassphrase string `zog:"RESYD_CACHE_PASSPHRASE"`
}

var schema = z.Struct(z.Shape{
	"APIKey":          z.String().Required(z.Message("RESY_API_KEY is required")),
	"UserAgent":       z.String().Default(defaultUserAgent),
	"BaseURL":         z.String().Default("https://api.resy.com"),
	"CacheDir":        z.String(),
	"CacheHashKey":    z.String(),
	"CacheBlockKey":   z.String(),
	"CachePassphrase": z.String(),
})

func FromEnv() (Config, error) {
	var cfg Config
	if issues := schema.Parse(zenv.NewDataProvider(), &cfg); len(issues) > 0 {
		return Config{}, fmt.Errorf("config: %s", firstMessage(issues))
	}
	if cfg.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = "."
		}
		cfg.CacheDir = filepath.Join(base, "resyd")
	}
	return cfg, nil
}

func firstMessage(issues z.ZogIssueMap) string {
	for _, list := range issues {
		if len(list) > 0 {
			return list[0].Message
		}
	}
	return "invalid environment"
}
