package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/sitestore/internal/flagx"
	"github.com/dmitrijs2005/sitestore/internal/timex"
)

type jsonGitHub struct {
	APIBaseURL string `json:"api_base_url"`
	Owner      string `json:"owner"`
	Repo       string `json:"repo"`
	Path       string `json:"path"`
	Token      string `json:"token"`
}

type jsonS3 struct {
	Bucket       string `json:"bucket"`
	Key          string `json:"key"`
	Region       string `json:"region"`
	BaseEndpoint string `json:"base_endpoint"`
	AccessKey    string `json:"access_key"`
	SecretKey    string `json:"secret_key"`
	Base64       bool   `json:"base64"`
}

// JsonConfig is the file form of Config. Durations accept "10s" or integer
// nanoseconds. Keys missing from the file keep their earlier value.
type JsonConfig struct {
	Tenant                   string         `json:"tenant"`
	CacheDSN                 string         `json:"cache_dsn"`
	CacheKey                 string         `json:"cache_key"`
	Origin                   string         `json:"origin"`
	Remote                   string         `json:"remote"`
	GitHub                   jsonGitHub     `json:"github"`
	S3                       jsonS3         `json:"s3"`
	RemoteTimeout            timex.Duration `json:"remote_timeout"`
	SortOrder                string         `json:"sort_order"`
	MigrateLegacyCredentials bool           `json:"migrate_legacy_credentials"`
	LogLevel                 string         `json:"log_level"`
	LogFormat                string         `json:"log_format"`
}

func toJson(c *Config) JsonConfig {
	return JsonConfig{
		Tenant:                   c.Tenant,
		CacheDSN:                 c.CacheDSN,
		CacheKey:                 c.CacheKey,
		Origin:                   c.Origin,
		Remote:                   c.RemoteKind,
		GitHub:                   jsonGitHub(c.GitHub),
		S3:                       jsonS3(c.S3),
		RemoteTimeout:            timex.Duration{Duration: c.RemoteTimeout},
		SortOrder:                c.SortOrder,
		MigrateLegacyCredentials: c.MigrateLegacyCredentials,
		LogLevel:                 c.LogLevel,
		LogFormat:                c.LogFormat,
	}
}

func (jc JsonConfig) apply(c *Config) {
	c.Tenant = jc.Tenant
	c.CacheDSN = jc.CacheDSN
	c.CacheKey = jc.CacheKey
	c.Origin = jc.Origin
	c.RemoteKind = jc.Remote
	c.GitHub = GitHub(jc.GitHub)
	c.S3 = S3(jc.S3)
	c.RemoteTimeout = jc.RemoteTimeout.Duration
	c.SortOrder = jc.SortOrder
	c.MigrateLegacyCredentials = jc.MigrateLegacyCredentials
	c.LogLevel = jc.LogLevel
	c.LogFormat = jc.LogFormat
}

// parseJson overlays cfg with the file named by -c or -config in args.
// Without either flag it does nothing.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	jc := toJson(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	jc.apply(cfg)
	return nil
}
