package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/sitestore/internal/common"
)

// Remote snapshot backends.
const (
	RemoteNone   = "none"
	RemoteGitHub = "github"
	RemoteS3     = "s3"
)

// GitHub locates the shared snapshot in a repository.
type GitHub struct {
	APIBaseURL string
	Owner      string
	Repo       string
	Path       string
	Token      string
}

// S3 locates the shared snapshot in a bucket. Empty AccessKey means the
// default AWS credential chain.
type S3 struct {
	Bucket       string
	Key          string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Base64       bool
}

// Config holds runtime settings for one store instance.
type Config struct {
	Tenant   string
	CacheDSN string
	// CacheKey is the local cache slot; empty means "<tenant>_sqldb".
	CacheKey string
	// Origin is where the instance is served from. Development origins
	// skip the remote snapshot.
	Origin        string
	RemoteKind    string
	GitHub        GitHub
	S3            S3
	RemoteTimeout time.Duration
	SortOrder     string

	MigrateLegacyCredentials bool

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.Tenant = common.LegacyTenant
	c.CacheDSN = "sitestore.db"
	c.CacheKey = ""
	c.Origin = ""
	c.RemoteKind = RemoteNone
	c.GitHub = GitHub{APIBaseURL: "https://api.github.com"}
	c.S3 = S3{}
	c.RemoteTimeout = 10 * time.Second
	c.SortOrder = "score"
	c.MigrateLegacyCredentials = true
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// SlotKey is the local cache slot for this tenant.
func (c *Config) SlotKey() string {
	if c.CacheKey != "" {
		return c.CacheKey
	}
	return c.Tenant + common.DefaultCacheKeySuffix
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if c.Tenant == "" {
		return fmt.Errorf("%w: tenant is required", common.ErrValidation)
	}
	if c.CacheDSN == "" {
		return fmt.Errorf("%w: cache dsn is required", common.ErrValidation)
	}
	switch c.RemoteKind {
	case RemoteNone, "":
	case RemoteGitHub:
		if c.GitHub.Owner == "" || c.GitHub.Repo == "" || c.GitHub.Path == "" {
			return fmt.Errorf("%w: github remote needs owner, repo and path", common.ErrValidation)
		}
	case RemoteS3:
		if c.S3.Bucket == "" || c.S3.Key == "" {
			return fmt.Errorf("%w: s3 remote needs bucket and key", common.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown remote %q", common.ErrValidation, c.RemoteKind)
	}
	switch c.SortOrder {
	case "score", "username":
	default:
		return fmt.Errorf("%w: unknown sort order %q", common.ErrValidation, c.SortOrder)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", common.ErrValidation, c.LogFormat)
	}
	if c.RemoteTimeout < 0 {
		return fmt.Errorf("%w: negative remote timeout", common.ErrValidation)
	}
	return nil
}

// Load applies defaults, then the JSON file named by -c/-config, then the
// command-line flags in args. It returns the arguments left after the flags.
func Load(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, nil, err
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}
