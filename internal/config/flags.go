package config

import (
	"flag"
	"io"
)

// parseFlags overlays cfg with command-line flags and returns the remaining
// positional arguments. Flags must come before the command.
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("sitestore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var configFile string
	fs.StringVar(&configFile, "c", "", "path to config file (short)")
	fs.StringVar(&configFile, "config", "", "path to config file")

	fs.StringVar(&cfg.Tenant, "tenant", cfg.Tenant, "tenant (site) this instance serves")
	fs.StringVar(&cfg.CacheDSN, "cache-dsn", cfg.CacheDSN, "local cache database file")
	fs.StringVar(&cfg.CacheKey, "cache-key", cfg.CacheKey, "local cache slot (default <tenant>_sqldb)")
	fs.StringVar(&cfg.Origin, "origin", cfg.Origin, "origin the instance is served from")
	fs.StringVar(&cfg.RemoteKind, "remote", cfg.RemoteKind, "remote snapshot backend: github, s3 or none")
	fs.DurationVar(&cfg.RemoteTimeout, "remote-timeout", cfg.RemoteTimeout, "remote snapshot fetch timeout")

	fs.StringVar(&cfg.GitHub.APIBaseURL, "github-api", cfg.GitHub.APIBaseURL, "GitHub API base URL")
	fs.StringVar(&cfg.GitHub.Owner, "github-owner", cfg.GitHub.Owner, "GitHub repository owner")
	fs.StringVar(&cfg.GitHub.Repo, "github-repo", cfg.GitHub.Repo, "GitHub repository name")
	fs.StringVar(&cfg.GitHub.Path, "github-path", cfg.GitHub.Path, "snapshot path in the repository")
	fs.StringVar(&cfg.GitHub.Token, "github-token", cfg.GitHub.Token, "GitHub token")

	fs.StringVar(&cfg.S3.Bucket, "s3-bucket", cfg.S3.Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3.Key, "s3-key", cfg.S3.Key, "S3 object key")
	fs.StringVar(&cfg.S3.Region, "s3-region", cfg.S3.Region, "S3 region")
	fs.StringVar(&cfg.S3.BaseEndpoint, "s3-endpoint", cfg.S3.BaseEndpoint, "S3 compatible endpoint")
	fs.BoolVar(&cfg.S3.Base64, "s3-base64", cfg.S3.Base64, "S3 object holds base64 text")

	fs.StringVar(&cfg.SortOrder, "sort", cfg.SortOrder, "user list order: score or username")
	fs.BoolVar(&cfg.MigrateLegacyCredentials, "migrate-legacy", cfg.MigrateLegacyCredentials,
		"replace plaintext credentials with digests on login")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}
