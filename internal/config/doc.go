// Package config loads runtime configuration for a sitestore instance.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations are timex.Duration, so "10s" and integer nanoseconds both work:
//
//	{
//	  "tenant": "quiz",
//	  "cache_dsn": "/var/lib/sitestore/cache.db",
//	  "origin": "https://quiz.example.com",
//	  "remote": "github",
//	  "github": {"owner": "acme", "repo": "sites", "path": "db/users.b64"},
//	  "remote_timeout": "10s",
//	  "sort_order": "score",
//	  "migrate_legacy_credentials": true
//	}
//
// Environment variables are not read here; the AWS SDK still consults its
// usual credential chain when the S3 remote is used without keys.
package config
