// Package common contains shared constants and sentinel errors used across
// the store components.
package common

// LegacyTenant is the tenant assigned to rows that predate the tenant
// discriminator column.
const LegacyTenant = "demotemplate"

// DefaultCacheKeySuffix is appended to the tenant name to build the local
// cache slot key, e.g. "quiz_sqldb".
const DefaultCacheKeySuffix = "_sqldb"
