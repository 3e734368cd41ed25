// Package kvstore is the local key-value persistence area that holds the
// cached database image.
//
// The area is a small SQLite file with a single metadata table (created by
// embedded goose migrations). Each slot is one row; writes are upserts, so a
// slot is created on first Set and overwritten afterwards.
//
// Typical usage
//
//	db, err := kvstore.Open(ctx, "sitestore-cache.db")
//	repo := kvstore.NewSQLiteRepository(db)
//	_ = repo.Set(ctx, "quiz_sqldb", []byte(text))
//	v, _ := repo.Get(ctx, "quiz_sqldb") // (nil, nil) when unset
package kvstore
