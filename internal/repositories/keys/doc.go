// Package keys persists the user's own PGP keys as sealed rows.
//
// Rows are addressed by a uuid and by the blind index of the key's longid.
// The longid index is not unique: callers that replace a key delete the old
// rows first. Rows come back in insertion order.
//
//	repo := keys.NewSQLiteRepository(tx)
//	_ = repo.Insert(ctx, row)
//	rows, _ := repo.GetByLongidRef(ctx, ref)
package keys
