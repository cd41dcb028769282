//go:build sqlite_vec && cgo

package sqlitevec

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// Registers the sqlite-vec extension with the sqlite3 driver so Open can
// create the vec0 virtual table holding skeleton embeddings. Builds without
// the sqlite_vec tag still work; the store detects the missing extension at
// init and keeps plain rows only.
func init() {
	vec.Auto()
}
