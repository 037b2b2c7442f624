//go:build js || wasm
// +build js wasm

package beatcraft

// NewSQLiteStorage is unavailable in the browser; use WithoutHistory or
// WithStorage there.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	return nil, ErrHistoryDisabled
}
