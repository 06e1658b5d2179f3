// Package blobs stores file content by key. Metadata lives in the files
// table; only the bytes are kept here.
package blobs

import "context"

// Store is a key-addressed blob store. Get of an unknown key returns
// common.ErrorNotFound.
type Store interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
