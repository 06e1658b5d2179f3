package models

import "time"

// File is the metadata row of an uploaded file. The content itself lives in
// blob storage under StorageKey.
type File struct {
	ID         int64
	FileName   string
	StorageKey string
	Size       int64
	CreatedAt  time.Time
}
