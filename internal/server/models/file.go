package models

// PublicFile describes a file stored on public object storage, such as a
// user avatar. URL is the canonical public location; StorageKey is the
// object key used for presigning and deletion.
type PublicFile struct {
	ID         string `json:"id"`
	StorageKey string `json:"key"`
	URL        string `json:"url"`
}
