package models

import "time"

// Snippet is a stored piece of code. Content lives in versioned rows;
// the snippet row tracks the current version and the sealing key id when
// the content is encrypted at rest.
type Snippet struct {
	ID        string
	OwnerID   string
	Title     string
	Language  string
	Version   int64
	Sealed    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContentVersion is one immutable version of a snippet's content plus the
// scan verdict computed when it was written. Content is either the raw
// text (unsealed snippets) or the encoded encrypted envelope. For payloads
// too large for a text column, Content is empty and BlobKey points at the
// sealed object in the blob store.
type ContentVersion struct {
	SnippetID   string
	Version     int64
	Content     string
	BlobKey     string
	ContentHash string

	// Findings holds the secret-scan finding kinds for this version;
	// ContainsSensitiveData is derived, never stored independently.
	Findings   []string
	DetectedAt time.Time
	CreatedAt  time.Time
}

// ContainsSensitiveData reports whether the scan found any credential
// shapes in this version.
func (v *ContentVersion) ContainsSensitiveData() bool {
	return len(v.Findings) > 0
}
