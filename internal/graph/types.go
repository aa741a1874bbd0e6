package graph

import "time"

// ChildCountUnknown indicates the child count was not present in the API response.
const ChildCountUnknown = -1

// Item represents a drive item (file or folder) in a document library.
// Fields are normalized from the Graph API response; callers never see raw API data.
type Item struct {
	ID           string
	Name         string
	DriveID      string
	ParentID     string
	ParentPath   string // "/drives/{id}/root:/General/Reports" as reported by the API
	Size         int64
	ETag         string
	CTag         string
	IsFolder     bool
	MimeType     string
	QuickXorHash string // base64-encoded
	SHA1Hash     string
	SHA256Hash   string
	WebURL       string
	CreatedAt    time.Time
	ModifiedAt   time.Time
	ChildCount   int    // ChildCountUnknown if not present
	DownloadURL  string // pre-authenticated, ephemeral; NEVER log
}

// Drive is a document library under a site.
type Drive struct {
	ID         string
	Name       string
	DriveType  string
	WebURL     string
	QuotaUsed  int64
	QuotaTotal int64
	Active     bool // the library this client operates on
}
