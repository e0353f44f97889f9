// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Enrollment constants
const (
	// EnrollmentPhotoCount is the exact number of photos required to enroll an identity
	EnrollmentPhotoCount = 5

	// IdentityIDWidth is the zero-padded width of sequential identity ids ("001", "002", ...)
	IdentityIDWidth = 3

	// MaxAssetDimension is the maximum width or height for stored enrollment photos
	MaxAssetDimension = 1280
)

// Recognition constants
const (
	// DefaultDistanceThreshold is the default maximum cosine distance for a match.
	// Lower values = stricter matching.
	DefaultDistanceThreshold = 0.60
)

// Ledger constants
const (
	// RecordIDSuffixLength is the number of random alphanumeric characters
	// appended to attendance and alert record ids
	RecordIDSuffixLength = 6

	// AlertCap is the maximum number of alert records retained; older ones are evicted
	AlertCap = 100

	// PatternShiftThreshold is the relative day-over-week change in present counts
	// that triggers a pattern alert
	PatternShiftThreshold = 0.20
)

// Audit constants
const (
	// DefaultAuditThreshold is the max cosine distance at which two embeddings
	// belonging to different identities are reported as near-duplicates
	DefaultAuditThreshold = 0.10

	// AuditSearchK is the number of nearest neighbors fetched per embedding
	// during the near-duplicate scan
	AuditSearchK = 8
)

// Upload constants
const (
	// MaxUploadSize is the maximum request body size in bytes (25MB covers 5 photos)
	MaxUploadSize = 25 << 20
)
