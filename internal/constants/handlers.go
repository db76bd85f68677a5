package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum request body size in bytes (100MB)
	MaxUploadSize = 100 << 20

	// UploadFormField is the multipart field carrying photos
	UploadFormField = "photos"
)
