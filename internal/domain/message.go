package domain

import "time"

// Platform represents the source platform of a video link
type Platform string

const (
	PlatformYouTube  Platform = "youtube"
	PlatformFacebook Platform = "facebook"
	PlatformGeneric  Platform = "genericVideo" // instagram and other scraped pages
)

// ReceivedVia records which session event channel produced a message
type ReceivedVia string

const (
	ViaNormal   ReceivedVia = "normal"
	ViaSelfEcho ReceivedVia = "selfEcho"
)

// IncomingMessage is an immutable snapshot of one received or self-sent message.
// Two snapshots with the same ID describe the same logical message.
type IncomingMessage struct {
	ID                string
	Body              string
	ChatID            string
	ChatName          string
	IsGroup           bool
	SenderID          string
	SenderDisplayName string
	FromMe            bool
	ReceivedVia       ReceivedVia
	Timestamp         time.Time
}

// ExtractedLink is a recognized video-platform URL found in a message body
type ExtractedLink struct {
	Platform Platform `json:"platform"`
	RawURL   string   `json:"url"`
}

// ValidatePlatform checks if a platform is valid
func ValidatePlatform(platform Platform) bool {
	return platform == PlatformYouTube || platform == PlatformFacebook || platform == PlatformGeneric
}
