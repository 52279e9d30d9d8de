package entity

import "time"

// Subscription is a directed edge: Subscriber follows Channel. Both are user ids.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// ChannelProfile is a user seen as a channel, with counts derived from subscription edges.
type ChannelProfile struct {
	Fullname          string `json:"fullname"`
	Username          string `json:"username"`
	SubscribersCount  int64  `json:"subscribersCount"`
	SubscribedToCount int64  `json:"subscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
	AvatarURL         string `json:"avatarUrl"`
	CoverImageURL     string `json:"coverImageUrl"`
}

// Video is owned by the media catalogue; only the fields read here are mapped.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoFileURL string    `json:"videoFile"`
	ThumbnailURL string    `json:"thumbnail"`
	Duration     float64   `json:"duration"`
	Views        int64     `json:"views"`
	IsPublished  bool      `json:"isPublished"`
	OwnerID      string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type OwnerSummary struct {
	Fullname  string `json:"fullname"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

// WatchedVideo is one watch-history entry with its owner resolved.
type WatchedVideo struct {
	Video
	Owner OwnerSummary `json:"owner"`
}
