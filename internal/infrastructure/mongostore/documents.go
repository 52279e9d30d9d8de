package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
)

const (
	usersCollection         = "users"
	videosCollection        = "videos"
	subscriptionsCollection = "subscriptions"
)

type userDoc struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Username     string               `bson:"username"`
	Email        string               `bson:"email"`
	Fullname     string               `bson:"fullname"`
	Avatar       string               `bson:"avatar"`
	CoverImage   string               `bson:"coverImage"`
	Password     string               `bson:"password"`
	RefreshToken *string              `bson:"refreshToken"`
	WatchHistory []primitive.ObjectID `bson:"watchHistory"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

func (d *userDoc) toEntity() *entity.User {
	u := &entity.User{
		ID:            d.ID.Hex(),
		Username:      d.Username,
		Email:         d.Email,
		Fullname:      d.Fullname,
		AvatarURL:     d.Avatar,
		CoverImageURL: d.CoverImage,
		PasswordHash:  d.Password,
		WatchHistory:  make([]string, 0, len(d.WatchHistory)),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.RefreshToken != nil {
		u.RefreshToken = *d.RefreshToken
	}
	for _, id := range d.WatchHistory {
		u.WatchHistory = append(u.WatchHistory, id.Hex())
	}
	return u
}

type videoDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	VideoFile   string             `bson:"videoFile"`
	Thumbnail   string             `bson:"thumbnail"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Duration    float64            `bson:"duration"`
	Views       int64              `bson:"views"`
	IsPublished bool               `bson:"isPublished"`
	Owner       primitive.ObjectID `bson:"owner"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

type subscriptionDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Subscriber primitive.ObjectID `bson:"subscriber"`
	Channel    primitive.ObjectID `bson:"channel"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

type ownerDoc struct {
	Fullname string `bson:"fullname"`
	Username string `bson:"username"`
	Avatar   string `bson:"avatar"`
}

type watchedDoc struct {
	videoDoc     `bson:",inline"`
	OwnerSummary ownerDoc `bson:"ownerSummary"`
}

func (d *watchedDoc) toEntity() entity.WatchedVideo {
	return entity.WatchedVideo{
		Video: entity.Video{
			ID:           d.ID.Hex(),
			Title:        d.Title,
			Description:  d.Description,
			VideoFileURL: d.VideoFile,
			ThumbnailURL: d.Thumbnail,
			Duration:     d.Duration,
			Views:        d.Views,
			IsPublished:  d.IsPublished,
			OwnerID:      d.Owner.Hex(),
			CreatedAt:    d.CreatedAt,
		},
		Owner: entity.OwnerSummary{
			Fullname:  d.OwnerSummary.Fullname,
			Username:  d.OwnerSummary.Username,
			AvatarURL: d.OwnerSummary.Avatar,
		},
	}
}

type channelDoc struct {
	Fullname          string `bson:"fullname"`
	Username          string `bson:"username"`
	Avatar            string `bson:"avatar"`
	CoverImage        string `bson:"coverImage"`
	SubscribersCount  int64  `bson:"subscribersCount"`
	SubscribedToCount int64  `bson:"channelsSubscribedToCount"`
	IsSubscribed      bool   `bson:"isSubscribed"`
}
