package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	"github.com/oksasatya/go-media-identity/internal/domain/repository"
)

func channelProfilePipeline(username string, viewer primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"username": username}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribedTo",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"subscribersCount":          bson.M{"$size": "$subscribers"},
			"channelsSubscribedToCount": bson.M{"$size": "$subscribedTo"},
			"isSubscribed":              bson.M{"$in": bson.A{viewer, "$subscribers.subscriber"}},
		}}},
		{{Key: "$project", Value: bson.M{
			"fullname":                  1,
			"username":                  1,
			"avatar":                    1,
			"coverImage":                1,
			"subscribersCount":          1,
			"channelsSubscribedToCount": 1,
			"isSubscribed":              1,
		}}},
	}
}

// GetChannelProfile matches on the stored lowercase username. An unparsable
// viewer id is treated as no viewer.
func (s *Store) GetChannelProfile(ctx context.Context, username, viewerID string) (*entity.ChannelProfile, error) {
	viewer, err := primitive.ObjectIDFromHex(viewerID)
	if err != nil {
		viewer = primitive.NilObjectID
	}

	cur, err := s.users().Aggregate(ctx, channelProfilePipeline(username, viewer))
	if err != nil {
		return nil, err
	}
	var docs []channelDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, repository.ErrNotFound
	}
	d := docs[0]
	return &entity.ChannelProfile{
		Fullname:          d.Fullname,
		Username:          d.Username,
		SubscribersCount:  d.SubscribersCount,
		SubscribedToCount: d.SubscribedToCount,
		IsSubscribed:      d.IsSubscribed && viewer != primitive.NilObjectID,
		AvatarURL:         d.Avatar,
		CoverImageURL:     d.CoverImage,
	}, nil
}

func watchHistoryPipeline(userID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": userID}}},
		{{Key: "$unwind", Value: bson.M{"path": "$watchHistory", "includeArrayIndex": "position"}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         videosCollection,
			"localField":   "watchHistory",
			"foreignField": "_id",
			"as":           "video",
		}}},
		{{Key: "$unwind", Value: "$video"}},
		{{Key: "$lookup", Value: bson.M{
			"from":         usersCollection,
			"localField":   "video.owner",
			"foreignField": "_id",
			"as":           "owner",
			"pipeline": mongo.Pipeline{
				{{Key: "$project", Value: bson.M{"fullname": 1, "username": 1, "avatar": 1}}},
			},
		}}},
		{{Key: "$sort", Value: bson.M{"position": 1}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": bson.M{
			"$mergeObjects": bson.A{"$video", bson.M{"ownerSummary": bson.M{"$first": "$owner"}}},
		}}}},
	}
}

func (s *Store) GetWatchHistory(ctx context.Context, userID string) ([]entity.WatchedVideo, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	n, err := s.users().CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, repository.ErrNotFound
	}

	cur, err := s.users().Aggregate(ctx, watchHistoryPipeline(oid))
	if err != nil {
		return nil, err
	}
	var docs []watchedDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]entity.WatchedVideo, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toEntity())
	}
	return out, nil
}

// AddVideo inserts a video document and returns its hex id.
func (s *Store) AddVideo(ctx context.Context, v entity.Video) (string, error) {
	owner, err := primitive.ObjectIDFromHex(v.OwnerID)
	if err != nil {
		return "", err
	}
	doc := videoDoc{
		ID:          primitive.NewObjectID(),
		VideoFile:   v.VideoFileURL,
		Thumbnail:   v.ThumbnailURL,
		Title:       v.Title,
		Description: v.Description,
		Duration:    v.Duration,
		Views:       v.Views,
		IsPublished: v.IsPublished,
		Owner:       owner,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.db.Collection(videosCollection).InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}

func (s *Store) Subscribe(ctx context.Context, subscriberID, channelID string) error {
	sub, err := primitive.ObjectIDFromHex(subscriberID)
	if err != nil {
		return err
	}
	ch, err := primitive.ObjectIDFromHex(channelID)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(subscriptionsCollection).InsertOne(ctx, subscriptionDoc{
		ID:         primitive.NewObjectID(),
		Subscriber: sub,
		Channel:    ch,
		CreatedAt:  time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (s *Store) AppendWatchHistory(ctx context.Context, userID string, videoIDs ...string) error {
	ids := make([]primitive.ObjectID, 0, len(videoIDs))
	for _, v := range videoIDs {
		oid, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			return err
		}
		ids = append(ids, oid)
	}
	return s.updateByID(ctx, userID, bson.M{"$push": bson.M{"watchHistory": bson.M{"$each": ids}}})
}

var _ repository.ChannelRepository = (*Store)(nil)
