package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	"github.com/oksasatya/go-media-identity/internal/domain/repository"
)

// Store implements the user and channel repositories on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, pings the server and ensures the unique indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(subscriptionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "subscriber", Value: 1}, {Key: "channel", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "channel", Value: 1}}},
	})
	return err
}

func (s *Store) users() *mongo.Collection { return s.db.Collection(usersCollection) }

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	}
	return err
}

func (s *Store) Create(ctx context.Context, u *entity.User) error {
	now := time.Now().UTC()
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Username:     u.Username,
		Email:        u.Email,
		Fullname:     u.Fullname,
		Avatar:       u.AvatarURL,
		CoverImage:   u.CoverImageURL,
		Password:     u.PasswordHash,
		WatchHistory: []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.users().InsertOne(ctx, doc); err != nil {
		return mapErr(err)
	}
	u.ID = doc.ID.Hex()
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var doc userDoc
	if err := s.users().FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapErr(err)
	}
	return doc.toEntity(), nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *Store) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error) {
	var or bson.A
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, repository.ErrNotFound
	}
	return s.findOne(ctx, bson.M{"$or": or})
}

func (s *Store) UpdateProfile(ctx context.Context, id string, changes entity.ProfileChanges) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	if changes.Fullname != nil {
		set["fullname"] = *changes.Fullname
	}
	if changes.Email != nil {
		set["email"] = *changes.Email
	}
	if changes.AvatarURL != nil {
		set["avatar"] = *changes.AvatarURL
	}
	if changes.CoverImageURL != nil {
		set["coverImage"] = *changes.CoverImageURL
	}

	var doc userDoc
	err = s.users().FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, mapErr(err)
	}
	return doc.toEntity(), nil
}

func (s *Store) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := s.users().UpdateByID(ctx, oid, update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{"password": passwordHash, "updatedAt": time.Now().UTC()}})
}

// SetRefreshToken stores null for an empty token.
func (s *Store) SetRefreshToken(ctx context.Context, id, token string) error {
	var value any
	if token != "" {
		value = token
	}
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{"refreshToken": value}})
}

func (s *Store) SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, repository.ErrNotFound
	}
	if current == "" {
		return false, nil
	}
	res, err := s.users().UpdateOne(ctx,
		bson.M{"_id": oid, "refreshToken": current},
		bson.M{"$set": bson.M{"refreshToken": next}})
	if err != nil {
		return false, mapErr(err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	n, err := s.users().CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, repository.ErrNotFound
	}
	return false, nil
}

var _ repository.UserRepository = (*Store)(nil)
