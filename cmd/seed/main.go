package main

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-media-identity/config"
	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	"github.com/oksasatya/go-media-identity/internal/domain/repository"
	"github.com/oksasatya/go-media-identity/internal/infrastructure/mongostore"
	pginfra "github.com/oksasatya/go-media-identity/internal/infrastructure/postgres"
	"github.com/oksasatya/go-media-identity/pkg/helpers"
)

const demoPassword = "password123"

// graph writes the relationship data the channel and history queries read.
type graph interface {
	AddVideo(ctx context.Context, v entity.Video) (string, error)
	Subscribe(ctx context.Context, subscriberID, channelID string) error
	AppendWatchHistory(ctx context.Context, userID string, videoIDs ...string) error
}

type pgGraph struct{ pool *pgxpool.Pool }

func (g pgGraph) AddVideo(ctx context.Context, v entity.Video) (string, error) {
	var id string
	err := g.pool.QueryRow(ctx, `
		INSERT INTO videos (owner_id, title, description, video_file_url, thumbnail_url, duration, views, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text
	`, v.OwnerID, v.Title, v.Description, v.VideoFileURL, v.ThumbnailURL, v.Duration, v.Views, v.IsPublished).Scan(&id)
	return id, err
}

func (g pgGraph) Subscribe(ctx context.Context, subscriberID, channelID string) error {
	_, err := g.pool.Exec(ctx, `
		INSERT INTO subscriptions (subscriber_id, channel_id) VALUES ($1, $2)
		ON CONFLICT (subscriber_id, channel_id) DO NOTHING
	`, subscriberID, channelID)
	return err
}

func (g pgGraph) AppendWatchHistory(ctx context.Context, userID string, videoIDs ...string) error {
	_, err := g.pool.Exec(ctx, `
		UPDATE users SET watch_history = watch_history || $2::uuid[], updated_at = now() WHERE id = $1
	`, userID, videoIDs)
	return err
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var (
		users repository.UserRepository
		g     graph
	)
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2})
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to postgres")
		}
		defer pool.Close()
		if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			logger.WithError(err).Fatal("migration failed")
		}
		users, g = pginfra.NewUserRepository(pool), pgGraph{pool: pool}
	case "mongo":
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to mongodb")
		}
		defer func() { _ = store.Close(context.Background()) }()
		users, g = store, store
	default:
		logger.Fatalf("seeding is not supported for STORE_DRIVER=%s", cfg.StoreDriver)
	}

	if err := seed(ctx, users, g, helpers.NewBcryptHasher(cfg.BcryptCost), logger); err != nil {
		logger.WithError(err).Fatal("seed failed")
	}
}

func seed(ctx context.Context, users repository.UserRepository, g graph, hasher helpers.BcryptHasher, logger *logrus.Logger) error {
	hash, err := hasher.Hash(demoPassword)
	if err != nil {
		return err
	}

	ids := map[string]string{}
	fresh := true
	for _, name := range []string{"demouser", "studio", "viewer"} {
		u := &entity.User{
			Username:     name,
			Email:        name + "@example.com",
			Fullname:     "Demo " + name,
			AvatarURL:    "https://placehold.co/128x128?text=" + name,
			PasswordHash: hash,
		}
		err := users.Create(ctx, u)
		if errors.Is(err, repository.ErrDuplicate) {
			existing, ferr := users.FindByUsernameOrEmail(ctx, name, "")
			if ferr != nil {
				return ferr
			}
			u.ID, fresh = existing.ID, false
		} else if err != nil {
			return err
		}
		ids[name] = u.ID
		logger.WithFields(logrus.Fields{"id": u.ID, "username": name, "password": demoPassword}).Info("seeded user")
	}
	if !fresh {
		logger.Info("users already present; skipping relationship data")
		return nil
	}

	for _, pair := range [][2]string{{"demouser", "studio"}, {"viewer", "studio"}, {"studio", "demouser"}} {
		if err := g.Subscribe(ctx, ids[pair[0]], ids[pair[1]]); err != nil {
			return err
		}
	}

	var videos []string
	for i, title := range []string{"Getting started", "Behind the scenes"} {
		id, err := g.AddVideo(ctx, entity.Video{
			OwnerID:      ids["studio"],
			Title:        title,
			Description:  "Seeded video",
			VideoFileURL: "https://example.com/videos/" + ids["studio"] + "/" + title,
			Duration:     float64(60 * (i + 1)),
			IsPublished:  true,
		})
		if err != nil {
			return err
		}
		videos = append(videos, id)
	}
	if err := g.AppendWatchHistory(ctx, ids["demouser"], videos[1], videos[0], videos[1]); err != nil {
		return err
	}
	logger.WithField("videos", len(videos)).Info("seeded subscriptions and watch history")
	return nil
}
