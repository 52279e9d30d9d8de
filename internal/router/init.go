package router

import (
	"context"

	"github.com/oksasatya/go-media-identity/config"
	"github.com/oksasatya/go-media-identity/internal/application"
	"github.com/oksasatya/go-media-identity/internal/container"
	"github.com/oksasatya/go-media-identity/internal/domain/repository"
	"github.com/oksasatya/go-media-identity/internal/infrastructure/cache"
	"github.com/oksasatya/go-media-identity/internal/infrastructure/media"
	"github.com/oksasatya/go-media-identity/internal/infrastructure/memory"
	"github.com/oksasatya/go-media-identity/internal/infrastructure/notify"
	pginfra "github.com/oksasatya/go-media-identity/internal/infrastructure/postgres"
	"github.com/oksasatya/go-media-identity/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-media-identity/internal/interface/http"
	"github.com/oksasatya/go-media-identity/internal/interface/middleware"
	"github.com/oksasatya/go-media-identity/internal/router/modules"
	"github.com/oksasatya/go-media-identity/pkg/helpers"
)

func buildRepositories(cfg *config.Config) (repository.UserRepository, repository.ChannelRepository) {
	switch cfg.StoreDriver {
	case "mongo":
		s := container.GetMongo()
		return s, s
	case "memory":
		s := memory.NewStore()
		return s, s
	default:
		pool := container.GetPGPool()
		return pginfra.NewUserRepository(pool), pginfra.NewChannelRepository(pool)
	}
}

func buildMedia(cfg *config.Config) application.MediaUploader {
	if cfg.MediaProvider == "s3" {
		return media.NewS3Uploader(container.GetS3(), media.S3Options{
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	}
	return media.NewGCSUploader(container.GetGCS(), cfg.GCSBucket)
}

func buildUserModule() *modules.UserModule {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	users, channels := buildRepositories(cfg)

	opts := []application.Option{application.WithLogger(logger)}
	var sessions middleware.SessionChecker
	if rdb := container.GetRedis(); rdb != nil {
		store := cache.NewSessionStore(rdb)
		opts = append(opts, application.WithSessions(store, cfg.SessionTTL))
		sessions = store
	}
	if es := container.GetES(); es != nil && cfg.ESUsersIndex != "" {
		opts = append(opts, application.WithIndex(search.NewUserIndex(es, cfg.ESUsersIndex)))
	}
	if pub := container.GetRabbitPub(); pub != nil {
		opts = append(opts, application.WithNotifier(notify.NewEmailNotifier(cfg, pub)))
	}

	svc := application.NewService(users, container.GetJWT(), helpers.NewBcryptHasher(cfg.BcryptCost), buildMedia(cfg), opts...)
	channelSvc := application.NewChannelService(channels, logger)

	return &modules.UserModule{
		Users: handlers.NewUserHandler(svc, logger,
			helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
			handlers.Uploads{Dir: cfg.UploadTempDir, MaxSize: cfg.MaxUploadSize}),
		Channels:   handlers.NewChannelHandler(channelSvc, logger),
		JWT:        container.GetJWT(),
		Sessions:   sessions,
		RDB:        container.GetRedis(),
		AuthLimit:  cfg.AuthRateLimit,
		AuthWindow: cfg.AuthRateWindow,
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	r.Add(buildUserModule())
	r.Add(modules.NewDebugModule(container.GetRedis(), cfg.DebugMetricsEnabled))
}

// Close releases clients owned by the container.
func Close(ctx context.Context) {
	if s := container.GetMongo(); s != nil {
		_ = s.Close(ctx)
	}
	if p := container.GetRabbitPub(); p != nil {
		p.Close()
	}
}
