package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	"github.com/oksasatya/go-media-identity/internal/domain/repository"
)

type ChannelRepository struct {
	pool  *pgxpool.Pool
	users *UserRepository
}

func NewChannelRepository(pool *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{pool: pool, users: NewUserRepository(pool)}
}

func (r *ChannelRepository) GetChannelProfile(ctx context.Context, username, viewerID string) (*entity.ChannelProfile, error) {
	p := &entity.ChannelProfile{}
	err := r.pool.QueryRow(ctx, `
		SELECT u.fullname, u.username, u.avatar_url, u.cover_image_url,
		       (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
		       (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
		       EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id::text = $2)
		FROM users u
		WHERE u.username = lower($1)
	`, username, viewerID).Scan(&p.Fullname, &p.Username, &p.AvatarURL, &p.CoverImageURL,
		&p.SubscribersCount, &p.SubscribedToCount, &p.IsSubscribed)
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

// GetWatchHistory keeps the array order of users.watch_history, repeats included.
func (r *ChannelRepository) GetWatchHistory(ctx context.Context, userID string) ([]entity.WatchedVideo, error) {
	exists, err := r.users.exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, `
		SELECT v.id::text, v.title, v.description, v.video_file_url, v.thumbnail_url, v.duration,
		       v.views, v.is_published, v.owner_id::text, v.created_at,
		       o.fullname, o.username, o.avatar_url
		FROM users u
		CROSS JOIN LATERAL unnest(u.watch_history) WITH ORDINALITY AS h(video_id, position)
		JOIN videos v ON v.id = h.video_id
		JOIN users o ON o.id = v.owner_id
		WHERE u.id = $1
		ORDER BY h.position
	`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []entity.WatchedVideo{}
	for rows.Next() {
		var w entity.WatchedVideo
		if err := rows.Scan(&w.ID, &w.Title, &w.Description, &w.VideoFileURL, &w.ThumbnailURL, &w.Duration,
			&w.Views, &w.IsPublished, &w.OwnerID, &w.CreatedAt,
			&w.Owner.Fullname, &w.Owner.Username, &w.Owner.AvatarURL); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

var _ repository.ChannelRepository = (*ChannelRepository)(nil)
