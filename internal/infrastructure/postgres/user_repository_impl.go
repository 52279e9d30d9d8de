package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-media-identity/internal/domain/entity"
	"github.com/oksasatya/go-media-identity/internal/domain/repository"
)

const (
	pgUniqueViolation = "23505"
	pgInvalidTextRepr = "22P02"
	userColumns       = `id::text, username, email, fullname, avatar_url, cover_image_url, password_hash, COALESCE(refresh_token, ''), watch_history::text[], created_at, updated_at`
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// mapErr turns driver errors into repository sentinels. A malformed uuid can
// never match a row, so it reads as not found.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return repository.ErrDuplicate
		case pgInvalidTextRepr:
			return repository.ErrNotFound
		}
	}
	return err
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Fullname, &u.AvatarURL, &u.CoverImageURL,
		&u.PasswordHash, &u.RefreshToken, &u.WatchHistory, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, fullname, avatar_url, cover_image_url, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at, updated_at
	`, u.Username, u.Email, u.Fullname, u.AvatarURL, u.CoverImageURL, u.PasswordHash)

	return mapErr(row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error) {
	if username == "" && email == "" {
		return nil, repository.ErrNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND lower(email) = lower($2))
		LIMIT 1
	`, username, email))
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, changes entity.ProfileChanges) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET fullname        = COALESCE($2::text, fullname),
		    email           = COALESCE($3::text, email),
		    avatar_url      = COALESCE($4::text, avatar_url),
		    cover_image_url = COALESCE($5::text, cover_image_url),
		    updated_at      = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, changes.Fullname, changes.Email, changes.AvatarURL, changes.CoverImageURL))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return mapErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetRefreshToken writes NULL for an empty token.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	res, err := r.pool.Exec(ctx, `UPDATE users SET refresh_token = NULLIF($2, '') WHERE id = $1`, id, token)
	if err != nil {
		return mapErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	if current == "" {
		return false, nil
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET refresh_token = NULLIF($3, '')
		WHERE id = $1 AND refresh_token = $2
	`, id, current, next)
	if err != nil {
		return false, mapErr(err)
	}
	if res.RowsAffected() == 1 {
		return true, nil
	}
	exists, err := r.exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, repository.ErrNotFound
	}
	return false, nil
}

func (r *UserRepository) exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok); err != nil {
		if errors.Is(mapErr(err), repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
