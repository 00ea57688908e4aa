package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/storage"
)

const usersTable = "users"

type UserRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// UpsertExternalUser creates the user on first sign-in and refreshes the
// provider supplied fields on later ones. A display name chosen by the user
// is never overwritten.
func (r *UserRepo) UpsertExternalUser(ctx context.Context, identity models.ExternalIdentity) (models.User, error) {
	const op = "repository.UserRepo.UpsertExternalUser"

	query, args, err := r.sb.Insert(usersTable).
		Columns("google_sub", "email", "display_name", "photo_url").
		Values(identity.Subject, identity.Email, identity.Name, identity.PictureURL).
		Suffix(`ON CONFLICT (google_sub) DO UPDATE SET
			email = EXCLUDED.email,
			photo_url = EXCLUDED.photo_url,
			last_login = NOW()
		RETURNING id, google_sub, email, display_name, photo_url, created_at, last_login`).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	var user models.User
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.GoogleSub,
		&user.Email,
		&user.DisplayName,
		&user.PhotoURL,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "repository.UserRepo.GetUserByID"

	query, args, err := r.sb.Select("id", "google_sub", "email", "display_name", "photo_url", "created_at", "last_login").
		From(usersTable).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	var user models.User
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.GoogleSub,
		&user.Email,
		&user.DisplayName,
		&user.PhotoURL,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (r *UserRepo) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) error {
	const op = "repository.UserRepo.UpdateDisplayName"

	query, args, err := r.sb.Update(usersTable).
		Set("display_name", displayName).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}
