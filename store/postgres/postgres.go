/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// Package postgres implements store.UserStore on a PostgreSQL database via
// pgx. All counter mutations are single-statement atomic increments so that
// concurrent result applications for different users never interfere.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mikeb26/customslobby-bot/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    discord_id TEXT PRIMARY KEY,
    discord_username TEXT NOT NULL,
    discord_tag TEXT NOT NULL,
    avatar_url TEXT NOT NULL DEFAULT '',
    game_handle TEXT,
    rating INTEGER DEFAULT 1500,
    games_played INTEGER DEFAULT 0,
    wins INTEGER DEFAULT 0,
    losses INTEGER DEFAULT 0,
    registered_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_rating ON users (rating DESC);
`

const userColumns = `discord_id, discord_username, discord_tag, avatar_url,
    COALESCE(game_handle, ''), rating, games_played, wins, losses,
    registered_at, updated_at`

// Store implements store.UserStore backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to connString and ensures the schema exists.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres.new: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.new: init schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) EnsureRegistered(ctx context.Context,
	u store.User) (store.User, error) {

	row := s.pool.QueryRow(ctx, `
        INSERT INTO users (discord_id, discord_username, discord_tag, avatar_url)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (discord_id) DO UPDATE
        SET discord_username = EXCLUDED.discord_username,
            discord_tag = EXCLUDED.discord_tag,
            avatar_url = EXCLUDED.avatar_url,
            updated_at = NOW()
        RETURNING `+userColumns,
		u.ID, u.Username, u.Tag, u.AvatarURL)

	return scanUser(row)
}

func (s *Store) GetUser(ctx context.Context, id string) (store.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE discord_id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.User{}, store.ErrNotFound
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]store.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY registered_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres.list: %w", err)
	}
	defer rows.Close()

	var users []store.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres.list: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) LinkGameHandle(ctx context.Context, id, handle string) error {
	tag, err := s.pool.Exec(ctx, `
        UPDATE users
        SET game_handle = $1, updated_at = NOW()
        WHERE discord_id = $2`, handle, id)
	if err != nil {
		return fmt.Errorf("postgres.link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ApplyResult(ctx context.Context, id string, ratingDelta int,
	won bool) error {

	winsInc, lossesInc := 0, 1
	if won {
		winsInc, lossesInc = 1, 0
	}
	tag, err := s.pool.Exec(ctx, `
        UPDATE users
        SET rating = rating + $1,
            games_played = games_played + 1,
            wins = wins + $2,
            losses = losses + $3,
            updated_at = NOW()
        WHERE discord_id = $4`, ratingDelta, winsInc, lossesInc, id)
	if err != nil {
		return fmt.Errorf("postgres.apply: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ReverseResult(ctx context.Context, id string, ratingDelta int,
	hadWon bool) error {

	winsDec, lossesDec := 0, 1
	if hadWon {
		winsDec, lossesDec = 1, 0
	}
	tag, err := s.pool.Exec(ctx, `
        UPDATE users
        SET rating = rating - $1,
            games_played = games_played - 1,
            wins = wins - $2,
            losses = losses - $3,
            updated_at = NOW()
        WHERE discord_id = $4`, ratingDelta, winsDec, lossesDec, id)
	if err != nil {
		return fmt.Errorf("postgres.reverse: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AdjustRating(ctx context.Context, id string, change int) error {
	tag, err := s.pool.Exec(ctx, `
        UPDATE users
        SET rating = rating + $1, updated_at = NOW()
        WHERE discord_id = $2`, change, id)
	if err != nil {
		return fmt.Errorf("postgres.adjust: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) RemoveWin(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
        UPDATE users
        SET wins = wins - 1, games_played = games_played - 1,
            updated_at = NOW()
        WHERE discord_id = $1 AND wins > 0 AND games_played > 0`, id)
	if err != nil {
		return fmt.Errorf("postgres.removewin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres.removewin: no wins to remove for %v", id)
	}
	return nil
}

func (s *Store) RemoveLoss(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
        UPDATE users
        SET losses = losses - 1, games_played = games_played - 1,
            updated_at = NOW()
        WHERE discord_id = $1 AND losses > 0 AND games_played > 0`, id)
	if err != nil {
		return fmt.Errorf("postgres.removeloss: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres.removeloss: no losses to remove for %v", id)
	}
	return nil
}

func scanUser(row pgx.Row) (store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Username, &u.Tag, &u.AvatarURL, &u.GameHandle,
		&u.Rating, &u.GamesPlayed, &u.Wins, &u.Losses,
		&u.RegisteredAt, &u.UpdatedAt)
	if err != nil {
		return store.User{}, err
	}
	return u, nil
}
