package leaderboard

import (
	"context"
	"embed"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/victornm/jackpot/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

const codeUniqueViolation = "23505"

// Migrate brings the leaderboard schema up to date.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("migrate leaderboard: %w", err)
	}

	return nil
}

// PostgresStore locks the player's row for the duration of an update.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, playerID int64, fn UpdateFunc) (domain.LeaderboardEntry, error) {
	e, err := s.upsert(ctx, playerID, fn)

	// Two first submissions of the same player both see no row, the loser of the insert retries as an update.
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		e, err = s.upsert(ctx, playerID, fn)
	}

	if err != nil {
		return domain.LeaderboardEntry{}, fmt.Errorf("upsert player %d: %w", playerID, err)
	}

	return e, nil
}

func (s *PostgresStore) upsert(ctx context.Context, playerID int64, fn UpdateFunc) (_ domain.LeaderboardEntry, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.LeaderboardEntry{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const selStmt = `
SELECT player_id, display_name, high_score, total_score, games_played, last_played_at, seq
FROM leaderboard_entries
WHERE player_id = $1
FOR UPDATE;`

	var cur *domain.LeaderboardEntry
	e, err := scanEntry(tx.QueryRow(ctx, selStmt, playerID))
	switch {
	case stderrors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return domain.LeaderboardEntry{}, fmt.Errorf("select entry: %w", err)
	default:
		cur = &e
	}

	next, err := fn(cur)
	if err != nil {
		return domain.LeaderboardEntry{}, err
	}
	next.PlayerID = playerID

	if cur == nil {
		const insStmt = `
INSERT INTO leaderboard_entries (player_id, display_name, high_score, total_score, games_played, last_played_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING seq;`

		err = tx.QueryRow(ctx, insStmt,
			next.PlayerID, next.DisplayName, next.HighScore, next.TotalScore, next.GamesPlayed, next.LastPlayedAt,
		).Scan(&next.Seq)
		if err != nil {
			return domain.LeaderboardEntry{}, fmt.Errorf("insert entry: %w", err)
		}
	} else {
		const updStmt = `
UPDATE leaderboard_entries
SET display_name = $2, high_score = $3, total_score = $4, games_played = $5, last_played_at = $6
WHERE player_id = $1;`

		_, err = tx.Exec(ctx, updStmt,
			next.PlayerID, next.DisplayName, next.HighScore, next.TotalScore, next.GamesPlayed, next.LastPlayedAt,
		)
		if err != nil {
			return domain.LeaderboardEntry{}, fmt.Errorf("update entry: %w", err)
		}
		next.Seq = cur.Seq
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.LeaderboardEntry{}, fmt.Errorf("commit: %w", err)
	}

	return next, nil
}

func (s *PostgresStore) Entries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	const stmt = `
SELECT player_id, display_name, high_score, total_score, games_played, last_played_at, seq
FROM leaderboard_entries
ORDER BY seq;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.LeaderboardEntry, error) {
		return scanEntry(r)
	})
	if err != nil {
		return nil, fmt.Errorf("collect entries: %w", err)
	}

	return entries, nil
}

func scanEntry(r pgx.Row) (domain.LeaderboardEntry, error) {
	var e domain.LeaderboardEntry
	err := r.Scan(&e.PlayerID, &e.DisplayName, &e.HighScore, &e.TotalScore, &e.GamesPlayed, &e.LastPlayedAt, &e.Seq)
	if err != nil {
		return domain.LeaderboardEntry{}, err
	}

	e.LastPlayedAt = e.LastPlayedAt.UTC()
	return e, nil
}
