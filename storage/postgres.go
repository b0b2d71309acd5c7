package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BasKiers/scrumpoker/domain"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// EnsureRoom loads the card status for a room, creating the row with
// hidden cards on first activity.
func (r *PostgresRepo) EnsureRoom(ctx context.Context, roomID string) (domain.CardStatus, error) {
	var status domain.CardStatus

	row := r.pool.QueryRow(ctx,
		`INSERT INTO room_state (room_id, card_status) VALUES ($1, $2)
		 ON CONFLICT (room_id) DO UPDATE SET card_status = room_state.card_status
		 RETURNING card_status`,
		roomID, domain.CardsHidden)

	if err := row.Scan(&status); err != nil {
		return "", wrapDatabaseError(err)
	}
	return status, nil
}

func (r *PostgresRepo) GetParticipant(ctx context.Context, roomID, userID string) (domain.Participant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT user_id, name, selected_card, last_event_timestamp
		 FROM participants WHERE room_id = $1 AND user_id = $2`,
		roomID, userID)

	p, err := scanParticipant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Participant{}, domain.ErrParticipantNotFound
		}
		return domain.Participant{}, wrapDatabaseError(err)
	}
	return p, nil
}

func (r *PostgresRepo) ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, name, selected_card, last_event_timestamp
		 FROM participants WHERE room_id = $1`,
		roomID)
	if err != nil {
		return nil, wrapDatabaseError(err)
	}
	defer rows.Close()

	participants := []domain.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, wrapDatabaseError(err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDatabaseError(err)
	}
	return participants, nil
}

// CreateParticipant inserts a bare row for a first-time visitor. A
// concurrent insert from another connection of the same user is fine.
func (r *PostgresRepo) CreateParticipant(ctx context.Context, roomID, userID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO participants (user_id, room_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, room_id) DO NOTHING`,
		userID, roomID)
	if err != nil {
		return wrapDatabaseError(err)
	}
	return nil
}

func (r *PostgresRepo) SetSelectedCard(ctx context.Context, roomID, userID, card string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE participants SET selected_card = $1, last_event_timestamp = $2
		 WHERE user_id = $3 AND room_id = $4`,
		card, at.UnixMilli(), userID, roomID)
	if err != nil {
		return wrapDatabaseError(err)
	}
	return nil
}

func (r *PostgresRepo) SetName(ctx context.Context, roomID, userID, name string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE participants SET name = $1, last_event_timestamp = $2
		 WHERE user_id = $3 AND room_id = $4`,
		name, at.UnixMilli(), userID, roomID)
	if err != nil {
		return wrapDatabaseError(err)
	}
	return nil
}

func (r *PostgresRepo) SetCardStatus(ctx context.Context, roomID string, status domain.CardStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE room_state SET card_status = $1 WHERE room_id = $2`,
		status, roomID)
	if err != nil {
		return wrapDatabaseError(err)
	}
	return nil
}

// ResetCards clears every vote in the room and hides the cards, in one
// transaction so a crash cannot leave the two tables disagreeing.
func (r *PostgresRepo) ResetCards(ctx context.Context, roomID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wrapDatabaseError(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE participants SET selected_card = NULL
		 WHERE room_id = $1 AND selected_card IS NOT NULL`,
		roomID)
	if err != nil {
		return wrapDatabaseError(err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE room_state SET card_status = $1 WHERE room_id = $2`,
		domain.CardsHidden, roomID)
	if err != nil {
		return wrapDatabaseError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDatabaseError(err)
	}
	return nil
}

// PruneParticipants garbage-collects rows that have not seen a
// mutating event since the cutoff. Rows for users that never produced
// an event keep a NULL timestamp and are pruned as well.
func (r *PostgresRepo) PruneParticipants(ctx context.Context, roomID string, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM participants
		 WHERE room_id = $1 AND (last_event_timestamp IS NULL OR last_event_timestamp < $2)`,
		roomID, olderThan.UnixMilli())
	if err != nil {
		return 0, wrapDatabaseError(err)
	}
	return tag.RowsAffected(), nil
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var (
		p            domain.Participant
		name         *string
		selectedCard *string
		lastEvent    *int64
	)
	if err := row.Scan(&p.UserID, &name, &selectedCard, &lastEvent); err != nil {
		return domain.Participant{}, err
	}
	if name != nil {
		p.Name = *name
	}
	if selectedCard != nil {
		p.SelectedCard = *selectedCard
	}
	if lastEvent != nil {
		p.LastEventTimestamp = *lastEvent
	}
	return p, nil
}

func wrapDatabaseError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
}
