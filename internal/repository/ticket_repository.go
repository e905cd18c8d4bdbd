package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PagerNation/escalator/internal/domain"
	util "github.com/PagerNation/escalator/pkg/util"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	ListOpenByGroup(ctx context.Context, groupName string) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	actions, err := marshalActions(ticket.Actions)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (group_name, title, description, is_open, actions, page_ids)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.GroupName,
		ticket.Title,
		ticket.Description,
		ticket.IsOpen,
		actions,
		ticket.PageIDs,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, group_name, title, description, is_open, actions, page_ids, created_at, updated_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	var actions []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.GroupName,
		&ticket.Title,
		&ticket.Description,
		&ticket.IsOpen,
		&actions,
		&ticket.PageIDs,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, util.NewNotFound("ticket", map[string]any{"id": id})
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(actions, &ticket.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	return &ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	actions, err := marshalActions(ticket.Actions)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET is_open=$1, actions=$2, page_ids=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.IsOpen,
		actions,
		ticket.PageIDs,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("ticket", map[string]any{"id": ticket.ID})
	}
	return nil
}

func (r *ticketRepository) ListOpenByGroup(ctx context.Context, groupName string) ([]domain.Ticket, error) {
	const query = `
        SELECT id, group_name, title, description, is_open, actions, page_ids, created_at, updated_at
        FROM tickets WHERE group_name=$1 AND is_open ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, groupName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		var actions []byte
		if err := rows.Scan(
			&ticket.ID,
			&ticket.GroupName,
			&ticket.Title,
			&ticket.Description,
			&ticket.IsOpen,
			&actions,
			&ticket.PageIDs,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(actions, &ticket.Actions); err != nil {
			return nil, fmt.Errorf("unmarshal actions: %w", err)
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func marshalActions(actions []domain.TicketAction) ([]byte, error) {
	if actions == nil {
		actions = []domain.TicketAction{}
	}
	data, err := json.Marshal(actions)
	if err != nil {
		return nil, fmt.Errorf("marshal actions: %w", err)
	}
	return data, nil
}
