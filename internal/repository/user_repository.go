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

// UserRepository encapsulates user persistence and the subscriber-reference
// lookups the fan-out path depends on.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, user *domain.User) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	devices, err := marshalDevices(user.Devices)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO users (name, email, phone, devices, delays_minutes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err = r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.Phone,
		devices,
		user.DelaysMinutes,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return util.NewConflict("email already registered", map[string]any{"email": user.Email})
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, name, email, phone, devices, delays_minutes, created_at, updated_at
        FROM users WHERE id=$1`
	var user domain.User
	var devices []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&devices,
		&user.DelaysMinutes,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, util.NewNotFound("user", map[string]any{"id": id})
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(devices, &user.Devices); err != nil {
		return nil, fmt.Errorf("unmarshal devices: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	devices, err := marshalDevices(user.Devices)
	if err != nil {
		return err
	}
	const query = `
        UPDATE users SET name=$1, email=$2, phone=$3, devices=$4, delays_minutes=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		user.Name,
		user.Email,
		user.Phone,
		devices,
		user.DelaysMinutes,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("user", map[string]any{"id": user.ID})
	}
	return nil
}

func marshalDevices(devices []domain.Device) ([]byte, error) {
	if devices == nil {
		devices = []domain.Device{}
	}
	data, err := json.Marshal(devices)
	if err != nil {
		return nil, fmt.Errorf("marshal devices: %w", err)
	}
	return data, nil
}
