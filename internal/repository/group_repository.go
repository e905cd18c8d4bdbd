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

// GroupRepository encapsulates group persistence. Save carries the
// optimistic-concurrency contract: the embedded policy (including every
// subscriber mutation) is written as a whole against the version the caller
// read, so concurrent read-modify-write cycles on the same group surface as
// a conflict instead of a lost update.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	GetByName(ctx context.Context, name string) (*domain.Group, error)
	Save(ctx context.Context, group *domain.Group) error
	List(ctx context.Context) ([]domain.Group, error)
	Delete(ctx context.Context, name string) error
}

type groupRepository struct {
	pool *pgxpool.Pool
}

// NewGroupRepository instantiates repository.
func NewGroupRepository(pool *pgxpool.Pool) GroupRepository {
	return &groupRepository{pool: pool}
}

func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	policy, err := marshalPolicy(group.Policy)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO groups (name, policy, last_rotated, admin_ids, member_ids)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING version, created_at, updated_at`
	err = r.pool.QueryRow(ctx, query,
		group.Name,
		policy,
		group.LastRotated,
		group.AdminIDs,
		group.MemberIDs,
	).Scan(&group.Version, &group.CreatedAt, &group.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return util.NewConflict("group already exists", map[string]any{"name": group.Name})
	}
	return err
}

func (r *groupRepository) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	const query = `
        SELECT name, policy, last_rotated, admin_ids, member_ids, version, created_at, updated_at
        FROM groups WHERE name=$1`
	var group domain.Group
	var policy []byte
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&group.Name,
		&policy,
		&group.LastRotated,
		&group.AdminIDs,
		&group.MemberIDs,
		&group.Version,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, util.NewNotFound("group", map[string]any{"name": name})
	}
	if err != nil {
		return nil, err
	}
	if group.Policy, err = unmarshalPolicy(policy); err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) Save(ctx context.Context, group *domain.Group) error {
	policy, err := marshalPolicy(group.Policy)
	if err != nil {
		return err
	}
	const query = `
        UPDATE groups SET policy=$1, last_rotated=$2, admin_ids=$3, member_ids=$4,
            version=version+1, updated_at=NOW()
        WHERE name=$5 AND version=$6`
	cmd, err := r.pool.Exec(ctx, query,
		policy,
		group.LastRotated,
		group.AdminIDs,
		group.MemberIDs,
		group.Name,
		group.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByName(ctx, group.Name); err != nil {
			return err
		}
		return util.NewConflict("group modified concurrently", map[string]any{"name": group.Name})
	}
	group.Version++
	return nil
}

func (r *groupRepository) List(ctx context.Context) ([]domain.Group, error) {
	const query = `
        SELECT name, policy, last_rotated, admin_ids, member_ids, version, created_at, updated_at
        FROM groups ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Group
	for rows.Next() {
		var group domain.Group
		var policy []byte
		if err := rows.Scan(
			&group.Name,
			&policy,
			&group.LastRotated,
			&group.AdminIDs,
			&group.MemberIDs,
			&group.Version,
			&group.CreatedAt,
			&group.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if group.Policy, err = unmarshalPolicy(policy); err != nil {
			return nil, err
		}
		result = append(result, group)
	}
	return result, rows.Err()
}

func (r *groupRepository) Delete(ctx context.Context, name string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM groups WHERE name=$1`, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("group", map[string]any{"name": name})
	}
	return nil
}

func marshalPolicy(policy *domain.EscalationPolicy) ([]byte, error) {
	if policy == nil {
		return nil, nil
	}
	data, err := json.Marshal(policy)
	if err != nil {
		return nil, fmt.Errorf("marshal policy: %w", err)
	}
	return data, nil
}

func unmarshalPolicy(data []byte) (*domain.EscalationPolicy, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var policy domain.EscalationPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("unmarshal policy: %w", err)
	}
	return &policy, nil
}
