package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/model"
)

const groupColumns = `g.id, g.name, g.description, g.created_at`

func (db *DB) CreateGroup(ctx context.Context, group *model.Group) error {
	group.ID = xid.New().String()
	group.CreatedAt = time.Now().UTC()

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO user_groups (id, name, description, created_at) VALUES (?, ?, ?, ?)`,
		group.ID, group.Name, group.Description, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating group: %w", err)
	}
	return nil
}

func (db *DB) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	g, err := scanGroup(db.q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM user_groups g WHERE g.id = ?`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("group", id)
		}
		return nil, fmt.Errorf("sqlite: getting group %s: %w", id, err)
	}
	return g, nil
}

// ListGroups returns every group, newest first.
func (db *DB) ListGroups(ctx context.Context) ([]model.Group, error) {
	return db.queryGroups(ctx,
		`SELECT `+groupColumns+` FROM user_groups g
		 ORDER BY g.created_at DESC, g.id DESC`)
}

// ListGroupsForUser returns the groups userID belongs to, most recently
// joined first.
func (db *DB) ListGroupsForUser(ctx context.Context, userID string) ([]model.Group, error) {
	return db.queryGroups(ctx,
		`SELECT `+groupColumns+` FROM user_groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY m.joined_at DESC, g.id DESC`, userID)
}

func (db *DB) UpdateGroup(ctx context.Context, group *model.Group) error {
	res, err := db.q.ExecContext(ctx,
		`UPDATE user_groups SET name = ?, description = ? WHERE id = ?`,
		group.Name, group.Description, group.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating group %s: %w", group.ID, err)
	}
	return expectOneRow(res, "group", group.ID)
}

// DeleteGroup removes the group. The schema cascades to group_members and
// sets recipes.group_id to NULL.
func (db *DB) DeleteGroup(ctx context.Context, id string) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM user_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting group %s: %w", id, err)
	}
	return expectOneRow(res, "group", id)
}

func (db *DB) queryGroups(ctx context.Context, query string, args ...any) ([]model.Group, error) {
	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing groups: %w", err)
	}
	defer rows.Close()

	groups := make([]model.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning group: %w", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating groups: %w", err)
	}
	return groups, nil
}

func scanGroup(row rowScanner) (*model.Group, error) {
	var g model.Group
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}
