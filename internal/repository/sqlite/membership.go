package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/model"
)

// AddMember inserts a membership row.
//
// UNIQUE(user_id, group_id) is the source of truth for "already a member":
// two concurrent joins cannot both succeed, the loser gets ErrConflict.
// A missing user or group surfaces as ErrNotFound via the foreign keys.
func (db *DB) AddMember(ctx context.Context, m *model.GroupMembership) error {
	m.ID = xid.New().String()
	m.JoinedAt = time.Now().UTC()

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO group_members (id, user_id, group_id, is_admin, joined_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.GroupID, m.IsAdmin, m.JoinedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.Conflict("already a member of this group")
		case isForeignKeyViolation(err):
			return db.missingParent(ctx, groupParent(m.GroupID), userParent(m.UserID))
		}
		return fmt.Errorf("sqlite: adding member %s to group %s: %w", m.UserID, m.GroupID, err)
	}
	return nil
}

func (db *DB) GetMembership(ctx context.Context, userID, groupID string) (*model.GroupMembership, error) {
	var m model.GroupMembership
	err := db.q.QueryRowContext(ctx,
		`SELECT id, user_id, group_id, is_admin, joined_at
		 FROM group_members WHERE user_id = ? AND group_id = ?`,
		userID, groupID,
	).Scan(&m.ID, &m.UserID, &m.GroupID, &m.IsAdmin, &m.JoinedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("membership", userID)
		}
		return nil, fmt.Errorf("sqlite: getting membership %s/%s: %w", groupID, userID, err)
	}
	return &m, nil
}

func (db *DB) SetAdmin(ctx context.Context, userID, groupID string, isAdmin bool) error {
	res, err := db.q.ExecContext(ctx,
		`UPDATE group_members SET is_admin = ? WHERE user_id = ? AND group_id = ?`,
		isAdmin, userID, groupID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting admin %s/%s: %w", groupID, userID, err)
	}
	return expectOneRow(res, "membership", userID)
}

func (db *DB) RemoveMember(ctx context.Context, userID, groupID string) error {
	res, err := db.q.ExecContext(ctx,
		`DELETE FROM group_members WHERE user_id = ? AND group_id = ?`,
		userID, groupID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing member %s/%s: %w", groupID, userID, err)
	}
	return expectOneRow(res, "membership", userID)
}

// ListMembers returns the group's members, earliest joiner first.
func (db *DB) ListMembers(ctx context.Context, groupID string) ([]model.MemberView, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT u.id, u.username, m.is_admin, m.joined_at
		 FROM group_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.group_id = ?
		 ORDER BY m.joined_at ASC, m.id ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing members of %s: %w", groupID, err)
	}
	defer rows.Close()

	members := make([]model.MemberView, 0)
	for rows.Next() {
		var mv model.MemberView
		if err := rows.Scan(&mv.ID, &mv.Username, &mv.IsAdmin, &mv.JoinedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning member: %w", err)
		}
		members = append(members, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating members: %w", err)
	}
	return members, nil
}

// CountMembers is computed on every call; there is no cached counter.
func (db *DB) CountMembers(ctx context.Context, groupID string) (int, error) {
	var n int
	err := db.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM group_members WHERE group_id = ?`, groupID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting members of %s: %w", groupID, err)
	}
	return n, nil
}
