package model

import "time"

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// GroupMembership links a user to a group. At most one row exists per
// (UserID, GroupID) pair; the store enforces this with a UNIQUE constraint.
type GroupMembership struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	GroupID  string    `json:"group_id"`
	IsAdmin  bool      `json:"is_admin"`
	JoinedAt time.Time `json:"joined_at"`
}

// GroupView is a group as seen by a particular viewer. MemberCount is
// computed on every read; the two flags are false for anonymous viewers.
type GroupView struct {
	Group
	MemberCount         int  `json:"member_count"`
	CurrentUserIsMember bool `json:"current_user_is_member"`
	CurrentUserIsAdmin  bool `json:"current_user_is_admin"`
}

// MemberView is one row of a group's member list.
type MemberView struct {
	UserSummary
	IsAdmin  bool      `json:"is_admin"`
	JoinedAt time.Time `json:"joined_at"`
}
