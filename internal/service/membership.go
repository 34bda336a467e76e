package service

import (
	"context"
	"errors"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/repository"
)

// membershipStore is what the Authorizer reads. Both repository.Store and
// the transactional Store handed to WithTx callbacks satisfy it.
type membershipStore interface {
	repository.GroupRepository
	repository.MembershipRepository
}

// Authorizer answers "is this user a member / an admin of this group".
//
// The predicates are pure reads of group_members and never write. IsAdmin
// implies IsMember: admin is a flag on the membership row, so there is no
// way to be an admin without being a member.
//
// Inside a transaction build one from the tx Store (NewAuthorizer(tx)) so
// the check sees the same snapshot as the write that follows.
type Authorizer struct {
	store membershipStore
}

func NewAuthorizer(store membershipStore) *Authorizer {
	return &Authorizer{store: store}
}

func (a *Authorizer) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	ok, _, err := a.membership(ctx, userID, groupID)
	return ok, err
}

func (a *Authorizer) IsAdmin(ctx context.Context, userID, groupID string) (bool, error) {
	_, admin, err := a.membership(ctx, userID, groupID)
	return admin, err
}

// RequireMember returns NotFound when the group does not exist and
// Forbidden when userID is not one of its members.
func (a *Authorizer) RequireMember(ctx context.Context, userID, groupID string) error {
	if _, err := a.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	ok, err := a.IsMember(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("you must be a member of this group")
	}
	return nil
}

// RequireAdmin is RequireMember for the admin flag.
func (a *Authorizer) RequireAdmin(ctx context.Context, userID, groupID string) error {
	if _, err := a.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	ok, err := a.IsAdmin(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("only group admins can do this")
	}
	return nil
}

func (a *Authorizer) membership(ctx context.Context, userID, groupID string) (member, admin bool, err error) {
	if userID == "" || groupID == "" {
		return false, false, nil
	}
	m, err := a.store.GetMembership(ctx, userID, groupID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, m.IsAdmin, nil
}
