package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/model"
	"github.com/sakif/recipe-room/internal/repository"
	"github.com/sakif/recipe-room/internal/validation"
)

type CreateGroupInput struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// UpdateGroupInput is a partial update: nil fields are left unchanged.
type UpdateGroupInput struct {
	Name        *string `json:"name" validate:"omitnil,notblank,max=100"`
	Description *string `json:"description" validate:"omitnil,max=1000"`
}

// GroupService owns groups and their memberships.
type GroupService struct {
	store  repository.Store
	agg    *Aggregator
	logger *slog.Logger
}

func NewGroupService(store repository.Store, logger *slog.Logger) *GroupService {
	return &GroupService{
		store:  store,
		agg:    NewAggregator(store),
		logger: logger,
	}
}

// CreateGroup creates the group and makes userID its first admin in one
// transaction, so a group never exists without an admin.
func (s *GroupService) CreateGroup(ctx context.Context, userID string, in CreateGroupInput) (*model.GroupView, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	g := &model.Group{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.CreateGroup(ctx, g); err != nil {
			return err
		}
		return tx.AddMember(ctx, &model.GroupMembership{
			UserID:  userID,
			GroupID: g.ID,
			IsAdmin: true,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("group created", slog.String("group_id", g.ID), slog.String("user_id", userID))
	return s.view(ctx, model.AuthenticatedViewer(userID), *g)
}

// ListGroups returns every group, newest first, with the viewer's flags.
func (s *GroupService) ListGroups(ctx context.Context, viewer model.Viewer) ([]model.GroupView, error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	return s.agg.GroupViews(ctx, viewer, groups)
}

// ListMyGroups returns the groups userID belongs to.
func (s *GroupService) ListMyGroups(ctx context.Context, userID string) ([]model.GroupView, error) {
	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.agg.GroupViews(ctx, model.AuthenticatedViewer(userID), groups)
}

func (s *GroupService) GetGroup(ctx context.Context, viewer model.Viewer, groupID string) (*model.GroupView, error) {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, viewer, *g)
}

// UpdateGroup is admin only.
func (s *GroupService) UpdateGroup(ctx context.Context, userID, groupID string, in UpdateGroupInput) (*model.GroupView, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	var updated *model.Group
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := NewAuthorizer(tx).RequireAdmin(ctx, userID, groupID); err != nil {
			return err
		}
		g, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if in.Name != nil {
			g.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			g.Description = strings.TrimSpace(*in.Description)
		}
		if err := tx.UpdateGroup(ctx, g); err != nil {
			return err
		}
		updated = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, model.AuthenticatedViewer(userID), *updated)
}

// DeleteGroup is admin only. Memberships are deleted with the group;
// recipes shared into it become personal again (group_id set to NULL).
func (s *GroupService) DeleteGroup(ctx context.Context, userID, groupID string) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := NewAuthorizer(tx).RequireAdmin(ctx, userID, groupID); err != nil {
			return err
		}
		return tx.DeleteGroup(ctx, groupID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("group deleted", slog.String("group_id", groupID), slog.String("user_id", userID))
	return nil
}

// JoinGroup adds userID as a regular member. Joining twice is a Conflict,
// reported by the UNIQUE(user_id, group_id) constraint.
func (s *GroupService) JoinGroup(ctx context.Context, userID, groupID string) (*model.GroupMembership, error) {
	m := &model.GroupMembership{UserID: userID, GroupID: groupID}
	if err := s.store.AddMember(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("group joined", slog.String("group_id", groupID), slog.String("user_id", userID))
	return m, nil
}

// LeaveGroup removes the caller's own membership. Leaving a group one is
// not in is NotFound.
func (s *GroupService) LeaveGroup(ctx context.Context, userID, groupID string) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.GetGroup(ctx, groupID); err != nil {
			return err
		}
		if err := tx.RemoveMember(ctx, userID, groupID); err != nil {
			if apperror.Is(err, apperror.ErrNotFound) {
				return apperror.NotFound("membership", groupID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("group left", slog.String("group_id", groupID), slog.String("user_id", userID))
	return nil
}

// ListMembers is visible to members only.
func (s *GroupService) ListMembers(ctx context.Context, userID, groupID string) ([]model.MemberView, error) {
	if err := NewAuthorizer(s.store).RequireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, groupID)
}

// SetAdmin promotes or demotes targetUserID. The acting user must be an
// admin; they may demote themselves. The target must already be a member.
func (s *GroupService) SetAdmin(ctx context.Context, actingUserID, groupID, targetUserID string, isAdmin bool) (*model.GroupMembership, error) {
	var m *model.GroupMembership
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := NewAuthorizer(tx).RequireAdmin(ctx, actingUserID, groupID); err != nil {
			return err
		}
		if err := tx.SetAdmin(ctx, targetUserID, groupID, isAdmin); err != nil {
			return err
		}
		var err error
		m, err = tx.GetMembership(ctx, targetUserID, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("group admin changed",
		slog.String("group_id", groupID),
		slog.String("target_user_id", targetUserID),
		slog.Bool("is_admin", isAdmin),
	)
	return m, nil
}

// RemoveMember lets an admin remove another member. Removing oneself
// through this path is Forbidden; use LeaveGroup.
func (s *GroupService) RemoveMember(ctx context.Context, actingUserID, groupID, targetUserID string) error {
	if actingUserID == targetUserID {
		return apperror.Forbidden("use leave to remove yourself from a group")
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := NewAuthorizer(tx).RequireAdmin(ctx, actingUserID, groupID); err != nil {
			return err
		}
		return tx.RemoveMember(ctx, targetUserID, groupID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("group member removed",
		slog.String("group_id", groupID),
		slog.String("target_user_id", targetUserID),
	)
	return nil
}

// ListGroupRecipes requires current membership, checked on every call.
func (s *GroupService) ListGroupRecipes(ctx context.Context, userID, groupID string) ([]model.RecipeView, error) {
	if err := NewAuthorizer(s.store).RequireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	recipes, err := s.store.ListRecipesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.agg.RecipeViews(ctx, model.AuthenticatedViewer(userID), recipes)
}

func (s *GroupService) view(ctx context.Context, viewer model.Viewer, g model.Group) (*model.GroupView, error) {
	v, err := s.agg.GroupView(ctx, viewer, g)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
