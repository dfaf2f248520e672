package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"studynotes/api/internal/store"
	"studynotes/api/internal/util"
)

const defaultGroupSize = 20

type CreateGroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
	MaxMembers  int    `json:"maxMembers"`
}

func (s *Service) CreateGroup(ctx context.Context, session Session, input CreateGroupInput) (map[string]any, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, validationError("name is required")
	}
	maxMembers := input.MaxMembers
	if maxMembers == 0 {
		maxMembers = defaultGroupSize
	}
	if maxMembers < 2 || maxMembers > 500 {
		return nil, validationError("maxMembers must be between 2 and 500")
	}

	group := store.Group{
		ID:          util.NewID("grp"),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		OwnerID:     session.UserID,
		IsPublic:    input.IsPublic,
		MaxMembers:  maxMembers,
	}
	if err := s.store.InsertGroup(ctx, group); err != nil {
		return nil, err
	}
	created, err := s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	return groupPayload(created), nil
}

// JoinGroup adds the caller to a public group. Joining twice is a no-op.
func (s *Service) JoinGroup(ctx context.Context, session Session, groupID string) (map[string]any, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errGroupNotFound
		}
		return nil, err
	}
	member, err := s.store.IsGroupMember(ctx, groupID, session.UserID)
	if err != nil {
		return nil, err
	}
	if !member && !group.IsPublic {
		return nil, domainError(http.StatusForbidden, "GROUP_PRIVATE", "This group is invite only", nil)
	}
	if err := s.store.AddGroupMember(ctx, groupID, session.UserID); err != nil {
		switch {
		case errors.Is(err, store.ErrGroupFull):
			return nil, domainError(http.StatusConflict, "GROUP_FULL", "Group has reached its member limit", nil)
		case errors.Is(err, sql.ErrNoRows):
			return nil, errGroupNotFound
		}
		return nil, err
	}
	updated, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return groupPayload(updated), nil
}

// ListGroupNotes lists notes shared with a group. Only members may look.
func (s *Service) ListGroupNotes(ctx context.Context, session Session, groupID string, page Page) (map[string]any, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errGroupNotFound
		}
		return nil, err
	}
	member, err := s.store.IsGroupMember(ctx, groupID, session.UserID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, errForbidden
	}
	notes, total, err := s.store.ListGroupNotes(ctx, groupID, page.Size, page.offset())
	if err != nil {
		return nil, err
	}
	return paginated(notes, total, page), nil
}

// ListPublicGroups pages through groups anyone may join.
func (s *Service) ListPublicGroups(ctx context.Context, searchText string, page Page) (map[string]any, error) {
	groups, total, err := s.store.ListPublicGroups(ctx, strings.TrimSpace(searchText), page.Size, page.offset())
	if err != nil {
		return nil, err
	}
	data := make([]map[string]any, 0, len(groups))
	for _, group := range groups {
		data = append(data, groupPayload(group))
	}
	return envelope(data, total, page), nil
}

func groupPayload(group store.Group) map[string]any {
	return map[string]any{
		"id":          group.ID,
		"name":        group.Name,
		"description": group.Description,
		"ownerId":     group.OwnerID,
		"isPublic":    group.IsPublic,
		"maxMembers":  group.MaxMembers,
		"memberCount": group.MemberCount,
		"createdAt":   group.CreatedAt,
	}
}
