package handlers

import (
	"context"

	"github.com/google/uuid"

	"dotogether/models"
)

// canAccessList is the authorization primitive checked before every
// list-scoped operation: a nil list is the personal-task case and passes
// trivially, otherwise it is an exact membership lookup.
func (s *Server) canAccessList(ctx context.Context, userID uuid.UUID, listID *uuid.UUID) (bool, error) {
	if listID == nil {
		return true, nil
	}
	return s.tasks.IsMember(ctx, *listID, userID)
}

// canAccessTask applies the task policy: a personal task is private to its
// owner, a list task is open to every current member of its list. List
// members and owners are deliberately indistinguishable here.
func (s *Server) canAccessTask(ctx context.Context, userID uuid.UUID, t models.Task) (bool, error) {
	if t.ListID == nil {
		return t.UserID == userID, nil
	}
	return s.canAccessList(ctx, userID, t.ListID)
}
