package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"

	"dotogether/models"
	"dotogether/store"
)

type createListRequest struct {
	Name string `json:"name"`
}

type addMemberRequest struct {
	Username string `json:"username"`
}

func (s *Server) listLists(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	lists, err := s.tasks.ListsForUser(r.Context(), userID)
	if err != nil {
		s.log.WithError(err).Error("failed to fetch lists")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return
	}
	s.writeJSON(w, http.StatusOK, lists)
}

func (s *Server) createList(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req createListRequest
	if isJSONBody(r) {
		if err := decodeJSON(r, &req); err != nil {
			s.respondErr(w, r, http.StatusBadRequest, "Invalid request body.", "/")
			return
		}
	} else {
		req.Name = r.FormValue("name")
	}

	if strings.TrimSpace(req.Name) == "" {
		s.respondErr(w, r, http.StatusBadRequest, "List name is required.", "/")
		return
	}

	if _, err := s.tasks.CreateList(r.Context(), userID, strings.TrimSpace(req.Name)); err != nil {
		s.log.WithError(err).Error("failed to create list")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return
	}

	s.respondOK(w, r, http.StatusCreated, "List created", "/")
}

// listMembers shows the roster to current members only, sorted owner first
// and then by username.
func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	listID, list, ok := s.resolveList(w, r, r.PathValue("id"))
	if !ok {
		return
	}

	member, err := s.tasks.IsMember(r.Context(), listID, userID)
	if err != nil {
		s.log.WithError(err).Error("membership lookup failed")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return
	}
	if !member {
		s.respondErr(w, r, http.StatusForbidden, "You are not a member of this list.", "/")
		return
	}

	memberships, err := s.tasks.Members(r.Context(), listID)
	if err != nil {
		s.log.WithError(err).Error("failed to fetch members")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return
	}

	// Accounts live in a separate database, so usernames are resolved here
	// rather than in SQL.
	roster := make([]models.Member, 0, len(memberships))
	for _, m := range memberships {
		user, err := s.accounts.UserByID(r.Context(), m.UserID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				continue
			}
			s.log.WithError(err).Error("failed to resolve member")
			s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
			return
		}
		roster = append(roster, models.Member{
			UserID:   user.ID,
			Username: user.Username,
			Name:     user.Name,
			IsOwner:  user.ID == list.OwnerID,
		})
	}
	sortMembers(roster)

	s.writeJSON(w, http.StatusOK, roster)
}

// addMember lets the list owner add a user by username.
func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	listID, list, ok := s.resolveList(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	if list.OwnerID != userID {
		s.respondErr(w, r, http.StatusForbidden, "Only the list owner can manage members.", "/")
		return
	}

	var req addMemberRequest
	if isJSONBody(r) {
		if err := decodeJSON(r, &req); err != nil {
			s.respondErr(w, r, http.StatusBadRequest, "Invalid request body.", "/")
			return
		}
	} else {
		req.Username = r.FormValue("username")
	}

	if req.Username == "" {
		s.respondErr(w, r, http.StatusBadRequest, "Username is required.", "/")
		return
	}

	user, err := s.accounts.UserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.respondErr(w, r, http.StatusNotFound, "User not found.", "/")
			return
		}
		s.log.WithError(err).Error("failed to resolve username")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return
	}

	if err := s.tasks.AddMember(r.Context(), listID, user.ID); err != nil {
		s.log.WithError(err).Error("failed to add member")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return
	}

	s.respondOK(w, r, http.StatusOK, "Member added", "/")
}

// removeMember lets the list owner remove anyone but themselves.
func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	listID, list, ok := s.resolveList(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	if list.OwnerID != userID {
		s.respondErr(w, r, http.StatusForbidden, "Only the list owner can manage members.", "/")
		return
	}

	target, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		s.respondErr(w, r, http.StatusNotFound, "Member not found.", "/")
		return
	}

	if err := s.tasks.RemoveMember(r.Context(), listID, target); err != nil {
		switch {
		case errors.Is(err, store.ErrOwnerCannotBeRemoved):
			s.respondErr(w, r, http.StatusForbidden, "The list owner cannot be removed.", "/")
		case errors.Is(err, store.ErrNotFound):
			s.respondErr(w, r, http.StatusNotFound, "Member not found.", "/")
		default:
			s.log.WithError(err).Error("failed to remove member")
			s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		}
		return
	}

	s.respondOK(w, r, http.StatusOK, "Member removed", "/")
}

// sortMembers orders a roster owner first, then case-insensitively by
// username.
func sortMembers(roster []models.Member) {
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].IsOwner != roster[j].IsOwner {
			return roster[i].IsOwner
		}
		return strings.ToLower(roster[i].Username) < strings.ToLower(roster[j].Username)
	})
}
