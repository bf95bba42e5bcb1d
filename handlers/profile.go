package handlers

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"dotogether/store"
)

const profilePageHTML = `<!DOCTYPE html>
<html>
<body>
<p>%s</p>
<form method="post" action="/profile">
<input name="name" value="%s" placeholder="Display name">
<input name="username" value="%s" placeholder="Username">
<input name="old_password" type="password" placeholder="Old password">
<input name="new_password" type="password" placeholder="New password">
<button type="submit">Save</button>
</form>
</body>
</html>`

func (s *Server) profilePage(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	user, err := s.accounts.UserByID(r.Context(), userID)
	if err != nil {
		s.log.WithError(err).Error("failed to load profile")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return
	}

	if wantsJSON(r) {
		s.writeJSON(w, http.StatusOK, user)
		return
	}

	flash := takeFlash(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, profilePageHTML,
		html.EscapeString(flash), html.EscapeString(user.Name), html.EscapeString(user.Username))
}

// updateProfile changes display name and username, and the password too when
// a new one is submitted along with the correct old one.
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	sess, userID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	name := r.FormValue("name")
	username := r.FormValue("username")
	oldPassword := r.FormValue("old_password")
	newPassword := r.FormValue("new_password")

	if name == "" || username == "" {
		s.respondErr(w, r, http.StatusBadRequest, "Name and username are required.", "/profile")
		return
	}

	user, err := s.accounts.UserByID(r.Context(), userID)
	if err != nil {
		s.log.WithError(err).Error("failed to load profile")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/profile")
		return
	}

	passwordHash := user.PasswordHash
	if newPassword != "" {
		if !checkPasswordHash(oldPassword, user.PasswordHash) {
			s.respondErr(w, r, http.StatusForbidden, "Old password incorrect.", "/profile")
			return
		}
		passwordHash, err = hashPassword(newPassword)
		if err != nil {
			s.log.WithError(err).Error("failed to hash password")
			s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/profile")
			return
		}
	}

	if err := s.accounts.UpdateProfile(r.Context(), userID, name, username, passwordHash); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			s.respondErr(w, r, http.StatusConflict, "Username already exists.", "/profile")
			return
		}
		s.log.WithError(err).Error("failed to update profile")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/profile")
		return
	}

	if username != sess.Username {
		if err := s.sessions.UpdateUsername(r.Context(), sess.Token, username); err != nil {
			s.log.WithError(err).Warn("failed to refresh session username")
		}
	}

	s.respondOK(w, r, http.StatusOK, "Profile updated successfully.", "/profile")
}
