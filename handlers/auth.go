package handlers

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"dotogether/session"
	"dotogether/store"
)

const homePage = `<!DOCTYPE html>
<html>
<body>
<p>%s</p>
<h1>Welcome, %s</h1>
<p><a href="/profile">Profile</a> | <a href="/logout">Log out</a></p>
</body>
</html>`

const authPageHTML = `<!DOCTYPE html>
<html>
<body>
<p>%s</p>
<form method="post" action="/auth">
<input type="hidden" name="action" value="login">
<input name="username" placeholder="Username">
<input name="password" type="password" placeholder="Password">
<label><input type="checkbox" name="remember" value="on"> Remember me</label>
<button type="submit">Log in</button>
</form>
<form method="post" action="/auth">
<input type="hidden" name="action" value="signup">
<input name="username" placeholder="Username">
<input name="name" placeholder="Display name">
<input name="security" placeholder="Security answer">
<input name="password" type="password" placeholder="Password">
<button type="submit">Sign up</button>
</form>
</body>
</html>`

// home redirects anonymous visitors to /auth and greets everyone else.
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}

	flash := takeFlash(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, homePage, html.EscapeString(flash), html.EscapeString(sess.Username))
}

func (s *Server) authPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentSession(w, r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	flash := takeFlash(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, authPageHTML, html.EscapeString(flash))
}

// auth dispatches signup and login on the form's action field.
func (s *Server) auth(w http.ResponseWriter, r *http.Request) {
	switch r.FormValue("action") {
	case "signup":
		s.signup(w, r)
	case "login":
		s.login(w, r)
	default:
		s.respondErr(w, r, http.StatusBadRequest, "Unknown action.", "/auth")
	}
}

// signup creates the account but does not log the user in.
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")
	name := r.FormValue("name")
	security := r.FormValue("security")

	if username == "" || password == "" || name == "" || security == "" {
		s.respondErr(w, r, http.StatusBadRequest,
			"Please fill all fields (username, name, security, password).", "/auth")
		return
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		s.log.WithError(err).Error("failed to hash password")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/auth")
		return
	}
	securityHash, err := hashPassword(security)
	if err != nil {
		s.log.WithError(err).Error("failed to hash security answer")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/auth")
		return
	}

	_, err = s.accounts.CreateUser(r.Context(), username, name, passwordHash, securityHash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			s.respondErr(w, r, http.StatusConflict, "Username already exists.", "/auth")
			return
		}
		s.log.WithError(err).Error("failed to create user")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/auth")
		return
	}

	s.respondOK(w, r, http.StatusCreated, "Account created! You can now log in.", "/auth")
}

// login answers every credential failure with the same generic message so
// usernames cannot be enumerated.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")
	remember := r.FormValue("remember") != ""

	user, err := s.accounts.UserByUsername(r.Context(), username)
	if err != nil || !checkPasswordHash(password, user.PasswordHash) {
		if err != nil && !errors.Is(err, store.ErrUserNotFound) {
			s.log.WithError(err).Error("login lookup failed")
		}
		s.respondErr(w, r, http.StatusUnauthorized, "Invalid username or password.", "/auth")
		return
	}

	sess, err := s.sessions.Create(r.Context(), user, remember)
	if err != nil {
		s.log.WithError(err).Error("failed to create session")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/auth")
		return
	}

	s.setSessionCookie(w, sess.Token, s.sessions.TTL(remember))

	if wantsJSON(r) {
		s.writeJSON(w, http.StatusOK, apiResponse{OK: true, Redirect: "/"})
		return
	}
	setFlash(w, "Logged in successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// logout clears all session state.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if st, err := r.Cookie(session.CookieName); err == nil && st.Value != "" {
		if err := s.sessions.Destroy(r.Context(), st.Value); err != nil && !errors.Is(err, session.ErrNoSession) {
			s.log.WithError(err).Warn("failed to destroy session")
		}
	}
	clearSessionCookie(w)

	s.respondOK(w, r, http.StatusOK, "Logged out.", "/auth")
}

// forgotPassword resets the password when the security answer matches. The
// unknown-username and wrong-answer cases share one response.
func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	security := r.FormValue("security")
	newPassword := r.FormValue("new_password")

	if username == "" || security == "" || newPassword == "" {
		s.respondErr(w, r, http.StatusBadRequest,
			"Please fill all fields (username, security, new password).", "/auth")
		return
	}

	user, err := s.accounts.UserByUsername(r.Context(), username)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			s.log.WithError(err).Error("reset lookup failed")
		}
		s.respondErr(w, r, http.StatusForbidden, "Invalid username or security answer.", "/auth")
		return
	}
	if !checkPasswordHash(security, user.SecurityHash) {
		s.respondErr(w, r, http.StatusForbidden, "Invalid username or security answer.", "/auth")
		return
	}

	newHash, err := hashPassword(newPassword)
	if err != nil {
		s.log.WithError(err).Error("failed to hash password")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/auth")
		return
	}
	if err := s.accounts.UpdatePassword(r.Context(), user.ID, newHash); err != nil {
		s.log.WithError(err).Error("failed to update password")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/auth")
		return
	}

	// A reset invalidates every open session for the account.
	if err := s.sessions.DestroyAll(r.Context(), user.ID.String()); err != nil {
		s.log.WithError(err).Warn("failed to revoke sessions after reset")
	}

	s.respondOK(w, r, http.StatusOK, "Password has been reset. You can now log in.", "/auth")
}
