package handlers

import (
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// Responses are dual-mode, chosen by the request's Accept header: AJAX
// callers declaring application/json get a structured {ok, error|message}
// body with the status code, form submissions get a flash message and a
// redirect.

type apiResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

const maxBodySize = 1 << 20

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func isJSONBody(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigStd.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("failed to encode response")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	return dec.Decode(v)
}

// respondErr emits the failure in the caller's preferred mode. fallback is
// the redirect target for form submissions.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, status int, msg, fallback string) {
	if wantsJSON(r) {
		s.writeJSON(w, status, apiResponse{OK: false, Error: msg})
		return
	}
	setFlash(w, msg)
	http.Redirect(w, r, fallback, http.StatusSeeOther)
}

// respondOK emits a success message, optionally pointing JSON callers at a
// follow-up location.
func (s *Server) respondOK(w http.ResponseWriter, r *http.Request, status int, msg, redirect string) {
	if wantsJSON(r) {
		s.writeJSON(w, status, apiResponse{OK: true, Message: msg, Redirect: redirect})
		return
	}
	setFlash(w, msg)
	target := redirect
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Flash messages ride a short-lived cookie so they survive the redirect.

const flashCookie = "flash"

func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:   flashCookie,
		Value:  base64.URLEncoding.EncodeToString([]byte(msg)),
		Path:   "/",
		MaxAge: 60,
	})
}

// takeFlash reads and clears the pending flash message, if any.
func takeFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})

	msg, err := base64.URLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	return string(msg)
}
