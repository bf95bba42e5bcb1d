package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"dotogether/models"
	"dotogether/store"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	DueTime     string `json:"dueTime"`
	Priority    string `json:"priority"`
	ListID      string `json:"list_id"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	DueTime     *string `json:"dueTime"`
	Priority    *string `json:"priority"`
	Done        *bool   `json:"done"`
}

// listTasks returns the caller's personal tasks, or a list's tasks when
// list_id is given. Anonymous callers get an empty result instead of a 401.
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		s.writeJSON(w, http.StatusOK, []models.Task{})
		return
	}
	userID, err := uuid.Parse(sess.UserID)
	if err != nil {
		s.writeJSON(w, http.StatusOK, []models.Task{})
		return
	}

	listIDParam := r.URL.Query().Get("list_id")
	if listIDParam == "" {
		tasks, err := s.tasks.TasksForUser(r.Context(), userID)
		if err != nil {
			s.log.WithError(err).Error("failed to fetch tasks")
			s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
			return
		}
		s.writeJSON(w, http.StatusOK, tasks)
		return
	}

	listID, _, ok := s.resolveList(w, r, listIDParam)
	if !ok {
		return
	}

	member, err := s.canAccessList(r.Context(), userID, &listID)
	if err != nil {
		s.log.WithError(err).Error("membership lookup failed")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return
	}
	if !member {
		s.respondErr(w, r, http.StatusForbidden, "You are not a member of this list.", "/")
		return
	}

	tasks, err := s.tasks.TasksForList(r.Context(), listID)
	if err != nil {
		s.log.WithError(err).Error("failed to fetch list tasks")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	if isJSONBody(r) {
		if err := decodeJSON(r, &req); err != nil {
			s.respondErr(w, r, http.StatusBadRequest, "Invalid request body.", "/")
			return
		}
	} else {
		req = createTaskRequest{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			DueDate:     r.FormValue("dueDate"),
			DueTime:     r.FormValue("dueTime"),
			Priority:    r.FormValue("priority"),
			ListID:      r.FormValue("list_id"),
		}
	}

	if strings.TrimSpace(req.Title) == "" {
		s.respondErr(w, r, http.StatusBadRequest, "Title is required.", "/")
		return
	}
	priority, err := models.ParsePriority(req.Priority)
	if err != nil {
		s.respondErr(w, r, http.StatusBadRequest, "Priority must be Low, Medium or High.", "/")
		return
	}

	task := models.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		DueTime:     req.DueTime,
		Priority:    priority,
	}

	if req.ListID != "" {
		listID, _, ok := s.resolveList(w, r, req.ListID)
		if !ok {
			return
		}
		member, err := s.canAccessList(r.Context(), userID, &listID)
		if err != nil {
			s.log.WithError(err).Error("membership lookup failed")
			s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
			return
		}
		if !member {
			s.respondErr(w, r, http.StatusForbidden, "You are not a member of this list.", "/")
			return
		}
		task.ListID = &listID
	}

	if _, err := s.tasks.CreateTask(r.Context(), task); err != nil {
		s.log.WithError(err).Error("failed to create task")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return
	}

	s.respondOK(w, r, http.StatusCreated, "Task added", "/")
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	task, ok := s.resolveTask(w, r, userID)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, http.StatusBadRequest, "Invalid request body.", "/")
		return
	}

	patch := models.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		DueTime:     req.DueTime,
		Done:        req.Done,
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		s.respondErr(w, r, http.StatusBadRequest, "Title is required.", "/")
		return
	}
	if req.Priority != nil {
		priority, err := models.ParsePriority(*req.Priority)
		if err != nil {
			s.respondErr(w, r, http.StatusBadRequest, "Priority must be Low, Medium or High.", "/")
			return
		}
		patch.Priority = &priority
	}

	if _, err := s.tasks.UpdateTask(r.Context(), task.ID, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondErr(w, r, http.StatusNotFound, "Task not found.", "/")
			return
		}
		s.log.WithError(err).Error("failed to update task")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return
	}

	s.respondOK(w, r, http.StatusOK, "Task updated", "/")
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	task, ok := s.resolveTask(w, r, userID)
	if !ok {
		return
	}

	if err := s.tasks.DeleteTask(r.Context(), task.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondErr(w, r, http.StatusNotFound, "Task not found.", "/")
			return
		}
		s.log.WithError(err).Error("failed to delete task")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return
	}

	s.respondOK(w, r, http.StatusOK, "Task deleted", "/")
}

// resolveTask loads the task from the path id and enforces the access policy:
// 404 when the id does not resolve, 403 when the caller has no access.
func (s *Server) resolveTask(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (models.Task, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respondErr(w, r, http.StatusNotFound, "Task not found.", "/")
		return models.Task{}, false
	}

	task, err := s.tasks.TaskByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondErr(w, r, http.StatusNotFound, "Task not found.", "/")
			return models.Task{}, false
		}
		s.log.WithError(err).Error("failed to fetch task")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return models.Task{}, false
	}

	allowed, err := s.canAccessTask(r.Context(), userID, task)
	if err != nil {
		s.log.WithError(err).Error("membership lookup failed")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return models.Task{}, false
	}
	if !allowed {
		s.respondErr(w, r, http.StatusForbidden, "You do not have access to this task.", "/")
		return models.Task{}, false
	}

	return task, true
}

// resolveList parses and loads a list id, answering 404 when it does not
// resolve.
func (s *Server) resolveList(w http.ResponseWriter, r *http.Request, raw string) (uuid.UUID, models.List, bool) {
	listID, err := uuid.Parse(raw)
	if err != nil {
		s.respondErr(w, r, http.StatusNotFound, "List not found.", "/")
		return uuid.Nil, models.List{}, false
	}

	list, err := s.tasks.ListByID(r.Context(), listID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondErr(w, r, http.StatusNotFound, "List not found.", "/")
			return uuid.Nil, models.List{}, false
		}
		s.log.WithError(err).Error("failed to fetch list")
		s.respondErr(w, r, http.StatusInternalServerError, "Something went wrong. Try again.", "/")
		return uuid.Nil, models.List{}, false
	}

	return listID, list, true
}
