package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"dotogether/models"
	"dotogether/session"
	"dotogether/store"
)

type mockAccounts struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func newMockAccounts() *mockAccounts {
	return &mockAccounts{users: map[uuid.UUID]models.User{}}
}

func (m *mockAccounts) CreateUser(_ context.Context, username, name, passwordHash, securityHash string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return models.User{}, store.ErrDuplicateUsername
		}
	}
	u := models.User{
		ID:           uuid.New(),
		Username:     username,
		Name:         name,
		PasswordHash: passwordHash,
		SecurityHash: securityHash,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockAccounts) UserByUsername(_ context.Context, username string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, store.ErrUserNotFound
}

func (m *mockAccounts) UserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return u, nil
}

func (m *mockAccounts) UpdateProfile(_ context.Context, id uuid.UUID, name, username, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	for _, other := range m.users {
		if other.ID != id && other.Username == username {
			return store.ErrDuplicateUsername
		}
	}
	u.Name, u.Username, u.PasswordHash = name, username, passwordHash
	m.users[id] = u
	return nil
}

func (m *mockAccounts) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

type mockTasks struct {
	mu      sync.Mutex
	tasks   map[uuid.UUID]models.Task
	lists   map[uuid.UUID]models.List
	members map[uuid.UUID]map[uuid.UUID]bool
}

func newMockTasks() *mockTasks {
	return &mockTasks{
		tasks:   map[uuid.UUID]models.Task{},
		lists:   map[uuid.UUID]models.List{},
		members: map[uuid.UUID]map[uuid.UUID]bool{},
	}
}

func (m *mockTasks) CreateTask(_ context.Context, t models.Task) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now().Format(time.RFC3339)
	if t.Priority == "" {
		t.Priority = models.PriorityLow
	}
	m.tasks[t.ID] = t
	return t, nil
}

func (m *mockTasks) TaskByID(_ context.Context, id uuid.UUID) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return models.Task{}, store.ErrNotFound
	}
	return t, nil
}

func (m *mockTasks) TasksForUser(_ context.Context, userID uuid.UUID) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := []models.Task{}
	for _, t := range m.tasks {
		if t.ListID == nil && t.UserID == userID {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (m *mockTasks) TasksForList(_ context.Context, listID uuid.UUID) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := []models.Task{}
	for _, t := range m.tasks {
		if t.ListID != nil && *t.ListID == listID {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (m *mockTasks) UpdateTask(_ context.Context, id uuid.UUID, patch models.TaskPatch) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return models.Task{}, store.ErrNotFound
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.DueDate != nil {
		t.DueDate = *patch.DueDate
	}
	if patch.DueTime != nil {
		t.DueTime = *patch.DueTime
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Done != nil {
		t.Done = *patch.Done
	}
	m.tasks[id] = t
	return t, nil
}

func (m *mockTasks) DeleteTask(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *mockTasks) CreateList(_ context.Context, ownerID uuid.UUID, name string) (models.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := models.List{ID: uuid.New(), OwnerID: ownerID, Name: name, Collaborative: true, IsOwner: true}
	m.lists[l.ID] = l
	m.members[l.ID] = map[uuid.UUID]bool{ownerID: true}
	return l, nil
}

func (m *mockTasks) ListByID(_ context.Context, id uuid.UUID) (models.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return models.List{}, store.ErrNotFound
	}
	return l, nil
}

func (m *mockTasks) ListsForUser(_ context.Context, userID uuid.UUID) ([]models.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lists := []models.List{}
	for id, members := range m.members {
		if members[userID] {
			l := m.lists[id]
			l.IsOwner = l.OwnerID == userID
			lists = append(lists, l)
		}
	}
	return lists, nil
}

func (m *mockTasks) AddMember(_ context.Context, listID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[listID]; !ok {
		return store.ErrNotFound
	}
	m.members[listID][userID] = true
	return nil
}

func (m *mockTasks) Members(_ context.Context, listID uuid.UUID) ([]models.ListMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := []models.ListMember{}
	for userID := range m.members[listID] {
		members = append(members, models.ListMember{ListID: listID, UserID: userID})
	}
	return members, nil
}

func (m *mockTasks) RemoveMember(_ context.Context, listID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[listID]
	if !ok {
		return store.ErrNotFound
	}
	if l.OwnerID == userID {
		return store.ErrOwnerCannotBeRemoved
	}
	if !m.members[listID][userID] {
		return store.ErrNotFound
	}
	delete(m.members[listID], userID)
	return nil
}

func (m *mockTasks) IsMember(_ context.Context, listID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[listID][userID], nil
}

func newTestServer(t *testing.T) (*Server, *mockAccounts, *mockTasks) {
	t.Helper()

	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("redis close: %v", err)
		}
	})

	logger := log.New()
	logger.SetOutput(io.Discard)

	accounts := newMockAccounts()
	tasks := newMockTasks()
	return New(accounts, tasks, session.NewManager(client, "test-secret"), logger), accounts, tasks
}

func createTestUser(t *testing.T, accounts *mockAccounts, username, password, security string) models.User {
	t.Helper()
	passwordHash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	securityHash, err := hashPassword(security)
	if err != nil {
		t.Fatalf("hash security answer: %v", err)
	}
	u, err := accounts.CreateUser(context.Background(), username, "Test User", passwordHash, securityHash)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func loginCookie(t *testing.T, s *Server, user models.User) *http.Cookie {
	t.Helper()
	sess, err := s.sessions.Create(context.Background(), user, false)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &http.Cookie{Name: session.CookieName, Value: sess.Token}
}

// doJSON performs a request in JSON mode against the full route table.
func doJSON(t *testing.T, s *Server, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

// doForm performs a form submission in JSON mode so tests can assert on
// status codes without following redirects.
func doForm(t *testing.T, s *Server, method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}
