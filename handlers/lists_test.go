package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"dotogether/models"
)

func decodeMembers(t *testing.T, body []byte) []models.Member {
	t.Helper()
	var members []models.Member
	if err := sonic.Unmarshal(body, &members); err != nil {
		t.Fatalf("decode members %q: %v", body, err)
	}
	return members
}

func seedList(t *testing.T, tasks *mockTasks, owner models.User, name string) models.List {
	t.Helper()
	l, err := tasks.CreateList(context.Background(), owner.ID, name)
	if err != nil {
		t.Fatalf("seed list: %v", err)
	}
	return l
}

func TestCreateListMakesCreatorOwnerMember(t *testing.T) {
	s, accounts, tasks := newTestServer(t)
	user := createTestUser(t, accounts, "alice", "secret", "blue")
	cookie := loginCookie(t, s, user)

	rec := doJSON(t, s, http.MethodPost, "/lists", map[string]any{"name": "Groceries"}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	listed := doJSON(t, s, http.MethodGet, "/lists", nil, cookie)
	var lists []models.List
	if err := sonic.Unmarshal(listed.Body.Bytes(), &lists); err != nil {
		t.Fatalf("decode lists: %v", err)
	}
	if len(lists) != 1 {
		t.Fatalf("expected 1 list, got %d", len(lists))
	}
	if lists[0].Name != "Groceries" || !lists[0].IsOwner {
		t.Fatalf("unexpected list: %+v", lists[0])
	}

	member, err := tasks.IsMember(context.Background(), lists[0].ID, user.ID)
	if err != nil || !member {
		t.Fatalf("creator is not a member (member=%v err=%v)", member, err)
	}
}

func TestCreateListRequiresName(t *testing.T) {
	s, accounts, _ := newTestServer(t)
	user := createTestUser(t, accounts, "alice", "secret", "blue")
	cookie := loginCookie(t, s, user)

	rec := doJSON(t, s, http.MethodPost, "/lists", map[string]any{"name": "   "}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestNonMemberCannotReadListTasks(t *testing.T) {
	s, accounts, tasks := newTestServer(t)
	alice := createTestUser(t, accounts, "alice", "secret", "blue")
	bob := createTestUser(t, accounts, "bob", "secret", "red")
	list := seedList(t, tasks, alice, "Team")

	rec := doJSON(t, s, http.MethodGet, "/tasks?list_id="+list.ID.String(), nil, loginCookie(t, s, bob))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestNonMemberCannotTouchListTask(t *testing.T) {
	s, accounts, tasks := newTestServer(t)
	alice := createTestUser(t, accounts, "alice", "secret", "blue")
	bob := createTestUser(t, accounts, "bob", "secret", "red")
	list := seedList(t, tasks, alice, "Team")

	task, err := tasks.CreateTask(context.Background(), models.Task{UserID: alice.ID, ListID: &list.ID, Title: "shared"})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}

	bobCookie := loginCookie(t, s, bob)
	if rec := doJSON(t, s, http.MethodPatch, "/tasks/"+task.ID.String(), map[string]any{"done": true}, bobCookie); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on update, got %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodDelete, "/tasks/"+task.ID.String(), nil, bobCookie); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on delete, got %d", rec.Code)
	}
}

func TestMemberCanTouchListTask(t *testing.T) {
	s, accounts, tasks := newTestServer(t)
	alice := createTestUser(t, accounts, "alice", "secret", "blue")
	bob := createTestUser(t, accounts, "bob", "secret", "red")
	list := seedList(t, tasks, alice, "Team")
	if err := tasks.AddMember(context.Background(), list.ID, bob.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}

	task, err := tasks.CreateTask(context.Background(), models.Task{UserID: alice.ID, ListID: &list.ID, Title: "shared"})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}

	bobCookie := loginCookie(t, s, bob)
	rec := doJSON(t, s, http.MethodPatch, "/tasks/"+task.ID.String(), map[string]any{"done": true}, bobCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := tasks.TaskByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("fetch task: %v", err)
	}
	if !got.Done {
		t.Fatal("member's update was not applied")
	}
}

func TestAddMemberByUsername(t *testing.T) {
	s, accounts, tasks := newTestServer(t)
	alice := createTestUser(t, accounts, "alice", "secret", "blue")
	bob := createTestUser(t, accounts, "bob", "secret", "red")
	list := seedList(t, tasks, alice, "Team")

	rec := doJSON(t, s, http.MethodPost, "/lists/"+list.ID.String()+"/members",
		map[string]any{"username": "bob"}, loginCookie(t, s, alice))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	member, err := tasks.IsMember(context.Background(), list.ID, bob.ID)
	if err != nil || !member {
		t.Fatalf("bob is not a member (member=%v err=%v)", member, err)
	}
}

func TestAddMemberUnknownUsername(t *testing.T) {
	s, accounts, tasks := newTestServer(t)
	alice := createTestUser(t, accounts, "alice", "secret", "blue")
	list := seedList(t, tasks, alice, "Team")

	rec := doJSON(t, s, http.MethodPost, "/lists/"+list.ID.String()+"/members",
		map[string]any{"username": "nobody"}, loginCookie(t, s, alice))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Error != "User not found." {
		t.Fatalf("unexpected error: %q", resp.Error)
	}
}

func TestOnlyOwnerManagesMembers(t *testing.T) {
	s, accounts, tasks := newTestServer(t)
	alice := createTestUser(t, accounts, "alice", "secret", "blue")
	bob := createTestUser(t, accounts, "bob", "secret", "red")
	createTestUser(t, accounts, "carol", "secret", "green")
	list := seedList(t, tasks, alice, "Team")
	if err := tasks.AddMember(context.Background(), list.ID, bob.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}

	bobCookie := loginCookie(t, s, bob)
	add := doJSON(t, s, http.MethodPost, "/lists/"+list.ID.String()+"/members",
		map[string]any{"username": "carol"}, bobCookie)
	if add.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on add, got %d", add.Code)
	}

	remove := doJSON(t, s, http.MethodDelete,
		"/lists/"+list.ID.String()+"/members/"+bob.ID.String(), nil, bobCookie)
	if remove.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on remove, got %d", remove.Code)
	}
}

func TestOwnerCannotBeRemoved(t *testing.T) {
	s, accounts, tasks := newTestServer(t)
	alice := createTestUser(t, accounts, "alice", "secret", "blue")
	list := seedList(t, tasks, alice, "Team")

	rec := doJSON(t, s, http.MethodDelete,
		"/lists/"+list.ID.String()+"/members/"+alice.ID.String(), nil, loginCookie(t, s, alice))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	member, err := tasks.IsMember(context.Background(), list.ID, alice.ID)
	if err != nil || !member {
		t.Fatal("owner lost membership")
	}
}

func TestRemoveMember(t *testing.T) {
	s, accounts, tasks := newTestServer(t)
	alice := createTestUser(t, accounts, "alice", "secret", "blue")
	bob := createTestUser(t, accounts, "bob", "secret", "red")
	list := seedList(t, tasks, alice, "Team")
	if err := tasks.AddMember(context.Background(), list.ID, bob.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}

	rec := doJSON(t, s, http.MethodDelete,
		"/lists/"+list.ID.String()+"/members/"+bob.ID.String(), nil, loginCookie(t, s, alice))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	member, err := tasks.IsMember(context.Background(), list.ID, bob.ID)
	if err != nil || member {
		t.Fatal("bob is still a member")
	}
}

func TestMembersVisibleToMembersOnly(t *testing.T) {
	s, accounts, tasks := newTestServer(t)
	alice := createTestUser(t, accounts, "alice", "secret", "blue")
	bob := createTestUser(t, accounts, "bob", "secret", "red")
	list := seedList(t, tasks, alice, "Team")

	rec := doJSON(t, s, http.MethodGet, "/lists/"+list.ID.String()+"/members", nil, loginCookie(t, s, bob))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestMembersSortedOwnerFirstThenUsername(t *testing.T) {
	s, accounts, tasks := newTestServer(t)
	mia := createTestUser(t, accounts, "Mia", "secret", "blue")
	zed := createTestUser(t, accounts, "zed", "secret", "red")
	anna := createTestUser(t, accounts, "Anna", "secret", "green")
	list := seedList(t, tasks, mia, "Team")
	for _, u := range []models.User{zed, anna} {
		if err := tasks.AddMember(context.Background(), list.ID, u.ID); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/lists/"+list.ID.String()+"/members", nil, loginCookie(t, s, mia))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	members := decodeMembers(t, rec.Body.Bytes())
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	want := []string{"Mia", "Anna", "zed"}
	for i, username := range want {
		if members[i].Username != username {
			t.Fatalf("position %d: got %q, want %q (roster %+v)", i, members[i].Username, username, members)
		}
	}
	if !members[0].IsOwner {
		t.Fatal("owner is not flagged")
	}
}

func TestUnknownListIsNotFound(t *testing.T) {
	s, accounts, _ := newTestServer(t)
	user := createTestUser(t, accounts, "alice", "secret", "blue")
	cookie := loginCookie(t, s, user)

	id := uuid.New().String()
	if rec := doJSON(t, s, http.MethodGet, "/tasks?list_id="+id, nil, cookie); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown list, got %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodGet, "/lists/"+id+"/members", nil, cookie); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown roster, got %d", rec.Code)
	}
}
