package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dotogether/models"
)

// TaskStore persists tasks, lists and list membership in the tasks database.
// It deliberately knows nothing about accounts; usernames are resolved by the
// caller against the AccountStore.
type TaskStore struct {
	pool *pgxpool.Pool
}

func NewTaskStore(pool *pgxpool.Pool) *TaskStore {
	return &TaskStore{pool: pool}
}

const taskColumns = `id, user_id, list_id, title, description, due_date, due_time, priority, done, created_at`

// CreateTask assigns the id and creation timestamp and inserts the task.
func (s *TaskStore) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	t.ID = uuid.New()
	t.CreatedAt = time.Now().Format(time.RFC3339)
	if t.Priority == "" {
		t.Priority = models.PriorityLow
	}

	stmt := `INSERT INTO tasks (id, user_id, list_id, title, description, due_date, due_time, priority, done, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.pool.Exec(ctx, stmt,
		t.ID, t.UserID, t.ListID, t.Title, t.Description, t.DueDate, t.DueTime, t.Priority, t.Done, t.CreatedAt)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) TaskByID(ctx context.Context, id uuid.UUID) (models.Task, error) {
	stmt := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(s.pool.QueryRow(ctx, stmt, id))
}

// TasksForUser returns the user's personal tasks only; list tasks are fetched
// through TasksForList.
func (s *TaskStore) TasksForUser(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	stmt := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 AND list_id IS NULL ORDER BY created_at`
	return s.queryTasks(ctx, stmt, userID)
}

func (s *TaskStore) TasksForList(ctx context.Context, listID uuid.UUID) ([]models.Task, error) {
	stmt := `SELECT ` + taskColumns + ` FROM tasks WHERE list_id = $1 ORDER BY created_at`
	return s.queryTasks(ctx, stmt, listID)
}

// UpdateTask applies the non-nil patch fields and returns the updated row.
func (s *TaskStore) UpdateTask(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (models.Task, error) {
	set, args := buildTaskUpdate(patch)
	if set == "" {
		return s.TaskByID(ctx, id)
	}

	args = append(args, id)
	stmt := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d RETURNING %s`, set, len(args), taskColumns)
	return scanTask(s.pool.QueryRow(ctx, stmt, args...))
}

func (s *TaskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateList inserts the list and its owner membership in one transaction so
// a crash cannot leave a list with no members.
func (s *TaskStore) CreateList(ctx context.Context, ownerID uuid.UUID, name string) (models.List, error) {
	l := models.List{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Name:          name,
		Collaborative: true,
		IsOwner:       true,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.List{}, fmt.Errorf("begin create list: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `INSERT INTO lists (id, owner_id, name, collaborative) VALUES ($1, $2, $3, $4)`,
		l.ID, l.OwnerID, l.Name, l.Collaborative)
	if err != nil {
		return models.List{}, fmt.Errorf("insert list: %w", err)
	}
	_, err = tx.Exec(ctx, `INSERT INTO list_members (list_id, user_id) VALUES ($1, $2)`, l.ID, l.OwnerID)
	if err != nil {
		return models.List{}, fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.List{}, fmt.Errorf("commit create list: %w", err)
	}
	return l, nil
}

func (s *TaskStore) ListByID(ctx context.Context, id uuid.UUID) (models.List, error) {
	stmt := `SELECT id, owner_id, name, collaborative FROM lists WHERE id = $1`
	var l models.List
	err := s.pool.QueryRow(ctx, stmt, id).Scan(&l.ID, &l.OwnerID, &l.Name, &l.Collaborative)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.List{}, ErrNotFound
		}
		return models.List{}, fmt.Errorf("scan list: %w", err)
	}
	return l, nil
}

// ListsForUser returns every list the user belongs to, with IsOwner derived
// per caller.
func (s *TaskStore) ListsForUser(ctx context.Context, userID uuid.UUID) ([]models.List, error) {
	stmt := `SELECT l.id, l.owner_id, l.name, l.collaborative, l.owner_id = $1
		FROM lists l
		JOIN list_members m ON m.list_id = l.id
		WHERE m.user_id = $1
		ORDER BY l.name`
	rows, err := s.pool.Query(ctx, stmt, userID)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()

	lists := []models.List{}
	for rows.Next() {
		var l models.List
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Collaborative, &l.IsOwner); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// AddMember is idempotent; adding an existing member is not an error.
func (s *TaskStore) AddMember(ctx context.Context, listID, userID uuid.UUID) error {
	stmt := `INSERT INTO list_members (list_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := s.pool.Exec(ctx, stmt, listID, userID); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (s *TaskStore) Members(ctx context.Context, listID uuid.UUID) ([]models.ListMember, error) {
	rows, err := s.pool.Query(ctx, `SELECT list_id, user_id FROM list_members WHERE list_id = $1`, listID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []models.ListMember{}
	for rows.Next() {
		var m models.ListMember
		if err := rows.Scan(&m.ListID, &m.UserID); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// RemoveMember deletes a membership. The owner's membership is permanent.
func (s *TaskStore) RemoveMember(ctx context.Context, listID, userID uuid.UUID) error {
	l, err := s.ListByID(ctx, listID)
	if err != nil {
		return err
	}
	if l.OwnerID == userID {
		return ErrOwnerCannotBeRemoved
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM list_members WHERE list_id = $1 AND user_id = $2`, listID, userID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IsMember is the authorization primitive: an exact membership lookup.
func (s *TaskStore) IsMember(ctx context.Context, listID, userID uuid.UUID) (bool, error) {
	stmt := `SELECT EXISTS(SELECT 1 FROM list_members WHERE list_id = $1 AND user_id = $2)`
	var exists bool
	if err := s.pool.QueryRow(ctx, stmt, listID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("membership lookup: %w", err)
	}
	return exists, nil
}

func (s *TaskStore) queryTasks(ctx context.Context, stmt string, arg any) ([]models.Task, error) {
	rows, err := s.pool.Query(ctx, stmt, arg)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.UserID, &t.ListID, &t.Title, &t.Description,
		&t.DueDate, &t.DueTime, &t.Priority, &t.Done, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, fmt.Errorf("scan task: %w", err)
	}
	return t, nil
}

// buildTaskUpdate turns the non-nil patch fields into a SET clause with
// positional placeholders starting at $1.
func buildTaskUpdate(patch models.TaskPatch) (string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.DueDate != nil {
		add("due_date", *patch.DueDate)
	}
	if patch.DueTime != nil {
		add("due_time", *patch.DueTime)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.Done != nil {
		add("done", *patch.Done)
	}

	return strings.Join(sets, ", "), args
}
