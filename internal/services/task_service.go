package services

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rshakya/taskhub-be/internal/models"
)

// TaskServiceProvider defines the interface for task services. Every
// operation is scoped to the owning user; another user's task behaves as
// if it does not exist.
type TaskServiceProvider interface {
	CreateTask(ownerID, description string, completed bool) (models.Task, error)
	ListTasks(ownerID string, filter TaskFilter) ([]models.Task, error)
	GetTask(ownerID, id string) (models.Task, error)
	UpdateTask(ownerID, id string, upd TaskUpdate) (models.Task, error)
	DeleteTask(ownerID, id string) (models.Task, error)
}

// TaskFilter narrows and pages a task listing.
type TaskFilter struct {
	Completed *bool
	Limit     int
	Skip      int
}

// TaskUpdate is a partial task update. Nil fields are left untouched.
type TaskUpdate struct {
	Description *string
	Completed   *bool
}

// TaskService provides business logic for task management.
type TaskService struct {
	db *sql.DB
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db}
}

// CreateTask creates a task for the given owner.
func (s *TaskService) CreateTask(ownerID, description string, completed bool) (models.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return models.Task{}, validationErrorf("description is required")
	}

	task := models.Task{
		ID:          uuid.New().String(),
		Description: description,
		Completed:   completed,
		OwnerID:     ownerID,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.db.Exec("INSERT INTO tasks(id, description, completed, owner_id, created_at) VALUES(?, ?, ?, ?, ?)",
		task.ID, task.Description, task.Completed, task.OwnerID, task.CreatedAt)
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// ListTasks returns the owner's tasks, optionally filtered by completion
// state and paged with limit/skip.
func (s *TaskService) ListTasks(ownerID string, filter TaskFilter) ([]models.Task, error) {
	query := "SELECT id, description, completed, owner_id, created_at FROM tasks WHERE owner_id = ?"
	args := []any{ownerID}

	if filter.Completed != nil {
		query += " AND completed = ?"
		args = append(args, *filter.Completed)
	}
	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else if filter.Skip > 0 {
		// SQLite needs a LIMIT clause to accept OFFSET.
		query += " LIMIT -1"
	}
	if filter.Skip > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Skip)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var task models.Task
		if err := rows.Scan(&task.ID, &task.Description, &task.Completed, &task.OwnerID, &task.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// GetTask retrieves a single task owned by the given user.
func (s *TaskService) GetTask(ownerID, id string) (models.Task, error) {
	var task models.Task
	row := s.db.QueryRow("SELECT id, description, completed, owner_id, created_at FROM tasks WHERE id = ? AND owner_id = ?", id, ownerID)
	err := row.Scan(&task.ID, &task.Description, &task.Completed, &task.OwnerID, &task.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

// UpdateTask applies a partial update to a task owned by the given user.
func (s *TaskService) UpdateTask(ownerID, id string, upd TaskUpdate) (models.Task, error) {
	task, err := s.GetTask(ownerID, id)
	if err != nil {
		return models.Task{}, err
	}

	if upd.Description != nil {
		description := strings.TrimSpace(*upd.Description)
		if description == "" {
			return models.Task{}, validationErrorf("description is required")
		}
		task.Description = description
	}
	if upd.Completed != nil {
		task.Completed = *upd.Completed
	}

	_, err = s.db.Exec("UPDATE tasks SET description = ?, completed = ? WHERE id = ? AND owner_id = ?",
		task.Description, task.Completed, task.ID, ownerID)
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task owned by the given user and returns it.
func (s *TaskService) DeleteTask(ownerID, id string) (models.Task, error) {
	task, err := s.GetTask(ownerID, id)
	if err != nil {
		return models.Task{}, err
	}
	if _, err := s.db.Exec("DELETE FROM tasks WHERE id = ? AND owner_id = ?", id, ownerID); err != nil {
		return models.Task{}, err
	}
	return task, nil
}
