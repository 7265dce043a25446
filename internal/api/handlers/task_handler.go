package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/rshakya/taskhub-be/internal/auth"
	"github.com/rshakya/taskhub-be/internal/services"
)

// TaskHandler handles HTTP requests for task management. Every route is
// behind the auth middleware, and every operation is scoped to the
// authenticated owner.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// TaskPayload defines the structure for task creation requests.
type TaskPayload struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Create handles new task creation.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var payload TaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.service.CreateTask(user.ID, payload.Description, payload.Completed)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to create task")
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// List returns the owner's tasks, with optional completed/limit/skip
// query filters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var filter services.TaskFilter
	q := r.URL.Query()
	if v := q.Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid value for completed")
			return
		}
		filter.Completed = &completed
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "invalid value for limit")
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			respondError(w, http.StatusBadRequest, "invalid value for skip")
			return
		}
		filter.Skip = skip
	}

	tasks, err := h.service.ListTasks(user.ID, filter)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list tasks")
		respondError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

// Get retrieves one of the owner's tasks by id.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	id := chi.URLParam(r, "id")
	task, err := h.service.GetTask(user.ID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

var allowedTaskUpdates = map[string]bool{
	"description": true,
	"completed":   true,
}

// Update applies a partial update to one of the owner's tasks, with the
// same all-or-nothing allow-list semantics as the profile update.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for key := range fields {
		if !allowedTaskUpdates[key] {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid update field: %s", key))
			return
		}
	}

	var upd services.TaskUpdate
	if raw, ok := fields["description"]; ok {
		if err := json.Unmarshal(raw, &upd.Description); err != nil {
			respondError(w, http.StatusBadRequest, "invalid value for description")
			return
		}
	}
	if raw, ok := fields["completed"]; ok {
		if err := json.Unmarshal(raw, &upd.Completed); err != nil {
			respondError(w, http.StatusBadRequest, "invalid value for completed")
			return
		}
	}

	id := chi.URLParam(r, "id")
	task, err := h.service.UpdateTask(user.ID, id, upd)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Str("task_id", id).Msg("Failed to update task")
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Delete removes one of the owner's tasks and returns it.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	id := chi.URLParam(r, "id")
	task, err := h.service.DeleteTask(user.ID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}
