package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-todo-web/internal/models"
	"github.com/adanyl0v/go-todo-web/internal/services"
)

const dateLayout = time.DateOnly

type taskResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newTaskResponse(task *models.Task) taskResponse {
	return taskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

type listTasksResponse struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []taskResponse `json:"results"`
}

type createTaskRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type updateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

func (h *handlerImpl) HandleListTasks(c *gin.Context) {
	userID, _ := getStringFromContext(c, userIDCtxKey)

	params, fields := parseListParams(c.Request.URL.Query())
	if len(fields) > 0 {
		abortWithFieldErrors(c, fields)
		return
	}
	params.UserID = userID

	page, err := h.tasks.ListTasks(c, params)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPage) {
			abort(c, newNotFoundError(detailInvalidPage))
			return
		}
		h.logger.Error().
			Err(err).
			Msg("failed to list tasks")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	response := listTasksResponse{
		Count:   page.Count,
		Results: make([]taskResponse, len(page.Tasks)),
	}
	for i, task := range page.Tasks {
		response.Results[i] = newTaskResponse(task)
	}
	if page.HasNext() {
		next := pageURL(c, page.Page+1)
		response.Next = &next
	}
	if page.HasPrevious() {
		previous := pageURL(c, page.Page-1)
		response.Previous = &previous
	}

	c.JSON(http.StatusOK, response)
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	userID, _ := getStringFromContext(c, userIDCtxKey)

	var req createTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}

	task, err := h.tasks.CreateTask(c, services.CreateTaskParams{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		h.abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newTaskResponse(task))
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	userID, _ := getStringFromContext(c, userIDCtxKey)
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c, userID, taskID)
	if err != nil {
		h.abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleReplaceTask(c *gin.Context) {
	h.updateTask(c, true)
}

func (h *handlerImpl) HandlePatchTask(c *gin.Context) {
	h.updateTask(c, false)
}

func (h *handlerImpl) updateTask(c *gin.Context, full bool) {
	userID, _ := getStringFromContext(c, userIDCtxKey)
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if full && req.Title == nil {
		abortWithFieldErrors(c, map[string][]string{
			"title": {"this field is required"},
		})
		return
	}

	task, err := h.tasks.UpdateTask(c, services.UpdateTaskParams{
		UserID:      userID,
		ID:          taskID,
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		h.abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleToggleTask(c *gin.Context) {
	userID, _ := getStringFromContext(c, userIDCtxKey)
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	completed, fields, err := parseToggleBody(c)
	if err != nil {
		h.logger.Debug().
			Err(err).
			Msg("failed to parse toggle body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}
	if len(fields) > 0 {
		abortWithFieldErrors(c, fields)
		return
	}

	task, err := h.tasks.ToggleTask(c, services.ToggleTaskParams{
		UserID:    userID,
		ID:        taskID,
		Completed: completed,
	})
	if err != nil {
		h.abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	userID, _ := getStringFromContext(c, userIDCtxKey)
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	err := h.tasks.DeleteTask(c, userID, taskID)
	if err != nil {
		h.abortTaskError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) abortTaskError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		abortWithFieldErrors(c, verr.Fields)
	case errors.Is(err, services.ErrTaskNotFound):
		abort(c, newNotFoundError(detailNotFound))
	default:
		h.logger.Error().
			Err(err).
			Str("path", c.FullPath()).
			Msg("task request failed")
		abort(c, newStatusTextError(http.StatusInternalServerError))
	}
}

// taskIDParam parses the :id path parameter. Anything that is not a
// positive integer cannot name a task, so it is a 404.
func taskIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abort(c, newNotFoundError(detailNotFound))
		return 0, false
	}
	return id, true
}

// parseToggleBody accepts an empty body or a JSON object whose optional
// completed member is a boolean.
func parseToggleBody(c *gin.Context) (*bool, map[string][]string, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil, nil
	}

	var body map[string]json.RawMessage
	err = json.Unmarshal(raw, &body)
	if err != nil {
		return nil, nil, err
	}

	value, ok := body["completed"]
	if !ok {
		return nil, nil, nil
	}
	var completed bool
	err = json.Unmarshal(value, &completed)
	if err != nil || bytes.Equal(value, []byte("null")) {
		return nil, map[string][]string{"completed": {"must be a valid boolean"}}, nil
	}
	return &completed, nil, nil
}

func parseListParams(query url.Values) (services.ListTasksParams, map[string][]string) {
	var params services.ListTasksParams
	fields := make(map[string][]string)

	if raw := query.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			fields["completed"] = append(fields["completed"], "must be a valid boolean")
		} else {
			params.Completed = &completed
		}
	}

	bounds := []struct {
		key   string
		upper bool
		dst   **time.Time
	}{
		{"created_at_after", false, &params.CreatedFrom},
		{"created_at_before", true, &params.CreatedUntil},
		{"updated_at_after", false, &params.UpdatedFrom},
		{"updated_at_before", true, &params.UpdatedUntil},
	}
	for _, b := range bounds {
		raw := query.Get(b.key)
		if raw == "" {
			continue
		}
		t, err := parseDateBound(raw, b.upper)
		if err != nil {
			fields[b.key] = append(fields[b.key], "enter a valid date")
			continue
		}
		*b.dst = &t
	}

	params.Search = query.Get("search")
	params.Ordering = query.Get("ordering")

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			// Surfaces as "Invalid page." from the service.
			page = -1
		}
		params.Page = page
	}
	if raw := query.Get("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			params.PageSize = size
		}
	}

	return params, fields
}

// parseDateBound reads YYYY-MM-DD or RFC 3339. A date-only upper bound
// covers the whole day, so it is moved to the start of the next day and
// used exclusively.
func parseDateBound(raw string, upper bool) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
		if upper {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	if upper {
		t = t.Add(time.Microsecond)
	}
	return t, nil
}

func pageURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	query := c.Request.URL.Query()
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: query.Encode(),
	}
	return u.String()
}
