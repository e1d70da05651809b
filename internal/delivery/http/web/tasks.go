package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-todo-web/internal/gateway"
)

type taskView struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type taskListView struct {
	Count    int        `json:"count"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Results  []taskView `json:"results"`
}

type pager struct {
	Page     int
	Count    int
	Previous string
	Next     string
}

func (h *handlerImpl) HandleListTasks(c *gin.Context) {
	sess := currentSession(c)

	var filter taskFilterForm
	data := gin.H{"CreateForm": taskForm{}}
	if err := c.ShouldBindQuery(&filter); err != nil {
		data["FilterErrors"] = formErrors(err, &filter)
		filter = taskFilterForm{}
	}
	data["Filter"] = filter

	page := max(filter.Page, 1)
	resp, err := h.api.Do(c.Request.Context(), sess, gateway.Request{
		Method:   http.MethodGet,
		Path:     "/",
		Query:    filter.pageQuery(page),
		ErrorMsg: "Could not load your tasks.",
	})
	switch {
	case errors.Is(err, gateway.ErrConnection):
		// Render an empty list with the connection flash.
	case err != nil:
		h.handleCallError(c, err, tasksPath)
		return
	case resp.OK():
		var list taskListView
		if err = resp.DecodeJSON(&list); err != nil {
			h.logger.Error().
				Err(err).
				Msg("failed to decode task list")
			sess.AddFlash(gateway.LevelError, "Could not load your tasks.")
			break
		}
		data["Tasks"] = list.Results
		data["Pager"] = buildPager(&filter, page, &list)
	}

	h.render(c, http.StatusOK, "tasks.html", data)
}

func buildPager(filter *taskFilterForm, page int, list *taskListView) pager {
	p := pager{Page: page, Count: list.Count}
	if list.Previous != nil {
		p.Previous = pageLink(filter, page-1)
	}
	if list.Next != nil {
		p.Next = pageLink(filter, page+1)
	}
	return p
}

func pageLink(filter *taskFilterForm, page int) string {
	q := filter.pageQuery(page)
	if len(q) == 0 {
		return tasksPath
	}
	return tasksPath + "?" + q.Encode()
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	sess := currentSession(c)

	var form taskForm
	if err := c.ShouldBind(&form); err != nil {
		for _, msg := range formErrors(err, &form) {
			sess.AddFlash(gateway.LevelError, "Title: "+msg)
		}
		c.Redirect(http.StatusFound, tasksPath)
		return
	}
	if errs := form.normalize(); errs != nil {
		sess.AddFlash(gateway.LevelError, "Title: "+errs["title"])
		c.Redirect(http.StatusFound, tasksPath)
		return
	}

	resp, err := h.api.Do(c.Request.Context(), sess, gateway.Request{
		Method: http.MethodPost,
		Path:   "/",
		Body: gin.H{
			"title":       form.Title,
			"description": form.Description,
			"completed":   form.Completed,
		},
		SuccessMsg: "Task created.",
		ErrorMsg:   "Could not create the task.",
	})
	if err != nil {
		h.handleCallError(c, err, tasksPath)
		return
	}
	if resp.StatusCode == http.StatusBadRequest {
		for _, msg := range resp.Messages() {
			sess.AddFlash(gateway.LevelError, msg)
		}
	}
	c.Redirect(http.StatusFound, tasksPath)
}

func (h *handlerImpl) HandleTaskDetail(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, "task_detail.html", gin.H{"Task": task})
}

func (h *handlerImpl) HandleEditTaskPage(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, "task_edit.html", gin.H{
		"Task": task,
		"Form": taskForm{
			Title:       task.Title,
			Description: task.Description,
			Completed:   task.Completed,
		},
	})
}

func (h *handlerImpl) HandleEditTask(c *gin.Context) {
	sess := currentSession(c)
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	task := &taskView{ID: id}

	var form taskForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusOK, "task_edit.html", gin.H{
			"Task":   task,
			"Form":   form,
			"Errors": formErrors(err, &form),
		})
		return
	}
	if errs := form.normalize(); errs != nil {
		h.render(c, http.StatusOK, "task_edit.html", gin.H{
			"Task":   task,
			"Form":   form,
			"Errors": errs,
		})
		return
	}

	resp, err := h.api.Do(c.Request.Context(), sess, gateway.Request{
		Method: http.MethodPatch,
		Path:   taskAPIPath(id),
		Body: gin.H{
			"title":       form.Title,
			"description": form.Description,
			"completed":   form.Completed,
		},
		SuccessMsg: "Task updated.",
		ErrorMsg:   "Could not update the task.",
	})
	if err != nil {
		h.handleCallError(c, err, taskEditPath(id))
		return
	}

	switch {
	case resp.OK():
		c.Redirect(http.StatusFound, taskPath(id))
	case resp.StatusCode == http.StatusBadRequest:
		h.render(c, http.StatusOK, "task_edit.html", gin.H{
			"Task":   task,
			"Form":   form,
			"Errors": apiFieldErrors(resp.FieldErrors()),
		})
	default:
		c.Redirect(http.StatusFound, tasksPath)
	}
}

func (h *handlerImpl) HandleToggleTask(c *gin.Context) {
	sess := currentSession(c)
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	next := safeNext(c.PostForm("next"))

	resp, err := h.api.Do(c.Request.Context(), sess, gateway.Request{
		Method:   http.MethodPatch,
		Path:     taskAPIPath(id) + "toggle/",
		ErrorMsg: "Could not update the task.",
	})
	if err != nil {
		h.handleCallError(c, err, next)
		return
	}

	if resp.OK() {
		var task taskView
		if err = resp.DecodeJSON(&task); err == nil {
			if task.Completed {
				sess.AddFlash(gateway.LevelSuccess, "Task marked as completed.")
			} else {
				sess.AddFlash(gateway.LevelInfo, "Task reopened.")
			}
		}
	}
	c.Redirect(http.StatusFound, next)
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	sess := currentSession(c)
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	_, err := h.api.Do(c.Request.Context(), sess, gateway.Request{
		Method:     http.MethodDelete,
		Path:       taskAPIPath(id),
		SuccessMsg: "Task deleted.",
		ErrorMsg:   "Could not delete the task.",
	})
	if err != nil {
		h.handleCallError(c, err, tasksPath)
		return
	}
	c.Redirect(http.StatusFound, tasksPath)
}

// loadTask fetches the task named in the path. On failure the response is
// already written.
func (h *handlerImpl) loadTask(c *gin.Context) (*taskView, bool) {
	sess := currentSession(c)
	id, ok := h.taskID(c)
	if !ok {
		return nil, false
	}

	resp, err := h.api.Do(c.Request.Context(), sess, gateway.Request{
		Method:   http.MethodGet,
		Path:     taskAPIPath(id),
		ErrorMsg: "Task not found.",
	})
	if err != nil {
		h.handleCallError(c, err, tasksPath)
		return nil, false
	}
	if resp.StatusCode != http.StatusOK {
		c.Redirect(http.StatusFound, tasksPath)
		return nil, false
	}

	var task taskView
	if err = resp.DecodeJSON(&task); err != nil {
		h.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to decode task")
		sess.AddFlash(gateway.LevelError, "Task not found.")
		c.Redirect(http.StatusFound, tasksPath)
		return nil, false
	}
	return &task, true
}

func (h *handlerImpl) taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		currentSession(c).AddFlash(gateway.LevelError, "Task not found.")
		c.Redirect(http.StatusFound, tasksPath)
		return 0, false
	}
	return id, true
}

// safeNext accepts only paths on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return tasksPath
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return tasksPath
	}
	return next
}

func taskAPIPath(id int64) string { return fmt.Sprintf("/%d/", id) }

func taskPath(id int64) string { return fmt.Sprintf("%s%d/", tasksPath, id) }

func taskEditPath(id int64) string { return taskPath(id) + "edit/" }
