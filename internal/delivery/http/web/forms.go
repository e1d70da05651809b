package web

import (
	"errors"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type loginForm struct {
	Username string `form:"username" binding:"required,max=150"`
	Password string `form:"password" binding:"required"`
}

type registerForm struct {
	Username string `form:"username" binding:"required,max=150"`
	Password string `form:"password" binding:"required,min=6,max=255"`
}

type taskForm struct {
	Title       string `form:"title" binding:"required,max=255"`
	Description string `form:"description"`
	Completed   bool   `form:"completed"`
}

// normalize trims the title and reports a blank one as a field error.
func (f *taskForm) normalize() map[string]string {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return map[string]string{"title": "This field is required."}
	}
	return nil
}

type taskFilterForm struct {
	Completed    string `form:"completed" binding:"omitempty,oneof=true false"`
	CreatedFrom  string `form:"created_from" binding:"omitempty,datetime=2006-01-02"`
	CreatedUntil string `form:"created_until" binding:"omitempty,datetime=2006-01-02"`
	UpdatedFrom  string `form:"updated_from" binding:"omitempty,datetime=2006-01-02"`
	UpdatedUntil string `form:"updated_until" binding:"omitempty,datetime=2006-01-02"`
	Search       string `form:"search" binding:"max=255"`
	Ordering     string `form:"ordering" binding:"omitempty,oneof=title -title created_at -created_at updated_at -updated_at"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
}

// query turns the filter into the task API query string. The page is
// left out so the pager can set it.
func (f *taskFilterForm) query() url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			q.Set(key, value)
		}
	}

	set("completed", f.Completed)
	set("created_at_after", f.CreatedFrom)
	set("created_at_before", f.CreatedUntil)
	set("updated_at_after", f.UpdatedFrom)
	set("updated_at_before", f.UpdatedUntil)
	set("search", f.Search)
	set("ordering", f.Ordering)
	return q
}

func (f *taskFilterForm) pageQuery(page int) url.Values {
	q := f.query()
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

// formErrors maps binding failures onto the form field names of dst.
func formErrors(err error, dst any) map[string]string {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return map[string]string{"__all__": "The submitted form is invalid."}
	}

	t := reflect.TypeOf(dst)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	fields := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		name := fe.Field()
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if tag, _, _ := strings.Cut(sf.Tag.Get("form"), ","); tag != "" {
				name = tag
			}
		}
		if _, seen := fields[name]; !seen {
			fields[name] = fieldMessage(fe)
		}
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return "Ensure this value has at most " + fe.Param() + " characters."
	case "min":
		return "Ensure this value has at least " + fe.Param() + " characters."
	case "datetime":
		return "Enter a valid date."
	case "oneof":
		return "Select a valid choice."
	default:
		return "Enter a valid value."
	}
}

// apiFieldErrors keeps the first API message per field.
func apiFieldErrors(fields map[string][]string) map[string]string {
	out := make(map[string]string, len(fields))
	for field, msgs := range fields {
		if len(msgs) == 0 {
			continue
		}
		if field == "detail" || field == "non_field_errors" {
			field = "__all__"
		}
		out[field] = msgs[0]
	}
	return out
}
