package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/geocoder89/sprintsync/internal/domain/task"
	"github.com/geocoder89/sprintsync/internal/domain/user"
	"github.com/geocoder89/sprintsync/internal/http/handlers"
	"github.com/geocoder89/sprintsync/internal/http/middlewares"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake repository implementations of the handlers.TaskStore interface

type fakeTasksRepo struct {
	getFn        func(ctx context.Context, id string) (task.Task, error)
	updateFn     func(ctx context.Context, id string, req task.UpdateRequest) (task.Task, error)
	addMinutesFn func(ctx context.Context, id string, minutes int) (task.Task, error)
	deleteFn     func(ctx context.Context, id string) error
}

func (f *fakeTasksRepo) Create(_ context.Context, t task.Task) (task.Task, error) { return t, nil }

func (f *fakeTasksRepo) GetByID(ctx context.Context, id string) (task.Task, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return task.Task{}, task.ErrNotFound
}

func (f *fakeTasksRepo) List(context.Context, task.ListFilter) ([]task.Task, int, error) {
	return nil, 0, nil
}

func (f *fakeTasksRepo) Update(ctx context.Context, id string, req task.UpdateRequest) (task.Task, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return task.Task{}, nil
}

func (f *fakeTasksRepo) AddMinutes(ctx context.Context, id string, minutes int) (task.Task, error) {
	if f.addMinutesFn != nil {
		return f.addMinutesFn(ctx, id, minutes)
	}
	return task.Task{}, nil
}

func (f *fakeTasksRepo) SetOwner(context.Context, string, *string) (task.Task, error) {
	return task.Task{}, nil
}

func (f *fakeTasksRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeTasksRepo) Stats(context.Context, task.ListFilter) (task.Stats, error) {
	return task.Stats{}, nil
}

// fakeAuthz answers every task predicate with the same result.
type fakeAuthz struct {
	allowed bool
	err     error
	calls   int
}

func (f *fakeAuthz) IsProjectOwner(context.Context, string, string) (bool, error) {
	return f.allowed, f.err
}
func (f *fakeAuthz) IsProjectAdmin(context.Context, string, string) (bool, error) {
	return f.allowed, f.err
}
func (f *fakeAuthz) IsProjectMember(context.Context, string, string) (bool, error) {
	return f.allowed, f.err
}
func (f *fakeAuthz) CanManageMembers(context.Context, string, string) (bool, error) {
	return f.allowed, f.err
}
func (f *fakeAuthz) CanViewTask(context.Context, task.Task, user.User) (bool, error) {
	f.calls++
	return f.allowed, f.err
}
func (f *fakeAuthz) CanEditTask(context.Context, task.Task, user.User) (bool, error) {
	f.calls++
	return f.allowed, f.err
}
func (f *fakeAuthz) CanAssignTask(context.Context, task.Task, user.User) (bool, error) {
	f.calls++
	return f.allowed, f.err
}
func (f *fakeAuthz) CanUnassignTask(context.Context, task.Task, user.User) (bool, error) {
	f.calls++
	return f.allowed, f.err
}

var _ handlers.Authorizer = (*fakeAuthz)(nil)

func withUser(u user.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		middlewares.SetCurrentUser(c, u)
		c.Next()
	}
}

func newTasksRouter(repo *fakeTasksRepo, authz *fakeAuthz, me user.User) *gin.Engine {
	h := handlers.NewTasksHandler(repo, nil, nil, authz, nil)

	r := gin.New()
	r.Use(withUser(me))
	r.GET("/tasks/:id", h.Get)
	r.PATCH("/tasks/:id", h.Update)
	r.POST("/tasks/:id/time", h.AddTime)
	r.DELETE("/tasks/:id", h.Delete)
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTasksHandler_MissingTaskSkipsAuthorization(t *testing.T) {
	authz := &fakeAuthz{allowed: false}
	r := newTasksRouter(&fakeTasksRepo{}, authz, user.User{ID: uuid.NewString()})

	w := serve(r, http.MethodGet, "/tasks/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", w.Code, w.Body.String())
	}
	if authz.calls != 0 {
		t.Fatalf("authorizer consulted %d times for a missing task", authz.calls)
	}
}

// Bodies are validated before the task is looked up, so a malformed request
// to a missing task is a 400 and a well-formed one is a 404.
func TestTasksHandler_BodyValidatedBeforeLookup(t *testing.T) {
	authz := &fakeAuthz{allowed: true}
	r := newTasksRouter(&fakeTasksRepo{}, authz, user.User{ID: uuid.NewString()})
	missing := "/tasks/" + uuid.NewString()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"update malformed", http.MethodPatch, missing, `{"status":"blocked"}`, http.StatusBadRequest},
		{"update well-formed", http.MethodPatch, missing, `{"status":"done"}`, http.StatusNotFound},
		{"time malformed", http.MethodPost, missing + "/time", `{"minutes":-5}`, http.StatusBadRequest},
		{"time well-formed", http.MethodPost, missing + "/time", `{"minutes":5}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d body=%s", tt.want, w.Code, w.Body.String())
			}
		})
	}

	if authz.calls != 0 {
		t.Fatalf("authorizer consulted %d times", authz.calls)
	}
}

func TestTasksHandler_StatusMapping(t *testing.T) {
	id := uuid.NewString()
	existing := task.Task{ID: id, Title: "Existing", Status: task.StatusTodo}
	boom := errors.New("db down")

	tests := []struct {
		name   string
		repo   *fakeTasksRepo
		authz  *fakeAuthz
		admin  bool
		method string
		body   string
		path   string
		want   int
	}{
		{
			name:   "store error on load",
			repo:   &fakeTasksRepo{getFn: func(context.Context, string) (task.Task, error) { return task.Task{}, boom }},
			authz:  &fakeAuthz{allowed: true},
			method: http.MethodGet,
			want:   http.StatusInternalServerError,
		},
		{
			name:   "authorizer error",
			repo:   &fakeTasksRepo{getFn: func(context.Context, string) (task.Task, error) { return existing, nil }},
			authz:  &fakeAuthz{err: boom},
			method: http.MethodGet,
			want:   http.StatusInternalServerError,
		},
		{
			name:   "denied",
			repo:   &fakeTasksRepo{getFn: func(context.Context, string) (task.Task, error) { return existing, nil }},
			authz:  &fakeAuthz{allowed: false},
			method: http.MethodDelete,
			want:   http.StatusForbidden,
		},
		{
			name:   "global admin bypasses edit check",
			repo:   &fakeTasksRepo{getFn: func(context.Context, string) (task.Task, error) { return existing, nil }},
			authz:  &fakeAuthz{allowed: false},
			admin:  true,
			method: http.MethodDelete,
			want:   http.StatusNoContent,
		},
		{
			name: "deleted concurrently",
			repo: &fakeTasksRepo{
				getFn:    func(context.Context, string) (task.Task, error) { return existing, nil },
				deleteFn: func(context.Context, string) error { return task.ErrNotFound },
			},
			authz:  &fakeAuthz{allowed: true},
			method: http.MethodDelete,
			want:   http.StatusNotFound,
		},
		{
			name:   "invalid status value",
			repo:   &fakeTasksRepo{getFn: func(context.Context, string) (task.Task, error) { return existing, nil }},
			authz:  &fakeAuthz{allowed: true},
			method: http.MethodPatch,
			body:   `{"status":"blocked"}`,
			want:   http.StatusBadRequest,
		},
		{
			name:   "minutes required",
			repo:   &fakeTasksRepo{getFn: func(context.Context, string) (task.Task, error) { return existing, nil }},
			authz:  &fakeAuthz{allowed: true},
			method: http.MethodPost,
			path:   "/time",
			body:   `{}`,
			want:   http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTasksRouter(tt.repo, tt.authz, user.User{ID: uuid.NewString(), IsAdmin: tt.admin})

			w := serve(r, tt.method, "/tasks/"+id+tt.path, tt.body)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d body=%s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestTasksHandler_AddTimePassesMinutes(t *testing.T) {
	id := uuid.NewString()
	var got int

	repo := &fakeTasksRepo{
		getFn: func(context.Context, string) (task.Task, error) { return task.Task{ID: id}, nil },
		addMinutesFn: func(_ context.Context, _ string, minutes int) (task.Task, error) {
			got = minutes
			return task.Task{ID: id, TotalMinutes: minutes}, nil
		},
	}
	r := newTasksRouter(repo, &fakeAuthz{allowed: true}, user.User{ID: uuid.NewString()})

	w := serve(r, http.MethodPost, "/tasks/"+id+"/time", `{"minutes":0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if got != 0 {
		t.Fatalf("minutes = %d, want 0", got)
	}
}
