package crmapi

import (
	"context"
	"net/url"
	"strconv"

	"github.com/salescrm/crm-portal/internal/gateway"
)

// Resources groups the domain endpoints. Payloads are passed through as
// opaque JSON; the portal does not interpret them.
type Resources struct {
	Leads      *LeadsAPI
	Users      *UsersAPI
	Tasks      *TasksAPI
	Activities *ActivitiesAPI
	Dashboard  *DashboardAPI
}

// NewResources builds every domain client on top of gw.
func NewResources(gw Doer) *Resources {
	return &Resources{
		Leads:      &LeadsAPI{gw: gw},
		Users:      &UsersAPI{gw: gw},
		Tasks:      &TasksAPI{gw: gw},
		Activities: &ActivitiesAPI{gw: gw},
		Dashboard:  &DashboardAPI{gw: gw},
	}
}

// LeadsAPI wraps /leads.
type LeadsAPI struct{ gw Doer }

func (l *LeadsAPI) List(ctx context.Context, params url.Values) (*gateway.Response, error) {
	return l.gw.Do(ctx, gateway.Get("/leads", params))
}

func (l *LeadsAPI) Get(ctx context.Context, id string) (*gateway.Response, error) {
	return l.gw.Do(ctx, gateway.Get("/leads/"+url.PathEscape(id), nil))
}

func (l *LeadsAPI) Create(ctx context.Context, data any) (*gateway.Response, error) {
	return l.gw.Do(ctx, gateway.Post("/leads", data))
}

func (l *LeadsAPI) Update(ctx context.Context, id string, data any) (*gateway.Response, error) {
	return l.gw.Do(ctx, gateway.Put("/leads/"+url.PathEscape(id), data))
}

func (l *LeadsAPI) Delete(ctx context.Context, id string) (*gateway.Response, error) {
	return l.gw.Do(ctx, gateway.Delete("/leads/"+url.PathEscape(id)))
}

func (l *LeadsAPI) Assign(ctx context.Context, id, userID string) (*gateway.Response, error) {
	return l.gw.Do(ctx, gateway.Post("/leads/"+url.PathEscape(id)+"/assign", map[string]string{"userId": userID}))
}

func (l *LeadsAPI) Score(ctx context.Context, id string, manualScore int) (*gateway.Response, error) {
	return l.gw.Do(ctx, gateway.Post("/leads/"+url.PathEscape(id)+"/score", map[string]int{"manualScore": manualScore}))
}

func (l *LeadsAPI) ChangeStage(ctx context.Context, id, stage string) (*gateway.Response, error) {
	return l.gw.Do(ctx, gateway.Post("/leads/"+url.PathEscape(id)+"/stage", map[string]string{"stage": stage}))
}

func (l *LeadsAPI) Stats(ctx context.Context, params url.Values) (*gateway.Response, error) {
	return l.gw.Do(ctx, gateway.Get("/leads/stats", params))
}

func (l *LeadsAPI) Mine(ctx context.Context, params url.Values) (*gateway.Response, error) {
	return l.gw.Do(ctx, gateway.Get("/leads/my-leads", params))
}

func (l *LeadsAPI) BulkAssign(ctx context.Context, leadIDs []string, userID string) (*gateway.Response, error) {
	return l.gw.Do(ctx, gateway.Post("/leads/bulk-assign", map[string]any{"leadIds": leadIDs, "userId": userID}))
}

func (l *LeadsAPI) Activities(ctx context.Context, id string, params url.Values) (*gateway.Response, error) {
	return l.gw.Do(ctx, gateway.Get("/leads/"+url.PathEscape(id)+"/activities", params))
}

// UsersAPI wraps /users.
type UsersAPI struct{ gw Doer }

func (u *UsersAPI) List(ctx context.Context, params url.Values) (*gateway.Response, error) {
	return u.gw.Do(ctx, gateway.Get("/users", params))
}

func (u *UsersAPI) Get(ctx context.Context, id string) (*gateway.Response, error) {
	return u.gw.Do(ctx, gateway.Get("/users/"+url.PathEscape(id), nil))
}

func (u *UsersAPI) Update(ctx context.Context, id string, data any) (*gateway.Response, error) {
	return u.gw.Do(ctx, gateway.Put("/users/"+url.PathEscape(id), data))
}

func (u *UsersAPI) UpdateRole(ctx context.Context, id, role string) (*gateway.Response, error) {
	return u.gw.Do(ctx, gateway.Put("/users/"+url.PathEscape(id)+"/role", map[string]string{"role": role}))
}

func (u *UsersAPI) Delete(ctx context.Context, id string) (*gateway.Response, error) {
	return u.gw.Do(ctx, gateway.Delete("/users/"+url.PathEscape(id)))
}

func (u *UsersAPI) Suspend(ctx context.Context, id, reason string) (*gateway.Response, error) {
	return u.gw.Do(ctx, gateway.Post("/users/"+url.PathEscape(id)+"/suspend", map[string]string{"reason": reason}))
}

func (u *UsersAPI) Activate(ctx context.Context, id string) (*gateway.Response, error) {
	return u.gw.Do(ctx, gateway.Post("/users/"+url.PathEscape(id)+"/activate", nil))
}

func (u *UsersAPI) Stats(ctx context.Context, id string, params url.Values) (*gateway.Response, error) {
	return u.gw.Do(ctx, gateway.Get("/users/"+url.PathEscape(id)+"/stats", params))
}

func (u *UsersAPI) Activity(ctx context.Context, id string, params url.Values) (*gateway.Response, error) {
	return u.gw.Do(ctx, gateway.Get("/users/"+url.PathEscape(id)+"/activity", params))
}

func (u *UsersAPI) Team(ctx context.Context) (*gateway.Response, error) {
	return u.gw.Do(ctx, gateway.Get("/users/team", nil))
}

// TasksAPI wraps /tasks.
type TasksAPI struct{ gw Doer }

func (t *TasksAPI) List(ctx context.Context, params url.Values) (*gateway.Response, error) {
	return t.gw.Do(ctx, gateway.Get("/tasks", params))
}

func (t *TasksAPI) Get(ctx context.Context, id string) (*gateway.Response, error) {
	return t.gw.Do(ctx, gateway.Get("/tasks/"+url.PathEscape(id), nil))
}

func (t *TasksAPI) Create(ctx context.Context, data any) (*gateway.Response, error) {
	return t.gw.Do(ctx, gateway.Post("/tasks", data))
}

func (t *TasksAPI) Update(ctx context.Context, id string, data any) (*gateway.Response, error) {
	return t.gw.Do(ctx, gateway.Put("/tasks/"+url.PathEscape(id), data))
}

func (t *TasksAPI) Delete(ctx context.Context, id string) (*gateway.Response, error) {
	return t.gw.Do(ctx, gateway.Delete("/tasks/"+url.PathEscape(id)))
}

func (t *TasksAPI) Complete(ctx context.Context, id string) (*gateway.Response, error) {
	return t.gw.Do(ctx, gateway.Post("/tasks/"+url.PathEscape(id)+"/complete", nil))
}

func (t *TasksAPI) Mine(ctx context.Context, params url.Values) (*gateway.Response, error) {
	return t.gw.Do(ctx, gateway.Get("/tasks/my-tasks", params))
}

// Upcoming lists tasks due within hours; zero leaves the window to the server.
func (t *TasksAPI) Upcoming(ctx context.Context, hours int) (*gateway.Response, error) {
	params := url.Values{}
	if hours > 0 {
		params.Set("hours", strconv.Itoa(hours))
	}
	return t.gw.Do(ctx, gateway.Get("/tasks/upcoming", params))
}

func (t *TasksAPI) Overdue(ctx context.Context, params url.Values) (*gateway.Response, error) {
	return t.gw.Do(ctx, gateway.Get("/tasks/overdue", params))
}

func (t *TasksAPI) Stats(ctx context.Context, userID string) (*gateway.Response, error) {
	params := url.Values{}
	if userID != "" {
		params.Set("userId", userID)
	}
	return t.gw.Do(ctx, gateway.Get("/tasks/stats", params))
}

// ActivitiesAPI wraps /activities.
type ActivitiesAPI struct{ gw Doer }

func (a *ActivitiesAPI) List(ctx context.Context, params url.Values) (*gateway.Response, error) {
	return a.gw.Do(ctx, gateway.Get("/activities", params))
}

func (a *ActivitiesAPI) Get(ctx context.Context, id string) (*gateway.Response, error) {
	return a.gw.Do(ctx, gateway.Get("/activities/"+url.PathEscape(id), nil))
}

func (a *ActivitiesAPI) Recent(ctx context.Context, limit int, excludeSystem bool) (*gateway.Response, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if excludeSystem {
		params.Set("excludeSystem", "true")
	}
	return a.gw.Do(ctx, gateway.Get("/activities/recent", params))
}

func (a *ActivitiesAPI) Stats(ctx context.Context, params url.Values) (*gateway.Response, error) {
	return a.gw.Do(ctx, gateway.Get("/activities/stats", params))
}

// DashboardAPI wraps /dashboard. Aggregation happens server-side.
type DashboardAPI struct{ gw Doer }

func (d *DashboardAPI) Stats(ctx context.Context) (*gateway.Response, error) {
	return d.gw.Do(ctx, gateway.Get("/dashboard/stats", nil))
}

func (d *DashboardAPI) Performance(ctx context.Context, params url.Values) (*gateway.Response, error) {
	return d.gw.Do(ctx, gateway.Get("/dashboard/performance", params))
}

func (d *DashboardAPI) Trends(ctx context.Context, days int) (*gateway.Response, error) {
	params := url.Values{}
	if days > 0 {
		params.Set("days", strconv.Itoa(days))
	}
	return d.gw.Do(ctx, gateway.Get("/dashboard/trends", params))
}

func (d *DashboardAPI) Upcoming(ctx context.Context) (*gateway.Response, error) {
	return d.gw.Do(ctx, gateway.Get("/dashboard/upcoming", nil))
}
