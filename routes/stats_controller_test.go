package routes_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orifhon74/customizable-forms/app"
	"github.com/orifhon74/customizable-forms/config"
	"github.com/orifhon74/customizable-forms/database"
	"github.com/orifhon74/customizable-forms/model"
	"github.com/orifhon74/customizable-forms/routes"
	"github.com/orifhon74/customizable-forms/routes/middlewares"
)

func newTestApp(t *testing.T) app.App {
	t.Helper()

	cfg := config.Config{DBUrl: filepath.Join(t.TempDir(), "test.sqlite")}
	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return app.App{DB: db, Config: cfg}
}

func mustExec(t *testing.T, app app.App, query string, args ...any) {
	t.Helper()
	_, err := app.Exec(query, args...)
	require.NoError(t, err)
}

// seedTemplate sets up user 1 owning template 1 with int1 enabled, and
// user 2 as a plain registered user.
func seedTemplate(t *testing.T, app app.App) {
	now := time.Now()
	mustExec(t, app, `INSERT INTO user (id, username, password_hash) VALUES (1, 'owner', 'x'), (2, 'other', 'x')`)
	mustExec(t, app, `
		INSERT INTO template (id, owner_id, title, created_at, updated_at)
		VALUES (1, 1, 'Test template', ?, ?)`,
		now, now)
	mustExec(t, app, `INSERT INTO template_slot (template_id, slot_id, enabled) VALUES (1, 'int1', 1)`)
}

func getStats(app app.App, templateId string, identity model.Identity) *httptest.ResponseRecorder {
	r := httptest.NewRequest("GET", "/api/templates/"+templateId+"/stats", nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", templateId)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = middlewares.WithIdentity(ctx, identity)

	w := httptest.NewRecorder()
	routes.TemplateStats(app)(w, r.WithContext(ctx))
	return w
}

func TestTemplateStatsOwner(t *testing.T) {
	app := newTestApp(t)
	seedTemplate(t, app)
	now := time.Now()
	mustExec(t, app, `INSERT INTO form (id, template_id, user_id, created_at, updated_at) VALUES (1, 1, 2, ?, ?)`, now, now)
	mustExec(t, app, `INSERT INTO form_answer (form_id, slot_id, value) VALUES (1, 'int1', '5')`)

	w := getStats(app, "1", model.Identity{UserID: 1})
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		TotalForms int                 `json:"total_forms"`
		Averages   map[string]*float64 `json:"averages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.TotalForms)
	require.NotNil(t, report.Averages["int1"])
	assert.Equal(t, 5.0, *report.Averages["int1"])
}

func TestTemplateStatsForbiddenForNonOwner(t *testing.T) {
	app := newTestApp(t)
	seedTemplate(t, app)

	w := getStats(app, "1", model.Identity{UserID: 2})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "total_forms")
}

func TestTemplateStatsAdminBypassesOwnership(t *testing.T) {
	app := newTestApp(t)
	seedTemplate(t, app)

	w := getStats(app, "1", model.Identity{UserID: 2, Admin: true})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "total_forms")
}

// The authorization check runs before any submission data is touched: a
// form row whose answer would break the fetch still yields a plain 403
// for a non-owner, while the owner trips over the broken data.
func TestTemplateStatsAuthorizesBeforeFetchingForms(t *testing.T) {
	app := newTestApp(t)
	seedTemplate(t, app)
	now := time.Now()
	mustExec(t, app, `INSERT INTO form (id, template_id, user_id, created_at, updated_at) VALUES (1, 1, 2, ?, ?)`, now, now)
	mustExec(t, app, `INSERT INTO form_answer (form_id, slot_id, value) VALUES (1, 'int1', '{broken')`)

	w := getStats(app, "1", model.Identity{UserID: 2})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = getStats(app, "1", model.Identity{UserID: 1})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTemplateStatsNotFoundWhenDeleted(t *testing.T) {
	app := newTestApp(t)
	seedTemplate(t, app)
	mustExec(t, app, `UPDATE template SET status = 'deleted' WHERE id = 1`)

	w := getStats(app, "1", model.Identity{UserID: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
