package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/orifhon74/customizable-forms/app"
	"github.com/orifhon74/customizable-forms/httpx"
	"github.com/orifhon74/customizable-forms/log"
	"github.com/orifhon74/customizable-forms/model"
)

func ListUsers(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT id, username, role
			FROM user
			ORDER BY id`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_users", err)
			return
		}
		defer rows.Close()

		users := []model.User{}
		for rows.Next() {
			u := model.User{}
			err = rows.Scan(&u.ID, &u.Username, &u.Role)
			if err != nil {
				httpx.LogInternalError(w, "db.get_users.scan", err)
				return
			}

			users = append(users, u)
		}

		render.JSON(w, r, map[string]any{
			"users": users,
		})
	}
}

// RestoreTemplate is the administrative recovery override for soft
// deletion.
func RestoreTemplate(app app.App) http.HandlerFunc {
	return restore(app, "template")
}

func RestoreForm(app app.App) http.HandlerFunc {
	return restore(app, "form")
}

func restore(app app.App, table string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE `+table+`
			SET status = 'active', updated_at = ?
			WHERE id = ? AND status = 'deleted'`,
			time.Now(),
			id,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.restore_"+table, err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.restore_"+table+".verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "restore_"+table, id)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
