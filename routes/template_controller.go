package routes

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/orifhon74/customizable-forms/app"
	"github.com/orifhon74/customizable-forms/httpx"
	"github.com/orifhon74/customizable-forms/log"
	"github.com/orifhon74/customizable-forms/model"
	"github.com/orifhon74/customizable-forms/routes/middlewares"
)

func CreateTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middlewares.RequesterIdentity(r)
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "create_template.identity")
			return
		}

		template := model.Template{}
		err := render.DecodeJSON(r.Body, &template)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if template.Visibility == "" {
			template.Visibility = model.VisibilityPublic
		}

		err = template.Validate()
		if err != nil {
			httpx.WriteError(w, "create_template.validate", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		now := time.Now()
		var templateId int
		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO template (owner_id, title, description, visibility, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`,
			identity.UserID,
			template.Title,
			template.Description,
			template.Visibility,
			now,
			now,
		).Scan(&templateId)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_template", err)
			return
		}

		// every template carries the full fixed slot set; slots absent
		// from the payload start out disabled
		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO template_slot (template_id, slot_id, enabled, prompt)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_template.slots.prepare", err)
			return
		}
		defer stmt.Close()

		for _, slotId := range model.SlotIDs() {
			slot := template.Slots[slotId]
			_, err := stmt.ExecContext(r.Context(), templateId, slotId, slot.Enabled, slot.Prompt)
			if err != nil {
				httpx.LogInternalError(w, "db.insert_template.slots.insert", err)
				return
			}
		}

		if template.Visibility == model.VisibilityPrivate {
			err = insertAllowedUsers(r.Context(), tx, templateId, template.AllowedUsers)
			if err != nil {
				httpx.LogInternalError(w, "db.insert_template.access", err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_template.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": templateId,
		})
	}
}

func insertAllowedUsers(ctx context.Context, tx *sql.Tx, templateId int, userIds []int) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO template_access (template_id, user_id)
		VALUES (?, ?)
		ON CONFLICT (template_id, user_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, userId := range userIds {
		_, err := stmt.ExecContext(ctx, templateId, userId)
		if err != nil {
			return err
		}
	}
	return nil
}

func ListTemplates(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middlewares.RequesterIdentity(r)
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "get_templates.identity")
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT DISTINCT t.id, t.owner_id, t.version, t.title, t.description, t.visibility
			FROM template t
			LEFT OUTER JOIN template_access a ON (t.id = a.template_id)
			WHERE t.status = 'active'
				AND (? OR t.visibility = 'public' OR t.owner_id = ? OR a.user_id = ?)
			ORDER BY t.id`,
			identity.Admin,
			identity.UserID,
			identity.UserID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_templates", err)
			return
		}
		defer rows.Close()

		templates := []model.Template{}
		for rows.Next() {
			t := model.Template{}
			err = rows.Scan(&t.ID, &t.OwnerID, &t.Version, &t.Title, &t.Description, &t.Visibility)
			if err != nil {
				httpx.LogInternalError(w, "db.get_templates.scan", err)
				return
			}

			templates = append(templates, t)
		}

		render.JSON(w, r, map[string]any{
			"templates": templates,
		})
	}
}

// fetchTemplate loads a live template with its slot configuration and
// allow-list. Soft-deleted templates resolve to NotFoundError.
func fetchTemplate(ctx context.Context, app app.App, templateId int) (model.Template, error) {
	t := model.Template{Slots: map[string]model.Slot{}}
	err := app.QueryRowContext(ctx, `
		SELECT id, owner_id, version, title, description, visibility
		FROM template
		WHERE id = ? AND status = 'active'`,
		templateId,
	).Scan(&t.ID, &t.OwnerID, &t.Version, &t.Title, &t.Description, &t.Visibility)
	if errors.Is(err, sql.ErrNoRows) {
		return t, model.NotFound("template", templateId)
	}
	if err != nil {
		return t, err
	}

	rows, err := app.QueryContext(ctx, `
		SELECT slot_id, enabled, prompt
		FROM template_slot
		WHERE template_id = ?`,
		templateId,
	)
	if err != nil {
		return t, err
	}
	defer rows.Close()

	for rows.Next() {
		var slotId string
		slot := model.Slot{}
		err = rows.Scan(&slotId, &slot.Enabled, &slot.Prompt)
		if err != nil {
			return t, err
		}
		t.Slots[slotId] = slot
	}
	if err = rows.Err(); err != nil {
		return t, err
	}

	access, err := app.QueryContext(ctx, `
		SELECT user_id
		FROM template_access
		WHERE template_id = ?
		ORDER BY user_id`,
		templateId,
	)
	if err != nil {
		return t, err
	}
	defer access.Close()

	for access.Next() {
		var userId int
		err = access.Scan(&userId)
		if err != nil {
			return t, err
		}
		t.AllowedUsers = append(t.AllowedUsers, userId)
	}
	return t, access.Err()
}

// canView reports whether a requester may see or fill a template:
// public ones are open to everybody, private ones to the owner, the
// allow-list and admins.
func canView(t model.Template, identity model.Identity) bool {
	if identity.CanManage(t.OwnerID) || t.Visibility == model.VisibilityPublic {
		return true
	}
	return slices.Contains(t.AllowedUsers, identity.UserID)
}

func GetTemplateById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		identity, ok := middlewares.RequesterIdentity(r)
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "get_template.identity")
			return
		}

		template, err := fetchTemplate(r.Context(), app, templateId)
		if err != nil {
			httpx.WriteError(w, "db.get_template", err)
			return
		}

		if !canView(template, identity) {
			httpx.WriteError(w, "get_template.authorize",
				model.Forbiddenf("user %d may not view template %d", identity.UserID, templateId))
			return
		}
		if !identity.CanManage(template.OwnerID) {
			// the allow-list is owner business
			template.AllowedUsers = nil
		}

		render.JSON(w, r, template)
	}
}

func UpdateTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		identity, ok := middlewares.RequesterIdentity(r)
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "update_template.identity")
			return
		}

		patch := model.TemplatePatch{}
		err = render.DecodeJSON(r.Body, &patch)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		err = patch.Validate()
		if err != nil {
			httpx.WriteError(w, "update_template.validate", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var ownerId int
		err = tx.QueryRowContext(r.Context(), `
			SELECT owner_id FROM template
			WHERE id = ? AND status = 'active'`,
			templateId,
		).Scan(&ownerId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.WriteError(w, "db.update_template", model.NotFound("template", templateId))
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.update_template", err)
			return
		}
		if !identity.CanManage(ownerId) {
			httpx.WriteError(w, "update_template.authorize",
				model.Forbiddenf("user %d may not edit template %d", identity.UserID, templateId))
			return
		}

		res, err := tx.ExecContext(r.Context(), `
			UPDATE template
			SET
				title = COALESCE(?, title),
				description = COALESCE(?, description),
				visibility = COALESCE(?, visibility),
				version = version + 1,
				updated_at = ?
			WHERE	id = ?
				AND version = ?`,
			patch.Title,
			patch.Description,
			patch.Visibility,
			time.Now(),
			templateId,
			patch.Version,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_template", err)
			return
		}
		// optimistic lock
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_template.verify", err)
			return
		}
		if n < 1 {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.update_template.verify.conflict")
			return
		}

		stmt, err := tx.PrepareContext(r.Context(), `
			UPDATE template_slot
			SET
				enabled = COALESCE(?, enabled),
				prompt = COALESCE(?, prompt)
			WHERE	template_id = ?
				AND slot_id = ?`)
		if err != nil {
			httpx.LogInternalError(w, "db.update_template.slots.prepare", err)
			return
		}
		defer stmt.Close()

		for slotId, slot := range patch.Slots {
			_, err := stmt.ExecContext(r.Context(), slot.Enabled, slot.Prompt, templateId, slotId)
			if err != nil {
				httpx.LogInternalError(w, "db.update_template.slots.update", err)
				return
			}
		}

		if patch.AllowedUsers != nil {
			// replace the whole allow-list
			_, err = tx.ExecContext(r.Context(), `
				DELETE FROM template_access
				WHERE template_id = ?`,
				templateId,
			)
			if err != nil {
				httpx.LogInternalError(w, "db.update_template.access.delete", err)
				return
			}
			err = insertAllowedUsers(r.Context(), tx, templateId, *patch.AllowedUsers)
			if err != nil {
				httpx.LogInternalError(w, "db.update_template.access.insert", err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.update_template.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		identity, ok := middlewares.RequesterIdentity(r)
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "delete_template.identity")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var ownerId int
		err = tx.QueryRowContext(r.Context(), `
			SELECT owner_id FROM template
			WHERE id = ? AND status = 'active'`,
			templateId,
		).Scan(&ownerId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "delete_template", templateId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.delete_template", err)
			return
		}
		if !identity.CanManage(ownerId) {
			httpx.WriteError(w, "delete_template.authorize",
				model.Forbiddenf("user %d may not delete template %d", identity.UserID, templateId))
			return
		}

		// soft delete; forms submitted against the template stay live
		// and independently addressable
		_, err = tx.ExecContext(r.Context(), `
			UPDATE template
			SET status = 'deleted', updated_at = ?
			WHERE id = ?`,
			time.Now(),
			templateId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_template", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_template.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
