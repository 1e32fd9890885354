package routes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
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

func SubmitForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		identity, ok := middlewares.RequesterIdentity(r)
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "submit_form.identity")
			return
		}

		form := model.Form{}
		err = render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = model.ValidateAnswers(form.Answers)
		if err != nil {
			httpx.WriteError(w, "submit_form.validate", err)
			return
		}

		template, err := fetchTemplate(r.Context(), app, templateId)
		if err != nil {
			httpx.WriteError(w, "db.get_template", err)
			return
		}
		if !canView(template, identity) {
			httpx.WriteError(w, "submit_form.authorize",
				model.Forbiddenf("user %d may not fill template %d", identity.UserID, templateId))
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		now := time.Now()
		var formId int
		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO form (template_id, user_id, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
			templateId,
			identity.UserID,
			now,
			now,
		).Scan(&formId)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form", err)
			return
		}

		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO form_answer (form_id, slot_id, value)
			VALUES (?, ?, ?)`)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form.answers.prepare", err)
			return
		}
		defer stmt.Close()

		// answers for disabled slots are stored too; the aggregation
		// engine filters on the template's enable flags at read time
		for slotId, value := range form.Answers {
			if value == nil {
				continue
			}
			valueJson, err := json.Marshal(value)
			if err != nil {
				httpx.LogInternalError(w, "db.insert_form.answers.encode", err)
				return
			}
			_, err = stmt.ExecContext(r.Context(), formId, slotId, string(valueJson))
			if err != nil {
				httpx.LogInternalError(w, "db.insert_form.answers.insert", err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": formId,
		})
	}
}

// fetchForms loads the live forms of a template, id ascending, with their
// answers decoded from JSON. The stable ordering is what makes frequency
// tie-breaks in aggregation reproducible.
func fetchForms(ctx context.Context, app app.App, templateId int) ([]model.Form, error) {
	rows, err := app.QueryContext(ctx, `
		SELECT f.id, f.template_id, f.user_id, f.created_at, a.slot_id, a.value
		FROM form f
		LEFT OUTER JOIN form_answer a ON (f.id = a.form_id)
		WHERE f.template_id = ? AND f.status = 'active'
		ORDER BY f.id, a.slot_id`,
		templateId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	forms := []model.Form{}
	for rows.Next() {
		f := model.Form{}
		var slotId, value *string
		err = rows.Scan(&f.ID, &f.TemplateID, &f.UserID, &f.CreatedAt, &slotId, &value)
		if err != nil {
			return nil, err
		}

		lastIdx := len(forms) - 1
		if lastIdx < 0 || forms[lastIdx].ID != f.ID {
			f.Answers = map[string]any{}
			forms = append(forms, f)
			lastIdx++
		}

		if slotId == nil || value == nil {
			continue
		}
		var answer any
		err = json.Unmarshal([]byte(*value), &answer)
		if err != nil {
			return nil, err
		}
		forms[lastIdx].Answers[*slotId] = answer
	}
	return forms, rows.Err()
}

func ListTemplateForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		identity, ok := middlewares.RequesterIdentity(r)
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "get_forms.identity")
			return
		}

		template, err := fetchTemplate(r.Context(), app, templateId)
		if err != nil {
			httpx.WriteError(w, "db.get_template", err)
			return
		}
		if !identity.CanManage(template.OwnerID) {
			httpx.WriteError(w, "get_forms.authorize",
				model.Forbiddenf("user %d may not read submissions of template %d", identity.UserID, templateId))
			return
		}

		forms, err := fetchForms(r.Context(), app, templateId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		identity, ok := middlewares.RequesterIdentity(r)
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "get_form.identity")
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT f.id, f.template_id, f.user_id, f.created_at, t.owner_id, a.slot_id, a.value
			FROM form f
			INNER JOIN template t ON (f.template_id = t.id)
			LEFT OUTER JOIN form_answer a ON (f.id = a.form_id)
			WHERE f.id = ? AND f.status = 'active'
			ORDER BY a.slot_id`,
			formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}
		defer rows.Close()

		if !rows.Next() {
			httpx.LogNotFound(w, "get_form", formId)
			return
		}

		form := model.Form{Answers: map[string]any{}}
		var ownerId int
		for {
			var slotId, value *string
			err = rows.Scan(&form.ID, &form.TemplateID, &form.UserID, &form.CreatedAt, &ownerId, &slotId, &value)
			if err != nil {
				httpx.LogInternalError(w, "db.get_form.scan", err)
				return
			}

			if slotId != nil && value != nil {
				var answer any
				err = json.Unmarshal([]byte(*value), &answer)
				if err != nil {
					httpx.LogInternalError(w, "db.get_form.parse_value", err)
					return
				}
				form.Answers[*slotId] = answer
			}

			if !rows.Next() {
				break
			}
		}

		if form.UserID != identity.UserID && !identity.CanManage(ownerId) {
			httpx.WriteError(w, "get_form.authorize",
				model.Forbiddenf("user %d may not read form %d", identity.UserID, formId))
			return
		}

		render.JSON(w, r, form)
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		identity, ok := middlewares.RequesterIdentity(r)
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "update_form.identity")
			return
		}

		patch := model.FormPatch{}
		err = render.DecodeJSON(r.Body, &patch)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		err = model.ValidateAnswers(patch.Answers)
		if err != nil {
			httpx.WriteError(w, "update_form.validate", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var submitterId int
		err = tx.QueryRowContext(r.Context(), `
			SELECT user_id FROM form
			WHERE id = ? AND status = 'active'`,
			formId,
		).Scan(&submitterId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.WriteError(w, "db.update_form", model.NotFound("form", formId))
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.update_form", err)
			return
		}
		if !identity.CanManage(submitterId) {
			httpx.WriteError(w, "update_form.authorize",
				model.Forbiddenf("user %d may not edit form %d", identity.UserID, formId))
			return
		}

		// edit in place: provided keys overwrite, explicit nulls clear
		for slotId, value := range patch.Answers {
			if value == nil {
				_, err = tx.ExecContext(r.Context(), `
					DELETE FROM form_answer
					WHERE form_id = ? AND slot_id = ?`,
					formId, slotId,
				)
				if err != nil {
					httpx.LogInternalError(w, "db.update_form.answers.delete", err)
					return
				}
				continue
			}

			valueJson, err := json.Marshal(value)
			if err != nil {
				httpx.LogInternalError(w, "db.update_form.answers.encode", err)
				return
			}
			_, err = tx.ExecContext(r.Context(), `
				INSERT INTO form_answer (form_id, slot_id, value)
				VALUES (?, ?, ?)
				ON CONFLICT (form_id, slot_id) DO UPDATE SET value = excluded.value`,
				formId, slotId, string(valueJson),
			)
			if err != nil {
				httpx.LogInternalError(w, "db.update_form.answers.upsert", err)
				return
			}
		}

		_, err = tx.ExecContext(r.Context(), `
			UPDATE form SET updated_at = ? WHERE id = ?`,
			time.Now(), formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.touch", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		identity, ok := middlewares.RequesterIdentity(r)
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "delete_form.identity")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var submitterId int
		err = tx.QueryRowContext(r.Context(), `
			SELECT user_id FROM form
			WHERE id = ? AND status = 'active'`,
			formId,
		).Scan(&submitterId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "delete_form", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form", err)
			return
		}
		if !identity.CanManage(submitterId) {
			httpx.WriteError(w, "delete_form.authorize",
				model.Forbiddenf("user %d may not delete form %d", identity.UserID, formId))
			return
		}

		_, err = tx.ExecContext(r.Context(), `
			UPDATE form
			SET status = 'deleted', updated_at = ?
			WHERE id = ?`,
			time.Now(),
			formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
