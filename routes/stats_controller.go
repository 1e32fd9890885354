package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/orifhon74/customizable-forms/app"
	"github.com/orifhon74/customizable-forms/httpx"
	"github.com/orifhon74/customizable-forms/log"
	"github.com/orifhon74/customizable-forms/model"
	"github.com/orifhon74/customizable-forms/routes/middlewares"
	"github.com/orifhon74/customizable-forms/stats"
)

// TemplateStats serves the aggregate report for a template. Only the
// owner or an admin may read it, and the check runs before any
// submission data is fetched. The report is a snapshot: forms submitted
// concurrently may or may not be included.
func TemplateStats(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		identity, ok := middlewares.RequesterIdentity(r)
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "stats.identity")
			return
		}

		template, err := fetchTemplate(r.Context(), app, templateId)
		if err != nil {
			httpx.WriteError(w, "db.get_template", err)
			return
		}
		if !identity.CanManage(template.OwnerID) {
			httpx.WriteError(w, "stats.authorize",
				model.Forbiddenf("user %d may not read stats of template %d", identity.UserID, templateId))
			return
		}

		forms, err := fetchForms(r.Context(), app, templateId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}

		report, err := stats.Aggregate(template, forms)
		if err != nil {
			httpx.WriteError(w, "stats.aggregate", err)
			return
		}

		render.JSON(w, r, report)
	}
}
