package routes

import (
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"github.com/orifhon74/customizable-forms/app"
	"github.com/orifhon74/customizable-forms/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/register", Register(app))
	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	api.Group(func(r chi.Router) {
		r.Use(middlewares.Authenticated(app.Config))

		// CRUD templates
		r.Post("/templates", CreateTemplate(app))
		r.Get("/templates", ListTemplates(app))
		r.Get(`/templates/{id:^\d+$}`, GetTemplateById(app))
		r.Put(`/templates/{id:^\d+$}`, UpdateTemplate(app))
		r.Delete(`/templates/{id:^\d+$}`, DeleteTemplate(app))

		// form submissions
		r.Post(`/templates/{id:^\d+$}/forms`, SubmitForm(app))
		r.Get(`/templates/{id:^\d+$}/forms`, ListTemplateForms(app))
		r.Get(`/forms/{id:^\d+$}`, GetFormById(app))
		r.Put(`/forms/{id:^\d+$}`, UpdateForm(app))
		r.Delete(`/forms/{id:^\d+$}`, DeleteForm(app))

		// aggregate statistics
		r.Get(`/templates/{id:^\d+$}/stats`, TemplateStats(app))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middlewares.Admin)

			r.Get("/users", ListUsers(app))
			r.Post(`/templates/{id:^\d+$}/restore`, RestoreTemplate(app))
			r.Post(`/forms/{id:^\d+$}/restore`, RestoreForm(app))
		})
	})

	return api
}
