package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/orifhon74/customizable-forms/config"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
}
