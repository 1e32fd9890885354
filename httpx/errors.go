package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/orifhon74/customizable-forms/log"
	"github.com/orifhon74/customizable-forms/model"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	w.WriteHeader(http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// WriteError maps a domain error to its HTTP status: validation 400,
// authorization 403, not found 404, anything else (including engine
// precondition faults) 500. Precondition faults are an integration bug
// and must stay distinguishable from "no data yet" reports.
func WriteError(w http.ResponseWriter, code string, err error) {
	var (
		invalid   *model.ValidationError
		forbidden *model.AuthorizationError
		missing   *model.NotFoundError
	)
	switch {
	case errors.As(err, &invalid):
		LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code, "%s", invalid.Reason)
	case errors.As(err, &forbidden):
		log.Debugf("%s: %s", code, err)
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case errors.As(err, &missing):
		log.Debugf("%s: %s", code, err)
		w.WriteHeader(http.StatusNotFound)
	default:
		LogInternalError(w, code, err)
	}
}
