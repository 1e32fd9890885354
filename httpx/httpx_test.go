package httpx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orifhon74/customizable-forms/httpx"
	"github.com/orifhon74/customizable-forms/model"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status int
	}{
		{model.Invalidf("empty title"), http.StatusBadRequest},
		{model.Forbiddenf("not the owner"), http.StatusForbidden},
		{model.NotFound("template", 42), http.StatusNotFound},
		{model.Preconditionf("foreign form"), http.StatusInternalServerError},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	} {
		w := httptest.NewRecorder()
		httpx.WriteError(w, "test", tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

func TestResponseBuffer(t *testing.T) {
	buf := httpx.NewResponseBuffer()
	buf.Header().Set("content-type", "application/json")
	buf.WriteHeader(http.StatusTeapot)
	_, err := buf.Write([]byte(`{"ok":false}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, buf.Status())
	assert.Equal(t, `{"ok":false}`, string(buf.Body()))

	w := httptest.NewRecorder()
	require.NoError(t, buf.Flush(w))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("content-type"))
	assert.Equal(t, `{"ok":false}`, w.Body.String())
}
