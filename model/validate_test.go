package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orifhon74/customizable-forms/model"
)

func TestTemplateValidate(t *testing.T) {
	valid := model.Template{
		Title:      "Customer satisfaction",
		Visibility: model.VisibilityPublic,
		Slots: map[string]model.Slot{
			"int1": {Enabled: true},
		},
	}
	assert.NoError(t, valid.Validate())

	empty := valid
	empty.Title = "  "
	requireValidationError(t, empty.Validate())

	badVisibility := valid
	badVisibility.Visibility = "unlisted"
	requireValidationError(t, badVisibility.Validate())

	badSlot := valid
	badSlot.Slots = map[string]model.Slot{"int9": {Enabled: true}}
	requireValidationError(t, badSlot.Validate())
}

func TestTemplatePatchValidate(t *testing.T) {
	title := "New title"
	visibility := model.VisibilityPrivate
	ok := model.TemplatePatch{
		Title:      &title,
		Visibility: &visibility,
		Slots:      map[string]model.SlotPatch{"checkbox2": {}},
	}
	assert.NoError(t, ok.Validate())

	blank := ""
	requireValidationError(t, model.TemplatePatch{Title: &blank}.Validate())

	bad := model.Visibility("hidden")
	requireValidationError(t, model.TemplatePatch{Visibility: &bad}.Validate())

	requireValidationError(t, model.TemplatePatch{
		Slots: map[string]model.SlotPatch{"bogus1": {}},
	}.Validate())
}

func TestValidateAnswers(t *testing.T) {
	assert.NoError(t, model.ValidateAnswers(nil))
	assert.NoError(t, model.ValidateAnswers(map[string]any{
		"string1":   "hello",
		"text3":     "multi\nline",
		"int2":      float64(42),
		"int3":      "17", // numeric strings pass
		"checkbox4": true,
		"string2":   nil, // nulls always pass
	}))

	requireValidationError(t, model.ValidateAnswers(map[string]any{"wat1": "x"}))
	requireValidationError(t, model.ValidateAnswers(map[string]any{"int1": "not a number"}))
	requireValidationError(t, model.ValidateAnswers(map[string]any{"int1": true}))
	requireValidationError(t, model.ValidateAnswers(map[string]any{"string1": float64(3)}))
	requireValidationError(t, model.ValidateAnswers(map[string]any{"checkbox1": "true"}))
}

func TestNumericValue(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want float64
	}{
		{float64(2.5), 2.5},
		{int(7), 7},
		{int64(-3), -3},
		{"42", 42},
		{" 6 ", 6},
		{"-1.5", -1.5},
	} {
		got, ok := model.NumericValue(tc.in)
		require.True(t, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, in := range []any{nil, "", "  ", "abc", "12x", true, false, []any{1}} {
		_, ok := model.NumericValue(in)
		assert.False(t, ok, in)
	}
}

func TestIdentityCanManage(t *testing.T) {
	owner := model.Identity{UserID: 3}
	assert.True(t, owner.CanManage(3))
	assert.False(t, owner.CanManage(4))

	admin := model.Identity{UserID: 9, Admin: true}
	assert.True(t, admin.CanManage(3))
}

func requireValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var validation *model.ValidationError
	require.ErrorAs(t, err, &validation)
}
