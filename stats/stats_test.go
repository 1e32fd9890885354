package stats_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orifhon74/customizable-forms/model"
	"github.com/orifhon74/customizable-forms/stats"
)

// tmpl builds a template with the given slots enabled; all others are
// disabled.
func tmpl(id int, enabled ...string) model.Template {
	t := model.Template{
		ID:         id,
		Title:      "t",
		Visibility: model.VisibilityPublic,
		Slots:      map[string]model.Slot{},
	}
	for _, slotId := range enabled {
		t.Slots[slotId] = model.Slot{Enabled: true}
	}
	return t
}

func forms(templateId int, answers ...map[string]any) []model.Form {
	fs := make([]model.Form, len(answers))
	for i, a := range answers {
		fs[i] = model.Form{ID: i + 1, TemplateID: templateId, UserID: 100 + i, Answers: a}
	}
	return fs
}

func TestAggregateEmpty(t *testing.T) {
	template := tmpl(1, "int1", "string1", "checkbox1", "text1")

	report, err := stats.Aggregate(template, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalForms)
	require.Contains(t, report.Averages, "int1")
	assert.Nil(t, report.Averages["int1"])
	require.Contains(t, report.CommonStrings, "string1")
	assert.Nil(t, report.CommonStrings["string1"])
	assert.Equal(t, stats.BoolCount{}, report.CheckboxStats["checkbox1"])

	// only enabled slots appear, and text slots have no aggregate at all
	assert.Len(t, report.Averages, 1)
	assert.Len(t, report.CommonStrings, 1)
	assert.Len(t, report.CheckboxStats, 1)
}

func TestAggregateAverageSkipsInvalid(t *testing.T) {
	template := tmpl(1, "int1")
	fs := forms(1,
		map[string]any{"int1": float64(5)},
		map[string]any{"int1": nil},
		map[string]any{"int1": "abc"},
		map[string]any{"int1": float64(7)},
	)

	report, err := stats.Aggregate(template, fs)
	require.NoError(t, err)

	// two valid values: mean is 6, not 4, and "abc" is not an error
	require.NotNil(t, report.Averages["int1"])
	assert.Equal(t, 6.0, *report.Averages["int1"])
	assert.Equal(t, 4, report.TotalForms)
}

func TestAggregateAverageNumericStrings(t *testing.T) {
	template := tmpl(1, "int2")
	fs := forms(1,
		map[string]any{"int2": "4"},
		map[string]any{"int2": ""},
		map[string]any{"int2": float64(8)},
	)

	report, err := stats.Aggregate(template, fs)
	require.NoError(t, err)
	require.NotNil(t, report.Averages["int2"])
	assert.Equal(t, 6.0, *report.Averages["int2"])
}

func TestAggregateAverageNoValidValues(t *testing.T) {
	template := tmpl(1, "int1")
	fs := forms(1,
		map[string]any{"int1": nil},
		map[string]any{"int1": "not a number"},
		map[string]any{},
	)

	report, err := stats.Aggregate(template, fs)
	require.NoError(t, err)

	// nil, never NaN and never zero
	require.Contains(t, report.Averages, "int1")
	assert.Nil(t, report.Averages["int1"])
	assert.Equal(t, 3, report.TotalForms)
}

func TestAggregateMostCommonString(t *testing.T) {
	template := tmpl(1, "string1")
	fs := forms(1,
		map[string]any{"string1": "blue"},
		map[string]any{"string1": "red"},
		map[string]any{"string1": "red"},
		map[string]any{"string1": "blue"},
		map[string]any{"string1": "red"},
	)

	report, err := stats.Aggregate(template, fs)
	require.NoError(t, err)
	require.NotNil(t, report.CommonStrings["string1"])
	assert.Equal(t, "red", *report.CommonStrings["string1"])
}

func TestAggregateStringTieBreaksOnFormOrder(t *testing.T) {
	template := tmpl(1, "string1")
	fs := forms(1,
		map[string]any{"string1": "red"},
		map[string]any{"string1": "blue"},
		map[string]any{"string1": "red"},
		map[string]any{"string1": "blue"},
	)

	report, err := stats.Aggregate(template, fs)
	require.NoError(t, err)
	require.NotNil(t, report.CommonStrings["string1"])
	assert.Equal(t, "red", *report.CommonStrings["string1"])
}

func TestAggregateStringCaseSensitive(t *testing.T) {
	template := tmpl(1, "string1")
	fs := forms(1,
		map[string]any{"string1": "Red"},
		map[string]any{"string1": "red"},
		map[string]any{"string1": "red"},
	)

	report, err := stats.Aggregate(template, fs)
	require.NoError(t, err)
	assert.Equal(t, "red", *report.CommonStrings["string1"])
}

func TestAggregateStringIgnoresEmpty(t *testing.T) {
	template := tmpl(1, "string1")
	fs := forms(1,
		map[string]any{"string1": ""},
		map[string]any{"string1": nil},
		map[string]any{},
	)

	report, err := stats.Aggregate(template, fs)
	require.NoError(t, err)
	require.Contains(t, report.CommonStrings, "string1")
	assert.Nil(t, report.CommonStrings["string1"])
}

func TestAggregateCheckboxCountsAreIndependent(t *testing.T) {
	template := tmpl(1, "checkbox1")
	fs := forms(1,
		map[string]any{"checkbox1": true},
		map[string]any{"checkbox1": false},
		map[string]any{"checkbox1": nil},
		map[string]any{"checkbox1": true},
	)

	report, err := stats.Aggregate(template, fs)
	require.NoError(t, err)
	assert.Equal(t, stats.BoolCount{True: 2, False: 1}, report.CheckboxStats["checkbox1"])
	// counts deliberately do not add up to the form total
	assert.Equal(t, 4, report.TotalForms)
}

func TestAggregateSkipsDisabledSlots(t *testing.T) {
	template := tmpl(1, "int1")
	fs := forms(1,
		map[string]any{"int1": float64(3), "int2": float64(9), "string1": "stray", "checkbox1": true},
	)

	report, err := stats.Aggregate(template, fs)
	require.NoError(t, err)

	// stray data for disabled slots must not leak into the report
	assert.NotContains(t, report.Averages, "int2")
	assert.NotContains(t, report.CommonStrings, "string1")
	assert.NotContains(t, report.CheckboxStats, "checkbox1")
	require.NotNil(t, report.Averages["int1"])
	assert.Equal(t, 3.0, *report.Averages["int1"])
}

func TestAggregateTotalCountsAllForms(t *testing.T) {
	template := tmpl(1, "int1")
	fs := forms(1,
		map[string]any{},
		map[string]any{"int1": nil},
		map[string]any{"int1": float64(1)},
	)

	report, err := stats.Aggregate(template, fs)
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalForms)
}

func TestAggregateIdempotent(t *testing.T) {
	template := tmpl(1, "int1", "string1", "string2", "checkbox1")
	fs := forms(1,
		map[string]any{"int1": float64(2), "string1": "a", "checkbox1": true},
		map[string]any{"int1": "3", "string1": "b", "string2": "x", "checkbox1": false},
		map[string]any{"int1": float64(4), "string1": "a"},
	)

	first, err := stats.Aggregate(template, fs)
	require.NoError(t, err)
	second, err := stats.Aggregate(template, fs)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	firstJson, err := json.Marshal(first)
	require.NoError(t, err)
	secondJson, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJson, secondJson)
}

func TestAggregateRejectsForeignForms(t *testing.T) {
	template := tmpl(1, "int1")
	fs := forms(1, map[string]any{"int1": float64(1)})
	fs = append(fs, model.Form{ID: 99, TemplateID: 2, Answers: map[string]any{"int1": float64(5)}})

	_, err := stats.Aggregate(template, fs)
	require.Error(t, err)

	var precondition *model.PreconditionError
	assert.ErrorAs(t, err, &precondition)
}
