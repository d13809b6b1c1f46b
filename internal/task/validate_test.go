package task

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/model"
)

var validateNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestValidate_SanitizesAndDefaults(t *testing.T) {
	res := Validate(Input{
		Title:       "  pick up eggs  ",
		Description: " from the store ",
	}, validateNow)

	require.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "pick up eggs", res.Sanitized.Title)
	assert.Equal(t, "from the store", res.Sanitized.Description)
	assert.Equal(t, model.PriorityMedium, res.Sanitized.Priority, "priority defaults to medium")
	assert.Nil(t, res.Sanitized.DueDate)
}

func TestValidate_TitleRequired(t *testing.T) {
	res := Validate(Input{Title: "   "}, validateNow)

	require.False(t, res.Valid)
	assert.Contains(t, res.Errors, "title is required")
}

func TestValidate_TitleTooLong(t *testing.T) {
	res := Validate(Input{Title: strings.Repeat("x", 101)}, validateNow)

	require.False(t, res.Valid)
	assert.Contains(t, res.Errors, "title must be 100 characters or fewer")

	res = Validate(Input{Title: strings.Repeat("x", 100)}, validateNow)
	assert.True(t, res.Valid, "exactly 100 characters is allowed")
}

func TestValidate_DescriptionTooLong(t *testing.T) {
	res := Validate(Input{
		Title:       "ok",
		Description: strings.Repeat("d", 501),
	}, validateNow)

	require.False(t, res.Valid)
	assert.Contains(t, res.Errors, "description must be 500 characters or fewer")
}

func TestValidate_Priority(t *testing.T) {
	res := Validate(Input{Title: "ok", Priority: "HIGH"}, validateNow)
	require.True(t, res.Valid)
	assert.Equal(t, model.PriorityHigh, res.Sanitized.Priority)

	res = Validate(Input{Title: "ok", Priority: "critical"}, validateNow)
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors, "priority must be one of high, medium, low")
}

func TestValidate_DueDate(t *testing.T) {
	res := Validate(Input{Title: "ok", DueDate: "2026-03-02"}, validateNow)
	require.True(t, res.Valid)
	require.NotNil(t, res.Sanitized.DueDate)
	assert.Equal(t, "2026-03-02", *res.Sanitized.DueDate)

	res = Validate(Input{Title: "ok", DueDate: "2026-03-01"}, validateNow)
	assert.True(t, res.Valid, "today is not in the past")

	res = Validate(Input{Title: "ok", DueDate: "2026-02-28"}, validateNow)
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors, "due date must not be in the past")

	res = Validate(Input{Title: "ok", DueDate: "not-a-date"}, validateNow)
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors, "due date must be a valid date in YYYY-MM-DD format")
}

func TestValidate_ErrorsAccumulateInFieldOrder(t *testing.T) {
	res := Validate(Input{
		Title:       "",
		Description: strings.Repeat("d", 501),
		Priority:    "bogus",
		DueDate:     "bogus",
	}, validateNow)

	require.False(t, res.Valid)
	assert.Equal(t, []string{
		"title is required",
		"description must be 500 characters or fewer",
		"priority must be one of high, medium, low",
		"due date must be a valid date in YYYY-MM-DD format",
	}, res.Errors)
}

func TestValidateUpdate_OnlyChecksPresentFields(t *testing.T) {
	p := "low"
	res := ValidateUpdate(Patch{Priority: &p}, validateNow)

	require.True(t, res.Valid)
	assert.Equal(t, model.PriorityLow, res.Sanitized.Priority)
}

func TestValidateUpdate_RejectsBadFields(t *testing.T) {
	bad := "critical"
	res := ValidateUpdate(Patch{Priority: &bad}, validateNow)

	require.False(t, res.Valid)
	assert.Contains(t, res.Errors, "priority must be one of high, medium, low")
}

func TestValidateUpdate_EmptyDueDateClears(t *testing.T) {
	empty := ""
	res := ValidateUpdate(Patch{DueDate: &empty}, validateNow)

	require.True(t, res.Valid)
	assert.Nil(t, res.Sanitized.DueDate)
}
