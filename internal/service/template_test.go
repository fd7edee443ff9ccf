package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/denportal/wagate/internal/models"
)

func TestRenderTemplate(t *testing.T) {
	body := "Dear {father_name}, {student_name} ({class_name}) reached {school_name} at {date_time}."
	got := RenderTemplate(body, TemplateFields{
		StudentName:  "Asha",
		GuardianName: "Mr. Rao",
		Time:         "7:53 AM",
		ClassName:    "Grade 4B",
		TenantName:   "Green Valley",
	})
	require.Equal(t, "Dear Mr. Rao, Asha (Grade 4B) reached Green Valley at 7:53 AM.", got)
}

func TestRenderTemplateLeavesUnknownPlaceholders(t *testing.T) {
	got := RenderTemplate("hi {student_name} {unknown}", TemplateFields{StudentName: "Asha"})
	require.Equal(t, "hi Asha {unknown}", got)
}

func TestSelectTemplateBody(t *testing.T) {
	custom := []models.MessageTemplate{
		{Kind: models.TemplateArrival, Body: "arrived: {student_name}"},
		{Kind: models.TemplateDeparture, Body: ""},
	}

	require.Equal(t, "arrived: {student_name}", selectTemplateBody(custom, models.TemplateArrival))
	// empty custom body falls back to the default
	require.Equal(t, defaultTemplates[models.TemplateDeparture], selectTemplateBody(custom, models.TemplateDeparture))
	require.Equal(t, defaultTemplates[models.TemplateArrival], selectTemplateBody(nil, models.TemplateArrival))
}
