package service

import (
	"strings"

	"github.com/denportal/wagate/internal/models"
)

// Notification templates use five placeholders: {student_name},
// {father_name}, {date_time}, {class_name}, {school_name}. Unknown
// placeholders pass through verbatim.

var defaultTemplates = map[models.TemplateKind]string{
	models.TemplateArrival: "Dear {father_name}, your child {student_name} of {class_name} " +
		"has arrived at {school_name} at {date_time}.",
	models.TemplateDeparture: "Dear {father_name}, your child {student_name} of {class_name} " +
		"has left {school_name} at {date_time}.",
}

// TemplateFields are the values substituted into a notification template.
type TemplateFields struct {
	StudentName  string
	GuardianName string
	Time         string
	ClassName    string
	TenantName   string
}

func RenderTemplate(body string, f TemplateFields) string {
	return strings.NewReplacer(
		"{student_name}", f.StudentName,
		"{father_name}", f.GuardianName,
		"{date_time}", f.Time,
		"{class_name}", f.ClassName,
		"{school_name}", f.TenantName,
	).Replace(body)
}

// selectTemplateBody prefers the tenant's custom template of the wanted
// kind and falls back to the built-in default.
func selectTemplateBody(templates []models.MessageTemplate, kind models.TemplateKind) string {
	for _, t := range templates {
		if t.Kind == kind && t.Body != "" {
			return t.Body
		}
	}
	return defaultTemplates[kind]
}
