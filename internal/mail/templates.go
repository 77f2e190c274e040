package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = map[string]*template.Template{}

func init() {
	for _, name := range []string{"generic", "welcome", "otp", "task_assigned"} {
		templates[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
}

func render(name string, data map[string]any) (string, error) {
	t, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown mail template %q", name)
	}
	data["Year"] = time.Now().Year()

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("failed to render %s mail: %w", name, err)
	}
	return buf.String(), nil
}

// Generic wraps caller supplied HTML with the standard footer. Empty
// subject and text fall back to defaults.
func Generic(to, subject, text, html string) (Message, error) {
	if subject == "" {
		subject = "Default Subject"
	}
	if text == "" {
		text = "Default text"
	}
	// Trusted: only authenticated users reach the generic mail endpoint.
	body, err := render("generic", map[string]any{"HTML": template.HTML(html)})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, Text: text, HTML: body}, nil
}

func Welcome(to, name string) (Message, error) {
	body, err := render("welcome", map[string]any{"Name": name, "Email": to})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Welcome to Plan-X",
		Text:    fmt.Sprintf("Hi %s, your Plan-X account is ready.", name),
		HTML:    body,
	}, nil
}

func OTP(to, otp string, validFor time.Duration) (Message, error) {
	body, err := render("otp", map[string]any{"OTP": otp, "ValidFor": humanDuration(validFor)})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Reset Your Password - OTP Inside",
		Text:    "You have received an OTP after clicking 'Forgot Password'. Use this OTP to reset your password.",
		HTML:    body,
	}, nil
}

// TaskAssigned tells a user about a task assigned to them
func TaskAssigned(to, name, assignedBy, displayID, taskName string, due *time.Time) (Message, error) {
	data := map[string]any{
		"Name":       name,
		"AssignedBy": assignedBy,
		"TaskID":     displayID,
		"TaskName":   taskName,
		"DueDate":    "",
	}
	if due != nil {
		data["DueDate"] = due.Format("Jan 2, 2006")
	}
	body, err := render("task_assigned", data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] %s", displayID, taskName),
		Text:    fmt.Sprintf("%s assigned you %s: %s", assignedBy, displayID, taskName),
		HTML:    body,
	}, nil
}

func humanDuration(d time.Duration) string {
	if m := int(d.Minutes()); m > 0 && d%time.Minute == 0 {
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
