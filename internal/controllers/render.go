package controllers

import (
	"embed"
	"html/template"

	"github.com/drstein77/cartwidget/internal/cart"
	"github.com/gorilla/sessions"
)

//go:embed templates/*.html
var templateFiles embed.FS

const flashKey = "notifications"

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(templateFiles, "templates/*.html")
}

// viewRecorder is the render target for one request.
type viewRecorder struct {
	view cart.View
}

func (v *viewRecorder) Render(view cart.View) {
	v.view = view
}

// flashNotifier queues notifications on the session; the next page load shows them.
type flashNotifier struct {
	session *sessions.Session
}

func (f *flashNotifier) Notify(message string) {
	f.session.AddFlash(message, flashKey)
}

// inlineNotifier collects notifications for the JSON response.
type inlineNotifier struct {
	messages []string
}

func (n *inlineNotifier) Notify(message string) {
	n.messages = append(n.messages, message)
}

func takeFlashes(s *sessions.Session) []string {
	var out []string
	for _, f := range s.Flashes(flashKey) {
		if msg, ok := f.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}
