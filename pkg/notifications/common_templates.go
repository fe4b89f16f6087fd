package notifications

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/nicholas-fedor/tagwatch/pkg/notifications/templates"
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

var commonTemplates = map[string]string{
	"title": `
{{- .Product}}: {{.Image}}
{{- if eq .Kind "image_rebuilt"}} rebuilt
{{- else if eq .Kind "no_update"}} up to date
{{- else}} update available
{{- end -}}`,

	"message": `
{{- if eq .Kind "image_rebuilt" -}}
  {{.NewVersion}} was rebuilt under the same tag (new digest).
{{- else if eq .Kind "no_update" -}}
  {{.BaseTag}} is unchanged.
{{- else -}}
  {{.OldVersion}} → {{.NewVersion}}
  {{- if .AutoUpdate}} (auto-update applied){{end}}
{{- end -}}`,
}

var compiledTemplates = func() map[string]*template.Template {
	compiled := make(map[string]*template.Template, len(commonTemplates))
	for name, text := range commonTemplates {
		compiled[name] = template.Must(template.New(name).Funcs(templates.Funcs).Parse(text))
	}

	return compiled
}()

// Title returns the notification title for event.
func Title(event types.Event) string {
	return mustRender("title", event)
}

// Message returns the plain text notification body for event.
func Message(event types.Event) string {
	return mustRender("message", event)
}

func mustRender(name string, event types.Event) string {
	var body bytes.Buffer

	if err := compiledTemplates[name].Execute(&body, newData(event)); err != nil {
		LocalLog.WithError(err).WithField("template", name).Warn("Failed to render notification template")

		return fmt.Sprintf("%s: %s %s", Product, event.Image, event.Kind)
	}

	return body.String()
}
