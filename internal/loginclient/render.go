package loginclient

import (
	"io"
	"text/template"

	"pkce-relay/internal/models"
)

var viewTemplate = template.Must(template.New("view").Parse(
	`{{- if .Profile -}}
Signed in as {{ .Profile.DisplayName }}{{ with .Profile.Email }} <{{ . }}>{{ end }}
{{- else if .Failed -}}
Login failed. Sign in again: {{ .LoginURL }}
{{- else -}}
Not signed in. Sign in: {{ .LoginURL }}
{{- end }}
`))

type view struct {
	Profile  *models.Profile
	Failed   bool
	LoginURL string
}

// Render writes the user-facing view for the client's current state. The
// login affordance is shown whenever no profile is available.
func (c *Client) Render(w io.Writer) error {
	profile, _ := c.Profile()
	state := c.State()

	v := view{
		Failed:   state == StateFailed,
		LoginURL: c.LoginURL(),
	}
	if state == StateAuthenticated {
		v.Profile = profile
	}

	return viewTemplate.Execute(w, v)
}
