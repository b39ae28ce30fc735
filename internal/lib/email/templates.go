package email

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/pkg/errors"
)

// Template names an email layout. Each has an .html and a .txt file under
// templates/.
type Template string

const (
	// TemplateContactAlert is the owner alert for a new submission.
	TemplateContactAlert Template = "contact_alert"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

// Render executes both variants of name with data.
func Render(name Template, data any) (html, text string, err error) {
	var htmlBody bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&htmlBody, string(name)+".html", data); err != nil {
		return "", "", errors.Wrapf(err, "failed to execute email template %s.html", name)
	}

	var textBody bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&textBody, string(name)+".txt", data); err != nil {
		return "", "", errors.Wrapf(err, "failed to execute email template %s.txt", name)
	}

	return htmlBody.String(), textBody.String(), nil
}
