package email

import (
	"fmt"
	"io"
	"time"
)

// PreviewData holds sample data for each template, used by the
// preview-email command.
var PreviewData = map[Template]any{
	TemplateContactAlert: ContactAlert{
		Name:       "John Doe",
		Email:      "john@example.com",
		Mobile:     "+1 555 0100",
		Message:    "Hi! I saw your portfolio and would love to talk about a project.",
		ReceivedAt: time.Date(2024, time.March, 14, 9, 30, 0, 0, time.UTC),
	},
}

// RenderPreview writes the chosen variant ("html" or "text") of name
// rendered with its preview data.
func RenderPreview(w io.Writer, name Template, variant string) error {
	data, ok := PreviewData[name]
	if !ok {
		return fmt.Errorf("no preview data for template %q", name)
	}

	html, text, err := Render(name, data)
	if err != nil {
		return err
	}

	switch variant {
	case "html":
		_, err = io.WriteString(w, html)
	case "text", "":
		_, err = io.WriteString(w, text)
	default:
		return fmt.Errorf("unknown variant %q (want html or text)", variant)
	}
	return err
}
