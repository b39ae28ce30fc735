package main

import (
	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/spf13/cobra"
)

func newPreviewEmailCmd() *cobra.Command {
	var (
		template string
		variant  string
	)

	cmd := &cobra.Command{
		Use:   "preview-email",
		Short: "Render an email template with sample data to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return email.RenderPreview(cmd.OutOrStdout(), email.Template(template), variant)
		},
	}

	cmd.Flags().StringVar(&template, "template", string(email.TemplateContactAlert), "template name")
	cmd.Flags().StringVar(&variant, "format", "html", "html or text")
	return cmd
}
