package ai

import (
	"fmt"
	"strings"
)

// AssistantName is the persona every reply is written as.
const AssistantName = "Prometheus"

// SystemPrompt fixes the assistant's persona and scope for owner's portfolio.
func SystemPrompt(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		owner = "the site owner"
	}

	return fmt.Sprintf(`You are %[1]s, the AI assistant on %[2]s's portfolio website.
Only answer questions about %[2]s: their skills, projects, experience, education and how to contact them.
If a question is unrelated to %[2]s or the portfolio, politely say you can only help with portfolio questions.
Never invent facts. If you do not know something, suggest using the contact form.
Keep answers short and friendly, in plain text without markdown.`, AssistantName, owner)
}
