// Package lib groups integrations that do not belong to a single layer:
// email delivery, the Asynq job queue, the notifier, the Gemini chat client
// and small shared helpers.
package lib
