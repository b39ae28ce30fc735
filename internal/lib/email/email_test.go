package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	sent []Message
	err  error
}

func (r *recordingTransport) Name() string { return "fake" }

func (r *recordingTransport) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestSendContactAlert(t *testing.T) {
	transport := &recordingTransport{}
	client := NewClientWithTransport(transport, "Portfolio", "owner@example.com", testLogger())

	err := client.SendContactAlert(context.Background(), ContactAlert{
		Name:    "Ada",
		Email:   "ada@example.com",
		Mobile:  "555-0100",
		Message: "Hello <there>",
	})

	require.NoError(t, err)
	require.Len(t, transport.sent, 1)
	msg := transport.sent[0]
	assert.Equal(t, `"Portfolio" <owner@example.com>`, msg.From)
	assert.Equal(t, []string{"owner@example.com"}, msg.To)
	assert.Equal(t, "ada@example.com", msg.ReplyTo)
	assert.Equal(t, "Portfolio: Message from Ada", msg.Subject)
	assert.Equal(t, "Name: Ada\nEmail: ada@example.com\nMobile: 555-0100\nMessage: Hello <there>\n", msg.Text)
	assert.Contains(t, msg.HTML, "Hello &lt;there&gt;")
}

func TestSendContactAlert_MissingMobile(t *testing.T) {
	transport := &recordingTransport{}
	client := NewClientWithTransport(transport, "", "owner@example.com", testLogger())

	require.NoError(t, client.SendContactAlert(context.Background(), ContactAlert{Name: "Ada", Email: "a@x", Message: "hi"}))

	assert.Equal(t, "owner@example.com", transport.sent[0].From)
	assert.Contains(t, transport.sent[0].Text, "Mobile: not provided")
}

func TestSendContactAlert_TransportError(t *testing.T) {
	transport := &recordingTransport{err: errors.New("535 bad credentials")}
	client := NewClientWithTransport(transport, "Portfolio", "owner@example.com", testLogger())

	err := client.Dispatch(context.Background(), ContactAlert{Name: "Ada", Email: "a@x", Message: "hi"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "via fake")
	assert.Contains(t, err.Error(), "535 bad credentials")
}

func TestNewClient_ProviderSelection(t *testing.T) {
	cfg := config.Default()
	assert.False(t, NewClient(cfg, testLogger()).Enabled())
	assert.Equal(t, "none", NewClient(cfg, testLogger()).Transport())
	assert.ErrorIs(t, NewClient(cfg, testLogger()).SendContactAlert(context.Background(), ContactAlert{}), ErrDisabled)

	cfg.Email.Username = "me@gmail.com"
	cfg.Email.Password = "app-password"
	assert.Equal(t, "smtp", NewClient(cfg, testLogger()).Transport())

	cfg.Email.ResendAPIKey = "re_123"
	assert.Equal(t, "resend", NewClient(cfg, testLogger()).Transport())
}

func TestBuildMIME(t *testing.T) {
	msg := Message{
		From:    `"Portfolio" <owner@example.com>`,
		To:      []string{"owner@example.com"},
		ReplyTo: "ada@example.com",
		Subject: "Portfolio: Message from Zoë",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	}

	raw, err := buildMIME(msg, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, msg.Subject, subject)
	assert.Equal(t, "ada@example.com", parsed.Header.Get("Reply-To"))

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	reader := multipart.NewReader(parsed.Body, params["boundary"])
	var types []string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		types = append(types, strings.SplitN(part.Header.Get("Content-Type"), ";", 2)[0])
	}
	assert.Equal(t, []string{"text/plain", "text/html"}, types)
}

func TestBuildMIME_RejectsHeaderLineBreaks(t *testing.T) {
	for name, msg := range map[string]Message{
		"reply-to": {
			From:    "owner@example.com",
			To:      []string{"owner@example.com"},
			ReplyTo: "a@x.com\r\nBcc: victim@evil.com\r\nX-Injected: yes",
		},
		"to": {
			From: "owner@example.com",
			To:   []string{"owner@example.com\nBcc: victim@evil.com"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			raw, err := buildMIME(msg, time.Now())

			require.Error(t, err)
			assert.NotContains(t, string(raw), "Bcc:")
		})
	}
}

func TestSendContactAlert_ReplyToIsSanitized(t *testing.T) {
	for email, want := range map[string]string{
		"a@x.com\r\nBcc: victim@evil.com\r\nX-Injected: yes": "",
		"not an address":                 "",
		"Ada Lovelace <ada@example.com>": "ada@example.com",
	} {
		t.Run(email, func(t *testing.T) {
			transport := &recordingTransport{}
			client := NewClientWithTransport(transport, "", "owner@example.com", testLogger())

			err := client.SendContactAlert(context.Background(), ContactAlert{Name: "Ada", Email: email, Message: "hi"})

			require.NoError(t, err)
			require.Len(t, transport.sent, 1)
			assert.Equal(t, want, transport.sent[0].ReplyTo)

			_, err = buildMIME(transport.sent[0], time.Now())
			assert.NoError(t, err)
		})
	}
}

func TestEnvelopeAddress(t *testing.T) {
	addr, err := envelopeAddress(`"Portfolio" <owner@example.com>`)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", addr)

	_, err = envelopeAddress("not an address")
	assert.Error(t, err)
}

func TestRenderPreview(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPreview(&buf, TemplateContactAlert, "text"))
	assert.Contains(t, buf.String(), "Name: John Doe")

	buf.Reset()
	require.NoError(t, RenderPreview(&buf, TemplateContactAlert, "html"))
	assert.Contains(t, buf.String(), "<html")
	assert.Contains(t, buf.String(), "Received 2024-03-14")

	assert.Error(t, RenderPreview(&buf, "missing", "text"))
	assert.Error(t, RenderPreview(&buf, TemplateContactAlert, "pdf"))
}
