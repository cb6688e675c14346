// Package mail is the outbound notification boundary. The auth service only
// sees the Sender interface; delivery transport is picked by configuration.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"
)

type ActivationMail struct {
	To        string
	Name      string
	Code      string
	ExpiresIn time.Duration
}

type Sender interface {
	SendActivation(ctx context.Context, m ActivationMail) error
}

var activationTemplate = template.Must(template.New("activation").Parse(`<html>
<body>
<p>Hi {{.Name}},</p>
<p>Your Soukly activation code is <strong>{{.Code}}</strong>.</p>
<p>The code expires in {{.ExpiresIn}}. If you did not request an account, ignore this email.</p>
</body>
</html>`))

func renderActivation(m ActivationMail) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := activationTemplate.Execute(&buf, m); err != nil {
		return "", "", fmt.Errorf("render activation mail: %w", err)
	}
	return "Activate your Soukly account", buf.String(), nil
}

// LogSender is the development transport: it logs the code instead of
// dispatching an email.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendActivation(ctx context.Context, m ActivationMail) error {
	s.logger.InfoContext(ctx, "activation code issued",
		"email", m.To,
		"name", m.Name,
		"code", m.Code,
		"expires_in", m.ExpiresIn,
	)
	return nil
}
