package report

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"erpharvest/services/harvest/batch"
	"erpharvest/services/harvest/metadata"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("harvest/report")

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

// Notifier emails the run summary once a harvest finishes. A zero
// Server disables it.
type Notifier struct {
	config SmtpConfig
}

func NewNotifier(config SmtpConfig) *Notifier {
	return &Notifier{config: config}
}

func (n *Notifier) Enabled() bool {
	return n.config.Server != "" && len(n.config.Recipients) > 0
}

func (n *Notifier) SendSummary(ctx context.Context, result *batch.Result, downloads metadata.DownloadStats) error {
	_, span := tracer.Start(ctx, "notify:SendSummary")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("ERP Harvest <%s>", n.config.EmailAddress)
	mail.To = n.config.Recipients
	mail.Subject = fmt.Sprintf("Harvest finished: %d/%d %ss succeeded",
		result.Stats.Succeeded, result.Stats.Total, result.Kind.String())

	var body strings.Builder
	Summary(&body, result, downloads)
	mail.Text = []byte(body.String())

	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)
	err := mail.Send(addr,
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send summary email")
		return err
	}
	return nil
}
