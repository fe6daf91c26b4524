// Package alerts implements the alerting loop of spec.md §4.7: scans the
// catalog for ERROR-status rows that have not yet been alerted, renders a
// message from a template, sends it over SMTP, and ACKs the row so it is
// not re-delivered on the next scan.
package alerts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"text/template"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/logging"
)

// SMTPConfig is the subset of internal/config.SMTPConfig the alerts loop
// needs, kept local to avoid an import-cycle-prone dependency on the whole
// config package.
type SMTPConfig struct {
	Server             string
	Port               int
	SSL                bool
	User               string
	Password           string
	FromAddress        string
	AlertsTemplatePath string
}

// Loop is the suture.Service implementation of the alerting daemon.
type Loop struct {
	store       *catalog.Store
	interval    time.Duration
	smtp        SMTPConfig
	toAddresses []string
	tmpl        *template.Template
}

// New builds a Loop. toAddresses is the fixed operator recipient list (the
// original's pgbackman_alerts_to config value); alertsTemplatePath, if
// empty, falls back to a built-in minimal template.
func New(store *catalog.Store, interval time.Duration, smtp SMTPConfig, toAddresses []string) (*Loop, error) {
	tmpl, err := loadTemplate(smtp.AlertsTemplatePath)
	if err != nil {
		return nil, err
	}
	return &Loop{store: store, interval: interval, smtp: smtp, toAddresses: toAddresses, tmpl: tmpl}, nil
}

const defaultTemplate = `PgBackMan alert

Entity: {{.Kind}} #{{.ID}}
Status: {{.Status}}
Return code: {{.ReturnCode}}
Finished: {{.Finished}}

{{.ErrorMsg}}
`

func loadTemplate(path string) (*template.Template, error) {
	if path == "" {
		return template.New("alert").Parse(defaultTemplate)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alerts template %q: %w", path, err)
	}
	return template.New("alert").Parse(string(body))
}

// alertData is the template context for one alerted row.
type alertData struct {
	Kind       string
	ID         int64
	Status     string
	ReturnCode int
	Finished   time.Time
	ErrorMsg   string
}

// String implements fmt.Stringer.
func (l *Loop) String() string { return "alerts-loop" }

// Serve implements suture.Service.
func (l *Loop) Serve(ctx context.Context) error {
	ctx = logging.ContextWithLogger(ctx, logging.WithDaemon("alerts"))
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := l.tick(ctx); err != nil {
				logging.Ctx(ctx).Error().Err(err).Msg("alerts tick failed")
			}
		}
	}
}

func (l *Loop) tick(ctx context.Context) error {
	backups, err := l.store.UnalertedErrors(ctx)
	if err != nil {
		return err
	}
	for _, row := range backups {
		id := row.BckID
		data := alertData{Kind: "backup_catalog", ID: id, Status: string(row.ExecutionStatus),
			ReturnCode: row.ReturnCode, Finished: row.Finished, ErrorMsg: row.ErrorMsg}
		if err := l.sendAndAck(ctx, data, func(at time.Time) error { return l.store.AckAlert(ctx, id, at) }); err != nil {
			logging.Ctx(ctx).Error().Err(err).Int64("bck_id", id).Msg("failed to deliver backup alert")
		}
	}

	restores, err := l.store.UnalertedRestoreErrors(ctx)
	if err != nil {
		return err
	}
	for _, row := range restores {
		id := row.RestoreCatID
		data := alertData{Kind: "restore_catalog", ID: id, Status: string(row.ExecutionStatus),
			ReturnCode: row.ReturnCode, Finished: row.Finished, ErrorMsg: row.ErrorMsg}
		if err := l.sendAndAck(ctx, data, func(at time.Time) error { return l.store.AckRestoreAlert(ctx, id, at) }); err != nil {
			logging.Ctx(ctx).Error().Err(err).Int64("restore_cat_id", id).Msg("failed to deliver restore alert")
		}
	}
	return nil
}

func (l *Loop) sendAndAck(ctx context.Context, data alertData, ack func(at time.Time) error) error {
	if err := l.send(data); err != nil {
		return err
	}
	return ack(time.Now())
}

func (l *Loop) send(data alertData) error {
	var body bytes.Buffer
	if err := l.tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render alert template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", l.smtp.FromAddress)
	m.SetHeader("To", l.toAddresses...)
	m.SetHeader("Subject", fmt.Sprintf("[pgbackman] %s #%d %s", data.Kind, data.ID, data.Status))
	m.SetBody("text/plain", body.String())

	d := gomail.NewDialer(l.smtp.Server, l.smtp.Port, l.smtp.User, l.smtp.Password)
	d.SSL = l.smtp.SSL

	return d.DialAndSend(m)
}
