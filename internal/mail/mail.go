package mail

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Host     string `env:"SMTP_HOST" envDefault:"localhost"`
	Port     int    `env:"SMTP_PORT" envDefault:"25"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD,unset"`
	From     string `env:"MAIL_FROM" envDefault:"alerts@fluidmeter.local"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, env.Options{}); err != nil {
		return nil, err
	}
	return cfg, nil
}

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	cfg Config
}

func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mail: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}
	return smtp.SendMail(addr, auth, s.cfg.From, []string{msg.To}, s.compose(msg))
}

func (s *SMTPSender) compose(msg Message) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	buf.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return buf.Bytes()
}

// AlertLine is one meter in an alert mail.
type AlertLine struct {
	MeterID   string
	MeterName string
	Alerts    []string
}

var alertTemplate = template.Must(template.New("alert").Parse(`Hello {{.Name}},

The following fluid meters need your attention:
{{range .Lines}}
- {{if .MeterName}}{{.MeterName}} ({{.MeterID}}){{else}}{{.MeterID}}{{end}}: {{range $i, $a := .Alerts}}{{if $i}}, {{end}}{{$a}}{{end}}
{{- end}}

constant_flow: water has been flowing without a pause, check for a leak.
not_reporting: the meter has not reported for a day, check its connection.
`))

func RenderAlert(name string, lines []AlertLine) (string, error) {
	var buf bytes.Buffer
	err := alertTemplate.Execute(&buf, struct {
		Name  string
		Lines []AlertLine
	}{
		Name:  name,
		Lines: lines,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
