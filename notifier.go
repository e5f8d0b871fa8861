package credentials

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// SMTPNotifier delivers HTML mail over authenticated SMTP. It satisfies the
// Notifier contract: callers treat failures as non fatal.
type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   Logger
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPNotifier{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
		logger:   defLogger{},
	}
}

func (n *SMTPNotifier) WithLogger(logger Logger) *SMTPNotifier {
	if logger != nil {
		n.logger = logger
	}
	return n
}

func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled before send")
	default:
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", n.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.username, n.password, n.host)

	if err := smtp.SendMail(addr, auth, n.from, []string{to}, []byte(msg)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "smtp delivery failed").
			WithMetadata(map[string]any{"to": to, "subject": subject})
	}

	n.logger.Debug("email sent to %s subject %q", to, subject)
	return nil
}

var _ Notifier = (*SMTPNotifier)(nil)

// LogNotifier writes the message to the logger instead of delivering it.
// Useful in development, where the link just needs to be visible somewhere.
type LogNotifier struct {
	logger Logger
}

func NewLogNotifier(logger Logger) *LogNotifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.logger.Info("====== SENDING EMAIL NOTIFICATION =======")
	n.logger.Info("to: %s", to)
	n.logger.Info("subject: %s", subject)
	n.logger.Info("%s", body)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, string, string, string) error { return nil }
