package mail

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

// Mailer sends the platform's alert emails. It is not part of the
// messaging core; the notifier calls it best-effort for task-assignment
// notifications.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	log    *log.Logger
}

func NewMailer(logger *log.Logger, host string, port int, username, password, from string) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		log:    logger,
	}
}

func (m *Mailer) SendTaskAssignedAlert(to, taskTitle string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "You have been assigned a task")
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>You have been assigned a new task:</p><p><strong>%s</strong></p>",
		taskTitle,
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send task assignment mail to %s: %w", to, err)
	}

	m.log.Printf("sent task assignment alert to %s", to)
	return nil
}
