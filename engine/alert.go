package engine

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Alerter formats and dispatches alert messages. Every alert goes to the
// operator log; mail is attempted when the subject has an address
// configured. Delivery failures are logged and swallowed.
type Alerter struct {
	mailer Mailer
	log    *logrus.Logger
	now    func() time.Time
}

// NewAlerter creates an alerter. mailer may be nil, in which case alerts
// only reach the log.
func NewAlerter(mailer Mailer, log *logrus.Logger) *Alerter {
	return &Alerter{mailer: mailer, log: log, now: time.Now}
}

// Alert emits one alert for a target or for the system itself (empty url).
func (a *Alerter) Alert(name, url, email, level, message string) {
	subject := fmt.Sprintf("[%s] Uptime Pulse: %s", level, name)
	a.log.WithFields(logrus.Fields{
		"component": "alerter",
		"level":     level,
		"name":      name,
	}).Warn(subject + ": " + message)

	if email == "" || a.mailer == nil {
		return
	}

	now := a.now().UTC()
	body := fmt.Sprintf("Name: %s\nURL: %s\nLevel: %s\nTime: %s\n\n%s\n",
		name, url, level, now.Format(time.RFC3339), message)
	if err := a.mailer.Send(email, subject, body); err != nil {
		a.log.WithField("component", "alerter").
			Errorf("mail delivery to %s failed: %v", email, err)
	}
}
