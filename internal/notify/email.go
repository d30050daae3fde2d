package notify

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Email struct {
	addr     string
	auth     smtp.Auth
	from     string
	to       []string
	sendMail sendMailFunc
}

// NewEmail sends alerts through an SMTP relay. Auth is PLAIN when a user is
// given.
func NewEmail(addr, user, password, from string, to []string) *Email {
	var auth smtp.Auth
	if user != "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &Email{
		addr:     addr,
		auth:     auth,
		from:     from,
		to:       to,
		sendMail: smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.sendMail(e.addr, e.auth, e.from, e.to, e.message(a))
}

func (e *Email) message(a Alert) []byte {
	table := a.TableName
	if table == "" {
		table = fmt.Sprintf("#%d", a.TableID)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", e.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&b, "Subject: Table %s ends in %d min\r\n", table, a.MinutesRemaining)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Reservation %d for %s on table %s ends at %s.\r\n",
		a.ReservationID, a.Guest, table, a.End.Format("15:04"))
	return b.Bytes()
}
