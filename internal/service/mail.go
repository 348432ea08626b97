package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"gopkg.in/gomail.v2"
)

// Mailer delivers verification codes
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}

type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// NewSMTPMailer reads the mail.* config keys
func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{
		Host:     viper.GetString("mail.host"),
		Port:     viper.GetInt("mail.port"),
		Username: viper.GetString("mail.username"),
		Password: viper.GetString("mail.password"),
		Sender:   viper.GetString("mail.sender"),
	}
}

func (s *SMTPMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	if to == s.Sender || to == s.Username {
		return errors.New("invalid email address")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	from := s.Sender
	if from == "" {
		from = s.Username
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your verification code")
	m.SetBody("text/plain", fmt.Sprintf("Your verification code is %s\n\nIt will expire in 10 minutes.", code))
	m.AddAlternative("text/html", fmt.Sprintf("<p>Your verification code is <strong>%s</strong></p><p>It will expire in 10 minutes.</p>", code))

	d := gomail.NewDialer(s.Host, s.Port, s.Username, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail, %w", err)
	}

	return nil
}
