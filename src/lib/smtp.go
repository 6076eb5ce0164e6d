package lib

import (
	"log"
	"os"
	"strconv"

	"github.com/wneessen/go-mail"
)

func SMTPConfigured() bool {
	return os.Getenv("SMTP_HOST") != ""
}

func GetSMTPClient() (*mail.Client, error) {
	host := os.Getenv("SMTP_HOST")
	port := 587
	if p, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil {
		port = p
	}
	user := os.Getenv("SMTP_USERNAME")
	pass := os.Getenv("SMTP_PASSWORD")
	c, err := mail.NewClient(host, mail.WithPort(port), mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(user), mail.WithPassword(pass))
	if err != nil {
		log.Printf("Could not initialize smtp client: %s\n", err.Error())
		return nil, err
	}
	return c, nil
}

type SendMailInput struct {
	From     string
	FromName string
	To       []string
	Subject  string
	Body     string
	Html     bool
}

func SendMail(inputParams *SendMailInput) error {
	c, err := GetSMTPClient()
	if err != nil {
		return err
	}
	msg := mail.NewMsg()
	if err := msg.FromFormat(inputParams.FromName, inputParams.From); err != nil {
		log.Printf("Failed to set From address: %s\n", err.Error())
	}
	if err := msg.To(inputParams.To...); err != nil {
		log.Printf("Failed to set To address: %s\n", err.Error())
	}
	msg.Subject(inputParams.Subject)
	if inputParams.Html {
		msg.SetBodyString(mail.TypeTextHTML, inputParams.Body)
	} else {
		msg.SetBodyString(mail.TypeTextPlain, inputParams.Body)
	}
	if err := c.DialAndSend(msg); err != nil {
		return err
	}
	return nil
}
