package notify

import (
	"errors"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrSendFailed = errors.New("failed to send email")

type EmailService interface {
	SendEmail(subject, toEmail, plainTextContent, htmlContent string) error
}

type emailService struct {
	client      *sendgrid.Client
	senderEmail string
	senderName  string
}

func NewEmailService(apiKey, senderEmail, senderName string) EmailService {
	return &emailService{
		client:      sendgrid.NewSendClient(apiKey),
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (e *emailService) SendEmail(subject, toEmail, plainTextContent, htmlContent string) error {
	from := mail.NewEmail(e.senderName, e.senderEmail)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)
	response, err := e.client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return ErrSendFailed
	}
	return nil
}
