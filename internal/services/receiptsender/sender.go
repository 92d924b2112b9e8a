// Package receiptsender отправляет квитанции о подтвержденных покупках
// на служебный почтовый ящик.
package receiptsender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/musiclands/festival-companion/internal/lib/sl"
	smtplib "github.com/musiclands/festival-companion/internal/lib/smtp"
	"github.com/musiclands/festival-companion/internal/models"
)

// Service потребляет квитанции из очереди и отправляет их по SMTP.
type Service struct {
	transport smtplib.TransportInterface
	log       *slog.Logger
	opsEmail  string
}

// New создает новый экземпляр Service. opsEmail — адрес служебного ящика.
func New(log *slog.Logger, transport smtplib.TransportInterface, opsEmail string) *Service {
	return &Service{
		transport: transport,
		log:       log,
		opsEmail:  opsEmail,
	}
}

// SendReceipt разбирает квитанцию из тела сообщения очереди и отправляет
// письмо. Синтетические покупки деградированного режима помечаются
// в теме письма.
func (s *Service) SendReceipt(body []byte) error {
	var receipt models.ReceiptInfo
	if err := json.Unmarshal(body, &receipt); err != nil {
		s.log.Error("failed to unmarshal receipt", sl.Err(err))
		return fmt.Errorf("error unmarshalling receipt: %w", err)
	}

	subject := fmt.Sprintf("Purchase confirmed: %s (%s)", receipt.OfferingID, receipt.TransactionID)
	if receipt.Simulated {
		subject = "[SIMULATED] " + subject
	}

	bodyText := fmt.Sprintf(
		"User: %s\nOffering: %s\nTransaction: %s\nPurchased at: %s\nAccess until: %s\nSimulated: %t\n",
		receipt.UserUID,
		receipt.OfferingID,
		receipt.TransactionID,
		receipt.PurchasedAt.Format("2006-01-02 15:04:05 MST"),
		receipt.ExpiresAt.Format("2006-01-02 15:04:05 MST"),
		receipt.Simulated,
	)

	return s.sendEmail([]string{s.opsEmail}, subject, bodyText)
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("Failed to connect to SMTP server", "error", sl.Err(err))
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			s.log.Debug("failed to close SMTP client", sl.Err(closeErr))
		}
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("Failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("Failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("Failed to get Data writer", "error", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("Failed to write email body", "error", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("Failed to close Data writer", "error", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("Failed to quit SMTP client", "error", sl.Err(err))
		return err
	}

	s.log.Info("receipt email sent", "to", to)
	return nil
}
