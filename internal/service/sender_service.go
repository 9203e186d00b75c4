package service

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"parkspot/internal/db"
	"parkspot/internal/entities"
)

// SenderService delivers booking notifications. Sends are fire-and-forget:
// a failed email or SMS is logged, never surfaced to the booking flow.
type SenderService struct{}

func NewSenderService() *SenderService {
	return &SenderService{}
}

// NotifyStatusChange emails and texts the requester about a lifecycle
// change. Missing contact details skip the corresponding channel.
func (s *SenderService) NotifyStatusChange(res *db.Reservation, status string) {
	if res.UserEmail != "" {
		s.sendBookingEmail(res, status)
	}
	if res.UserPhone != "" {
		s.sendBookingSMS(res, status)
	}
}

func (s *SenderService) sendBookingEmail(res *db.Reservation, status string) {
	subject, body := bookingEmailContent(res, status)

	go func(toEmail, subject, body string) {
		if err := sendEmailWithSendGrid(toEmail, subject, body); err != nil {
			log.Printf("WARN (async): email for booking %s failed: %v", res.Code, err)
		}
	}(res.UserEmail, subject, body)
}

func bookingEmailContent(res *db.Reservation, status string) (subject, body string) {
	data := entities.BookingEmailData{
		ReservationCode:    res.Code,
		StartTimeFormatted: res.StartTime.Format("02 Jan 2006 15:04 MST"),
		EndTimeFormatted:   res.EndTime.Format("02 Jan 2006 15:04 MST"),
		TotalAmount:        res.TotalAmount,
		Status:             status,
	}

	subject = fmt.Sprintf("Your parking booking is %s - Code: %s", data.Status, data.ReservationCode)
	body = fmt.Sprintf(
		"Hello,\n\nYour parking booking is %s.\n\n"+
			"Booking Details:\n"+
			"Booking Code: %s\n"+
			"Check-in: %s\n"+
			"Check-out: %s\n"+
			"Total: %.2f EUR\n\n"+
			"Thank you for booking with ParkSpot.",
		data.Status, data.ReservationCode,
		data.StartTimeFormatted, data.EndTimeFormatted,
		data.TotalAmount,
	)
	return subject, body
}

func (s *SenderService) sendBookingSMS(res *db.Reservation, status string) {
	message := fmt.Sprintf("ParkSpot: booking %s is %s!\nCheck-in: %s.\nDetails in your email.",
		res.Code, status, res.StartTime.Format("02/01 15:04"))

	go func(phone, message string) {
		if err := sendSMS(phone, message); err != nil {
			log.Printf("WARN (async): SMS for booking %s failed: %v", res.Code, err)
		}
	}(res.UserPhone, message)
}

func sendEmailWithSendGrid(toEmail, subject, plainTextContent string) error {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY not configured")
	}
	fromEmail := os.Getenv("SENDGRID_FROM_EMAIL")
	if fromEmail == "" {
		return fmt.Errorf("SENDGRID_FROM_EMAIL not configured")
	}
	fromName := os.Getenv("SENDGRID_FROM_NAME")
	if fromName == "" {
		fromName = "ParkSpot"
	}

	from := mail.NewEmail(fromName, fromEmail)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainTextContent, "")

	client := sendgrid.NewSendClient(apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	log.Printf("Email sent to %s (subject: %s)", toEmail, subject)
	return nil
}

func sendSMS(toPhone, message string) error {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	fromPhone := os.Getenv("TWILIO_FROM_PHONE")
	if accountSid == "" || authToken == "" || fromPhone == "" {
		return fmt.Errorf("twilio credentials not configured")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	params := &openapi.CreateMessageParams{}
	params.SetTo(toPhone)
	params.SetFrom(fromPhone)
	params.SetBody(message)

	start := time.Now()
	_, err := client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send failed: %w", err)
	}
	log.Printf("SMS sent to %s in %s", toPhone, time.Since(start).Round(time.Millisecond))
	return nil
}
