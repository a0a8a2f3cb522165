// services/mail_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/mercadopro/mercadopro_backend/utils"
)

// MailService sends transactional email over SMTP
type MailService struct {
	host    string
	port    int
	user    string
	pass    string
	from    string
	metrics *utils.EmailMetrics
}

// NewMailService reads SMTP settings from environment variables. metrics may
// be nil when Redis is not available.
func NewMailService(metrics *utils.EmailMetrics) *MailService {
	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &smtpPort)
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USER")
	}

	s := &MailService{
		host:    os.Getenv("SMTP_HOST"),
		port:    smtpPort,
		user:    os.Getenv("SMTP_USER"),
		pass:    os.Getenv("SMTP_PASS"),
		from:    from,
		metrics: metrics,
	}
	if s.host == "" {
		log.Printf("WARNING: SMTP_HOST is missing, outbound email will fail")
	}
	return s
}

// SendMail sends one email using gomail
func (s *MailService) SendMail(opts MailOptions) error {
	if s.host == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", opts.To)
	m.SetHeader("Subject", opts.Subject)
	if opts.Text != "" {
		m.SetBody("text/plain", opts.Text)
		if opts.HTML != "" {
			m.AddAlternative("text/html", opts.HTML)
		}
	} else {
		m.SetBody("text/html", opts.HTML)
	}

	d := gomail.NewDialer(s.host, s.port, s.user, s.pass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", opts.To, err)
	}
	return nil
}

// SendCompanyOrderNotification emails a company the details of a new order
func (s *MailService) SendCompanyOrderNotification(companyEmail, companyName string, details CompanyOrderDetails) error {
	var rows strings.Builder
	var textLines strings.Builder
	for _, line := range details.Products {
		rows.WriteString(fmt.Sprintf(
			"<tr><td style=\"padding:8px;border-bottom:1px solid #eee;\">%s</td>"+
				"<td style=\"padding:8px;border-bottom:1px solid #eee;text-align:center;\">%d</td>"+
				"<td style=\"padding:8px;border-bottom:1px solid #eee;text-align:right;\">$%.2f</td></tr>",
			line.ProductName, line.Quantity, line.UnitPrice*float64(line.Quantity)))
		textLines.WriteString(fmt.Sprintf("- %s x%d ($%.2f)\n",
			line.ProductName, line.Quantity, line.UnitPrice*float64(line.Quantity)))
	}

	html := fmt.Sprintf(`
<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;">
  <h2 style="color:#2c3e50;">New Order Received</h2>
  <p>Hello %s,</p>
  <p>You have received a new order through MercadoPro.</p>
  <h3>Customer</h3>
  <p>%s&lt;%s&gt;<br/>%s %s<br/>%s</p>
  <h3>Items</h3>
  <table style="width:100%%;border-collapse:collapse;">
    <tr style="background:#f8f9fa;"><th style="padding:8px;text-align:left;">Product</th><th style="padding:8px;">Qty</th><th style="padding:8px;text-align:right;">Subtotal</th></tr>
    %s
  </table>
  <p style="font-size:18px;"><strong>Total: $%.2f</strong></p>
  <p style="color:#7f8c8d;font-size:12px;">Order reference: %s</p>
</div>`,
		companyName,
		details.CustomerName, details.CustomerEmail,
		details.CustomerAddress, details.CustomerCity, details.CustomerPhone,
		rows.String(), details.TotalAmount, details.OrderID)

	text := fmt.Sprintf("New order received\n\nCustomer: %s <%s>\nAddress: %s %s\nPhone: %s\n\nItems:\n%s\nTotal: $%.2f\nOrder reference: %s\n",
		details.CustomerName, details.CustomerEmail,
		details.CustomerAddress, details.CustomerCity, details.CustomerPhone,
		textLines.String(), details.TotalAmount, details.OrderID)

	err := s.SendMail(MailOptions{
		To:      companyEmail,
		Subject: fmt.Sprintf("New order from %s - $%.2f", details.CustomerName, details.TotalAmount),
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		s.metrics.Inc(context.Background(), utils.MetricCompanyOrderFailed)
		return err
	}
	s.metrics.Inc(context.Background(), utils.MetricCompanyOrderSent)
	return nil
}

// SendCommissionEmail tells a referrer they earned a commission
func (s *MailService) SendCommissionEmail(to, referrerName, referredName string, amount, commission float64) error {
	buyer := referredName
	if buyer == "" {
		buyer = "someone you referred"
	}

	html := fmt.Sprintf(`
<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;">
  <h2 style="color:#27ae60;">You earned a commission!</h2>
  <p>Hello %s,</p>
  <p>%s completed a purchase of <strong>$%.2f</strong> through your referral link.</p>
  <p style="font-size:20px;">Your commission: <strong style="color:#27ae60;">$%.2f</strong></p>
  <p>It will appear as pending in your dashboard until it is paid out.</p>
</div>`,
		referrerName, buyer, amount, commission)

	text := fmt.Sprintf("Hello %s,\n\n%s completed a purchase of $%.2f through your referral link.\nYour commission: $%.2f\n\nIt will appear as pending in your dashboard until it is paid out.\n",
		referrerName, buyer, amount, commission)

	err := s.SendMail(MailOptions{
		To:      to,
		Subject: fmt.Sprintf("You earned a $%.2f commission!", commission),
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		s.metrics.Inc(context.Background(), utils.MetricCommissionFailed)
		return err
	}
	s.metrics.Inc(context.Background(), utils.MetricCommissionSent)
	return nil
}

// SendReminderEmail nudges an inactive user back to the marketplace
func (s *MailService) SendReminderEmail(to, fullName string) error {
	name := fullName
	if name == "" {
		name = "there"
	}

	html := fmt.Sprintf(`
<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;">
  <h2 style="color:#2c3e50;">We miss you!</h2>
  <p>Hello %s,</p>
  <p>It has been a while since your last visit. New products are waiting for you on MercadoPro.</p>
</div>`, name)

	err := s.SendMail(MailOptions{
		To:      to,
		Subject: "We miss you at MercadoPro",
		HTML:    html,
	})
	if err != nil {
		s.metrics.Inc(context.Background(), utils.MetricReminderFailed)
		return err
	}
	s.metrics.Inc(context.Background(), utils.MetricReminderSent)
	return nil
}
