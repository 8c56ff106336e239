package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"text/template"

	"panaderia-be/internal/config"
)

var confirmedTmpl = template.Must(template.New("confirmed").Parse(
	`Hola {{.CustomerName}},

Tu pedido #{{.OrderID}} fue confirmado para el {{.DeliveryDate}} a las {{.DeliveryTime}}.
Modalidad: {{if eq .Fulfillment "delivery"}}Reparto a domicilio{{else}}Retiro en local{{end}}.
{{- if .Address}}
Dirección: {{.Address}}
{{- end}}

Detalle:
{{- range .Items}}
  - {{.Quantity}} {{.Unit}} {{.Product}}
{{- end}}
{{- if .Notes}}

Observaciones: {{.Notes}}
{{- end}}

Panadería Matías
`))

var rejectedTmpl = template.Must(template.New("rejected").Parse(
	`Hola {{.CustomerName}},

Lamentamos informarte que tu pre-pedido #{{.PreOrderID}} para el {{.DeliveryDate}} a las {{.DeliveryTime}} fue rechazado.
{{- if .Reason}}
Motivo: {{.Reason}}
{{- end}}

Panadería Matías
`))

// EmailGateway delivers notifications over SMTP. Configuration is injected;
// there is no ambient mailer state.
type EmailGateway struct {
	addr string
	auth smtp.Auth
	from string
}

func NewEmailGateway(cfg *config.Config) *EmailGateway {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	from := cfg.MailFrom
	if from == "" {
		from = "no-reply@panaderia-matias.com"
	}
	return &EmailGateway{
		addr: cfg.SMTPHost + ":" + cfg.SMTPPort,
		auth: auth,
		from: from,
	}
}

func (g *EmailGateway) OrderConfirmed(ctx context.Context, subject string, o OrderSummary) error {
	if o.Email == "" {
		return nil
	}

	var body bytes.Buffer
	if err := confirmedTmpl.Execute(&body, o); err != nil {
		return fmt.Errorf("render confirmation mail: %w", err)
	}
	return g.send(o.Email, subject, body.String())
}

func (g *EmailGateway) PreOrderRejected(ctx context.Context, rej Rejection) error {
	if rej.Email == "" {
		return nil
	}

	var body bytes.Buffer
	if err := rejectedTmpl.Execute(&body, rej); err != nil {
		return fmt.Errorf("render rejection mail: %w", err)
	}
	subject := fmt.Sprintf("Pre-pedido #%d rechazado", rej.PreOrderID)
	return g.send(rej.Email, subject, body.String())
}

func (g *EmailGateway) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", g.from, to, subject, body)
	if err := smtp.SendMail(g.addr, g.auth, g.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
