package emailsvc

import (
	"context"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type sendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config) core.EmailService {
	return &sendgridService{
		key:        conf.Email.SendgridAPIKey,
		from:       sgmail.NewEmail(conf.Email.DefaultFromName, conf.Email.DefaultFromEmail),
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (svc *sendgridService) SendMessage(_ context.Context, msg *core.EmailMessage) error {
	if !msg.HasRecipients() {
		return errors.New("message has no recipients")
	}
	if !msg.HasContent() {
		return errors.New("message has no content")
	}

	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return errors.Wrap(err, "sending email")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sending email - status: %d - body: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (svc *sendgridService) prepare(msg *core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(getSGEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(getSGEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	if msg.From.Address != "" {
		m.SetFrom(getSGEmail(msg.From))
	} else {
		m.SetFrom(svc.from)
	}
	m.AddPersonalizations(p)

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}
