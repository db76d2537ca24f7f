package emailsvc

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

type consoleService struct {
	defaultFrom mail.Address
	subjPrefix  string
	out         *log.Logger
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService prints every message as a MIME email instead of sending it.
func NewConsoleService(out *log.Logger, conf *core.Config) core.EmailService {
	return &consoleService{
		defaultFrom: mail.Address{Name: conf.Email.DefaultFromName, Address: conf.Email.DefaultFromEmail},
		subjPrefix:  "[" + conf.AppName + "] ",
		out:         out,
	}
}

func (svc *consoleService) SendMessage(_ context.Context, msg *core.EmailMessage) error {
	if !msg.HasRecipients() {
		return errors.New("message has no recipients")
	}
	if !msg.HasContent() {
		return errors.New("message has no content")
	}
	body, err := svc.format(msg)
	if err != nil {
		return errors.Wrap(err, "formatting message")
	}
	if svc.out != nil {
		svc.out.Println(body)
	}
	return nil
}

func (svc *consoleService) format(msg *core.EmailMessage) (string, error) {
	body := new(strings.Builder)
	from := msg.From
	if from.Address == "" {
		from = svc.defaultFrom
	}

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", from.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	if err := writePart(altW, "text/plain; charset=utf-8", msg.TextContent); err != nil {
		return "", err
	}
	if msg.HTMLContent != "" {
		if err := writePart(altW, "text/html; charset=utf-8", msg.HTMLContent); err != nil {
			return "", err
		}
	}
	if err := altW.Close(); err != nil {
		return "", err
	}
	return body.String(), nil
}

func writePart(w *multipart.Writer, contentType, content string) error {
	pw, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {contentType}})
	if err != nil {
		return errors.Wrap(err, "creating "+contentType+" part")
	}
	_, err = io.WriteString(pw, content+"\r\n")
	return err
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// ConsoleServiceMock records the messages instead of printing them. Set Err to make sends fail.
type ConsoleServiceMock struct {
	consoleService

	mu   sync.Mutex
	sent []core.EmailMessage
	Err  error
}

var _ core.EmailService = (*ConsoleServiceMock)(nil)

func NewConsoleServiceMock(conf *core.Config) *ConsoleServiceMock {
	return &ConsoleServiceMock{
		consoleService: consoleService{
			defaultFrom: mail.Address{Name: conf.Email.DefaultFromName, Address: conf.Email.DefaultFromEmail},
			subjPrefix:  "[" + conf.AppName + "] ",
		},
	}
}

func (svc *ConsoleServiceMock) SendMessage(ctx context.Context, msg *core.EmailMessage) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.Err != nil {
		return svc.Err
	}
	if err := svc.consoleService.SendMessage(ctx, msg); err != nil {
		return err
	}
	svc.sent = append(svc.sent, *msg)
	return nil
}

// SentMessages returns a copy of the messages sent so far.
func (svc *ConsoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}

func (svc *ConsoleServiceMock) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = nil
	svc.Err = nil
}
