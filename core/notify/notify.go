// Package notify renders and sends the emails of the application.
// Delivery failures never fail the operation that triggered them: they come back as a Result.
package notify

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

// Events
const (
	EventPlanReviewed      = "plan_reviewed"
	EventEvidenceValidated = "evidence_validated"
	EventProgressReminder  = "progress_reminder"
	EventPasswordReset     = "password_reset"
)

var notificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Email notifications by event and outcome (sent, skipped, failed).",
	},
	[]string{"event", "outcome"},
)

func init() {
	prometheus.MustRegister(notificationsTotal)
}

type (
	Result struct {
		Success bool   `json:"success"`
		Sent    bool   `json:"enviado"`
		Error   string `json:"error,omitempty"`
	}

	// UserLookup finds the user owning records, to get their email.
	UserLookup func(ctx context.Context, id string) (user.User, error)

	Notifier struct {
		mailSvc         core.EmailService
		tmpls           *core.EmailTemplates
		logger          core.Logger
		enabled         bool
		from            mail.Address
		frontendBaseURL string
	}
)

func NewNotifier(mailSvc core.EmailService, tmpls *core.EmailTemplates, logger core.Logger, conf *core.Config) *Notifier {
	return &Notifier{
		mailSvc:         mailSvc,
		tmpls:           tmpls,
		logger:          logger,
		enabled:         conf.Notifications.Enabled,
		from:            mail.Address{Name: conf.Email.DefaultFromName, Address: conf.Email.DefaultFromEmail},
		frontendBaseURL: conf.FrontendBaseURL,
	}
}

func (n *Notifier) Enabled() bool { return n.enabled }

func (n *Notifier) send(ctx context.Context, event string, to user.User, subject string, data interface{}) Result {
	fail := func(err error) Result {
		notificationsTotal.WithLabelValues(event, "failed").Inc()
		n.logger.Warn(fmt.Sprintf("notification %s to %s failed", event, to.Email), err)
		return Result{Success: false, Error: err.Error()}
	}

	if to.Email == "" {
		return fail(errors.New("el destinatario no tiene correo"))
	}
	msg := &core.EmailMessage{
		From:         n.from,
		To:           []mail.Address{{Name: to.Name, Address: to.Email}},
		Subject:      subject,
		TemplateName: event,
		TemplateData: data,
	}
	if err := n.tmpls.Render(msg); err != nil {
		return fail(errors.Wrap(err, "rendering message"))
	}

	if !n.enabled {
		notificationsTotal.WithLabelValues(event, "skipped").Inc()
		n.logger.Info(fmt.Sprintf("notifications disabled; skipping %q to %s", subject, to.Email))
		return Result{Success: true, Sent: false}
	}
	if err := n.mailSvc.SendMessage(ctx, msg); err != nil {
		return fail(err)
	}
	notificationsTotal.WithLabelValues(event, "sent").Inc()
	return Result{Success: true, Sent: true}
}

type planReviewedData struct {
	ProfessorName string
	Subject       string
	Period        int
	Cycle         string
	Status        string
	StatusLabel   string
	Color         string
	Reviewer      string
	Comments      string
}

// PlanReviewed tells the owner of `p` about the review decision.
func (n *Notifier) PlanReviewed(ctx context.Context, to user.User, p plan.Plan) Result {
	subject := fmt.Sprintf("Planeación %s: %s (parcial %d)", plan.StatusLabel(p.Status), p.Subject, p.Period)
	return n.send(ctx, EventPlanReviewed, to, subject, planReviewedData{
		ProfessorName: to.Name,
		Subject:       p.Subject,
		Period:        p.Period,
		Cycle:         p.SchoolCycle,
		Status:        p.Status,
		StatusLabel:   plan.StatusLabel(p.Status),
		Color:         statusColor(p.Status),
		Reviewer:      p.Reviewer,
		Comments:      p.Comments,
	})
}

type evidenceValidatedData struct {
	ProfessorName string
	CourseName    string
	Institution   string
	Hours         float64
	Status        string
	StatusLabel   string
	Color         string
	Validator     string
	Observations  string
}

// EvidenceValidated tells the owner of `e` about the validation decision.
func (n *Notifier) EvidenceValidated(ctx context.Context, to user.User, e evidence.Evidence) Result {
	subject := fmt.Sprintf("Evidencia %s: %s", evidence.StatusLabel(e.Status), e.CourseName)
	return n.send(ctx, EventEvidenceValidated, to, subject, evidenceValidatedData{
		ProfessorName: to.Name,
		CourseName:    e.CourseName,
		Institution:   e.Institution,
		Hours:         e.Hours,
		Status:        e.Status,
		StatusLabel:   evidence.StatusLabel(e.Status),
		Color:         statusColor(e.Status),
		Validator:     e.Validator,
		Observations:  e.Observations,
	})
}

type passwordResetData struct {
	Name string
	URL  string
}

// PasswordReset sends the link to choose a new password.
func (n *Notifier) PasswordReset(ctx context.Context, to user.User, uid, token string) Result {
	q := make(url.Values)
	q.Set("uid", uid)
	q.Set("token", token)
	return n.send(ctx, EventPasswordReset, to, "Restablecer contraseña", passwordResetData{
		Name: to.Name,
		URL:  n.frontendBaseURL + "/restablecer-password?" + q.Encode(),
	})
}

func statusColor(status string) string {
	switch status {
	case plan.StatusApproved, evidence.StatusValidated:
		return "#15803d"
	case plan.StatusRejected, evidence.StatusRejected:
		return "#b91c1c"
	case plan.StatusChangesRequested:
		return "#b45309"
	default:
		return "#374151"
	}
}
