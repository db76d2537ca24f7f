package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/notify"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
	appfs "github.com/PalomaresAndrea/gestion-planeacion-sub000/fs"
	emailsvc "github.com/PalomaresAndrea/gestion-planeacion-sub000/services/email"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/testutil"
)

func newNotifier(t *testing.T, enabled bool) (*notify.Notifier, *emailsvc.ConsoleServiceMock, *testutil.Logger) {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Notifications.Enabled = enabled
	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
	require.NoError(t, err)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	logger := testutil.NewLogger()
	return notify.NewNotifier(mailSvc, tmpls, logger, conf), mailSvc, logger
}

var (
	ana  = user.User{ID: "u-ana", Name: "Ana López", Email: "ana@escuela.mx", Role: user.RoleProfessor}
	luis = user.User{ID: "u-luis", Name: "Luis Pérez", Email: "luis@escuela.mx", Role: user.RoleProfessor}
)

func TestNotifier_PlanReviewed(t *testing.T) {
	n, mailSvc, _ := newNotifier(t, true)
	p := plan.Plan{
		ProfessorID: ana.ID, Subject: "Álgebra", Period: 2, SchoolCycle: "2024-2025",
		Status: plan.StatusApproved, Reviewer: "Coordinadora", Comments: "Muy bien",
	}

	res := n.PlanReviewed(context.Background(), ana, p)
	assert.Equal(t, notify.Result{Success: true, Sent: true}, res)

	sent := mailSvc.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	require.Len(t, msg.To, 1)
	assert.Equal(t, "ana@escuela.mx", msg.To[0].Address)
	assert.Contains(t, msg.Subject, "Aprobado")
	assert.Contains(t, msg.Subject, "Álgebra")
	assert.Contains(t, msg.TextContent, "Muy bien")
	assert.Contains(t, msg.HTMLContent, "Coordinadora")
}

func TestNotifier_EvidenceValidated(t *testing.T) {
	n, mailSvc, _ := newNotifier(t, true)
	e := evidence.Evidence{
		ProfessorID: ana.ID, CourseName: "Didáctica", Institution: "UNAM", Hours: 40,
		Status: evidence.StatusRejected, Validator: "Coordinadora", Observations: "Falta constancia",
	}

	res := n.EvidenceValidated(context.Background(), ana, e)
	assert.True(t, res.Success)
	assert.True(t, res.Sent)

	sent := mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Subject, "Rechazada")
	assert.Contains(t, sent[0].TextContent, "Falta constancia")
}

func TestNotifier_Disabled(t *testing.T) {
	n, mailSvc, logger := newNotifier(t, false)
	assert.False(t, n.Enabled())

	res := n.PlanReviewed(context.Background(), ana, plan.Plan{Subject: "Física", Period: 1, Status: plan.StatusRejected})
	assert.Equal(t, notify.Result{Success: true, Sent: false}, res)
	assert.Empty(t, mailSvc.SentMessages())
	assert.NotEmpty(t, logger.Entries("INFO"))
}

func TestNotifier_Failures(t *testing.T) {
	n, mailSvc, logger := newNotifier(t, true)
	mailSvc.Err = errors.New("sendgrid caído")

	res := n.PlanReviewed(context.Background(), ana, plan.Plan{Subject: "Física", Period: 1, Status: plan.StatusApproved})
	assert.False(t, res.Success)
	assert.False(t, res.Sent)
	assert.Equal(t, "sendgrid caído", res.Error)
	assert.Len(t, logger.Entries("WARN"), 1)

	mailSvc.Reset()
	res = n.PlanReviewed(context.Background(), user.User{Name: "Sin correo"}, plan.Plan{Status: plan.StatusApproved})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestNotifier_PasswordReset(t *testing.T) {
	n, mailSvc, _ := newNotifier(t, true)

	res := n.PasswordReset(context.Background(), ana, "dWlk", "tok-en")
	assert.True(t, res.Sent)

	sent := mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "http://localhost:3000/restablecer-password?token=tok-en&uid=dWlk")
}

func TestNotifier_ProgressReminders(t *testing.T) {
	n, mailSvc, _ := newNotifier(t, true)
	records := []progress.Progress{
		{ProfessorID: luis.ID, ProfessorName: luis.Name, Subject: "Química", Period: 1, Percentage: 40, Compliance: progress.CompliancePartial},
		{ProfessorID: ana.ID, ProfessorName: ana.Name, Subject: "Álgebra", Period: 1, Percentage: 10, Compliance: progress.ComplianceNotMet},
		{ProfessorID: "u-ghost", ProfessorName: "Fantasma", Subject: "Historia", Period: 2, Compliance: progress.CompliancePartial},
		{ProfessorID: luis.ID, ProfessorName: luis.Name, Subject: "Química", Period: 2, Percentage: 60, Compliance: progress.CompliancePartial},
	}
	lookup := func(_ context.Context, id string) (user.User, error) {
		switch id {
		case ana.ID:
			return ana, nil
		case luis.ID:
			return luis, nil
		}
		return user.User{}, user.ErrNotFound
	}

	batch := n.ProgressReminders(context.Background(), "2024-2025", records, lookup)
	assert.Equal(t, 3, batch.Total)
	assert.Equal(t, 2, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, "Recordatorios enviados: 2 de 3", batch.Message)

	require.Len(t, batch.Details, 3)
	assert.Equal(t, "Luis Pérez", batch.Details[0].Professor)
	assert.Equal(t, 2, batch.Details[0].Records)
	assert.Equal(t, "luis@escuela.mx", batch.Details[0].Email)
	assert.Equal(t, "Ana López", batch.Details[1].Professor)
	assert.Equal(t, "Fantasma", batch.Details[2].Professor)
	assert.False(t, batch.Details[2].Success)
	assert.NotEmpty(t, batch.Details[2].Error)

	sent := mailSvc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "luis@escuela.mx", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Química")
}

func TestNotifier_ProgressRemindersEmpty(t *testing.T) {
	n, mailSvc, _ := newNotifier(t, true)

	batch := n.ProgressReminders(context.Background(), "2024-2025", nil, nil)
	assert.Equal(t, 0, batch.Total)
	assert.Equal(t, "No hay avances pendientes en el ciclo 2024-2025", batch.Message)
	assert.NotNil(t, batch.Details)
	assert.Empty(t, mailSvc.SentMessages())
}
