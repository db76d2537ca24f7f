package notify

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
)

type (
	ReminderDetail struct {
		Professor string `json:"profesor"`
		Email     string `json:"email"`
		Records   int    `json:"registros"`
		Success   bool   `json:"success"`
		Error     string `json:"error,omitempty"`
	}

	ReminderBatch struct {
		Message   string           `json:"message"`
		Total     int              `json:"total"`
		Succeeded int              `json:"exitosos"`
		Failed    int              `json:"fallidos"`
		Details   []ReminderDetail `json:"detalles"`
	}

	reminderRow struct {
		Subject         string
		Period          int
		Percentage      int
		ComplianceLabel string
	}

	progressReminderData struct {
		ProfessorName string
		Cycle         string
		Records       []reminderRow
	}

	professorGroup struct {
		id      string
		name    string
		records []progress.Progress
	}
)

// groupByProfessor groups records by owner, keeping the order in which owners first appear.
func groupByProfessor(records []progress.Progress) []*professorGroup {
	var groups []*professorGroup
	index := make(map[string]*professorGroup)
	for _, p := range records {
		grp, ok := index[p.ProfessorID]
		if !ok {
			grp = &professorGroup{id: p.ProfessorID, name: p.ProfessorName}
			index[p.ProfessorID] = grp
			groups = append(groups, grp)
		}
		grp.records = append(grp.records, p)
	}
	return groups
}

// ProgressReminders sends one reminder per professor owning any of `records`.
// Every professor is attempted; the batch reports who succeeded.
func (n *Notifier) ProgressReminders(ctx context.Context, cycle string, records []progress.Progress, lookup UserLookup) ReminderBatch {
	groups := groupByProfessor(records)
	batch := ReminderBatch{
		Total:   len(groups),
		Details: make([]ReminderDetail, 0, len(groups)),
	}

	for _, grp := range groups {
		detail := ReminderDetail{Professor: grp.name, Records: len(grp.records)}

		usr, err := lookup(ctx, grp.id)
		if err != nil {
			detail.Error = errors.Wrap(err, "finding professor").Error()
			n.logger.Warn("progress reminder: professor "+grp.id+" not found", err)
		} else {
			detail.Email = usr.Email
			rows := make([]reminderRow, 0, len(grp.records))
			for _, p := range grp.records {
				rows = append(rows, reminderRow{
					Subject:         p.Subject,
					Period:          p.Period,
					Percentage:      p.Percentage,
					ComplianceLabel: progress.ComplianceLabel(p.Compliance),
				})
			}
			res := n.send(ctx, EventProgressReminder, usr, "Recordatorio de avances pendientes - ciclo "+cycle, progressReminderData{
				ProfessorName: usr.Name,
				Cycle:         cycle,
				Records:       rows,
			})
			detail.Success = res.Success
			detail.Error = res.Error
		}

		if detail.Success {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
		batch.Details = append(batch.Details, detail)
	}

	if batch.Total == 0 {
		batch.Message = "No hay avances pendientes en el ciclo " + cycle
	} else {
		batch.Message = fmt.Sprintf("Recordatorios enviados: %d de %d", batch.Succeeded, batch.Total)
	}
	return batch
}
