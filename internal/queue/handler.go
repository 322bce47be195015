package queue

import (
	"context"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/app"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/observability"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
)

// Handler runs jobs against an App.
type Handler struct {
	app *app.App
}

func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

// Handle decodes the body of a delivery from queueName and runs the job.
// Reports are uploaded to S3 when it is configured. A failed upload is
// logged and does not fail the job.
func (h *Handler) Handle(ctx context.Context, queueName string, body []byte) (err error) {
	kind, err := KindOfQueue(queueName)
	if err != nil {
		return err
	}
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		observability.JobsProcessed.WithLabelValues(kind, status).Inc()
	}()

	job, err := Decode(kind, body)
	if err != nil {
		return err
	}
	log := logger.With("kind", kind, "job_id", job.ID())
	log.Info("[Queue] Running job")

	var report any
	switch j := job.(type) {
	case *ImportJob:
		report, err = h.app.ImportOntology(ctx, j.Source, j.MaxDepth)
	case *MergeJob:
		report, err = h.app.MergeDuplicates(ctx)
	case *ValidateJob:
		report, err = h.app.ValidateLabels(ctx, j.Labels)
	case *MineJob:
		report, err = h.app.Mine(ctx, j.Params)
	case *CombinationJob:
		report, err = h.app.Combinations(ctx, j.PaperIDs, j.MaxK, j.Repair)
	case *MatchJob:
		report, err = h.app.MapPaper(ctx, j.PaperID, j.Terms, j.Context)
	}
	if err != nil {
		log.Error("[Queue] Job failed", "err", err)
		return err
	}

	if job.ID() != "" {
		if upErr := h.app.SaveReport(ctx, reportKind(kind), job.ID(), report); upErr != nil {
			log.Warn("[Queue] Failed to upload report", "err", upErr)
		}
	}
	return nil
}

func reportKind(kind string) string {
	switch kind {
	case KindMine:
		return "mining"
	case KindValidate:
		return "labels"
	default:
		return kind
	}
}
