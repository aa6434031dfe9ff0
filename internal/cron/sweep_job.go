package cron

import (
	"context"
	"fmt"

	"github.com/mesaops/venue-backend/internal/reconciler"
	"github.com/mesaops/venue-backend/pkg/logger"
)

// SweepJobParams configures the payment-event sweep job.
type SweepJobParams struct {
	Logger     *logger.Logger
	Reconciler reconciler.Service
}

// NewSweepJob builds the job that re-drives stuck and failed ledger events
// through the reconciler.
func NewSweepJob(params SweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &sweepJob{
		logg:       params.Logger,
		reconciler: params.Reconciler,
	}, nil
}

type sweepJob struct {
	logg       *logger.Logger
	reconciler reconciler.Service
}

func (j *sweepJob) Name() string { return "payment_event_sweep" }

func (j *sweepJob) Run(ctx context.Context) error {
	result, err := j.reconciler.Sweep(ctx)
	if result != nil {
		ctx = j.logg.WithFields(ctx, map[string]any{
			"replayed": len(result.Replayed),
			"failed":   len(result.Failed),
		})
		j.logg.Info(ctx, "sweep pass finished")
	}
	return err
}
