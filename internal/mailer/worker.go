package mailer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/piccplatform/ar-collections/internal/domain"
	"github.com/piccplatform/ar-collections/internal/service/queue"
)

// SendRecorder records a completed send for the cooldown guard. Nil disables
// recording.
type SendRecorder interface {
	MarkSent(ctx context.Context, customerName string, invoiceNumbers []string) error
}

// Worker drains approved drafts from the queue and sends them. One draft at
// a time: collections mail is low volume and ordering beats throughput.
type Worker struct {
	queue    *queue.Service
	mailer   *Mailer
	recorder SendRecorder
	interval time.Duration
	log      *logrus.Entry
}

// NewWorker creates a send worker polling at the given interval.
func NewWorker(q *queue.Service, m *Mailer, recorder SendRecorder, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Worker{
		queue:    q,
		mailer:   m,
		recorder: recorder,
		interval: interval,
		log:      logrus.WithField("component", "send-worker"),
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval).Info("send worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("send worker stopped")
			return
		case <-ticker.C:
			if err := w.DrainApproved(ctx); err != nil {
				w.log.WithError(err).Error("send pass failed")
			}
		}
	}
}

// DrainApproved sends every currently approved draft and returns the first
// listing error. Individual send failures are recorded on the draft and do
// not stop the pass.
func (w *Worker) DrainApproved(ctx context.Context) error {
	drafts, err := w.queue.List(ctx, queue.ListFilter{Status: domain.DraftApproved})
	if err != nil {
		return err
	}

	for i := range drafts {
		d := &drafts[i]
		messageID, err := w.mailer.Send(ctx, d)
		if err != nil {
			w.log.WithError(err).WithField("draft_id", d.ID).Warn("send failed")
			if _, err := w.queue.MarkFailed(ctx, d.ID, err.Error()); err != nil {
				w.log.WithError(err).WithField("draft_id", d.ID).Error("could not record failure")
			}
			continue
		}

		if _, err := w.queue.MarkSent(ctx, d.ID); err != nil {
			// The email is out; a bookkeeping failure must be loud.
			w.log.WithError(err).WithFields(logrus.Fields{
				"draft_id":   d.ID,
				"message_id": messageID,
			}).Error("draft sent but not marked sent")
			continue
		}
		if w.recorder != nil {
			if err := w.recorder.MarkSent(ctx, d.CustomerName, d.InvoiceNumbers()); err != nil {
				w.log.WithError(err).WithField("customer", d.CustomerName).Warn("cooldown record failed")
			}
		}
	}
	return nil
}
