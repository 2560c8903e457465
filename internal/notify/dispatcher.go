package notify

import (
	"context"
	"sync"
	"time"

	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/metrics"
)

// Dispatcher sends notifications in the background. Callers never wait on
// delivery and never see its errors.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, timeout: timeout, log: log, metrics: m}
}

// Notify sends one email. kind labels the failure metric.
func (d *Dispatcher) Notify(kind, to, subject, html string) {
	if d == nil || d.sender == nil || to == "" {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.send(kind, to, subject, html)
	}()
}

// NotifyAll sends the same email to every recipient, one after another, in a
// single background goroutine. A failed recipient does not stop the rest.
func (d *Dispatcher) NotifyAll(kind string, recipients []string, subject, html string) {
	if d == nil || d.sender == nil || len(recipients) == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, to := range recipients {
			if to == "" {
				continue
			}
			d.send(kind, to, subject, html)
		}
	}()
}

func (d *Dispatcher) send(kind, to, subject, html string) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("NOTIFY", "Recovered from panic while sending notification")
			d.metrics.NotificationFailed(kind)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.sender.Send(ctx, to, subject, html)
	d.log.LogNotify(to, subject, err)
	if err != nil {
		d.metrics.NotificationFailed(kind)
	}
}

// Wait blocks until every in-flight notification has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

// LogSender writes emails to the log instead of sending them. Used when
// NOTIFY_ENABLED is false.
type LogSender struct {
	Log *logger.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.Log.Info("NOTIFY", "Email delivery disabled, dropping \""+subject+"\" for "+to)
	return nil
}
