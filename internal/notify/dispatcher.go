package notify

import (
	"AssiScan/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	Subject      = "AssiScan Verification Complete - Document Copy"
	bodyTemplate = "Dear %s,\n\nYour documents have been verified by the AssiScan System.\n\nRegards,\nAssiScan Admin"
)

var (
	// ErrDispatch - транспорт не принял письмо.
	ErrDispatch = errors.New("notification dispatch failed")
	// ErrDispatchTimeout - транспорт не ответил за отведённое время.
	ErrDispatchTimeout = errors.New("notification dispatch timed out")
)

// Status - итог отправки уведомления.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome - результат Notify. Ошибка транспорта не выходит наружу, только здесь.
type Outcome struct {
	Status   Status
	Attached []string
	Err      error
}

// TimedOut сообщает, что отправка упала по таймауту.
func (o Outcome) TimedOut() bool {
	return errors.Is(o.Err, ErrDispatchTimeout)
}

// Attachment - файл, прикладываемый к письму.
type Attachment struct {
	Name string
	Data []byte
}

// Message - собранное письмо.
type Message struct {
	From        string
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Transport доставляет письмо до релея.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher собирает письмо по шаблону и отдаёт транспорту.
type Dispatcher struct {
	sender    string
	transport Transport
	files     storage.FileStorage
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

// NewDispatcher создаёт диспетчер. timeout <= 0 - без собственного ограничения.
func NewDispatcher(sender string, transport Transport, files storage.FileStorage, timeout time.Duration, logger *zap.SugaredLogger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		sender:    sender,
		transport: transport,
		files:     files,
		timeout:   timeout,
		logger:    logger,
	}
}

// Notify отправляет письмо получателю с теми вложениями из refs, что есть в хранилище.
// Пустой получатель - Skipped, транспорт не вызывается.
func (d *Dispatcher) Notify(ctx context.Context, recipient, subjectName string, refs []string) Outcome {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return Outcome{Status: StatusSkipped}
	}

	msg := Message{
		From:    d.sender,
		To:      recipient,
		Subject: Subject,
		Body:    fmt.Sprintf(bodyTemplate, subjectName),
	}
	for _, ref := range refs {
		a, ok := d.load(ctx, ref)
		if !ok {
			continue
		}
		msg.Attachments = append(msg.Attachments, a)
	}

	sendCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	attached := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attached = append(attached, a.Name)
	}

	if err := d.transport.Send(sendCtx, msg); err != nil {
		kind := ErrDispatch
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			kind = ErrDispatchTimeout
		}
		d.logger.Warnw("Notify: send failed", "to", recipient, "attachments", len(attached), "error", err)
		return Outcome{Status: StatusFailed, Attached: attached, Err: fmt.Errorf("%w: %w", kind, err)}
	}

	d.logger.Infow("Notify: sent", "to", recipient, "attachments", len(attached))
	return Outcome{Status: StatusSent, Attached: attached}
}

// load читает вложение; отсутствующий или нечитаемый файл пропускается.
func (d *Dispatcher) load(ctx context.Context, ref string) (Attachment, bool) {
	if ref == "" || d.files == nil {
		return Attachment{}, false
	}
	ok, err := d.files.Exists(ctx, ref)
	if err != nil || !ok {
		if err != nil {
			d.logger.Warnw("Notify: attachment check failed", "file", ref, "error", err)
		}
		return Attachment{}, false
	}
	rc, err := d.files.Open(ctx, ref)
	if err != nil {
		d.logger.Warnw("Notify: attachment open failed", "file", ref, "error", err)
		return Attachment{}, false
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		d.logger.Warnw("Notify: attachment read failed", "file", ref, "error", err)
		return Attachment{}, false
	}
	return Attachment{Name: ref, Data: data}, true
}
