// Package notification delivers appointment email/SMS notifications through a
// fire-and-forget dispatch queue. Delivery failures are logged, never
// propagated to the caller.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Kind identifies the lifecycle event that triggered a notification.
type Kind string

const (
	KindCreated     Kind = "created"
	KindRescheduled Kind = "rescheduled"
	KindCancelled   Kind = "cancelled"
	KindReminder    Kind = "reminder"
)

// Appointment is the minimal appointment view a notification needs. It is a
// plain value so the dispatcher stays decoupled from the scheduling domain.
type Appointment struct {
	ID           string
	PatientName  string
	PatientEmail string
	PatientPhone string
	DoctorName   string
	Date         string
	TimeSlot     string
}

// Message is a queued notification awaiting delivery.
type Message struct {
	Kind        Kind
	Appointment Appointment
}

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender is the interface for sending SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template defines a reusable notification template.
type Template struct {
	Subject string
	Body    string
}

// TemplateEngine renders notification templates with {{placeholder}} data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[Kind]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[Kind]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := map[Kind]*Template{
		KindCreated: {
			Subject: "Appointment Booked",
			Body:    "Dear {{patient_name}}, your appointment with Dr. {{doctor_name}} on {{date}} at {{time_slot}} has been booked.",
		},
		KindRescheduled: {
			Subject: "Appointment Rescheduled",
			Body:    "Dear {{patient_name}}, your appointment with Dr. {{doctor_name}} has been moved to {{date}} at {{time_slot}}.",
		},
		KindCancelled: {
			Subject: "Appointment Cancelled",
			Body:    "Dear {{patient_name}}, your appointment with Dr. {{doctor_name}} on {{date}} at {{time_slot}} has been cancelled.",
		},
		KindReminder: {
			Subject: "Appointment Reminder",
			Body:    "Dear {{patient_name}}, this is a reminder of your appointment tomorrow at {{time_slot}} with Dr. {{doctor_name}}.",
		},
	}
	for k, t := range builtIn {
		e.templates[k] = t
	}
}

// Register adds or replaces the template for a kind.
func (e *TemplateEngine) Register(kind Kind, t *Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[kind] = t
}

// Render produces the subject and body for a message.
func (e *TemplateEngine) Render(msg Message) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[msg.Kind]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("no template for kind %q", msg.Kind)
	}

	data := map[string]string{
		"patient_name": msg.Appointment.PatientName,
		"doctor_name":  msg.Appointment.DoctorName,
		"date":         msg.Appointment.Date,
		"time_slot":    msg.Appointment.TimeSlot,
	}
	return substitute(t.Subject, data), substitute(t.Body, data), nil
}

func substitute(s string, data map[string]string) string {
	for key, val := range data {
		s = strings.ReplaceAll(s, "{{"+key+"}}", val)
	}
	return s
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

// Dispatcher queues notifications and delivers them on a background worker.
// Notify never blocks the caller and never returns an error; a full queue
// drops the message with a log entry.
type Dispatcher struct {
	queue     chan Message
	email     EmailSender
	sms       SMSSender
	templates *TemplateEngine
	logger    zerolog.Logger
}

func NewDispatcher(email EmailSender, sms SMSSender, logger zerolog.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		queue:     make(chan Message, queueSize),
		email:     email,
		sms:       sms,
		templates: NewTemplateEngine(),
		logger:    logger,
	}
}

// Notify enqueues a notification for asynchronous delivery.
func (d *Dispatcher) Notify(kind Kind, appt Appointment) {
	select {
	case d.queue <- Message{Kind: kind, Appointment: appt}:
	default:
		d.logger.Warn().
			Str("kind", string(kind)).
			Str("appointment_id", appt.ID).
			Msg("notification queue full, dropping message")
	}
}

// Start runs the delivery worker until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.queue:
			if err := d.deliver(ctx, msg); err != nil {
				d.logger.Error().Err(err).
					Str("kind", string(msg.Kind)).
					Str("appointment_id", msg.Appointment.ID).
					Msg("notification delivery failed")
			}
		}
	}
}

// Drain delivers everything currently queued, for tests and shutdown.
func (d *Dispatcher) Drain(ctx context.Context) {
	for {
		select {
		case msg := <-d.queue:
			if err := d.deliver(ctx, msg); err != nil {
				d.logger.Error().Err(err).
					Str("kind", string(msg.Kind)).
					Msg("notification delivery failed")
			}
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) error {
	subject, body, err := d.templates.Render(msg)
	if err != nil {
		return err
	}

	var firstErr error
	if d.email != nil && msg.Appointment.PatientEmail != "" {
		if err := d.email.SendEmail(ctx, msg.Appointment.PatientEmail, subject, body); err != nil {
			firstErr = fmt.Errorf("email to %s: %w", msg.Appointment.PatientEmail, err)
		}
	}
	if d.sms != nil && msg.Appointment.PatientPhone != "" {
		if err := d.sms.SendSMS(ctx, msg.Appointment.PatientPhone, body); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sms to %s: %w", msg.Appointment.PatientPhone, err)
		}
	}
	return firstErr
}

// LogSender is an EmailSender/SMSSender that only logs, used in development
// when no real provider is configured.
type LogSender struct {
	Logger zerolog.Logger
}

func (l LogSender) SendEmail(_ context.Context, to, subject, _ string) error {
	l.Logger.Info().Str("to", to).Str("subject", subject).Msg("email (log sender)")
	return nil
}

func (l LogSender) SendSMS(_ context.Context, to, _ string) error {
	l.Logger.Info().Str("to", to).Msg("sms (log sender)")
	return nil
}
