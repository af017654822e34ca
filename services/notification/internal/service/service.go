package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/events"
	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/observability"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/email"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/repository"
)

// NotificationService содержит бизнес-логику обработки уведомлений
type NotificationService struct {
	logger      *zap.Logger
	repo        repository.InboxRepository
	whatsapp    WhatsAppSender
	email       EmailSender
	renderer    Renderer
	adminEmails []string
}

// NewNotificationService создаёт новый экземпляр NotificationService
func NewNotificationService(
	logger *zap.Logger,
	repo repository.InboxRepository,
	whatsapp WhatsAppSender,
	emailSender EmailSender,
	renderer Renderer,
	adminEmails []string,
) *NotificationService {
	return &NotificationService{
		logger:      logger,
		repo:        repo,
		whatsapp:    whatsapp,
		email:       emailSender,
		renderer:    renderer,
		adminEmails: adminEmails,
	}
}

// HandleEvent обрабатывает доменное событие.
// Идемпотентность через inbox: sent событие повторно не отправляется,
// при ошибке канала запись остаётся pending и событие повторяется целиком.
func (s *NotificationService) HandleEvent(ctx context.Context, e events.Envelope, src Source) error {
	logger := observability.L(ctx, s.logger).With(
		zap.String("event_id", e.EventID),
		zap.String("event_type", e.EventType),
		zap.String("doctor_id", e.Doctor.ID),
	)

	res, err := s.repo.UpsertInboxPending(ctx, repository.InboxEvent{
		EventID:     e.EventID,
		EventType:   e.EventType,
		AggregateID: aggregateID(e),
		OccurredAt:  e.OccurredAt,
		Topic:       src.Topic,
		Partition:   src.Partition,
		Offset:      src.Offset,
	})
	if err != nil {
		logger.Error("failed to upsert inbox event", zap.Error(err))
		return err
	}
	if res.AlreadyProcessed {
		logger.Info("event already processed (duplicate)")
		return nil
	}

	deliveries := s.resolve(e, logger)
	if len(deliveries) == 0 {
		logger.Warn("no deliveries for event")
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, d := range deliveries {
		g.Go(func() error {
			if err := s.deliver(ctx, e, d); err != nil {
				logger.Warn("delivery failed", zap.Stringer("delivery", d), zap.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", d, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		if markErr := s.repo.MarkInboxFailed(ctx, e.EventID, err.Error()); markErr != nil {
			logger.Error("failed to mark inbox event failed", zap.Error(markErr))
		}
		return err
	}

	if err := s.repo.MarkInboxSent(ctx, e.EventID); err != nil {
		logger.Error("failed to mark inbox event sent", zap.Error(err))
		return err
	}

	logger.Info("notifications sent", zap.Int("deliveries", len(deliveries)), zap.Int("attempt", res.Attempts))
	return nil
}

// resolve план события без доставок, для которых нет адресата
func (s *NotificationService) resolve(e events.Envelope, logger *zap.Logger) []Delivery {
	var out []Delivery
	for _, d := range PlanFor(e.EventType) {
		switch {
		case d.Audience == AudienceDoctor && d.Channel == ChannelWhatsApp && e.Doctor.Phone == "":
			logger.Debug("doctor has no phone, skipping whatsapp")
		case d.Audience == AudienceDoctor && d.Channel == ChannelEmail && e.Doctor.Email == "":
			logger.Debug("doctor has no email, skipping email")
		case d.Audience == AudienceAdmin && len(s.adminEmails) == 0:
			logger.Debug("no admin recipients configured, skipping admin email")
		default:
			out = append(out, d)
		}
	}
	return out
}

func (s *NotificationService) deliver(ctx context.Context, e events.Envelope, d Delivery) error {
	names := TemplateNames(e.EventType, d)
	rendered := make([]string, len(names))
	for i, name := range names {
		text, err := s.renderer.Render(name, e)
		if err != nil {
			return err
		}
		rendered[i] = text
	}

	switch d.Channel {
	case ChannelWhatsApp:
		return s.whatsapp.Send(ctx, e.Doctor.Phone, rendered[0])
	case ChannelEmail:
		to := []string{e.Doctor.Email}
		if d.Audience == AudienceAdmin {
			to = s.adminEmails
		}
		return s.email.Send(ctx, email.Message{To: to, Subject: rendered[0], Body: rendered[1]})
	}
	return fmt.Errorf("unknown channel %s", d.Channel)
}

func aggregateID(e events.Envelope) string {
	switch {
	case e.Order != nil:
		return e.Order.ID
	case e.Payment != nil:
		return e.Payment.ID
	}
	return e.Doctor.ID
}
