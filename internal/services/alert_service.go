package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
)

// AlertService implements alert.Service
type AlertService struct {
	repo      alert.Repository
	publisher alert.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewAlertService creates a new alert service. publisher may be nil, in
// which case alerts are only stored.
func NewAlertService(repo alert.Repository, publisher alert.Publisher, log *logger.Logger) *AlertService {
	return &AlertService{
		repo:      repo,
		publisher: publisher,
		logger:    log.WithComponent("alert-service"),
		now:       time.Now,
	}
}

// Send stores a new active alert and then publishes it
func (s *AlertService) Send(ctx context.Context, in alert.SendInput) (*alert.Alert, error) {
	if in.AccountID == "" || in.Title == "" {
		return nil, errors.BadRequest("alert requires an account id and a title")
	}

	a := &alert.Alert{
		ID:        "alert-" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		AccountID: in.AccountID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Severity:  in.Severity,
		Status:    alert.StatusActive,
		CreatedAt: s.now().UTC(),
		Metadata:  in.Metadata,
	}
	if a.Type == "" {
		a.Type = alert.TypeThreshold
	}
	if a.Severity == "" {
		a.Severity = alert.SeverityInfo
	}

	if err := s.repo.Put(ctx, a); err != nil {
		s.logger.ErrorWithErr(err, "Failed to store alert")
		return nil, err
	}

	log := s.logger.WithFields(map[string]interface{}{
		"alert_id":   a.ID,
		"account_id": a.AccountID,
		"severity":   a.Severity,
		"type":       a.Type,
	})

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, a); err != nil {
			log.WarnWithErr(err, "Alert stored but not published")
			return a, nil
		}
	}

	log.Info("Alert sent")
	return a, nil
}

// List retrieves alerts most recent first
func (s *AlertService) List(ctx context.Context, accountID string, filter alert.Filter, limit int) ([]*alert.Alert, error) {
	return s.repo.List(ctx, accountID, filter, limit)
}

// UpdateStatus acknowledges or resolves an alert. Each timestamp is stamped
// the first time the alert enters that state.
func (s *AlertService) UpdateStatus(ctx context.Context, accountID, id, status string) (*alert.Alert, error) {
	if !alert.IsValidStatus(status) {
		return nil, errors.BadRequest(fmt.Sprintf("invalid alert status %q", status))
	}

	a, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	a.Status = status
	switch status {
	case alert.StatusAcknowledged:
		if a.AcknowledgedAt == nil {
			a.AcknowledgedAt = &now
		}
	case alert.StatusResolved:
		if a.ResolvedAt == nil {
			a.ResolvedAt = &now
		}
	}

	if err := s.repo.Update(ctx, a); err != nil {
		s.logger.ErrorWithErr(err, "Failed to update alert status")
		return nil, err
	}
	return a, nil
}
