package notifier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	commonerrors "fluidmeter-api-server/internal/api/common/errors"
	"fluidmeter-api-server/internal/mail"
	"fluidmeter-api-server/internal/models"
)

type OwnerDirectory interface {
	Owner(ctx context.Context, ownerID string) (*models.User, error)
}

type userDirectory struct {
	db *gorm.DB
}

func NewOwnerDirectory(db *gorm.DB) OwnerDirectory {
	return &userDirectory{db: db}
}

func (d *userDirectory) Owner(ctx context.Context, ownerID string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).Where("id = ?", ownerID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NotFoundErr("user", ownerID)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Deliverer runs on the worker side of AlertEmailTask.
type Deliverer struct {
	directory OwnerDirectory
	sender    mail.Sender
	logger    *zap.Logger
}

func NewDeliverer(directory OwnerDirectory, sender mail.Sender, logger *zap.Logger) *Deliverer {
	return &Deliverer{
		directory: directory,
		sender:    sender,
		logger:    logger,
	}
}

func (d *Deliverer) Deliver(ctx context.Context, ownerID, payload string) error {
	findings, err := DecodeFindings(payload)
	if err != nil {
		return fmt.Errorf("decode findings: %w", err)
	}
	if len(findings) == 0 {
		return nil
	}

	owner, err := d.directory.Owner(ctx, ownerID)
	if err != nil {
		return err
	}

	lines := make([]mail.AlertLine, 0, len(findings))
	for _, f := range findings {
		if f.Meter == nil {
			continue
		}
		alerts := make([]string, len(f.Alerts))
		for i, kind := range f.Alerts {
			alerts[i] = string(kind)
		}
		lines = append(lines, mail.AlertLine{
			MeterID:   f.Meter.ID,
			MeterName: f.Meter.Name,
			Alerts:    alerts,
		})
	}

	body, err := mail.RenderAlert(owner.Name, lines)
	if err != nil {
		return err
	}

	msg := mail.Message{
		To:      owner.Email,
		Subject: fmt.Sprintf("Fluid meter alert: %d meter(s) need attention", len(lines)),
		Body:    body,
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return err
	}

	d.logger.Info("alert mail sent",
		zap.String("owner_id", ownerID),
		zap.Int("meters", len(lines)))
	return nil
}
