// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"fmt"

	"github.com/propertyshodh/lead-pipeline/models"
)

// NotificationService delivers follow-up reminders to operators
type NotificationService interface {
	NotifyFollowUpDue(ctx context.Context, admin *models.Admin, lead *models.Lead) error
}

// NotificationServiceImpl implements NotificationService over SMS
type NotificationServiceImpl struct {
	sms SMSService
}

// NewNotificationService creates a new notification service
func NewNotificationService(sms SMSService) NotificationService {
	return &NotificationServiceImpl{sms: sms}
}

// NotifyFollowUpDue sends the owning operator a reminder that a lead's
// follow-up time has arrived.
func (s *NotificationServiceImpl) NotifyFollowUpDue(ctx context.Context, admin *models.Admin, lead *models.Lead) error {
	if s.sms == nil {
		return fmt.Errorf("SMS service not configured")
	}
	if admin.Phone == nil || *admin.Phone == "" {
		return fmt.Errorf("admin %d has no phone number on file", admin.ID)
	}

	message := fmt.Sprintf("Follow-up due: %s (%s), status %s", lead.Name, lead.Phone, lead.Status)
	return s.sms.SendSMS(ctx, *admin.Phone, message)
}
