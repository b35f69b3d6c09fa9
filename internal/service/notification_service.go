package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bloodconnect/bloodconnect-api/internal/models"
	"github.com/bloodconnect/bloodconnect-api/pkg/jobs"
	"github.com/bloodconnect/bloodconnect-api/pkg/mail"
)

const jobTypeDonorNotification = "donor_notification"

// donorNotification is the payload carried by one fan-out job.
type donorNotification struct {
	Request models.BloodRequest
	Donor   models.Donor
}

// NotificationService delivers donor notification emails through a worker
// queue. Delivery is fire-and-forget: a failed send is logged and counted
// but never retried and never surfaced to the operation that triggered it.
type NotificationService struct {
	queue   *jobs.Queue
	sender  mail.Sender
	metrics *MetricsService
	logger  *zap.Logger
	baseURL string
}

// NewNotificationService constructs the fan-out service. baseURL is the
// public address embedded in the accept/reject links.
func NewNotificationService(sender mail.Sender, metrics *MetricsService, logger *zap.Logger, baseURL string, workers, bufferSize int) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		sender:  sender,
		metrics: metrics,
		logger:  logger,
		baseURL: baseURL,
	}
	s.queue = jobs.NewQueue("donor-notifications", s.handle, jobs.QueueConfig{
		Workers:    workers,
		BufferSize: bufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyDonor enqueues one notification for one candidate donor.
func (s *NotificationService) NotifyDonor(req models.BloodRequest, donor models.Donor) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeDonorNotification,
		Payload: donorNotification{Request: req, Donor: donor},
	})
}

// handle always returns nil: notification failures must not propagate and
// must not trigger a redelivery.
func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(donorNotification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}

	subject := fmt.Sprintf("Urgent Blood Request for Blood Group %s", n.Request.BloodType)
	body := s.renderBody(n.Request, n.Donor)

	if err := s.sender.Send(ctx, n.Donor.Email, n.Donor.Name, subject, body); err != nil {
		s.metrics.RecordNotification(false)
		s.logger.Warn("donor notification delivery failed",
			zap.String("request_id", n.Request.ID),
			zap.String("donor_id", n.Donor.ID),
			zap.Error(err))
		return nil
	}

	s.metrics.RecordNotification(true)
	s.logger.Info("donor notified",
		zap.String("request_id", n.Request.ID),
		zap.String("donor_id", n.Donor.ID))
	return nil
}

func (s *NotificationService) renderBody(req models.BloodRequest, donor models.Donor) string {
	acceptURL := fmt.Sprintf("%s/api/v1/requests/%s/respond?action=accept&donor=%s", s.baseURL, req.ID, donor.ID)
	rejectURL := fmt.Sprintf("%s/api/v1/requests/%s/respond?action=reject", s.baseURL, req.ID)

	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: auto; border: 1px solid #ddd; padding: 20px; border-radius: 10px;">
  <h2 style="color: #d9534f; text-align: center;">Urgent Blood Donation Request</h2>
  <p>Hello %s,</p>
  <p>A patient is in urgent need of your blood group (<strong>%s</strong>). You can respond directly in the app, or use the buttons below.</p>
  <h3 style="color: #555;">Patient Details:</h3>
  <ul><li><strong>Name:</strong> %s</li><li><strong>Age:</strong> %d</li></ul>
  <div style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #5cb85c; color: white; padding: 15px 25px; text-decoration: none; border-radius: 5px; font-weight: bold; margin-right: 10px;">Yes, I Can Donate</a>
    <a href="%s" style="background-color: #d9534f; color: white; padding: 15px 25px; text-decoration: none; border-radius: 5px; font-weight: bold;">Sorry, I Cannot</a>
  </div>
  <p style="text-align: center; font-size: 0.9em; color: #888;">Thank you for being a hero!<br><strong>~ BloodConnect</strong></p>
</div>`, donor.Name, req.BloodType, req.Name, req.Age, acceptURL, rejectURL)
}
