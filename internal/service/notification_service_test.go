package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodconnect/bloodconnect-api/internal/models"
	"github.com/bloodconnect/bloodconnect-api/pkg/jobs"
)

type recordingSender struct {
	mu      sync.Mutex
	sent    []string
	bodies  []string
	sendErr error
}

func (r *recordingSender) Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return r.sendErr
	}
	r.sent = append(r.sent, toEmail)
	r.bodies = append(r.bodies, htmlBody)
	return nil
}

func (r *recordingSender) deliveries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

func TestNotifyDonorDelivers(t *testing.T) {
	sender := &recordingSender{}
	svc := NewNotificationService(sender, nil, nil, "http://localhost:8080", 2, 8)
	svc.Start(context.Background())
	defer svc.Stop()

	req := models.BloodRequest{ID: "req-1", Name: "Jordan", Age: 34, BloodType: "O+"}
	donor := models.Donor{ID: "d1", Name: "Sam", Email: "sam@example.com"}
	require.NoError(t, svc.NotifyDonor(req, donor))

	require.Eventually(t, func() bool {
		return len(sender.deliveries()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "sam@example.com", sender.deliveries()[0])
}

func TestNotificationBodyCarriesResponseLinks(t *testing.T) {
	svc := NewNotificationService(&recordingSender{}, nil, nil, "https://bloodconnect.example", 1, 1)

	req := models.BloodRequest{ID: "req-1", Name: "Jordan", Age: 34, BloodType: "O+"}
	donor := models.Donor{ID: "d1", Name: "Sam", Email: "sam@example.com"}
	body := svc.renderBody(req, donor)

	assert.Contains(t, body, "https://bloodconnect.example/api/v1/requests/req-1/respond?action=accept&donor=d1")
	assert.Contains(t, body, "https://bloodconnect.example/api/v1/requests/req-1/respond?action=reject")
	assert.Contains(t, body, "O+")
}

// A delivery failure is swallowed: the handler reports success to the queue
// so the job is never redelivered.
func TestNotificationFailureDoesNotPropagate(t *testing.T) {
	sender := &recordingSender{sendErr: errors.New("mailjet down")}
	svc := NewNotificationService(sender, nil, nil, "http://localhost:8080", 1, 1)

	err := svc.handle(context.Background(), jobs.Job{
		ID:   "j1",
		Type: jobTypeDonorNotification,
		Payload: donorNotification{
			Request: models.BloodRequest{ID: "req-1"},
			Donor:   models.Donor{ID: "d1", Email: "sam@example.com"},
		},
	})
	assert.NoError(t, err)
}

func TestNotificationUnexpectedPayloadIgnored(t *testing.T) {
	svc := NewNotificationService(&recordingSender{}, nil, nil, "http://localhost:8080", 1, 1)

	err := svc.handle(context.Background(), jobs.Job{ID: "j1", Type: jobTypeDonorNotification, Payload: "garbage"})
	assert.NoError(t, err)
}
