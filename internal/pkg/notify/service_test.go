package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackgram/trackgram/app/models"
	"github.com/trackgram/trackgram/internal/pkg/pushcut"
)

type notifyFunnelRepo struct {
	ownerID uint
}

func (f *notifyFunnelRepo) GetByID(uint) (*models.Funnel, error)         { return nil, nil }
func (f *notifyFunnelRepo) GetAllWithBots() ([]models.Funnel, error)     { return nil, nil }
func (f *notifyFunnelRepo) GetBot(uint) (*models.TelegramBot, error)     { return nil, nil }
func (f *notifyFunnelRepo) GetBotByID(uint) (*models.TelegramBot, error) { return nil, nil }
func (f *notifyFunnelRepo) GetIDsByBot(uint) ([]uint, error)             { return nil, nil }
func (f *notifyFunnelRepo) GetPixels(uint) ([]models.Pixel, error)       { return nil, nil }
func (f *notifyFunnelRepo) GetWelcomeSetting(uint) (*models.WelcomeSetting, error) {
	return nil, nil
}
func (f *notifyFunnelRepo) GetOwnerID(uint) (uint, error) { return f.ownerID, nil }

type fakePushcutRepo struct {
	integration  *models.PushcutIntegration
	notification *models.PushcutNotification
	logs         []*models.PushcutLog
}

func (f *fakePushcutRepo) GetActiveIntegration(uint) (*models.PushcutIntegration, error) {
	return f.integration, nil
}
func (f *fakePushcutRepo) GetEnabledNotification(integrationID uint, eventType string) (*models.PushcutNotification, error) {
	if f.notification != nil && f.notification.EventType == eventType {
		return f.notification, nil
	}
	return nil, nil
}
func (f *fakePushcutRepo) CreateLog(entry *models.PushcutLog) error {
	f.logs = append(f.logs, entry)
	return nil
}

type fakeSender struct {
	sent []pushcut.Notification
	err  error
}

func (s *fakeSender) Send(ctx context.Context, n pushcut.Notification) error {
	s.sent = append(s.sent, n)
	return s.err
}

func TestNotifyRendersAndDelivers(t *testing.T) {
	repo := &fakePushcutRepo{
		integration: &models.PushcutIntegration{ID: 3, APIKey: "key", NotificationName: "leads"},
		notification: &models.PushcutNotification{
			EventType:     models.PUSHCUT_EVENT_MEMBER_JOIN,
			TitleTemplate: "New member in {channel}",
			TextTemplate:  "{first_name} joined",
			Sound:         "jackpot",
		},
	}
	sender := &fakeSender{}
	s := NewService(&notifyFunnelRepo{ownerID: 7}, repo, sender)

	err := s.Notify(context.Background(), 1, models.PUSHCUT_EVENT_MEMBER_JOIN, map[string]string{
		"channel":    "My Channel",
		"first_name": "Ana",
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "New member in My Channel", sender.sent[0].Title)
	assert.Equal(t, "Ana joined", sender.sent[0].Text)
	assert.Equal(t, "jackpot", sender.sent[0].Sound)
	assert.Equal(t, "key", sender.sent[0].APIKey)

	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.PUSHCUT_STATUS_SENT, repo.logs[0].Status)
}

func TestNotifySkipsWithoutIntegration(t *testing.T) {
	sender := &fakeSender{}
	s := NewService(&notifyFunnelRepo{ownerID: 7}, &fakePushcutRepo{}, sender)

	err := s.Notify(context.Background(), 1, models.PUSHCUT_EVENT_MEMBER_JOIN, nil)
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestNotifySkipsDisabledEventType(t *testing.T) {
	repo := &fakePushcutRepo{
		integration: &models.PushcutIntegration{ID: 3},
		notification: &models.PushcutNotification{
			EventType: models.PUSHCUT_EVENT_MEMBER_LEAVE,
		},
	}
	sender := &fakeSender{}
	s := NewService(&notifyFunnelRepo{ownerID: 7}, repo, sender)

	err := s.Notify(context.Background(), 1, models.PUSHCUT_EVENT_MEMBER_JOIN, nil)
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
	assert.Empty(t, repo.logs)
}

func TestNotifyFailureIsLogged(t *testing.T) {
	repo := &fakePushcutRepo{
		integration: &models.PushcutIntegration{ID: 3, APIKey: "key"},
		notification: &models.PushcutNotification{
			EventType:     models.PUSHCUT_EVENT_NEW_LEAD,
			TitleTemplate: "Lead",
		},
	}
	sender := &fakeSender{err: errors.New("server unreachable")}
	s := NewService(&notifyFunnelRepo{ownerID: 7}, repo, sender)

	err := s.Notify(context.Background(), 1, models.PUSHCUT_EVENT_NEW_LEAD, nil)
	require.Error(t, err)

	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.PUSHCUT_STATUS_FAILED, repo.logs[0].Status)
	assert.Contains(t, repo.logs[0].ErrorMessage, "unreachable")
}
