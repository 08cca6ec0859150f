package attribution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackgram/trackgram/app/models"
)

type recordingLinkRepo struct {
	fakeLinkRepo
	existing *models.TelegramLink
	updated  *models.TelegramLink
	upserted *models.TelegramLink
}

func (r *recordingLinkRepo) GetByVisitorAndFunnel(visitorID string, funnelID uint) (*models.TelegramLink, error) {
	return r.existing, nil
}

func (r *recordingLinkRepo) Update(link *models.TelegramLink) error {
	r.updated = link
	return nil
}

func (r *recordingLinkRepo) Upsert(link *models.TelegramLink) error {
	link.ID = 99
	r.upserted = link
	return nil
}

func TestLinkUpdatesExistingRow(t *testing.T) {
	repo := &recordingLinkRepo{
		existing: &models.TelegramLink{
			ID:        5,
			VisitorID: "vis-1",
			FunnelID:  2,
			Metadata: models.LinkMetadata{
				InviteLink: "https://t.me/+old",
				Type:       models.LINK_TYPE_POOL,
			},
		},
	}
	l := NewLinker(repo)
	l.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	id, err := l.Link(LinkParams{
		VisitorID:      "vis-1",
		FunnelID:       2,
		TelegramUserID: 42,
		TelegramName:   "Ana Silva",
		Metadata:       models.LinkMetadata{LinkedVia: models.LINKED_VIA_CHAT_MEMBER},
	})
	require.NoError(t, err)
	assert.Equal(t, uint(5), id)

	require.NotNil(t, repo.updated)
	assert.Equal(t, int64(42), repo.updated.TelegramUserID)
	// Merge keeps what the update did not carry.
	assert.Equal(t, "https://t.me/+old", repo.updated.Metadata.InviteLink)
	assert.Equal(t, models.LINKED_VIA_CHAT_MEMBER, repo.updated.Metadata.LinkedVia)
	assert.Nil(t, repo.upserted)
}

func TestLinkCreatesNewRow(t *testing.T) {
	repo := &recordingLinkRepo{}
	l := NewLinker(repo)

	id, err := l.Link(LinkParams{
		VisitorID:      "vis-2",
		FunnelID:       3,
		BotID:          1,
		TelegramUserID: 7,
		TelegramName:   "Bea",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(99), id)

	require.NotNil(t, repo.upserted)
	assert.Equal(t, "vis-2", repo.upserted.VisitorID)
	assert.Equal(t, "Bea", repo.upserted.Metadata.TelegramName)
	assert.False(t, repo.upserted.LinkedAt.IsZero())
}
