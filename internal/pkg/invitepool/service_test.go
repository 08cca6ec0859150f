package invitepool

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackgram/trackgram/app/models"
	"github.com/trackgram/trackgram/internal/pkg/telegram"
)

type fakePoolRepo struct {
	available    int64
	created      []*models.InvitePoolLink
	candidates   []*models.InvitePoolLink
	claimResults []bool
	claims       []uint
}

func (f *fakePoolRepo) Create(link *models.InvitePoolLink) error {
	f.created = append(f.created, link)
	return nil
}
func (f *fakePoolRepo) CountAvailable(uint) (int64, error) { return f.available, nil }
func (f *fakePoolRepo) NextAvailable(uint) (*models.InvitePoolLink, error) {
	if len(f.candidates) == 0 {
		return nil, nil
	}
	next := f.candidates[0]
	f.candidates = f.candidates[1:]
	return next, nil
}
func (f *fakePoolRepo) Claim(id uint) (bool, error) {
	f.claims = append(f.claims, id)
	if len(f.claimResults) == 0 {
		return true, nil
	}
	result := f.claimResults[0]
	f.claimResults = f.claimResults[1:]
	return result, nil
}

type poolFunnelRepo struct {
	bot     *models.TelegramBot
	setting *models.WelcomeSetting
	funnels []models.Funnel
}

func (f *poolFunnelRepo) GetByID(uint) (*models.Funnel, error)     { return nil, nil }
func (f *poolFunnelRepo) GetAllWithBots() ([]models.Funnel, error) { return f.funnels, nil }
func (f *poolFunnelRepo) GetBot(uint) (*models.TelegramBot, error) { return f.bot, nil }
func (f *poolFunnelRepo) GetBotByID(uint) (*models.TelegramBot, error) {
	return f.bot, nil
}
func (f *poolFunnelRepo) GetIDsByBot(uint) ([]uint, error)       { return nil, nil }
func (f *poolFunnelRepo) GetPixels(uint) ([]models.Pixel, error) { return nil, nil }
func (f *poolFunnelRepo) GetWelcomeSetting(uint) (*models.WelcomeSetting, error) {
	return f.setting, nil
}
func (f *poolFunnelRepo) GetOwnerID(uint) (uint, error) { return 0, nil }

type bindingLinkRepo struct {
	upserted []*models.TelegramLink
}

func (r *bindingLinkRepo) GetByID(uint) (*models.TelegramLink, error) { return nil, nil }
func (r *bindingLinkRepo) GetByVisitorAndFunnel(string, uint) (*models.TelegramLink, error) {
	return nil, nil
}
func (r *bindingLinkRepo) GetLatestByVisitorPrefix(string) (*models.TelegramLink, error) {
	return nil, nil
}
func (r *bindingLinkRepo) GetLatestByInviteName(string) (*models.TelegramLink, error) {
	return nil, nil
}
func (r *bindingLinkRepo) GetLatestByTelegramUser(int64) (*models.TelegramLink, error) {
	return nil, nil
}
func (r *bindingLinkRepo) Create(*models.TelegramLink) error { return nil }
func (r *bindingLinkRepo) Update(*models.TelegramLink) error { return nil }
func (r *bindingLinkRepo) Upsert(link *models.TelegramLink) error {
	r.upserted = append(r.upserted, link)
	return nil
}
func (r *bindingLinkRepo) MarkWelcomeSent(uint, time.Time) (bool, error) {
	return false, nil
}

type fakePoolBot struct {
	params []telegram.CreateInviteLinkParams
	fail   bool
}

func (b *fakePoolBot) CreateInviteLink(ctx context.Context, params telegram.CreateInviteLinkParams) (*telegram.ChatInviteLink, error) {
	if b.fail {
		return nil, context.DeadlineExceeded
	}
	b.params = append(b.params, params)
	return &telegram.ChatInviteLink{InviteLink: "https://t.me/+" + params.Name, Name: params.Name}, nil
}

func testBot() *models.TelegramBot {
	return &models.TelegramBot{ID: 2, BotToken: "tok", ChatID: -100555, ChannelLink: "https://t.me/mychannel"}
}

func newTestService(pool *fakePoolRepo, funnels *poolFunnelRepo, links *bindingLinkRepo, bot *fakePoolBot) *Service {
	return NewServiceWithBot(pool, funnels, links, func(string) BotAPI { return bot })
}

func TestReplenishTopsUpToTargetInBatches(t *testing.T) {
	pool := &fakePoolRepo{available: 17}
	bot := &fakePoolBot{}
	s := newTestService(pool, &poolFunnelRepo{}, &bindingLinkRepo{}, bot)

	created, err := s.Replenish(context.Background(), 1, testBot())
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	// An empty pool only gets one batch per pass.
	pool = &fakePoolRepo{available: 0}
	s = newTestService(pool, &poolFunnelRepo{}, &bindingLinkRepo{}, bot)
	created, err = s.Replenish(context.Background(), 1, testBot())
	require.NoError(t, err)
	assert.Equal(t, BatchMax, created)
}

func TestReplenishNoopWhenFull(t *testing.T) {
	pool := &fakePoolRepo{available: PoolTarget}
	s := newTestService(pool, &poolFunnelRepo{}, &bindingLinkRepo{}, &fakePoolBot{})

	created, err := s.Replenish(context.Background(), 1, testBot())
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, pool.created)
}

func TestReplenishLinkShape(t *testing.T) {
	pool := &fakePoolRepo{available: PoolTarget - 1}
	bot := &fakePoolBot{}
	s := newTestService(pool, &poolFunnelRepo{}, &bindingLinkRepo{}, bot)

	_, err := s.Replenish(context.Background(), 1, testBot())
	require.NoError(t, err)

	require.Len(t, bot.params, 1)
	p := bot.params[0]
	assert.True(t, strings.HasPrefix(p.Name, "pool_"))
	assert.LessOrEqual(t, len(p.Name), len("pool_")+20)
	assert.Equal(t, 1, p.MemberLimit)
	assert.False(t, p.CreatesJoinRequest)
	assert.Positive(t, p.ExpireDate)

	require.Len(t, pool.created, 1)
	assert.Equal(t, models.POOL_STATUS_AVAILABLE, pool.created[0].Status)
	assert.Equal(t, p.Name, pool.created[0].InviteName)
}

func TestIssuePrefersPool(t *testing.T) {
	pool := &fakePoolRepo{candidates: []*models.InvitePoolLink{
		{ID: 8, InviteLink: "https://t.me/+pooled", InviteName: "pool_aaa"},
	}}
	links := &bindingLinkRepo{}
	s := newTestService(pool, &poolFunnelRepo{bot: testBot()}, links, &fakePoolBot{})

	result, err := s.Issue(context.Background(), "vis-1", 1)
	require.NoError(t, err)
	assert.Equal(t, TypePool, result.Type)
	assert.Equal(t, "https://t.me/+pooled", result.InviteLink)

	require.Len(t, links.upserted, 1)
	assert.Equal(t, "vis-1", links.upserted[0].VisitorID)
	assert.Equal(t, "pool_aaa", links.upserted[0].Metadata.InviteName)
	assert.Equal(t, models.LINK_TYPE_POOL, links.upserted[0].Metadata.Type)
}

func TestIssueRetriesLostClaim(t *testing.T) {
	pool := &fakePoolRepo{
		candidates: []*models.InvitePoolLink{
			{ID: 1, InviteLink: "https://t.me/+taken", InviteName: "pool_taken"},
			{ID: 2, InviteLink: "https://t.me/+free", InviteName: "pool_free"},
		},
		claimResults: []bool{false, true},
	}
	s := newTestService(pool, &poolFunnelRepo{bot: testBot()}, &bindingLinkRepo{}, &fakePoolBot{})

	result, err := s.Issue(context.Background(), "vis-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+free", result.InviteLink)
	assert.Equal(t, []uint{1, 2}, pool.claims)
}

func TestIssueFallsBackToOnDemand(t *testing.T) {
	bot := &fakePoolBot{}
	links := &bindingLinkRepo{}
	s := newTestService(&fakePoolRepo{}, &poolFunnelRepo{bot: testBot()}, links, bot)

	result, err := s.Issue(context.Background(), "visitor-1234", 1)
	require.NoError(t, err)
	assert.Equal(t, TypeDynamic, result.Type)
	assert.Equal(t, "v_visitor-1234", result.InviteName)

	require.Len(t, bot.params, 1)
	assert.Equal(t, 1, bot.params[0].MemberLimit)
	assert.False(t, bot.params[0].CreatesJoinRequest)
}

func TestIssueOnDemandTruncatesLongVisitorID(t *testing.T) {
	bot := &fakePoolBot{}
	s := newTestService(&fakePoolRepo{}, &poolFunnelRepo{bot: testBot()}, &bindingLinkRepo{}, bot)

	longID := strings.Repeat("a", 40)
	result, err := s.Issue(context.Background(), longID, 1)
	require.NoError(t, err)
	assert.Equal(t, "v_"+strings.Repeat("a", 28), result.InviteName)
}

func TestIssueOnDemandUsesJoinRequestWhenWelcomeActive(t *testing.T) {
	bot := &fakePoolBot{}
	funnels := &poolFunnelRepo{
		bot:     testBot(),
		setting: &models.WelcomeSetting{IsActive: true, MessageText: "hi"},
	}
	links := &bindingLinkRepo{}
	s := newTestService(&fakePoolRepo{}, funnels, links, bot)

	_, err := s.Issue(context.Background(), "vis-1", 1)
	require.NoError(t, err)

	require.Len(t, bot.params, 1)
	assert.True(t, bot.params[0].CreatesJoinRequest)
	assert.Zero(t, bot.params[0].MemberLimit)

	require.Len(t, links.upserted, 1)
	assert.True(t, links.upserted[0].Metadata.RequiresApproval)
}

func TestIssueStaticFallbackWhenLinkCreationFails(t *testing.T) {
	bot := &fakePoolBot{fail: true}
	s := newTestService(&fakePoolRepo{}, &poolFunnelRepo{bot: testBot()}, &bindingLinkRepo{}, bot)

	result, err := s.Issue(context.Background(), "vis-1", 1)
	require.NoError(t, err)
	assert.Equal(t, TypeFallback, result.Type)
	assert.Equal(t, "https://t.me/mychannel", result.InviteLink)
}

func TestIssueErrNoBot(t *testing.T) {
	s := newTestService(&fakePoolRepo{}, &poolFunnelRepo{}, &bindingLinkRepo{}, &fakePoolBot{})

	_, err := s.Issue(context.Background(), "vis-1", 1)
	assert.ErrorIs(t, err, ErrNoBot)
}

func TestReplenishAllSkipsFunnelsWithoutUsableBot(t *testing.T) {
	bot := &fakePoolBot{}
	pool := &fakePoolRepo{available: PoolTarget - 1}
	funnels := &poolFunnelRepo{funnels: []models.Funnel{
		{ID: 1, Bot: &models.TelegramBot{BotToken: "tok", ChatID: -1}},
		{ID: 2, Bot: &models.TelegramBot{}}, // no token, no chat
		{ID: 3},                             // no bot at all
	}}
	s := newTestService(pool, funnels, &bindingLinkRepo{}, bot)

	s.ReplenishAll(context.Background())

	// Only funnel 1 got links minted.
	assert.Len(t, bot.params, 1)
}
