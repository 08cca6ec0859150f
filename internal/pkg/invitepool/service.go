package invitepool

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/trackgram/trackgram/app/models"
	"github.com/trackgram/trackgram/app/repository"
	"github.com/trackgram/trackgram/internal/pkg/attribution"
	"github.com/trackgram/trackgram/internal/pkg/telegram"
)

const (
	// Pool sizing. One replenishment pass tops a funnel up by at most
	// BatchMax links so no single pass hammers the Bot API.
	PoolTarget = 20
	BatchMax   = 5

	batchDelay = 100 * time.Millisecond

	poolExpiry     = 7 * 24 * time.Hour
	onDemandExpiry = 24 * time.Hour

	poolNameLen     = 20
	onDemandNameLen = 28

	claimAttempts = 3
)

// Invite issue types as reported to API clients.
const (
	TypePool     = "pool"
	TypeDynamic  = "dynamic"
	TypeFallback = "fallback"
)

// BotAPI is the slice of the Bot API the pool needs.
type BotAPI interface {
	CreateInviteLink(ctx context.Context, params telegram.CreateInviteLinkParams) (*telegram.ChatInviteLink, error)
}

// Service owns the invite link lifecycle: keeping per-funnel pools topped up
// and handing a visitor exactly one trackable link per request.
type Service struct {
	pool    repository.InvitePoolRepository
	funnels repository.FunnelRepository
	links   repository.TelegramLinkRepository
	newBot  func(token string) BotAPI
	now     func() time.Time
	sleep   func(time.Duration)
}

// NewService creates an invite pool service.
func NewService(pool repository.InvitePoolRepository, funnels repository.FunnelRepository, links repository.TelegramLinkRepository) *Service {
	return &Service{
		pool:    pool,
		funnels: funnels,
		links:   links,
		newBot:  func(token string) BotAPI { return telegram.NewClient(token) },
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// NewServiceWithBot creates a service with a custom bot factory (tests).
func NewServiceWithBot(pool repository.InvitePoolRepository, funnels repository.FunnelRepository, links repository.TelegramLinkRepository, newBot func(token string) BotAPI) *Service {
	s := NewService(pool, funnels, links)
	s.newBot = newBot
	s.sleep = func(time.Duration) {}
	return s
}

// ReplenishAll tops up the pool of every funnel that has a bot able to mint
// invites. Per-funnel failures are logged and do not stop the sweep.
func (s *Service) ReplenishAll(ctx context.Context) {
	funnels, err := s.funnels.GetAllWithBots()
	if err != nil {
		log.Errorf("[InvitePool] Funnel sweep failed: %v", err)
		return
	}

	for _, funnel := range funnels {
		if funnel.Bot == nil || !funnel.Bot.CanCreateInvites() {
			continue
		}
		created, err := s.Replenish(ctx, funnel.ID, funnel.Bot)
		if err != nil {
			log.Errorf("[InvitePool] Replenish for funnel %d failed: %v", funnel.ID, err)
			continue
		}
		if created > 0 {
			log.Infof("[InvitePool] Funnel %d topped up with %d links", funnel.ID, created)
		}
	}
}

// Replenish creates up to BatchMax links for one funnel, stopping at the pool
// target. Returns how many links were created.
func (s *Service) Replenish(ctx context.Context, funnelID uint, bot *models.TelegramBot) (int, error) {
	available, err := s.pool.CountAvailable(funnelID)
	if err != nil {
		return 0, err
	}

	missing := PoolTarget - int(available)
	if missing <= 0 {
		return 0, nil
	}
	if missing > BatchMax {
		missing = BatchMax
	}

	client := s.newBot(bot.BotToken)
	created := 0
	for i := 0; i < missing; i++ {
		name := poolName()
		link, err := client.CreateInviteLink(ctx, telegram.CreateInviteLinkParams{
			ChatID:      bot.ChatID,
			Name:        name,
			MemberLimit: 1,
			ExpireDate:  s.now().Add(poolExpiry).Unix(),
		})
		if err != nil {
			// Partial batches are fine, the next pass fills the gap.
			log.Warnf("[InvitePool] Link creation for funnel %d failed after %d: %v", funnelID, created, err)
			break
		}
		if err := s.pool.Create(&models.InvitePoolLink{
			FunnelID:   funnelID,
			InviteLink: link.InviteLink,
			InviteName: name,
			Status:     models.POOL_STATUS_AVAILABLE,
		}); err != nil {
			return created, err
		}
		created++
		if i < missing-1 {
			s.sleep(batchDelay)
		}
	}
	return created, nil
}

// IssueResult is one invite link handed to a visitor.
type IssueResult struct {
	InviteLink string `json:"invite_link"`
	InviteName string `json:"invite_name,omitempty"`
	Type       string `json:"type"`
}

// Issue hands the visitor an invite link for the funnel: a pooled link when
// one can be claimed, a freshly minted one otherwise, and the bot's static
// channel link as the last resort. Pool and dynamic issues bind the link to
// the visitor so the join webhook can decode it back.
func (s *Service) Issue(ctx context.Context, visitorID string, funnelID uint) (*IssueResult, error) {
	bot, err := s.funnels.GetBot(funnelID)
	if err != nil {
		return nil, err
	}
	if bot == nil {
		return nil, ErrNoBot
	}

	if result := s.issueFromPool(funnelID, visitorID, bot); result != nil {
		return result, nil
	}

	if bot.CanCreateInvites() {
		result, err := s.issueOnDemand(ctx, visitorID, funnelID, bot)
		if err == nil {
			return result, nil
		}
		log.Errorf("[InvitePool] On-demand link for visitor %s failed: %v", visitorID, err)
	}

	if bot.ChannelLink != "" {
		log.Warnf("[InvitePool] Falling back to static channel link for visitor %s", visitorID)
		return &IssueResult{InviteLink: bot.ChannelLink, Type: TypeFallback}, nil
	}
	return nil, ErrNoInvite
}

// issueFromPool claims the oldest available pooled link. The claim is a
// conditional status flip; a lost race just moves on to the next candidate.
func (s *Service) issueFromPool(funnelID uint, visitorID string, bot *models.TelegramBot) *IssueResult {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		candidate, err := s.pool.NextAvailable(funnelID)
		if err != nil {
			log.Errorf("[InvitePool] Pool lookup for funnel %d failed: %v", funnelID, err)
			return nil
		}
		if candidate == nil {
			return nil
		}

		claimed, err := s.pool.Claim(candidate.ID)
		if err != nil {
			log.Errorf("[InvitePool] Claim of pool link %d failed: %v", candidate.ID, err)
			return nil
		}
		if !claimed {
			continue
		}

		s.bindLink(visitorID, funnelID, bot.ID, candidate.InviteLink, candidate.InviteName, models.LINK_TYPE_POOL, false)
		return &IssueResult{InviteLink: candidate.InviteLink, InviteName: candidate.InviteName, Type: TypePool}
	}
	return nil
}

// issueOnDemand mints a visitor-named link. When the funnel's welcome flow is
// active the link requires a join request, so the bot can message the user;
// member_limit and creates_join_request are mutually exclusive upstream.
func (s *Service) issueOnDemand(ctx context.Context, visitorID string, funnelID uint, bot *models.TelegramBot) (*IssueResult, error) {
	welcomeActive := false
	if setting, err := s.funnels.GetWelcomeSetting(funnelID); err == nil && setting != nil {
		welcomeActive = setting.IsActive
	}

	name := onDemandName(visitorID)
	params := telegram.CreateInviteLinkParams{
		ChatID:     bot.ChatID,
		Name:       name,
		ExpireDate: s.now().Add(onDemandExpiry).Unix(),
	}
	if welcomeActive {
		params.CreatesJoinRequest = true
	} else {
		params.MemberLimit = 1
	}

	client := s.newBot(bot.BotToken)
	link, err := client.CreateInviteLink(ctx, params)
	if err != nil {
		return nil, err
	}

	s.bindLink(visitorID, funnelID, bot.ID, link.InviteLink, name, models.LINK_TYPE_DYNAMIC, welcomeActive)
	return &IssueResult{InviteLink: link.InviteLink, InviteName: name, Type: TypeDynamic}, nil
}

// bindLink records the visitor↔invite binding the attribution decode relies
// on. The telegram identity is still unknown at issue time.
func (s *Service) bindLink(visitorID string, funnelID, botID uint, inviteLink, inviteName, linkType string, requiresApproval bool) {
	err := s.links.Upsert(&models.TelegramLink{
		VisitorID: visitorID,
		FunnelID:  funnelID,
		BotID:     botID,
		LinkedAt:  s.now(),
		Metadata: models.LinkMetadata{
			InviteLink:       inviteLink,
			InviteName:       inviteName,
			GeneratedAt:      s.now().UTC().Format(time.RFC3339),
			Type:             linkType,
			RequiresApproval: requiresApproval,
		},
	})
	if err != nil {
		log.Errorf("[InvitePool] Failed to bind invite %s to visitor %s: %v", inviteName, visitorID, err)
	}
}

func poolName() string {
	id := uuid.NewString()
	if len(id) > poolNameLen {
		id = id[:poolNameLen]
	}
	return attribution.PoolPrefix + id
}

func onDemandName(visitorID string) string {
	if len(visitorID) > onDemandNameLen {
		visitorID = visitorID[:onDemandNameLen]
	}
	return attribution.OnDemandPrefix + visitorID
}
