package attribution

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trackgram/trackgram/app/models"
	"github.com/trackgram/trackgram/app/repository"
)

const (
	// Invite link name prefixes, the only wire format this core owns.
	OnDemandPrefix = "v_"
	PoolPrefix     = "pool_"

	MethodInviteLink   = "invite_link"
	MethodTelegramUser = "telegram_user_id"
	MethodRecentClick  = "recent_click"

	// How far back the timing fallback looks for an unlinked click.
	recentClickWindow = 10 * time.Minute
	recentClickLimit  = 10
)

// Request carries everything a webhook knows about the joining user.
type Request struct {
	InviteName     string
	TelegramUserID int64
	BotID          uint
}

// Result is a resolved attribution. A nil Result from a strategy means "not
// mine, try the next one"; a nil Result from the Resolver means the join is
// unattributed.
type Result struct {
	VisitorID string
	FunnelID  uint
	Method    string
	Link      *models.TelegramLink
}

// Strategy is one rung of the attribution cascade.
type Strategy interface {
	Name() string
	TryResolve(req Request) (*Result, error)
}

// Resolver runs an ordered strategy list and stops at the first hit. The
// order is the contract: the invite-link decode always wins over the user-id
// fallback, which always wins over the timing heuristic.
type Resolver struct {
	strategies []Strategy
}

// NewResolver builds the standard three-step cascade.
func NewResolver(links repository.TelegramLinkRepository, events repository.EventRepository, funnels repository.FunnelRepository) *Resolver {
	return &Resolver{
		strategies: []Strategy{
			&inviteLinkStrategy{links: links},
			&telegramUserStrategy{links: links},
			&recentClickStrategy{events: events, funnels: funnels, now: time.Now},
		},
	}
}

// NewResolverWithStrategies builds a resolver with an explicit cascade (tests).
func NewResolverWithStrategies(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve tries each strategy in order until one attributes the request.
func (r *Resolver) Resolve(req Request) (*Result, error) {
	for _, s := range r.strategies {
		result, err := s.TryResolve(req)
		if err != nil {
			log.Errorf("[Attribution] Strategy %s failed: %v", s.Name(), err)
			continue
		}
		if result != nil {
			log.Infof("[Attribution] Resolved visitor %s via %s", result.VisitorID, result.Method)
			return result, nil
		}
	}
	return nil, nil
}

// inviteLinkStrategy decodes the consumed invite link's name. On-demand links
// embed a (possibly truncated) visitor id; pool links are matched through the
// link metadata recorded at claim time.
type inviteLinkStrategy struct {
	links repository.TelegramLinkRepository
}

func (s *inviteLinkStrategy) Name() string { return MethodInviteLink }

func (s *inviteLinkStrategy) TryResolve(req Request) (*Result, error) {
	switch {
	case strings.HasPrefix(req.InviteName, OnDemandPrefix):
		prefix := strings.TrimPrefix(req.InviteName, OnDemandPrefix)
		link, err := s.links.GetLatestByVisitorPrefix(prefix)
		if err != nil || link == nil {
			return nil, err
		}
		return &Result{VisitorID: link.VisitorID, FunnelID: link.FunnelID, Method: MethodInviteLink, Link: link}, nil

	case strings.HasPrefix(req.InviteName, PoolPrefix):
		link, err := s.links.GetLatestByInviteName(req.InviteName)
		if err != nil || link == nil {
			return nil, err
		}
		return &Result{VisitorID: link.VisitorID, FunnelID: link.FunnelID, Method: MethodInviteLink, Link: link}, nil
	}
	return nil, nil
}

// telegramUserStrategy finds the newest link for the Telegram user. A link
// that belongs to a different bot is rejected rather than silently reused;
// two tenants' bots must never cross-attribute.
type telegramUserStrategy struct {
	links repository.TelegramLinkRepository
}

func (s *telegramUserStrategy) Name() string { return MethodTelegramUser }

func (s *telegramUserStrategy) TryResolve(req Request) (*Result, error) {
	if req.TelegramUserID == 0 {
		return nil, nil
	}
	link, err := s.links.GetLatestByTelegramUser(req.TelegramUserID)
	if err != nil || link == nil {
		return nil, err
	}
	if req.BotID != 0 && link.BotID != req.BotID {
		log.Warnf("[Attribution] Link for user %d belongs to bot %d, not %d; rejecting", req.TelegramUserID, link.BotID, req.BotID)
		return nil, nil
	}
	return &Result{VisitorID: link.VisitorID, FunnelID: link.FunnelID, Method: MethodTelegramUser, Link: link}, nil
}

// recentClickStrategy is the last-resort temporal heuristic: the newest click
// of the last ten minutes, scoped to the bot's funnels, whose visitor has not
// joined anything yet.
type recentClickStrategy struct {
	events  repository.EventRepository
	funnels repository.FunnelRepository
	now     func() time.Time
}

func (s *recentClickStrategy) Name() string { return MethodRecentClick }

func (s *recentClickStrategy) TryResolve(req Request) (*Result, error) {
	since := s.now().Add(-recentClickWindow)
	clicks, err := s.events.RecentClicks(since, recentClickLimit)
	if err != nil || len(clicks) == 0 {
		return nil, err
	}

	funnelIDs, err := s.funnels.GetIDsByBot(req.BotID)
	if err != nil {
		return nil, err
	}
	owned := make(map[uint]bool, len(funnelIDs))
	for _, id := range funnelIDs {
		owned[id] = true
	}

	for _, click := range clicks {
		if click.FunnelID == nil || !owned[*click.FunnelID] {
			continue
		}
		joined, err := s.events.HasEvent(click.VisitorID, models.EVENT_JOIN)
		if err != nil {
			return nil, err
		}
		if joined {
			continue
		}
		return &Result{VisitorID: click.VisitorID, FunnelID: *click.FunnelID, Method: MethodRecentClick}, nil
	}
	return nil, nil
}
