package invitepool

import "errors"

var (
	// ErrNoBot means the funnel has no Telegram bot attached at all.
	ErrNoBot = errors.New("invitepool: funnel has no bot")

	// ErrNoInvite means every issuing path failed, including the static
	// channel link fallback.
	ErrNoInvite = errors.New("invitepool: no invite link available")
)
