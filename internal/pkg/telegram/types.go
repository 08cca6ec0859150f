package telegram

// Update is the subset of the Bot API webhook payload this service consumes.
type Update struct {
	UpdateID        int64              `json:"update_id"`
	Message         *Message           `json:"message,omitempty"`
	ChatMember      *ChatMemberUpdated `json:"chat_member,omitempty"`
	MyChatMember    *ChatMemberUpdated `json:"my_chat_member,omitempty"`
	ChatJoinRequest *ChatJoinRequest   `json:"chat_join_request,omitempty"`
}

// MemberUpdate returns whichever chat member transition the update carries.
func (u *Update) MemberUpdate() *ChatMemberUpdated {
	if u.ChatMember != nil {
		return u.ChatMember
	}
	return u.MyChatMember
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      *Chat  `json:"chat,omitempty"`
	Text      string `json:"text,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// FullName joins first and last name the way Telegram displays users.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	if u.LastName == "" {
		return u.FirstName
	}
	if u.FirstName == "" {
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}

type Chat struct {
	ID    int64  `json:"id"`
	Title string `json:"title,omitempty"`
	Type  string `json:"type,omitempty"`
}

type ChatMember struct {
	Status string `json:"status"`
	User   *User  `json:"user,omitempty"`
}

type ChatMemberUpdated struct {
	Chat          *Chat           `json:"chat,omitempty"`
	From          *User           `json:"from,omitempty"`
	OldChatMember *ChatMember     `json:"old_chat_member,omitempty"`
	NewChatMember *ChatMember     `json:"new_chat_member,omitempty"`
	InviteLink    *ChatInviteLink `json:"invite_link,omitempty"`
}

// Actor returns the user the transition is about, preferring the member
// object over the sender.
func (c *ChatMemberUpdated) Actor() *User {
	if c.NewChatMember != nil && c.NewChatMember.User != nil {
		return c.NewChatMember.User
	}
	return c.From
}

type ChatJoinRequest struct {
	Chat       *Chat           `json:"chat,omitempty"`
	From       *User           `json:"from,omitempty"`
	InviteLink *ChatInviteLink `json:"invite_link,omitempty"`
}

type ChatInviteLink struct {
	InviteLink         string `json:"invite_link"`
	Name               string `json:"name,omitempty"`
	MemberLimit        int    `json:"member_limit,omitempty"`
	ExpireDate         int64  `json:"expire_date,omitempty"`
	CreatesJoinRequest bool   `json:"creates_join_request,omitempty"`
}

// memberStatuses considered "inside the chat" for join/leave detection.
var insideStatuses = map[string]bool{
	"member":        true,
	"creator":       true,
	"administrator": true,
}

var outsideStatuses = map[string]bool{
	"left":   true,
	"kicked": true,
}

// IsJoinTransition reports an outside→inside status change.
func IsJoinTransition(oldStatus, newStatus string) bool {
	return insideStatuses[newStatus] && !insideStatuses[oldStatus]
}

// IsLeaveTransition reports an inside→outside status change.
func IsLeaveTransition(oldStatus, newStatus string) bool {
	return outsideStatuses[newStatus] && insideStatuses[oldStatus]
}
