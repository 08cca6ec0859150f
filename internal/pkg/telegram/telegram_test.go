package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinAndLeaveTransitions(t *testing.T) {
	assert.True(t, IsJoinTransition("left", "member"))
	assert.True(t, IsJoinTransition("kicked", "member"))
	assert.True(t, IsJoinTransition("left", "administrator"))

	assert.True(t, IsLeaveTransition("member", "left"))
	assert.True(t, IsLeaveTransition("administrator", "kicked"))

	// Promotions and restrictions are neither.
	assert.False(t, IsJoinTransition("member", "administrator"))
	assert.False(t, IsLeaveTransition("left", "kicked"))
	assert.False(t, IsJoinTransition("member", "member"))
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Ana Silva", (&User{FirstName: "Ana", LastName: "Silva"}).FullName())
	assert.Equal(t, "Ana", (&User{FirstName: "Ana"}).FullName())
	assert.Equal(t, "Silva", (&User{LastName: "Silva"}).FullName())
	var nobody *User
	assert.Equal(t, "", nobody.FullName())
}

func TestCreateInviteLink(t *testing.T) {
	var gotMethod string
	var gotParams CreateInviteLinkParams
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotParams)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"invite_link":"https://t.me/+xyz","name":"v_vis"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBase("123:token", srv.URL)
	link, err := c.CreateInviteLink(context.Background(), CreateInviteLinkParams{
		ChatID:      -100,
		Name:        "v_vis",
		MemberLimit: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "/bot123:token/createChatInviteLink", gotMethod)
	assert.Equal(t, int64(-100), gotParams.ChatID)
	assert.Equal(t, 1, gotParams.MemberLimit)
	assert.Equal(t, "https://t.me/+xyz", link.InviteLink)
}

func TestAPIErrorIsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: not enough rights"}`))
	}))
	defer srv.Close()

	c := NewClientWithBase("123:token", srv.URL)
	_, err := c.CreateInviteLink(context.Background(), CreateInviteLinkParams{ChatID: -100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough rights")
}

func TestSendMessageWithButtons(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := NewClientWithBase("123:token", srv.URL)
	err := c.SendMessage(context.Background(), SendMessageParams{
		ChatID: 42,
		Text:   "Welcome!",
		Buttons: [][]InlineButton{
			{{Text: "Open", URL: "https://example.com"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Welcome!", payload["text"])
	markup, ok := payload["reply_markup"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, markup, "inline_keyboard")
}

func TestSendMessageWithoutButtonsOmitsMarkup(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := NewClientWithBase("123:token", srv.URL)
	require.NoError(t, c.SendMessage(context.Background(), SendMessageParams{ChatID: 42, Text: "hi"}))
	assert.NotContains(t, payload, "reply_markup")
}

func TestUpdateMemberUpdatePrefersChatMember(t *testing.T) {
	cm := &ChatMemberUpdated{}
	mcm := &ChatMemberUpdated{}
	assert.Same(t, cm, (&Update{ChatMember: cm, MyChatMember: mcm}).MemberUpdate())
	assert.Same(t, mcm, (&Update{MyChatMember: mcm}).MemberUpdate())
}
