package capi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashValueNormalizes(t *testing.T) {
	want := sha256.Sum256([]byte("ana@example.com"))
	assert.Equal(t, hex.EncodeToString(want[:]), HashValue("  Ana@Example.COM "))
}

func TestBuildEventHashesUserData(t *testing.T) {
	event := BuildEvent("Lead", 1700000000, "https://lp.example/offer", UserData{
		Email:      "ana@example.com",
		City:       "Lisbon",
		ExternalID: "vis-1",
		FBC:        "fb.1.123.abc",
		FBP:        "fb.1.456.def",
		IPAddress:  "203.0.113.9",
		UserAgent:  "Mozilla/5.0",
	}, CustomData{ContentName: "Offer A", UTMSource: "facebook"})

	assert.Equal(t, "Lead", event.EventName)
	assert.Equal(t, int64(1700000000), event.EventTime)
	assert.Equal(t, ActionSourceWebsite, event.ActionSource)
	assert.Equal(t, "https://lp.example/offer", event.EventSourceURL)

	// Identity fields are hashed, browser signals travel raw.
	assert.Equal(t, []string{HashValue("ana@example.com")}, event.UserData.Em)
	assert.Equal(t, []string{HashValue("Lisbon")}, event.UserData.Ct)
	assert.Equal(t, []string{HashValue("vis-1")}, event.UserData.ExternalID)
	assert.Equal(t, "fb.1.123.abc", event.UserData.FBC)
	assert.Equal(t, "203.0.113.9", event.UserData.ClientIP)
	assert.Empty(t, event.UserData.Ph)
}

func TestBuildEventDefaultsEventTime(t *testing.T) {
	event := BuildEvent("Lead", 0, "", UserData{}, CustomData{})
	assert.Positive(t, event.EventTime)
}

func TestSendEventPostsToPixelEdge(t *testing.T) {
	var gotPath, gotToken string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"events_received":1}`))
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	event := BuildEvent("Lead", 1700000000, "", UserData{ExternalID: "vis-1"}, CustomData{})
	err := c.SendEvent(context.Background(), "secret-token", "1234567890", event)
	require.NoError(t, err)

	assert.Equal(t, "/v18.0/1234567890/events", gotPath)
	assert.Equal(t, "secret-token", gotToken)
	data, ok := gotBody["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)
}

func TestSendEventSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	err := c.SendEvent(context.Background(), "tok", "123", Event{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid parameter")
}

func TestSendEventRejectsMissingCredentials(t *testing.T) {
	c := NewClient()
	err := c.SendEvent(context.Background(), "", "123", Event{})
	assert.Error(t, err)
}
