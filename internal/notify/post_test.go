package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordSenderPostsJSON(t *testing.T) {
	var (
		gotType string
		gotBody string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	err := sender.Send(context.Background(), "Opportunity", "BTC/USDT alpha>beta net 1.00%")

	require.NoError(t, err)
	assert.Equal(t, "application/json", gotType)
	assert.Contains(t, gotBody, `**Opportunity**`)
	assert.Contains(t, gotBody, "net 1.00%")
}

func TestDiscordSenderRejectedWebhook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"retry_after": 2}`))
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	err := sender.Send(context.Background(), "Opportunity", "body")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord: unexpected status 429")
	assert.Contains(t, err.Error(), "retry_after")
}
