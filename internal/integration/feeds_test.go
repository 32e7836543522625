package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFeedClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"product_id":1,"quantity":10,"reserved":2},{"product_id":2,"quantity":5,"reserved":0}]}`))
	}))
	defer srv.Close()

	client := NewFeedClient("MAIN", srv.URL, time.Second)
	require.Equal(t, "MAIN", client.Source())

	items, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.EqualValues(t, 1, items[0].ProductID)
	require.EqualValues(t, 10, items[0].Quantity)
	require.EqualValues(t, 2, items[0].Reserved)
}

func TestFeedClientNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewFeedClient("FBE", srv.URL, time.Second)
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 502")
}

func TestFeedClientBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewFeedClient("LOCAL", srv.URL, time.Second)
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
}
