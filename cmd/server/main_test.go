package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_CancelReachesInFlightRequests(t *testing.T) {
	// GIVEN: A handler blocked until its request context ends
	// WHEN: The base context is canceled
	// THEN: The handler sees the cancellation
	started := make(chan struct{})
	canceled := make(chan error, 1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
			canceled <- r.Context().Err()
		case <-time.After(5 * time.Second):
			canceled <- nil
		}
	})

	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts := httptest.NewUnstartedServer(handler)
	ts.Config = newServer("", handler, base)
	ts.Start()
	defer ts.Close()

	go http.Get(ts.URL)
	<-started
	cancel()

	select {
	case err := <-canceled:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("request context was not canceled")
	}
}
