package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newStreamServer serves frames to each connecting client, then holds the
// connection open until the client leaves.
func newStreamServer(t *testing.T, frames []string, gotQuery chan<- string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			select {
			case gotQuery <- r.URL.Query().Get("events"):
			default:
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		events  []string
		want    string
		wantErr bool
	}{
		{name: "http to ws", raw: "http://localhost:8080/ws/events", want: "ws://localhost:8080/ws/events"},
		{name: "https to wss", raw: "https://devnet.example/ws/events", want: "wss://devnet.example/ws/events"},
		{name: "ws kept", raw: "ws://localhost/ws/events", want: "ws://localhost/ws/events"},
		{
			name:   "event filter",
			raw:    "ws://localhost/ws/events",
			events: []string{"BetPlaced", "Payout"},
			want:   "ws://localhost/ws/events?events=BetPlaced%2CPayout",
		},
		{name: "empty", raw: "", wantErr: true},
		{name: "bad scheme", raw: "ftp://localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildURL(tt.raw, tt.events)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{URL: "ws://localhost"})
	require.Error(t, err)

	m, err := New(Config{URL: "ws://localhost", Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, m.config.DialTimeout)
	assert.Equal(t, 256, m.config.MessageBufferSize)
	assert.Equal(t, 2.0, m.config.ReconnectBackoffMult)
}

func TestManager_ReceivesEvents(t *testing.T) {
	frames := []string{
		`{"event":"BetCreated","seq":1,"data":{"betId":0}}`,
		`not json`,
		`{"event":"BetPlaced","seq":2,"data":{"betId":0,"option":"A"}}`,
	}
	queries := make(chan string, 1)
	srv := newStreamServer(t, frames, queries)
	defer srv.Close()

	m, err := New(Config{
		URL:        srv.URL,
		EventNames: []string{"BetCreated", "BetPlaced"},
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, m.Start())

	assert.Equal(t, "BetCreated,BetPlaced", <-queries)
	assert.True(t, m.Connected())

	first := <-m.Events()
	assert.Equal(t, "BetCreated", first.Name)
	assert.Equal(t, uint64(1), first.Seq)

	second := <-m.Events()
	assert.Equal(t, "BetPlaced", second.Name)
	assert.JSONEq(t, `{"betId":0,"option":"A"}`, string(second.Data))
	assert.Equal(t, uint64(2), m.LastSeq())

	require.NoError(t, m.Close())

	_, open := <-m.Events()
	assert.False(t, open)
}

func TestManager_CountsSequenceGaps(t *testing.T) {
	frames := []string{
		`{"event":"BetPlaced","seq":3,"data":{}}`,
		`{"event":"BetPlaced","seq":7,"data":{}}`,
	}
	srv := newStreamServer(t, frames, nil)
	defer srv.Close()

	before := testutil.ToFloat64(MissedEventsTotal)

	m, err := New(Config{URL: srv.URL, Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Close()

	<-m.Events()
	<-m.Events()

	assert.Equal(t, before+3, testutil.ToFloat64(MissedEventsTotal))
}

func TestManager_FilteredStreamSkipsAreNotGaps(t *testing.T) {
	frames := []string{
		`{"event":"BetPlaced","seq":2,"skipped":1,"data":{}}`,
		`{"event":"BetPlaced","seq":4,"skipped":1,"data":{}}`,
		`{"event":"BetPlaced","seq":6,"skipped":1,"data":{}}`,
		`{"event":"BetPlaced","seq":9,"skipped":1,"data":{}}`,
	}
	srv := newStreamServer(t, frames, nil)
	defer srv.Close()

	before := testutil.ToFloat64(MissedEventsTotal)

	m, err := New(Config{URL: srv.URL, EventNames: []string{"BetPlaced"}, Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Close()

	for i := 0; i < 3; i++ {
		ev := <-m.Events()
		assert.Equal(t, uint64(1), ev.Skipped)
	}
	assert.Equal(t, before, testutil.ToFloat64(MissedEventsTotal))

	<-m.Events()
	assert.Equal(t, before+1, testutil.ToFloat64(MissedEventsTotal))
	assert.Equal(t, uint64(9), m.LastSeq())
}

func TestManager_ReconnectsAfterServerDrop(t *testing.T) {
	var conns atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if conns.Add(1) == 1 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"BetCreated","seq":1,"data":{}}`))
			conn.Close()
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"BetPlaced","seq":2,"data":{}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	m, err := New(Config{
		URL:                   strings.Replace(srv.URL, "http", "ws", 1),
		ReconnectInitialDelay: 10 * time.Millisecond,
		ReconnectMaxDelay:     50 * time.Millisecond,
		Logger:                zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Close()

	names := make([]string, 0, 2)
	timeout := time.After(3 * time.Second)
	for len(names) < 2 {
		select {
		case ev := <-m.Events():
			names = append(names, ev.Name)
		case <-timeout:
			t.Fatalf("received %v before timeout", names)
		}
	}

	assert.Equal(t, []string{"BetCreated", "BetPlaced"}, names)
}

func TestReconnectManager_Backoff(t *testing.T) {
	rm := NewReconnectManager(ReconnectConfig{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          300 * time.Millisecond,
		BackoffMultiplier: 2,
	}, zap.NewNop())

	assert.Equal(t, 100*time.Millisecond, rm.nextBackoff())
	rm.incrementBackoff()
	assert.Equal(t, 200*time.Millisecond, rm.nextBackoff())
	rm.incrementBackoff()
	assert.Equal(t, 300*time.Millisecond, rm.nextBackoff())

	rm.Reset()
	assert.Equal(t, 100*time.Millisecond, rm.nextBackoff())
}
