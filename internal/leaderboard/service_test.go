package leaderboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quizforge/internal/session"
	"github.com/gokatarajesh/quizforge/internal/session/scoring"
	ws "github.com/gokatarajesh/quizforge/pkg/http/ws"
)

var fixedNow = time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc := NewService(client, zerolog.New(io.Discard), ServiceOptions{
		RedisKeyPrefix: "test:lb",
		Now:            func() time.Time { return fixedNow },
	})
	return svc, mr, client
}

func record(user *string, topic string, score, total, points int) session.Record {
	return session.Record{
		SessionID:   "sess-" + topic,
		Flow:        session.FlowAuthenticated,
		Topic:       topic,
		Identity:    user,
		Summary:     scoring.Summary{Score: score, Total: total, Points: points},
		CompletedAt: fixedNow,
	}
}

func ptr(s string) *string { return &s }

func TestRecordSessionRanksPlayers(t *testing.T) {
	svc, mr, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordSession(ctx, record(ptr("alice"), "Ray Optics", 4, 5, 480)))
	require.NoError(t, svc.RecordSession(ctx, record(ptr("bob"), "ray  optics", 2, 5, 210)))
	require.NoError(t, svc.RecordSession(ctx, record(ptr("bob"), "Ray Optics", 5, 5, 600)))

	top, err := svc.Top(ctx, "Ray Optics", WindowAllTime, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)

	assert.Equal(t, "bob", top[0].UserID)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, 810, top[0].Points)
	assert.Equal(t, 2, top[0].Games)
	assert.Equal(t, 7, top[0].Correct)
	assert.Equal(t, 10, top[0].Questions)
	assert.InDelta(t, 0.7, top[0].Accuracy, 1e-9)

	assert.Equal(t, "alice", top[1].UserID)
	assert.Equal(t, 2, top[1].Rank)

	global, err := svc.Top(ctx, "", WindowDaily, 1)
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Equal(t, "bob", global[0].UserID)

	assert.True(t, mr.Exists("test:lb:ray_optics:daily:2024-06-03"))
	assert.True(t, mr.Exists("test:lb:ray_optics:weekly:2024-W23"))
	assert.True(t, mr.Exists("test:lb:global:all_time"))
	assert.Greater(t, mr.TTL("test:lb:ray_optics:daily:2024-06-03"), time.Duration(0))
	assert.Equal(t, time.Duration(0), mr.TTL("test:lb:ray_optics:all_time"))
}

func TestRecordSessionSkipsAnonymous(t *testing.T) {
	svc, mr, _ := newTestService(t)

	require.NoError(t, svc.RecordSession(context.Background(), record(nil, "optics", 3, 3, 300)))
	require.NoError(t, svc.RecordSession(context.Background(), record(ptr(""), "optics", 3, 3, 300)))
	assert.Empty(t, mr.Keys())
}

func TestTopRejectsUnknownWindow(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Top(context.Background(), "optics", "monthly", 5)
	assert.Error(t, err)
}

func TestRecordSessionReportsRedisFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	svc := NewService(client, zerolog.New(io.Discard), ServiceOptions{})
	err := svc.RecordSession(context.Background(), record(ptr("alice"), "optics", 1, 1, 100))
	assert.Error(t, err)
}

func TestRecordSessionPublishesUpdates(t *testing.T) {
	svc, _, client := newTestService(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, svc.Channel())
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.RecordSession(ctx, record(ptr("alice"), "Optics", 2, 3, 250)))

	topics := map[string]Update{}
	for len(topics) < 2 {
		select {
		case msg := <-sub.Channel():
			var u Update
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &u))
			topics[u.Topic] = u
		case <-time.After(2 * time.Second):
			t.Fatal("no leaderboard update published")
		}
	}
	require.Contains(t, topics, "optics")
	require.Contains(t, topics, GlobalTopic)
	assert.Equal(t, "alice", topics["optics"].Top[0].UserID)
	assert.Equal(t, 250, topics["optics"].Top[0].Points)
}

func TestBroadcasterForwardsToTopicRoom(t *testing.T) {
	logger := zerolog.New(io.Discard)
	hub := ws.NewHub(logger)
	follower := ws.NewConnection(nil, logger)
	other := ws.NewConnection(nil, logger)
	hub.RegisterConnection(follower)
	hub.RegisterConnection(other)
	hub.Join(Room("Optics"), follower.ID())
	hub.Join(Room("chemistry"), other.ID())

	b := NewBroadcaster(nil, hub, "", logger)
	payload, err := json.Marshal(Update{
		Topic:  "optics",
		Window: WindowAllTime,
		Top:    []Entry{{Rank: 1, UserID: "alice", Points: 250}},
	})
	require.NoError(t, err)
	b.forward(string(payload))
	b.forward("not json")

	msg := <-follower.Outbox()
	assert.Equal(t, ws.TypeLeaderboardUpdate, msg.Type)
	var got ws.LeaderboardUpdatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, "optics", got.Topic)
	require.Len(t, got.Top, 1)
	assert.Equal(t, "alice", got.Top[0].UserID)
	assert.Empty(t, other.Outbox())
}

func TestHTTPHandler(t *testing.T) {
	svc, _, _ := newTestService(t)
	require.NoError(t, svc.RecordSession(context.Background(), record(ptr("alice"), "Optics", 2, 3, 250)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/leaderboards/{topic}", NewHTTPHandler(svc, zerolog.New(io.Discard)).HandleGet)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leaderboards/Optics?window=weekly&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Topic  string                `json:"topic"`
		Window string                `json:"window"`
		Top    []ws.LeaderboardEntry `json:"top"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "optics", body.Topic)
	assert.Equal(t, WindowWeekly, body.Window)
	require.Len(t, body.Top, 1)
	assert.Equal(t, 250, body.Top[0].Points)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leaderboards/optics?window=monthly", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_leaderboard_window")
}
