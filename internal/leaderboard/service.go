package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/question"
	"github.com/gokatarajesh/quizforge/internal/session"
)

// Supported leaderboard windows.
const (
	WindowDaily   = "daily"
	WindowWeekly  = "weekly"
	WindowAllTime = "all_time"
)

// GlobalTopic aggregates every topic.
const GlobalTopic = "global"

var defaultWindows = []string{WindowDaily, WindowWeekly, WindowAllTime}

// Entry represents a leaderboard record sent to clients.
type Entry struct {
	Rank      int     `json:"rank"`
	UserID    string  `json:"user_id"`
	Points    int     `json:"points"`
	Games     int     `json:"games"`
	Correct   int     `json:"correct"`
	Questions int     `json:"questions"`
	Accuracy  float64 `json:"accuracy"`
}

// Update is published on the pub/sub channel after a session is recorded.
type Update struct {
	Topic     string  `json:"topic"`
	Window    string  `json:"window"`
	SessionID string  `json:"session_id"`
	Top       []Entry `json:"top"`
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	TopN           int
	PubSubChannel  string
	Windows        []string
	RedisKeyPrefix string
	Now            func() time.Time
}

// Service keeps per-topic leaderboards in Redis sorted sets. It implements
// session.Persister; anonymous sessions are ignored.
type Service struct {
	redis         *redis.Client
	logger        zerolog.Logger
	topN          int
	pubsubChannel string
	windows       []string
	prefix        string
	now           func() time.Time
}

var _ session.Persister = (*Service)(nil)

// NewService constructs a leaderboard service instance.
func NewService(redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	channel := opts.PubSubChannel
	if channel == "" {
		channel = "lb:updates"
	}
	windows := opts.Windows
	if len(windows) == 0 {
		windows = defaultWindows
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "lb"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		redis:         redis,
		logger:        logger.With().Str("component", "leaderboard").Logger(),
		topN:          topN,
		pubsubChannel: channel,
		windows:       windows,
		prefix:        prefix,
		now:           now,
	}
}

// Channel is the pub/sub channel updates are published on.
func (s *Service) Channel() string { return s.pubsubChannel }

// RecordSession adds the session's points to the topic and global boards for
// every window.
func (s *Service) RecordSession(ctx context.Context, rec session.Record) error {
	if rec.Identity == nil || *rec.Identity == "" {
		return nil
	}
	user := *rec.Identity
	topic := TopicKey(rec.Topic)
	at := rec.CompletedAt
	if at.IsZero() {
		at = s.now()
	}

	pipe := s.redis.TxPipeline()
	for _, t := range []string{topic, GlobalTopic} {
		for _, window := range s.windows {
			zKey := s.boardKey(t, window, at)
			metaKey := s.metaKey(t, window, at, user)
			pipe.ZIncrBy(ctx, zKey, float64(rec.Summary.Points), user)
			pipe.HIncrBy(ctx, metaKey, "games", 1)
			pipe.HIncrBy(ctx, metaKey, "correct", int64(rec.Summary.Score))
			pipe.HIncrBy(ctx, metaKey, "questions", int64(rec.Summary.Total))
			if ttl := windowTTL(window); ttl > 0 {
				pipe.Expire(ctx, zKey, ttl)
				pipe.Expire(ctx, metaKey, ttl)
			}
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update leaderboard %s: %w", topic, err)
	}

	s.publishUpdate(ctx, topic, rec.SessionID)
	return nil
}

// Top retrieves the top entries of a topic board for the current window period.
func (s *Service) Top(ctx context.Context, topic, window string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}
	if !IsValidWindow(window) {
		return nil, fmt.Errorf("unknown leaderboard window %q", window)
	}
	topic = TopicKey(topic)
	at := s.now()

	results, err := s.redis.ZRevRangeWithScores(ctx, s.boardKey(topic, window, at), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		user, _ := z.Member.(string)
		entry, err := s.readMeta(ctx, s.metaKey(topic, window, at, user))
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read leaderboard metadata")
			continue
		}
		entry.Rank = i + 1
		entry.UserID = user
		entry.Points = int(z.Score)
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) publishUpdate(ctx context.Context, topic, sessionID string) {
	for _, t := range []string{topic, GlobalTopic} {
		entries, err := s.Top(ctx, t, WindowAllTime, 10)
		if err != nil || len(entries) == 0 {
			if err != nil {
				s.logger.Warn().Err(err).Str("topic", t).Msg("failed to collect leaderboard update")
			}
			continue
		}
		data, err := json.Marshal(Update{Topic: t, Window: WindowAllTime, SessionID: sessionID, Top: entries})
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
			continue
		}
		if err := s.redis.Publish(ctx, s.pubsubChannel, data).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
		}
	}
}

func (s *Service) readMeta(ctx context.Context, metaKey string) (Entry, error) {
	data, err := s.redis.HGetAll(ctx, metaKey).Result()
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{
		Games:     parseInt(data["games"]),
		Correct:   parseInt(data["correct"]),
		Questions: parseInt(data["questions"]),
	}
	if entry.Questions > 0 {
		entry.Accuracy = float64(entry.Correct) / float64(entry.Questions)
	}
	return entry, nil
}

func (s *Service) boardKey(topic, window string, at time.Time) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, topic, periodKey(window, at))
}

func (s *Service) metaKey(topic, window string, at time.Time, user string) string {
	return fmt.Sprintf("%s:%s:%s:meta:%s", s.prefix, topic, periodKey(window, at), user)
}

// TopicKey normalizes a topic for use in keys. Empty maps to GlobalTopic.
func TopicKey(topic string) string {
	if key := question.NormalizeTopic(topic); key != "" {
		return key
	}
	return GlobalTopic
}

// IsValidWindow reports whether window is supported.
func IsValidWindow(window string) bool {
	switch window {
	case WindowDaily, WindowWeekly, WindowAllTime:
		return true
	default:
		return false
	}
}

func periodKey(window string, at time.Time) string {
	at = at.UTC()
	switch window {
	case WindowDaily:
		return "daily:" + at.Format("2006-01-02")
	case WindowWeekly:
		year, week := at.ISOWeek()
		return fmt.Sprintf("weekly:%d-W%02d", year, week)
	default:
		return WindowAllTime
	}
}

func windowTTL(window string) time.Duration {
	switch window {
	case WindowDaily:
		return 48 * time.Hour
	case WindowWeekly:
		return 15 * 24 * time.Hour
	default:
		return 0
	}
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
