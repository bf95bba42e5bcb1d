package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dotogether/models"
)

const (
	// CookieName is the session cookie shared with the handler layer.
	CookieName = "session_token"

	// DefaultTTL applies to plain logins, RememberTTL to "remember" logins.
	// Remembered sessions slide: every authenticated request pushes the
	// expiry forward by RememberTTL.
	DefaultTTL  = 24 * time.Hour
	RememberTTL = 14 * 24 * time.Hour

	opTimeout = 5 * time.Second
)

// ErrNoSession is returned when a token does not resolve to a live session,
// whether missing, expired, or forged.
var ErrNoSession = errors.New("no session")

// OpenRedis initializes the Redis client backing the session layer.
func OpenRedis(dsn string) (*redis.Client, error) {
	opt, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse redis DSN: %w", err)
	}

	opt.PoolSize = 100
	opt.MinIdleConns = 2
	opt.DialTimeout = 5 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// Manager tracks authenticated sessions in Redis, one hash per session plus a
// per-user index set so all of a user's sessions can be revoked at once.
type Manager struct {
	client *redis.Client
	secret []byte
}

func NewManager(client *redis.Client, secret string) *Manager {
	return &Manager{client: client, secret: []byte(secret)}
}

func sessionKey(raw string) string { return "session:" + raw }
func userKey(userID string) string { return "user_sessions:" + userID }

// TTL returns the session lifetime for the given remember choice.
func (m *Manager) TTL(remember bool) time.Duration {
	if remember {
		return RememberTTL
	}
	return DefaultTTL
}

// Create opens a session for the user and returns it with the signed token
// the cookie should carry.
func (m *Manager) Create(ctx context.Context, user models.User, remember bool) (models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := newRawToken()
	if err != nil {
		return models.Session{}, err
	}

	ttl := m.TTL(remember)
	now := time.Now()
	s := models.Session{
		Token:     sign(m.secret, raw),
		UserID:    user.ID.String(),
		Username:  user.Username,
		CreatedAt: now.Format(time.RFC3339),
		ExpiresAt: now.Add(ttl).Format(time.RFC3339),
		Remember:  remember,
	}

	fields := map[string]any{
		"user_id":    s.UserID,
		"username":   s.Username,
		"created_at": s.CreatedAt,
		"expires_at": s.ExpiresAt,
		"remember":   boolField(s.Remember),
	}

	key := sessionKey(raw)
	if err := m.client.HSet(ctx, key, fields).Err(); err != nil {
		return models.Session{}, fmt.Errorf("store session: %w", err)
	}
	if err := m.client.Expire(ctx, key, ttl).Err(); err != nil {
		return models.Session{}, fmt.Errorf("expire session: %w", err)
	}
	if err := m.client.SAdd(ctx, userKey(s.UserID), key).Err(); err != nil {
		return models.Session{}, fmt.Errorf("index session: %w", err)
	}

	return s, nil
}

// Get resolves a signed token to its live session. Forged, unknown and
// expired tokens all come back as ErrNoSession.
func (m *Manager) Get(ctx context.Context, token string) (models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, ok := verify(m.secret, token)
	if !ok {
		return models.Session{}, ErrNoSession
	}

	data, err := m.client.HGetAll(ctx, sessionKey(raw)).Result()
	if err != nil {
		return models.Session{}, fmt.Errorf("fetch session: %w", err)
	}
	if len(data) == 0 {
		return models.Session{}, ErrNoSession
	}

	s := models.Session{
		Token:     token,
		UserID:    data["user_id"],
		Username:  data["username"],
		CreatedAt: data["created_at"],
		ExpiresAt: data["expires_at"],
		Remember:  data["remember"] == "1",
	}

	expiresAt, err := time.Parse(time.RFC3339, s.ExpiresAt)
	if err != nil || !time.Now().Before(expiresAt) {
		return models.Session{}, ErrNoSession
	}

	return s, nil
}

// Touch slides a remembered session's expiry forward. Plain sessions keep
// their fixed lifetime.
func (m *Manager) Touch(ctx context.Context, s models.Session) error {
	if !s.Remember {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, ok := verify(m.secret, s.Token)
	if !ok {
		return ErrNoSession
	}

	key := sessionKey(raw)
	expiresAt := time.Now().Add(RememberTTL).Format(time.RFC3339)
	if err := m.client.HSet(ctx, key, "expires_at", expiresAt).Err(); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return m.client.Expire(ctx, key, RememberTTL).Err()
}

// UpdateUsername keeps the session's cached username in sync after a profile
// change.
func (m *Manager) UpdateUsername(ctx context.Context, token, username string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, ok := verify(m.secret, token)
	if !ok {
		return ErrNoSession
	}
	return m.client.HSet(ctx, sessionKey(raw), "username", username).Err()
}

// Destroy removes a single session and its entry in the user index.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, ok := verify(m.secret, token)
	if !ok {
		return ErrNoSession
	}

	key := sessionKey(raw)
	userID, err := m.client.HGet(ctx, key, "user_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNoSession
		}
		return fmt.Errorf("fetch session owner: %w", err)
	}

	if err := m.client.SRem(ctx, userKey(userID), key).Err(); err != nil {
		return fmt.Errorf("unindex session: %w", err)
	}
	return m.client.Del(ctx, key).Err()
}

// DestroyAll revokes every session a user holds, used after password changes.
func (m *Manager) DestroyAll(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	keys, err := m.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	if len(keys) > 0 {
		if err := m.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("delete user sessions: %w", err)
		}
	}
	return m.client.Del(ctx, userKey(userID)).Err()
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
