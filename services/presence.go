package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"

	"chorus/groupware/models"
	"chorus/groupware/utils"
)

const (
	presenceKeyPrefix   = "presence:"
	presenceEventPrefix = "presence:events:"
	onlineSetKey        = "online_users"

	maxTxRetries = 5
)

var (
	ErrInvalidStatus  = errors.New("invalid status type")
	ErrMessageTooLong = errors.New("status message too long")
)

// User-defined statuses that heartbeats never override.
var persistentStatuses = map[models.StatusType]bool{
	models.StatusDND:       true,
	models.StatusInvisible: true,
	models.StatusOffline:   true,
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type PresenceService struct {
	redis  *redis.Client
	logger *utils.Logger
	ttl    time.Duration
	now    func() time.Time
}

func NewPresenceService(redisClient *redis.Client, logger *utils.Logger) *PresenceService {
	return &PresenceService{
		redis:  redisClient,
		logger: logger,
		ttl:    11 * time.Minute,
		now:    time.Now,
	}
}

func (ps *PresenceService) SetPresenceTTL(ttl time.Duration) {
	ps.ttl = ttl
}

// Heartbeat records the automatic online/away status reported by a client. A user-defined
// online or away status is replaced; dnd, invisible and offline are kept.
func (ps *PresenceService) Heartbeat(ctx context.Context, userID string, away bool) (*models.PresenceStatus, error) {
	status, err := ps.update(ctx, userID, func(rec *models.PresenceRecord) error {
		rec.AutoStatus = models.StatusOnline
		if away {
			rec.AutoStatus = models.StatusAway
		}
		rec.LastSeen = ps.now()
		if rec.IsUserDefined && !persistentStatuses[rec.UserStatus] {
			rec.IsUserDefined = false
			rec.UserStatus = ""
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pipe := ps.redis.Pipeline()
	pipe.SAdd(ctx, onlineSetKey, userID)
	pipe.Expire(ctx, onlineSetKey, ps.ttl*2) // Keep online set alive longer
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to update online set: %w", err)
	}

	ps.logger.Debug("Heartbeat received", "user_id", userID, "away", away)
	return status, nil
}

// GetStatus returns the canonical status for userID. Unknown users are offline.
func (ps *PresenceService) GetStatus(ctx context.Context, userID string) (*models.PresenceStatus, error) {
	rec, err := ps.load(ctx, ps.redis, userID)
	if err != nil {
		return nil, err
	}
	return ps.statusFromRecord(rec), nil
}

// SetStatus stores a user-defined status.
func (ps *PresenceService) SetStatus(ctx context.Context, userID string, statusType models.StatusType) (*models.PresenceStatus, error) {
	if !statusType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, statusType)
	}

	status, err := ps.update(ctx, userID, func(rec *models.PresenceRecord) error {
		rec.UserStatus = statusType
		rec.IsUserDefined = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	ps.logger.Info("Status changed", "user_id", userID, "status", statusType)
	return status, nil
}

// SetMessage stores a custom status message and icon, optionally cleared at clearAt.
func (ps *PresenceService) SetMessage(ctx context.Context, userID string, icon *string, message string, clearAt *time.Time) (*models.PresenceStatus, error) {
	if utf8.RuneCountInString(message) > models.MaxMessageLength {
		return nil, fmt.Errorf("%w: max %d characters", ErrMessageTooLong, models.MaxMessageLength)
	}

	return ps.update(ctx, userID, func(rec *models.PresenceRecord) error {
		msg := message
		rec.Message = &msg
		rec.Icon = icon
		rec.ClearAt = clearAt
		return nil
	})
}

// ClearMessage removes the custom status message and icon.
func (ps *PresenceService) ClearMessage(ctx context.Context, userID string) (*models.PresenceStatus, error) {
	return ps.update(ctx, userID, func(rec *models.PresenceRecord) error {
		rec.Message = nil
		rec.Icon = nil
		rec.ClearAt = nil
		return nil
	})
}

// OnlineUsers lists users whose status is visible and not offline. Users whose
// heartbeat expired are pruned from the online set.
func (ps *PresenceService) OnlineUsers(ctx context.Context) ([]models.PresenceStatus, error) {
	// Get all user IDs from the online set
	userIDs, err := ps.redis.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get online users: %w", err)
	}

	if len(userIDs) == 0 {
		return []models.PresenceStatus{}, nil
	}

	// Get all presence data in one pipeline
	pipe := ps.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(userIDs))
	for i, userID := range userIDs {
		cmds[i] = pipe.Get(ctx, presenceKeyPrefix+userID)
	}

	_, err = pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get presence data: %w", err)
	}

	online := make([]models.PresenceStatus, 0, len(userIDs))
	var expired []string

	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			if err == redis.Nil {
				expired = append(expired, userIDs[i])
				continue
			}
			ps.logger.Error("Error getting presence", "user_id", userIDs[i], "error", err)
			continue
		}

		var rec models.PresenceRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			ps.logger.Error("Error unmarshaling presence", "user_id", userIDs[i], "error", err)
			continue
		}

		if !ps.alive(&rec) {
			expired = append(expired, userIDs[i])
			continue
		}

		status := ps.statusFromRecord(&rec)
		if status.Status == models.StatusOffline || status.Status == models.StatusInvisible {
			continue
		}
		online = append(online, *status)
	}

	// Clean up online set - remove expired users
	if len(expired) > 0 {
		if err := ps.redis.SRem(ctx, onlineSetKey, expired).Err(); err != nil {
			ps.logger.Warn("Failed to prune online set", "error", err)
		}
	}

	return online, nil
}

// Subscribe returns a subscription to status changes of userID. Each message payload is a
// JSON encoded models.PresenceStatus.
func (ps *PresenceService) Subscribe(ctx context.Context, userID string) *redis.PubSub {
	return ps.redis.Subscribe(ctx, presenceEventPrefix+userID)
}

func (ps *PresenceService) alive(rec *models.PresenceRecord) bool {
	return !rec.LastSeen.IsZero() && ps.now().Sub(rec.LastSeen) <= ps.ttl
}

func (ps *PresenceService) statusFromRecord(rec *models.PresenceRecord) *models.PresenceStatus {
	status := &models.PresenceStatus{
		UserID:  rec.UserID,
		Status:  models.StatusOffline,
		Icon:    rec.Icon,
		Message: rec.Message,
		ClearAt: rec.ClearAt,
	}

	if rec.ClearAt != nil && !ps.now().Before(*rec.ClearAt) {
		status.Icon, status.Message, status.ClearAt = nil, nil, nil
	}

	// IsUserDefined is only reported when the user's choice is the status returned.
	switch {
	case rec.IsUserDefined && persistentStatuses[rec.UserStatus]:
		status.Status = rec.UserStatus
		status.IsUserDefined = true
	case !ps.alive(rec):
		status.Status = models.StatusOffline
	case rec.IsUserDefined:
		status.Status = rec.UserStatus
		status.IsUserDefined = true
	case rec.AutoStatus != "":
		status.Status = rec.AutoStatus
	default:
		status.Status = models.StatusOnline
	}

	return status
}

func (ps *PresenceService) load(ctx context.Context, c getter, userID string) (*models.PresenceRecord, error) {
	data, err := c.Get(ctx, presenceKeyPrefix+userID).Result()
	if err != nil {
		if err == redis.Nil {
			return &models.PresenceRecord{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	var rec models.PresenceRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence data: %w", err)
	}
	return &rec, nil
}

// update applies fn to the stored record inside a WATCH transaction and publishes the result.
func (ps *PresenceService) update(ctx context.Context, userID string, fn func(*models.PresenceRecord) error) (*models.PresenceStatus, error) {
	key := presenceKeyPrefix + userID
	var rec *models.PresenceRecord

	txf := func(tx *redis.Tx) error {
		var err error
		rec, err = ps.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		rec.UserID = userID
		rec.UpdatedAt = ps.now()

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal presence data: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = ps.redis.Watch(ctx, txf, key)
		if err != redis.TxFailedErr {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update presence: %w", err)
	}

	status := ps.statusFromRecord(rec)
	ps.publish(ctx, status)
	return status, nil
}

func (ps *PresenceService) publish(ctx context.Context, status *models.PresenceStatus) {
	data, err := json.Marshal(status)
	if err != nil {
		ps.logger.Error("Failed to marshal presence event", "user_id", status.UserID, "error", err)
		return
	}
	if err := ps.redis.Publish(ctx, presenceEventPrefix+status.UserID, data).Err(); err != nil {
		ps.logger.Warn("Failed to publish presence event", "user_id", status.UserID, "error", err)
	}
}
