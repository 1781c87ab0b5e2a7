package models

import "time"

// StatusType is a presence status as shown in the user status menu.
type StatusType string

const (
	StatusOnline    StatusType = "online"
	StatusAway      StatusType = "away"
	StatusDND       StatusType = "dnd" // Do Not Disturb
	StatusInvisible StatusType = "invisible"
	StatusOffline   StatusType = "offline"
)

// MaxMessageLength is the longest custom status message in runes.
const MaxMessageLength = 80

// StatusTypes lists every valid status in menu order.
var StatusTypes = []StatusType{StatusOnline, StatusAway, StatusDND, StatusInvisible, StatusOffline}

// Valid reports whether s is one of the known status types.
func (s StatusType) Valid() bool {
	for _, t := range StatusTypes {
		if s == t {
			return true
		}
	}
	return false
}

// PresenceStatus is the canonical status of a user as served by the status endpoint.
type PresenceStatus struct {
	UserID        string     `json:"user_id"`
	Status        StatusType `json:"status"`
	IsUserDefined bool       `json:"status_is_user_defined"`
	Icon          *string    `json:"icon"`
	Message       *string    `json:"message"`
	ClearAt       *time.Time `json:"clear_at"`
}

// PresenceRecord is what the presence service keeps per user in Redis.
type PresenceRecord struct {
	UserID        string     `json:"user_id"`
	AutoStatus    StatusType `json:"auto_status"` // online or away, from heartbeats
	LastSeen      time.Time  `json:"last_seen"`
	UserStatus    StatusType `json:"user_status,omitempty"`
	IsUserDefined bool       `json:"is_user_defined"`
	Icon          *string    `json:"icon,omitempty"`
	Message       *string    `json:"message,omitempty"`
	ClearAt       *time.Time `json:"clear_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type HeartbeatRequest struct {
	Away bool `json:"away"`
}

type SetStatusRequest struct {
	StatusType StatusType `json:"statusType" binding:"required"`
}

type SetMessageRequest struct {
	Icon    *string    `json:"icon"`
	Message string     `json:"message"`
	ClearAt *time.Time `json:"clearAt"`
}

type OnlineUsersResponse struct {
	Count int              `json:"count"`
	Users []PresenceStatus `json:"users"`
}
