package presence

import (
	"context"
	"time"

	"chorus/groupware/models"
	"chorus/groupware/utils"
)

// ChangeStatusError is the notification shown when a user-initiated change fails.
const ChangeStatusError = "There was an error saving the new status"

// StatusAPI is the part of the status API used for user-initiated changes.
type StatusAPI interface {
	SetStatus(ctx context.Context, statusType models.StatusType) (*models.PresenceStatus, error)
	SetMessage(ctx context.Context, icon *string, message string, clearAt *time.Time) (*models.PresenceStatus, error)
	ClearMessage(ctx context.Context) (*models.PresenceStatus, error)
}

// Notifier shows a message to the user.
type Notifier interface {
	Error(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Error(msg string) { f(msg) }

// Preset is a status the user can pick from the menu.
type Preset struct {
	Type  models.StatusType
	Label string
	Key   string
}

// Presets returns the statuses offered in the menu.
func Presets() []Preset {
	return []Preset{
		{Type: models.StatusOnline, Label: "Online", Key: "o"},
		{Type: models.StatusAway, Label: "Away", Key: "a"},
		{Type: models.StatusDND, Label: "Do not disturb", Key: "d"},
		{Type: models.StatusInvisible, Label: "Invisible", Key: "i"},
	}
}

// Label returns the display label for a status type.
func Label(t models.StatusType) string {
	for _, p := range Presets() {
		if p.Type == t {
			return p.Label
		}
	}
	if t == models.StatusOffline {
		return "Offline"
	}
	return string(t)
}

// Menu performs user-initiated status changes. The store only changes after the server
// accepted a change; failures notify the user once and are not retried.
type Menu struct {
	api      StatusAPI
	store    *Store
	notifier Notifier
	logger   *utils.Logger
}

func NewMenu(api StatusAPI, store *Store, notifier Notifier, logger *utils.Logger) *Menu {
	return &Menu{
		api:      api,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

func (m *Menu) ChangeStatus(ctx context.Context, statusType models.StatusType) error {
	status, err := m.api.SetStatus(ctx, statusType)
	return m.apply(status, err, "status", statusType)
}

func (m *Menu) SetCustomMessage(ctx context.Context, icon *string, message string, clearAt *time.Time) error {
	status, err := m.api.SetMessage(ctx, icon, message, clearAt)
	return m.apply(status, err, "message", message)
}

func (m *Menu) ClearCustomMessage(ctx context.Context) error {
	status, err := m.api.ClearMessage(ctx)
	return m.apply(status, err, "message", nil)
}

func (m *Menu) apply(status *models.PresenceStatus, err error, field string, value interface{}) error {
	if err != nil {
		m.logger.Error("Failed to change status", field, value, "error", err)
		m.notifier.Error(ChangeStatusError)
		return err
	}
	m.store.Reconcile(*status)
	return nil
}
