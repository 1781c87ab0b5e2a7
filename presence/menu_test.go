package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chorus/groupware/models"
	"chorus/groupware/utils"
)

type fakeStatusAPI struct {
	err   error
	calls int
}

func (f *fakeStatusAPI) SetStatus(ctx context.Context, statusType models.StatusType) (*models.PresenceStatus, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.PresenceStatus{UserID: "alice", Status: statusType, IsUserDefined: true}, nil
}

func (f *fakeStatusAPI) SetMessage(ctx context.Context, icon *string, message string, clearAt *time.Time) (*models.PresenceStatus, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.PresenceStatus{UserID: "alice", Status: models.StatusOnline, Icon: icon, Message: &message, ClearAt: clearAt}, nil
}

func (f *fakeStatusAPI) ClearMessage(ctx context.Context) (*models.PresenceStatus, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.PresenceStatus{UserID: "alice", Status: models.StatusOnline}, nil
}

type countingNotifier struct {
	messages []string
}

func (n *countingNotifier) Error(msg string) {
	n.messages = append(n.messages, msg)
}

func TestMenuChangeStatus(t *testing.T) {
	api := &fakeStatusAPI{}
	store := NewStore()
	notifier := &countingNotifier{}
	menu := NewMenu(api, store, notifier, utils.NewNopLogger())

	require.NoError(t, menu.ChangeStatus(context.Background(), models.StatusDND))

	snap := store.Snapshot()
	assert.Equal(t, models.StatusDND, snap.Status)
	assert.True(t, snap.IsUserDefined)
	assert.Empty(t, notifier.messages)
}

func TestMenuChangeStatusFailure(t *testing.T) {
	api := &fakeStatusAPI{}
	store := NewStore()
	store.Load(models.PresenceStatus{UserID: "alice", Status: models.StatusOnline})
	notifier := &countingNotifier{}
	menu := NewMenu(api, store, notifier, utils.NewNopLogger())

	api.err = errors.New("502 bad gateway")
	err := menu.ChangeStatus(context.Background(), models.StatusInvisible)
	assert.ErrorIs(t, err, api.err)

	assert.Equal(t, models.StatusOnline, store.Snapshot().Status, "failed change leaves status as it was")
	assert.Equal(t, []string{ChangeStatusError}, notifier.messages)
	assert.Equal(t, 1, api.calls, "no retry")
}

func TestMenuCustomMessage(t *testing.T) {
	api := &fakeStatusAPI{}
	store := NewStore()
	notifier := &countingNotifier{}
	menu := NewMenu(api, store, notifier, utils.NewNopLogger())
	ctx := context.Background()

	icon := "📅"
	require.NoError(t, menu.SetCustomMessage(ctx, &icon, "In a meeting", nil))
	snap := store.Snapshot()
	require.NotNil(t, snap.Message)
	assert.Equal(t, "In a meeting", *snap.Message)
	assert.Equal(t, "📅", *snap.Icon)

	require.NoError(t, menu.ClearCustomMessage(ctx))
	assert.Nil(t, store.Snapshot().Message)

	api.err = errors.New("timeout")
	assert.Error(t, menu.SetCustomMessage(ctx, nil, "Lunch", nil))
	assert.Nil(t, store.Snapshot().Message)
	assert.Len(t, notifier.messages, 1)
}

func TestNotifierFunc(t *testing.T) {
	var got string
	var n Notifier = NotifierFunc(func(msg string) { got = msg })
	n.Error("boom")
	assert.Equal(t, "boom", got)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Do not disturb", Label(models.StatusDND))
	assert.Equal(t, "Offline", Label(models.StatusOffline))
	assert.Len(t, Presets(), 4)
}
