package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chorus/groupware/models"
	"chorus/groupware/presence"
	"chorus/groupware/utils"
)

type fakeMenu struct {
	statuses []models.StatusType
	messages []string
	icons    []*string
	clears   int
	err      error
}

func (f *fakeMenu) ChangeStatus(ctx context.Context, statusType models.StatusType) error {
	f.statuses = append(f.statuses, statusType)
	return f.err
}

func (f *fakeMenu) SetCustomMessage(ctx context.Context, icon *string, message string, clearAt *time.Time) error {
	f.icons = append(f.icons, icon)
	f.messages = append(f.messages, message)
	return f.err
}

func (f *fakeMenu) ClearCustomMessage(ctx context.Context) error {
	f.clears++
	return f.err
}

type countingActivity struct{ moves int }

func (a *countingActivity) Move() { a.moves++ }

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func TestPresetKeyChangesStatus(t *testing.T) {
	menu := &fakeMenu{}
	activity := &countingActivity{}
	m := NewModel(context.Background(), menu, activity)

	m, cmd := update(t, m, keys("d"))
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Contains(t, m.View(), "saving")

	// A second pick while the first is in flight is ignored.
	_, second := update(t, m, keys("a"))
	assert.Nil(t, second)

	m, _ = update(t, m, cmd())
	assert.False(t, m.busy)
	assert.Equal(t, []models.StatusType{models.StatusDND}, menu.statuses)
	assert.Equal(t, 2, activity.moves)
}

func TestMouseMotionCountsAsActivity(t *testing.T) {
	activity := &countingActivity{}
	m := NewModel(context.Background(), &fakeMenu{}, activity)

	for i := 0; i < 3; i++ {
		m, _ = update(t, m, tea.MouseMsg{X: i, Y: 1, Action: tea.MouseActionMotion})
	}
	assert.Equal(t, 3, activity.moves)
}

func TestCustomMessageFlow(t *testing.T) {
	menu := &fakeMenu{}
	m := NewModel(context.Background(), menu, &countingActivity{})

	m, _ = update(t, m, keys("c"))
	require.True(t, m.editing)

	// Preset keys are text while editing.
	m, _ = update(t, m, keys("🍕 Lunch"))
	assert.Empty(t, menu.statuses)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.editing)
	require.NotNil(t, cmd)
	cmd()

	require.Equal(t, []string{"Lunch"}, menu.messages)
	require.NotNil(t, menu.icons[0])
	assert.Equal(t, "🍕", *menu.icons[0])
}

func TestCustomMessageInputLimit(t *testing.T) {
	menu := &fakeMenu{}
	m := NewModel(context.Background(), menu, &countingActivity{})

	m, _ = update(t, m, keys("c"))
	m, _ = update(t, m, keys(strings.Repeat("a", models.MaxMessageLength+40)))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, menu.messages, 1)
	assert.Equal(t, strings.Repeat("a", models.MaxMessageLength), menu.messages[0])
}

func TestCustomMessageCancel(t *testing.T) {
	menu := &fakeMenu{}
	m := NewModel(context.Background(), menu, &countingActivity{})

	m, _ = update(t, m, keys("c"))
	m, _ = update(t, m, keys("Lunch"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.editing)
	assert.Nil(t, cmd)
	assert.Empty(t, menu.messages)
}

func TestClearMessageKey(t *testing.T) {
	menu := &fakeMenu{}
	m := NewModel(context.Background(), menu, &countingActivity{})

	_, cmd := update(t, m, keys("x"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, menu.clears)
}

func TestStatusUpdatesRender(t *testing.T) {
	store := presence.NewStore()
	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	m := NewModel(context.Background(), &fakeMenu{}, &countingActivity{},
		WithUpdates(store.Snapshot(), updates))
	assert.Contains(t, m.View(), "Offline")

	msgText, icon := "In a meeting", "📅"
	store.Load(models.PresenceStatus{Status: models.StatusDND, Message: &msgText, Icon: &icon})

	cmd := waitForStatus(updates)
	m, next := update(t, m, cmd())
	assert.NotNil(t, next)

	view := m.View()
	assert.Contains(t, view, "Do not disturb")
	assert.Contains(t, view, "📅 In a meeting")
}

func TestFailedChangeShowsOneToast(t *testing.T) {
	toaster := NewToaster()
	api := &failingStatusAPI{}
	store := presence.NewStore()
	menu := presence.NewMenu(api, store, toaster, utils.NewNopLogger())

	m := NewModel(context.Background(), menu, &countingActivity{}, WithToaster(toaster))

	m, cmd := update(t, m, keys("i"))
	m, _ = update(t, m, cmd())

	m, _ = update(t, m, waitForToast(toaster.ch)())
	assert.Contains(t, m.View(), presence.ChangeStatusError)
	assert.Empty(t, toaster.ch, "exactly one notification")

	// A stale clear does not hide a newer toast.
	m, _ = update(t, m, clearToastMsg{id: m.toastID - 1})
	assert.Contains(t, m.View(), presence.ChangeStatusError)

	m, _ = update(t, m, clearToastMsg{id: m.toastID})
	assert.NotContains(t, m.View(), presence.ChangeStatusError)
	assert.Equal(t, models.StatusOffline, store.Snapshot().Status)
}

type failingStatusAPI struct{}

func (failingStatusAPI) SetStatus(ctx context.Context, statusType models.StatusType) (*models.PresenceStatus, error) {
	return nil, errors.New("503 service unavailable")
}

func (failingStatusAPI) SetMessage(ctx context.Context, icon *string, message string, clearAt *time.Time) (*models.PresenceStatus, error) {
	return nil, errors.New("503 service unavailable")
}

func (failingStatusAPI) ClearMessage(ctx context.Context) (*models.PresenceStatus, error) {
	return nil, errors.New("503 service unavailable")
}

func TestSplitIcon(t *testing.T) {
	tests := []struct {
		in       string
		wantIcon string
		wantText string
	}{
		{in: "📅 In a meeting", wantIcon: "📅", wantText: "In a meeting"},
		{in: "  🍕   Lunch ", wantIcon: "🍕", wantText: "Lunch"},
		{in: "Lunch break", wantText: "Lunch break"},
		{in: "🍕", wantText: "🍕"},
		{in: "2 minutes", wantText: "2 minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			icon, text := SplitIcon(tt.in)
			assert.Equal(t, tt.wantText, text)
			if tt.wantIcon == "" {
				assert.Nil(t, icon)
				return
			}
			require.NotNil(t, icon)
			assert.Equal(t, tt.wantIcon, *icon)
		})
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(context.Background(), &fakeMenu{}, &countingActivity{})
	_, cmd := update(t, m, keys("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
