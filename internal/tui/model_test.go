package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallrot/wallrot/internal/imageprovider"
	"github.com/wallrot/wallrot/internal/rotator"
)

type fakeController struct {
	pos              rotator.Position
	next, prev, rand int
}

func (f *fakeController) Next()                  { f.next++ }
func (f *fakeController) Prev()                  { f.prev++ }
func (f *fakeController) Random(context.Context) { f.rand++ }
func (f *fakeController) Current() rotator.Position {
	return f.pos
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestKeysDriveController(t *testing.T) {
	ctrl := &fakeController{}
	m := New(context.Background(), ctrl, make(chan rotator.Event))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})

	assert.Equal(t, 1, ctrl.next)
	assert.Equal(t, 1, ctrl.prev)
	assert.Equal(t, 1, ctrl.rand)
}

func TestQuitKey(t *testing.T) {
	m := New(context.Background(), &fakeController{}, make(chan rotator.Event))
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEventShowsSourceAndSize(t *testing.T) {
	ctrl := &fakeController{pos: rotator.Position{Index: 2, ID: "sunset.jpg", Total: 5}}
	m := New(context.Background(), ctrl, make(chan rotator.Event))

	m, cmd := update(t, m, eventMsg{
		ID:         "sunset.jpg",
		Index:      2,
		Total:      5,
		URL:        "/images/sunset.jpg",
		SourceKind: imageprovider.SourceLocalFallback,
		Width:      1920,
		Height:     1080,
		Size:       2048,
	})
	assert.NotNil(t, cmd, "keeps listening for events")
	assert.False(t, m.loading)

	view := m.View()
	assert.Contains(t, view, "3 / 5")
	assert.Contains(t, view, "sunset.jpg")
	assert.Contains(t, view, "local-fallback")
	assert.Contains(t, view, "1920×1080")
	assert.Contains(t, view, "2.00KiB")
}

func TestEventShowsError(t *testing.T) {
	ctrl := &fakeController{pos: rotator.Position{Index: 0, ID: "a.jpg", Total: 1}}
	m := New(context.Background(), ctrl, make(chan rotator.Event))

	m, _ = update(t, m, eventMsg{ID: "a.jpg", Err: imageprovider.ErrAllSourcesFailed})
	assert.Contains(t, m.View(), imageprovider.ErrAllSourcesFailed.Error())
}

func TestNavigationShowsLoading(t *testing.T) {
	ctrl := &fakeController{pos: rotator.Position{ID: "a.jpg", Total: 2}}
	m := New(context.Background(), ctrl, make(chan rotator.Event))
	m, _ = update(t, m, eventMsg{ID: "a.jpg", SourceKind: imageprovider.SourceLocal})
	require.False(t, m.loading)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.True(t, m.loading)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "loading")
}

func TestClosedEventsQuit(t *testing.T) {
	events := make(chan rotator.Event)
	close(events)

	msg := waitForEvent(events)()
	assert.IsType(t, eventsClosedMsg{}, msg)

	m := New(context.Background(), &fakeController{}, events)
	_, cmd := update(t, m, msg)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "", formatSize(0, 0, 0))
	assert.Equal(t, "512B", formatSize(0, 0, 512))
	assert.Equal(t, "640×480 · 1.50MiB", formatSize(640, 480, 1536*1024))
}
