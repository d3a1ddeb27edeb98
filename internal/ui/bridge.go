package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/zipdrop/internal/gateway"
)

var (
	_ gateway.Notifier  = (*Bridge)(nil)
	_ gateway.Navigator = (*Bridge)(nil)
)

// Bridge lets the gateway and services reach a running program: notices become toasts and
// navigation requests become view changes.
type Bridge struct {
	mu      sync.RWMutex
	send    func(tea.Msg)
	current ViewState
	pending []tea.Msg
}

// NewBridge creates a [Bridge] starting on view.
func NewBridge(view ViewState) *Bridge {
	return &Bridge{current: view}
}

// Attach delivers messages to p from now on, flushing any sent before it started.
func (b *Bridge) Attach(p *tea.Program) {
	b.attach(p.Send)
}

func (b *Bridge) attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, msg := range pending {
		send(msg)
	}
}

// Notify implements [gateway.Notifier].
func (b *Bridge) Notify(kind gateway.NoticeKind, message string) {
	b.dispatch(noticeMsg(kind, message))
}

// Navigate implements [gateway.Navigator].
func (b *Bridge) Navigate(view string) {
	b.dispatch(navigateMsg(ViewState(view)))
}

// Current implements [gateway.Navigator].
func (b *Bridge) Current() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.current)
}

func (b *Bridge) setCurrent(view ViewState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = view
}

func (b *Bridge) dispatch(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	if send == nil {
		b.pending = append(b.pending, msg)
	}
	b.mu.Unlock()

	if send != nil {
		send(msg)
	}
}
