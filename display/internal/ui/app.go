package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/orderflow/orderrelay/display/internal/alerts"
	"github.com/orderflow/orderrelay/display/internal/render"
	"github.com/orderflow/orderrelay/display/internal/session"
	"github.com/orderflow/orderrelay/pkg/types"
)

const (
	defaultStatusPoll = 2 * time.Second
	defaultWarningTTL = 5 * time.Second
	publishTimeout    = 5 * time.Second
)

// Buffer is the notification store the UI draws from.
type Buffer interface {
	Messages() []types.Notification
	Len() int
	Clear()
}

// Publisher sends test notices to the relay.
type Publisher interface {
	PublishNotice(ctx context.Context, n types.OrderNotice) error
}

// Warner raises the warning for a test notice that could not be published.
type Warner interface {
	PublishFailed(orderID string, err error) alerts.Alert
}

// Options configures an App.
type Options struct {
	// StatusPoll is how often the header re-reads the connection status.
	StatusPoll time.Duration

	// WarningTTL is how long a warning stays in the warning bar.
	WarningTTL time.Duration

	// OnQuit runs when the user quits, before the UI stops.
	OnQuit func()

	// Warner reports failed test notices. Nil only logs them.
	Warner Warner
}

// App is the display's terminal UI.
type App struct {
	tapp   *tview.Application
	header *tview.TextView
	log    *tview.TextView
	toast  *tview.TextView
	footer *tview.TextView
	root   *tview.Flex

	buf    Buffer
	status *session.StatusWatcher
	pub    Publisher
	colors *render.Colors
	opts   Options

	stopped atomic.Bool
	testSeq atomic.Int64

	// dirty holds at most one pending redraw request; done closes when the
	// event loop has returned.
	dirty chan struct{}
	done  chan struct{}

	mu        sync.Mutex
	toastID   string
	toastText string
}

// New builds the UI. pub may be nil, which disables the test-notice key.
func New(buf Buffer, status *session.StatusWatcher, pub Publisher, opts Options) *App {
	if opts.StatusPoll <= 0 {
		opts.StatusPoll = defaultStatusPoll
	}
	if opts.WarningTTL <= 0 {
		opts.WarningTTL = defaultWarningTTL
	}
	a := &App{
		tapp:   tview.NewApplication(),
		buf:    buf,
		status: status,
		pub:    pub,
		colors: render.NewColors(),
		opts:   opts,
		dirty:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.header.SetBackgroundColor(ColorBackgroundPanel)

	a.log = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	a.log.SetBackgroundColor(ColorBackground)
	a.log.SetTextColor(ColorText)
	a.log.SetBorder(true).SetTitle(" Messages ")

	a.toast = tview.NewTextView().
		SetDynamicColors(true)
	a.toast.SetBackgroundColor(ColorWarningPanel)

	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetText(footerText())
	a.footer.SetBackgroundColor(ColorBackgroundPanel)

	a.root = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(a.log, 0, 1, true).
		AddItem(a.toast, 1, 0, false).
		AddItem(a.footer, 1, 0, false)

	a.tapp.SetRoot(a.root, true).EnableMouse(false)
	a.tapp.SetInputCapture(a.handleKey)

	a.draw()
	return a
}

// Run draws the UI until ctx is cancelled or the user quits.
func (a *App) Run(ctx context.Context) error {
	unsubscribe := a.status.Subscribe(func(session.Status) {
		a.Refresh()
	})
	defer unsubscribe()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.pump()
	go a.pollStatus(runCtx)
	go func() {
		<-runCtx.Done()
		a.stop()
	}()

	err := a.tapp.Run()
	a.stopped.Store(true)
	close(a.done)
	return err
}

// Refresh schedules a full redraw. Requests made while one is pending are
// merged, and requests after the UI stopped are dropped. Safe to call from
// any goroutine; it never blocks.
func (a *App) Refresh() {
	if a.stopped.Load() {
		return
	}
	select {
	case a.dirty <- struct{}{}:
	default:
	}
}

// pump forwards redraw requests to the event loop until it has returned.
func (a *App) pump() {
	for {
		select {
		case <-a.done:
			return
		case <-a.dirty:
		}
		select {
		case <-a.done:
			return
		default:
		}
		a.tapp.QueueUpdateDraw(func() {
			if !a.stopped.Load() {
				a.draw()
			}
		})
	}
}

// ShowWarning puts al in the warning bar for the configured TTL. Safe to
// call from any goroutine.
func (a *App) ShowWarning(al alerts.Alert) {
	a.mu.Lock()
	a.toastID = al.ID
	a.toastText = WarningText(al)
	a.mu.Unlock()
	a.Refresh()

	time.AfterFunc(a.opts.WarningTTL, func() {
		a.mu.Lock()
		current := a.toastID == al.ID
		if current {
			a.toastText = ""
		}
		a.mu.Unlock()
		if current {
			a.Refresh()
		}
	})
}

// warningText returns what the warning bar currently shows.
func (a *App) warningText() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.toastText
}

func (a *App) pollStatus(ctx context.Context) {
	ticker := time.NewTicker(a.opts.StatusPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.Refresh()
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyCtrlC {
		a.quit()
		return nil
	}
	if event.Key() == tcell.KeyRune && a.handleRune(event.Rune()) {
		return nil
	}
	return event
}

// handleRune runs the binding for r and reports whether one exists.
func (a *App) handleRune(r rune) bool {
	switch r {
	case 'c':
		a.buf.Clear()
		a.draw()
	case 't':
		a.sendTestNotice()
	case 'q':
		a.quit()
	default:
		return false
	}
	return true
}

func (a *App) sendTestNotice() {
	if a.pub == nil {
		return
	}
	n := types.OrderNotice{
		OrderID: fmt.Sprintf("display-test-%d", a.testSeq.Add(1)),
		Message: "Test notice from display",
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := a.pub.PublishNotice(ctx, n); err != nil {
			slog.Error("ui: test notice failed", "order_id", n.OrderID, "err", err)
			if a.opts.Warner != nil {
				a.opts.Warner.PublishFailed(n.OrderID, err)
			}
		}
	}()
}

func (a *App) quit() {
	if a.opts.OnQuit != nil {
		a.opts.OnQuit()
	}
	a.stop()
}

// stop ends the event loop. The stop is queued so it also takes effect when
// requested before the loop has started.
func (a *App) stop() {
	if a.stopped.Swap(true) {
		return
	}
	a.tapp.QueueUpdate(a.tapp.Stop)
}

func (a *App) draw() {
	a.drawHeader()
	a.toast.SetText(a.warningText())
	a.log.SetText(LogText(render.Groups(a.buf.Messages(), a.colors)))
	a.log.ScrollToEnd()
}

func (a *App) drawHeader() {
	a.header.SetText(HeaderText(a.status.Get(), a.buf.Len()))
}
