package preview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"libdb.so/emberglow/internal/led"
)

// ErrQuit is returned by Terminal.Run when the user asks to quit.
var ErrQuit = errors.New("quit requested")

// Terminal draws frames as a row of colored cells in the terminal. The strip
// wraps onto the next line when it is wider than the screen.
type Terminal struct {
	screen tcell.Screen
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ led.Output = (*Terminal)(nil)

// NewTerminal initializes screen and returns a terminal preview drawing onto
// it. If screen is nil, the controlling terminal is used.
func NewTerminal(screen tcell.Screen, logger *slog.Logger) (*Terminal, error) {
	if screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return nil, errors.Wrap(err, "failed to create screen")
		}
		screen = s
	}

	if err := screen.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize screen")
	}
	screen.HideCursor()
	screen.Clear()

	return &Terminal{
		screen: screen,
		logger: logger,
	}, nil
}

// WriteFrame implements led.Output.
func (t *Terminal) WriteFrame(_ context.Context, frame led.LEDs) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	width, _ := t.screen.Size()
	if width < 1 {
		return nil
	}

	t.screen.Clear()
	drawText(t.screen, 0, 0, fmt.Sprintf("emberglow: %d LEDs (q to quit)", len(frame)))

	for i, c := range frame {
		r, g, b := c[0], c[1], c[2]
		style := tcell.StyleDefault.Background(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
		t.screen.SetContent(i%width, 1+i/width, ' ', nil, style)
	}

	t.screen.Show()
	return nil
}

// Run handles terminal events until ctx is canceled or the user presses q,
// Escape or Ctrl-C, in which case ErrQuit is returned.
func (t *Terminal) Run(ctx context.Context) error {
	events := make(chan tcell.Event)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-stop:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return ErrQuit
				}
			case *tcell.EventResize:
				t.mu.Lock()
				if !t.closed {
					t.screen.Sync()
				}
				t.mu.Unlock()
			}
		}
	}
}

// Close restores the terminal. It is safe to call more than once.
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed {
		t.closed = true
		t.screen.Fini()
	}
	return nil
}

func drawText(s tcell.Screen, x, y int, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, tcell.StyleDefault)
		x++
	}
}
