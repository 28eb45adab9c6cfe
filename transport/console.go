package transport

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Console renders hub messages on a terminal. Chunks are printed inline as
// they arrive; the final message closes the line. When chunks were already
// streamed the final text is not repeated.
type Console struct {
	out io.Writer

	mu        sync.Mutex
	streaming map[string]bool

	chunk    *color.Color
	final    *color.Color
	login    *color.Color
	degraded *color.Color
}

// NewConsole creates a console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:       out,
		streaming: make(map[string]bool),
		chunk:     color.New(color.FgCyan),
		final:     color.New(color.FgGreen),
		login:     color.New(color.FgYellow, color.Bold),
		degraded:  color.New(color.FgRed),
	}
}

// Render prints one message.
func (c *Console) Render(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Kind {
	case KindPartial:
		if !c.streaming[msg.MessageID] {
			c.streaming[msg.MessageID] = true
			fmt.Fprint(c.out, c.chunk.Sprint("creo> "))
		}
		fmt.Fprint(c.out, msg.Text)
	case KindFinal:
		streamed := c.streaming[msg.MessageID]
		delete(c.streaming, msg.MessageID)

		switch {
		case msg.Flags.AuthRequired:
			if streamed {
				fmt.Fprintln(c.out)
			}
			fmt.Fprintf(c.out, "%s %s\n", c.login.Sprint("🔒"), msg.Text)
		case msg.Flags.Degraded:
			if streamed {
				fmt.Fprintln(c.out)
			}
			fmt.Fprintf(c.out, "%s %s\n", c.degraded.Sprint("⚠"), msg.Text)
		case streamed:
			fmt.Fprintln(c.out)
		default:
			fmt.Fprintf(c.out, "%s%s\n", c.final.Sprint("creo> "), msg.Text)
		}
	}
}

// Drain renders messages from ch until it is closed. It returns after the
// first final message when untilFinal is set.
func (c *Console) Drain(ch <-chan Message, untilFinal bool) {
	for msg := range ch {
		c.Render(msg)
		if untilFinal && msg.Kind == KindFinal {
			return
		}
	}
}
