package widget

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Role identifies the author of a rendered message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Renderer draws the widget surface. Implementations report their own
// failures; the widget does not act on them.
type Renderer interface {
	SetVisible(ctx context.Context, visible bool)
	Clear(ctx context.Context)
	AddMessage(ctx context.Context, role Role, text string)
	Alert(ctx context.Context, text string)
}

// TextRenderer writes the surface as plain text lines.
type TextRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextRenderer returns a renderer writing to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) SetVisible(_ context.Context, visible bool) {
	if visible {
		r.printf("--- Longopass AI ---\n")
		return
	}
	r.printf("--- closed ---\n")
}

func (r *TextRenderer) Clear(_ context.Context) {}

func (r *TextRenderer) AddMessage(_ context.Context, role Role, text string) {
	if role == RoleUser {
		r.printf("you> %s\n", text)
		return
	}
	r.printf("ai> %s\n", text)
}

func (r *TextRenderer) Alert(_ context.Context, text string) {
	r.printf("\n[!] %s\n\n", text)
}

func (r *TextRenderer) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.w, format, args...)
}
