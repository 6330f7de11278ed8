package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/xhad/ragchat/internal/models"
)

const Welcome = "Welcome to the RAG chatbot! Ask questions about the loaded documents, or load new documents to extend the knowledge base."

// Renderer prints conversation turns to a terminal.
type Renderer struct {
	out       io.Writer
	user      *color.Color
	assistant *color.Color
	system    *color.Color
	sources   *color.Color
}

func New(out io.Writer, useColor bool) *Renderer {
	r := &Renderer{
		out:       out,
		user:      color.New(color.FgGreen, color.Bold),
		assistant: color.New(color.FgCyan),
		system:    color.New(color.FgYellow),
		sources:   color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{r.user, r.assistant, r.system, r.sources} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (r *Renderer) RenderTurn(turn models.Turn) {
	switch turn.Author {
	case models.AuthorUser:
		r.user.Fprintf(r.out, "You: %s\n", turn.Text)
	case models.AuthorAssistant:
		r.assistant.Fprintf(r.out, "Assistant: %s\n", turn.Text)
		r.renderSources(turn.Sources)
	default:
		r.system.Fprintf(r.out, "! %s\n", turn.Text)
	}
}

func (r *Renderer) renderSources(sources []models.Citation) {
	if len(sources) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString("  Sources:\n")
	for _, src := range sources {
		fmt.Fprintf(&b, "   - %s\n", src.Label())
	}
	r.sources.Fprint(r.out, b.String())
}

func (r *Renderer) Info(format string, args ...any) {
	r.system.Fprintf(r.out, format+"\n", args...)
}

func (r *Renderer) Welcome() {
	r.assistant.Fprintln(r.out, Welcome)
}

// Tracker renders only the turns that have not been printed yet. User turns
// are skipped since the terminal already shows what was typed.
type Tracker struct {
	renderer *Renderer
	printed  int
}

func NewTracker(renderer *Renderer) *Tracker {
	return &Tracker{renderer: renderer}
}

// Render prints turns past the last rendered position and returns how many
// were printed. The turn list is append-only, so a position is enough.
func (t *Tracker) Render(turns []models.Turn) int {
	if len(turns) <= t.printed {
		return 0
	}
	n := 0
	for _, turn := range turns[t.printed:] {
		if turn.Author == models.AuthorUser {
			continue
		}
		t.renderer.RenderTurn(turn)
		n++
	}
	t.printed = len(turns)
	return n
}

// RenderAll prints the whole conversation, user turns included.
func (r *Renderer) RenderAll(turns []models.Turn) {
	for _, turn := range turns {
		r.RenderTurn(turn)
	}
}

// Skip marks turns as already shown without printing them.
func (t *Tracker) Skip(turns []models.Turn) {
	if len(turns) > t.printed {
		t.printed = len(turns)
	}
}
