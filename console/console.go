// Package console is the terminal front end of the onboarding chat: a
// blocking line reader and styled output.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/tidwall/pretty"

	"github.com/atmosuwiryo/onboarding-chatbot/onboarding"
)

type Styles struct {
	Banner    lipgloss.Style
	Hint      lipgloss.Style
	Prompt    lipgloss.Style
	Assistant lipgloss.Style
	Status    lipgloss.Style
	Success   lipgloss.Style
}

// DefaultStyles builds styles for the given renderer. A renderer on a
// non-terminal writer drops colors.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Banner:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Hint:      r.NewStyle().Faint(true),
		Prompt:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Assistant: r.NewStyle().Foreground(lipgloss.Color("117")),
		Status:    r.NewStyle().Foreground(lipgloss.Color("192")),
		Success:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
	}
}

type line struct {
	text string
	err  error
}

// Console reads user lines and writes the conversation.
type Console struct {
	in     *bufio.Reader
	out    io.Writer
	styles Styles
	color  bool
	prompt string

	once  sync.Once
	lines chan line
}

type Option func(*Console)

// WithColor forces colored record output on or off.
func WithColor(color bool) Option {
	return func(c *Console) { c.color = color }
}

// WithPrompt replaces the input prompt.
func WithPrompt(prompt string) Option {
	return func(c *Console) { c.prompt = prompt }
}

func New(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		in:     bufio.NewReader(in),
		out:    out,
		styles: DefaultStyles(lipgloss.NewRenderer(out)),
		color:  isTerminal(out),
		prompt: "You: ",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ReadLine prints the prompt and blocks until a line is read or ctx is
// done. It returns io.EOF once input is exhausted.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	c.once.Do(func() {
		c.lines = make(chan line)
		go c.readLoop()
	})

	fmt.Fprint(c.out, c.styles.Prompt.Render(c.prompt))
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// readLoop owns the reader so a cancelled ReadLine never races a later one.
func (c *Console) readLoop() {
	defer close(c.lines)
	for {
		text, err := c.in.ReadString('\n')
		text = strings.TrimRight(text, "\r\n")
		switch {
		case err == nil:
			c.lines <- line{text: text}
		case errors.Is(err, io.EOF):
			if text != "" {
				c.lines <- line{text: text}
			}
			return
		default:
			c.lines <- line{err: err}
			return
		}
	}
}

// Reply prints an assistant message.
func (c *Console) Reply(text string) {
	fmt.Fprintln(c.out, c.styles.Assistant.Render("Assistant: "+text))
}

// Banner prints the greeting shown before the conversation starts.
func (c *Console) Banner(exitSentinel string) {
	fmt.Fprintln(c.out, c.styles.Banner.Render("Business onboarding"))
	fmt.Fprintln(c.out, c.styles.Hint.Render(fmt.Sprintf("Type %q at any time to leave.", exitSentinel)))
	fmt.Fprintln(c.out)
}

func (c *Console) Status(text string) {
	fmt.Fprintln(c.out, c.styles.Status.Render(text))
}

// PrintRecord writes the completed record as indented JSON, colored when
// the output is a terminal.
func (c *Console) PrintRecord(rec *onboarding.Record) error {
	data, err := rec.JSON()
	if err != nil {
		return err
	}
	data = pretty.Pretty(data)
	if c.color {
		data = pretty.Color(data, pretty.TerminalStyle)
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.styles.Success.Render("Onboarding complete"))
	fmt.Fprintln(c.out, c.styles.Hint.Render(rec.Summary()))
	if _, err := c.out.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}
