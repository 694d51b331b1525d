// Package terminal reads answers typed at an interactive prompt and tidies
// the screen afterwards.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks questions on Out and reads answers from In. Echo is turned
// off for secrets when In is a terminal.
type Prompter struct {
	In  *os.File
	Out io.Writer

	reader *bufio.Reader
}

// NewPrompter returns a Prompter on stdin and stdout.
func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stdout}
}

func (p *Prompter) lineReader() *bufio.Reader {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	return p.reader
}

// Ask prints prompt and returns the trimmed answer, or def when the answer
// is empty.
func (p *Prompter) Ask(prompt, def string) (string, error) {
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]", prompt, def)
	}
	fmt.Fprintf(p.Out, "%s: ", prompt)
	line, err := p.lineReader().ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	if v := strings.TrimSpace(line); v != "" {
		return v, nil
	}
	return def, nil
}

// Secret prints prompt and reads an answer without echoing it. When In is
// not a terminal the answer is read as a plain line.
func (p *Prompter) Secret(prompt string) (string, error) {
	fmt.Fprintf(p.Out, "%s: ", prompt)
	fd := int(p.In.Fd())
	if !term.IsTerminal(fd) {
		line, err := p.lineReader().ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// ClearPreviousLines clears textLength characters of previously printed
// text, accounting for line wrapping at the current terminal width, plus the
// line left behind by the Enter key.
func ClearPreviousLines(w io.Writer, textLength int) {
	termWidth := 80
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		termWidth = width
	}

	totalLines := int(math.Ceil(float64(textLength) / float64(termWidth)))
	if totalLines < 1 {
		totalLines = 1
	}
	linesToClear := totalLines + 1

	for i := 0; i < linesToClear; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < linesToClear-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}
