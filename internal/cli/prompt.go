package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers line by line. On a terminal, secrets are read
// without echo.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func (a *App) prompter() *prompter {
	if a.prompt == nil {
		a.prompt = &prompter{in: a.In, reader: bufio.NewReader(a.In), out: a.Err}
	}
	return a.prompt
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("no answer for %q", label)
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// askRequired repeats the question until the answer is non-empty.
func (p *prompter) askRequired(label string) (string, error) {
	for {
		v, err := p.ask(label)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
		fmt.Fprintf(p.out, "%s is required\n", label)
	}
}

func (p *prompter) secret(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(p.out, "%s: ", label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return p.ask(label)
}
