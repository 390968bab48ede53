package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/creator"
	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/gitignore"
)

// terminalPrompter asks questions on stderr and reads answers from stdin, so
// stdout only carries command output
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
	// fd of stdin, used to read tokens without echo
	fd int

	// A single goroutine reads from in, one line per request. A line
	// requested by a prompt that gave up is handed to the next prompt.
	startReader sync.Once
	requests    chan struct{}
	lines       chan line

	mu      sync.Mutex
	pending bool
}

type line struct {
	text string
	err  error
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stderr,
		fd:  int(os.Stdin.Fd()),
	}
}

func (p *terminalPrompter) PickTemplate(ctx context.Context, templates []gitignore.Template) (gitignore.Template, error) {
	for i, template := range templates {
		fmt.Fprintf(p.out, "%4d  %s\n", i+1, template.Name)
	}

	answer, err := p.ask(ctx, "Select a .gitignore template (name or number): ")
	if err != nil {
		return gitignore.Template{}, err
	}

	if n, err := strconv.Atoi(answer); err == nil {
		if n < 1 || n > len(templates) {
			return gitignore.Template{}, fmt.Errorf("no template with number %d", n)
		}
		return templates[n-1], nil
	}

	template, ok := gitignore.Lookup(templates, answer)
	if !ok {
		return gitignore.Template{}, fmt.Errorf("unknown template %q", answer)
	}
	return template, nil
}

func (p *terminalPrompter) PickFolder(ctx context.Context, folders []string) (string, error) {
	for i, folder := range folders {
		fmt.Fprintf(p.out, "%4d  %s\n", i+1, folder)
	}

	answer, err := p.ask(ctx, "Select the folder to add the .gitignore to: ")
	if err != nil {
		return "", err
	}

	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(folders) {
		return "", fmt.Errorf("invalid folder selection %q", answer)
	}
	return folders[n-1], nil
}

func (p *terminalPrompter) PickOperation(ctx context.Context, target string) (gitignore.OperationType, error) {
	answer, err := p.askOptional(ctx, fmt.Sprintf("%s already exists. [A]ppend or [o]verwrite? ", target))
	if err != nil {
		return 0, err
	}

	switch strings.ToLower(answer) {
	case "", "a", "append":
		return gitignore.Append, nil
	case "o", "overwrite":
		return gitignore.Overwrite, nil
	default:
		return gitignore.ParseOperationType(answer)
	}
}

func (p *terminalPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.ask(ctx, question+" [y/N] ")
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ReadToken asks for a personal access token, without echo when stdin is a
// terminal
func (p *terminalPrompter) ReadToken(ctx context.Context) (string, error) {
	if !term.IsTerminal(p.fd) {
		return p.askOptional(ctx, "GitHub personal access token: ")
	}

	fmt.Fprint(p.out, "GitHub personal access token: ")
	token, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(token)), nil
}

// ask reads a non empty answer. An empty answer or a closed stdin cancels.
func (p *terminalPrompter) ask(ctx context.Context, question string) (string, error) {
	answer, err := p.askOptional(ctx, question)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", creator.ErrCancelled
	}
	return answer, nil
}

// askOptional reads an answer that may be empty. A closed stdin cancels.
func (p *terminalPrompter) askOptional(ctx context.Context, question string) (string, error) {
	fmt.Fprint(p.out, question)

	l, err := p.readLine(ctx)
	if err != nil {
		return "", creator.ErrCancelled
	}
	if l.err == io.EOF && l.text == "" {
		return "", creator.ErrCancelled
	}
	if l.err != nil && l.err != io.EOF {
		return "", fmt.Errorf("failed to read answer: %w", l.err)
	}
	return strings.TrimSpace(l.text), nil
}

// readLine waits for the next line of stdin or the end of ctx
func (p *terminalPrompter) readLine(ctx context.Context) (line, error) {
	p.startReader.Do(func() {
		p.requests = make(chan struct{}, 1)
		p.lines = make(chan line)
		go p.readLoop()
	})

	p.mu.Lock()
	if !p.pending {
		p.pending = true
		p.requests <- struct{}{}
	}
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return line{}, ctx.Err()
	case l := <-p.lines:
		p.mu.Lock()
		p.pending = false
		p.mu.Unlock()
		return l, nil
	}
}

func (p *terminalPrompter) readLoop() {
	for range p.requests {
		text, err := p.in.ReadString('\n')
		p.lines <- line{text: text, err: err}
	}
}
