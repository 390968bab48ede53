package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/creator"
	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/gitignore"
)

func newTestPrompter(input string) (*terminalPrompter, *bytes.Buffer) {
	var out bytes.Buffer
	return &terminalPrompter{
		in:  bufio.NewReader(strings.NewReader(input)),
		out: &out,
		fd:  -1,
	}, &out
}

var promptTemplates = []gitignore.Template{
	{Name: "Go", Path: "Go.gitignore"},
	{Name: "Node", Path: "Node.gitignore"},
}

func TestTerminalPrompter_PickTemplate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "by number", input: "2\n", want: "Node"},
		{name: "by name", input: "go\n", want: "Go"},
		{name: "empty answer cancels", input: "\n", wantErr: creator.ErrCancelled},
		{name: "closed input cancels", input: "", wantErr: creator.ErrCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out := newTestPrompter(tt.input)
			got, err := p.PickTemplate(context.Background(), promptTemplates)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Name)
			assert.Contains(t, out.String(), "   2  Node")
		})
	}
}

func TestTerminalPrompter_PickTemplateOutOfRange(t *testing.T) {
	p, _ := newTestPrompter("3\n")
	_, err := p.PickTemplate(context.Background(), promptTemplates)
	assert.EqualError(t, err, "no template with number 3")
}

func TestTerminalPrompter_PickFolder(t *testing.T) {
	p, _ := newTestPrompter("2\n")
	got, err := p.PickFolder(context.Background(), []string{"/work/api", "/work/web"})
	require.NoError(t, err)
	assert.Equal(t, "/work/web", got)

	p, _ = newTestPrompter("web\n")
	_, err = p.PickFolder(context.Background(), []string{"/work/api", "/work/web"})
	assert.Error(t, err)
}

func TestTerminalPrompter_PickOperation(t *testing.T) {
	tests := []struct {
		input   string
		want    gitignore.OperationType
		wantErr bool
	}{
		{input: "a\n", want: gitignore.Append},
		{input: "\n", want: gitignore.Append},
		{input: "Overwrite\n", want: gitignore.Overwrite},
		{input: "O\n", want: gitignore.Overwrite},
		{input: "merge\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			p, out := newTestPrompter(tt.input)
			got, err := p.PickOperation(context.Background(), "/work/api/.gitignore")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "/work/api/.gitignore already exists")
		})
	}
}

func TestTerminalPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "maybe\n", want: false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			p, out := newTestPrompter(tt.input)
			got, err := p.Confirm(context.Background(), creator.ConsentQuestion)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestTerminalPrompter_ReadToken(t *testing.T) {
	p, _ := newTestPrompter("  ghp_secret \n")
	token, err := p.ReadToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", token)
}

func TestTerminalPrompter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a reader that never returns keeps the answer pending
	p := &terminalPrompter{in: bufio.NewReader(blockingReader{}), out: &bytes.Buffer{}, fd: -1}
	_, err := p.Confirm(ctx, "Continue?")
	assert.ErrorIs(t, err, creator.ErrCancelled)
}

func TestTerminalPrompter_SequentialPromptsShareInput(t *testing.T) {
	p, _ := newTestPrompter("o\ny\n")

	op, err := p.PickOperation(context.Background(), ".gitignore")
	require.NoError(t, err)
	assert.Equal(t, gitignore.Overwrite, op)

	ok, err := p.Confirm(context.Background(), "Continue?")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTerminalPrompter_LineAfterCancelledPromptGoesToNextPrompt(t *testing.T) {
	gate := make(chan struct{})
	p := &terminalPrompter{
		in:  bufio.NewReader(&gatedReader{gate: gate, r: strings.NewReader("y\n")}),
		out: &bytes.Buffer{},
		fd:  -1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Confirm(ctx, "First?")
	assert.ErrorIs(t, err, creator.ErrCancelled)

	close(gate)

	ok, err := p.Confirm(context.Background(), "Second?")
	require.NoError(t, err)
	assert.True(t, ok)
}

// gatedReader blocks until gate is closed
type gatedReader struct {
	gate <-chan struct{}
	r    *strings.Reader
}

func (g *gatedReader) Read(b []byte) (int, error) {
	<-g.gate
	return g.r.Read(b)
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}
