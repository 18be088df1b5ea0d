// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package consent

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
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// ErrNoTerminal is returned by OpenTerminal when no controlling terminal
// is available for interactive consent.
var ErrNoTerminal = errors.New("no controlling terminal for consent prompts")

// Prompter is an interactive Policy that asks a person to approve each
// request with a yes/no answer. Prompts are serialized, so concurrent
// gates sharing one Prompter never interleave their questions.
//
// End of input is an error, not a denial: a Filter call using the
// prompter aborts when nobody is left to answer.
type Prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	packageStyle lipgloss.Style
	detailStyle  lipgloss.Style
	questionText lipgloss.Style
}

// NewPrompter creates a prompter reading answers from in and writing
// questions to out. Styling follows the color capabilities of out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	renderer := lipgloss.NewRenderer(out)
	return &Prompter{
		in:           bufio.NewReader(in),
		out:          out,
		packageStyle: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		detailStyle:  renderer.NewStyle().Foreground(lipgloss.Color("11")),
		questionText: renderer.NewStyle().Faint(true),
	}
}

// Decide implements Policy. Unrecognized answers repeat the question.
func (p *Prompter) Decide(ctx context.Context, request Request) (Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return Abstain, err
		}

		// Package names and paths come from manifests and callers; escape
		// sequences in them must not reach the terminal.
		fmt.Fprintf(p.out, "%s requests %s\n%s ",
			p.packageStyle.Render(ansi.Strip(request.Package)),
			p.detailStyle.Render(ansi.Strip(request.Description())),
			p.questionText.Render("Allow? [y/n]:"),
		)

		line, err := p.in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return Allow, nil
		case "n", "no":
			return Deny, nil
		}
		if err != nil {
			fmt.Fprintln(p.out)
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return Abstain, fmt.Errorf("reading consent answer: %w", err)
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
}

// Terminal is a Prompter bound to the process's controlling terminal.
type Terminal struct {
	*Prompter
	file *os.File
}

// OpenTerminal opens /dev/tty for consent prompts. Standard input and
// output are left alone because they usually carry the tool server's
// data stream.
func OpenTerminal() (*Terminal, error) {
	file, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTerminal, err)
	}
	if !term.IsTerminal(int(file.Fd())) {
		file.Close()
		return nil, ErrNoTerminal
	}
	return &Terminal{Prompter: NewPrompter(file, file), file: file}, nil
}

// Close releases the terminal.
func (t *Terminal) Close() error {
	return t.file.Close()
}
