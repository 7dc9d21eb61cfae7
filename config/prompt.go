package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks for request values that were not given on the command line.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Fill prompts for every unassigned value. An empty answer keeps the current
// value. The result is validated again afterwards.
func (p *Prompter) Fill(opts *Options) error {
	if !opts.SecurityAssigned {
		v, err := p.ask("Provide ticker: ")
		if err != nil {
			return err
		}
		if v != "" {
			opts.Security = v
		}
		opts.SecurityAssigned = true
	}
	if !opts.StartDateTimeAssigned {
		v, err := p.ask("Provide start date: ")
		if err != nil {
			return err
		}
		opts.StartDateTime = v
		opts.StartDateTimeAssigned = true
	}
	if !opts.EndDateTimeAssigned {
		v, err := p.ask("Provide end date: ")
		if err != nil {
			return err
		}
		opts.EndDateTime = v
		opts.EndDateTimeAssigned = true
	}
	return opts.Validate()
}

// WaitForEnter blocks until a line (or EOF) is read.
func (p *Prompter) WaitForEnter() {
	fmt.Fprintln(p.out, "Press ENTER to quit")
	_, _ = p.in.ReadString('\n')
}

func (p *Prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
