package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Prompter asks for an integer in [0, limit], re-asking until it gets one.
// There is no timeout.
type Prompter interface {
	Choose(ctx context.Context, limit int) (int, error)
}

// parseChoice validates a menu answer. Only plain digits are accepted.
func parseChoice(input string, limit int) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.IndexFunc(input, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, fmt.Errorf("%s is not an integer", input)
	}
	n, err := strconv.Atoi(input)
	if err != nil || n > limit {
		return 0, fmt.Errorf("%s is greater than the maximum number (%d)", input, limit)
	}
	return n, nil
}

// LinePrompter reads answers line by line, e.g. from a pipe. It reads
// unbuffered and only while a Choose call is waiting, so input after an
// accepted answer stays in the reader.
type LinePrompter struct {
	in  io.Reader
	out io.Writer

	once    sync.Once
	want    chan struct{}
	lines   chan string
	pending bool // a line has been requested but not yet received
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: in, out: out}
}

// Choose returns ErrCancelled when input ends or ctx is cancelled.
func (p *LinePrompter) Choose(ctx context.Context, limit int) (int, error) {
	p.once.Do(p.startReader)
	for {
		fmt.Fprint(p.out, "> ")
		if !p.pending {
			p.want <- struct{}{}
			p.pending = true
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out)
			return 0, ErrCancelled
		case line, ok := <-p.lines:
			if !ok {
				fmt.Fprintln(p.out)
				return 0, ErrCancelled
			}
			p.pending = false
			n, err := parseChoice(line, limit)
			if err != nil {
				fmt.Fprintln(p.out, err)
				continue
			}
			return n, nil
		}
	}
}

// startReader moves reading off the caller's goroutine so a blocked read
// does not keep Choose from seeing cancellation. A read left blocked by a
// cancelled Choose is delivered to the next one.
func (p *LinePrompter) startReader() {
	p.want = make(chan struct{}, 1)
	p.lines = make(chan string)
	go func() {
		defer close(p.lines)
		for range p.want {
			line, err := readLine(p.in)
			if err != nil && line == "" {
				return
			}
			p.lines <- line
		}
	}()
}

// readLine reads up to and including the next newline one byte at a time.
func readLine(r io.Reader) (string, error) {
	var b strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				return strings.TrimSuffix(b.String(), "\r"), nil
			}
			b.WriteByte(buf[0])
		}
		if err != nil {
			return b.String(), err
		}
	}
}

// SurveyPrompter asks on an interactive terminal.
type SurveyPrompter struct {
	opts []survey.AskOpt
}

func NewSurveyPrompter(opts ...survey.AskOpt) *SurveyPrompter {
	return &SurveyPrompter{opts: opts}
}

func (p *SurveyPrompter) Choose(ctx context.Context, limit int) (int, error) {
	var answer string
	prompt := &survey.Input{Message: fmt.Sprintf("Select a container [0-%d]:", limit)}
	validate := func(ans interface{}) error {
		s, _ := ans.(string)
		_, err := parseChoice(s, limit)
		return err
	}

	opts := append([]survey.AskOpt{survey.WithValidator(validate)}, p.opts...)
	if err := survey.AskOne(prompt, &answer, opts...); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return 0, ErrCancelled
		}
		return 0, fmt.Errorf("prompt failed: %w", err)
	}
	if ctx.Err() != nil {
		return 0, ErrCancelled
	}
	return parseChoice(answer, limit)
}
