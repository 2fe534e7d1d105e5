package espalier

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/espalier-io/espalier/pkg/domain"
)

// ContentRenderer transforms informational content before it is printed.
// This allows markdown-to-ANSI rendering without coupling the core package
// to a terminal library.
type ContentRenderer func(string) (string, error)

// Runner drives one session over line-based IO. It is frontend-agnostic:
// wire os.Stdin/os.Stdout for a terminal, or buffers for tests.
type Runner struct {
	Input  io.Reader
	Output io.Writer

	// Headless suppresses prompts, banners, and auto-advance pauses, for
	// scripted runs fed by a prepared input stream.
	Headless bool

	Renderer ContentRenderer
}

// Run executes the fill-out loop until the session completes, the input
// stream ends, or the user quits.
func (r *Runner) Run(ctx context.Context, sess *Session) error {
	if r.Input == nil {
		return errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return errors.New("output writer must be set (use os.Stdout)")
	}
	in := bufio.NewReader(r.Input)
	out := r.Output

	if !r.Headless {
		fmt.Fprintf(out, "=== %s ===\n", sess.Form().Name)
		if w := sess.Form().Welcome; w != nil {
			fmt.Fprintln(out, w.Title)
			if w.Message != "" {
				fmt.Fprintln(out, w.Message)
			}
		}
	}

	for {
		snap := sess.Snapshot(ctx)
		if snap.Completed {
			if !r.Headless {
				fmt.Fprintln(out, "All done, thank you!")
			}
			return nil
		}

		r.renderScreen(out, snap)

		quit, err := r.collectScreen(ctx, in, out, sess, snap)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if quit {
			return nil
		}
	}
}

// collectScreen prompts for every interactive question on the screen, then
// advances. It returns quit=true on an explicit exit command.
func (r *Runner) collectScreen(ctx context.Context, in *bufio.Reader, out io.Writer, sess *Session, snap *Snapshot) (bool, error) {
	for _, sq := range snap.Questions {
		q := sq.Question
		if !q.Interactive() {
			continue
		}

		r.renderQuestion(out, &q, sq.Value)
		if !r.Headless {
			fmt.Fprint(out, "> ")
		}

		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return false, err
		}
		input := strings.TrimSpace(line)

		switch input {
		case "exit", "quit":
			if !r.Headless {
				fmt.Fprintln(out, "Bye!")
			}
			return true, nil
		case ":back":
			if _, err := sess.Back(ctx); err != nil {
				if errors.Is(err, ErrNoHistory) {
					fmt.Fprintln(out, "Already at the first screen.")
					return false, nil
				}
				return false, fmt.Errorf("back: %w", err)
			}
			return false, nil
		case "":
			// Blank keeps whatever is staged (restored values survive).
			continue
		}

		if err := sess.SetValue(ctx, q.ID, parseInput(&q, input)); err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintln(out, verr.Message)
				continue
			}
			return false, err
		}
	}

	// An answered single-select fires Next on its own after the configured
	// pause, mirroring what a visual host would do.
	if current := sess.Snapshot(ctx); current.AutoAdvance && !r.Headless {
		time.Sleep(current.AutoAdvanceDelay)
	}

	next, err := sess.Next(ctx)
	if err != nil {
		return false, fmt.Errorf("advance: %w", err)
	}
	if next.ValidationError != nil {
		fmt.Fprintln(out, next.ValidationError.Message)
	}
	return false, nil
}

func (r *Runner) renderScreen(out io.Writer, snap *Snapshot) {
	if r.Headless {
		return
	}
	fmt.Fprintf(out, "\n[%d/%d]", snap.ScreenNumber, snap.TotalScreens)
	if snap.GroupTitle != "" {
		fmt.Fprintf(out, " %s", snap.GroupTitle)
	}
	fmt.Fprintln(out)

	for _, sq := range snap.Questions {
		if sq.Question.Kind != domain.KindInformational {
			continue
		}
		content := sq.Content
		if r.Renderer != nil {
			if rendered, err := r.Renderer(content); err == nil {
				content = rendered
			}
		}
		fmt.Fprintln(out, strings.TrimSpace(content))
	}
}

func (r *Runner) renderQuestion(out io.Writer, q *domain.Question, staged domain.AnswerValue) {
	if r.Headless {
		return
	}
	fmt.Fprintln(out, q.Text)
	switch q.Kind {
	case domain.KindMultipleChoice:
		for i, opt := range q.Choice.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
		}
		if q.Choice.MaxSelections > 1 {
			fmt.Fprintf(out, "(pick up to %d, comma-separated)\n", q.Choice.MaxSelections)
		}
	case domain.KindLikert:
		fmt.Fprintf(out, "(1-%d)\n", q.Likert.LikertScale())
	}
	if !domain.IsEmptyValue(staged) {
		fmt.Fprintf(out, "(current: %v, blank keeps it)\n", staged)
	}
}

// parseInput maps a raw line onto the question's value space. Anything it
// cannot make sense of passes through as-is so screen validation produces
// the user-facing message.
func parseInput(q *domain.Question, input string) domain.AnswerValue {
	switch q.Kind {
	case domain.KindMultipleChoice:
		if q.Choice.MaxSelections > 1 {
			parts := strings.Split(input, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				out = append(out, resolveOption(q, strings.TrimSpace(p)))
			}
			return out
		}
		return resolveOption(q, input)
	case domain.KindNumber, domain.KindLikert:
		if n, err := strconv.ParseFloat(input, 64); err == nil {
			return n
		}
		return input
	default:
		return input
	}
}

// resolveOption accepts either the 1-based option number or the literal
// option text.
func resolveOption(q *domain.Question, input string) string {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(q.Choice.Options) {
		return q.Choice.Options[n-1]
	}
	return input
}
