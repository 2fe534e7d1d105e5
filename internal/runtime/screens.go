package runtime

import "github.com/espalier-io/espalier/pkg/domain"

// Indexer maps question indices to group-aware screen numbers.
//
// Each standalone question counts as one screen. A group counts exactly once,
// the first time any of its member questions is reached; the remaining
// members are skipped. For N standalone questions the total is N; a group of
// size k replacing k standalone questions reduces the total by k-1.
//
// The mapping is precomputed once since the form is immutable for the
// lifetime of a session.
type Indexer struct {
	form     *domain.Form
	screenOf []int // question index -> 1-based screen number
	total    int
}

// NewIndexer builds the screen mapping for a form.
func NewIndexer(form *domain.Form) *Indexer {
	idx := &Indexer{
		form:     form,
		screenOf: make([]int, len(form.Questions)),
	}

	seenGroups := make(map[string]int)
	screen := 0
	for i := range form.Questions {
		g := form.GroupFor(form.Questions[i].ID)
		if g == nil {
			screen++
			idx.screenOf[i] = screen
			continue
		}
		if n, ok := seenGroups[g.ID]; ok {
			idx.screenOf[i] = n
			continue
		}
		screen++
		seenGroups[g.ID] = screen
		idx.screenOf[i] = screen
	}
	idx.total = screen
	return idx
}

// Total returns the number of screens in the whole form.
func (x *Indexer) Total() int {
	return x.total
}

// NumberOf returns the 1-based screen number for a question index.
func (x *Indexer) NumberOf(index int) int {
	if index < 0 || index >= len(x.screenOf) {
		return 0
	}
	return x.screenOf[index]
}

// ScreenQuestions returns the questions rendered together with the question
// at the given index: the full group in declaration order, or just the
// question itself when standalone.
func (x *Indexer) ScreenQuestions(index int) []domain.Question {
	if index < 0 || index >= len(x.form.Questions) {
		return nil
	}
	q := x.form.Questions[index]
	g := x.form.GroupFor(q.ID)
	if g == nil {
		return []domain.Question{q}
	}

	members := make([]domain.Question, 0, len(g.QuestionIDs))
	for _, id := range g.QuestionIDs {
		if member, ok := x.form.QuestionByID(id); ok {
			members = append(members, *member)
		}
	}
	return members
}

// LastOfScreen returns the question whose transition strategy governs
// advancement for the screen at the given index. For a grouped screen this
// is the group's last member.
func (x *Indexer) LastOfScreen(index int) *domain.Question {
	questions := x.ScreenQuestions(index)
	if len(questions) == 0 {
		return nil
	}
	last := questions[len(questions)-1]
	q, _ := x.form.QuestionByID(last.ID)
	return q
}

// Progress computes completion as screenNumber/total. When interacted is
// true the numerator is optimistically incremented by one partial screen to
// reflect in-progress input on the current screen.
func (x *Indexer) Progress(index int, interacted bool) float64 {
	if x.total == 0 {
		return 0
	}
	n := float64(x.NumberOf(index))
	if interacted {
		n += 0.5
	}
	p := n / float64(x.total)
	if p > 1 {
		p = 1
	}
	return p
}
