package runtime

import "github.com/espalier-io/espalier/pkg/domain"

// Store is the ordered answer log for one session.
//
// Entries are appended in screen-visitation order. The single mutation
// besides Append is TruncateTo, which drops every entry recorded after a
// navigation point; this is what lets a forward pass after back-navigation
// re-collect consistent answers instead of duplicating them.
type Store struct {
	answers []domain.Answer
}

// NewStore creates an empty answer store.
func NewStore() *Store {
	return &Store{}
}

// Append records answers at the end of the log.
func (s *Store) Append(answers ...domain.Answer) {
	s.answers = append(s.answers, answers...)
}

// Len returns the number of recorded answers.
func (s *Store) Len() int {
	return len(s.answers)
}

// TruncateTo keeps the first n entries and drops the rest.
func (s *Store) TruncateTo(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(s.answers) {
		s.answers = s.answers[:n]
	}
}

// All returns a copy of the log in chronological order.
func (s *Store) All() []domain.Answer {
	out := make([]domain.Answer, len(s.answers))
	copy(out, s.answers)
	return out
}

// Value returns the recorded value for a question id, last write wins.
func (s *Store) Value(id domain.QuestionID) (domain.AnswerValue, bool) {
	return domain.AnswerFor(s.answers, id)
}

// ValuesFor reads the current entries for the given question ids without
// removing them. Used to restore a screen's answer buffer on back-navigation.
func (s *Store) ValuesFor(ids []domain.QuestionID) map[domain.QuestionID]domain.AnswerValue {
	out := make(map[domain.QuestionID]domain.AnswerValue)
	for _, id := range ids {
		if v, ok := s.Value(id); ok {
			out[id] = v
		}
	}
	return out
}
