package http

import (
	"github.com/espalier-io/espalier/internal/runtime"
	"github.com/espalier-io/espalier/pkg/domain"
)

// snapshotDTO is the wire shape of a rendered screen.
type snapshotDTO struct {
	SessionID string `json:"session_id"`
	FormID    string `json:"form_id"`
	FormName  string `json:"form_name"`

	Screen       int     `json:"screen"`
	TotalScreens int     `json:"total_screens"`
	Progress     float64 `json:"progress"`

	GroupID    string        `json:"group_id,omitempty"`
	GroupTitle string        `json:"group_title,omitempty"`
	Questions  []questionDTO `json:"questions"`

	ValidationError *validationErrorDTO `json:"validation_error,omitempty"`
	Completed       bool                `json:"completed"`
	CanGoBack       bool                `json:"can_go_back"`

	AutoAdvance        bool  `json:"auto_advance"`
	AutoAdvanceDelayMS int64 `json:"auto_advance_delay_ms,omitempty"`
}

type questionDTO struct {
	ID       domain.QuestionID   `json:"id"`
	Kind     domain.QuestionKind `json:"kind"`
	Text     string              `json:"text"`
	Required bool                `json:"required,omitempty"`
	Content  string              `json:"content,omitempty"`

	Value domain.AnswerValue `json:"value,omitempty"`

	Choice *domain.ChoiceSettings `json:"choice,omitempty"`
	Number *domain.NumberSettings `json:"number,omitempty"`
	Likert *domain.LikertSettings `json:"likert,omitempty"`
}

type validationErrorDTO struct {
	QuestionID domain.QuestionID `json:"question_id"`
	Message    string            `json:"message"`
}

func snapshotToDTO(snap *runtime.Snapshot) snapshotDTO {
	dto := snapshotDTO{
		SessionID:          snap.SessionID,
		FormID:             snap.FormID,
		FormName:           snap.FormName,
		Screen:             snap.ScreenNumber,
		TotalScreens:       snap.TotalScreens,
		Progress:           snap.Progress,
		GroupID:            snap.GroupID,
		GroupTitle:         snap.GroupTitle,
		Completed:          snap.Completed,
		CanGoBack:          snap.CanGoBack,
		AutoAdvance:        snap.AutoAdvance,
		AutoAdvanceDelayMS: snap.AutoAdvanceDelay.Milliseconds(),
		Questions:          make([]questionDTO, 0, len(snap.Questions)),
	}
	for _, sq := range snap.Questions {
		q := sq.Question
		dto.Questions = append(dto.Questions, questionDTO{
			ID:       q.ID,
			Kind:     q.Kind,
			Text:     q.Text,
			Required: q.Required,
			Content:  sq.Content,
			Value:    sq.Value,
			Choice:   q.Choice,
			Number:   q.Number,
			Likert:   q.Likert,
		})
	}
	if snap.ValidationError != nil {
		dto.ValidationError = &validationErrorDTO{
			QuestionID: snap.ValidationError.QuestionID,
			Message:    snap.ValidationError.Message,
		}
	}
	return dto
}
