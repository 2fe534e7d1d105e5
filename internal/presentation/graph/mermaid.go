// Package graph renders a form's transition structure as a Mermaid
// flowchart, for documentation and for debugging branching logic.
package graph

import (
	"fmt"
	"strings"

	"github.com/espalier-io/espalier/pkg/domain"
)

// Overlay contains session state to visualize on the graph.
type Overlay struct {
	VisitedQuestions []domain.QuestionID
	CurrentQuestion  domain.QuestionID
}

const endNodeID = "__end__"

// GenerateMermaid produces Mermaid flowchart syntax for a form.
// Shapes follow the question kind:
//   - interactive questions: [/Parallelogram/] (input)
//   - informational screens: [[Subroutine]]
//
// Groups become subgraphs, conditional routes become labeled edges, and the
// synthetic End node closes every path. Overlay styles mark visited and
// current questions when provided.
func GenerateMermaid(form *domain.Form, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	grouped := make(map[domain.QuestionID]bool)
	for _, g := range form.Groups {
		sb.WriteString(fmt.Sprintf("    subgraph %s[\"%s\"]\n", sanitizeMermaidID(g.ID), escapeLabel(groupTitle(g))))
		for _, id := range g.QuestionIDs {
			grouped[id] = true
			if q, ok := form.QuestionByID(id); ok {
				sb.WriteString("    " + nodeLine(q))
			}
		}
		sb.WriteString("    end\n")
	}

	for i := range form.Questions {
		q := &form.Questions[i]
		if !grouped[q.ID] {
			sb.WriteString(nodeLine(q))
		}
	}
	sb.WriteString(fmt.Sprintf("    %s((\"End\"))\n", endNodeID))

	for i := range form.Questions {
		writeEdges(&sb, &form.Questions[i])
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedQuestions {
			safeID := sanitizeMermaidID(string(id))
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.CurrentQuestion != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(string(overlay.CurrentQuestion))))
		}
	}

	return sb.String()
}

func groupTitle(g domain.Group) string {
	if g.Title != "" {
		return g.Title
	}
	return g.ID
}

func nodeLine(q *domain.Question) string {
	safeID := sanitizeMermaidID(string(q.ID))
	opener, closer := "[/", "/]"
	if q.Kind == domain.KindInformational {
		opener, closer = "[[", "]]"
	}
	return fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(q.Text), closer)
}

func writeEdges(sb *strings.Builder, q *domain.Question) {
	safeID := sanitizeMermaidID(string(q.ID))
	target := func(id *domain.QuestionID) string {
		if id == nil {
			return endNodeID
		}
		return sanitizeMermaidID(string(*id))
	}

	t := q.Transition
	if !t.Conditional() {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, target(t.Next)))
		return
	}

	for _, route := range t.Routes {
		label := conditionLabel(route.Condition)
		sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, label, target(route.Target)))
	}
	sb.WriteString(fmt.Sprintf("    %s -. \"default\" .-> %s\n", safeID, target(t.DefaultNext)))
}

func conditionLabel(c domain.Condition) string {
	if c.Op == domain.OpAnswered {
		return fmt.Sprintf("%s answered", c.QuestionID)
	}
	return escapeLabel(fmt.Sprintf("%s %s %v", c.QuestionID, c.Op, c.Value))
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
