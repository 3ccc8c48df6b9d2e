package minutes

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
	"github.com/johnquangdev/minutemaestro/pkg/validator"
)

// Parser turns Groq completions into MeetingMinutes
type Parser struct {
	validate *validator.CustomValidator
}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{validate: validator.New()}
}

type rawMinutes struct {
	Summary     string          `json:"summary"`
	Decisions   []string        `json:"decisions"`
	ActionItems []rawActionItem `json:"action_items"`
}

type rawActionItem struct {
	Owner string `json:"owner"`
	Task  string `json:"task"`
}

// Parse extracts the minutes object from the completion content.
// Blank decisions and tasks are dropped; a blank summary is an error.
func (p *Parser) Parse(content string, generatedAt time.Time) (*entities.MeetingMinutes, error) {
	content = extractJSON(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty response", entities.ErrSummarization)
	}

	var raw rawMinutes
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", entities.ErrSummarization, err)
	}

	m := &entities.MeetingMinutes{
		Summary:     strings.TrimSpace(raw.Summary),
		Decisions:   make([]string, 0, len(raw.Decisions)),
		ActionItems: make([]entities.ActionItem, 0, len(raw.ActionItems)),
		GeneratedAt: generatedAt,
	}
	for _, d := range raw.Decisions {
		if d = strings.TrimSpace(d); d != "" {
			m.Decisions = append(m.Decisions, d)
		}
	}
	for _, item := range raw.ActionItems {
		task := strings.TrimSpace(item.Task)
		if task == "" {
			continue
		}
		m.ActionItems = append(m.ActionItems, entities.ActionItem{
			Owner: strings.TrimSpace(item.Owner),
			Task:  task,
		})
	}

	if err := p.validate.Validate(m); err != nil {
		return nil, fmt.Errorf("%w: invalid minutes: %v", entities.ErrSummarization, err)
	}
	return m, nil
}

// extractJSON extracts JSON content from markdown code blocks or surrounding prose
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	if !strings.HasPrefix(content, "{") {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start == -1 || end < start {
			return content
		}
		content = content[start : end+1]
	}
	return content
}
