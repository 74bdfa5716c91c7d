package domain

import (
	"strings"
	"time"
)

// TopicTerm maps a knowledge-base folder path pattern to a topic identifier.
// Patterns are matched longest-first by external sync clients, so the most
// specific folder wins.
type TopicTerm struct {
	ID        string
	Pattern   string
	TopicID   int
	Name      string
	CreatedAt time.Time
}

// NewTopicTerm creates a TopicTerm and validates its pattern.
func NewTopicTerm(id, pattern, name string, topicID int, createdAt time.Time) (*TopicTerm, error) {
	term := &TopicTerm{
		ID:        id,
		Pattern:   pattern,
		TopicID:   topicID,
		Name:      name,
		CreatedAt: createdAt,
	}
	if err := ValidateTopicTerm(term); err != nil {
		return nil, err
	}
	return term, nil
}

// ValidateTopicTerm validates a TopicTerm instance.
func ValidateTopicTerm(t *TopicTerm) error {
	if t == nil {
		return NewDomainError(ErrCodeValidation, "topic term cannot be nil")
	}
	if t.ID == "" {
		return NewDomainError(ErrCodeValidation, "topic term ID is required")
	}
	if err := ValidateTopicPattern(t.Pattern); err != nil {
		return err
	}
	if t.TopicID <= 0 {
		return NewDomainError(ErrCodeValidation, "topic ID must be positive")
	}
	return nil
}

// ValidateTopicPattern checks that a pattern starts and ends with a path
// separator, e.g. "/AI/Prompting/".
func ValidateTopicPattern(pattern string) error {
	if len(pattern) < 2 || !strings.HasPrefix(pattern, "/") || !strings.HasSuffix(pattern, "/") {
		return ErrInvalidTopicPattern
	}
	return nil
}
