package service

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/sie-engine/siechat/internal/domain"
)

// TopicTermRepository defines the repository interface for topic terms.
type TopicTermRepository interface {
	Create(ctx context.Context, term *domain.TopicTerm) error
	List(ctx context.Context) ([]*domain.TopicTerm, error)
	Delete(ctx context.Context, id string) error
}

// TopicMappingEntry is one pattern → topic ID pair.
type TopicMappingEntry struct {
	Pattern string
	TopicID int
}

// TopicMapping is an ordered pattern → topic ID mapping, longest pattern
// first. The order is a public contract: sync clients test patterns in
// iteration order so the most specific folder wins, and encoding/json maps
// would lose it, hence the slice with a custom marshaler.
type TopicMapping []TopicMappingEntry

// MarshalJSON renders the mapping as a single JSON object with keys in
// slice order.
func (m TopicMapping) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(e.Pattern)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(e.TopicID))
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// TopicService resolves and administers the topic path-pattern mapping.
type TopicService struct {
	repo    TopicTermRepository
	uuidGen UUIDGenerator
}

// NewTopicService creates a new TopicService instance.
func NewTopicService(repo TopicTermRepository, uuidGen UUIDGenerator) *TopicService {
	return &TopicService{repo: repo, uuidGen: uuidGen}
}

// Mapping returns all configured terms with a non-empty pattern, sorted by
// pattern length descending. Equal-length patterns keep the repository's
// stable order, so repeated calls with unchanged input agree.
func (s *TopicService) Mapping(ctx context.Context) (TopicMapping, error) {
	terms, err := s.repo.List(ctx)
	if err != nil {
		return nil, domain.NewTermsLookupError(err)
	}

	mapping := make(TopicMapping, 0, len(terms))
	for _, t := range terms {
		if t.Pattern == "" {
			continue
		}
		mapping = append(mapping, TopicMappingEntry{Pattern: t.Pattern, TopicID: t.TopicID})
	}

	sort.SliceStable(mapping, func(i, j int) bool {
		return len(mapping[i].Pattern) > len(mapping[j].Pattern)
	})

	return mapping, nil
}

// CreateTerm validates and stores a new topic term.
func (s *TopicService) CreateTerm(ctx context.Context, pattern, name string, topicID int) (*domain.TopicTerm, error) {
	term, err := domain.NewTopicTerm(s.uuidGen.NewString(), pattern, name, topicID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, term); err != nil {
		return nil, err
	}
	return term, nil
}

// DeleteTerm removes a topic term by ID.
func (s *TopicService) DeleteTerm(ctx context.Context, id string) error {
	if id == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "topic term ID is required")
	}
	return s.repo.Delete(ctx, id)
}
