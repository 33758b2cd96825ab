package incidents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"incident-desk/core/store"
	"incident-desk/core/utils"
)

const (
	MaxTitleLen     = 100
	MaxPriorityLen  = 20
	DefaultPriority = "Low"
)

var ErrNotFound = errors.New("incident not found")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Channel identifies the interface a create request arrived through. The two
// surfaces treat a missing priority differently.
type Channel int

const (
	ChannelForm Channel = iota
	ChannelAPI
)

type NewIncident struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type Summary struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
}

type Service struct {
	store  store.IncidentsStore
	logger *utils.Logger
}

func NewService(is store.IncidentsStore, logger *utils.Logger) *Service {
	return &Service{store: is, logger: logger}
}

func (s *Service) Create(ctx context.Context, in NewIncident, ch Channel) (*store.Incident, error) {
	inc, err := normalize(in, ch)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.CreateIncident(ctx, inc); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	if s.logger != nil {
		s.logger.Printf("INCIDENT created id=%d priority=%s", inc.ID, inc.Priority)
	}
	return inc, nil
}

func (s *Service) List(ctx context.Context, search string) ([]store.Incident, error) {
	return s.store.ListIncidents(ctx, store.IncidentFilter{Search: strings.TrimSpace(search)})
}

func (s *Service) Get(ctx context.Context, id int64) (*store.Incident, error) {
	inc, err := s.store.GetIncident(ctx, id)
	return inc, translate(err)
}

func (s *Service) ToggleStatus(ctx context.Context, id int64) (*store.Incident, error) {
	inc, err := s.store.ToggleIncidentStatus(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if s.logger != nil {
		s.logger.Printf("INCIDENT status id=%d status=%s", inc.ID, inc.Status)
	}
	return inc, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteIncident(ctx, id); err != nil {
		return translate(err)
	}
	if s.logger != nil {
		s.logger.Printf("INCIDENT deleted id=%d", id)
	}
	return nil
}

// Summarize counts the given incidents by status.
func Summarize(items []store.Incident) Summary {
	sum := Summary{Total: len(items)}
	for _, inc := range items {
		if inc.Status == store.StatusResolved {
			sum.Resolved++
		} else {
			sum.Pending++
		}
	}
	return sum
}

func normalize(in NewIncident, ch Channel) (*store.Incident, error) {
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)
	priority := strings.TrimSpace(in.Priority)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return nil, &ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", MaxTitleLen)}
	}
	if desc == "" {
		return nil, &ValidationError{Field: "description", Message: "description is required"}
	}
	if priority == "" {
		if ch != ChannelAPI {
			return nil, &ValidationError{Field: "priority", Message: "priority is required"}
		}
		priority = DefaultPriority
	}
	if utf8.RuneCountInString(priority) > MaxPriorityLen {
		return nil, &ValidationError{Field: "priority", Message: fmt.Sprintf("priority must be at most %d characters", MaxPriorityLen)}
	}
	return &store.Incident{Title: title, Description: desc, Priority: priority}, nil
}

func translate(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
