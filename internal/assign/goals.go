package assign

import (
	"context"
	"strings"
	"unicode/utf8"
)

// MaxGoalsLength is the longest accepted goals text, in characters.
const MaxGoalsLength = 1024

// GoalsView is the goals payload returned to callers. IsDefault marks the
// placeholder returned when nothing is stored.
type GoalsView struct {
	GoalRecord
	IsDefault bool `json:"isDefault,omitempty"`
}

// GoalsService exposes goal operations outside the workflow graph.
type GoalsService struct {
	repo *GoalRepo
}

// NewGoalsService returns a GoalsService over repo.
func NewGoalsService(repo *GoalRepo) *GoalsService {
	return &GoalsService{repo: repo}
}

// SetResult reports the outcome of SetGoals.
type SetResult struct {
	Created bool
	Record  GoalRecord
}

// ValidateGoals trims text and checks it is 1..MaxGoalsLength characters.
func ValidateGoals(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ValidationError{Field: "goals", Message: "Goals cannot be empty"}
	}
	if utf8.RuneCountInString(text) > MaxGoalsLength {
		return "", &ValidationError{Field: "goals", Message: "Goals cannot exceed 1024 characters"}
	}
	return text, nil
}

// SetGoals validates and upserts the user's goals. Nothing is written when
// validation fails.
func (s *GoalsService) SetGoals(ctx context.Context, userID, text string) (SetResult, error) {
	if strings.TrimSpace(userID) == "" {
		return SetResult{}, &ValidationError{Field: "userId", Message: "userId is required"}
	}
	text, err := ValidateGoals(text)
	if err != nil {
		return SetResult{}, err
	}

	created, err := s.repo.Upsert(ctx, userID, text)
	if err != nil {
		return SetResult{}, err
	}
	rec, found, err := s.repo.Get(ctx, userID)
	if err != nil {
		return SetResult{}, err
	}
	if !found {
		return SetResult{}, &NotFoundError{Kind: "goals", Key: userID}
	}
	return SetResult{Created: created, Record: *rec}, nil
}

// SetGoalList stores goals given as a list, one goal per line, with the
// same validation as SetGoals.
func (s *GoalsService) SetGoalList(ctx context.Context, userID string, goals []string) (SetResult, error) {
	var lines []string
	for _, g := range goals {
		if g = strings.TrimSpace(g); g != "" {
			lines = append(lines, g)
		}
	}
	return s.SetGoals(ctx, userID, strings.Join(lines, "\n"))
}

// GetGoals returns the stored goals or an empty placeholder with IsDefault
// set. Absence is never an error here.
func (s *GoalsService) GetGoals(ctx context.Context, userID string) (GoalsView, error) {
	rec, found, err := s.repo.Get(ctx, userID)
	if err != nil {
		return GoalsView{}, err
	}
	if !found {
		return GoalsView{GoalRecord: GoalRecord{UserID: userID}, IsDefault: true}, nil
	}
	return GoalsView{GoalRecord: *rec}, nil
}

// LookupGoals returns the stored goals or a *NotFoundError.
func (s *GoalsService) LookupGoals(ctx context.Context, userID string) (GoalRecord, error) {
	rec, found, err := s.repo.Get(ctx, userID)
	if err != nil {
		return GoalRecord{}, err
	}
	if !found {
		return GoalRecord{}, &NotFoundError{Kind: "goals", Key: userID}
	}
	return *rec, nil
}

// ListGoals returns all goal records, or only userID's when it is set.
func (s *GoalsService) ListGoals(ctx context.Context, userID string) ([]GoalRecord, error) {
	return s.repo.List(ctx, userID)
}
