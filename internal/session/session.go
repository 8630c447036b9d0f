// Package session holds the per-user analysis context: the loaded dataset,
// an optional comparison pair and the cached analysis of the dataset.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KaramelBytes/flowviz-cli/internal/analysis"
	"github.com/KaramelBytes/flowviz-cli/internal/chart"
	"github.com/KaramelBytes/flowviz-cli/internal/compare"
	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoDataset    = errors.New("no dataset loaded")
	ErrNoComparison = errors.New("no comparison loaded")
	ErrNotFound     = errors.New("session not found")
	ErrChartIndex   = errors.New("chart index out of range")
)

// Session is one user's working context. It is safe for concurrent use.
type Session struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`

	mu       sync.Mutex
	ds       *dataset.Dataset
	loadedAt time.Time

	// Cached analysis, dropped on Load.
	class    *analysis.Classification
	specs    []analysis.Spec
	outcomes []analysis.RuleOutcome

	current, previous *dataset.Dataset
	summaryCols       []string
	summary           compare.Summary
}

// New starts an empty session for user.
func New(user string) *Session {
	return &Session{ID: uuid.NewString(), User: user, CreatedAt: time.Now()}
}

// Load replaces the session dataset and drops cached analysis.
func (s *Session) Load(ds *dataset.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = ds
	s.loadedAt = time.Now()
	s.class, s.specs, s.outcomes = nil, nil, nil
	log.Info().Str("session", s.ID).Str("file", ds.Name).Int("rows", ds.NumRows()).Int("columns", ds.NumCols()).Msg("dataset loaded")
}

// Dataset returns the loaded dataset.
func (s *Session) Dataset() (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return nil, ErrNoDataset
	}
	return s.ds, nil
}

// Classification returns the cached column classification, computing it on
// first use.
func (s *Session) Classification() (analysis.Classification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.analyzeLocked(); err != nil {
		return analysis.Classification{}, err
	}
	return *s.class, nil
}

// Recommendations returns the cached specifications and rule outcomes.
func (s *Session) Recommendations() ([]analysis.Spec, []analysis.RuleOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.analyzeLocked(); err != nil {
		return nil, nil, err
	}
	return s.specs, s.outcomes, nil
}

// Render renders the i-th recommended chart.
func (s *Session) Render(i int) (*chart.Figure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.analyzeLocked(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(s.specs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrChartIndex, i, len(s.specs))
	}
	return chart.Render(s.ds, s.specs[i])
}

// Custom builds a user-defined chart over the loaded dataset.
func (s *Session) Custom(req chart.CustomRequest) (*chart.Figure, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	return chart.BuildCustom(ds, req)
}

func (s *Session) analyzeLocked() error {
	if s.ds == nil {
		return ErrNoDataset
	}
	if s.class != nil {
		return nil
	}
	c := analysis.Classify(s.ds)
	s.class = &c
	s.specs = analysis.RecommendWith(s.ds, c)
	s.outcomes = analysis.ExplainWith(s.ds, c)
	for _, o := range s.outcomes {
		log.Debug().Str("session", s.ID).Str("rule", string(o.Rule)).Bool("fired", o.Fired).Str("reason", o.Reason).Msg("rule evaluated")
	}
	return nil
}

// SetComparison stores a current/previous pair and its summary.
func (s *Session) SetComparison(current, previous *dataset.Dataset) ([]string, compare.Summary) {
	cols, sum := compare.Summarize(current, previous)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current, s.previous = current, previous
	s.summaryCols, s.summary = cols, sum
	log.Info().Str("session", s.ID).Strs("columns", cols).Msg("comparison loaded")
	return cols, sum
}

// Comparison is the state of a loaded comparison pair.
type Comparison struct {
	Current           *dataset.Dataset
	Previous          *dataset.Dataset
	Columns           []string
	Summary           compare.Summary
	OverallChange     float64
	AverageDifference float64
}

// Comparison returns the stored comparison.
func (s *Session) Comparison() (Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.previous == nil {
		return Comparison{}, ErrNoComparison
	}
	return Comparison{
		Current:           s.current,
		Previous:          s.previous,
		Columns:           s.summaryCols,
		Summary:           s.summary,
		OverallChange:     compare.OverallChange(s.current, s.previous, s.summaryCols),
		AverageDifference: compare.AverageDifference(s.current, s.previous, s.summaryCols),
	}, nil
}

// Clear drops all data held by the session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = nil
	s.class, s.specs, s.outcomes = nil, nil, nil
	s.current, s.previous, s.summaryCols = nil, nil, nil
	s.summary = compare.Summary{}
}
