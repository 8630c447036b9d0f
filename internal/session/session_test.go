package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/KaramelBytes/flowviz-cli/internal/analysis"
	"github.com/KaramelBytes/flowviz-cli/internal/chart"
	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
	"golang.org/x/crypto/bcrypt"
)

func fixture(name string, revenue ...float64) *dataset.Dataset {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	regions := []string{"North", "South", "North"}
	return dataset.MustNew(name,
		dataset.TextColumn("Date", dates[:len(revenue)]),
		dataset.NumericColumn("Revenue", revenue),
		dataset.TextColumn("Region", regions[:len(revenue)]),
	)
}

func TestSessionAnalysisCache(t *testing.T) {
	s := New("ana")
	if _, err := s.Dataset(); !errors.Is(err, ErrNoDataset) {
		t.Fatalf("err = %v, want ErrNoDataset", err)
	}
	if _, _, err := s.Recommendations(); !errors.Is(err, ErrNoDataset) {
		t.Fatalf("err = %v, want ErrNoDataset", err)
	}

	s.Load(fixture("jan", 1, 2, 3))
	specs, outcomes, err := s.Recommendations()
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if len(specs) != 4 || len(outcomes) != 5 {
		t.Fatalf("specs=%d outcomes=%d", len(specs), len(outcomes))
	}
	fig, err := s.Render(0)
	if err != nil || fig.Title() != "Time Series Analysis" {
		t.Fatalf("Render(0) = %v, %v", fig, err)
	}
	if _, err := s.Render(9); !errors.Is(err, ErrChartIndex) {
		t.Fatalf("err = %v, want ErrChartIndex", err)
	}

	// Loading a dataset without datetime columns must not reuse the old analysis.
	s.Load(dataset.MustNew("nums",
		dataset.NumericColumn("a", []float64{1, 2}),
		dataset.NumericColumn("b", []float64{2, 1}),
	))
	specs, _, _ = s.Recommendations()
	if specs[0].Kind() != analysis.KindHeatmap {
		t.Fatalf("stale analysis: first spec = %s", specs[0].Kind())
	}
	c, _ := s.Classification()
	if len(c.Numeric) != 2 {
		t.Fatalf("classification = %+v", c)
	}
}

func TestSessionRenderConsistentWithConcurrentLoad(t *testing.T) {
	a := fixture("a", 1, 2, 3)
	b := dataset.MustNew("b", dataset.NumericColumn("X", []float64{1, 2, 3}))
	s := New("ana")
	s.Load(a)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				s.Load(b)
			} else {
				s.Load(a)
			}
		}
	}()
	for i := 0; i < 200; i++ {
		fig, err := s.Render(0)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		// a spec rendered against the other dataset has no traces
		if len(fig.Data) == 0 {
			t.Fatalf("render %d: %q has no traces", i, fig.Title())
		}
	}
	wg.Wait()
}

func TestSessionCustomAndComparison(t *testing.T) {
	s := New("ana")
	if _, err := s.Custom(chart.CustomRequest{Type: chart.ChartHistogram, X: "Revenue"}); !errors.Is(err, ErrNoDataset) {
		t.Fatalf("err = %v", err)
	}
	s.Load(fixture("jan", 1, 2, 3))
	if _, err := s.Custom(chart.CustomRequest{Type: chart.ChartHistogram, X: "Revenue"}); err != nil {
		t.Fatalf("Custom: %v", err)
	}

	if _, err := s.Comparison(); !errors.Is(err, ErrNoComparison) {
		t.Fatalf("err = %v, want ErrNoComparison", err)
	}
	cols, sum := s.SetComparison(fixture("feb", 10, 20), fixture("jan", 5, 5))
	if len(cols) != 1 || sum.Rows[0].ChangePct != 200 {
		t.Fatalf("summary = %v %+v", cols, sum)
	}
	cmp, err := s.Comparison()
	if err != nil {
		t.Fatalf("Comparison: %v", err)
	}
	if cmp.OverallChange != 200 || cmp.AverageDifference != 10 {
		t.Fatalf("comparison = %+v", cmp)
	}

	s.Clear()
	if _, err := s.Dataset(); !errors.Is(err, ErrNoDataset) {
		t.Fatalf("Clear should drop the dataset")
	}
	if _, err := s.Comparison(); !errors.Is(err, ErrNoComparison) {
		t.Fatalf("Clear should drop the comparison")
	}
}

func TestCredentialStore(t *testing.T) {
	cs, err := NewCredentialStore(nil)
	if err != nil {
		t.Fatalf("NewCredentialStore: %v", err)
	}
	if err := cs.Add("ana", "s3cret"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := cs.Verify("ana", "s3cret"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := cs.Verify("ana", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if err := cs.Verify("bob", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user err = %v", err)
	}
	if err := cs.AddHash("eve", "plaintext"); err == nil {
		t.Fatalf("non-bcrypt hash should be rejected")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("empty password should be rejected")
	}
}

func TestManagerLoginLogout(t *testing.T) {
	h, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cs, err := NewCredentialStore(map[string]string{"ana": string(h)})
	if err != nil {
		t.Fatalf("NewCredentialStore: %v", err)
	}
	m := NewManager(cs)
	if _, err := m.Login("ana", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
	s, err := m.Login("ana", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	other, _ := m.Login("ana", "pw")
	if other.ID == s.ID || m.Len() != 2 {
		t.Fatalf("sessions should be independent")
	}
	if err := m.Logout(s.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := m.Logout(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second logout err = %v", err)
	}
}
