package dashboard

import (
	"context"
	"sync"
	"time"
)

// Display strings for the recommendation region.
const (
	RecommendationPrompt  = "Click the button to activate the prediction model."
	RecommendationHeading = "Recommended Actions for Your Plant"
)

// TriggerState is the recommendation trigger state. The only transition
// is Idle to Active and it is never reversed.
type TriggerState int

const (
	TriggerIdle TriggerState = iota
	TriggerActive
)

func (s TriggerState) String() string {
	if s == TriggerActive {
		return "active"
	}
	return "idle"
}

// MarshalText renders the state name in JSON.
func (s TriggerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Recommender produces recommendation text from shared process state.
type Recommender interface {
	Recommend(ctx context.Context) (string, error)
}

// RecommenderFunc adapts a function to Recommender.
type RecommenderFunc func(ctx context.Context) (string, error)

func (f RecommenderFunc) Recommend(ctx context.Context) (string, error) { return f(ctx) }

// TriggerView is what the recommendation region displays.
type TriggerView struct {
	State        TriggerState `json:"state"`
	Heading      string       `json:"heading,omitempty"`
	Text         string       `json:"text"`
	Actions      int          `json:"actions"`
	LastActionAt *time.Time   `json:"last_action_at,omitempty"`
}

// Trigger is the per page session recommendation state machine.
type Trigger struct {
	mu           sync.Mutex
	state        TriggerState
	text         string
	actions      int
	issued       uint64
	applied      uint64
	lastActionAt time.Time
}

// View returns a consistent snapshot of the trigger. While no
// recommendation has been produced the prompt is shown.
func (t *Trigger) View() TriggerView {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := TriggerView{
		State:   t.state,
		Text:    RecommendationPrompt,
		Actions: t.actions,
	}
	if !t.lastActionAt.IsZero() {
		at := t.lastActionAt
		v.LastActionAt = &at
	}
	if t.applied > 0 {
		v.Heading = RecommendationHeading
		v.Text = t.text
	}
	return v
}

// Act records a user action and invokes call for fresh text. The trigger
// becomes Active before call runs, whatever its outcome. On failure the
// previous text is kept and the error is returned. When actions overlap,
// the text from the most recently started action wins.
func (t *Trigger) Act(ctx context.Context, at time.Time, call func(ctx context.Context) (string, error)) (TriggerView, error) {
	t.mu.Lock()
	t.state = TriggerActive
	t.actions++
	t.issued++
	seq := t.issued
	t.lastActionAt = at
	t.mu.Unlock()

	text, err := call(ctx)
	if err != nil {
		return t.View(), err
	}

	t.mu.Lock()
	if seq > t.applied {
		t.text = text
		t.applied = seq
	}
	t.mu.Unlock()

	return t.View(), nil
}
