package section

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyniel/westie/internal/page/pagetest"
	"github.com/zyniel/westie/internal/site"
)

type fakeActions struct {
	list       *pagetest.List
	calls      []string
	harvestErr error
	stuck      bool
}

func (a *fakeActions) Login(ctx context.Context) error {
	a.calls = append(a.calls, "login")
	a.list.SetVisible(site.EmailInput, false)
	a.list.SetVisible(site.PinInput, true)
	return nil
}

func (a *fakeActions) AwaitPin(ctx context.Context) error {
	a.calls = append(a.calls, "pin")
	a.list.SetVisible(site.PinInput, false)
	a.list.SetVisible(site.HomeHeader, true)
	return nil
}

func (a *fakeActions) OpenEvents(ctx context.Context) error {
	a.calls = append(a.calls, "open")
	if a.stuck {
		return errors.New("tile not clickable")
	}
	a.list.SetVisible(site.HomeHeader, false)
	a.list.SetVisible(site.EventsHeader, true)
	return nil
}

func (a *fakeActions) Harvest(ctx context.Context) error {
	a.calls = append(a.calls, "harvest")
	return a.harvestErr
}

func newFlow(l *pagetest.List, actions Actions, maxUnknown int) *Flow {
	c := NewClassifier(l, DefaultMarkers(), 0)
	return NewFlow(c, actions, FlowOptions{MaxUnknown: maxUnknown, MaxSteps: 20})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		visible []string
		want    Section
	}{
		{"nothing", nil, Unknown},
		{"home", []string{site.HomeHeader}, Home},
		{"events", []string{site.EventsHeader}, Events},
		{"lessons", []string{site.LessonsHeader}, Lessons},
		{"email", []string{site.EmailInput}, LoginEmail},
		{"pin", []string{site.PinInput}, LoginPin},
		{"pin wins over email", []string{site.EmailInput, site.PinInput}, LoginPin},
		{"content wins over home", []string{site.HomeHeader, site.EventsHeader}, Events},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := pagetest.NewList(0)
			for _, sel := range tt.visible {
				l.SetVisible(sel, true)
			}
			got := NewClassifier(l, DefaultMarkers(), 0).Classify(context.Background())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlow_FromLogin(t *testing.T) {
	l := pagetest.NewList(0)
	l.SetVisible(site.EmailInput, true)
	actions := &fakeActions{list: l}

	final, err := newFlow(l, actions, 3).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Events, final)
	assert.Equal(t, []string{"login", "pin", "open", "harvest"}, actions.calls)
}

func TestFlow_FromHome(t *testing.T) {
	l := pagetest.NewList(0)
	l.SetVisible(site.HomeHeader, true)
	actions := &fakeActions{list: l}

	final, err := newFlow(l, actions, 3).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Events, final)
	assert.Equal(t, []string{"open", "harvest"}, actions.calls)
}

func TestFlow_UnknownExhausted(t *testing.T) {
	l := pagetest.NewList(0)
	actions := &fakeActions{list: l}

	final, err := newFlow(l, actions, 3).Run(context.Background())
	assert.ErrorIs(t, err, ErrUnknownSection)
	assert.Equal(t, Unknown, final)
	assert.Empty(t, actions.calls)
}

func TestFlow_LessonsIsTerminal(t *testing.T) {
	l := pagetest.NewList(0)
	l.SetVisible(site.LessonsHeader, true)
	actions := &fakeActions{list: l}

	final, err := newFlow(l, actions, 3).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Lessons, final)
	assert.Empty(t, actions.calls)
}

func TestFlow_HarvestErrorIsReturned(t *testing.T) {
	l := pagetest.NewList(0)
	l.SetVisible(site.EventsHeader, true)
	boom := errors.New("viewport gone")
	actions := &fakeActions{list: l, harvestErr: boom}

	final, err := newFlow(l, actions, 3).Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Events, final)
}

func TestFlow_StepLimit(t *testing.T) {
	l := pagetest.NewList(0)
	l.SetVisible(site.HomeHeader, true)
	actions := &fakeActions{list: l, stuck: true}

	_, err := newFlow(l, actions, 3).Run(context.Background())
	assert.ErrorIs(t, err, ErrTooManySteps)
	assert.Len(t, actions.calls, 20)
}

// scheduled shows one marker per probe round according to plan.
type scheduled struct {
	*pagetest.List
	round int
	plan  func(round int) string
}

func (s *scheduled) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	if selector == site.PinInput {
		s.round++
	}
	return selector == s.plan(s.round)
}

func TestFlow_UnknownCounterResets(t *testing.T) {
	adapter := &scheduled{
		List: pagetest.NewList(0),
		plan: func(round int) string {
			switch {
			case round == 3:
				return site.HomeHeader
			case round >= 6:
				return site.EventsHeader
			}
			return ""
		},
	}
	actions := &fakeActions{list: adapter.List}

	c := NewClassifier(adapter, DefaultMarkers(), 0)
	flow := NewFlow(c, actions, FlowOptions{MaxUnknown: 2, MaxSteps: 20})

	final, err := flow.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Events, final)
	assert.Equal(t, []string{"open", "harvest"}, actions.calls)
	assert.Equal(t, 6, adapter.round)
}

func TestSectionString(t *testing.T) {
	assert.Equal(t, "login-pin", LoginPin.String())
	assert.Equal(t, "unknown", Section(42).String())
}
