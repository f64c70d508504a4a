package source

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhw/go-outrights/pkg/outrights"
)

type fakeFetcher struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]bool
}

func (f *fakeFetcher) FetchSeason(_ context.Context, league, season string) ([]outrights.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, league+"/"+season)
	if f.failOn[league] {
		return nil, errors.New("upstream unavailable")
	}
	return []outrights.Event{{Name: league + " Home vs " + league + " Away", Date: "2024-08-16", Score: []int{1, 0}}}, nil
}

func TestRefresherRefresh(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{}
	r := NewRefresher(fetcher, "2425", []string{"ENG1", "SCO1"}, dir, quietLogger())

	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, []string{"ENG1/2425", "SCO1/2425"}, fetcher.calls)

	cached, ok := r.Events("SCO1")
	require.True(t, ok)
	assert.Equal(t, "2425", cached.Season)
	assert.Len(t, cached.Events, 1)
	assert.False(t, cached.UpdatedAt.IsZero())

	saved, err := LoadEvents(filepath.Join(dir, "SCO1-2425.json"))
	require.NoError(t, err)
	assert.Equal(t, cached.Events, saved)

	_, ok = r.Events("ENG2")
	assert.False(t, ok)
}

func TestRefresherKeepsPreviousEventsOnFailure(t *testing.T) {
	fetcher := &fakeFetcher{}
	r := NewRefresher(fetcher, "2425", []string{"ENG1", "ENG2"}, "", quietLogger())
	require.NoError(t, r.Refresh(context.Background()))

	fetcher.failOn = map[string]bool{"ENG1": true}
	err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENG1")

	cached, ok := r.Events("ENG1")
	require.True(t, ok)
	assert.Len(t, cached.Events, 1)
}

func TestRefresherStart(t *testing.T) {
	r := NewRefresher(&fakeFetcher{}, "2425", []string{"ENG1"}, "", quietLogger())
	defer r.Stop()

	assert.Error(t, r.Start("not a schedule"))
	require.NoError(t, r.Start("0 6 * * *"))
	assert.Error(t, r.Start("0 6 * * *"), "already started")
}
