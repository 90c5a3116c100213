package groupaudit

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-audit/internal/domain"
	"gw-audit/internal/kvstore"
	"gw-audit/internal/testutil"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func sampleGroups(n int) []domain.Group {
	out := make([]domain.Group, n)
	for i := range out {
		out[i] = domain.Group{ID: string(rune('a' + i%26)), Email: groupEmail(i), Name: "Group"}
	}
	return out
}

func TestCheckpoints_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpoints(kvstore.NewMemory(), "groups", discardLogger())

	assert.False(t, cp.Load(ctx).InCycle())

	require.NoError(t, cp.SaveGroups(ctx, sampleGroups(3)))
	st := cp.Load(ctx)
	require.True(t, st.InCycle())
	assert.Zero(t, st.NextIndex)
	assert.Empty(t, st.Results)

	st.NextIndex = 2
	st.Results = []domain.GroupFinding{{Group: st.Groups[1], Reason: domain.FindingNoOwners}}
	require.NoError(t, cp.Save(ctx, st))

	got := cp.Load(ctx)
	assert.Equal(t, 2, got.NextIndex)
	assert.Equal(t, st.Results, got.Results)
	assert.Equal(t, st.Groups, got.Groups)
	assert.False(t, got.Done())

	require.NoError(t, cp.Clear(ctx))
	assert.False(t, cp.Load(ctx).InCycle())
}

func TestCheckpoints_Keys(t *testing.T) {
	idx, res, groups := NewCheckpoints(kvstore.NewMemory(), "groups", discardLogger()).Keys()
	assert.Equal(t, "groups.next_index", idx)
	assert.Equal(t, "groups.results", res)
	assert.Equal(t, "groups.groups", groups)
}

func TestCheckpoints_EmptyCycleIsDone(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpoints(kvstore.NewMemory(), "groups", discardLogger())
	require.NoError(t, cp.SaveGroups(ctx, nil))

	st := cp.Load(ctx)
	assert.True(t, st.InCycle())
	assert.True(t, st.Done())
}

func TestCheckpoints_CorruptionFallsBack(t *testing.T) {
	valid := `[{"id":"1","email":"a@example.com","name":"A","direct_members":2},{"id":"2","email":"b@example.com","name":"B","direct_members":0}]`

	tests := []struct {
		name      string
		data      map[string]string
		wantCycle bool
		wantNext  int
		wantRes   int
	}{
		{
			name:      "corrupt group list starts over",
			data:      map[string]string{"groups.groups": "{oops", "groups.next_index": "1", "groups.results": "[]"},
			wantCycle: false,
		},
		{
			name:      "missing group list starts over",
			data:      map[string]string{"groups.next_index": "1"},
			wantCycle: false,
		},
		{
			name:      "non-numeric index restarts cycle",
			data:      map[string]string{"groups.groups": valid, "groups.next_index": "one", "groups.results": "[]"},
			wantCycle: true,
		},
		{
			name:      "index beyond list restarts cycle",
			data:      map[string]string{"groups.groups": valid, "groups.next_index": "3", "groups.results": "[]"},
			wantCycle: true,
		},
		{
			name:      "negative index restarts cycle",
			data:      map[string]string{"groups.groups": valid, "groups.next_index": "-1", "groups.results": "[]"},
			wantCycle: true,
		},
		{
			name:      "corrupt results restart cycle",
			data:      map[string]string{"groups.groups": valid, "groups.next_index": "1", "groups.results": "[{"},
			wantCycle: true,
		},
		{
			name:      "missing index starts at zero",
			data:      map[string]string{"groups.groups": valid},
			wantCycle: true,
		},
		{
			name: "valid state is kept",
			data: map[string]string{
				"groups.groups":     valid,
				"groups.next_index": "2",
				"groups.results":    `[{"group":{"email":"b@example.com"},"owner_count":0,"reason":"No owners"}]`,
			},
			wantCycle: true,
			wantNext:  2,
			wantRes:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := NewCheckpoints(&testutil.MockKV{Data: tt.data}, "groups", discardLogger())
			st := cp.Load(context.Background())
			assert.Equal(t, tt.wantCycle, st.InCycle())
			assert.Equal(t, tt.wantNext, st.NextIndex)
			assert.Len(t, st.Results, tt.wantRes)
		})
	}
}

func TestCheckpoints_UnreadableStoreStartsOver(t *testing.T) {
	kv := &testutil.MockKV{
		GetFn: func(context.Context, string) (string, bool, error) { return "", false, errors.New("disk gone") },
	}
	st := NewCheckpoints(kv, "groups", discardLogger()).Load(context.Background())
	assert.False(t, st.InCycle())
}
