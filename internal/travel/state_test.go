package travel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/flow"
)

func TestMergeTripInfo_KeepsKnownFields(t *testing.T) {
	base := domain.TripInfo{Destination: "Kyoto", Budget: "$2000", Interests: []string{"temples"}}
	got := mergeTripInfo(base, domain.TripInfo{Destination: "  ", DurationDays: 4, Travelers: "2"})

	assert.Equal(t, "Kyoto", got.Destination)
	assert.Equal(t, "$2000", got.Budget)
	assert.Equal(t, 4, got.DurationDays)
	assert.Equal(t, "2", got.Travelers)
	assert.Equal(t, []string{"temples"}, got.Interests)
}

func TestSaveLoad_SurvivesSnapshot(t *testing.T) {
	s := flow.NewStore(nil)
	reviews := []PlaceReview{{Name: "Louvre", Details: domain.Place{Name: "Louvre", Rating: 4.7}, ReviewSnippets: []string{"busy"}}}
	save(s, KeyPlaceReviews, reviews)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	restored := flow.NewStore(nil)
	require.NoError(t, json.Unmarshal(b, restored))

	assert.Equal(t, reviews, load[[]PlaceReview](s, KeyPlaceReviews))
	assert.Equal(t, reviews, load[[]PlaceReview](restored, KeyPlaceReviews))
}

func TestInitialState(t *testing.T) {
	st := InitialState(DefaultConfig())
	assert.Equal(t, 0, st[KeyRound])
	assert.Equal(t, 5, st[KeyMaxRounds])
	assert.Equal(t, 5, st[KeyMaxRevisions])
	assert.Equal(t, true, st[KeyPlanReview])
	assert.Equal(t, "", st[KeyGuide])
}

func TestInitialState_ZeroConfigKeepsReviewOff(t *testing.T) {
	st := InitialState(Config{})
	assert.Equal(t, 5, st[KeyMaxRounds])
	assert.Equal(t, 5, st[KeyMaxRevisions])
	assert.Equal(t, false, st[KeyPlanReview])

	cfg := Config{}.withDefaults()
	assert.Equal(t, 0, cfg.LLMRetries)
	assert.Equal(t, 1, cfg.Parallelism)
}

func TestDescribe_SkipsUnknown(t *testing.T) {
	assert.Equal(t, "- Destination: Oslo\n- Duration: 3 days\n", describe(domain.TripInfo{Destination: "Oslo", DurationDays: 3}))
	assert.Equal(t, "- (nothing yet)\n", describe(domain.TripInfo{}))
}
