package travel

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/extract"
	"github.com/aretw0/wayfarer/pkg/flow"
)

// KeyTravelTips holds the safety, customs and weather searches.
const KeyTravelTips = "travel_tips"

const maxInterestQueries = 2

// QueryResults pairs a search query with what it returned.
type QueryResults struct {
	Query   string                `json:"query"`
	Results []domain.SearchResult `json:"results"`
}

// PlaceReview is what get_place_reviews learns about one place.
type PlaceReview struct {
	Name           string       `json:"name"`
	Details        domain.Place `json:"details"`
	ReviewSnippets []string     `json:"review_snippets"`
}

// ResearchQueries lists the searches run for a destination.
func ResearchQueries(info domain.TripInfo) []string {
	d := info.Destination
	qs := []string{
		d + " travel guide",
		d + " top attractions",
		d + " best time to visit",
	}
	for i, interest := range info.Interests {
		if i == maxInterestQueries {
			break
		}
		qs = append(qs, d+" "+interest)
	}
	return qs
}

// DetailQueries lists the category searches run by gather_travel_details.
func DetailQueries(info domain.TripInfo) []string {
	d := info.Destination
	style := info.TravelStyle
	if style == "" {
		style = "best"
	}
	return []string{
		fmt.Sprintf("%s %s hotels accommodations", d, style),
		d + " transportation getting around",
		d + " restaurants food recommendations",
		d + " activities things to do",
		d + " safety tips",
		d + " local customs",
		d + " weather forecast",
	}
}

// Details is the categorized output of gather_travel_details.
type Details struct {
	Accommodations []QueryResults
	Transportation QueryResults
	Restaurants    []QueryResults
	Activities     []QueryResults
	Tips           []QueryResults
}

// Categorize sorts category searches by the words in their query.
func Categorize(results []QueryResults) Details {
	var d Details
	for _, r := range results {
		q := strings.ToLower(r.Query)
		switch {
		case strings.Contains(q, "hotel"), strings.Contains(q, "accommodation"):
			d.Accommodations = append(d.Accommodations, r)
		case strings.Contains(q, "transportation"):
			d.Transportation = r
		case strings.Contains(q, "restaurant"), strings.Contains(q, "food"):
			d.Restaurants = append(d.Restaurants, r)
		case strings.Contains(q, "activities"), strings.Contains(q, "things to do"):
			d.Activities = append(d.Activities, r)
		default:
			d.Tips = append(d.Tips, r)
		}
	}
	return d
}

func queryItems(qs []string) []any {
	items := make([]any, len(qs))
	for i, q := range qs {
		items[i] = q
	}
	return items
}

// search is the batch Exec shared by the two search nodes.
func (e *env) search(ctx context.Context, item any) (any, error) {
	q := item.(string)
	e.em.Searching("Searching: "+q, q)
	return QueryResults{Query: q, Results: e.deps.Searcher.Search(ctx, q)}, nil
}

func collect(results []any) []QueryResults {
	out := make([]QueryResults, 0, len(results))
	for _, r := range results {
		if qr, ok := r.(QueryResults); ok {
			out = append(out, qr)
		}
	}
	return out
}

type researchDestination struct {
	flow.BatchBase
	*env
}

func (n researchDestination) Prep(_ context.Context, s *flow.Store) ([]any, error) {
	if s.Has(KeyDestinationInfo) {
		return nil, nil
	}
	info := TripInfo(s)
	n.em.Progress(fmt.Sprintf("Researching %s...", info.Destination), NodeResearchDestination)
	return queryItems(ResearchQueries(info)), nil
}

func (n researchDestination) Exec(ctx context.Context, item any) (any, error) {
	return n.search(ctx, item)
}

func (n researchDestination) Post(_ context.Context, s *flow.Store, items, results []any) (string, error) {
	markVisited(s, NodeResearchDestination)
	if len(items) == 0 {
		return flow.DefaultAction, nil
	}
	save(s, KeyDestinationInfo, collect(results))
	n.em.Progress(fmt.Sprintf("Completed %d searches", len(results)), NodeResearchDestination)
	return flow.DefaultAction, nil
}

type gatherTravelDetails struct {
	flow.BatchBase
	*env
}

func (n gatherTravelDetails) Prep(_ context.Context, s *flow.Store) ([]any, error) {
	if s.Bool(KeyDetailsGathered) {
		return nil, nil
	}
	n.em.Progress("Looking into hotels, transport, food and activities...", NodeGatherTravelDetails)
	return queryItems(DetailQueries(TripInfo(s))), nil
}

func (n gatherTravelDetails) Exec(ctx context.Context, item any) (any, error) {
	return n.search(ctx, item)
}

func (n gatherTravelDetails) Post(_ context.Context, s *flow.Store, items, results []any) (string, error) {
	markVisited(s, NodeGatherTravelDetails)
	if len(items) == 0 {
		return flow.DefaultAction, nil
	}
	d := Categorize(collect(results))
	save(s, KeyAccommodations, orEmpty(d.Accommodations))
	save(s, KeyTransportation, d.Transportation)
	save(s, KeyRestaurants, orEmpty(d.Restaurants))
	save(s, KeyActivities, orEmpty(d.Activities))
	save(s, KeyTravelTips, orEmpty(d.Tips))
	s.Set(KeyDetailsGathered, true)
	n.em.Progress(fmt.Sprintf("Gathered travel details across %d categories", len(results)), NodeGatherTravelDetails)
	return flow.DefaultAction, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type placesList struct {
	Places []string `mapstructure:"places"`
}

// identifyPlaces asks the model which places deserve a review lookup.
// When the model keeps failing the trip is planned without reviews.
type identifyPlaces struct {
	flow.Base
	*env
}

func (n identifyPlaces) Prep(_ context.Context, s *flow.Store) (any, error) {
	if s.Bool(KeyPlacesIdentified) {
		return nil, nil
	}
	var b strings.Builder
	sections := []struct {
		name string
		key  string
	}{
		{"ACCOMMODATIONS", KeyAccommodations},
		{"RESTAURANTS", KeyRestaurants},
		{"ACTIVITIES", KeyActivities},
	}
	for _, sec := range sections {
		fmt.Fprintf(&b, "--- %s ---\n", sec.name)
		for _, qr := range load[[]QueryResults](s, sec.key) {
			for _, r := range qr.Results {
				fmt.Fprintf(&b, "%s: %s\n", r.Title, r.Snippet)
			}
		}
	}
	n.em.Thinking("Picking the places worth checking reviews for...")
	return b.String(), nil
}

func (n identifyPlaces) Exec(ctx context.Context, input any) (any, error) {
	text, ok := input.(string)
	if !ok {
		return nil, nil
	}
	prompt, err := render("identify", struct{ Text string }{text})
	if err != nil {
		return nil, err
	}
	resp, err := n.deps.Completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	list, err := extract.DecodeWithRepair[placesList](ctx, n.deps.Completer, resp)
	if err != nil {
		return nil, err
	}
	return cleanQuestions(list.Places), nil
}

func (n identifyPlaces) ExecFallback(_ context.Context, _ any, err error) (any, error) {
	n.log.Warn("place identification failed, continuing without reviews", "err", err)
	n.em.Warning("Could not pick places to review; continuing without reviews.", "identify_places")
	return []string{}, nil
}

func (n identifyPlaces) Post(_ context.Context, s *flow.Store, input, result any) (string, error) {
	markVisited(s, NodeIdentifyPlaces)
	if input == nil {
		return flow.DefaultAction, nil
	}
	places, _ := result.([]string)
	if len(places) > 5 {
		places = places[:5]
	}
	save(s, KeyPlacesToReview, orEmpty(places))
	s.Set(KeyPlacesIdentified, true)
	n.em.Progress(fmt.Sprintf("Identified %d places to review", len(places)), NodeIdentifyPlaces)
	return flow.DefaultAction, nil
}

type getPlaceReviews struct {
	flow.BatchBase
	*env
}

func (n getPlaceReviews) Prep(_ context.Context, s *flow.Store) ([]any, error) {
	if _, done := s.Get(KeyPlaceReviews); done {
		return nil, nil
	}
	return queryItems(s.Strings(KeyPlacesToReview)), nil
}

func (n getPlaceReviews) Exec(ctx context.Context, item any) (any, error) {
	name := item.(string)
	review := PlaceReview{Name: name, ReviewSnippets: []string{}}
	if n.deps.Places != nil {
		if found := n.deps.Places.Lookup(ctx, name); len(found) > 0 {
			review.Details = found[0]
		}
	}
	q := fmt.Sprintf("latest reviews of %s positive negative", name)
	n.em.Searching("Checking reviews for "+name, q)
	for i, r := range n.deps.Searcher.Search(ctx, q) {
		if i == 3 {
			break
		}
		review.ReviewSnippets = append(review.ReviewSnippets, r.Snippet)
	}
	return review, nil
}

func (n getPlaceReviews) Post(_ context.Context, s *flow.Store, _, results []any) (string, error) {
	markVisited(s, NodeGetPlaceReviews)
	if _, done := s.Get(KeyPlaceReviews); done {
		return flow.DefaultAction, nil
	}
	reviews := make([]PlaceReview, 0, len(results))
	for _, r := range results {
		if pr, ok := r.(PlaceReview); ok {
			reviews = append(reviews, pr)
		}
	}
	save(s, KeyPlaceReviews, reviews)
	if len(reviews) > 0 {
		n.em.Progress(fmt.Sprintf("Fetched reviews for %d places", len(reviews)), NodeGetPlaceReviews)
	}
	return flow.DefaultAction, nil
}
