package travel

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/wayfarer/pkg/domain"
	"github.com/aretw0/wayfarer/pkg/flow"
)

// load reads key into a typed value. Values written in memory and values
// restored from a snapshot decode the same way since both go through JSON.
func load[T any](s *flow.Store, key string) T {
	var out T
	v, ok := s.Get(key)
	if !ok || v == nil {
		return out
	}
	if typed, ok := v.(T); ok {
		return typed
	}
	b, err := json.Marshal(v)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(b, &out)
	return out
}

// save stores v in its generic JSON form so snapshots round-trip unchanged.
func save(s *flow.Store, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.Set(key, v)
		return
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		s.Set(key, v)
		return
	}
	s.Set(key, generic)
}

// TripInfo returns the details extracted so far.
func TripInfo(s *flow.Store) domain.TripInfo {
	return load[domain.TripInfo](s, KeyTripInfo)
}

// mergeTripInfo overlays the non-empty fields of update onto base.
func mergeTripInfo(base, update domain.TripInfo) domain.TripInfo {
	if v := strings.TrimSpace(update.Destination); v != "" {
		base.Destination = v
	}
	if v := strings.TrimSpace(update.TripType); v != "" {
		base.TripType = v
	}
	if update.DurationDays > 0 {
		base.DurationDays = update.DurationDays
	}
	if v := strings.TrimSpace(update.Travelers); v != "" {
		base.Travelers = v
	}
	if v := strings.TrimSpace(update.Budget); v != "" {
		base.Budget = v
	}
	if v := strings.TrimSpace(update.TravelStyle); v != "" {
		base.TravelStyle = v
	}
	if len(update.Interests) > 0 {
		base.Interests = update.Interests
	}
	if v := strings.TrimSpace(update.StartDate); v != "" {
		base.StartDate = v
	}
	if v := strings.TrimSpace(update.SpecialRequirements); v != "" {
		base.SpecialRequirements = v
	}
	return base
}

// describe renders trip details for prompts, skipping unknown fields.
func describe(info domain.TripInfo) string {
	var b strings.Builder
	line := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&b, "- %s: %s\n", label, v)
		}
	}
	line("Destination", info.Destination)
	line("Trip type", info.TripType)
	if info.DurationDays > 0 {
		line("Duration", fmt.Sprintf("%d days", info.DurationDays))
	}
	line("Travelers", info.Travelers)
	line("Budget", info.Budget)
	line("Travel style", info.TravelStyle)
	line("Interests", strings.Join(info.Interests, ", "))
	line("Start date", info.StartDate)
	line("Special requirements", info.SpecialRequirements)
	if b.Len() == 0 {
		return "- (nothing yet)\n"
	}
	return b.String()
}

// markVisited is the bookkeeping every node performs on each pass.
func markVisited(s *flow.Store, node string) {
	s.Append(KeyVisited, node)
}

// pause records that the run stopped to wait for the user.
func pause(s *flow.Store, awaiting string) string {
	s.Set(KeyAwaiting, awaiting)
	s.Set(KeyFlowStatus, FlowWaitingInput)
	return ActionWait
}

// takeInput consumes the pending user message.
func takeInput(s *flow.Store) string {
	in := strings.TrimSpace(s.String(KeyPendingInput))
	s.Delete(KeyPendingInput)
	return in
}
