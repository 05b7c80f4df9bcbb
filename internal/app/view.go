package app

import (
	"sync"
)

type voteKey struct {
	actor  string
	target string
}

// ViewState is the locally displayed slice of ledger state that speculative
// changes mutate. It is the source the UI renders from, so every method is
// safe for concurrent use.
type ViewState struct {
	mu        sync.Mutex
	netVotes  map[string]int
	voted     map[voteKey]int
	following map[string]map[string]struct{}
	contents  map[string][]string
}

func NewViewState() *ViewState {
	return &ViewState{
		netVotes:  make(map[string]int),
		voted:     make(map[voteKey]int),
		following: make(map[string]map[string]struct{}),
		contents:  make(map[string][]string),
	}
}

// SeedNetVotes installs the tally fetched from the ledger before speculative
// deltas are applied on top.
func (v *ViewState) SeedNetVotes(target string, count int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.netVotes[target] = count
}

func (v *ViewState) NetVotes(target string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.netVotes[target]
}

// RecordVote registers the actor's vote weight on the target and bumps the
// visible tally. A weight of zero removes the vote.
func (v *ViewState) RecordVote(actor, target string, weight int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	k := voteKey{actor: actor, target: target}
	prev, had := v.voted[k]
	switch {
	case weight == 0 && had:
		delete(v.voted, k)
		v.netVotes[target] -= voteStep(prev)
	case weight != 0 && !had:
		v.voted[k] = weight
		v.netVotes[target] += voteStep(weight)
	case weight != 0 && had:
		v.netVotes[target] += voteStep(weight) - voteStep(prev)
		v.voted[k] = weight
	}
}

func (v *ViewState) VoteWeight(actor, target string) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	w, ok := v.voted[voteKey{actor: actor, target: target}]
	return w, ok
}

func voteStep(weight int) int {
	if weight < 0 {
		return -1
	}
	return 1
}

func (v *ViewState) SetFollowing(actor, target string, following bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	set, ok := v.following[actor]
	if !ok {
		set = make(map[string]struct{})
		v.following[actor] = set
	}
	if following {
		set[target] = struct{}{}
	} else {
		delete(set, target)
	}
}

func (v *ViewState) Follows(actor, target string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.following[actor][target]
	return ok
}

// AddContent records an identifier the actor authored so the UI can list it
// immediately.
func (v *ViewState) AddContent(actor, identifier string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.contents[actor] = append(v.contents[actor], identifier)
}

func (v *ViewState) RemoveContent(actor, identifier string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	list := v.contents[actor]
	for i, id := range list {
		if id == identifier {
			v.contents[actor] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (v *ViewState) Contents(actor string) []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.contents[actor]))
	copy(out, v.contents[actor])
	return out
}
