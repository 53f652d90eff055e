package tui

import (
	"context"
	"testing"

	"github.com/axiomesh/ballot/core"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAccount = common.HexToAddress("0x3e8e877b88f0fa014421abf6954aabb1ee2d51be")
	testVoter   = common.HexToAddress("0x9b5d8bc2cfcbbb4b0f2e1e1a8e6a7d1ce5b7f1a2")
)

type fakeSession struct {
	connectErr error
	forums     map[string]*core.Forum

	createdWith []string
	votes       []int
	reasons     []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{forums: make(map[string]*core.Forum)}
}

func (s *fakeSession) Connect(ctx context.Context) (common.Address, error) {
	if s.connectErr != nil {
		return common.Address{}, s.connectErr
	}
	return testAccount, nil
}

func (s *fakeSession) CreateForum(ctx context.Context, title string, candidates []string) (*core.CreatedForum, error) {
	s.createdWith = candidates
	f := &core.Forum{ID: "f0ru4", Title: title, Admin: testAccount, IsActive: true}
	for _, c := range core.ValidCandidates(candidates) {
		f.Candidates = append(f.Candidates, core.Candidate{Name: c})
	}
	s.forums[f.ID] = f
	return &core.CreatedForum{ID: f.ID, Title: title}, nil
}

func (s *fakeSession) LoadForum(ctx context.Context, id string, asAdmin bool) (*core.Forum, error) {
	f, ok := s.forums[id]
	if !ok {
		return nil, errors.Wrap(core.ErrForumNotFound, id)
	}
	c := *f
	return &c, nil
}

func (s *fakeSession) SubmitVote(ctx context.Context, id string, candidate int, reason string) (*core.Forum, error) {
	f := s.forums[id]
	s.votes = append(s.votes, candidate)
	s.reasons = append(s.reasons, reason)
	f.Candidates[candidate].Votes++
	f.TotalVoters++
	f.HasVoted = true
	return s.LoadForum(ctx, id, false)
}

func (s *fakeSession) EndVoting(ctx context.Context, id string) (*core.Forum, error) {
	f := s.forums[id]
	f.IsActive = false
	f.Voters = []core.VoterRecord{{Address: testVoter, Choice: 0, Reason: "berpengalaman"}}
	return s.LoadForum(ctx, id, true)
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

// finish runs the command of an action and feeds its result back.
func finish(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return m
}

func connected(t *testing.T, s *fakeSession) Model {
	m, cmd := update(t, New(context.Background(), s), key(tea.KeyEnter))
	return finish(t, m, cmd)
}

func TestConnect(t *testing.T) {
	m := New(context.Background(), newFakeSession())
	assert.Contains(t, m.View(), "connect the wallet")

	m, cmd := update(t, m, key(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.True(t, m.loading)

	// one action at a time
	_, again := update(t, m, key(tea.KeyEnter))
	assert.Nil(t, again)

	m = finish(t, m, cmd)
	assert.False(t, m.loading)
	assert.True(t, m.Connected())
	assert.Contains(t, m.View(), core.ShortAddress(testAccount))
}

func TestConnectError(t *testing.T) {
	s := newFakeSession()
	s.connectErr = core.ErrNoWallet

	m, cmd := update(t, New(context.Background(), s), key(tea.KeyEnter))
	m = finish(t, m, cmd)
	assert.False(t, m.Connected())
	assert.Contains(t, m.err, core.ErrNoWallet.Error())
	assert.Contains(t, m.View(), "connect wallet")

	// roles need a wallet
	m, _ = update(t, m, runes("a"))
	assert.Equal(t, viewHome, m.view)
}

func TestAdminCreateCheckAndEnd(t *testing.T) {
	s := newFakeSession()
	m := connected(t, s)

	m, _ = update(t, m, runes("a"))
	require.Equal(t, viewAdmin, m.view)

	m, cmd := update(t, m,
		runes("Ketua OSIS"), key(tea.KeyTab),
		runes("Alice"), key(tea.KeyTab),
		runes("  "), key(tea.KeyCtrlS),
	)
	assert.Nil(t, cmd)
	assert.Equal(t, core.ErrTooFewCandidates.Error(), m.err)

	m, cmd = update(t, m, key(tea.KeyCtrlN), runes("Bob"), key(tea.KeyCtrlS))
	assert.Len(t, m.candidateInputs, 3)
	m = finish(t, m, cmd)
	assert.Equal(t, []string{"Alice", "  ", "Bob"}, s.createdWith)
	require.NotNil(t, m.created)
	assert.Contains(t, m.View(), "f0ru4")
	assert.Contains(t, m.View(), "Forum created")

	// end voting needs the status first
	_, cmd = update(t, m, runes("e"))
	assert.Nil(t, cmd)

	m, cmd = update(t, m, runes("r"))
	m = finish(t, m, cmd)
	require.NotNil(t, m.adminForum)
	assert.True(t, m.adminForum.IsActive)
	assert.Contains(t, m.View(), "e: end voting")

	m, cmd = update(t, m, runes("e"))
	m = finish(t, m, cmd)
	assert.False(t, m.adminForum.IsActive)
	assert.Equal(t, "Voting has ended", m.notice)
	view := m.View()
	assert.Contains(t, view, "Voter reasons")
	assert.Contains(t, view, "berpengalaman")
	assert.NotContains(t, view, "e: end voting")

	m, _ = update(t, m, key(tea.KeyEsc))
	assert.Equal(t, viewHome, m.view)
}

func TestAdminRemoveCandidateKeepsTwo(t *testing.T) {
	m := connected(t, newFakeSession())
	m, _ = update(t, m, runes("a"), key(tea.KeyTab))
	require.Equal(t, 1, m.adminFocus)

	m, _ = update(t, m, key(tea.KeyCtrlD))
	assert.Len(t, m.candidateInputs, 2)

	m, _ = update(t, m, key(tea.KeyCtrlN), runes("Carol"))
	require.Len(t, m.candidateInputs, 3)
	assert.Equal(t, 3, m.adminFocus)

	m, _ = update(t, m, key(tea.KeyShiftTab), key(tea.KeyCtrlD))
	require.Len(t, m.candidateInputs, 2)
	assert.Equal(t, "Carol", m.candidateInputs[1].Value())
	assert.Equal(t, "Candidate 2: ", m.candidateInputs[1].Prompt)
}

func TestVoterBallot(t *testing.T) {
	s := newFakeSession()
	s.forums["abc123"] = &core.Forum{
		ID:         "abc123",
		Title:      "Ketua OSIS",
		Admin:      testVoter,
		IsActive:   true,
		Candidates: []core.Candidate{{Name: "Alice"}, {Name: "Bob"}},
	}
	m := connected(t, s)

	m, _ = update(t, m, runes("v"))
	require.Equal(t, viewVoter, m.view)

	m, cmd := update(t, m, runes("abc123"), key(tea.KeyEnter))
	assert.Contains(t, m.View(), "Loading forum")
	m = finish(t, m, cmd)
	require.NotNil(t, m.voterForum)
	assert.Contains(t, m.View(), "Choose a candidate")

	// nothing selected yet
	_, cmd = update(t, m, key(tea.KeyCtrlS))
	assert.Nil(t, cmd)

	m, _ = update(t, m, key(tea.KeyDown), key(tea.KeySpace))
	assert.Equal(t, 1, m.selected)

	// no reason yet
	_, cmd = update(t, m, key(tea.KeyCtrlS))
	assert.Nil(t, cmd)

	m, cmd = update(t, m, key(tea.KeyTab), runes("programnya jelas"), key(tea.KeyCtrlS))
	m = finish(t, m, cmd)
	assert.Equal(t, []int{1}, s.votes)
	assert.Equal(t, []string{"programnya jelas"}, s.reasons)
	assert.Equal(t, "Your vote has been recorded", m.notice)
	assert.Contains(t, m.View(), "already voted")

	m, _ = update(t, m, key(tea.KeyEsc))
	assert.Equal(t, viewHome, m.view)
	assert.Empty(t, m.voterForumID)
	assert.Nil(t, m.voterForum)
	assert.Equal(t, -1, m.selected)
}

func TestVoterForumNotFound(t *testing.T) {
	m := connected(t, newFakeSession())
	m, cmd := update(t, m, runes("v"), runes("nope"), key(tea.KeyEnter))
	m = finish(t, m, cmd)

	assert.Empty(t, m.voterForumID)
	assert.Contains(t, m.err, core.ErrForumNotFound.Error())
	assert.Contains(t, m.View(), "Forum code")
}

func TestVoterSeesResultsWhenEnded(t *testing.T) {
	s := newFakeSession()
	s.forums["abc123"] = &core.Forum{
		ID:          "abc123",
		Title:       "Ketua OSIS",
		TotalVoters: 3,
		Candidates:  []core.Candidate{{Name: "Alice", Votes: 1}, {Name: "Bob", Votes: 2}},
	}
	m := connected(t, s)

	m, cmd := update(t, m, runes("v"), runes("abc123"), key(tea.KeyEnter))
	m = finish(t, m, cmd)

	view := m.View()
	assert.Contains(t, view, "Voting has ended")
	assert.Contains(t, view, "Winner: Bob")
	assert.Contains(t, view, "66.7%")
}

func TestResultForLeftScreenIsDropped(t *testing.T) {
	s := newFakeSession()
	s.forums["abc123"] = &core.Forum{
		ID:         "abc123",
		Title:      "Ketua OSIS",
		Admin:      testVoter,
		IsActive:   true,
		Candidates: []core.Candidate{{Name: "Alice"}, {Name: "Bob"}},
	}
	m := connected(t, s)

	m, lookup := update(t, m, runes("v"), runes("abc123"), key(tea.KeyEnter))
	require.NotNil(t, lookup)

	// leave for the admin screen while the lookup is still running
	m, _ = update(t, m, key(tea.KeyEsc), runes("a"))
	require.Equal(t, viewAdmin, m.view)

	m = finish(t, m, lookup)
	assert.False(t, m.loading)
	assert.Nil(t, m.adminForum)
	assert.Nil(t, m.voterForum)
	assert.NotContains(t, m.View(), "Alice")
}
