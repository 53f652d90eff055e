package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/axiomesh/ballot/core"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
)

// Session is the part of core.Session the interactive client drives.
type Session interface {
	Connect(ctx context.Context) (common.Address, error)
	CreateForum(ctx context.Context, title string, candidates []string) (*core.CreatedForum, error)
	LoadForum(ctx context.Context, id string, asAdmin bool) (*core.Forum, error)
	SubmitVote(ctx context.Context, id string, candidate int, reason string) (*core.Forum, error)
	EndVoting(ctx context.Context, id string) (*core.Forum, error)
}

var _ Session = (*core.Session)(nil)

type view int

const (
	viewHome view = iota
	viewAdmin
	viewVoter
)

const minCandidates = 2

type connectedMsg struct {
	account common.Address
}

type createdMsg struct {
	created *core.CreatedForum
}

// forumMsg, votedMsg and errMsg carry the visit of the screen that started the action,
// results for a screen the user has left are dropped.
type forumMsg struct {
	visit int
	forum *core.Forum
}

type votedMsg struct {
	visit int
	forum *core.Forum
}

type endedMsg struct {
	forum *core.Forum
}

type errMsg struct {
	visit  int
	action string
	err    error
}

func (e errMsg) Error() string {
	return fmt.Sprintf("%s: %s", e.action, e.err)
}

// Model is the bubbletea model of the voting client.
type Model struct {
	ctx     context.Context
	session Session

	view view
	// visit changes every time a screen is entered or left
	visit   int
	account common.Address
	loading bool
	err     string
	notice  string

	homeCursor int

	// admin
	titleInput      textinput.Model
	candidateInputs []textinput.Model
	adminFocus      int
	created         *core.CreatedForum
	adminForum      *core.Forum

	// voter
	searchInput  textinput.Model
	voterForumID string
	voterForum   *core.Forum
	cursor       int
	selected     int
	reasonInput  textinput.Model
	reasonFocus  bool
}

func New(ctx context.Context, session Session) Model {
	title := textinput.New()
	title.Prompt = "Title: "
	title.Placeholder = "e.g. Student council election 2025/2026"
	title.CharLimit = 120

	search := textinput.New()
	search.Prompt = "Forum code: "
	search.Placeholder = "paste the code shared by the admin"

	reason := textinput.New()
	reason.Prompt = "Reason: "
	reason.Placeholder = "why this candidate?"
	reason.CharLimit = 280

	m := Model{
		ctx:         ctx,
		session:     session,
		titleInput:  title,
		searchInput: search,
		reasonInput: reason,
		selected:    -1,
	}
	for i := 0; i < minCandidates; i++ {
		m.candidateInputs = append(m.candidateInputs, newCandidateInput(i))
	}
	return m
}

func newCandidateInput(i int) textinput.Model {
	in := textinput.New()
	in.Prompt = fmt.Sprintf("Candidate %d: ", i+1)
	in.CharLimit = 80
	return in
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Connected() bool {
	return m.account != (common.Address{})
}

// start marks an action in flight; nil means another one is still running.
func (m *Model) start(action func() tea.Msg) tea.Cmd {
	if m.loading {
		return nil
	}
	m.loading = true
	m.err = ""
	m.notice = ""
	return action
}

func (m *Model) connect() tea.Cmd {
	visit := m.visit
	return m.start(func() tea.Msg {
		account, err := m.session.Connect(m.ctx)
		if err != nil {
			return errMsg{visit: visit, action: "connect wallet", err: err}
		}
		return connectedMsg{account: account}
	})
}

func (m *Model) createForum() tea.Cmd {
	title := m.titleInput.Value()
	candidates := make([]string, len(m.candidateInputs))
	for i, in := range m.candidateInputs {
		candidates[i] = in.Value()
	}

	if len(core.ValidCandidates(candidates)) < minCandidates {
		m.err = core.ErrTooFewCandidates.Error()
		return nil
	}

	visit := m.visit
	return m.start(func() tea.Msg {
		created, err := m.session.CreateForum(m.ctx, title, candidates)
		if err != nil {
			return errMsg{visit: visit, action: "create forum", err: err}
		}
		return createdMsg{created: created}
	})
}

func (m *Model) loadForum(id string, asAdmin bool) tea.Cmd {
	visit := m.visit
	return m.start(func() tea.Msg {
		forum, err := m.session.LoadForum(m.ctx, id, asAdmin)
		if err != nil {
			return errMsg{visit: visit, action: "load forum", err: err}
		}
		return forumMsg{visit: visit, forum: forum}
	})
}

func (m *Model) submitVote() tea.Cmd {
	if !m.canSubmit() {
		return nil
	}
	id, candidate, reason, visit := m.voterForumID, m.selected, m.reasonInput.Value(), m.visit
	return m.start(func() tea.Msg {
		forum, err := m.session.SubmitVote(m.ctx, id, candidate, reason)
		if err != nil {
			return errMsg{visit: visit, action: "submit vote", err: err}
		}
		return votedMsg{visit: visit, forum: forum}
	})
}

func (m *Model) endVoting() tea.Cmd {
	if m.created == nil || m.adminForum == nil || !m.adminForum.IsActive {
		return nil
	}
	id, visit := m.created.ID, m.visit
	return m.start(func() tea.Msg {
		forum, err := m.session.EndVoting(m.ctx, id)
		if err != nil {
			return errMsg{visit: visit, action: "end voting", err: err}
		}
		return endedMsg{forum: forum}
	})
}

func (m Model) canSubmit() bool {
	return m.voterForum != nil && m.selected >= 0 && strings.TrimSpace(m.reasonInput.Value()) != ""
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case connectedMsg:
		m.loading = false
		m.account = msg.account
		return m, nil
	case createdMsg:
		m.loading = false
		m.created = msg.created
		m.adminForum = nil
		m.notice = "Forum created, share the code with the voters"
		return m, nil
	case forumMsg:
		m.loading = false
		if msg.visit != m.visit {
			return m, nil
		}
		if m.view == viewAdmin {
			m.adminForum = msg.forum
		} else if m.view == viewVoter {
			m.voterForum = msg.forum
		}
		return m, nil
	case votedMsg:
		m.loading = false
		if msg.visit != m.visit {
			return m, nil
		}
		m.voterForum = msg.forum
		m.notice = "Your vote has been recorded"
		return m, nil
	case endedMsg:
		m.loading = false
		m.adminForum = msg.forum
		m.notice = "Voting has ended"
		return m, nil
	case errMsg:
		m.loading = false
		m.err = msg.Error()
		if msg.visit == m.visit && m.view == viewVoter && m.voterForum == nil {
			// back to the search form
			m.voterForumID = ""
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case viewAdmin:
			return m.updateAdmin(msg)
		case viewVoter:
			return m.updateVoter(msg)
		default:
			return m.updateHome(msg)
		}
	}
	return m, nil
}

func (m Model) updateHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k", "down", "j":
		m.homeCursor = 1 - m.homeCursor
	case "a":
		if m.Connected() {
			return m.openAdmin()
		}
	case "v":
		if m.Connected() {
			return m.openVoter()
		}
	case "enter":
		if !m.Connected() {
			return m, m.connect()
		}
		if m.homeCursor == 0 {
			return m.openAdmin()
		}
		return m.openVoter()
	}
	return m, nil
}

func (m Model) openAdmin() (tea.Model, tea.Cmd) {
	m.view = viewAdmin
	m.visit++
	m.err, m.notice = "", ""
	m.focusAdmin(0)
	return m, textinput.Blink
}

func (m Model) openVoter() (tea.Model, tea.Cmd) {
	m.view = viewVoter
	m.visit++
	m.err, m.notice = "", ""
	m.searchInput.Focus()
	return m, textinput.Blink
}

func (m Model) backHome() (tea.Model, tea.Cmd) {
	if m.view == viewVoter {
		m.voterForumID = ""
		m.voterForum = nil
		m.selected, m.cursor = -1, 0
		m.reasonFocus = false
		m.reasonInput.Reset()
		m.reasonInput.Blur()
		m.searchInput.Blur()
	}
	m.titleInput.Blur()
	for i := range m.candidateInputs {
		m.candidateInputs[i].Blur()
	}
	m.view = viewHome
	m.visit++
	m.err = ""
	return m, nil
}

// focusAdmin moves the form focus; 0 is the title, i > 0 the i-th candidate.
func (m *Model) focusAdmin(i int) {
	n := len(m.candidateInputs) + 1
	i = (i + n) % n

	m.titleInput.Blur()
	for j := range m.candidateInputs {
		m.candidateInputs[j].Blur()
	}
	if i == 0 {
		m.titleInput.Focus()
	} else {
		m.candidateInputs[i-1].Focus()
	}
	m.adminFocus = i
}

func (m Model) updateAdmin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		return m.backHome()
	}

	if m.created != nil {
		switch msg.String() {
		case "r":
			return m, m.loadForum(m.created.ID, true)
		case "e":
			return m, m.endVoting()
		case "n":
			if m.loading {
				return m, nil
			}
			// start another forum
			m.created, m.adminForum = nil, nil
			m.titleInput.Reset()
			m.candidateInputs = []textinput.Model{newCandidateInput(0), newCandidateInput(1)}
			m.notice = ""
			m.focusAdmin(0)
		}
		return m, nil
	}

	switch msg.String() {
	case "tab", "down":
		m.focusAdmin(m.adminFocus + 1)
		return m, nil
	case "shift+tab", "up":
		m.focusAdmin(m.adminFocus - 1)
		return m, nil
	case "enter":
		if m.adminFocus < len(m.candidateInputs) {
			m.focusAdmin(m.adminFocus + 1)
			return m, nil
		}
		return m, m.createForum()
	case "ctrl+s":
		return m, m.createForum()
	case "ctrl+n":
		m.candidateInputs = append(m.candidateInputs, newCandidateInput(len(m.candidateInputs)))
		m.focusAdmin(len(m.candidateInputs))
		return m, nil
	case "ctrl+d":
		if m.adminFocus > 0 && len(m.candidateInputs) > minCandidates {
			removed := m.adminFocus - 1
			inputs := make([]textinput.Model, 0, len(m.candidateInputs)-1)
			for j, in := range m.candidateInputs {
				if j == removed {
					continue
				}
				in.Prompt = fmt.Sprintf("Candidate %d: ", len(inputs)+1)
				inputs = append(inputs, in)
			}
			m.candidateInputs = inputs
			m.focusAdmin(m.adminFocus)
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.adminFocus == 0 {
		m.titleInput, cmd = m.titleInput.Update(msg)
	} else {
		m.candidateInputs[m.adminFocus-1], cmd = m.candidateInputs[m.adminFocus-1].Update(msg)
	}
	return m, cmd
}

func (m Model) updateVoter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		return m.backHome()
	}

	if m.voterForumID == "" {
		if msg.String() == "enter" {
			code := strings.TrimSpace(m.searchInput.Value())
			if code == "" || m.loading {
				return m, nil
			}
			m.voterForumID = code
			m.voterForum = nil
			return m, m.loadForum(code, false)
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}

	f := m.voterForum
	if f == nil || !f.IsActive || f.HasVoted {
		if msg.String() == "r" && f != nil {
			return m, m.loadForum(m.voterForumID, false)
		}
		return m, nil
	}

	switch msg.String() {
	case "tab", "shift+tab":
		m.reasonFocus = !m.reasonFocus
		if m.reasonFocus {
			m.reasonInput.Focus()
		} else {
			m.reasonInput.Blur()
		}
		return m, nil
	case "ctrl+s":
		return m, m.submitVote()
	}

	if m.reasonFocus {
		if msg.String() == "enter" {
			return m, m.submitVote()
		}
		var cmd tea.Cmd
		m.reasonInput, cmd = m.reasonInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(f.Candidates)-1 {
			m.cursor++
		}
	case " ", "enter":
		m.selected = m.cursor
	}
	return m, nil
}

func (m Model) View() string {
	var body string
	switch m.view {
	case viewAdmin:
		body = m.adminView()
	case viewVoter:
		body = m.voterView()
	default:
		body = m.homeView()
	}

	if m.notice != "" {
		body += "\n\n" + successStyle.Render(m.notice)
	}
	if m.err != "" {
		body += "\n\n" + errorStyle.Render(m.err)
	}
	return boxStyle.Render(body) + "\n"
}

func (m Model) homeView() string {
	lines := []string{titleStyle.Render("Voting System"), ""}

	if !m.Connected() {
		if m.loading {
			lines = append(lines, mutedStyle.Render("Connecting..."))
		} else {
			lines = append(lines, "Press enter to connect the wallet")
		}
		lines = append(lines, "", mutedStyle.Render("enter: connect  q: quit"))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, labelStyle.Render("Connected: ")+core.ShortAddress(m.account), "")
	for i, label := range []string{"Admin: create a voting forum", "Voter: vote in a forum"} {
		if i == m.homeCursor {
			lines = append(lines, focusStyle.Render("> "+label))
		} else {
			lines = append(lines, "  "+label)
		}
	}
	lines = append(lines, "", mutedStyle.Render("enter: open  a: admin  v: voter  q: quit"))
	return strings.Join(lines, "\n")
}

func (m Model) adminView() string {
	lines := []string{titleStyle.Render("Admin Dashboard"), ""}

	if m.created == nil {
		lines = append(lines, m.titleInput.View(), "")
		for _, in := range m.candidateInputs {
			lines = append(lines, in.View())
		}
		if m.loading {
			lines = append(lines, "", mutedStyle.Render("Creating forum..."))
		}
		lines = append(lines, "", mutedStyle.Render("ctrl+s: create  ctrl+n: add candidate  ctrl+d: remove candidate  tab: next  esc: back"))
		return strings.Join(lines, "\n")
	}

	lines = append(lines,
		successStyle.Render("Forum created!"),
		labelStyle.Render("Forum code: ")+codeStyle.Render(m.created.ID),
		mutedStyle.Render("Share this code with the voters"),
	)

	if f := m.adminForum; f != nil {
		lines = append(lines, "", RenderStatus(f), "", RenderResults(f))
		if voters := RenderVoters(f); voters != "" {
			lines = append(lines, "", voters)
		}
	}

	if m.loading {
		lines = append(lines, "", mutedStyle.Render("Waiting for the chain..."))
	}

	help := "r: check status  n: new forum  esc: back"
	if m.adminForum != nil && m.adminForum.IsActive {
		help = "r: check status  e: end voting  n: new forum  esc: back"
	}
	lines = append(lines, "", mutedStyle.Render(help))
	return strings.Join(lines, "\n")
}

func (m Model) voterView() string {
	lines := []string{titleStyle.Render("Voter"), ""}

	if m.voterForumID == "" {
		lines = append(lines, m.searchInput.View(), "", mutedStyle.Render("enter: search  esc: back"))
		return strings.Join(lines, "\n")
	}

	f := m.voterForum
	switch {
	case f == nil:
		lines = append(lines, mutedStyle.Render("Loading forum..."))
	case !f.IsActive:
		lines = append(lines,
			warningStyle.Render("Voting has ended"), "",
			headerStyle.Render(f.Title), "",
			RenderResults(f),
		)
	case f.HasVoted:
		lines = append(lines,
			headerStyle.Render(f.Title), "",
			successStyle.Render("You have already voted, thank you for taking part!"),
			mutedStyle.Render("Results are shown once voting ends."),
			"", mutedStyle.Render("r: refresh  esc: back"),
		)
	default:
		lines = append(lines, headerStyle.Render(f.Title), mutedStyle.Render("Your vote counts, make it heard!"), "", labelStyle.Render("Choose a candidate:"))
		for i, c := range f.Candidates {
			mark := "( )"
			if i == m.selected {
				mark = "(x)"
			}
			line := fmt.Sprintf("%s %s", mark, c.Name)
			if i == m.cursor && !m.reasonFocus {
				line = focusStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			lines = append(lines, line)
		}
		lines = append(lines, "", m.reasonInput.View(), "")

		submit := mutedStyle.Render("[ Submit vote ]")
		if m.loading {
			submit = mutedStyle.Render("Sending vote...")
		} else if m.canSubmit() {
			submit = focusStyle.Render("[ Submit vote ]")
		}
		lines = append(lines, submit, "", mutedStyle.Render("space: select  tab: reason  ctrl+s: submit  esc: back"))
	}

	return strings.Join(lines, "\n")
}
