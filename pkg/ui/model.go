// Package ui implements the terminal interface: the pull request list,
// the detail pane, and the offline queue dashboard.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/kraitsura/lazyreview/pkg/config"
	"github.com/kraitsura/lazyreview/pkg/model"
	"github.com/kraitsura/lazyreview/pkg/provider"
	"github.com/kraitsura/lazyreview/pkg/queue"
)

// view identifies which screen has focus.
type view int

const (
	viewList view = iota
	viewDetail
	viewQueue
	viewInput
)

// Deps wires the UI to the rest of the application. The queue store is the
// only source of truth for pending actions; the UI rereads it after every
// mutation instead of shadowing it.
type Deps struct {
	Config  *config.Config
	Queue   *queue.Store
	Engine  *queue.Engine
	Resolve queue.ResolveFunc
}

type prsLoadedMsg struct {
	prs []model.PullRequest
	err error
}

type queueLoadedMsg struct {
	actions []model.QueuedAction
	err     error
}

type replayDoneMsg struct {
	summary queue.Summary
	err     error
}

type diffLoadedMsg struct {
	diff string
	err  error
}

// ReconnectMsg is sent by the connectivity monitor when the network comes
// back; it triggers a replay pass.
type ReconnectMsg struct{}

// ConfigReloadedMsg carries a freshly reloaded configuration after the
// config file changed on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// Model is the root bubbletea model.
type Model struct {
	deps Deps

	currentView view
	list        list.Model
	prs         []model.PullRequest
	dashboard   QueueDashboardModel
	input       CommentInputModel

	searchMode  bool
	searchInput textinput.Model

	detail   viewport.Model
	detailPR *model.PullRequest

	status string
	width  int
	height int
}

// NewModel creates the root model.
func NewModel(deps Deps) Model {
	l := list.New(nil, PRDelegate{QueuedCounts: map[string]int{}}, 0, 0)
	l.Title = "Pull Requests"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = TitleStyle

	search := textinput.New()
	search.Placeholder = "fuzzy filter..."
	search.CharLimit = 80

	return Model{
		deps:        deps,
		list:        l,
		dashboard:   NewQueueDashboardModel(),
		searchInput: search,
		status:      "loading pull requests...",
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadPRs(), m.loadQueue())
}

func (m Model) loadPRs() tea.Cmd {
	cfg := m.deps.Config
	resolve := m.deps.Resolve
	return func() tea.Msg {
		var prs []model.PullRequest
		for _, pc := range cfg.Providers {
			p, err := resolve(pc.Type)
			if err != nil {
				return prsLoadedMsg{err: err}
			}
			for _, repo := range pc.Repos {
				listed, err := p.ListPullRequests(context.Background(), repo.Owner, repo.Repo, provider.ListOptions{})
				if err != nil {
					return prsLoadedMsg{prs: prs, err: err}
				}
				for _, pr := range listed {
					if pr.Draft && !cfg.UI.ShowDrafts {
						continue
					}
					prs = append(prs, pr)
				}
			}
		}
		return prsLoadedMsg{prs: prs}
	}
}

func (m Model) loadQueue() tea.Cmd {
	store := m.deps.Queue
	return func() tea.Msg {
		actions, err := store.List(nil)
		return queueLoadedMsg{actions: actions, err: err}
	}
}

func (m Model) flush() tea.Cmd {
	engine := m.deps.Engine
	return func() tea.Msg {
		summary, err := engine.Run(context.Background())
		return replayDoneMsg{summary: summary, err: err}
	}
}

func (m Model) loadDiff(pr model.PullRequest) tea.Cmd {
	resolve := m.deps.Resolve
	return func() tea.Msg {
		p, err := resolve(pr.Provider)
		if err != nil {
			return diffLoadedMsg{err: err}
		}
		diff, err := p.GetPullRequestDiff(context.Background(), pr.Owner, pr.Repo, pr.Number)
		return diffLoadedMsg{diff: diff, err: err}
	}
}

func (m Model) enqueue(kind model.ActionKind, target model.Target, payload model.ActionPayload) tea.Cmd {
	store := m.deps.Queue
	return func() tea.Msg {
		if _, err := store.Enqueue(target, kind, payload); err != nil {
			return queueLoadedMsg{err: err}
		}
		actions, err := store.List(nil)
		return queueLoadedMsg{actions: actions, err: err}
	}
}

func (m Model) removeAction(id int64) tea.Cmd {
	store := m.deps.Queue
	return func() tea.Msg {
		if err := store.Remove(id); err != nil {
			return queueLoadedMsg{err: err}
		}
		actions, err := store.List(nil)
		return queueLoadedMsg{actions: actions, err: err}
	}
}

// selectedPR returns the pull request under the list cursor.
func (m Model) selectedPR() (model.PullRequest, bool) {
	item, ok := m.list.SelectedItem().(PRItem)
	if !ok {
		return model.PullRequest{}, false
	}
	return item.PR, true
}

func targetOf(pr model.PullRequest) model.Target {
	return model.Target{Provider: pr.Provider, Owner: pr.Owner, Repo: pr.Repo, Number: pr.Number}
}

// applyFilter rebuilds the visible list from the loaded PRs and the current
// search query.
func (m *Model) applyFilter() {
	visible := FilterPullRequests(m.prs, m.searchInput.Value())
	items := make([]list.Item, 0, len(visible))
	for _, pr := range visible {
		items = append(items, PRItem{PR: pr})
	}
	m.list.SetItems(items)
}

// refreshQueueCounts updates the per-PR queued action markers in the list.
func (m *Model) refreshQueueCounts(actions []model.QueuedAction) {
	counts := make(map[string]int, len(actions))
	for _, a := range actions {
		ref := fmt.Sprintf("%s/%s#%d", a.Target.Owner, a.Target.Repo, a.Target.Number)
		counts[ref]++
	}
	m.list.SetDelegate(PRDelegate{QueuedCounts: counts})
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, msg.Height-3)
		m.dashboard.SetSize(msg.Width, msg.Height-3)
		m.detail = viewport.New(msg.Width, msg.Height-3)
		if m.detailPR != nil {
			m.renderDetail("")
		}
		return m, nil

	case prsLoadedMsg:
		if msg.err != nil {
			m.status = "offline: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("%d pull requests", len(msg.prs))
		}
		m.prs = msg.prs
		m.applyFilter()
		return m, nil

	case queueLoadedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.dashboard.SetActions(msg.actions)
		m.refreshQueueCounts(msg.actions)
		return m, nil

	case replayDoneMsg:
		if msg.err != nil {
			m.status = "replay aborted: " + msg.err.Error()
		} else {
			s := msg.summary
			m.status = fmt.Sprintf("replayed %d, failed %d, skipped %d", s.Succeeded, s.Failed, s.Skipped)
			m.dashboard.SetSummary(s)
		}
		return m, m.loadQueue()

	case diffLoadedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.renderDetail(msg.diff)
		return m, nil

	case ReconnectMsg:
		m.status = "back online, flushing queue..."
		return m, m.flush()

	case ConfigReloadedMsg:
		m.deps.Config = msg.Config
		m.status = "config reloaded"
		return m, m.loadPRs()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateChildren(msg)
}

func (m Model) updateChildren(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case viewList:
		m.list, cmd = m.list.Update(msg)
	case viewQueue:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case viewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case viewInput:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The input modal owns the keyboard while visible.
	if m.currentView == viewInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Cancelled() {
			m.currentView = viewList
			return m, nil
		}
		if body, ok := m.input.Submitted(); ok {
			m.currentView = viewList
			m.status = "queued " + string(m.input.kind)
			payload := model.ActionPayload{Body: body}
			return m, m.enqueue(m.input.kind, m.input.target, payload)
		}
		return m, cmd
	}

	if m.searchMode {
		switch msg.String() {
		case "esc":
			m.searchMode = false
			m.searchInput.SetValue("")
			m.applyFilter()
			return m, nil
		case "enter":
			m.searchMode = false
			return m, nil
		default:
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			m.applyFilter()
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		if m.currentView == viewQueue {
			m.currentView = viewList
		} else {
			m.currentView = viewQueue
		}
		return m, m.loadQueue()

	case "esc":
		if m.currentView != viewList {
			m.currentView = viewList
		}
		return m, nil

	case "/":
		if m.currentView == viewList {
			m.searchMode = true
			m.searchInput.Focus()
			return m, textinput.Blink
		}

	case "r":
		m.status = "refreshing..."
		return m, tea.Batch(m.loadPRs(), m.loadQueue())

	case "f":
		m.status = "flushing queue..."
		return m, m.flush()

	case "enter":
		if m.currentView == viewList {
			if pr, ok := m.selectedPR(); ok {
				m.currentView = viewDetail
				m.detailPR = &pr
				m.renderDetail("")
				return m, m.loadDiff(pr)
			}
		}

	case "y":
		if pr, ok := m.selectedPR(); ok && pr.URL != "" {
			if err := clipboard.WriteAll(pr.URL); err != nil {
				m.status = "clipboard: " + err.Error()
			} else {
				m.status = "yanked " + pr.URL
			}
		}
		return m, nil

	case "a":
		if pr, ok := m.selectedPR(); ok {
			m.currentView = viewInput
			m.input = NewCommentInputModel(model.ActionApprove, targetOf(pr))
			return m, m.input.Init()
		}

	case "x":
		if m.currentView == viewQueue {
			if action, ok := m.dashboard.Selected(); ok {
				m.status = fmt.Sprintf("dropped action %d", action.ID)
				return m, m.removeAction(action.ID)
			}
			return m, nil
		}
		if pr, ok := m.selectedPR(); ok {
			m.currentView = viewInput
			m.input = NewCommentInputModel(model.ActionRequestChanges, targetOf(pr))
			return m, m.input.Init()
		}

	case "c":
		if pr, ok := m.selectedPR(); ok {
			m.currentView = viewInput
			m.input = NewCommentInputModel(model.ActionComment, targetOf(pr))
			return m, m.input.Init()
		}
	}

	return m.updateChildren(msg)
}

// renderDetail fills the detail viewport with the PR body (markdown) and,
// when available, the diff.
func (m *Model) renderDetail(diff string) {
	if m.detailPR == nil {
		return
	}
	pr := m.detailPR

	width := m.width - 4
	if width < 20 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s/%s#%d  %s", pr.Owner, pr.Repo, pr.Number, pr.Title)))
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(fmt.Sprintf("@%s  %s → %s  %s", pr.Author, pr.SourceBranch, pr.TargetBranch, RenderStateBadge(string(pr.State)))))
	b.WriteString("\n\n")

	body := pr.Body
	if body == "" {
		body = "*no description*"
	}
	if renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width)); err == nil {
		if rendered, err := renderer.Render(body); err == nil {
			body = rendered
		}
	}
	b.WriteString(body)

	if diff != "" {
		b.WriteString("\n")
		b.WriteString(RenderDivider(width))
		b.WriteString("\n")
		b.WriteString(diff)
	}

	m.detail.SetContent(b.String())
}

// View implements tea.Model
func (m Model) View() string {
	var content string
	switch m.currentView {
	case viewQueue:
		content = m.dashboard.View()
	case viewDetail:
		content = m.detail.View()
	case viewInput:
		content = lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, m.input.View())
	default:
		content = m.list.View()
		if m.searchMode {
			content += "\n" + HelpStyle.Render("/") + m.searchInput.View()
		}
	}

	statusBar := StatusBarStyle.Width(m.width).Render(m.status +
		"  •  a approve  x changes  c comment  f flush  tab queue  q quit")
	return content + "\n" + statusBar
}
