// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MKhiriev/go-offline-sync/models"
)

type screen int

const (
	screenLogin screen = iota
	screenMonitor
)

// visibleStates are the queue rows worth showing; Synced rows are pruned
// by the engine and only counted.
var visibleStates = []models.OperationState{
	models.StateQueued,
	models.StateInFlight,
	models.StateDead,
	models.StateCancelled,
}

const maxVisibleOps = 15

type model struct {
	ctx       context.Context
	engine    Engine
	feed      *statusFeed
	buildInfo models.BuildInfo

	screen  screen
	login   loginModel
	spinner spinner.Model

	status models.SyncStatus
	ops    []models.PendingOperation
	cursor int

	notice        string
	err           string
	showBuildInfo bool
}

func newModel(ctx context.Context, engine Engine, feed *statusFeed, buildInfo models.BuildInfo) model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot

	m := model{
		ctx:       ctx,
		engine:    engine,
		feed:      feed,
		buildInfo: buildInfo,
		screen:    screenMonitor,
		login:     newLoginModel(),
		spinner:   s,
	}
	if !engine.SessionActive() {
		m.screen = screenLogin
	}
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.feed.wait(), m.loadOps())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m.updateLogin(msg)
		}
		return m.updateMonitor(msg)

	case statusMsg:
		prev := m.status
		m.status = models.SyncStatus(msg)
		cmds := []tea.Cmd{m.feed.wait(), m.loadOps()}
		// a paused engine lost its session; ask for credentials again
		if m.status.Phase == models.PhasePaused && prev.Phase != models.PhasePaused && !m.engine.SessionActive() {
			m.screen = screenLogin
			m.login = newLoginModel()
		}
		return m, tea.Batch(cmds...)

	case opsLoadedMsg:
		if msg.err != nil {
			m.err = humanizeError(msg.err)
			return m, nil
		}
		m.ops = msg.ops
		if m.cursor >= len(m.ops) {
			m.cursor = max(len(m.ops)-1, 0)
		}
		return m, nil

	case actionDoneMsg:
		m.notice, m.err = msg.notice, ""
		if msg.err != nil {
			m.notice, m.err = "", humanizeError(msg.err)
		}
		return m, m.loadOps()

	case loginDoneMsg:
		m.login.submitting = false
		if msg.err != nil {
			m.login.err = humanizeError(msg.err)
			return m, nil
		}
		m.screen = screenMonitor
		m.notice = "Вход выполнен"
		return m, m.loadOps()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.esc) {
		return m, tea.Quit
	}

	login, cmd, submit := m.login.update(msg)
	m.login = login
	if !submit {
		return m, cmd
	}

	user, password := m.login.values()
	return m, func() tea.Msg {
		return loginDoneMsg{err: m.engine.Login(m.ctx, user, password)}
	}
}

func (m model) updateMonitor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showBuildInfo {
		if key.Matches(msg, keys.esc, keys.info) {
			m.showBuildInfo = false
		}
		return m, nil
	}

	records := m.engine.Records()
	switch {
	case key.Matches(msg, keys.quit):
		return m, tea.Quit
	case key.Matches(msg, keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.down):
		if m.cursor < len(m.ops)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.info):
		m.showBuildInfo = true
	case key.Matches(msg, keys.sync):
		records.SyncNow()
		m.notice, m.err = "Синхронизация запрошена", ""
	case key.Matches(msg, keys.logout):
		m.engine.Logout(m.ctx)
		m.screen = screenLogin
		m.login = newLoginModel()
		m.notice = ""
	case key.Matches(msg, keys.retry):
		return m, m.onSelected(records.RetryOperation, "Операция возвращена в очередь")
	case key.Matches(msg, keys.dismiss):
		return m, m.onSelected(records.DismissOperation, "Операция убрана")
	case key.Matches(msg, keys.cancel):
		return m, m.onSelected(records.CancelOperation, "Операция отменена")
	}
	return m, nil
}

func (m model) onSelected(action func(ctx context.Context, queueID int64) error, notice string) tea.Cmd {
	op, ok := m.selected()
	if !ok {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		if err := action(ctx, op.QueueID); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{notice: fmt.Sprintf("%s: #%d", notice, op.QueueID)}
	}
}

func (m model) selected() (models.PendingOperation, bool) {
	if m.cursor < 0 || m.cursor >= len(m.ops) {
		return models.PendingOperation{}, false
	}
	return m.ops[m.cursor], true
}

func (m model) loadOps() tea.Cmd {
	records, ctx := m.engine.Records(), m.ctx
	return func() tea.Msg {
		ops, err := records.ListOperations(ctx, visibleStates...)
		return opsLoadedMsg{ops: ops, err: err}
	}
}

func (m model) View() string {
	if m.screen == screenLogin {
		return m.login.View()
	}
	if m.showBuildInfo {
		return renderBuildInfo(m.buildInfo)
	}

	var b strings.Builder
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	fmt.Fprintf(&b, "В очереди: %d  В работе: %d  Ошибки: %d\n", m.status.Queued, m.status.InFlight, m.status.Dead)
	if r := m.status.LastReport; r != nil {
		fmt.Fprintf(&b, "Последний проход %s: отправлено %d, повтор %d, ошибок %d\n",
			r.FinishedAt.Format("15:04:05"), r.Synced, r.Retried, r.Dead)
	}
	if m.status.LastError != "" {
		b.WriteString(errorStyle.Render(fitText(m.status.LastError, 70)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.opsView())

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(m.notice)
	}
	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err))
	}

	return renderPage("СИНХРОНИЗАЦИЯ", b.String(),
		"s: синхронизировать  r: повторить  d: убрать  c: отменить  l: выйти из аккаунта  v: версия  q: выход")
}

func (m model) statusLine() string {
	conn := offlineStyle.Render("● офлайн")
	if m.status.Connectivity == models.Online {
		conn = onlineStyle.Render("● онлайн")
	}

	var phase string
	switch m.status.Phase {
	case models.PhaseSyncing:
		phase = m.spinner.View() + " синхронизация..."
	case models.PhasePaused:
		phase = "приостановлено: нужен вход"
	case models.PhaseOffline:
		phase = "ожидание сети"
	default:
		phase = "ожидание"
	}
	return conn + "  " + phase
}

func (m model) opsView() string {
	if len(m.ops) == 0 {
		return "Очередь пуста"
	}

	start := 0
	if m.cursor >= maxVisibleOps {
		start = m.cursor - maxVisibleOps + 1
	}
	end := min(start+maxVisibleOps, len(m.ops))

	var b strings.Builder
	for i := start; i < end; i++ {
		line := opLine(m.ops[i])
		switch {
		case i == m.cursor:
			line = selectedStyle.Render(line)
		case m.ops[i].State == models.StateDead:
			line = deadStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if hidden := len(m.ops) - end; hidden > 0 {
		fmt.Fprintf(&b, "... ещё %d\n", hidden)
	}
	return strings.TrimRight(b.String(), "\n")
}

func opLine(op models.PendingOperation) string {
	line := fmt.Sprintf("#%-4d %-9s %-6s %s/%s", op.QueueID, op.State, op.Verb, op.EntityType, fitText(op.TargetID, 24))
	if op.AttemptCount > 0 {
		line += fmt.Sprintf("  попыток: %d", op.AttemptCount)
	}
	if op.LastError != "" {
		line += "  " + fitText(op.LastError, 40)
	}
	return line
}

func renderBuildInfo(info models.BuildInfo) string {
	var b strings.Builder
	b.WriteString("Версия: " + info.Version + "\n")
	b.WriteString("Дата: " + info.Date + "\n")
	b.WriteString("Коммит: " + info.Commit)
	return renderPage("ИНФОРМАЦИЯ О ПРОГРАММЕ", b.String(), "esc: назад")
}
