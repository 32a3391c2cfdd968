// Package tui is the terminal front end for the expense list. Every create
// and delete shows up immediately and is settled when the server answers.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"expenses/internal/client"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/ports"
	"expenses/internal/view"
)

type mode int

const (
	modeList mode = iota
	modeForm
)

// App is the bubbletea model.
type App struct {
	ctx    context.Context
	store  ports.RecordStore
	logger *applog.Logger

	state   *view.State
	filter  string
	cursor  int
	mode    mode
	form    form
	status  string
	loading bool
	loadErr error
}

type loadedMsg struct {
	recs []core.ExpenseRecord
	err  error
}

type createResolvedMsg struct {
	id  view.MutationID
	rec core.ExpenseRecord
	err error
}

type deleteResolvedMsg struct {
	id  view.MutationID
	rec core.ExpenseRecord
	err error
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	headerStyle   = lipgloss.NewStyle().Bold(true)
	pendingStyle  = lipgloss.NewStyle().Faint(true).Italic(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

// New builds the model. store is normally a *client.Client pointed at the
// configured API.
func New(ctx context.Context, store ports.RecordStore, logger *applog.Logger) *App {
	if logger == nil {
		logger = applog.Discard()
	}
	return &App{
		ctx:     ctx,
		store:   store,
		logger:  logger.WithComponent(applog.ComponentTUI),
		state:   view.New(),
		filter:  view.AllCategories,
		form:    newForm(),
		loading: true,
	}
}

func (a *App) Init() tea.Cmd {
	return a.load()
}

func (a *App) load() tea.Cmd {
	return func() tea.Msg {
		recs, err := a.store.List(a.ctx)
		return loadedMsg{recs: recs, err: err}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if m.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		if a.mode == modeForm {
			return a.handleFormKey(m)
		}
		return a.handleListKey(m)

	case loadedMsg:
		a.loading = false
		a.loadErr = m.err
		if m.err != nil {
			a.logger.WarnContext(a.ctx, "Failed to load expenses", applog.FieldError, m.err.Error())
			a.status = "Could not load expenses: " + m.err.Error()
			return a, nil
		}
		a.state.Load(m.recs)
		a.status = fmt.Sprintf("Loaded %d expenses", len(m.recs))
		a.clampCursor()
		return a, nil

	case createResolvedMsg:
		return a.resolveCreate(m)

	case deleteResolvedMsg:
		return a.resolveDelete(m)
	}
	return a, nil
}

func (a *App) handleListKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		a.cursor++
		a.clampCursor()
	case "k", "up":
		a.cursor--
		a.clampCursor()
	case "f":
		a.filter = view.CycleFilter(a.filter, 1)
		a.clampCursor()
	case "F":
		a.filter = view.CycleFilter(a.filter, -1)
		a.clampCursor()
	case "n":
		a.mode = modeForm
		a.form = newForm()
	case "r":
		a.loading = true
		a.status = "Reloading..."
		return a, a.load()
	case "d":
		return a.deleteSelected()
	}
	return a, nil
}

func (a *App) handleFormKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.mode = modeList
		a.status = "Cancelled"
		return a, nil
	case tea.KeyEnter:
		return a.submit()
	case tea.KeyTab, tea.KeyDown:
		a.form.focusNext(1)
	case tea.KeyShiftTab, tea.KeyUp:
		a.form.focusNext(-1)
	case tea.KeyLeft:
		if a.form.focus == fieldCategory {
			a.form.cycleCategory(-1)
		}
	case tea.KeyRight:
		if a.form.focus == fieldCategory {
			a.form.cycleCategory(1)
		}
	case tea.KeyBackspace:
		a.form.backspace()
	case tea.KeySpace:
		a.form.typeRunes([]rune{' '})
	case tea.KeyRunes:
		a.form.typeRunes(m.Runes)
	}
	return a, nil
}

func (a *App) submit() (tea.Model, tea.Cmd) {
	in, err := a.form.expense()
	if err == nil {
		var mut view.Mutation
		mut, err = a.state.BeginCreate(in)
		if err == nil {
			a.mode = modeList
			a.form = newForm()
			a.status = fmt.Sprintf("Saving %q...", in.Description)
			return a, a.create(mut.ID, in)
		}
	}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		a.form.errors = ve.FieldMessages()
	} else {
		a.form.errors = map[string]string{"": err.Error()}
	}
	return a, nil
}

func (a *App) create(id view.MutationID, in core.NewExpense) tea.Cmd {
	return func() tea.Msg {
		rec, err := a.store.Create(a.ctx, in)
		return createResolvedMsg{id: id, rec: rec, err: err}
	}
}

func (a *App) resolveCreate(m createResolvedMsg) (tea.Model, tea.Cmd) {
	pending, _ := a.state.Mutation(m.id)
	mut, err := a.state.Resolve(m.id, m.rec, m.err)
	if err != nil {
		a.logger.WarnContext(a.ctx, "Create resolved twice", applog.FieldError, err.Error())
		return a, nil
	}
	a.clampCursor()

	if mut.Status == view.Confirmed {
		a.logger.InfoContext(a.ctx, "Expense saved", applog.NewFields().WithRecord(mut.Record).ToSlice()...)
		a.status = fmt.Sprintf("Saved %q", mut.Record.Description)
		return a, nil
	}

	a.logger.WarnContext(a.ctx, "Expense create rolled back", applog.FieldError, errString(m.err))
	a.status = fmt.Sprintf("Could not save %q: %s", pending.Input.Description, describe(m.err))

	// Server-side field problems reopen the form so they can be fixed.
	var apiErr *client.APIError
	if errors.As(m.err, &apiErr) && apiErr.Validation() != nil && a.mode == modeList {
		a.form = formFrom(pending.Input)
		a.form.errors = apiErr.Validation().FieldMessages()
		a.mode = modeForm
	}
	return a, nil
}

func (a *App) deleteSelected() (tea.Model, tea.Cmd) {
	rows := a.state.Rows(a.filter)
	if len(rows) == 0 {
		return a, nil
	}
	row := rows[a.cursor]
	if row.Pending {
		a.status = "That expense is still being saved"
		return a, nil
	}

	mut, err := a.state.BeginDelete(row.ID)
	if err != nil {
		a.status = "Could not delete: " + err.Error()
		return a, nil
	}
	a.clampCursor()
	a.status = fmt.Sprintf("Deleting %q...", row.Description)

	id, recID := mut.ID, row.ID
	return a, func() tea.Msg {
		rec, err := a.store.Delete(a.ctx, recID)
		return deleteResolvedMsg{id: id, rec: rec, err: err}
	}
}

func (a *App) resolveDelete(m deleteResolvedMsg) (tea.Model, tea.Cmd) {
	mut, err := a.state.Resolve(m.id, m.rec, m.err)
	if err != nil {
		a.logger.WarnContext(a.ctx, "Delete resolved twice", applog.FieldError, err.Error())
		return a, nil
	}
	a.clampCursor()

	if mut.Status == view.Confirmed {
		a.logger.InfoContext(a.ctx, "Expense deleted", applog.NewFields().WithRecord(mut.Record).ToSlice()...)
		a.status = fmt.Sprintf("Deleted %q", mut.Record.Description)
		return a, nil
	}
	a.logger.WarnContext(a.ctx, "Expense delete rolled back", applog.FieldError, errString(m.err))
	a.status = fmt.Sprintf("Could not delete %q: %s", mut.Record.Description, describe(m.err))
	return a, nil
}

func (a *App) clampCursor() {
	n := len(a.state.Rows(a.filter))
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func describe(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if ve := apiErr.Validation(); ve != nil {
			return view.DescribeError(ve)
		}
		return apiErr.Message
	}
	return view.DescribeError(err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Expenses"))
	b.WriteString("\n\n")
	b.WriteString(a.renderFilter())
	b.WriteString("\n\n")
	b.WriteString(a.renderTable())
	if a.mode == modeForm {
		b.WriteString("\n\n")
		b.WriteString(a.form.render())
	}
	b.WriteString("\n\n")
	if a.status != "" {
		b.WriteString(a.status)
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(a.help()))
	return b.String()
}

func (a *App) renderFilter() string {
	parts := make([]string, 0, 4)
	for _, opt := range view.FilterOptions() {
		if opt == a.filter {
			parts = append(parts, focusStyle.Render("["+opt+"]"))
		} else {
			parts = append(parts, opt)
		}
	}
	return "Filter: " + strings.Join(parts, "  ")
}

func (a *App) renderTable() string {
	if a.loading && a.state.Len() == 0 {
		return "Loading..."
	}
	rows := a.state.Rows(a.filter)
	if len(rows) == 0 {
		return helpStyle.Render("No expenses")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-32s %12s  %-14s", "Description", "Amount", "Category")))
	for i, r := range rows {
		line := fmt.Sprintf("  %-32s %12s  %-14s", truncate(r.Description, 32), r.Amount.String()+" $", r.Category)
		switch {
		case i == a.cursor && a.mode == modeList:
			line = selectedStyle.Render(line)
		case r.Pending:
			line = pendingStyle.Render(line)
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-32s %12s", "Total", a.state.Total(a.filter).String()+" $")))
	return b.String()
}

func (a *App) help() string {
	if a.mode == modeForm {
		return "tab next field • ←/→ category • enter save • esc cancel"
	}
	return "n new • d delete • f/F filter • j/k move • r reload • q quit"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
