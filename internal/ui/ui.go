package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/zipdrop/internal/formatter"
	"github.com/desertthunder/zipdrop/internal/gateway"
	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/services"
	"github.com/desertthunder/zipdrop/internal/shared"
)

// ViewState names a screen. Values double as navigation targets for [gateway.Navigator].
type ViewState string

const (
	SignInView        ViewState = gateway.SignInView
	ProjectListView   ViewState = "projects"
	ProjectDetailView ViewState = "project"
)

// protected reports whether view requires a session.
func (v ViewState) protected() bool {
	return v != SignInView
}

// ToastTTL is how long a notification stays on screen.
const ToastTTL = 4 * time.Second

// Auth is the session surface the TUI needs. Implemented by session.Store.
type Auth interface {
	IsAuthenticated() bool
	User() *models.User
	Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error)
	Register(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error)
	Logout(ctx context.Context)
}

// Projects is the project surface the TUI needs. Implemented by services.ProjectService.
type Projects interface {
	List(ctx context.Context) ([]models.Project, error)
	Get(ctx context.Context, id string, force bool) (*models.Project, error)
	Delete(ctx context.Context, id string) error
	TogglePublic(ctx context.Context, id string) (*models.Project, error)
	TrackView(ctx context.Context, id string)
	PublicURL(slug, id string) string
}

// Options configures a [Model].
type Options struct {
	Storage models.Storage         // theme persistence, optional
	Theme   Theme                  // used when storage holds no theme
	Open    func(url string) error // defaults to shared.OpenBrowser
	Now     func() time.Time
	Logger  *log.Logger
}

type toast struct {
	id      string
	kind    gateway.NoticeKind
	message string
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	auth     Auth
	projects Projects
	bridge   *Bridge
	storage  models.Storage
	open     func(string) error
	now      func() time.Time
	logger   *log.Logger
	tick     func(time.Duration, func(time.Time) tea.Msg) tea.Cmd

	view          ViewState
	width         int
	height        int
	theme         Theme
	styles        *Palette
	form          signInForm
	projectList   list.Model
	selected      *models.Project
	loading       bool
	confirmDelete string
	toasts        []toast
	spinner       spinner.Model
	help          help.Model
	keys          keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, auth Auth, projects Projects, bridge *Bridge, opts Options) *Model {
	if bridge == nil {
		bridge = NewBridge(SignInView)
	}
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Theme == "" {
		opts.Theme = ThemeDark
	}

	theme := LoadTheme(opts.Storage, opts.Theme)
	projectList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	projectList.Title = "Projects"
	projectList.SetShowHelp(false)

	m := &Model{
		ctx:         ctx,
		auth:        auth,
		projects:    projects,
		bridge:      bridge,
		storage:     opts.Storage,
		open:        opts.Open,
		now:         opts.Now,
		logger:      opts.Logger,
		tick:        tea.Tick,
		theme:       theme,
		styles:      NewPalette(theme),
		form:        newSignInForm(),
		projectList: projectList,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:        help.New(),
		keys:        newKeyMap(),
	}
	m.view = m.guard(ProjectListView)
	m.bridge.setCurrent(m.view)
	return m
}

// Init starts the spinner and loads projects when a session is already present.
func (m *Model) Init() tea.Cmd {
	if m.view == ProjectListView {
		m.loading = true
		return tea.Batch(m.spinner.Tick, m.fetchProjects())
	}
	return m.spinner.Tick
}

// View returns the active screen.
func (m *Model) View() string {
	var body string
	switch m.view {
	case SignInView:
		body = m.renderSignIn()
	case ProjectListView:
		body = m.renderProjectList()
	case ProjectDetailView:
		body = m.renderProjectDetail()
	}

	parts := []string{m.renderHeader(), body}
	if t := m.renderToasts(); t != "" {
		parts = append(parts, t)
	}
	return strings.Join(parts, "\n")
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.projectList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case SignInView:
			return m.handleSignInKeys(msg)
		case ProjectListView:
			return m.handleProjectListKeys(msg)
		case ProjectDetailView:
			return m.handleDetailKeys(msg)
		}

	case Msg:
		return m, m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) tea.Cmd {
	switch msg.kind {
	case MsgNotice:
		n := msg.data.(notice)
		return m.addToast(n.kind, n.message)

	case MsgNavigate:
		return m.navigate(msg.data.(ViewState))

	case MsgToastExpired:
		id := msg.data.(string)
		kept := m.toasts[:0]
		for _, t := range m.toasts {
			if t.id != id {
				kept = append(kept, t)
			}
		}
		m.toasts = kept
		return nil

	case MsgAuthenticated:
		m.form.submitting = false
		if err, _ := msg.data.(error); err != nil {
			m.form.err = gateway.Message(err, "sign in failed")
			return nil
		}
		m.form.reset()
		greeting := "signed in"
		if u := m.auth.User(); u != nil {
			greeting = "signed in as " + u.Email
		}
		return tea.Batch(m.navigate(ProjectListView), m.addToast(gateway.NoticeSuccess, greeting))

	case MsgLoggedOut:
		m.selected = nil
		m.projectList.SetItems(nil)
		return tea.Batch(m.navigate(SignInView), m.addToast(gateway.NoticeInfo, "signed out"))

	case MsgProjectsFetched:
		m.loading = false
		res := msg.data.(projectsResult)
		if res.err != nil {
			return m.failure(res.err)
		}
		return m.projectList.SetItems(projectItems(res.projects, m.now()))

	case MsgProjectFetched:
		m.loading = false
		res := msg.data.(projectResult)
		if res.err != nil {
			if m.view == ProjectDetailView {
				m.view = ProjectListView
				m.bridge.setCurrent(m.view)
			}
			return m.failure(res.err)
		}
		m.selected = res.project
		return nil

	case MsgToggled:
		res := msg.data.(projectResult)
		if res.err != nil {
			return m.failure(res.err)
		}
		m.replaceProject(*res.project)
		return nil

	case MsgDeleted:
		res := msg.data.(deleteResult)
		if res.err != nil {
			return m.failure(res.err)
		}
		m.removeProject(res.id)
		if m.view == ProjectDetailView {
			return m.navigate(ProjectListView)
		}
		return nil

	case MsgOpened:
		if err, _ := msg.data.(error); err != nil {
			return m.addToast(gateway.NoticeError, "failed to open browser")
		}
		return nil
	}
	return nil
}

// guard applies route protection: protected views need a session, and the sign-in view is
// skipped once signed in.
func (m *Model) guard(view ViewState) ViewState {
	authed := m.auth != nil && m.auth.IsAuthenticated()
	switch {
	case view.protected() && !authed:
		return SignInView
	case view == SignInView && authed:
		return ProjectListView
	case view == ProjectDetailView && m.selected == nil:
		return ProjectListView
	default:
		return view
	}
}

func (m *Model) navigate(view ViewState) tea.Cmd {
	target := m.guard(view)
	if target == m.view && target != ProjectListView {
		return nil
	}

	m.view = target
	m.confirmDelete = ""
	m.bridge.setCurrent(target)

	switch target {
	case SignInView:
		m.selected = nil
		m.form.submitting = false
	case ProjectListView:
		m.loading = true
		return m.fetchProjects()
	}
	return nil
}

func (m *Model) addToast(kind gateway.NoticeKind, message string) tea.Cmd {
	t := toast{id: shared.GenerateID(), kind: kind, message: message}
	m.toasts = append(m.toasts, t)
	return m.tick(ToastTTL, toastExpiredMsg(t.id))
}

// failure surfaces err as an error toast. Expired sessions are already announced by the gateway.
func (m *Model) failure(err error) tea.Cmd {
	if errors.Is(err, shared.ErrSessionExpired) {
		return nil
	}
	m.logger.Warn("request failed", "view", m.view, "error", err)
	return m.addToast(gateway.NoticeError, errorText(err, "request failed"))
}

func errorText(err error, fallback string) string {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return gateway.Message(err, fallback)
}

func (m *Model) toggleTheme() tea.Cmd {
	m.theme = m.theme.Toggle()
	m.styles = NewPalette(m.theme)
	if err := SaveTheme(m.storage, m.theme); err != nil {
		m.logger.Warn("failed to save theme", "error", err)
		return m.addToast(gateway.NoticeWarning, "theme could not be saved")
	}
	return nil
}

func (m *Model) handleSignInKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, m.keys.mode):
		m.form.toggleMode()
		return m, nil
	case msg.Type == tea.KeyTab || msg.Type == tea.KeyDown:
		m.form.next(1)
		return m, nil
	case msg.Type == tea.KeyShiftTab || msg.Type == tea.KeyUp:
		m.form.next(-1)
		return m, nil
	case msg.Type == tea.KeyEnter:
		if m.form.focus < m.form.fields()-1 {
			m.form.next(1)
			return m, nil
		}
		return m, m.submit()
	}

	m.form.err = ""
	return m, m.form.update(msg)
}

func (m *Model) submit() tea.Cmd {
	if m.form.submitting {
		return nil
	}
	if err := m.form.validate(); err != nil {
		m.form.err = strings.TrimPrefix(err.Error(), shared.ErrInvalidInput.Error()+": ")
		return nil
	}
	m.form.submitting = true
	m.form.err = ""
	creds, register := m.form.credentials(), m.form.register

	return func() tea.Msg {
		var err error
		if register {
			_, err = m.auth.Register(m.ctx, creds)
		} else {
			_, err = m.auth.Login(m.ctx, creds)
		}
		return authenticatedMsg(err)
	}
}

func (m *Model) handleProjectListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.projectList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.projectList, cmd = m.projectList.Update(msg)
		return m, cmd
	}
	if m.confirmDelete != "" {
		return m, m.handleConfirmKeys(msg)
	}

	selected := m.currentItem()
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if selected != nil {
			m.selected = selected
			m.view = ProjectDetailView
			m.bridge.setCurrent(m.view)
			m.loading = true
			return m, m.fetchProject(selected.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		m.loading = true
		return m, m.fetchProjects()
	case key.Matches(msg, m.keys.theme):
		return m, m.toggleTheme()
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case selected != nil && key.Matches(msg, m.keys.toggle):
		return m, m.toggle(selected.ID)
	case selected != nil && key.Matches(msg, m.keys.remove):
		m.confirmDelete = selected.ID
		return m, nil
	case selected != nil && key.Matches(msg, m.keys.open):
		return m, m.openProject(*selected)
	}

	var cmd tea.Cmd
	m.projectList, cmd = m.projectList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmDelete != "" {
		return m, m.handleConfirmKeys(msg)
	}
	if m.selected == nil {
		return m, m.navigate(ProjectListView)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ProjectListView
		m.bridge.setCurrent(m.view)
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchProject(m.selected.ID)
	case key.Matches(msg, m.keys.toggle):
		return m, m.toggle(m.selected.ID)
	case key.Matches(msg, m.keys.remove):
		m.confirmDelete = m.selected.ID
	case key.Matches(msg, m.keys.open):
		return m, m.openProject(*m.selected)
	case key.Matches(msg, m.keys.theme):
		return m, m.toggleTheme()
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}
	return m, nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) tea.Cmd {
	id := m.confirmDelete
	switch {
	case key.Matches(msg, m.keys.yes):
		m.confirmDelete = ""
		return m.remove(id)
	case key.Matches(msg, m.keys.no):
		m.confirmDelete = ""
	}
	return nil
}

func (m *Model) currentItem() *models.Project {
	item, ok := m.projectList.SelectedItem().(projectItem)
	if !ok {
		return nil
	}
	p := item.project
	return &p
}

func (m *Model) replaceProject(p models.Project) {
	items := m.projectList.Items()
	for i, item := range items {
		if pi, ok := item.(projectItem); ok && pi.project.ID == p.ID {
			m.projectList.SetItem(i, projectItem{project: p, now: m.now()})
		}
	}
	if m.selected != nil && m.selected.ID == p.ID {
		m.selected = &p
	}
}

func (m *Model) removeProject(id string) {
	items := m.projectList.Items()
	for i, item := range items {
		if pi, ok := item.(projectItem); ok && pi.project.ID == id {
			m.projectList.RemoveItem(i)
			break
		}
	}
	if m.selected != nil && m.selected.ID == id {
		m.selected = nil
	}
}

func (m *Model) fetchProjects() tea.Cmd {
	return func() tea.Msg {
		projects, err := m.projects.List(m.ctx)
		return projectsFetchedMsg(projects, err)
	}
}

func (m *Model) fetchProject(id string) tea.Cmd {
	return func() tea.Msg {
		project, err := m.projects.Get(m.ctx, id, true)
		return projectFetchedMsg(project, err)
	}
}

func (m *Model) toggle(id string) tea.Cmd {
	return func() tea.Msg {
		project, err := m.projects.TogglePublic(m.ctx, id)
		return toggledMsg(project, err)
	}
}

func (m *Model) remove(id string) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg(id, m.projects.Delete(m.ctx, id))
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		m.auth.Logout(m.ctx)
		return loggedOutMsg()
	}
}

// openProject opens a public project in the browser and records the view.
func (m *Model) openProject(p models.Project) tea.Cmd {
	if !p.IsPublic {
		return m.addToast(gateway.NoticeWarning, "publish the project before opening it")
	}
	url := p.URL()
	if url == "" {
		url = m.projects.PublicURL(p.Slug, p.ID)
	}
	return func() tea.Msg {
		if err := m.open(url); err != nil {
			return openedMsg(err)
		}
		m.projects.TrackView(m.ctx, p.ID)
		return openedMsg(nil)
	}
}

func (m *Model) renderHeader() string {
	right := string(m.theme)
	if m.auth != nil {
		if u := m.auth.User(); u != nil {
			right = u.Email + " • " + right
		}
	}
	return m.styles.title.Render("ZipDrop") + "  " + m.styles.muted.Render(right)
}

func (m *Model) renderSignIn() string {
	helpKeys := []key.Binding{m.keys.next, m.keys.enter, m.keys.mode}
	return fmt.Sprintf("%s\n%s", m.form.view(m.styles), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderProjectList() string {
	if m.loading && len(m.projectList.Items()) == 0 {
		return m.spinner.View() + " Loading projects..."
	}
	if len(m.projectList.Items()) == 0 {
		return m.styles.muted.Render("No projects yet. Upload one with `zipdrop projects upload <archive.zip>`.")
	}

	footer := m.help.ShortHelpView([]key.Binding{
		m.keys.enter, m.keys.toggle, m.keys.remove, m.keys.open, m.keys.refresh, m.keys.theme, m.keys.logout, m.keys.quit,
	})
	if m.confirmDelete != "" {
		footer = m.renderConfirm()
	}
	return fmt.Sprintf("%s\n\n%s", m.projectList.View(), footer)
}

func (m *Model) renderProjectDetail() string {
	if m.selected == nil {
		return m.spinner.View() + " Loading project..."
	}

	body := m.styles.title.Render(m.selected.Name) + "\n" + formatter.ProjectDetail(*m.selected, m.now())
	footer := m.help.ShortHelpView([]key.Binding{
		m.keys.back, m.keys.toggle, m.keys.remove, m.keys.open, m.keys.refresh, m.keys.quit,
	})
	if m.confirmDelete != "" {
		footer = m.renderConfirm()
	}
	return fmt.Sprintf("%s\n%s", body, footer)
}

func (m *Model) renderConfirm() string {
	name := m.confirmDelete
	for _, item := range m.projectList.Items() {
		if pi, ok := item.(projectItem); ok && pi.project.ID == m.confirmDelete {
			name = pi.project.Name
		}
	}
	prompt := m.styles.warn.Render(fmt.Sprintf("Delete '%s'? This cannot be undone.", name))
	return prompt + "\n" + m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
}

func (m *Model) renderToasts() string {
	lines := make([]string, len(m.toasts))
	for i, t := range m.toasts {
		lines[i] = m.styles.Toast(t.kind, t.message)
	}
	return strings.Join(lines, "\n")
}
