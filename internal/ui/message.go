package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/zipdrop/internal/gateway"
	"github.com/desertthunder/zipdrop/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProjectsFetched MsgKind = iota
	MsgProjectFetched
	MsgAuthenticated
	MsgLoggedOut
	MsgToggled
	MsgDeleted
	MsgOpened
	MsgNotice
	MsgNavigate
	MsgToastExpired
)

type projectsResult struct {
	projects []models.Project
	err      error
}

type projectResult struct {
	project *models.Project
	err     error
}

type deleteResult struct {
	id  string
	err error
}

type notice struct {
	kind    gateway.NoticeKind
	message string
}

// projectsFetchedMsg is the constructor for [MsgProjectsFetched]
func projectsFetchedMsg(projects []models.Project, err error) Msg {
	return Msg{kind: MsgProjectsFetched, data: projectsResult{projects, err}}
}

// projectFetchedMsg is the constructor for [MsgProjectFetched]
func projectFetchedMsg(project *models.Project, err error) Msg {
	return Msg{kind: MsgProjectFetched, data: projectResult{project, err}}
}

// authenticatedMsg is the constructor for [MsgAuthenticated]
func authenticatedMsg(err error) Msg {
	return Msg{kind: MsgAuthenticated, data: err}
}

func loggedOutMsg() Msg {
	return Msg{kind: MsgLoggedOut}
}

// toggledMsg is the constructor for [MsgToggled]
func toggledMsg(project *models.Project, err error) Msg {
	return Msg{kind: MsgToggled, data: projectResult{project, err}}
}

// deletedMsg is the constructor for [MsgDeleted]
func deletedMsg(id string, err error) Msg {
	return Msg{kind: MsgDeleted, data: deleteResult{id, err}}
}

// openedMsg is the constructor for [MsgOpened]
func openedMsg(err error) Msg {
	return Msg{kind: MsgOpened, data: err}
}

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(kind gateway.NoticeKind, message string) Msg {
	return Msg{kind: MsgNotice, data: notice{kind, message}}
}

// navigateMsg is the constructor for [MsgNavigate]
func navigateMsg(view ViewState) Msg {
	return Msg{kind: MsgNavigate, data: view}
}

func toastExpiredMsg(id string) func(time.Time) tea.Msg {
	return func(time.Time) tea.Msg {
		return Msg{kind: MsgToastExpired, data: id}
	}
}
