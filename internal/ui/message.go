package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/tasks"
)

// catalogLoadedMsg reports the optimistic listing result.
type catalogLoadedMsg struct {
	records []models.VideoRecord
	err     error
}

// progressUpdateMsg carries one reconciliation progress update.
type progressUpdateMsg tasks.ProgressUpdate

// reconcileDoneMsg reports that background verification finished.
type reconcileDoneMsg struct {
	err error
}

// reelSavedMsg reports the outcome of persisting the arrangement.
type reelSavedMsg struct {
	reel *models.Reel
	err  error
}

var (
	_ tea.Msg = catalogLoadedMsg{}
	_ tea.Msg = progressUpdateMsg{}
	_ tea.Msg = reconcileDoneMsg{}
	_ tea.Msg = reelSavedMsg{}
)
