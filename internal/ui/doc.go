// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides the two-panel curation workflow:
//  1. [LoadingView] : Fetch the folder listing from the storage provider
//  2. [ArrangeView] : Move videos between "Your Videos" and "Selects" and order the selects
//  3. [SaveView] : Confirm saving the arrangement as a reel
//  4. [ResultView] : Display the saved reel summary
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the LibraryEngine, so probe verdicts
// and durations upgrade rows in place while the user keeps arranging.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, J/K, x, s, q) with contextual
// help displayed via charmbracelet/bubbles/help. Mouse drags are resolved against the
// rendered panel geometry with the same collision strategies the keyboard path uses.
package ui
