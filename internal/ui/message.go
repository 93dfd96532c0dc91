package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/soundpost/internal/models"
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
	MsgStoreChanged MsgKind = iota
	MsgPlayerChanged
	MsgLikeDone
	MsgCommentDone
	MsgPostCreated
	MsgPostDeleted
	MsgSearchDone
	MsgPlaybackFailed
)

type likeResult struct {
	postID string
	err    error
}

type commentResult struct {
	postID  string
	comment *models.Comment
	err     error
}

type searchResult struct {
	result *models.SearchResult
	err    error
}

// storeChangedMsg is the constructor for [MsgStoreChanged]
func storeChangedMsg() Msg {
	return Msg{kind: MsgStoreChanged}
}

// playerChangedMsg is the constructor for [MsgPlayerChanged]
func playerChangedMsg(state models.AudioPlayerState) Msg {
	return Msg{kind: MsgPlayerChanged, data: state}
}

// likeDoneMsg is the constructor for [MsgLikeDone]
func likeDoneMsg(postID string, err error) Msg {
	return Msg{kind: MsgLikeDone, data: likeResult{postID, err}}
}

// commentDoneMsg is the constructor for [MsgCommentDone]
func commentDoneMsg(postID string, comment *models.Comment, err error) Msg {
	return Msg{kind: MsgCommentDone, data: commentResult{postID, comment, err}}
}

// postCreatedMsg is the constructor for [MsgPostCreated]. A nil post means the store holds the error.
func postCreatedMsg(post *models.Post) Msg {
	return Msg{kind: MsgPostCreated, data: post}
}

// postDeletedMsg is the constructor for [MsgPostDeleted]
func postDeletedMsg(postID string, err error) Msg {
	return Msg{kind: MsgPostDeleted, data: likeResult{postID, err}}
}

// searchDoneMsg is the constructor for [MsgSearchDone]
func searchDoneMsg(result *models.SearchResult, err error) Msg {
	return Msg{kind: MsgSearchDone, data: searchResult{result, err}}
}

// playbackFailedMsg is the constructor for [MsgPlaybackFailed]
func playbackFailedMsg(err error) Msg {
	return Msg{kind: MsgPlaybackFailed, data: err}
}
