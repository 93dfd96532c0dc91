package flux

import (
	"fmt"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// Post actions.
const (
	LoadPostsRequest  ActionType = "LOAD_POSTS_REQUEST"
	LoadPostsSuccess  ActionType = "LOAD_POSTS_SUCCESS"
	LoadPostsFailure  ActionType = "LOAD_POSTS_FAILURE"
	CreatePostRequest ActionType = "CREATE_POST_REQUEST"
	CreatePostSuccess ActionType = "CREATE_POST_SUCCESS"
	CreatePostFailure ActionType = "CREATE_POST_FAILURE"
	LikePostRequest   ActionType = "LIKE_POST_REQUEST"
	LikePostSuccess   ActionType = "LIKE_POST_SUCCESS"
	LikePostFailure   ActionType = "LIKE_POST_FAILURE"
	UnlikePostRequest ActionType = "UNLIKE_POST_REQUEST"
	UnlikePostSuccess ActionType = "UNLIKE_POST_SUCCESS"
	UnlikePostFailure ActionType = "UNLIKE_POST_FAILURE"
	AddCommentRequest ActionType = "ADD_COMMENT_REQUEST"
	AddCommentSuccess ActionType = "ADD_COMMENT_SUCCESS"
	AddCommentFailure ActionType = "ADD_COMMENT_FAILURE"
	DeletePostRequest ActionType = "DELETE_POST_REQUEST"
	DeletePostSuccess ActionType = "DELETE_POST_SUCCESS"
	DeletePostFailure ActionType = "DELETE_POST_FAILURE"
	SelectPost        ActionType = "SELECT_POST"
	ClearError        ActionType = "CLEAR_ERROR"
)

// Auth actions.
const (
	AuthStateChanged     ActionType = "AUTH_STATE_CHANGED"
	LogoutSuccess        ActionType = "LOGOUT_SUCCESS"
	ProfileUpdateSuccess ActionType = "PROFILE_UPDATE_SUCCESS"
	AuthFailure          ActionType = "AUTH_FAILURE"
)

// CommentAdded is the payload of [AddCommentSuccess].
type CommentAdded struct {
	PostID  string         `json:"postId"`
	Comment models.Comment `json:"comment"`
}

// payloadAs asserts the action's payload. A nil payload yields the zero value.
func payloadAs[T any](action Action) (T, error) {
	var zero T
	if action.Payload == nil {
		return zero, nil
	}
	v, ok := action.Payload.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s payload is %T, want %T", shared.ErrInvalidArgument, action.Type, action.Payload, zero)
	}
	return v, nil
}
