package models

import (
	"time"
)

type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	FriendshipStatusRejected FriendshipStatus = "rejected"
)

// FriendshipFilterAll disables status filtering when listing requests.
const FriendshipFilterAll = "all"

// Friendship is a directed friend request from RequesterID to ReceiverID.
type Friendship struct {
	ID          int64            `json:"id"`
	RequesterID int64            `json:"requester_id"`
	ReceiverID  int64            `json:"receiver_id"`
	Status      FriendshipStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

// FriendRequestData is the list view of a friendship with both nicknames.
type FriendRequestData struct {
	ID                int64            `json:"id"`
	RequesterID       int64            `json:"requester_id"`
	RequesterNickname string           `json:"requester_nickname"`
	ReceiverID        int64            `json:"receiver_id"`
	ReceiverNickname  string           `json:"receiver_nickname"`
	Status            FriendshipStatus `json:"status"`
}

// ParseFriendshipFilter validates a list filter. The empty string means the
// pending default, and "all" returns ok with an empty status.
func ParseFriendshipFilter(raw string) (status FriendshipStatus, all bool, ok bool) {
	switch raw {
	case "":
		return FriendshipStatusPending, false, true
	case FriendshipFilterAll:
		return "", true, true
	case string(FriendshipStatusPending), string(FriendshipStatusAccepted), string(FriendshipStatusRejected):
		return FriendshipStatus(raw), false, true
	default:
		return "", false, false
	}
}
