package domain

import (
	"time"

	"github.com/google/uuid"
)

// 事件类型即线格式的 eventType 头
const (
	EventPostCreated    = "POST_CREATED"
	EventUserFollowed   = "USER_FOLLOWED"
	EventUserUnfollowed = "USER_UNFOLLOWED"
)

// Event 领域事件。aggregateId 决定消息分区：帖子事件按作者，
// 关注事件按关注方，保证单聚合内消费顺序。
type Event interface {
	ID() uuid.UUID
	EventType() string
	AggregateID() string
}

type PostCreated struct {
	EventID    uuid.UUID `json:"eventId"`
	TweetID    uuid.UUID `json:"tweetId"`
	UserID     UserID    `json:"userId"`
	Content    string    `json:"content"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewPostCreated(eventID, postID uuid.UUID, author UserID, content string) PostCreated {
	return PostCreated{EventID: eventID, TweetID: postID, UserID: author, Content: content, OccurredAt: time.Now()}
}

func (e PostCreated) ID() uuid.UUID       { return e.EventID }
func (e PostCreated) EventType() string   { return EventPostCreated }
func (e PostCreated) AggregateID() string { return e.UserID.String() }

type UserFollowed struct {
	EventID    uuid.UUID `json:"eventId"`
	FollowerID UserID    `json:"followerId"`
	FolloweeID UserID    `json:"followeeId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewUserFollowed(eventID uuid.UUID, follower, followee UserID) UserFollowed {
	return UserFollowed{EventID: eventID, FollowerID: follower, FolloweeID: followee, OccurredAt: time.Now()}
}

func (e UserFollowed) ID() uuid.UUID       { return e.EventID }
func (e UserFollowed) EventType() string   { return EventUserFollowed }
func (e UserFollowed) AggregateID() string { return e.FollowerID.String() }

type UserUnfollowed struct {
	EventID    uuid.UUID `json:"eventId"`
	FollowerID UserID    `json:"followerId"`
	FolloweeID UserID    `json:"followeeId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewUserUnfollowed(eventID uuid.UUID, follower, followee UserID) UserUnfollowed {
	return UserUnfollowed{EventID: eventID, FollowerID: follower, FolloweeID: followee, OccurredAt: time.Now()}
}

func (e UserUnfollowed) ID() uuid.UUID       { return e.EventID }
func (e UserUnfollowed) EventType() string   { return EventUserUnfollowed }
func (e UserUnfollowed) AggregateID() string { return e.FollowerID.String() }
