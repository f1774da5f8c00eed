package models

import (
	"time"

	"rightsnet/app/countries"
)

// AccountType distinguishes individual advocates from organizations that may
// publish service directory listings.
type AccountType string

const (
	AccountIndividual   AccountType = "individual"
	AccountOrganization AccountType = "organization"
)

// User is a registered member of the network.
type User struct {
	ID           int         `json:"id"`
	Email        string      `json:"email" validate:"required,email,max=254"`
	PasswordHash string      `json:"-" validate:"-"`
	Username     string      `json:"username" validate:"required,username"`
	DisplayName  string      `json:"display_name" validate:"max=80"`
	Bio          string      `json:"bio" validate:"max=1000"`
	CountryCode  string      `json:"country_code" validate:"omitempty,country"`
	AccountType  AccountType `json:"account_type" validate:"required,oneof=individual organization"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Post is an entry in the social feed. CommunityID is zero for the public feed.
type Post struct {
	ID           int        `json:"id"`
	AuthorID     int        `json:"author_id" validate:"required,gt=0"`
	CommunityID  int        `json:"community_id" validate:"gte=0"`
	CountryCode  string     `json:"country_code" validate:"omitempty,country"`
	Content      string     `json:"content" validate:"required,min=1,max=5000"`
	MediaURL     string     `json:"media_url,omitempty" validate:"omitempty,url,max=2048"`
	Tags         []string   `json:"tags,omitempty" validate:"max=10,dive,min=1,max=32"`
	LikeCount    int        `json:"like_count" validate:"gte=0"`
	CommentCount int        `json:"comment_count" validate:"gte=0"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Comments     []*Comment `json:"comments,omitempty" validate:"-"`
}

// Comment is a reply on a post.
type Comment struct {
	ID        int       `json:"id"`
	PostID    int       `json:"post_id" validate:"required,gt=0"`
	AuthorID  int       `json:"author_id" validate:"required,gt=0"`
	Content   string    `json:"content" validate:"required,min=1,max=1000"`
	CreatedAt time.Time `json:"created_at"`
}

// Like records that a user liked a post.
type Like struct {
	PostID    int       `json:"post_id"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ConversationKind string

const (
	ConversationDirect    ConversationKind = "direct"
	ConversationCommunity ConversationKind = "community"
)

// Conversation is a chat thread, either between two users or attached to a
// community.
type Conversation struct {
	ID            int              `json:"id"`
	Kind          ConversationKind `json:"kind" validate:"required,oneof=direct community"`
	MemberIDs     []int            `json:"member_ids" validate:"min=1,dive,gt=0"`
	CommunityID   int              `json:"community_id,omitempty" validate:"gte=0"`
	Title         string           `json:"title,omitempty" validate:"max=120"`
	CreatedAt     time.Time        `json:"created_at"`
	LastMessageAt time.Time        `json:"last_message_at"`
}

// Message is a chat message. ClientNonce is chosen by the sender so an
// optimistic local copy can be matched with the stored row.
type Message struct {
	ID             int        `json:"id"`
	ConversationID int        `json:"conversation_id" validate:"required,gt=0"`
	SenderID       int        `json:"sender_id" validate:"required,gt=0"`
	Content        string     `json:"content" validate:"required,min=1,max=2000"`
	ClientNonce    string     `json:"client_nonce,omitempty" validate:"max=64"`
	CreatedAt      time.Time  `json:"created_at"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
}

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Community groups advocates around a cause, optionally tied to a country.
type Community struct {
	ID             int        `json:"id"`
	Slug           string     `json:"slug" validate:"required,max=90"`
	Name           string     `json:"name" validate:"required,min=3,max=80"`
	Description    string     `json:"description" validate:"max=2000"`
	Cause          string     `json:"cause,omitempty" validate:"max=80"`
	CountryCode    string     `json:"country_code,omitempty" validate:"omitempty,country"`
	Visibility     Visibility `json:"visibility" validate:"required,oneof=public private"`
	OwnerID        int        `json:"owner_id" validate:"required,gt=0"`
	MemberCount    int        `json:"member_count" validate:"gte=0"`
	ConversationID int        `json:"conversation_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type MemberRole string

const (
	RoleOwner     MemberRole = "owner"
	RoleModerator MemberRole = "moderator"
	RoleMember    MemberRole = "member"
)

type MemberStatus string

const (
	MemberActive  MemberStatus = "active"
	MemberPending MemberStatus = "pending"
)

// Membership links a user to a community.
type Membership struct {
	CommunityID int          `json:"community_id" validate:"required,gt=0"`
	UserID      int          `json:"user_id" validate:"required,gt=0"`
	Role        MemberRole   `json:"role" validate:"required,oneof=owner moderator member"`
	Status      MemberStatus `json:"status" validate:"required,oneof=active pending"`
	JoinedAt    time.Time    `json:"joined_at"`
}

type NotificationKind string

const (
	NotifyComment      NotificationKind = "comment"
	NotifyLike         NotificationKind = "like"
	NotifyMessage      NotificationKind = "message"
	NotifyJoinRequest  NotificationKind = "join_request"
	NotifyJoinApproved NotificationKind = "join_approved"
)

// Notification is an entry in a user's inbox.
type Notification struct {
	ID        int              `json:"id"`
	UserID    int              `json:"user_id" validate:"required,gt=0"`
	Kind      NotificationKind `json:"kind" validate:"required,oneof=comment like message join_request join_approved"`
	ActorID   int              `json:"actor_id" validate:"gte=0"`
	SubjectID int              `json:"subject_id" validate:"gte=0"`
	Message   string           `json:"message" validate:"max=280"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// Listing is a service directory entry: legal aid, shelters, medical and other
// support services available in a country.
type Listing struct {
	ID          int       `json:"id"`
	Name        string    `json:"name" yaml:"name" validate:"required,min=2,max=120"`
	Category    string    `json:"category" yaml:"category" validate:"required,oneof=legal_aid shelter medical psychosocial education advocacy other"`
	Description string    `json:"description" yaml:"description" validate:"max=4000"`
	CountryCode string    `json:"country_code" yaml:"country_code" validate:"required,country"`
	City        string    `json:"city,omitempty" yaml:"city" validate:"max=80"`
	Phone       string    `json:"phone,omitempty" yaml:"phone" validate:"max=40"`
	Email       string    `json:"email,omitempty" yaml:"email" validate:"omitempty,email"`
	Website     string    `json:"website,omitempty" yaml:"website" validate:"omitempty,url"`
	OwnerID     int       `json:"owner_id" yaml:"-" validate:"gte=0"`
	Verified    bool      `json:"verified" yaml:"-"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// ListingCategories lists the accepted Listing.Category values.
var ListingCategories = []string{"legal_aid", "shelter", "medical", "psychosocial", "education", "advocacy", "other"}

// CountryStats aggregates activity for one reference country.
type CountryStats struct {
	countries.Country
	Members            int            `json:"members"`
	Posts              int            `json:"posts"`
	Communities        int            `json:"communities"`
	Listings           int            `json:"listings"`
	ListingsByCategory map[string]int `json:"listings_by_category"`
}
