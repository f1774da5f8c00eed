package repositories

import (
	"time"

	"rightsnet/app/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id int) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	Update(user *models.User) error
	List(limit, offset int) ([]*models.User, error)
	CountByCountry() (map[string]int, error)
}

// PostFilter narrows a feed listing. Zero values match everything, except
// that PublicOnly restricts to posts outside any community.
type PostFilter struct {
	CommunityID int
	PublicOnly  bool
	CountryCode string
	AuthorID    int
	Tag         string
}

// PostRepository defines the interface for post data access
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id int) (*models.Post, error)
	List(filter PostFilter, limit, offset int) ([]*models.Post, error)
	Update(post *models.Post) error
	AdjustCounters(id, likeDelta, commentDelta int) (*models.Post, error)
	ReleaseCommunity(communityID int) (int, error)
	Delete(id int) error
	CountByCountry() (map[string]int, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(comment *models.Comment) error
	GetByID(id int) (*models.Comment, error)
	ListByPost(postID int) ([]*models.Comment, error)
	Update(comment *models.Comment) error
	Delete(id int) error
	DeleteByPost(postID int) error
}

// LikeRepository defines the interface for post likes
type LikeRepository interface {
	Add(like *models.Like) error
	Remove(postID, userID int) error
	Exists(postID, userID int) (bool, error)
	DeleteByPost(postID int) error
}

// ConversationRepository defines the interface for chat conversations
type ConversationRepository interface {
	Create(conv *models.Conversation) error
	GetByID(id int) (*models.Conversation, error)
	FindDirect(userA, userB int) (*models.Conversation, error)
	ListForUser(userID int) ([]*models.Conversation, error)
	Touch(id int, at time.Time) (*models.Conversation, error)
	ChangeMembers(id int, change func(*models.Conversation) bool) (*models.Conversation, error)
	Delete(id int) error
}

// MessageRepository defines the interface for chat messages
type MessageRepository interface {
	Create(msg *models.Message) error
	GetByID(conversationID, id int) (*models.Message, error)
	ListByConversation(conversationID, beforeID, limit int) ([]*models.Message, error)
	Update(msg *models.Message) error
	Delete(conversationID, id int) error
	DeleteByConversation(conversationID int) error
}

// CommunityFilter narrows a community listing.
type CommunityFilter struct {
	CountryCode string
	Query       string
}

// CommunityRepository defines the interface for communities
type CommunityRepository interface {
	Create(community *models.Community) error
	GetByID(id int) (*models.Community, error)
	GetBySlug(slug string) (*models.Community, error)
	List(filter CommunityFilter, limit, offset int) ([]*models.Community, error)
	Update(community *models.Community) error
	AdjustMemberCount(id, delta int) (*models.Community, error)
	Delete(id int) error
	CountByCountry() (map[string]int, error)
}

// MembershipRepository defines the interface for community memberships
type MembershipRepository interface {
	Add(m *models.Membership) error
	Get(communityID, userID int) (*models.Membership, error)
	Update(m *models.Membership) error
	Remove(communityID, userID int) error
	ListByCommunity(communityID int, status models.MemberStatus) ([]*models.Membership, error)
	ListByUser(userID int) ([]*models.Membership, error)
	DeleteByCommunity(communityID int) error
}

// NotificationRepository defines the interface for user notifications
type NotificationRepository interface {
	Create(n *models.Notification) error
	GetByID(id int) (*models.Notification, error)
	ListByUser(userID int, unreadOnly bool, limit, offset int) ([]*models.Notification, error)
	Update(n *models.Notification) error
	MarkAllRead(userID int) (int, error)
	CountUnread(userID int) (int, error)
}

// ListingFilter narrows a directory listing.
type ListingFilter struct {
	CountryCode string
	Category    string
	Query       string
}

// ListingRepository defines the interface for service directory listings
type ListingRepository interface {
	Create(listing *models.Listing) error
	GetByID(id int) (*models.Listing, error)
	List(filter ListingFilter, limit, offset int) ([]*models.Listing, error)
	Update(listing *models.Listing) error
	Delete(id int) error
	CountByCountry() (map[string]map[string]int, error)
}
