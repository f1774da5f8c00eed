package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rightsnet/app/models"
	"rightsnet/app/realtime"
	"rightsnet/app/repositories"
)

// CommunityInput is the payload for creating or updating a community.
type CommunityInput struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Cause       string            `json:"cause"`
	CountryCode string            `json:"country_code"`
	Visibility  models.Visibility `json:"visibility"`
}

// Joined pairs one of a user's memberships with its community.
type Joined struct {
	Community  *models.Community  `json:"community"`
	Membership *models.Membership `json:"membership"`
}

// CommunityService handles communities and their memberships
type CommunityService struct {
	communityRepo  repositories.CommunityRepository
	membershipRepo repositories.MembershipRepository
	convRepo       repositories.ConversationRepository
	messageRepo    repositories.MessageRepository
	postRepo       repositories.PostRepository
	commentRepo    repositories.CommentRepository
	likeRepo       repositories.LikeRepository
	access         *Access
	events         events
}

// NewCommunityService creates a new CommunityService
func NewCommunityService(communityRepo repositories.CommunityRepository, membershipRepo repositories.MembershipRepository,
	convRepo repositories.ConversationRepository, messageRepo repositories.MessageRepository,
	postRepo repositories.PostRepository, commentRepo repositories.CommentRepository,
	likeRepo repositories.LikeRepository, access *Access) *CommunityService {
	return &CommunityService{
		communityRepo:  communityRepo,
		membershipRepo: membershipRepo,
		convRepo:       convRepo,
		messageRepo:    messageRepo,
		postRepo:       postRepo,
		commentRepo:    commentRepo,
		likeRepo:       likeRepo,
		access:         access,
		events:         newEvents(nil, nil),
	}
}

// WithEvents attaches the realtime publisher and notifier.
func (s *CommunityService) WithEvents(pub Publisher, notifier Notifier) *CommunityService {
	s.events = newEvents(pub, notifier)
	return s
}

// Create founds a community owned by actorID, with its group conversation.
func (s *CommunityService) Create(actorID int, in CommunityInput) (*models.Community, error) {
	c := &models.Community{
		Name:        in.Name,
		Description: in.Description,
		Cause:       in.Cause,
		CountryCode: in.CountryCode,
		Visibility:  in.Visibility,
		OwnerID:     actorID,
	}
	c.CountryCode = normalizeCountry(c.CountryCode)
	c.BeforeCreate()
	if c.Slug == "" {
		return nil, invalidf("name: must contain letters or digits")
	}
	if err := c.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.communityRepo.Create(c); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, fmt.Errorf("community %q already exists: %w", c.Slug, err)
		}
		return nil, fmt.Errorf("failed to create community: %w", err)
	}

	conv := &models.Conversation{
		Kind:        models.ConversationCommunity,
		CommunityID: c.ID,
		MemberIDs:   []int{actorID},
		Title:       c.Name,
	}
	conv.BeforeCreate()
	if err := s.convRepo.Create(conv); err != nil {
		return nil, fmt.Errorf("failed to create community conversation: %w", err)
	}
	c.ConversationID = conv.ID
	if err := s.communityRepo.Update(c); err != nil {
		return nil, fmt.Errorf("failed to link conversation: %w", err)
	}

	owner := &models.Membership{
		CommunityID: c.ID,
		UserID:      actorID,
		Role:        models.RoleOwner,
		Status:      models.MemberActive,
		JoinedAt:    c.CreatedAt,
	}
	if err := s.membershipRepo.Add(owner); err != nil {
		return nil, fmt.Errorf("failed to add owner: %w", err)
	}
	updated, err := s.communityRepo.AdjustMemberCount(c.ID, 1)
	if err != nil {
		return nil, err
	}

	if updated.IsPublic() {
		s.events.publish(realtime.FeedTopic, realtime.TableCommunities, realtime.Insert, updated, nil)
	}
	return updated, nil
}

// Get retrieves a community by ID
func (s *CommunityService) Get(id int) (*models.Community, error) {
	return s.communityRepo.GetByID(id)
}

// GetBySlug retrieves a community by slug
func (s *CommunityService) GetBySlug(slug string) (*models.Community, error) {
	return s.communityRepo.GetBySlug(slug)
}

// List retrieves a paginated list of communities, newest first
func (s *CommunityService) List(filter repositories.CommunityFilter, page, perPage int) ([]*models.Community, error) {
	filter.CountryCode = normalizeCountry(filter.CountryCode)
	limit, offset := pageBounds(page, perPage)
	out, err := s.communityRepo.List(filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}
	if out == nil {
		out = []*models.Community{}
	}
	return out, nil
}

func (s *CommunityService) requireModerator(communityID, actorID int) error {
	ok, err := s.access.CanModerate(communityID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("moderators only in community %d: %w", communityID, ErrForbidden)
	}
	return nil
}

// Update edits the community's details. Owners and moderators may edit.
func (s *CommunityService) Update(actorID, id int, in CommunityInput) (*models.Community, error) {
	existing, err := s.communityRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.requireModerator(id, actorID); err != nil {
		return nil, err
	}

	c := *existing
	c.Name = in.Name
	c.Description = in.Description
	c.Cause = in.Cause
	c.CountryCode = normalizeCountry(in.CountryCode)
	if in.Visibility != "" {
		c.Visibility = in.Visibility
	}
	if err := c.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.communityRepo.Update(&c); err != nil {
		return nil, fmt.Errorf("failed to update community: %w", err)
	}
	s.events.publish(realtime.CommunityTopic(id), realtime.TableCommunities, realtime.Update, &c, existing)
	return &c, nil
}

// Delete removes a community with its memberships and chat. Posts of a
// public community move to the public feed; posts of a private one are
// deleted with their comments and likes. Only the owner may delete.
func (s *CommunityService) Delete(actorID, id int) error {
	c, err := s.communityRepo.GetByID(id)
	if err != nil {
		return err
	}
	if c.OwnerID != actorID {
		return fmt.Errorf("only the owner can delete community %d: %w", id, ErrForbidden)
	}

	if err := s.membershipRepo.DeleteByCommunity(id); err != nil {
		return fmt.Errorf("failed to delete memberships: %w", err)
	}
	if c.ConversationID > 0 {
		if err := s.messageRepo.DeleteByConversation(c.ConversationID); err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := s.convRepo.Delete(c.ConversationID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
	}
	if c.IsPublic() {
		if _, err := s.postRepo.ReleaseCommunity(id); err != nil {
			return fmt.Errorf("failed to move community posts: %w", err)
		}
	} else if err := s.purgePosts(id); err != nil {
		return err
	}
	if err := s.communityRepo.Delete(id); err != nil {
		return err
	}
	s.events.publish(realtime.CommunityTopic(id), realtime.TableCommunities, realtime.Delete, nil, c)
	return nil
}

func (s *CommunityService) purgePosts(communityID int) error {
	for {
		posts, err := s.postRepo.List(repositories.PostFilter{CommunityID: communityID}, 100, 0)
		if err != nil {
			return fmt.Errorf("failed to list community posts: %w", err)
		}
		if len(posts) == 0 {
			return nil
		}
		for _, p := range posts {
			if err := s.commentRepo.DeleteByPost(p.ID); err != nil {
				return fmt.Errorf("failed to delete comments of post %d: %w", p.ID, err)
			}
			if err := s.likeRepo.DeleteByPost(p.ID); err != nil {
				return fmt.Errorf("failed to delete likes of post %d: %w", p.ID, err)
			}
			if err := s.postRepo.Delete(p.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("failed to delete post %d: %w", p.ID, err)
			}
		}
	}
}

// Join adds actorID to a community. Public communities accept at once;
// private ones record a pending request for the moderators.
func (s *CommunityService) Join(actorID, id int) (*models.Membership, error) {
	c, err := s.communityRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	m := &models.Membership{
		CommunityID: id,
		UserID:      actorID,
		Role:        models.RoleMember,
		Status:      models.MemberPending,
		JoinedAt:    time.Now().UTC(),
	}
	if c.IsPublic() {
		m.Status = models.MemberActive
	}
	if err := s.membershipRepo.Add(m); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, fmt.Errorf("already a member of community %d: %w", id, err)
		}
		return nil, fmt.Errorf("failed to join: %w", err)
	}

	if m.IsActive() {
		if err := s.activate(c, actorID); err != nil {
			return nil, err
		}
	} else {
		s.notifyModerators(c, actorID)
	}
	s.events.publish(realtime.CommunityTopic(id), realtime.TableMemberships, realtime.Insert, m, nil)
	return m, nil
}

// activate counts a new active member and adds them to the group chat.
func (s *CommunityService) activate(c *models.Community, userID int) error {
	if _, err := s.communityRepo.AdjustMemberCount(c.ID, 1); err != nil {
		return fmt.Errorf("failed to count member: %w", err)
	}
	return s.updateChatMembers(c, func(conv *models.Conversation) bool { return conv.AddMember(userID) })
}

func (s *CommunityService) updateChatMembers(c *models.Community, change func(*models.Conversation) bool) error {
	if c.ConversationID == 0 {
		return nil
	}
	_, err := s.convRepo.ChangeMembers(c.ConversationID, change)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update chat members: %w", err)
	}
	return nil
}

func (s *CommunityService) notifyModerators(c *models.Community, requesterID int) {
	members, err := s.membershipRepo.ListByCommunity(c.ID, models.MemberActive)
	if err != nil {
		slog.Warn("could not list moderators", "community_id", c.ID, "error", err)
		return
	}
	for _, m := range members {
		if m.CanModerate() {
			s.events.notifyUser(m.UserID, models.NotifyJoinRequest, requesterID, c.ID, "asked to join "+c.Name)
		}
	}
}

// Approve accepts a pending join request.
func (s *CommunityService) Approve(actorID, communityID, userID int) (*models.Membership, error) {
	c, err := s.communityRepo.GetByID(communityID)
	if err != nil {
		return nil, err
	}
	if err := s.requireModerator(communityID, actorID); err != nil {
		return nil, err
	}
	m, err := s.membershipRepo.Get(communityID, userID)
	if err != nil {
		return nil, err
	}
	if m.IsActive() {
		return nil, fmt.Errorf("user %d is already active: %w", userID, repositories.ErrConflict)
	}

	m.Status = models.MemberActive
	if err := s.membershipRepo.Update(m); err != nil {
		return nil, fmt.Errorf("failed to approve: %w", err)
	}
	if err := s.activate(c, userID); err != nil {
		return nil, err
	}
	s.events.publish(realtime.CommunityTopic(communityID), realtime.TableMemberships, realtime.Update, m, nil)
	s.events.notifyUser(userID, models.NotifyJoinApproved, actorID, communityID, "you joined "+c.Name)
	return m, nil
}

// Leave removes actorID from a community. The owner cannot leave.
func (s *CommunityService) Leave(actorID, id int) error {
	c, err := s.communityRepo.GetByID(id)
	if err != nil {
		return err
	}
	m, err := s.membershipRepo.Get(id, actorID)
	if err != nil {
		return err
	}
	if m.Role == models.RoleOwner {
		return fmt.Errorf("the owner cannot leave community %d: %w", id, ErrForbidden)
	}
	if err := s.membershipRepo.Remove(id, actorID); err != nil {
		return err
	}
	if m.IsActive() {
		if _, err := s.communityRepo.AdjustMemberCount(id, -1); err != nil {
			return fmt.Errorf("failed to count member: %w", err)
		}
		if err := s.updateChatMembers(c, func(conv *models.Conversation) bool { return conv.RemoveMember(actorID) }); err != nil {
			return err
		}
	}
	s.events.publish(realtime.CommunityTopic(id), realtime.TableMemberships, realtime.Delete, nil, m)
	return nil
}

// Members lists a community's memberships. Pending requests are only shown
// to moderators; private communities only to members.
func (s *CommunityService) Members(actorID, communityID int, status models.MemberStatus) ([]*models.Membership, error) {
	if err := s.access.CanView(communityID, actorID); err != nil {
		return nil, err
	}
	if status != models.MemberActive {
		if err := s.requireModerator(communityID, actorID); err != nil {
			return nil, err
		}
	}
	out, err := s.membershipRepo.ListByCommunity(communityID, status)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*models.Membership{}
	}
	return out, nil
}

// ForUser lists the communities actorID belongs to or asked to join.
func (s *CommunityService) ForUser(actorID int) ([]Joined, error) {
	memberships, err := s.membershipRepo.ListByUser(actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	out := make([]Joined, 0, len(memberships))
	for _, m := range memberships {
		c, err := s.communityRepo.GetByID(m.CommunityID)
		if errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Joined{Community: c, Membership: m})
	}
	return out, nil
}

// SetRole promotes or demotes an active member. Only the owner may.
func (s *CommunityService) SetRole(actorID, communityID, userID int, role models.MemberRole) (*models.Membership, error) {
	c, err := s.communityRepo.GetByID(communityID)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != actorID {
		return nil, fmt.Errorf("only the owner can change roles: %w", ErrForbidden)
	}
	if role != models.RoleModerator && role != models.RoleMember {
		return nil, invalidf("role: must be one of moderator member")
	}
	if userID == actorID {
		return nil, invalidf("role: the owner's role cannot change")
	}
	m, err := s.membershipRepo.Get(communityID, userID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive() {
		return nil, invalidf("user %d has not been approved", userID)
	}
	m.Role = role
	if err := s.membershipRepo.Update(m); err != nil {
		return nil, fmt.Errorf("failed to set role: %w", err)
	}
	s.events.publish(realtime.CommunityTopic(communityID), realtime.TableMemberships, realtime.Update, m, nil)
	return m, nil
}
