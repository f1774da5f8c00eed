package services

import (
	"errors"
	"fmt"
	"time"

	"rightsnet/app/models"
	"rightsnet/app/realtime"
	"rightsnet/app/repositories"
)

// PostInput is the payload for creating or editing a post. CommunityID and
// CountryCode are only read on create.
type PostInput struct {
	Content     string   `json:"content"`
	MediaURL    string   `json:"media_url"`
	Tags        []string `json:"tags"`
	CommunityID int      `json:"community_id"`
	CountryCode string   `json:"country_code"`
}

// PostService handles business logic for the social feed
type PostService struct {
	postRepo    repositories.PostRepository
	commentRepo repositories.CommentRepository
	likeRepo    repositories.LikeRepository
	userRepo    repositories.UserRepository
	access      *Access
	events      events
}

// NewPostService creates a new PostService
func NewPostService(postRepo repositories.PostRepository, commentRepo repositories.CommentRepository,
	likeRepo repositories.LikeRepository, userRepo repositories.UserRepository, access *Access) *PostService {
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		likeRepo:    likeRepo,
		userRepo:    userRepo,
		access:      access,
		events:      newEvents(nil, nil),
	}
}

// WithEvents attaches the realtime publisher and notifier.
func (s *PostService) WithEvents(pub Publisher, notifier Notifier) *PostService {
	s.events = newEvents(pub, notifier)
	return s
}

// CreatePost publishes a post to the public feed or a community.
func (s *PostService) CreatePost(authorID int, in PostInput) (*models.Post, error) {
	author, err := s.userRepo.GetByID(authorID)
	if err != nil {
		return nil, fmt.Errorf("author %d: %w", authorID, err)
	}

	if in.CommunityID > 0 {
		ok, err := s.access.IsActiveMember(in.CommunityID, authorID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("only members can post in community %d: %w", in.CommunityID, ErrForbidden)
		}
	}

	post := &models.Post{
		AuthorID:    authorID,
		CommunityID: in.CommunityID,
		CountryCode: normalizeCountry(in.CountryCode),
		Content:     in.Content,
		MediaURL:    in.MediaURL,
		Tags:        in.Tags,
	}
	if post.CountryCode == "" {
		post.CountryCode = author.CountryCode
	}
	post.BeforeCreate()
	if err := post.Validate(); err != nil {
		return nil, invalid(err)
	}

	if err := s.postRepo.Create(post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	s.publish(post, realtime.Insert, post, nil)
	return post, nil
}

// publish sends a post change to the topic whose listing shows the post:
// the feed for feed posts, the community topic for community posts.
func (s *PostService) publish(post *models.Post, typ realtime.ChangeType, record, old any) {
	if post.CommunityID == 0 {
		s.events.publish(realtime.FeedTopic, realtime.TablePosts, typ, record, old)
		return
	}
	s.events.publish(realtime.CommunityTopic(post.CommunityID), realtime.TablePosts, typ, record, old)
}

// GetPost retrieves a post by ID with its comments
func (s *PostService) GetPost(viewerID, id int) (*models.Post, error) {
	post, err := s.postRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if post.CommunityID > 0 {
		if err := s.access.CanView(post.CommunityID, viewerID); err != nil {
			return nil, err
		}
	}

	comments, err := s.commentRepo.ListByPost(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	post.Comments = comments
	return post, nil
}

// ListFeed retrieves a paginated feed. Without a community filter only
// public feed posts are returned.
func (s *PostService) ListFeed(viewerID int, filter repositories.PostFilter, page, perPage int) ([]*models.Post, error) {
	if filter.CommunityID > 0 {
		if err := s.access.CanView(filter.CommunityID, viewerID); err != nil {
			return nil, err
		}
	} else {
		filter.PublicOnly = true
	}
	filter.CountryCode = normalizeCountry(filter.CountryCode)
	limit, offset := pageBounds(page, perPage)
	posts, err := s.postRepo.List(filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

// UpdatePost edits a post. Only the author may edit.
func (s *PostService) UpdatePost(actorID, id int, in PostInput) (*models.Post, error) {
	existing, err := s.postRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != actorID {
		return nil, fmt.Errorf("only the author can edit post %d: %w", id, ErrForbidden)
	}

	post := *existing
	post.Content = in.Content
	post.MediaURL = in.MediaURL
	post.Tags = models.NormalizeTags(in.Tags)
	post.UpdatedAt = time.Now().UTC()
	if err := post.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.postRepo.Update(&post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	s.publish(&post, realtime.Update, &post, existing)
	return &post, nil
}

// DeletePost deletes a post with its comments and likes. The author or a
// moderator of the post's community may delete.
func (s *PostService) DeletePost(actorID, id int) error {
	post, err := s.postRepo.GetByID(id)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID {
		allowed := false
		if post.CommunityID > 0 {
			if allowed, err = s.access.CanModerate(post.CommunityID, actorID); err != nil {
				return err
			}
		}
		if !allowed {
			return fmt.Errorf("cannot delete post %d: %w", id, ErrForbidden)
		}
	}

	if err := s.commentRepo.DeleteByPost(id); err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	if err := s.likeRepo.DeleteByPost(id); err != nil {
		return fmt.Errorf("failed to delete likes: %w", err)
	}
	if err := s.postRepo.Delete(id); err != nil {
		return err
	}
	s.publish(post, realtime.Delete, nil, post)
	return nil
}

// Like records a like by actorID and notifies the author.
func (s *PostService) Like(actorID, postID int) (*models.Post, error) {
	post, err := s.GetPost(actorID, postID)
	if err != nil {
		return nil, err
	}
	like := &models.Like{PostID: postID, UserID: actorID, CreatedAt: time.Now().UTC()}
	if err := s.likeRepo.Add(like); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, fmt.Errorf("post %d already liked: %w", postID, err)
		}
		return nil, fmt.Errorf("failed to like post: %w", err)
	}
	updated, err := s.postRepo.AdjustCounters(postID, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to count like: %w", err)
	}
	s.publish(updated, realtime.Update, updated, nil)
	s.events.notifyUser(post.AuthorID, models.NotifyLike, actorID, postID, "liked your post")
	return updated, nil
}

// Unlike removes a like by actorID.
func (s *PostService) Unlike(actorID, postID int) (*models.Post, error) {
	if err := s.likeRepo.Remove(postID, actorID); err != nil {
		return nil, err
	}
	updated, err := s.postRepo.AdjustCounters(postID, -1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to count unlike: %w", err)
	}
	s.publish(updated, realtime.Update, updated, nil)
	return updated, nil
}

// HasLiked reports whether userID liked postID. The post must be visible
// to the user.
func (s *PostService) HasLiked(userID, postID int) (bool, error) {
	if _, err := s.GetPost(userID, postID); err != nil {
		return false, err
	}
	return s.likeRepo.Exists(postID, userID)
}
