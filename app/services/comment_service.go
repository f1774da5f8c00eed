package services

import (
	"fmt"

	"rightsnet/app/models"
	"rightsnet/app/realtime"
	"rightsnet/app/repositories"
)

// CommentService handles business logic for comments
type CommentService struct {
	commentRepo repositories.CommentRepository
	postRepo    repositories.PostRepository
	access      *Access
	events      events
}

// NewCommentService creates a new CommentService
func NewCommentService(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository, access *Access) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		access:      access,
		events:      newEvents(nil, nil),
	}
}

// WithEvents attaches the realtime publisher and notifier.
func (s *CommentService) WithEvents(pub Publisher, notifier Notifier) *CommentService {
	s.events = newEvents(pub, notifier)
	return s
}

func (s *CommentService) visiblePost(viewerID, postID int) (*models.Post, error) {
	post, err := s.postRepo.GetByID(postID)
	if err != nil {
		return nil, fmt.Errorf("post %d: %w", postID, err)
	}
	if post.CommunityID > 0 {
		if err := s.access.CanView(post.CommunityID, viewerID); err != nil {
			return nil, err
		}
	}
	return post, nil
}

func commentTopic(post *models.Post) string {
	if post.CommunityID > 0 {
		return realtime.CommunityTopic(post.CommunityID)
	}
	return realtime.FeedTopic
}

// CreateComment adds a comment to a post and notifies the post author.
func (s *CommentService) CreateComment(actorID, postID int, content string) (*models.Comment, error) {
	post, err := s.visiblePost(actorID, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, AuthorID: actorID, Content: content}
	comment.BeforeCreate()
	if err := comment.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	if _, err := s.postRepo.AdjustCounters(postID, 0, 1); err != nil {
		return nil, fmt.Errorf("failed to count comment: %w", err)
	}

	s.events.publish(commentTopic(post), realtime.TableComments, realtime.Insert, comment, nil)
	s.events.notifyUser(post.AuthorID, models.NotifyComment, actorID, postID, "commented on your post")
	return comment, nil
}

// GetComment retrieves a comment the viewer is allowed to see.
func (s *CommentService) GetComment(viewerID, id int) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(viewerID, comment.PostID); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListPostComments retrieves all comments for a post, oldest first
func (s *CommentService) ListPostComments(viewerID, postID int) ([]*models.Comment, error) {
	if _, err := s.visiblePost(viewerID, postID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(postID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}

// UpdateComment edits a comment. Only its author may edit.
func (s *CommentService) UpdateComment(actorID, id int, content string) (*models.Comment, error) {
	existing, err := s.commentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != actorID {
		return nil, fmt.Errorf("only the author can edit comment %d: %w", id, ErrForbidden)
	}

	comment := *existing
	comment.Content = content
	if err := comment.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.commentRepo.Update(&comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	if post, err := s.postRepo.GetByID(comment.PostID); err == nil {
		s.events.publish(commentTopic(post), realtime.TableComments, realtime.Update, &comment, existing)
	}
	return &comment, nil
}

// DeleteComment removes a comment. The comment author or the post author may
// delete it.
func (s *CommentService) DeleteComment(actorID, id int) error {
	comment, err := s.commentRepo.GetByID(id)
	if err != nil {
		return err
	}
	post, err := s.postRepo.GetByID(comment.PostID)
	if err != nil {
		return fmt.Errorf("post %d: %w", comment.PostID, err)
	}
	if comment.AuthorID != actorID && post.AuthorID != actorID {
		return fmt.Errorf("cannot delete comment %d: %w", id, ErrForbidden)
	}

	if err := s.commentRepo.Delete(id); err != nil {
		return err
	}
	if _, err := s.postRepo.AdjustCounters(post.ID, 0, -1); err != nil {
		return fmt.Errorf("failed to count comment removal: %w", err)
	}
	s.events.publish(commentTopic(post), realtime.TableComments, realtime.Delete, nil, comment)
	return nil
}
