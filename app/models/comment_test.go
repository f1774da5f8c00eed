package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommentValidation(t *testing.T) {
	tests := []struct {
		name    string
		comment *Comment
		wantErr bool
	}{
		{
			name: "valid comment",
			comment: &Comment{
				PostID:    1,
				AuthorID:  2,
				Content:   "This is a valid comment",
				CreatedAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name: "missing post",
			comment: &Comment{
				AuthorID:  2,
				Content:   "This is a valid comment",
				CreatedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "empty content",
			comment: &Comment{
				PostID:    1,
				AuthorID:  2,
				Content:   "",
				CreatedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "content too long",
			comment: &Comment{
				PostID:    1,
				AuthorID:  2,
				Content:   strings.Repeat("x", 1001),
				CreatedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "zero creation time",
			comment: &Comment{
				PostID:    1,
				AuthorID:  2,
				Content:   "Valid content",
				CreatedAt: time.Time{},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.comment.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCommentBeforeCreate(t *testing.T) {
	comment := &Comment{
		PostID:   1,
		AuthorID: 2,
		Content:  "Test Comment",
	}

	assert.True(t, comment.CreatedAt.IsZero())
	comment.BeforeCreate()
	assert.False(t, comment.CreatedAt.IsZero())
}
