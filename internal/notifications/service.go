package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service defines the operator notification feed.
type Service interface {
	Record(ctx context.Context, input RecordInput) (bool, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// RecordInput describes a notification derived from one domain event.
type RecordInput struct {
	EventID string
	Type    enums.NotificationType
	Title   string
	Message string
	Link    string
}

type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// NotificationDTO is the API view of a notification.
type NotificationDTO struct {
	ID        int64      `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      *string    `json:"link,omitempty"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items      []NotificationDTO `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Record stores the notification once per event id. It reports whether a new
// row was written.
func (s *service) Record(ctx context.Context, input RecordInput) (bool, error) {
	if strings.TrimSpace(input.EventID) == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	if !input.Type.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type")
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Message) == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "title and message are required")
	}
	row := &models.Notification{
		EventID: input.EventID,
		Type:    input.Type,
		Title:   strings.TrimSpace(input.Title),
		Message: strings.TrimSpace(input.Message),
	}
	if link := strings.TrimSpace(input.Link); link != "" {
		row.Link = &link
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record notification")
	}
	return created, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var beforeID int64
	if cursor != nil {
		beforeID = cursor.ID
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, beforeID, pagination.LimitWithBuffer(params.Limit), params.UnreadOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	result := &ListResult{Items: make([]NotificationDTO, 0, limit)}
	if len(rows) > limit {
		rows = rows[:limit]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{ID: rows[len(rows)-1].ID})
	}
	for _, row := range rows {
		result.Items = append(result.Items, NotificationDTO{
			ID:        row.ID,
			Type:      string(row.Type),
			Title:     row.Title,
			Message:   row.Message,
			Link:      row.Link,
			Read:      row.ReadAt != nil,
			ReadAt:    row.ReadAt,
			CreatedAt: row.CreatedAt,
		})
	}
	return result, nil
}

func (s *service) MarkRead(ctx context.Context, id int64) error {
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	result, err := s.repo.MarkRead(ctx, id, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
