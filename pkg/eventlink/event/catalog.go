package event

import (
	"slices"
	"sync"
	"time"
)

// Type tags. Producers and consumers agree on these out of band; the tag is
// the dispatch key carried in every Envelope.
const (
	TypeUserDataRequested        = "post.user_data.requested"
	TypeUserDataResponse         = "user.user_data.response"
	TypeInteractionDataRequested = "post.interaction_data.requested"
	TypeInteractionDataResponse  = "interaction.interaction_data.response"
	TypeCommentDataRequested     = "post.comment_data.requested"
	TypeCommentDataResponse      = "comment.comment_data.response"
	TypeBookmarkDataRequested    = "post.bookmark_data.requested"
	TypeBookmarkDataResponse     = "interaction.bookmark_data.response"
	TypePostValidationRequested  = "comment.post_validation.requested"
	TypePostValidationResponse   = "post.post_validation.response"

	TypeCommentCreated = "comment.created"
	TypeCommentDeleted = "comment.deleted"
	TypePostLiked      = "interaction.post_liked"
	TypePostUnliked    = "interaction.post_unliked"

	TypeCommentCountIncreaseCompensation = "post.compensation.comment_count_increase"
	TypeCommentCountDecreaseCompensation = "post.compensation.comment_count_decrease"
	TypeLikeCountIncreaseCompensation    = "post.compensation.like_count_increase"
	TypeLikeCountDecreaseCompensation    = "post.compensation.like_count_decrease"
)

// Interaction kinds and statuses carried by InteractionData.
const (
	InteractionLike     = "LIKE"
	InteractionBookmark = "BOOKMARK"

	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// UserData is the user module's public view of a user.
type UserData struct {
	UserID          string `json:"userId"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// InteractionData is one like or bookmark on a post.
type InteractionData struct {
	PostID            string `json:"postId"`
	UserID            string `json:"userId"`
	InteractionType   string `json:"interactionType"`
	InteractionStatus string `json:"interactionStatus"`
	ContentType       string `json:"contentType,omitempty"`
}

// Counts reports whether the interaction counts toward a post's like total.
func (d InteractionData) Counts() bool {
	return d.InteractionType == InteractionLike && d.InteractionStatus == StatusActive
}

// CommentData is one comment row.
type CommentData struct {
	CommentID string    `json:"commentId"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserDataRequested asks the user module for profiles.
type UserDataRequested struct {
	Meta
	RequestID string   `json:"requestId"`
	UserIDs   []string `json:"userIds"`
}

// NewUserDataRequested creates a UserDataRequested keyed by requestID.
func NewUserDataRequested(requestID string, userIDs []string, opts ...MetaOption) (*UserDataRequested, error) {
	meta, err := NewMeta(TypeUserDataRequested, requestID, opts...)
	if err != nil {
		return nil, err
	}
	return &UserDataRequested{Meta: meta, RequestID: requestID, UserIDs: userIDs}, nil
}

// UserDataResponse answers a UserDataRequested.
type UserDataResponse struct {
	Meta
	RequestID string     `json:"requestId"`
	Users     []UserData `json:"users"`
}

// NewUserDataResponse creates a UserDataResponse for requestID.
func NewUserDataResponse(requestID string, users []UserData, opts ...MetaOption) (*UserDataResponse, error) {
	meta, err := NewMeta(TypeUserDataResponse, requestID, opts...)
	if err != nil {
		return nil, err
	}
	return &UserDataResponse{Meta: meta, RequestID: requestID, Users: users}, nil
}

// InteractionDataRequested asks the interaction module for the interactions on posts.
type InteractionDataRequested struct {
	Meta
	RequestID   string   `json:"requestId"`
	PostIDs     []string `json:"postIds"`
	ContentType string   `json:"contentType,omitempty"`
}

// NewInteractionDataRequested creates an InteractionDataRequested keyed by requestID.
func NewInteractionDataRequested(requestID string, postIDs []string, contentType string, opts ...MetaOption) (*InteractionDataRequested, error) {
	meta, err := NewMeta(TypeInteractionDataRequested, requestID, opts...)
	if err != nil {
		return nil, err
	}
	return &InteractionDataRequested{Meta: meta, RequestID: requestID, PostIDs: postIDs, ContentType: contentType}, nil
}

// InteractionDataResponse answers an InteractionDataRequested.
type InteractionDataResponse struct {
	Meta
	RequestID    string            `json:"requestId"`
	Interactions []InteractionData `json:"interactions"`
}

// NewInteractionDataResponse creates an InteractionDataResponse for requestID.
func NewInteractionDataResponse(requestID string, interactions []InteractionData, opts ...MetaOption) (*InteractionDataResponse, error) {
	meta, err := NewMeta(TypeInteractionDataResponse, requestID, opts...)
	if err != nil {
		return nil, err
	}
	return &InteractionDataResponse{Meta: meta, RequestID: requestID, Interactions: interactions}, nil
}

// CommentDataRequested asks the comment module for the comments on posts.
type CommentDataRequested struct {
	Meta
	RequestID string   `json:"requestId"`
	PostIDs   []string `json:"postIds"`
}

// NewCommentDataRequested creates a CommentDataRequested keyed by requestID.
func NewCommentDataRequested(requestID string, postIDs []string, opts ...MetaOption) (*CommentDataRequested, error) {
	meta, err := NewMeta(TypeCommentDataRequested, requestID, opts...)
	if err != nil {
		return nil, err
	}
	return &CommentDataRequested{Meta: meta, RequestID: requestID, PostIDs: postIDs}, nil
}

// CommentDataResponse answers a CommentDataRequested.
type CommentDataResponse struct {
	Meta
	RequestID string        `json:"requestId"`
	Comments  []CommentData `json:"comments"`
}

// NewCommentDataResponse creates a CommentDataResponse for requestID.
func NewCommentDataResponse(requestID string, comments []CommentData, opts ...MetaOption) (*CommentDataResponse, error) {
	meta, err := NewMeta(TypeCommentDataResponse, requestID, opts...)
	if err != nil {
		return nil, err
	}
	return &CommentDataResponse{Meta: meta, RequestID: requestID, Comments: comments}, nil
}

// BookmarkDataRequested asks the interaction module which posts a user
// bookmarked. The bookmarking user is the event's UserID.
type BookmarkDataRequested struct {
	Meta
	RequestID   string `json:"requestId"`
	ContentType string `json:"contentType,omitempty"`
}

// NewBookmarkDataRequested creates a BookmarkDataRequested keyed by requestID.
func NewBookmarkDataRequested(requestID, userID, contentType string, opts ...MetaOption) (*BookmarkDataRequested, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Message: "must not be blank"}
	}
	meta, err := NewMeta(TypeBookmarkDataRequested, requestID, append([]MetaOption{WithUserID(userID)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &BookmarkDataRequested{Meta: meta, RequestID: requestID, ContentType: contentType}, nil
}

// BookmarkDataResponse answers a BookmarkDataRequested.
type BookmarkDataResponse struct {
	Meta
	RequestID string   `json:"requestId"`
	PostIDs   []string `json:"postIds"`
}

// NewBookmarkDataResponse creates a BookmarkDataResponse for requestID.
func NewBookmarkDataResponse(requestID string, postIDs []string, opts ...MetaOption) (*BookmarkDataResponse, error) {
	meta, err := NewMeta(TypeBookmarkDataResponse, requestID, opts...)
	if err != nil {
		return nil, err
	}
	return &BookmarkDataResponse{Meta: meta, RequestID: requestID, PostIDs: postIDs}, nil
}

// PostValidationRequested asks the post module whether a post exists.
type PostValidationRequested struct {
	Meta
	RequestID string `json:"requestId"`
	PostID    string `json:"postId"`
}

// NewPostValidationRequested creates a PostValidationRequested keyed by requestID.
func NewPostValidationRequested(requestID, postID string, opts ...MetaOption) (*PostValidationRequested, error) {
	meta, err := NewMeta(TypePostValidationRequested, requestID, opts...)
	if err != nil {
		return nil, err
	}
	return &PostValidationRequested{Meta: meta, RequestID: requestID, PostID: postID}, nil
}

// PostValidationResponse answers a PostValidationRequested.
type PostValidationResponse struct {
	Meta
	RequestID string `json:"requestId"`
	PostID    string `json:"postId"`
	Valid     bool   `json:"valid"`
}

// NewPostValidationResponse creates a PostValidationResponse for requestID.
func NewPostValidationResponse(requestID, postID string, valid bool, opts ...MetaOption) (*PostValidationResponse, error) {
	meta, err := NewMeta(TypePostValidationResponse, requestID, opts...)
	if err != nil {
		return nil, err
	}
	return &PostValidationResponse{Meta: meta, RequestID: requestID, PostID: postID, Valid: valid}, nil
}

// CommentCreated is published by the comment module after a comment is stored.
type CommentCreated struct {
	Meta
	CommentID string `json:"commentId"`
	PostID    string `json:"postId"`
}

// NewCommentCreated creates a CommentCreated aggregated on postID.
func NewCommentCreated(commentID, postID, userID string, opts ...MetaOption) (*CommentCreated, error) {
	meta, err := NewMeta(TypeCommentCreated, postID, append([]MetaOption{WithUserID(userID)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &CommentCreated{Meta: meta, CommentID: commentID, PostID: postID}, nil
}

// CommentDeleted is published by the comment module after a comment is removed.
type CommentDeleted struct {
	Meta
	CommentID string `json:"commentId"`
	PostID    string `json:"postId"`
}

// NewCommentDeleted creates a CommentDeleted aggregated on postID.
func NewCommentDeleted(commentID, postID, userID string, opts ...MetaOption) (*CommentDeleted, error) {
	meta, err := NewMeta(TypeCommentDeleted, postID, append([]MetaOption{WithUserID(userID)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &CommentDeleted{Meta: meta, CommentID: commentID, PostID: postID}, nil
}

// PostLiked is published by the interaction module when a like becomes active.
type PostLiked struct {
	Meta
	PostID string `json:"postId"`
}

// NewPostLiked creates a PostLiked aggregated on postID.
func NewPostLiked(postID, userID string, opts ...MetaOption) (*PostLiked, error) {
	meta, err := NewMeta(TypePostLiked, postID, append([]MetaOption{WithUserID(userID)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &PostLiked{Meta: meta, PostID: postID}, nil
}

// PostUnliked is published by the interaction module when a like is withdrawn.
type PostUnliked struct {
	Meta
	PostID string `json:"postId"`
}

// NewPostUnliked creates a PostUnliked aggregated on postID.
func NewPostUnliked(postID, userID string, opts ...MetaOption) (*PostUnliked, error) {
	meta, err := NewMeta(TypePostUnliked, postID, append([]MetaOption{WithUserID(userID)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &PostUnliked{Meta: meta, PostID: postID}, nil
}

// Compensation is the body shared by every compensation variant. The
// direction and counter are implied by the variant's tag.
type Compensation struct {
	TransactionID     string `json:"transactionId"`
	OriginalEventID   string `json:"originalEventId"`
	TargetAggregateID string `json:"targetAggregateId"`
}

// Details returns the compensation body.
func (c Compensation) Details() Compensation { return c }

// CompensationEvent is implemented by the four compensation variants.
type CompensationEvent interface {
	DomainEvent
	Details() Compensation
}

// CommentCountIncreaseCompensation undoes a comment count increase.
type CommentCountIncreaseCompensation struct {
	Meta
	Compensation
}

// CommentCountDecreaseCompensation undoes a comment count decrease.
type CommentCountDecreaseCompensation struct {
	Meta
	Compensation
}

// LikeCountIncreaseCompensation undoes a like count increase.
type LikeCountIncreaseCompensation struct {
	Meta
	Compensation
}

// LikeCountDecreaseCompensation undoes a like count decrease.
type LikeCountDecreaseCompensation struct {
	Meta
	Compensation
}

// NewCompensationEvent creates the compensation variant identified by tag,
// aggregated on the target post.
func NewCompensationEvent(tag string, c Compensation, opts ...MetaOption) (CompensationEvent, error) {
	if c.TransactionID == "" {
		return nil, &ValidationError{Field: "transactionId", Message: "must not be blank"}
	}
	meta, err := NewMeta(tag, c.TargetAggregateID, opts...)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TypeCommentCountIncreaseCompensation:
		return &CommentCountIncreaseCompensation{Meta: meta, Compensation: c}, nil
	case TypeCommentCountDecreaseCompensation:
		return &CommentCountDecreaseCompensation{Meta: meta, Compensation: c}, nil
	case TypeLikeCountIncreaseCompensation:
		return &LikeCountIncreaseCompensation{Meta: meta, Compensation: c}, nil
	case TypeLikeCountDecreaseCompensation:
		return &LikeCountDecreaseCompensation{Meta: meta, Compensation: c}, nil
	default:
		return nil, &ValidationError{Field: "eventType", Message: "not a compensation tag: " + tag}
	}
}

// Factory returns a zero value of a variant, ready to be decoded into.
type Factory func() DomainEvent

// Catalog maps type tags to the variants they decode to.
// A Catalog is read-only once constructed.
type Catalog struct {
	factories map[string]Factory
}

// NewCatalog builds a catalog from the given tag table.
func NewCatalog(factories map[string]Factory) *Catalog {
	c := &Catalog{factories: make(map[string]Factory, len(factories))}
	for tag, f := range factories {
		c.factories[tag] = f
	}
	return c
}

// New returns a zero value for tag.
func (c *Catalog) New(tag string) (DomainEvent, bool) {
	f, ok := c.factories[tag]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Has reports whether tag is known.
func (c *Catalog) Has(tag string) bool {
	_, ok := c.factories[tag]
	return ok
}

// Tags returns every known tag, sorted.
func (c *Catalog) Tags() []string {
	tags := make([]string, 0, len(c.factories))
	for tag := range c.factories {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Len returns the number of known tags.
func (c *Catalog) Len() int {
	return len(c.factories)
}

func factoryOf[T any, PT interface {
	*T
	DomainEvent
}]() Factory {
	return func() DomainEvent { return PT(new(T)) }
}

// DefaultCatalog returns the shared catalog of every variant in this package.
var DefaultCatalog = sync.OnceValue(func() *Catalog {
	return NewCatalog(map[string]Factory{
		TypeUserDataRequested:        factoryOf[UserDataRequested](),
		TypeUserDataResponse:         factoryOf[UserDataResponse](),
		TypeInteractionDataRequested: factoryOf[InteractionDataRequested](),
		TypeInteractionDataResponse:  factoryOf[InteractionDataResponse](),
		TypeCommentDataRequested:     factoryOf[CommentDataRequested](),
		TypeCommentDataResponse:      factoryOf[CommentDataResponse](),
		TypeBookmarkDataRequested:    factoryOf[BookmarkDataRequested](),
		TypeBookmarkDataResponse:     factoryOf[BookmarkDataResponse](),
		TypePostValidationRequested:  factoryOf[PostValidationRequested](),
		TypePostValidationResponse:   factoryOf[PostValidationResponse](),

		TypeCommentCreated: factoryOf[CommentCreated](),
		TypeCommentDeleted: factoryOf[CommentDeleted](),
		TypePostLiked:      factoryOf[PostLiked](),
		TypePostUnliked:    factoryOf[PostUnliked](),

		TypeCommentCountIncreaseCompensation: factoryOf[CommentCountIncreaseCompensation](),
		TypeCommentCountDecreaseCompensation: factoryOf[CommentCountDecreaseCompensation](),
		TypeLikeCountIncreaseCompensation:    factoryOf[LikeCountIncreaseCompensation](),
		TypeLikeCountDecreaseCompensation:    factoryOf[LikeCountDecreaseCompensation](),
	})
})
