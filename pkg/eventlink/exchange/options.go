package exchange

import "log/slog"

type options struct {
	logger       *slog.Logger
	users        UserDirectory
	interactions InteractionSource
	comments     CommentSource
	bookmarks    BookmarkSource
	posts        PostDirectory
}

func applyOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures Responders.
type Option func(*options)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithUsers answers UserDataRequested from dir.
func WithUsers(dir UserDirectory) Option {
	return func(o *options) { o.users = dir }
}

// WithInteractions answers InteractionDataRequested from src.
func WithInteractions(src InteractionSource) Option {
	return func(o *options) { o.interactions = src }
}

// WithComments answers CommentDataRequested from src.
func WithComments(src CommentSource) Option {
	return func(o *options) { o.comments = src }
}

// WithBookmarks answers BookmarkDataRequested from src.
func WithBookmarks(src BookmarkSource) Option {
	return func(o *options) { o.bookmarks = src }
}

// WithPosts answers PostValidationRequested from dir.
func WithPosts(dir PostDirectory) Option {
	return func(o *options) { o.posts = dir }
}

// WithDirectory answers every request kind from d.
func WithDirectory(d *MemoryDirectory) Option {
	return func(o *options) {
		o.users = d
		o.interactions = d
		o.comments = d
		o.bookmarks = d
		o.posts = d
	}
}
