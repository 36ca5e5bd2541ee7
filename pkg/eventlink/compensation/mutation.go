package compensation

import (
	"github.com/randalmurphal/eventlink/pkg/eventlink/counter"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
)

// Mutation is a single counter step and the compensation tag that undoes it.
type Mutation struct {
	Field            counter.Field
	Direction        counter.Direction
	CompensationType string
}

var primaryMutations = map[string]Mutation{
	event.TypeCommentCreated: {counter.FieldCommentCount, counter.Increase, event.TypeCommentCountIncreaseCompensation},
	event.TypeCommentDeleted: {counter.FieldCommentCount, counter.Decrease, event.TypeCommentCountDecreaseCompensation},
	event.TypePostLiked:      {counter.FieldLikeCount, counter.Increase, event.TypeLikeCountIncreaseCompensation},
	event.TypePostUnliked:    {counter.FieldLikeCount, counter.Decrease, event.TypeLikeCountDecreaseCompensation},
}

// MutationFor returns the counter mutation a primary event applies.
func MutationFor(eventType string) (Mutation, bool) {
	m, ok := primaryMutations[eventType]
	return m, ok
}

// PrimaryTypes returns the primary event tags in catalog order.
func PrimaryTypes() []string {
	return []string{
		event.TypeCommentCreated,
		event.TypeCommentDeleted,
		event.TypePostLiked,
		event.TypePostUnliked,
	}
}

// CompensationTypes returns the compensation tags in catalog order.
func CompensationTypes() []string {
	return []string{
		event.TypeCommentCountIncreaseCompensation,
		event.TypeCommentCountDecreaseCompensation,
		event.TypeLikeCountIncreaseCompensation,
		event.TypeLikeCountDecreaseCompensation,
	}
}

// InverseFor returns the mutation a compensation tag applies: the inverse
// of the mutation it compensates.
func InverseFor(compensationType string) (Mutation, bool) {
	for _, m := range primaryMutations {
		if m.CompensationType == compensationType {
			return Mutation{
				Field:            m.Field,
				Direction:        m.Direction.Inverse(),
				CompensationType: compensationType,
			}, true
		}
	}
	return Mutation{}, false
}
