package tableinfo

const (
	CommentsTableName = "comments"

	CommentIDColumn        = "id"
	CommentBookIDColumn    = "book_id"
	CommentParentIDColumn  = "parent_id"
	CommentUserIDColumn    = "user_id"
	CommentUserNameColumn  = "user_name"
	CommentBodyColumn      = "body"
	CommentCreatedAtColumn = "created_at"
	CommentEditedAtColumn  = "edited_at"
	CommentLikesColumn     = "likes"
	CommentDislikesColumn  = "dislikes"
)

// CommentColumns lists every comment column in scan order.
var CommentColumns = []string{
	CommentIDColumn,
	CommentBookIDColumn,
	CommentParentIDColumn,
	CommentUserIDColumn,
	CommentUserNameColumn,
	CommentBodyColumn,
	CommentCreatedAtColumn,
	CommentEditedAtColumn,
	CommentLikesColumn,
	CommentDislikesColumn,
}
