package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookcomments/internal/adapter/out/storage"
	"bookcomments/internal/model"
	"bookcomments/internal/service"
	"bookcomments/pkg/tableinfo"

	sq "github.com/Masterminds/squirrel"
)

type CommentStorage struct {
	db *sql.DB
}

func NewCommentStorage(db *sql.DB) *CommentStorage {
	return &CommentStorage{db: db}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *CommentStorage) CreateComment(ctx context.Context, c model.Comment) (model.Comment, error) {
	likes, dislikes, err := encodeVotes(c)
	if err != nil {
		return model.Comment{}, err
	}

	query, args, err := sq.
		Insert(tableinfo.CommentsTableName).
		Columns(tableinfo.CommentColumns...).
		Values(
			c.ID,
			c.BookID,
			c.ParentID,
			c.UserID,
			c.UserName,
			c.Text,
			formatTime(c.CreatedAt),
			formatTimePtr(c.EditedAt),
			likes,
			dislikes,
		).
		ToSql()
	if err != nil {
		return model.Comment{}, fmt.Errorf("%w: %v", storage.ErrBuildingQuery, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return model.Comment{}, fmt.Errorf("%w: %s", storage.ErrDuplicateID, c.ID)
		}
		return model.Comment{}, fmt.Errorf("exec insert comment: %w", err)
	}

	return c, nil
}

func (s *CommentStorage) GetCommentByID(ctx context.Context, bookID, commentID string) (model.Comment, error) {
	return getComment(ctx, s.db, bookID, commentID)
}

func (s *CommentStorage) GetCommentsByBook(ctx context.Context, bookID string) ([]model.Comment, error) {
	query, args, err := sq.
		Select(tableinfo.CommentColumns...).
		From(tableinfo.CommentsTableName).
		Where(sq.Eq{tableinfo.CommentBookIDColumn: bookID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrBuildingQuery, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec select comments: %w", err)
	}
	defer rows.Close()

	out := make([]model.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	// text timestamps with varying fraction widths do not sort lexically
	storage.SortByCreated(out)
	return out, nil
}

func (s *CommentStorage) UpdateComment(
	ctx context.Context,
	bookID, commentID string,
	fn func(model.Comment) (model.Comment, error),
) (model.Comment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Comment{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getComment(ctx, tx, bookID, commentID)
	if err != nil {
		return model.Comment{}, err
	}

	next, err := fn(cur)
	if err != nil {
		return model.Comment{}, err
	}
	next.ID, next.BookID, next.CreatedAt = cur.ID, cur.BookID, cur.CreatedAt

	likes, dislikes, err := encodeVotes(next)
	if err != nil {
		return model.Comment{}, err
	}

	query, args, err := sq.
		Update(tableinfo.CommentsTableName).
		Set(tableinfo.CommentBodyColumn, next.Text).
		Set(tableinfo.CommentEditedAtColumn, formatTimePtr(next.EditedAt)).
		Set(tableinfo.CommentLikesColumn, likes).
		Set(tableinfo.CommentDislikesColumn, dislikes).
		Where(sq.Eq{
			tableinfo.CommentBookIDColumn: bookID,
			tableinfo.CommentIDColumn:     commentID,
		}).
		ToSql()
	if err != nil {
		return model.Comment{}, fmt.Errorf("%w: %v", storage.ErrBuildingQuery, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return model.Comment{}, fmt.Errorf("exec update comment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Comment{}, fmt.Errorf("commit update comment: %w", err)
	}

	return next, nil
}

func (s *CommentStorage) DeleteComments(ctx context.Context, bookID string, commentIDs []string) ([]string, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}

	query, args, err := sq.
		Delete(tableinfo.CommentsTableName).
		Where(sq.Eq{
			tableinfo.CommentBookIDColumn: bookID,
			tableinfo.CommentIDColumn:     commentIDs,
		}).
		Suffix("RETURNING " + tableinfo.CommentIDColumn).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrBuildingQuery, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec delete comments: %w", err)
	}
	defer rows.Close()

	var removed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deleted id: %w", err)
		}
		removed = append(removed, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exec delete comments: %w", err)
	}
	return removed, nil
}

func getComment(ctx context.Context, q queryer, bookID, commentID string) (model.Comment, error) {
	query, args, err := sq.
		Select(tableinfo.CommentColumns...).
		From(tableinfo.CommentsTableName).
		Where(sq.Eq{
			tableinfo.CommentBookIDColumn: bookID,
			tableinfo.CommentIDColumn:     commentID,
		}).
		ToSql()
	if err != nil {
		return model.Comment{}, fmt.Errorf("%w: %v", storage.ErrBuildingQuery, err)
	}

	c, err := scanComment(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, service.ErrNotFound
		}
		return model.Comment{}, fmt.Errorf("exec select comment by id: %w", err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComment(row scanner) (model.Comment, error) {
	var (
		c               model.Comment
		parentID        sql.NullString
		createdAt       string
		editedAt        sql.NullString
		likes, dislikes string
	)
	if err := row.Scan(
		&c.ID,
		&c.BookID,
		&parentID,
		&c.UserID,
		&c.UserName,
		&c.Text,
		&createdAt,
		&editedAt,
		&likes,
		&dislikes,
	); err != nil {
		return c, err
	}

	if parentID.Valid {
		c.ParentID = &parentID.String
	}

	var err error
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return c, fmt.Errorf("parse created_at: %w", err)
	}
	if editedAt.Valid {
		at, err := time.Parse(time.RFC3339Nano, editedAt.String)
		if err != nil {
			return c, fmt.Errorf("parse edited_at: %w", err)
		}
		c.EditedAt = &at
	}

	if err := json.Unmarshal([]byte(likes), &c.Likes); err != nil {
		return c, fmt.Errorf("decode likes: %w", err)
	}
	if err := json.Unmarshal([]byte(dislikes), &c.Dislikes); err != nil {
		return c, fmt.Errorf("decode dislikes: %w", err)
	}
	return c, nil
}

func encodeVotes(c model.Comment) (likes, dislikes string, err error) {
	l, err := json.Marshal(nonNil(c.Likes))
	if err != nil {
		return "", "", fmt.Errorf("encode likes: %w", err)
	}
	d, err := json.Marshal(nonNil(c.Dislikes))
	if err != nil {
		return "", "", fmt.Errorf("encode dislikes: %w", err)
	}
	return string(l), string(d), nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
