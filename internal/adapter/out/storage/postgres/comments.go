package postgres

import (
	"context"
	"errors"
	"fmt"

	"bookcomments/internal/adapter/out/storage"
	"bookcomments/internal/model"
	"bookcomments/internal/service"
	"bookcomments/pkg/tableinfo"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// TxManager runs fn inside a transaction carried by ctx.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type CommentStorage struct {
	db     trmpgx.Tr
	getter *trmpgx.CtxGetter
	txm    TxManager
}

func NewCommentStorage(db trmpgx.Tr, getter *trmpgx.CtxGetter, txm TxManager) *CommentStorage {
	return &CommentStorage{db: db, getter: getter, txm: txm}
}

func (s *CommentStorage) CreateComment(ctx context.Context, c model.Comment) (model.Comment, error) {
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
			c.CreatedAt,
			c.EditedAt,
			nonNil(c.Likes),
			nonNil(c.Dislikes),
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return model.Comment{}, fmt.Errorf("%w: %v", storage.ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	if _, err := tr.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.Comment{}, fmt.Errorf("%w: %s", storage.ErrDuplicateID, c.ID)
		}
		return model.Comment{}, fmt.Errorf("exec insert comment: %w", err)
	}

	return c, nil
}

func (s *CommentStorage) GetCommentByID(ctx context.Context, bookID, commentID string) (model.Comment, error) {
	return s.getComment(ctx, bookID, commentID, false)
}

func (s *CommentStorage) GetCommentsByBook(ctx context.Context, bookID string) ([]model.Comment, error) {
	query, args, err := sq.
		Select(tableinfo.CommentColumns...).
		From(tableinfo.CommentsTableName).
		Where(sq.Eq{tableinfo.CommentBookIDColumn: bookID}).
		OrderBy(
			fmt.Sprintf("%s ASC", tableinfo.CommentCreatedAtColumn),
			fmt.Sprintf("%s ASC", tableinfo.CommentIDColumn),
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	rows, err := tr.Query(ctx, query, args...)
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

	return out, nil
}

// UpdateComment locks the row with SELECT ... FOR UPDATE, applies fn and
// writes the mutable columns back in the same transaction.
func (s *CommentStorage) UpdateComment(
	ctx context.Context,
	bookID, commentID string,
	fn func(model.Comment) (model.Comment, error),
) (model.Comment, error) {
	var out model.Comment

	err := s.txm.Do(ctx, func(ctx context.Context) error {
		cur, err := s.getComment(ctx, bookID, commentID, true)
		if err != nil {
			return err
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}
		next.ID, next.BookID, next.CreatedAt = cur.ID, cur.BookID, cur.CreatedAt

		query, args, err := sq.
			Update(tableinfo.CommentsTableName).
			Set(tableinfo.CommentBodyColumn, next.Text).
			Set(tableinfo.CommentEditedAtColumn, next.EditedAt).
			Set(tableinfo.CommentLikesColumn, nonNil(next.Likes)).
			Set(tableinfo.CommentDislikesColumn, nonNil(next.Dislikes)).
			Where(sq.Eq{
				tableinfo.CommentBookIDColumn: bookID,
				tableinfo.CommentIDColumn:     commentID,
			}).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: %v", storage.ErrBuildingQuery, err)
		}

		tr := s.getter.DefaultTrOrDB(ctx, s.db)
		if _, err := tr.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("exec update comment: %w", err)
		}

		out = next
		return nil
	})
	if err != nil {
		return model.Comment{}, err
	}

	return out, nil
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
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	rows, err := tr.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec delete comments: %w", err)
	}

	removed, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("exec delete comments: %w", err)
	}
	return removed, nil
}

func (s *CommentStorage) getComment(ctx context.Context, bookID, commentID string, forUpdate bool) (model.Comment, error) {
	qb := sq.
		Select(tableinfo.CommentColumns...).
		From(tableinfo.CommentsTableName).
		Where(sq.Eq{
			tableinfo.CommentBookIDColumn: bookID,
			tableinfo.CommentIDColumn:     commentID,
		}).
		PlaceholderFormat(sq.Dollar)
	if forUpdate {
		qb = qb.Suffix("FOR UPDATE")
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return model.Comment{}, fmt.Errorf("%w: %v", storage.ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	c, err := scanComment(tr.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Comment{}, service.ErrNotFound
		}
		return model.Comment{}, fmt.Errorf("exec select comment by id: %w", err)
	}

	return c, nil
}

func scanComment(row pgx.Row) (model.Comment, error) {
	var c model.Comment
	err := row.Scan(
		&c.ID,
		&c.BookID,
		&c.ParentID,
		&c.UserID,
		&c.UserName,
		&c.Text,
		&c.CreatedAt,
		&c.EditedAt,
		&c.Likes,
		&c.Dislikes,
	)
	return c, err
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

