package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"plurianual/internal/domain"
	"plurianual/internal/usage"
)

type IdeaFilters struct {
	Categoria string
	Used      *bool
	Search    string
	Limit     int
}

var ideaColumns = []string{"id", "nome", "produto", "unidade_medida", "categoria", "is_used", "created_at"}

func (r Repo) InsertIdeaTx(ctx context.Context, tx *sql.Tx, idea domain.Idea) error {
	ins := builder.Insert("ideas").Columns(append(ideaColumns, "match_key")...).Values(
		idea.ID, idea.Nome, idea.Produto, idea.UnidadeMedida, idea.Categoria,
		boolInt(idea.IsUsed), idea.CreatedAt, usage.Key(idea.Nome, idea.Produto),
	)
	if _, err := exec(ctx, tx, ins); err != nil {
		return fmt.Errorf("insert idea: %w", err)
	}
	return nil
}

func (r Repo) GetIdea(ctx context.Context, id string) (domain.Idea, error) {
	return getIdea(ctx, r.DB, squirrel.Eq{"id": id})
}

func (r Repo) GetIdeaTx(ctx context.Context, tx *sql.Tx, id string) (domain.Idea, error) {
	return getIdea(ctx, tx, squirrel.Eq{"id": id})
}

// IdeaByKeyTx returns the oldest idea matching (nome, produto) under usage.Key.
func (r Repo) IdeaByKeyTx(ctx context.Context, tx *sql.Tx, nome, produto string) (domain.Idea, error) {
	return getIdea(ctx, tx, squirrel.Eq{"match_key": usage.Key(nome, produto)})
}

func getIdea(ctx context.Context, q querier, where squirrel.Sqlizer) (domain.Idea, error) {
	query, args, err := builder.Select(ideaColumns...).From("ideas").Where(where).
		OrderBy("created_at ASC", "rowid ASC").Limit(1).ToSql()
	if err != nil {
		return domain.Idea{}, err
	}
	idea, err := scanIdea(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return idea, ErrNotFound
	}
	return idea, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdea(row rowScanner) (domain.Idea, error) {
	var idea domain.Idea
	var used int
	err := row.Scan(&idea.ID, &idea.Nome, &idea.Produto, &idea.UnidadeMedida, &idea.Categoria, &used, &idea.CreatedAt)
	idea.IsUsed = used != 0
	return idea, err
}

// ListIdeas returns ideas in creation order.
func (r Repo) ListIdeas(ctx context.Context, f IdeaFilters) ([]domain.Idea, error) {
	sel := builder.Select(ideaColumns...).From("ideas").OrderBy("created_at ASC", "rowid ASC")
	if f.Categoria != "" {
		sel = sel.Where(squirrel.Eq{"categoria": f.Categoria})
	}
	if f.Used != nil {
		sel = sel.Where(squirrel.Eq{"is_used": boolInt(*f.Used)})
	}
	if f.Search != "" {
		sel = sel.Where(squirrel.Or{squirrel.Like{"nome": like(f.Search)}, squirrel.Like{"produto": like(f.Search)}})
	}
	if f.Limit > 0 {
		sel = sel.Limit(uint64(f.Limit))
	}
	rows, err := query(ctx, r.DB, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Idea{}
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, idea)
	}
	return res, rows.Err()
}

func (r Repo) DeleteIdeaTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := exec(ctx, tx, builder.Delete("ideas").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// SetIdeaUsed flags every idea matching (nome, produto) under usage.Key and
// returns how many rows matched.
func (r Repo) SetIdeaUsed(ctx context.Context, nome, produto string, used bool) (int, error) {
	res, err := exec(ctx, r.DB, builder.Update("ideas").Set("is_used", boolInt(used)).
		Where(squirrel.Eq{"match_key": usage.Key(nome, produto)}))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r Repo) SetIdeaUsedByID(ctx context.Context, id string, used bool) error {
	res, err := exec(ctx, r.DB, builder.Update("ideas").Set("is_used", boolInt(used)).Where(squirrel.Eq{"id": id}))
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
