package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"plurianual/internal/domain"
)

var axisColumns = []string{"id", "nome", "descricao", "is_used", "created_at"}

// ErrDuplicate is returned when an axis with the same name already exists.
var ErrDuplicate = errors.New("already exists")

func (r Repo) InsertAxisTx(ctx context.Context, tx *sql.Tx, ax domain.Axis) error {
	if _, err := r.AxisByNameTx(ctx, tx, ax.Nome); err == nil {
		return fmt.Errorf("axis %q: %w", ax.Nome, ErrDuplicate)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	ins := builder.Insert("axes").Columns(axisColumns...).Values(ax.ID, ax.Nome, ax.Descricao, boolInt(ax.IsUsed), ax.CreatedAt)
	if _, err := exec(ctx, tx, ins); err != nil {
		return fmt.Errorf("insert axis: %w", err)
	}
	return nil
}

func (r Repo) GetAxis(ctx context.Context, id string) (domain.Axis, error) {
	return getAxis(ctx, r.DB, squirrel.Eq{"id": id})
}

func (r Repo) GetAxisTx(ctx context.Context, tx *sql.Tx, id string) (domain.Axis, error) {
	return getAxis(ctx, tx, squirrel.Eq{"id": id})
}

func (r Repo) AxisByNameTx(ctx context.Context, tx *sql.Tx, nome string) (domain.Axis, error) {
	return getAxis(ctx, tx, squirrel.Eq{"nome": nome})
}

func getAxis(ctx context.Context, q querier, where squirrel.Sqlizer) (domain.Axis, error) {
	query, args, err := builder.Select(axisColumns...).From("axes").Where(where).Limit(1).ToSql()
	if err != nil {
		return domain.Axis{}, err
	}
	ax, err := scanAxis(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return ax, ErrNotFound
	}
	return ax, err
}

func scanAxis(row rowScanner) (domain.Axis, error) {
	var ax domain.Axis
	var used int
	err := row.Scan(&ax.ID, &ax.Nome, &ax.Descricao, &used, &ax.CreatedAt)
	ax.IsUsed = used != 0
	return ax, err
}

// ListAxes returns axes ordered by name.
func (r Repo) ListAxes(ctx context.Context) ([]domain.Axis, error) {
	rows, err := query(ctx, r.DB, builder.Select(axisColumns...).From("axes").OrderBy("nome ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Axis{}
	for rows.Next() {
		ax, err := scanAxis(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, ax)
	}
	return res, rows.Err()
}

func (r Repo) DeleteAxisTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := exec(ctx, tx, builder.Delete("axes").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) SetAxisUsed(ctx context.Context, id string, used bool) error {
	res, err := exec(ctx, r.DB, builder.Update("axes").Set("is_used", boolInt(used)).Where(squirrel.Eq{"id": id}))
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
