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

type ProgramFilters struct {
	Secretaria   string
	Departamento string
	Eixo         string
	// Search matches a substring of the program name.
	Search string
	Limit  int
}

var programColumns = []string{
	"id", "secretaria", "departamento", "eixo", "programa",
	"descricao", "justificativa", "objetivos", "diretrizes", "created_at", "updated_at",
}

var actionColumns = []string{
	"id", "program_id", "nome", "produto", "unidade_medida", "fonte",
	"meta_2026", "meta_2027", "meta_2028", "meta_2029",
	"orcamento_2026", "orcamento_2027", "orcamento_2028", "orcamento_2029",
}

func (r Repo) InsertProgramTx(ctx context.Context, tx *sql.Tx, p domain.Program) error {
	ins := builder.Insert("programs").Columns(programColumns...).Values(
		p.ID, p.Secretaria, p.Departamento, p.Eixo, p.Programa,
		p.Descricao, p.Justificativa, p.Objetivos, p.Diretrizes, p.CreatedAt, p.UpdatedAt,
	)
	if _, err := exec(ctx, tx, ins); err != nil {
		return fmt.Errorf("insert program: %w", err)
	}
	return insertActions(ctx, tx, p.ID, p.Actions)
}

// ReplaceProgramTx overwrites the program fields and its whole action list.
func (r Repo) ReplaceProgramTx(ctx context.Context, tx *sql.Tx, p domain.Program) error {
	upd := builder.Update("programs").
		Set("secretaria", p.Secretaria).
		Set("departamento", p.Departamento).
		Set("eixo", p.Eixo).
		Set("programa", p.Programa).
		Set("descricao", p.Descricao).
		Set("justificativa", p.Justificativa).
		Set("objetivos", p.Objetivos).
		Set("diretrizes", p.Diretrizes).
		Set("updated_at", p.UpdatedAt).
		Where(squirrel.Eq{"id": p.ID})
	res, err := exec(ctx, tx, upd)
	if err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return err
	}
	if _, err := exec(ctx, tx, builder.Delete("program_actions").Where(squirrel.Eq{"program_id": p.ID})); err != nil {
		return fmt.Errorf("clear actions: %w", err)
	}
	return insertActions(ctx, tx, p.ID, p.Actions)
}

// DeleteProgramTx removes the program; its actions cascade.
func (r Repo) DeleteProgramTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := exec(ctx, tx, builder.Delete("programs").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func insertActions(ctx context.Context, tx *sql.Tx, programID string, actions []domain.Action) error {
	if len(actions) == 0 {
		return nil
	}
	ins := builder.Insert("program_actions").Columns(append([]string{"position", "match_key"}, actionColumns...)...)
	for i, a := range actions {
		meta := a.MetaFisica.Values()
		orc := a.Orcamento.Values()
		ins = ins.Values(
			i, usage.Key(a.Nome, a.Produto),
			a.ID, programID, a.Nome, a.Produto, a.UnidadeMedida, a.Fonte,
			meta[0], meta[1], meta[2], meta[3],
			orc[0], orc[1], orc[2], orc[3],
		)
	}
	if _, err := exec(ctx, tx, ins); err != nil {
		return fmt.Errorf("insert actions: %w", err)
	}
	return nil
}

func (r Repo) GetProgram(ctx context.Context, id string) (domain.Program, error) {
	return getProgram(ctx, r.DB, id)
}

func (r Repo) GetProgramTx(ctx context.Context, tx *sql.Tx, id string) (domain.Program, error) {
	return getProgram(ctx, tx, id)
}

func getProgram(ctx context.Context, q querier, id string) (domain.Program, error) {
	ps, err := listPrograms(ctx, q, builder.Select(programColumns...).From("programs").Where(squirrel.Eq{"id": id}), []string{id})
	if err != nil {
		return domain.Program{}, err
	}
	if len(ps) == 0 {
		return domain.Program{}, ErrNotFound
	}
	return ps[0], nil
}

// ListPrograms returns programs in creation order with their actions.
func (r Repo) ListPrograms(ctx context.Context, f ProgramFilters) ([]domain.Program, error) {
	conds := squirrel.And{}
	if f.Secretaria != "" {
		conds = append(conds, squirrel.Eq{"secretaria": f.Secretaria})
	}
	if f.Departamento != "" {
		conds = append(conds, squirrel.Eq{"departamento": f.Departamento})
	}
	if f.Eixo != "" {
		conds = append(conds, squirrel.Eq{"eixo": f.Eixo})
	}
	if f.Search != "" {
		conds = append(conds, squirrel.Like{"programa": like(f.Search)})
	}
	if len(conds) == 0 && f.Limit <= 0 {
		return listPrograms(ctx, r.DB, builder.Select(programColumns...).From("programs"), nil)
	}
	idSel := builder.Select("id").From("programs").Where(conds).OrderBy("created_at ASC", "rowid ASC")
	if f.Limit > 0 {
		idSel = idSel.Limit(uint64(f.Limit))
	}
	ids, err := programIDs(ctx, r.DB, idSel)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Program{}, nil
	}
	return listPrograms(ctx, r.DB, builder.Select(programColumns...).From("programs").Where(squirrel.Eq{"id": ids}), ids)
}

func programIDs(ctx context.Context, q querier, sel squirrel.SelectBuilder) ([]string, error) {
	rows, err := query(ctx, q, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// listPrograms runs sel and attaches actions. ids restricts the action load;
// nil loads every action.
func listPrograms(ctx context.Context, q querier, sel squirrel.SelectBuilder, ids []string) ([]domain.Program, error) {
	rows, err := query(ctx, q, sel.OrderBy("created_at ASC", "rowid ASC"))
	if err != nil {
		return nil, err
	}
	res := []domain.Program{}
	index := map[string]int{}
	for rows.Next() {
		var p domain.Program
		if err := rows.Scan(&p.ID, &p.Secretaria, &p.Departamento, &p.Eixo, &p.Programa,
			&p.Descricao, &p.Justificativa, &p.Objetivos, &p.Diretrizes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		p.Actions = []domain.Action{}
		index[p.ID] = len(res)
		res = append(res, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return res, nil
	}

	asel := builder.Select(actionColumns...).From("program_actions").OrderBy("program_id", "position")
	if ids != nil {
		asel = asel.Where(squirrel.Eq{"program_id": ids})
	}
	arows, err := query(ctx, q, asel)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var a domain.Action
		var programID string
		var meta, orc [4]string
		if err := arows.Scan(&a.ID, &programID, &a.Nome, &a.Produto, &a.UnidadeMedida, &a.Fonte,
			&meta[0], &meta[1], &meta[2], &meta[3], &orc[0], &orc[1], &orc[2], &orc[3]); err != nil {
			return nil, err
		}
		a.MetaFisica = domain.AnnualFrom(meta)
		a.Orcamento = domain.AnnualFrom(orc)
		if i, ok := index[programID]; ok {
			res[i].Actions = append(res[i].Actions, a)
		}
	}
	return res, arows.Err()
}

// ActionExists reports whether any program holds an action matching
// (nome, produto) under usage.Key.
func (r Repo) ActionExists(ctx context.Context, nome, produto string) (bool, error) {
	return actionExists(ctx, r.DB, nome, produto)
}

// ActionOwnersTx maps each of ids that is stored to the program holding it.
func (r Repo) ActionOwnersTx(ctx context.Context, tx *sql.Tx, ids []string) (map[string]string, error) {
	owners := map[string]string{}
	if len(ids) == 0 {
		return owners, nil
	}
	rows, err := query(ctx, tx, builder.Select("id", "program_id").From("program_actions").Where(squirrel.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, programID string
		if err := rows.Scan(&id, &programID); err != nil {
			return nil, err
		}
		owners[id] = programID
	}
	return owners, rows.Err()
}

func (r Repo) ActionExistsTx(ctx context.Context, tx *sql.Tx, nome, produto string) (bool, error) {
	return actionExists(ctx, tx, nome, produto)
}

func actionExists(ctx context.Context, q querier, nome, produto string) (bool, error) {
	query, args, err := builder.Select("1").From("program_actions").
		Where(squirrel.Eq{"match_key": usage.Key(nome, produto)}).Limit(1).ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ProgramNamesUsingActionTx lists the names of programs holding an action
// matching (nome, produto), one entry per program.
func (r Repo) ProgramNamesUsingActionTx(ctx context.Context, tx *sql.Tx, nome, produto string) ([]string, error) {
	rows, err := query(ctx, tx, builder.Select("programa").From("programs").
		Where("id IN (SELECT program_id FROM program_actions WHERE match_key = ?)", usage.Key(nome, produto)).
		OrderBy("created_at ASC", "rowid ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CountProgramsByEixoTx counts programs whose eixo equals nome exactly.
func (r Repo) CountProgramsByEixoTx(ctx context.Context, tx *sql.Tx, nome string) (int, error) {
	query, args, err := builder.Select("COUNT(*)").From("programs").Where(squirrel.Eq{"eixo": nome}).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = tx.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}
