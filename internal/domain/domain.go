package domain

// FiscalYears are the four years covered by a multi-year plan.
var FiscalYears = [4]int{2026, 2027, 2028, 2029}

// Annual holds one optional value per fiscal year.
type Annual struct {
	Y2026 string `json:"2026,omitempty" yaml:"2026,omitempty"`
	Y2027 string `json:"2027,omitempty" yaml:"2027,omitempty"`
	Y2028 string `json:"2028,omitempty" yaml:"2028,omitempty"`
	Y2029 string `json:"2029,omitempty" yaml:"2029,omitempty"`
}

// Values returns the yearly values in FiscalYears order.
func (a Annual) Values() [4]string {
	return [4]string{a.Y2026, a.Y2027, a.Y2028, a.Y2029}
}

// Get returns the value for year, or "" when the year is outside the plan.
func (a Annual) Get(year int) string {
	for i, y := range FiscalYears {
		if y == year {
			return a.Values()[i]
		}
	}
	return ""
}

// AnnualFrom builds an Annual from values in FiscalYears order.
func AnnualFrom(v [4]string) Annual {
	return Annual{Y2026: v[0], Y2027: v[1], Y2028: v[2], Y2029: v[3]}
}

type Program struct {
	ID            string   `json:"id"`
	Secretaria    string   `json:"secretaria"`
	Departamento  string   `json:"departamento"`
	Eixo          string   `json:"eixo"`
	Programa      string   `json:"programa"`
	Descricao     string   `json:"descricao,omitempty"`
	Justificativa string   `json:"justificativa,omitempty"`
	Objetivos     string   `json:"objetivos,omitempty"`
	Diretrizes    string   `json:"diretrizes,omitempty"`
	Actions       []Action `json:"actions"`
	CreatedAt     string   `json:"created_at" format:"date-time"`
	UpdatedAt     string   `json:"updated_at" format:"date-time"`
}

type Action struct {
	ID            string `json:"id" yaml:"id,omitempty"`
	Nome          string `json:"nome" yaml:"nome,omitempty"`
	Produto       string `json:"produto,omitempty" yaml:"produto,omitempty"`
	UnidadeMedida string `json:"unidade_medida,omitempty" yaml:"unidade_medida,omitempty"`
	Fonte         string `json:"fonte,omitempty" yaml:"fonte,omitempty"`
	MetaFisica    Annual `json:"meta_fisica" yaml:"meta_fisica,omitempty"`
	Orcamento     Annual `json:"orcamento" yaml:"orcamento,omitempty"`
}

type Idea struct {
	ID            string `json:"id"`
	Nome          string `json:"nome"`
	Produto       string `json:"produto,omitempty"`
	UnidadeMedida string `json:"unidade_medida,omitempty"`
	Categoria     string `json:"categoria,omitempty"`
	IsUsed        bool   `json:"is_used"`
	CreatedAt     string `json:"created_at" format:"date-time"`
}

type Axis struct {
	ID        string `json:"id"`
	Nome      string `json:"nome"`
	Descricao string `json:"descricao,omitempty"`
	IsUsed    bool   `json:"is_used"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIKey authenticates an actor on the HTTP API. Only the key's SHA-256 is stored.
type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"-"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
