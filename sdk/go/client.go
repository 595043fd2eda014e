package plurianualsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal plurianual HTTP API client.
type Client struct {
	BaseURL     string
	ActorID     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Annual holds one value per fiscal year, keyed "2026".."2029".
type Annual map[string]string

type Action struct {
	ID            string `json:"id,omitempty"`
	Nome          string `json:"nome"`
	Produto       string `json:"produto,omitempty"`
	UnidadeMedida string `json:"unidade_medida,omitempty"`
	Fonte         string `json:"fonte,omitempty"`
	MetaFisica    Annual `json:"meta_fisica,omitempty"`
	Orcamento     Annual `json:"orcamento,omitempty"`
}

// Program is the program payload. Total and Warnings are only set on responses.
type Program struct {
	ID            string   `json:"id,omitempty"`
	Secretaria    string   `json:"secretaria,omitempty"`
	Departamento  string   `json:"departamento,omitempty"`
	Eixo          string   `json:"eixo,omitempty"`
	Programa      string   `json:"programa"`
	Descricao     string   `json:"descricao,omitempty"`
	Justificativa string   `json:"justificativa,omitempty"`
	Objetivos     string   `json:"objetivos,omitempty"`
	Diretrizes    string   `json:"diretrizes,omitempty"`
	Actions       []Action `json:"actions,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
	Total         float64  `json:"total,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

type Idea struct {
	ID            string `json:"id,omitempty"`
	Nome          string `json:"nome"`
	Produto       string `json:"produto,omitempty"`
	UnidadeMedida string `json:"unidade_medida,omitempty"`
	Categoria     string `json:"categoria,omitempty"`
	IsUsed        bool   `json:"is_used"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type IdeaUsage struct {
	IdeaID       string   `json:"idea_id"`
	IsUsed       bool     `json:"is_used"`
	ProgramNames []string `json:"program_names"`
}

type Axis struct {
	ID        string `json:"id,omitempty"`
	Nome      string `json:"nome"`
	Descricao string `json:"descricao,omitempty"`
	IsUsed    bool   `json:"is_used"`
	CreatedAt string `json:"created_at,omitempty"`
}

type Total struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

type YearTotal struct {
	Year  int     `json:"year"`
	Total float64 `json:"total"`
}

// Dashboard mirrors the dashboard summary.
type Dashboard struct {
	Programs       int         `json:"programs"`
	Actions        int         `json:"actions"`
	Ideas          int         `json:"ideas"`
	IdeasInUse     int         `json:"ideas_in_use"`
	Axes           int         `json:"axes"`
	AxesInUse      int         `json:"axes_in_use"`
	PortfolioTotal float64     `json:"portfolio_total"`
	ByYear         []YearTotal `json:"by_year"`
	ByDepartment   []Total     `json:"by_department"`
	BySecretaria   []Total     `json:"by_secretaria"`
	ByProgram      []Total     `json:"by_program"`
}

type Resync struct {
	Total    int      `json:"total"`
	Warnings []string `json:"warnings,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses. Code is read from the error envelope when present.
type APIError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (c *Client) CreateProgram(ctx context.Context, p Program) (Program, error) {
	var resp Program
	err := c.do(ctx, http.MethodPost, "programs", p, &resp)
	return resp, err
}

func (c *Client) GetProgram(ctx context.Context, id string) (Program, error) {
	var resp Program
	err := c.do(ctx, http.MethodGet, "programs/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ReplaceProgram overwrites a program and its full action list.
func (c *Client) ReplaceProgram(ctx context.Context, id string, p Program) (Program, error) {
	p.ID, p.Total, p.Warnings, p.CreatedAt, p.UpdatedAt = "", 0, nil, "", ""
	var resp Program
	err := c.do(ctx, http.MethodPut, "programs/"+url.PathEscape(id), p, &resp)
	return resp, err
}

// DeleteProgram removes a program and returns reconciliation warnings, if any.
func (c *Client) DeleteProgram(ctx context.Context, id string) ([]string, error) {
	var resp struct {
		Warnings []string `json:"warnings"`
	}
	err := c.do(ctx, http.MethodDelete, "programs/"+url.PathEscape(id), nil, &resp)
	return resp.Warnings, err
}

func (c *Client) ListPrograms(ctx context.Context, q url.Values) ([]Program, error) {
	var resp struct {
		Items []Program `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("programs", q), nil, &resp)
	return resp.Items, err
}

// ExportProgram returns the rendered document and its suggested file name.
func (c *Client) ExportProgram(ctx context.Context, id, format string) ([]byte, string, error) {
	q := url.Values{}
	if format != "" {
		q.Set("format", format)
	}
	res, err := c.send(ctx, http.MethodGet, withQuery("programs/"+url.PathEscape(id)+"/export", q), nil)
	if err != nil {
		return nil, "", err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", err
	}
	name := ""
	if _, after, ok := strings.Cut(res.Header.Get("Content-Disposition"), "filename="); ok {
		name = strings.Trim(after, `"`)
	}
	return data, name, nil
}

// CreateIdea adds an idea. ID, IsUsed and CreatedAt are ignored.
func (c *Client) CreateIdea(ctx context.Context, idea Idea) (Idea, error) {
	body := map[string]any{"nome": idea.Nome}
	for k, v := range map[string]string{"produto": idea.Produto, "unidade_medida": idea.UnidadeMedida, "categoria": idea.Categoria} {
		if v != "" {
			body[k] = v
		}
	}
	var resp Idea
	err := c.do(ctx, http.MethodPost, "ideas", body, &resp)
	return resp, err
}

func (c *Client) ListIdeas(ctx context.Context, q url.Values) ([]Idea, error) {
	var resp struct {
		Items []Idea `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("ideas", q), nil, &resp)
	return resp.Items, err
}

// AvailableIdeas lists unused ideas minus the hidden IDs.
func (c *Client) AvailableIdeas(ctx context.Context, hidden ...string) ([]Idea, error) {
	q := url.Values{}
	if len(hidden) > 0 {
		q.Set("hide", strings.Join(hidden, ","))
	}
	var resp struct {
		Items []Idea `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("ideas/available", q), nil, &resp)
	return resp.Items, err
}

func (c *Client) IdeaUsage(ctx context.Context, id string) (IdeaUsage, error) {
	var resp IdeaUsage
	err := c.do(ctx, http.MethodGet, "ideas/"+url.PathEscape(id)+"/usage", nil, &resp)
	return resp, err
}

// PromoteAction copies a program action into the idea bank.
func (c *Client) PromoteAction(ctx context.Context, programID, actionID, categoria string) (Idea, error) {
	body := map[string]any{"program_id": programID, "action_id": actionID}
	if categoria != "" {
		body["categoria"] = categoria
	}
	var resp Idea
	err := c.do(ctx, http.MethodPost, "ideas/promote", body, &resp)
	return resp, err
}

func (c *Client) DeleteIdea(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "ideas/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ResyncIdeas(ctx context.Context) (Resync, error) {
	var resp Resync
	err := c.do(ctx, http.MethodPost, "ideas/resync", nil, &resp)
	return resp, err
}

func (c *Client) CreateAxis(ctx context.Context, nome, descricao string) (Axis, error) {
	body := map[string]any{"nome": nome}
	if descricao != "" {
		body["descricao"] = descricao
	}
	var resp Axis
	err := c.do(ctx, http.MethodPost, "axes", body, &resp)
	return resp, err
}

func (c *Client) ListAxes(ctx context.Context) ([]Axis, error) {
	var resp struct {
		Items []Axis `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "axes", nil, &resp)
	return resp.Items, err
}

func (c *Client) DeleteAxis(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "axes/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ResyncAxes(ctx context.Context) (Resync, error) {
	var resp Resync
	err := c.do(ctx, http.MethodPost, "axes/resync", nil, &resp)
	return resp, err
}

func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	var resp Dashboard
	err := c.do(ctx, http.MethodGet, "dashboard", nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, withQuery("events", q), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	res, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if out != nil && res.StatusCode != http.StatusNoContent {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/v0/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		defer res.Body.Close()
		b, _ := io.ReadAll(res.Body)
		apiErr := &APIError{StatusCode: res.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
		}
		return nil, apiErr
	}
	return res, nil
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
