package endpoints

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/oracle/internal/api"
	"github.com/jackzampolin/oracle/internal/contentstore"
	"github.com/jackzampolin/oracle/internal/prophecy"
	"github.com/jackzampolin/oracle/internal/svcctx"
)

const (
	defaultListLimit = 6
	maxListLimit     = 100
)

// GenerateRequest is the body of POST /api/prophecies.
type GenerateRequest struct {
	Theme string `json:"theme,omitempty" example:"defi"`
}

// ProphecyResponse is a freshly generated prophecy.
type ProphecyResponse struct {
	ID    string `json:"id" example:"prophecy_1700000000"`
	Text  string `json:"text"`
	Theme string `json:"theme" example:"defi"`
	// Label is the upper-case theme shown in headers; empty for general.
	Label string `json:"label,omitempty" example:"DEFI"`
}

// ProphecyRecord is a stored prophecy.
type ProphecyRecord struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Theme     string    `json:"theme,omitempty"`
	Timestamp int64     `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
	Insights  []string  `json:"insights,omitempty"`
}

// ListPropheciesResponse is the response of GET /api/prophecies.
type ListPropheciesResponse struct {
	Prophecies []ProphecyRecord `json:"prophecies"`
	Total      int              `json:"total"`
}

func toProphecyRecord(rec contentstore.Record) ProphecyRecord {
	return ProphecyRecord{
		ID:        rec.ID,
		Text:      rec.Text,
		Theme:     rec.Theme,
		Timestamp: rec.Timestamp,
		CreatedAt: rec.CreatedAt,
	}
}

// prophecyGroup nests prophecy commands under "oracle api prophecy".
type prophecyGroup struct{}

func (prophecyGroup) Group() (string, string) {
	return "prophecy", "Generate, inspect and interpret prophecies"
}

// GenerateProphecyEndpoint handles POST /api/prophecies.
type GenerateProphecyEndpoint struct{ prophecyGroup }

func (e *GenerateProphecyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/prophecies", e.handler
}

func (e *GenerateProphecyEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Generate a prophecy
//	@Description	Ask the oracle for a prophecy. Unknown or empty themes fall back to general.
//	@Tags			prophecies
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GenerateRequest	false	"Theme"
//	@Success		201		{object}	ProphecyResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/prophecies [post]
func (e *GenerateProphecyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	svc := svcctx.ProphecyFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prophecy service not initialized")
		return
	}

	text, id, err := svc.Generate(r.Context(), req.Theme)
	if err != nil {
		writeError(w, http.StatusBadGateway, prophecy.GenerationFailedMessage)
		return
	}

	theme := prophecy.SelectTheme(req.Theme)
	writeJSON(w, http.StatusCreated, ProphecyResponse{
		ID:    id,
		Text:  prophecy.Truncate(text, prophecy.ChatMessageLimit),
		Theme: string(theme),
		Label: theme.Label(),
	})
}

func (e *GenerateProphecyEndpoint) Command(getServerURL func() string) *cobra.Command {
	var theme string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Ask the oracle for a prophecy",
		Long: `Ask the oracle for a prophecy.

Themes: general (default), defi, nft, dao.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ProphecyResponse
			if err := client.Post(cmd.Context(), "/api/prophecies", GenerateRequest{Theme: theme}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&theme, "theme", "t", "", "Prophecy theme (defi, nft, dao)")
	return cmd
}

// ListPropheciesEndpoint handles GET /api/prophecies.
type ListPropheciesEndpoint struct{ prophecyGroup }

func (e *ListPropheciesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prophecies", e.handler
}

func (e *ListPropheciesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List recent prophecies
//	@Description	Newest first, from the local prophecy file
//	@Tags			prophecies
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum results (default 6, max 100)"
//	@Success		200		{object}	ListPropheciesResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/prophecies [get]
func (e *ListPropheciesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	store := svcctx.ContentStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "content store not initialized")
		return
	}

	records := store.List(limit)
	resp := ListPropheciesResponse{Prophecies: make([]ProphecyRecord, 0, len(records))}
	for _, rec := range records {
		resp.Prophecies = append(resp.Prophecies, toProphecyRecord(rec))
	}
	resp.Total = len(resp.Prophecies)
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListPropheciesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent prophecies",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListPropheciesResponse
			if err := client.Get(cmd.Context(), "/api/prophecies?limit="+strconv.Itoa(limit), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultListLimit, "Maximum results")
	return cmd
}

// GetProphecyEndpoint handles GET /api/prophecies/{id}.
type GetProphecyEndpoint struct{ prophecyGroup }

func (e *GetProphecyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prophecies/{id}", e.handler
}

func (e *GetProphecyEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get prophecy by ID
//	@Description	Looks the prophecy up in the content store; includes insights given this session
//	@Tags			prophecies
//	@Produce		json
//	@Param			id	path		string	true	"Prophecy ID"
//	@Success		200	{object}	ProphecyRecord
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/prophecies/{id} [get]
func (e *GetProphecyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	store := svcctx.ContentStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "content store not initialized")
		return
	}

	rec, ok := store.Get(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "prophecy not found")
		return
	}

	out := toProphecyRecord(rec)
	out.ID = id
	if svc := svcctx.ProphecyFrom(r.Context()); svc != nil {
		out.Insights = svc.History(id)
	}
	writeJSON(w, http.StatusOK, out)
}

func (e *GetProphecyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a prophecy by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var rec ProphecyRecord
			if err := client.Get(cmd.Context(), "/api/prophecies/"+args[0], &rec); err != nil {
				return err
			}
			return api.Output(rec)
		},
	}
}
