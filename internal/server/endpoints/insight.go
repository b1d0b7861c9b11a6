package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/oracle/internal/api"
	"github.com/jackzampolin/oracle/internal/prophecy"
	"github.com/jackzampolin/oracle/internal/svcctx"
)

// InsightResponse carries an insight, or one of the oracle's fixed replies
// when the prophecy is unknown or the generator failed.
type InsightResponse struct {
	ID         string `json:"id,omitempty" example:"prophecy_1700000000"`
	Insight    string `json:"insight"`
	HistoryLen int    `json:"history_len"`
}

func insight(w http.ResponseWriter, r *http.Request, svc *prophecy.Service, id string) {
	text, err := svc.Insight(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, InsightResponse{
		ID:         id,
		Insight:    prophecy.Truncate(text, prophecy.ChatMessageLimit),
		HistoryLen: len(svc.History(id)),
	})
}

// ProphecyInsightEndpoint handles POST /api/prophecies/{id}/insight.
type ProphecyInsightEndpoint struct{ prophecyGroup }

func (e *ProphecyInsightEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/prophecies/{id}/insight", e.handler
}

func (e *ProphecyInsightEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Interpret a prophecy
//	@Description	Unknown ids answer with the oracle's "cannot recall" message rather than an error
//	@Tags			prophecies
//	@Produce		json
//	@Param			id	path		string	true	"Prophecy ID"
//	@Success		200	{object}	InsightResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/prophecies/{id}/insight [post]
func (e *ProphecyInsightEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.ProphecyFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prophecy service not initialized")
		return
	}
	insight(w, r, svc, r.PathValue("id"))
}

func (e *ProphecyInsightEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "insight <id>",
		Short: "Ask for a deeper reading of a prophecy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp InsightResponse
			if err := client.Post(cmd.Context(), "/api/prophecies/"+args[0]+"/insight", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// LastInsightEndpoint handles POST /api/insight.
type LastInsightEndpoint struct{}

func (e *LastInsightEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/insight", e.handler
}

func (e *LastInsightEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Interpret the most recent prophecy
//	@Tags		prophecies
//	@Produce	json
//	@Success	200	{object}	InsightResponse
//	@Failure	503	{object}	ErrorResponse
//	@Router		/api/insight [post]
func (e *LastInsightEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.ProphecyFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prophecy service not initialized")
		return
	}

	id, ok := svc.Last()
	if !ok {
		writeJSON(w, http.StatusOK, InsightResponse{Insight: prophecy.NoRecentMessage})
		return
	}
	insight(w, r, svc, id)
}

func (e *LastInsightEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "insight",
		Short: "Ask for a deeper reading of the most recent prophecy",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp InsightResponse
			if err := client.Post(cmd.Context(), "/api/insight", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
