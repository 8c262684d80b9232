package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"horizon/internal/services"
)

type (
	runResponse struct {
		ScenarioID      int64    `json:"scenario_id"`
		PeriodsComputed int      `json:"periods_computed"`
		FinalNetWorth   string   `json:"final_net_worth"`
		HomeCurrency    string   `json:"home_currency"`
		Warnings        []string `json:"warnings,omitempty"`
		SkippedFlows    []int64  `json:"skipped_flows,omitempty"`
		RanAt           string   `json:"ran_at"`
	}

	accountProjectionResponse struct {
		AccountID    int64   `json:"account_id"`
		Period       string  `json:"period"`
		Balance      string  `json:"balance"`
		BalanceHome  string  `json:"balance_home"`
		Income       string  `json:"income"`
		Expenses     string  `json:"expenses"`
		Interest     string  `json:"interest"`
		TransfersIn  string  `json:"transfers_in"`
		TransfersOut string  `json:"transfers_out"`
		FXRate       string  `json:"fx_rate"`
		FXProvenance string  `json:"fx_provenance"`
		EventIDs     []int64 `json:"event_ids,omitempty"`
	}

	netWorthResponse struct {
		Period           string            `json:"period"`
		TotalAssets      string            `json:"total_assets"`
		TotalLiabilities string            `json:"total_liabilities"`
		NetWorth         string            `json:"net_worth"`
		ByType           map[string]string `json:"by_type"`
		ByCurrency       map[string]string `json:"by_currency"`
	}
)

// handleRunScenario runs a scenario synchronously, or enqueues it for the
// worker when ?async is set. ?recalc seeds the run from initial balances.
func (s *Server) handleRunScenario(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	sid, err := scenarioID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	recalc := queryFlag(r, "recalc")

	if queryFlag(r, "async") {
		if err := s.service.EnqueueRun(r.Context(), uid, sid, recalc); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"scenario_id": sid, "status": "queued"})
		return
	}

	result, err := s.service.RunSimulation(r.Context(), uid, sid, recalc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		ScenarioID:      result.ScenarioID,
		PeriodsComputed: result.PeriodsComputed,
		FinalNetWorth:   result.FinalNetWorth.String(),
		HomeCurrency:    string(result.HomeCurrency),
		Warnings:        result.Warnings,
		SkippedFlows:    result.SkippedFlows,
		RanAt:           result.RanAt.Format(time.RFC3339),
	})
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	query, ok := s.projectionQuery(w, r)
	if !ok {
		return
	}

	rows, err := s.service.GetProjections(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]accountProjectionResponse, len(rows))
	for i, row := range rows {
		out[i] = accountProjectionResponse{
			AccountID:    row.AccountID,
			Period:       row.Period.Format(),
			Balance:      row.Balance.String(),
			BalanceHome:  row.BalanceHome.String(),
			Income:       row.Income.String(),
			Expenses:     row.Expenses.String(),
			Interest:     row.Interest.String(),
			TransfersIn:  row.TransfersIn.String(),
			TransfersOut: row.TransfersOut.String(),
			FXRate:       row.FXRate.String(),
			FXProvenance: row.FXProvenance,
			EventIDs:     row.EventIDs,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request) {
	query, ok := s.projectionQuery(w, r)
	if !ok {
		return
	}

	rows, err := s.service.GetNetWorth(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]netWorthResponse, len(rows))
	for i, row := range rows {
		out[i] = netWorthResponse{
			Period:           row.Period.Format(),
			TotalAssets:      row.TotalAssets.String(),
			TotalLiabilities: row.TotalLiabilities.String(),
			NetWorth:         row.NetWorth.String(),
			ByType:           stringMap(row.ByType),
			ByCurrency:       stringMap(row.ByCurrency),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) projectionQuery(w http.ResponseWriter, r *http.Request) (services.ProjectionQuery, bool) {
	uid, err := userID(r)
	if err != nil {
		badRequest(w, err.Error())
		return services.ProjectionQuery{}, false
	}
	sid, err := scenarioID(r)
	if err != nil {
		badRequest(w, err.Error())
		return services.ProjectionQuery{}, false
	}
	from, err := queryDate(r, "from")
	if err != nil {
		badRequest(w, "invalid from date, expected YYYY-MM-DD")
		return services.ProjectionQuery{}, false
	}
	to, err := queryDate(r, "to")
	if err != nil {
		badRequest(w, "invalid to date, expected YYYY-MM-DD")
		return services.ProjectionQuery{}, false
	}
	accountID, err := queryID(r, "account_id")
	if err != nil {
		badRequest(w, "invalid account_id")
		return services.ProjectionQuery{}, false
	}

	return services.ProjectionQuery{
		UserID:      uid,
		ScenarioID:  sid,
		AccountID:   accountID,
		From:        from,
		To:          to,
		Granularity: r.URL.Query().Get("granularity"),
	}, true
}

func stringMap(m map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.String()
	}
	return out
}
