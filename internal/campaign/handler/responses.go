package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"fundledger/internal/campaign"
	"fundledger/pkg/apperr"
	"fundledger/pkg/money"
)

type createResponse struct {
	Index uint64 `json:"index"`
}

type donateResponse struct {
	Index   uint64       `json:"index"`
	Balance money.Amount `json:"balance"`
}

type endResponse struct {
	Index  uint64       `json:"index"`
	Payout money.Amount `json:"payout"`
}

type balanceResponse struct {
	Index   uint64       `json:"index"`
	Balance money.Amount `json:"balance"`
}

type listResponse struct {
	Count     uint64         `json:"count"`
	Campaigns []campaignView `json:"campaigns"`
}

type campaignView struct {
	Index        uint64          `json:"index"`
	Creator      string          `json:"creator"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Benefactor   string          `json:"benefactor,omitempty"`
	Goal         money.Amount    `json:"goal"`
	Deadline     time.Time       `json:"deadline"`
	AmountRaised money.Amount    `json:"amount_raised"`
	Ended        bool            `json:"ended"`
	Status       campaign.Status `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toView(c campaign.Campaign) campaignView {
	return campaignView{
		Index:        c.Index,
		Creator:      c.Creator.String(),
		Name:         c.Name,
		Description:  c.Description,
		Benefactor:   c.Benefactor.String(),
		Goal:         c.Goal,
		Deadline:     c.Deadline,
		AmountRaised: c.AmountRaised,
		Ended:        c.Ended,
		Status:       c.Status(),
		CreatedAt:    c.CreatedAt,
	}
}

func toViews(campaigns []campaign.Campaign) []campaignView {
	views := make([]campaignView, 0, len(campaigns))
	for _, c := range campaigns {
		views = append(views, toView(c))
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation so every handler returns
// the same JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": string(code),
	})
}
