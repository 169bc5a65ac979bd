package handler

import (
	"time"

	"fundledger/internal/campaign/service"
	"fundledger/pkg/apperr"
	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Benefactor  string `json:"benefactor"`
	Goal        string `json:"goal"`
	// DurationSeconds is relative: the deadline is computed server-side
	// as now+duration.
	DurationSeconds int64 `json:"duration_seconds"`
}

func (r createRequest) toInput() (service.CreateInput, error) {
	goal := money.Zero()
	if r.Goal != "" {
		parsed, err := money.Parse(r.Goal)
		if err != nil {
			return service.CreateInput{}, apperr.New(apperr.CodeBadRequest, "invalid goal amount")
		}
		goal = parsed
	}
	// a zero benefactor is allowed at creation; settlement enforces it
	var benefactor identity.Address
	if r.Benefactor != "" {
		parsed, err := identity.Parse(r.Benefactor)
		if err != nil {
			return service.CreateInput{}, apperr.New(apperr.CodeBadRequest, "invalid benefactor address")
		}
		benefactor = parsed
	}
	return service.CreateInput{
		Name:        r.Name,
		Description: r.Description,
		Benefactor:  benefactor,
		Goal:        goal,
		Duration:    time.Duration(r.DurationSeconds) * time.Second,
	}, nil
}

type donateRequest struct {
	Amount string `json:"amount"`
}
