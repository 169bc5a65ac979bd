package campaign

import "fundledger/pkg/apperr"

// Every failure below is terminal for the call that raised it and leaves
// the ledger exactly as it was. The boundary decides whether to retry;
// TransferFailed in particular is retryable because settlement rolls back
// in full and the campaign stays eligible.
var (
	ErrInvalidIndex    = apperr.New(apperr.CodeInvalidIndex, "campaign index out of range")
	ErrNotAuthorized   = apperr.New(apperr.CodeNotAuthorized, "caller is not authorized for this operation")
	ErrClosed          = apperr.New(apperr.CodeCampaignClosed, "campaign deadline has passed")
	ErrStillOpen       = apperr.New(apperr.CodeCampaignStillOpen, "campaign deadline has not passed")
	ErrAlreadySettled  = apperr.New(apperr.CodeCampaignAlreadySettled, "campaign has already been settled")
	ErrNothingToSettle = apperr.New(apperr.CodeNothingToSettle, "campaign has no funds to settle")
	ErrNoBenefactor    = apperr.New(apperr.CodeNoBenefactor, "campaign has no benefactor on record")
	ErrOverflow        = apperr.New(apperr.CodeOverflow, "donation would overflow the campaign balance")
	ErrReentrantCall   = apperr.New(apperr.CodeReentrantCall, "another settlement is in progress")
	ErrTransferFailed  = apperr.New(apperr.CodeTransferFailed, "payout transfer failed; settlement rolled back")
)
