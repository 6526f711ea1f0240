package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ErrorOrigin names where a failure originated.
type ErrorOrigin string

const (
	OriginClient    ErrorOrigin = "client"
	OriginCore      ErrorOrigin = "core"
	OriginProvider  ErrorOrigin = "provider"
	OriginBank      ErrorOrigin = "bank"
	OriginRecipient ErrorOrigin = "recipient"
)

// LiabilityParty names who bears the loss.
type LiabilityParty string

const (
	PartyClient    LiabilityParty = "client"
	PartyPSP       LiabilityParty = "psp"
	PartyProvider  LiabilityParty = "provider"
	PartyRecipient LiabilityParty = "recipient"
)

type RecoveryPath string

const (
	RecoveryPathNone           RecoveryPath = "none"
	RecoveryPathDebitClient    RecoveryPath = "debit_client"
	RecoveryPathReclaim        RecoveryPath = "reclaim"
	RecoveryPathProviderCredit RecoveryPath = "provider_credit"
)

type RecoveryStatus string

const (
	RecoveryStatusPending    RecoveryStatus = "pending"
	RecoveryStatusRecovered  RecoveryStatus = "recovered"
	RecoveryStatusDisputed   RecoveryStatus = "disputed"
	RecoveryStatusWrittenOff RecoveryStatus = "written_off"
)

// ValidRecoveryStatus reports whether s is a terminal progression target.
func ValidRecoveryStatus(s RecoveryStatus) bool {
	switch s {
	case RecoveryStatusRecovered, RecoveryStatusDisputed, RecoveryStatusWrittenOff:
		return true
	}

	return false
}

// LiabilityEvent records who bears the loss for a returned or failed
// payment. Created alongside the compensating ledger reversal, never
// independently; only RecoveryStatus progresses afterwards.
type LiabilityEvent struct {
	CreatedAt      time.Time
	ResolvedAt     *time.Time
	ID             string
	TenantID       string
	SourceType     string
	SourceID       string
	ReturnCode     string
	Reason         string
	IdempotencyKey string
	ErrorOrigin    ErrorOrigin
	LiabilityParty LiabilityParty
	RecoveryPath   RecoveryPath
	RecoveryStatus RecoveryStatus
	LossAmount     decimal.Decimal
}

// AdvanceRecovery progresses the recovery status. Terminal states are final.
func (le *LiabilityEvent) AdvanceRecovery(to RecoveryStatus, at time.Time) error {
	if !ValidRecoveryStatus(to) {
		return ErrInvalidRecovery
	}

	if le.RecoveryStatus != RecoveryStatusPending && le.RecoveryStatus != RecoveryStatusDisputed {
		return ErrRecoveryTerminal
	}

	le.RecoveryStatus = to
	le.ResolvedAt = &at

	return nil
}

// Classification is the deterministic output of the return-code rules.
type Classification struct {
	ErrorOrigin    ErrorOrigin
	LiabilityParty LiabilityParty
	RecoveryPath   RecoveryPath
	Reason         string
}

// achReturnRules maps NACHA-style return codes to classifications.
var achReturnRules = map[string]Classification{
	"R01": {OriginRecipient, PartyRecipient, RecoveryPathReclaim, "insufficient funds at receiving account"},
	"R02": {OriginClient, PartyClient, RecoveryPathDebitClient, "account closed"},
	"R03": {OriginClient, PartyClient, RecoveryPathDebitClient, "no account / unable to locate"},
	"R04": {OriginClient, PartyClient, RecoveryPathDebitClient, "invalid account number"},
	"R05": {OriginRecipient, PartyRecipient, RecoveryPathNone, "unauthorized debit to consumer account"},
	"R06": {OriginCore, PartyPSP, RecoveryPathNone, "returned per originator request"},
	"R07": {OriginRecipient, PartyRecipient, RecoveryPathNone, "authorization revoked"},
	"R08": {OriginRecipient, PartyRecipient, RecoveryPathNone, "payment stopped"},
	"R09": {OriginRecipient, PartyRecipient, RecoveryPathReclaim, "uncollected funds"},
	"R10": {OriginRecipient, PartyRecipient, RecoveryPathNone, "customer advises not authorized"},
	"R16": {OriginBank, PartyClient, RecoveryPathNone, "account frozen"},
	"R20": {OriginClient, PartyClient, RecoveryPathDebitClient, "non-transaction account"},
	"R29": {OriginRecipient, PartyRecipient, RecoveryPathNone, "corporate customer advises not authorized"},
}

// ClassifyReturnCode maps a rail and return code to a classification.
// Unmapped codes classify as provider liability pending manual review.
func ClassifyReturnCode(rail Rail, code string) Classification {
	if c, ok := achReturnRules[code]; ok {
		return c
	}

	return Classification{
		ErrorOrigin:    OriginProvider,
		LiabilityParty: PartyProvider,
		RecoveryPath:   RecoveryPathNone,
		Reason:         "unmapped return code " + code + " on rail " + string(rail),
	}
}
