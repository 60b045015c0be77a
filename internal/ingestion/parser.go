package ingestion

import (
	"StakeVault/internal/event"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ParseRawCommand converts a RawEvent (JSON bytes + event type string) into
// a typed event.Event. The ingestion shell validates, parses, and converts
// raw commands before sending them to the deterministic core.
func ParseRawCommand(raw RawEvent, eventType string) (event.Event, error) {
	switch eventType {
	case "DepositRequested":
		return parseDepositRequested(raw.Data)
	case "DelegateRequested":
		return parseDelegateRequested(raw.Data)
	case "UndelegateInitiated":
		return parseUndelegateInitiated(raw.Data)
	case "UndelegateFinalized":
		return parseUndelegateFinalized(raw.Data)
	case "RedeemRequested":
		return parseRedeemRequested(raw.Data)
	case "ClaimRequested":
		return parseClaimRequested(raw.Data)
	case "ApproveRequested":
		return parseApproveRequested(raw.Data)
	case "RewardsClaimRequested":
		return parseRewardsClaimRequested(raw.Data)
	case "FeeTreasuryUpdated":
		return parseFeeTreasuryUpdated(raw.Data)
	case "FeeBasisPointsUpdated":
		return parseFeeBasisPointsUpdated(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match upstream producers.

type depositJSON struct {
	DepositID   string `json:"deposit_id"`
	UserID      string `json:"user_id"`
	ReceiverID  string `json:"receiver_id"`
	Amount      int64  `json:"amount"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseDepositRequested(data []byte) (*event.DepositRequested, error) {
	var j depositJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse DepositRequested: %w", err)
	}
	depositID, err := uuid.Parse(j.DepositID)
	if err != nil {
		return nil, fmt.Errorf("parse deposit_id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w", err)
	}
	// Receiver defaults to the depositor.
	receiverID := userID
	if j.ReceiverID != "" {
		receiverID, err = uuid.Parse(j.ReceiverID)
		if err != nil {
			return nil, fmt.Errorf("parse receiver_id: %w", err)
		}
	}
	return &event.DepositRequested{
		DepositID:  depositID,
		UserID:     userID,
		ReceiverID: receiverID,
		Amount:     j.Amount,
		Sequence:   j.Sequence,
		Timestamp:  time.UnixMicro(j.TimestampUs),
	}, nil
}

type delegateJSON struct {
	RequestID   string `json:"request_id"`
	OperatorID  string `json:"operator_id"`
	Subject     string `json:"subject"`
	Amount      int64  `json:"amount"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseDelegateRequested(data []byte) (*event.DelegateRequested, error) {
	var j delegateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse DelegateRequested: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	operatorID, err := uuid.Parse(j.OperatorID)
	if err != nil {
		return nil, fmt.Errorf("parse operator_id: %w", err)
	}
	if j.Subject == "" {
		return nil, fmt.Errorf("subject must not be empty")
	}
	return &event.DelegateRequested{
		RequestID:  requestID,
		OperatorID: operatorID,
		SubjectID:  j.Subject,
		Amount:     j.Amount,
		Sequence:   j.Sequence,
		Timestamp:  time.UnixMicro(j.TimestampUs),
	}, nil
}

type undelegateInitiateJSON struct {
	RequestID   string `json:"request_id"`
	OperatorID  string `json:"operator_id"`
	Subject     string `json:"subject"`
	Units       int64  `json:"units"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseUndelegateInitiated(data []byte) (*event.UndelegateInitiated, error) {
	var j undelegateInitiateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse UndelegateInitiated: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	operatorID, err := uuid.Parse(j.OperatorID)
	if err != nil {
		return nil, fmt.Errorf("parse operator_id: %w", err)
	}
	if j.Subject == "" {
		return nil, fmt.Errorf("subject must not be empty")
	}
	return &event.UndelegateInitiated{
		RequestID:  requestID,
		OperatorID: operatorID,
		SubjectID:  j.Subject,
		Units:      j.Units,
		Sequence:   j.Sequence,
		Timestamp:  time.UnixMicro(j.TimestampUs),
	}, nil
}

type undelegateFinalizeJSON struct {
	RequestID   string `json:"request_id"`
	CallerID    string `json:"caller_id"`
	Subject     string `json:"subject"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseUndelegateFinalized(data []byte) (*event.UndelegateFinalized, error) {
	var j undelegateFinalizeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse UndelegateFinalized: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	callerID, err := uuid.Parse(j.CallerID)
	if err != nil {
		return nil, fmt.Errorf("parse caller_id: %w", err)
	}
	if j.Subject == "" {
		return nil, fmt.Errorf("subject must not be empty")
	}
	return &event.UndelegateFinalized{
		RequestID: requestID,
		CallerID:  callerID,
		SubjectID: j.Subject,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type redeemJSON struct {
	RequestID   string `json:"request_id"`
	CallerID    string `json:"caller_id"`
	OwnerID     string `json:"owner_id"`
	ReceiverID  string `json:"receiver_id"`
	ShareAmount int64  `json:"share_amount"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseRedeemRequested(data []byte) (*event.RedeemRequested, error) {
	var j redeemJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RedeemRequested: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	callerID, err := uuid.Parse(j.CallerID)
	if err != nil {
		return nil, fmt.Errorf("parse caller_id: %w", err)
	}
	// Owner and receiver default to the caller.
	ownerID := callerID
	if j.OwnerID != "" {
		ownerID, err = uuid.Parse(j.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("parse owner_id: %w", err)
		}
	}
	receiverID := callerID
	if j.ReceiverID != "" {
		receiverID, err = uuid.Parse(j.ReceiverID)
		if err != nil {
			return nil, fmt.Errorf("parse receiver_id: %w", err)
		}
	}
	return &event.RedeemRequested{
		RequestID:   requestID,
		CallerID:    callerID,
		OwnerID:     ownerID,
		ReceiverID:  receiverID,
		ShareAmount: j.ShareAmount,
		Sequence:    j.Sequence,
		Timestamp:   time.UnixMicro(j.TimestampUs),
	}, nil
}

type claimJSON struct {
	RequestID   string `json:"request_id"`
	CallerID    string `json:"caller_id"`
	ReceiverID  string `json:"receiver_id"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseClaimRequested(data []byte) (*event.ClaimRequested, error) {
	var j claimJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ClaimRequested: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	callerID, err := uuid.Parse(j.CallerID)
	if err != nil {
		return nil, fmt.Errorf("parse caller_id: %w", err)
	}
	receiverID := callerID
	if j.ReceiverID != "" {
		receiverID, err = uuid.Parse(j.ReceiverID)
		if err != nil {
			return nil, fmt.Errorf("parse receiver_id: %w", err)
		}
	}
	return &event.ClaimRequested{
		RequestID:  requestID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Sequence:   j.Sequence,
		Timestamp:  time.UnixMicro(j.TimestampUs),
	}, nil
}

type approveJSON struct {
	RequestID   string `json:"request_id"`
	OwnerID     string `json:"owner_id"`
	SpenderID   string `json:"spender_id"`
	Amount      int64  `json:"amount"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseApproveRequested(data []byte) (*event.ApproveRequested, error) {
	var j approveJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ApproveRequested: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	ownerID, err := uuid.Parse(j.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("parse owner_id: %w", err)
	}
	spenderID, err := uuid.Parse(j.SpenderID)
	if err != nil {
		return nil, fmt.Errorf("parse spender_id: %w", err)
	}
	return &event.ApproveRequested{
		RequestID: requestID,
		OwnerID:   ownerID,
		SpenderID: spenderID,
		Amount:    j.Amount,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type rewardsClaimJSON struct {
	RequestID   string `json:"request_id"`
	OperatorID  string `json:"operator_id"`
	Subject     string `json:"subject"`
	Epoch       int64  `json:"epoch"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseRewardsClaimRequested(data []byte) (*event.RewardsClaimRequested, error) {
	var j rewardsClaimJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RewardsClaimRequested: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	operatorID, err := uuid.Parse(j.OperatorID)
	if err != nil {
		return nil, fmt.Errorf("parse operator_id: %w", err)
	}
	if j.Subject == "" {
		return nil, fmt.Errorf("subject must not be empty")
	}
	return &event.RewardsClaimRequested{
		RequestID:  requestID,
		OperatorID: operatorID,
		SubjectID:  j.Subject,
		Epoch:      j.Epoch,
		Sequence:   j.Sequence,
		Timestamp:  time.UnixMicro(j.TimestampUs),
	}, nil
}

type feeTreasuryJSON struct {
	RequestID   string `json:"request_id"`
	AdminID     string `json:"admin_id"`
	Treasury    string `json:"treasury"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseFeeTreasuryUpdated(data []byte) (*event.FeeTreasuryUpdated, error) {
	var j feeTreasuryJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse FeeTreasuryUpdated: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	adminID, err := uuid.Parse(j.AdminID)
	if err != nil {
		return nil, fmt.Errorf("parse admin_id: %w", err)
	}
	treasury, err := uuid.Parse(j.Treasury)
	if err != nil {
		return nil, fmt.Errorf("parse treasury: %w", err)
	}
	return &event.FeeTreasuryUpdated{
		RequestID: requestID,
		AdminID:   adminID,
		Treasury:  treasury,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type feeBasisPointsJSON struct {
	RequestID   string `json:"request_id"`
	AdminID     string `json:"admin_id"`
	BasisPoints int64  `json:"basis_points"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseFeeBasisPointsUpdated(data []byte) (*event.FeeBasisPointsUpdated, error) {
	var j feeBasisPointsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse FeeBasisPointsUpdated: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	adminID, err := uuid.Parse(j.AdminID)
	if err != nil {
		return nil, fmt.Errorf("parse admin_id: %w", err)
	}
	return &event.FeeBasisPointsUpdated{
		RequestID:   requestID,
		AdminID:     adminID,
		BasisPoints: j.BasisPoints,
		Sequence:    j.Sequence,
		Timestamp:   time.UnixMicro(j.TimestampUs),
	}, nil
}
