package ingestion

import (
	"encoding/json"
	"fmt"

	"StakeVault/internal/event"
)

// EncodeCommand serializes a typed command back into the wire format
// ParseRawCommand accepts. The persisted event log stores commands in
// this form so replay goes through the same parse path as live traffic.
func EncodeCommand(evt event.Event) ([]byte, error) {
	switch e := evt.(type) {
	case *event.DepositRequested:
		return json.Marshal(depositJSON{
			DepositID:   e.DepositID.String(),
			UserID:      e.UserID.String(),
			ReceiverID:  e.ReceiverID.String(),
			Amount:      e.Amount,
			Sequence:    e.Sequence,
			TimestampUs: e.Timestamp.UnixMicro(),
		})
	case *event.DelegateRequested:
		return json.Marshal(delegateJSON{
			RequestID:   e.RequestID.String(),
			OperatorID:  e.OperatorID.String(),
			Subject:     e.SubjectID,
			Amount:      e.Amount,
			Sequence:    e.Sequence,
			TimestampUs: e.Timestamp.UnixMicro(),
		})
	case *event.UndelegateInitiated:
		return json.Marshal(undelegateInitiateJSON{
			RequestID:   e.RequestID.String(),
			OperatorID:  e.OperatorID.String(),
			Subject:     e.SubjectID,
			Units:       e.Units,
			Sequence:    e.Sequence,
			TimestampUs: e.Timestamp.UnixMicro(),
		})
	case *event.UndelegateFinalized:
		return json.Marshal(undelegateFinalizeJSON{
			RequestID:   e.RequestID.String(),
			CallerID:    e.CallerID.String(),
			Subject:     e.SubjectID,
			Sequence:    e.Sequence,
			TimestampUs: e.Timestamp.UnixMicro(),
		})
	case *event.RedeemRequested:
		return json.Marshal(redeemJSON{
			RequestID:   e.RequestID.String(),
			CallerID:    e.CallerID.String(),
			OwnerID:     e.OwnerID.String(),
			ReceiverID:  e.ReceiverID.String(),
			ShareAmount: e.ShareAmount,
			Sequence:    e.Sequence,
			TimestampUs: e.Timestamp.UnixMicro(),
		})
	case *event.ClaimRequested:
		return json.Marshal(claimJSON{
			RequestID:   e.RequestID.String(),
			CallerID:    e.CallerID.String(),
			ReceiverID:  e.ReceiverID.String(),
			Sequence:    e.Sequence,
			TimestampUs: e.Timestamp.UnixMicro(),
		})
	case *event.ApproveRequested:
		return json.Marshal(approveJSON{
			RequestID:   e.RequestID.String(),
			OwnerID:     e.OwnerID.String(),
			SpenderID:   e.SpenderID.String(),
			Amount:      e.Amount,
			Sequence:    e.Sequence,
			TimestampUs: e.Timestamp.UnixMicro(),
		})
	case *event.RewardsClaimRequested:
		return json.Marshal(rewardsClaimJSON{
			RequestID:   e.RequestID.String(),
			OperatorID:  e.OperatorID.String(),
			Subject:     e.SubjectID,
			Epoch:       e.Epoch,
			Sequence:    e.Sequence,
			TimestampUs: e.Timestamp.UnixMicro(),
		})
	case *event.FeeTreasuryUpdated:
		return json.Marshal(feeTreasuryJSON{
			RequestID:   e.RequestID.String(),
			AdminID:     e.AdminID.String(),
			Treasury:    e.Treasury.String(),
			Sequence:    e.Sequence,
			TimestampUs: e.Timestamp.UnixMicro(),
		})
	case *event.FeeBasisPointsUpdated:
		return json.Marshal(feeBasisPointsJSON{
			RequestID:   e.RequestID.String(),
			AdminID:     e.AdminID.String(),
			BasisPoints: e.BasisPoints,
			Sequence:    e.Sequence,
			TimestampUs: e.Timestamp.UnixMicro(),
		})
	default:
		return nil, fmt.Errorf("unencodable event type: %T", evt)
	}
}
