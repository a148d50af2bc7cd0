package store

import (
	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/explorer"
)

// contextIDDoc is the BSON form of a context's identity key. Only the
// identity key is ever persisted alongside an event — not the full
// Context — so that a later change to a context's free-text Description
// never invalidates previously stored records (see SPEC_FULL.md, "Borrowed-
// vs-owned stored record").
type contextIDDoc struct {
	Network string `bson:"network"`
	Stash   string `bson:"stash"`
}

func toContextIDDoc(id monitor.ContextID) contextIDDoc {
	return contextIDDoc{Network: string(id.Network), Stash: id.Stash}
}

func (d contextIDDoc) toContextID() monitor.ContextID {
	return monitor.ContextID{Network: monitor.Network(d.Network), Stash: d.Stash}
}

// TransferRecord is a persisted transfer event.
type TransferRecord struct {
	ContextID monitor.ContextID
	Timestamp int64
	Data      explorer.Transfer
}

type transferDoc struct {
	ContextID      contextIDDoc      `bson:"context_id"`
	Timestamp      int64             `bson:"timestamp"`
	ExtrinsicIndex string            `bson:"extrinsic_index"`
	Data           explorer.Transfer `bson:"data"`
}

func newTransferDoc(id monitor.ContextID, ts int64, data explorer.Transfer) transferDoc {
	return transferDoc{
		ContextID:      toContextIDDoc(id),
		Timestamp:      ts,
		ExtrinsicIndex: data.ExtrinsicIndex,
		Data:           data,
	}
}

func (d transferDoc) toRecord() TransferRecord {
	return TransferRecord{ContextID: d.ContextID.toContextID(), Timestamp: d.Timestamp, Data: d.Data}
}

// RewardSlashRecord is a persisted reward or slash payout event.
type RewardSlashRecord struct {
	ContextID monitor.ContextID
	Timestamp int64
	Data      explorer.RewardSlash
}

// RewardSlash's natural key is (extrinsic_hash, event_id): a single
// extrinsic can carry both a Reward and a Slash row (see SPEC_FULL.md §3.1),
// so the hash alone is not enough to distinguish them.
type rewardSlashDoc struct {
	ContextID     contextIDDoc         `bson:"context_id"`
	Timestamp     int64                `bson:"timestamp"`
	ExtrinsicHash string               `bson:"extrinsic_hash"`
	EventID       string               `bson:"event_id"`
	Data          explorer.RewardSlash `bson:"data"`
}

func newRewardSlashDoc(id monitor.ContextID, ts int64, data explorer.RewardSlash) rewardSlashDoc {
	return rewardSlashDoc{
		ContextID:     toContextIDDoc(id),
		Timestamp:     ts,
		ExtrinsicHash: data.ExtrinsicHash,
		EventID:       data.EventID,
		Data:          data,
	}
}

func (d rewardSlashDoc) toRecord() RewardSlashRecord {
	return RewardSlashRecord{ContextID: d.ContextID.toContextID(), Timestamp: d.Timestamp, Data: d.Data}
}

// NominationRecord is a persisted nomination snapshot row.
type NominationRecord struct {
	ContextID monitor.ContextID
	Timestamp int64
	Data      explorer.Validator
}

type nominationDoc struct {
	ContextID  contextIDDoc       `bson:"context_id"`
	Timestamp  int64              `bson:"timestamp"`
	NaturalKey string             `bson:"natural_key"`
	Data       explorer.Validator `bson:"data"`
}

func newNominationDoc(id monitor.ContextID, ts int64, data explorer.Validator) nominationDoc {
	return nominationDoc{
		ContextID:  toContextIDDoc(id),
		Timestamp:  ts,
		NaturalKey: data.NaturalKey(),
		Data:       data,
	}
}

func (d nominationDoc) toRecord() NominationRecord {
	return NominationRecord{ContextID: d.ContextID.toContextID(), Timestamp: d.Timestamp, Data: d.Data}
}
