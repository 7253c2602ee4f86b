// Package correlation implements the key schema the transport worker uses
// to correlate outbound bus messages with submit_sm sequence numbers and,
// later, with the SMSC-assigned third-party message id carried in
// submit_sm_resp and delivery reports.
package correlation

import (
	"context"
	"fmt"
	"time"

	"github.com/Mbosco/vumi/kvstore"
)

const messagePrefix = "message_json"
const thirdPartyPrefix = "3rd_party_id"

// DefaultThirdPartyIDExpiry is how long a third-party-id mapping is kept
// around waiting for a matching delivery report, matching the vumi
// transport's third_party_id_expiry default of 7 days.
const DefaultThirdPartyIDExpiry = 7 * 24 * time.Hour

// Store wraps a KVStore with the correlation operations the worker needs.
// All keys live within whatever namespace the caller's KVStore.Sub was
// already scoped to (normally the bind's split_bind_prefix or
// system_id@host:port).
type Store struct {
	kv                 kvstore.KVStore
	thirdPartyIDExpiry time.Duration
}

// New wraps kv with the given third-party-id TTL. A zero ttl uses
// DefaultThirdPartyIDExpiry.
func New(kv kvstore.KVStore, ttl time.Duration) *Store {
	if ttl == 0 {
		ttl = DefaultThirdPartyIDExpiry
	}
	return &Store{kv: kv, thirdPartyIDExpiry: ttl}
}

func messageKey(messageID string) string {
	return fmt.Sprintf("%s#%s", messagePrefix, messageID)
}

func thirdPartyKey(thirdPartyID string) string {
	return fmt.Sprintf("%s#%s", thirdPartyPrefix, thirdPartyID)
}

// StoreOutboundJSON saves the raw JSON body of an outbound message, keyed
// by its message id, so the worker can reconstruct it later if needed (for
// example to retry on ESME_RTHROTTLED).
func (s *Store) StoreOutboundJSON(ctx context.Context, messageID, json string) error {
	return s.kv.Set(ctx, messageKey(messageID), json)
}

// TakeOutboundJSON reads back and deletes the JSON body stored under
// messageID.
func (s *Store) TakeOutboundJSON(ctx context.Context, messageID string) (string, error) {
	v, err := s.kv.Get(ctx, messageKey(messageID))
	if err != nil {
		return "", err
	}
	if err := s.kv.Delete(ctx, messageKey(messageID)); err != nil {
		return "", err
	}
	return v, nil
}

// GetOutboundJSON reads, without deleting, the JSON body stored under
// messageID.
func (s *Store) GetOutboundJSON(ctx context.Context, messageID string) (string, error) {
	return s.kv.Get(ctx, messageKey(messageID))
}

// DeleteOutboundJSON removes the stored body for messageID.
func (s *Store) DeleteOutboundJSON(ctx context.Context, messageID string) error {
	return s.kv.Delete(ctx, messageKey(messageID))
}

// BindSequence records that sequenceNumber was used to submit messageID,
// so the worker can recover messageID when submit_sm_resp arrives.
func (s *Store) BindSequence(ctx context.Context, sequenceNumber uint32, messageID string) error {
	return s.kv.Set(ctx, sequenceKey(sequenceNumber), messageID)
}

// ResolveSequence returns the messageID previously bound to
// sequenceNumber and removes the mapping.
func (s *Store) ResolveSequence(ctx context.Context, sequenceNumber uint32) (string, error) {
	key := sequenceKey(sequenceNumber)
	id, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if err := s.kv.Delete(ctx, key); err != nil {
		return "", err
	}
	return id, nil
}

func sequenceKey(sequenceNumber uint32) string {
	return fmt.Sprintf("%d", sequenceNumber)
}

// BindThirdPartyID records that thirdPartyID (the SMSC message id returned
// in submit_sm_resp) refers to messageID, with a TTL so the mapping is
// eventually reclaimed if no delivery report ever arrives.
func (s *Store) BindThirdPartyID(ctx context.Context, thirdPartyID, messageID string) error {
	key := thirdPartyKey(thirdPartyID)
	if err := s.kv.SetEx(ctx, key, messageID, s.thirdPartyIDExpiry); err != nil {
		return err
	}
	return nil
}

// ResolveThirdPartyID returns the messageID bound to thirdPartyID, if any.
// The mapping is left in place: a single third-party id may be referenced
// by more than one delivery report over the life of a message.
func (s *Store) ResolveThirdPartyID(ctx context.Context, thirdPartyID string) (string, error) {
	return s.kv.Get(ctx, thirdPartyKey(thirdPartyID))
}

// DeleteThirdPartyID removes the mapping for thirdPartyID.
func (s *Store) DeleteThirdPartyID(ctx context.Context, thirdPartyID string) error {
	return s.kv.Delete(ctx, thirdPartyKey(thirdPartyID))
}
