/*
pending.go - Read-side projection of groups with unprocessed members

PURPOSE:
  Decides which client-month groups still need a document generated. A
  group's member list is permanent history; "pending" is computed here at
  read time by filtering that list on each member's Processed status.

WHY A PROJECTION?
  Separating permanent membership from processing status means a group can
  be revisited indefinitely as new records arrive for the same client and
  month, without ever losing the history of what was already generated.
  The cost is an O(n) re-filter per read, which is nothing at the ledger
  sizes involved.
*/
package ledger

import (
	"context"
	"log"
)

// PendingGroup is one group with work left to do: the group key plus the
// payloads of the members that are still unprocessed, in ingestion order.
type PendingGroup struct {
	Key     GroupKey
	Members []RawRecord
}

// MemberIDs returns the ids of the unprocessed members.
func (g PendingGroup) MemberIDs() []RecordID {
	ids := make([]RecordID, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}

// PendingGroups returns every group that currently has at least one
// unprocessed member, keyed by group key. Groups whose members are all
// processed are omitted. The projection never mutates state; member lists
// keep their full length regardless of how many members are filtered out.
func (l *Ledger) PendingGroups(ctx context.Context) (map[GroupKey]PendingGroup, error) {
	doc, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	index := doc.byID()
	pending := make(map[GroupKey]PendingGroup)

	for key, memberIDs := range doc.Groups {
		var members []RawRecord
		for _, id := range memberIDs {
			rec, ok := index[id]
			if !ok {
				// Membership without an entry should not happen; treat as
				// unprocessable rather than inventing a record.
				log.Printf("ledger: group %s references unknown record %d", key, id)
				continue
			}
			if !rec.Processed {
				members = append(members, rec.Payload)
			}
		}
		if len(members) > 0 {
			pending[key] = PendingGroup{Key: key, Members: members}
			log.Printf("ledger: group %s has %d of %d members unprocessed", key, len(members), len(memberIDs))
		}
	}
	return pending, nil
}
