package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"pollbooth/internal/audit"
	"pollbooth/internal/ledger"
	"pollbooth/internal/registry"
	"pollbooth/pkg/platform/sentinel"
)

// Memory is a non-durable store keyed by generated ids. One lock guards all
// entity maps so RecordVote can check and set hasVoted together with the
// vote insert.
type Memory struct {
	mu sync.RWMutex

	officers     map[uuid.UUID]*registry.Officer
	officerIndex map[string]uuid.UUID

	voters     map[uuid.UUID]*registry.Voter
	voterIndex map[string]uuid.UUID

	candidates map[uuid.UUID]*registry.Candidate
	votes      map[uuid.UUID]*ledger.Vote

	entries  map[uuid.UUID]auditRecord
	auditSeq uint64
}

type auditRecord struct {
	entry audit.Entry
	seq   uint64
}

func NewMemory() *Memory {
	return &Memory{
		officers:     make(map[uuid.UUID]*registry.Officer),
		officerIndex: make(map[string]uuid.UUID),
		voters:       make(map[uuid.UUID]*registry.Voter),
		voterIndex:   make(map[string]uuid.UUID),
		candidates:   make(map[uuid.UUID]*registry.Candidate),
		votes:        make(map[uuid.UUID]*ledger.Vote),
		entries:      make(map[uuid.UUID]auditRecord),
	}
}

func (m *Memory) SaveOfficer(_ context.Context, officer *registry.Officer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.officerIndex[officer.OfficerID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	o := *officer
	m.officers[o.ID] = &o
	m.officerIndex[o.OfficerID] = o.ID
	return nil
}

func (m *Memory) SaveVoter(_ context.Context, voter *registry.Voter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.voterIndex[voter.VoterID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	v := *voter
	m.voters[v.ID] = &v
	m.voterIndex[v.VoterID] = v.ID
	return nil
}

func (m *Memory) SaveCandidate(_ context.Context, candidate *registry.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.candidates[candidate.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *candidate
	m.candidates[c.ID] = &c
	return nil
}

func (m *Memory) FindOfficerByOfficerID(_ context.Context, officerID string) (*registry.Officer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.officerIndex[officerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	o := *m.officers[id]
	return &o, nil
}

func (m *Memory) FindVoterByVoterID(_ context.Context, voterID string) (*registry.Voter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.voterIndex[voterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	v := *m.voters[id]
	return &v, nil
}

func (m *Memory) ListCandidatesByBooth(_ context.Context, boothID string) ([]*registry.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*registry.Candidate
	for _, c := range m.candidates {
		if c.BoothID == boothID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RecordVote checks the voter's flag, inserts the vote and sets the flag
// under a single write lock.
func (m *Memory) RecordVote(_ context.Context, vote *ledger.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.voterIndex[vote.VoterID]
	if !ok {
		return sentinel.ErrNotFound
	}
	voter := m.voters[id]
	if voter.HasVoted {
		return sentinel.ErrAlreadyUsed
	}
	v := *vote
	m.votes[v.ID] = &v
	voter.HasVoted = true
	return nil
}

func (m *Memory) ListVotesByBooth(_ context.Context, boothID string) ([]*ledger.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ledger.Vote
	for _, v := range m.votes {
		if v.BoothID == boothID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) AppendAuditEntry(_ context.Context, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditSeq++
	m.entries[entry.ID] = auditRecord{entry: *entry, seq: m.auditSeq}
	return nil
}

// ListAuditEntriesByBooth orders newest first; entries sharing a timestamp
// fall back to reverse insertion order.
func (m *Memory) ListAuditEntriesByBooth(_ context.Context, boothID string, limit int) ([]*audit.Entry, error) {
	m.mu.RLock()
	records := make([]auditRecord, 0)
	for _, r := range m.entries {
		if r.entry.BoothID == boothID {
			records = append(records, r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		ti, tj := records[i].entry.Timestamp, records[j].entry.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return records[i].seq > records[j].seq
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	out := make([]*audit.Entry, len(records))
	for i := range records {
		e := records[i].entry
		out[i] = &e
	}
	return out, nil
}
