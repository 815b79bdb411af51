// Package state holds the console's persisted selections, session and
// pending team edits. One Store is opened per process and passed to every
// consumer.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"suitehub/internal/platform/models"
)

type Session struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// PendingEdit is a local team change not yet sent to the server. BaseUpdatedAt
// is the server's updated_at when the edit was staged.
type PendingEdit struct {
	TeamID        string           `json:"team_id"`
	Patch         models.TeamPatch `json:"patch"`
	BaseUpdatedAt int64            `json:"base_updated_at"`
}

type document struct {
	ActiveTeamID string                 `json:"active_team_id,omitempty"`
	ActiveApp    string                 `json:"active_app,omitempty"`
	Session      *Session               `json:"session,omitempty"`
	PendingEdits map[string]PendingEdit `json:"pending_edits,omitempty"`
}

type Store struct {
	mu   sync.RWMutex
	path string
	doc  document
}

// Open loads the state file at path. A missing file yields an empty store;
// an empty path keeps everything in memory.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.doc); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	return s, nil
}

// save writes the document atomically. Callers hold mu.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *Store) ActiveTeamID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.ActiveTeamID
}

func (s *Store) SetActiveTeam(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.ActiveTeamID == id {
		return nil
	}
	s.doc.ActiveTeamID = id
	return s.save()
}

func (s *Store) ActiveApp() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.ActiveApp
}

func (s *Store) SetActiveApp(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.ActiveApp == code {
		return nil
	}
	s.doc.ActiveApp = code
	return s.save()
}

// Session returns a copy of the signed-in identity, or nil.
func (s *Store) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc.Session == nil {
		return nil
	}
	sess := *s.doc.Session
	return &sess
}

func (s *Store) SetSession(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Session = &sess
	return s.save()
}

// Token implements remote.Identity.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc.Session == nil {
		return ""
	}
	return s.doc.Session.AccessToken
}

// Email of the signed-in account, or "".
func (s *Store) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc.Session == nil {
		return ""
	}
	return s.doc.Session.Email
}

// Reset drops the session. Selections and pending edits survive so the user
// lands back where they were after signing in again.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Session == nil {
		return nil
	}
	s.doc.Session = nil
	return s.save()
}

func (s *Store) StageTeamEdit(teamID string, patch models.TeamPatch, baseUpdatedAt int64) error {
	if teamID == "" {
		return errors.New("team id is required")
	}
	if patch.Empty() {
		return errors.New("nothing to change")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.PendingEdits == nil {
		s.doc.PendingEdits = map[string]PendingEdit{}
	}

	// Later edits to the same team stack on the earlier ones and keep the
	// original base.
	if prev, ok := s.doc.PendingEdits[teamID]; ok {
		patch = merge(prev.Patch, patch)
		baseUpdatedAt = prev.BaseUpdatedAt
	}
	s.doc.PendingEdits[teamID] = PendingEdit{TeamID: teamID, Patch: patch, BaseUpdatedAt: baseUpdatedAt}
	return s.save()
}

func merge(base, next models.TeamPatch) models.TeamPatch {
	if next.Name != nil {
		base.Name = next.Name
	}
	if next.Logo != nil {
		base.Logo = next.Logo
	}
	if next.BillingEmail != nil {
		base.BillingEmail = next.BillingEmail
	}
	if next.TaxID != nil {
		base.TaxID = next.TaxID
	}
	if next.Address != nil {
		base.Address = next.Address
	}
	return base
}

func (s *Store) DiscardEdit(teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doc.PendingEdits[teamID]; !ok {
		return nil
	}
	delete(s.doc.PendingEdits, teamID)
	return s.save()
}

// PendingEdits lists staged edits ordered by team id.
func (s *Store) PendingEdits() []PendingEdit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edits := make([]PendingEdit, 0, len(s.doc.PendingEdits))
	for _, e := range s.doc.PendingEdits {
		edits = append(edits, e)
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].TeamID < edits[j].TeamID })
	return edits
}

// Overlay returns the server teams with pending edits applied. An edit staged
// against an older updated_at than the server now reports is dropped and its
// team id returned in stale. Edits for teams missing from the list are kept
// untouched. The input teams are not modified.
func (s *Store) Overlay(teams []*models.Team) (merged []*models.Team, stale []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged = make([]*models.Team, 0, len(teams))
	for _, t := range teams {
		if t == nil {
			continue
		}
		edit, ok := s.doc.PendingEdits[t.ID]
		if !ok {
			merged = append(merged, t)
			continue
		}
		if t.UpdatedAt > edit.BaseUpdatedAt {
			delete(s.doc.PendingEdits, t.ID)
			stale = append(stale, t.ID)
			merged = append(merged, t)
			continue
		}
		cp := *t
		edit.Patch.Apply(&cp)
		merged = append(merged, &cp)
	}

	if len(stale) > 0 {
		err = s.save()
	}
	return merged, stale, err
}
