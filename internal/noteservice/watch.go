package noteservice

import (
	"errors"
	"log/slog"

	"github.com/starford/now/internal/apperr"
	"github.com/starford/now/internal/checksum"
	"github.com/starford/now/internal/index"
	"github.com/starford/now/internal/models"
)

var _ index.Handler = (*Service)(nil)

// FileChanged picks up an edit made outside the service. Files whose
// content matches the loaded note are ignored, which also covers the
// events caused by the service's own writes.
func (s *Service) FileChanged(id string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := s.store.Read(id)
	if errors.Is(err, apperr.ErrNotFound) {
		s.removeLocked(id)
		return
	}
	if err != nil {
		s.logger.Warn("watch: read failed", slog.String("id", id), slog.String("error", err.Error()))
		return
	}
	sum := checksum.Sum(data)
	if _, cur, ok := s.lookup(id); ok && cur == sum {
		return
	}
	s.logger.Debug("watch: note changed", slog.String("id", id))
	s.commitLocked(map[string]*models.Note{id: s.parse(id, data)}, map[string]string{id: sum}, nil)
}

// FileRemoved drops a note deleted outside the service.
func (s *Service) FileRemoved(id string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.removeLocked(id)
}

func (s *Service) removeLocked(id string) {
	if _, _, ok := s.lookup(id); !ok {
		return
	}
	s.logger.Debug("watch: note removed", slog.String("id", id))
	s.commitLocked(nil, nil, []string{id})
}

// Reconcile compares the vault with the note set and applies every
// difference in a single rebuild.
func (s *Service) Reconcile() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	metas, err := s.store.List("")
	if err != nil {
		s.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	s.mu.RLock()
	known := make(map[string]string, len(s.sums))
	for id, sum := range s.sums {
		known[id] = sum
	}
	s.mu.RUnlock()

	changed := map[string]*models.Note{}
	sums := map[string]string{}
	for _, m := range metas {
		cur, ok := known[m.Path]
		delete(known, m.Path)
		if ok && cur == m.Checksum {
			continue
		}
		data, err := s.store.Read(m.Path)
		if err != nil {
			continue
		}
		changed[m.Path] = s.parse(m.Path, data)
		sums[m.Path] = checksum.Sum(data)
	}

	removed := make([]string, 0, len(known))
	for id := range known {
		removed = append(removed, id)
	}
	if len(changed) == 0 && len(removed) == 0 {
		return
	}
	s.logger.Debug("reconcile: applying", slog.Int("changed", len(changed)), slog.Int("removed", len(removed)))
	s.commitLocked(changed, sums, removed)
}
