package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"groups/snapshot"
	"groups/solver"
	"groups/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// storeError maps store errors to responses.
func (s *server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "snapshot not found", http.StatusNotFound)
		return
	}
	s.logger.Error("store failure", "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *server) handleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Ping(r.Context()); err != nil {
			http.Error(w, "db unhealthy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	}
}

func (s *server) handleListSnapshots() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.auth.requireAdmin(w, r); !ok {
			return
		}
		snaps, err := s.store.ListSnapshots(r.Context())
		if err != nil {
			s.storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snaps)
	}
}

// handleCreateSnapshot imports an exported configuration record.
func (s *server) handleCreateSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.auth.requireAdmin(w, r)
		if !ok {
			return
		}
		cfg, err := snapshot.Read(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = cfg.Name
		}
		if name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		s.warnUnknownKinds(cfg)
		snap, err := s.store.CreateSnapshot(r.Context(), name, cfg)
		if err != nil {
			s.storeError(w, err)
			return
		}
		s.logger.Info("snapshot created", "snapshot", snap.ID, "students", len(cfg.Students), "by", email)
		writeJSON(w, http.StatusCreated, store.Snapshot{ID: snap.ID, Name: snap.Name, CreatedAt: snap.CreatedAt})
	}
}

func (s *server) handleGetSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.auth.requireAdmin(w, r); !ok {
			return
		}
		snap, err := s.store.GetSnapshot(r.Context(), chi.URLParam(r, "snapshotID"))
		if err != nil {
			s.storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// handleExportSnapshot returns the stored configuration in its exported
// file form.
func (s *server) handleExportSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.auth.requireAdmin(w, r); !ok {
			return
		}
		snap, err := s.store.GetSnapshot(r.Context(), chi.URLParam(r, "snapshotID"))
		if err != nil {
			s.storeError(w, err)
			return
		}
		cfg := *snap.Config
		if cfg.Name == "" {
			cfg.Name = snap.Name
		}
		if cfg.CreatedAt.IsZero() {
			cfg.CreatedAt = snap.CreatedAt
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "groups-"+snap.ID+".json"))
		snapshot.Write(w, &cfg)
	}
}

func (s *server) handleDeleteSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.auth.requireAdmin(w, r); !ok {
			return
		}
		if err := s.store.DeleteSnapshot(r.Context(), chi.URLParam(r, "snapshotID")); err != nil {
			s.storeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *server) handleListRuns() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.auth.requireAdmin(w, r); !ok {
			return
		}
		runs, err := s.store.ListRuns(r.Context(), chi.URLParam(r, "snapshotID"))
		if err != nil {
			s.storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

type generateParams struct {
	groupSize int
	seed      int64
}

func (s *server) parseGenerateParams(r *http.Request) (generateParams, error) {
	p := generateParams{groupSize: s.groupSize, seed: time.Now().UnixNano()}
	q := r.URL.Query()
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid size %q", v)
		}
		p.groupSize = n
	}
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, fmt.Errorf("invalid seed %q", v)
		}
		p.seed = n
	}
	return p, nil
}

func (s *server) warnUnknownKinds(cfg *snapshot.Configuration) {
	for _, c := range solver.UnknownKinds(cfg.EngineConstraints()) {
		s.logger.Warn("constraint type is not recognised and will be ignored", "constraint", c.ID, "type", c.Kind)
	}
}

// generate runs the engine for cfg and reports the outcome to metrics. On
// failure attempts is the exhausted budget.
func (s *server) generate(cfg *snapshot.Configuration, p generateParams) (res *snapshot.Result, attempts int, err error) {
	s.warnUnknownKinds(cfg)
	gen := cfg.Generator(p.groupSize,
		solver.WithRand(rand.New(rand.NewSource(p.seed))),
		solver.WithMaxAttempts(s.maxAttempts),
		solver.WithLogger(s.logger))

	start := time.Now()
	out, err := gen.Generate()
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.RecordGeneration(store.OutcomeNoSolution, gen.MaxAttempts(), elapsed)
		s.logger.Info("generation failed",
			"students", len(cfg.Students), "group_size", gen.GroupSize(), "seed", p.seed, "error", err)
		return nil, gen.MaxAttempts(), err
	}
	s.metrics.RecordGeneration(store.OutcomeSolved, out.Attempts, elapsed)
	res = snapshot.NewResult(gen.GroupSize(), out, cfg.EngineConstraints())
	res.Seed = &p.seed
	return res, out.Attempts, nil
}

func writeNoSolution(w http.ResponseWriter, attempts int) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":    solver.ErrNoSolution.Error(),
		"attempts": attempts,
	})
}

func (s *server) handleGenerateSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.auth.requireAdmin(w, r); !ok {
			return
		}
		p, err := s.parseGenerateParams(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		snap, err := s.store.GetSnapshot(r.Context(), chi.URLParam(r, "snapshotID"))
		if err != nil {
			s.storeError(w, err)
			return
		}

		res, attempts, genErr := s.generate(snap.Config, p)
		run := &store.Run{
			SnapshotID: snap.ID,
			Seed:       p.seed,
			Attempts:   attempts,
			Outcome:    store.OutcomeNoSolution,
		}
		if genErr == nil {
			run.Outcome = store.OutcomeSolved
			run.GroupSize = res.GroupSize
			run.Groups = res.Groups
			run.Stats = res.Stats
		} else {
			run.GroupSize = p.groupSize
		}
		if err := s.store.CreateRun(r.Context(), run); err != nil {
			s.storeError(w, err)
			return
		}

		if errors.Is(genErr, solver.ErrNoSolution) {
			writeNoSolution(w, attempts)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"run_id": run.ID, "result": res})
	}
}

// handleGenerate runs the engine on a configuration posted in the body
// without storing anything.
func (s *server) handleGenerate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.auth.requireAdmin(w, r); !ok {
			return
		}
		p, err := s.parseGenerateParams(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cfg, err := snapshot.Read(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res, attempts, err := s.generate(cfg, p)
		if errors.Is(err, solver.ErrNoSolution) {
			writeNoSolution(w, attempts)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
