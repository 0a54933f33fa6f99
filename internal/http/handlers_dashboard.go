package http

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"garage/internal/core"
)

// parsePeriod validates the year and all_time query parameters. A
// malformed value never reaches the aggregator.
func parsePeriod(r *http.Request) (core.Period, error) {
	p := core.Period{Year: time.Now().Year()}

	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1000 || year > 9999 {
			return core.Period{}, core.ErrInvalidYear
		}
		p.Year = year
	}

	if raw := r.URL.Query().Get("all_time"); raw != "" {
		allTime, err := strconv.ParseBool(raw)
		if err != nil {
			return core.Period{}, core.ErrInvalidYear
		}
		p.AllTime = allTime
	}

	return p, nil
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		writeErrorMessage(w, http.StatusUnprocessableEntity, "invalid year or all_time parameter")
		return
	}

	var (
		vehicles    []core.Vehicle
		maintenance []core.Maintenance
		mods        []core.Mod
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		vehicles, err = s.store.ListVehicles(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		maintenance, err = s.store.ListMaintenanceInPeriod(ctx, period)
		return err
	})
	g.Go(func() error {
		var err error
		mods, err = s.store.ListModsInPeriod(ctx, period)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}

	stats := core.BuildDashboard(vehicles, maintenance, mods, period)
	writeJSON(w, http.StatusOK, toDashboardResponse(stats))
}
