package api

import (
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/eqflat/eqflat/pkg/errors"
	"github.com/eqflat/eqflat/pkg/pipeline"
	"github.com/eqflat/eqflat/pkg/render"
	"github.com/eqflat/eqflat/pkg/sysdef"
)

// reduceResponse is the JSON payload returned by POST /v1/reduce.
type reduceResponse struct {
	RunID     string           `json:"run_id"`
	DefHash   string           `json:"def_hash"`
	CacheHit  bool             `json:"cache_hit"`
	Block     sysdef.BlockJSON `json:"block"`
	Equations int              `json:"equations"`
	Removed   int              `json:"removed"`
	Duration  string           `json:"duration"`
}

func (s *Server) handleReduce(w http.ResponseWriter, r *http.Request) {
	def, err := sysdef.Parse(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts := optionsFromQuery(r)

	result, err := s.runner.Execute(r.Context(), def, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reduceResponse{
		RunID:     result.RunID,
		DefHash:   result.DefHash,
		CacheHit:  result.CacheHit,
		Block:     sysdef.ToJSON(result.Block),
		Equations: result.Stats.Equations,
		Removed:   result.Stats.Removed,
		Duration:  result.Stats.ConnectTime.Round(time.Microsecond).String(),
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	def, err := sysdef.Parse(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts := optionsFromQuery(r)

	result, err := s.runner.Execute(r.Context(), def, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	dot := render.ToDOT(result.Block, render.Options{
		ShowRemoved: queryBool(r, "removed", false),
	})

	format := r.URL.Query().Get("format")
	switch format {
	case "", "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(dot))
	case "svg":
		data, err := render.SVG(r.Context(), dot)
		if err != nil {
			writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInternal, err, "render svg"))
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case "png":
		data, err := render.PNG(r.Context(), dot)
		if err != nil {
			writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInternal, err, "render png"))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		writeError(w, r, apperrors.New(apperrors.ErrCodeInvalidFormat,
			"format %q (must be one of: dot, svg, png)", format))
	}
}

// optionsFromQuery maps query parameters onto pipeline options, starting from
// the defaults so absent parameters keep the standard pipeline.
func optionsFromQuery(r *http.Request) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.PruneUnreachable = queryBool(r, "prune", opts.PruneUnreachable)
	opts.InlineAlgebraic = queryBool(r, "inline", opts.InlineAlgebraic)
	opts.ResolveDerivatives = queryBool(r, "derivatives", opts.ResolveDerivatives)
	opts.Simplify = queryBool(r, "simplify", opts.Simplify)
	opts.Refresh = queryBool(r, "refresh", opts.Refresh)
	return opts
}

func queryBool(r *http.Request, name string, def bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
