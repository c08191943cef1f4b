package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/jpapi/internal/api/render"
	"github.com/good-yellow-bee/jpapi/internal/catalog"
	"github.com/good-yellow-bee/jpapi/internal/metrics"
	"github.com/good-yellow-bee/jpapi/internal/query"
	"github.com/good-yellow-bee/jpapi/internal/storage"
)

// recordsHandler serves every dataset endpoint. Each route only differs in
// the entity it reads and the descriptor it asks the generator for.
type recordsHandler struct {
	catalog *catalog.Catalog
	dataset storage.Querier
	opts    query.Options
	now     func() time.Time
}

// resolveFunc picks the generator operation for a route.
type resolveFunc func(g *query.Generator) (query.Descriptor, error)

// list serves an entity collection filtered by the request parameters.
// An empty collection is not an error.
func (h *recordsHandler) list(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := routeFormat(w, chi.URLParam(r, "format"))
		if !ok {
			return
		}
		params := query.Sanitize(r.URL.Query())
		h.serve(w, r, f, entity, params, false, func(g *query.Generator) (query.Descriptor, error) {
			return g.FindAllWithFilters()
		})
	}
}

// show serves a single record addressed by the {id} path segment.
func (h *recordsHandler) show(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, f, ok := idAndFormat(w, r)
		if !ok {
			return
		}
		params := query.Sanitize(r.URL.Query()).With("id", id)
		h.serve(w, r, f, entity, params, true, func(g *query.Generator) (query.Descriptor, error) {
			return g.FindByID()
		})
	}
}

// showPeopleGroup narrows the lookup to one country when one is given, since
// a people group id spans every country it lives in.
func (h *recordsHandler) showPeopleGroup(w http.ResponseWriter, r *http.Request) {
	id, f, ok := idAndFormat(w, r)
	if !ok {
		return
	}
	params := query.Sanitize(r.URL.Query()).With("id", id)
	h.serve(w, r, f, catalog.PeopleGroups, params, true, func(g *query.Generator) (query.Descriptor, error) {
		if params.Value("country") != "" {
			return g.FindByIDAndSecondaryKey("country")
		}
		return g.FindByID()
	})
}

// dailyUnreached serves the unreached people group of a calendar day,
// today unless month and day say otherwise.
func (h *recordsHandler) dailyUnreached(w http.ResponseWriter, r *http.Request) {
	f, ok := routeFormat(w, chi.URLParam(r, "format"))
	if !ok {
		return
	}
	params := query.Sanitize(r.URL.Query())
	today := h.now()
	// Absent or non-numeric values mean today; negative ones stay and fail the range check.
	if query.IntValue(params.Value("month")) == 0 {
		params = params.With("month", strconv.Itoa(int(today.Month())))
	}
	if query.IntValue(params.Value("day")) == 0 {
		params = params.With("day", strconv.Itoa(today.Day()))
	}
	h.serve(w, r, f, catalog.PeopleGroups, params, true, func(g *query.Generator) (query.Descriptor, error) {
		return g.Lookup("daily_unreached")
	})
}

func (h *recordsHandler) languageResources(w http.ResponseWriter, r *http.Request) {
	f, ok := routeFormat(w, chi.URLParam(r, "format"))
	if !ok {
		return
	}
	params := query.Sanitize(r.URL.Query()).With("id", query.SanitizeValue(chi.URLParam(r, "id")))
	h.serve(w, r, f, catalog.Resources, params, false, func(g *query.Generator) (query.Descriptor, error) {
		return g.Lookup("by_language_id")
	})
}

func (h *recordsHandler) serve(w http.ResponseWriter, r *http.Request, f render.Format, name string,
	params query.Params, single bool, resolve resolveFunc) {
	log := zerolog.Ctx(r.Context())
	entity := h.catalog.MustGet(name)

	desc, err := resolve(query.NewGenerator(entity, params, h.opts))
	if err != nil {
		var qe *query.Error
		if errors.As(err, &qe) {
			metrics.QueryBuildFailures.WithLabelValues(name, qe.Kind.String()).Inc()
			log.Debug().Err(err).Str("entity", name).Msg("rejected filter request")
		} else {
			log.Error().Err(err).Str("entity", name).Msg("failed to build query")
		}
		WriteError(w, f, FromQueryError(err))
		return
	}
	countFilters(entity, params)

	records, err := h.dataset.Query(r.Context(), desc)
	if err != nil {
		log.Error().Err(err).Str("entity", name).Str("statement", desc.Statement).Msg("dataset query failed")
		WriteError(w, f, ErrInternalServer)
		return
	}
	if single && len(records) == 0 {
		WriteError(w, f, NewNotFound("The requested "+entity.ChildTag+" could not be found."))
		return
	}

	tags := render.Tags{Parent: entity.ParentTag, Child: entity.ChildTag}
	if err := render.Records(w, f, tags, records); err != nil {
		log.Error().Err(err).Str("entity", name).Msg("failed to render records")
		WriteError(w, f, ErrInternalServer)
	}
}

// countFilters records which filter keys a successful request used.
func countFilters(entity *query.Entity, params query.Params) {
	for _, spec := range entity.Filters {
		if params.Exists(spec.Key) {
			metrics.QueryFiltersApplied.WithLabelValues(entity.Name, spec.Key).Inc()
		}
	}
}

// routeFormat parses the format path parameter, writing a 400 when it is
// not one the API renders.
func routeFormat(w http.ResponseWriter, ext string) (render.Format, bool) {
	f, err := render.ParseFormat(ext)
	if err != nil {
		WriteError(w, render.JSON, ErrUnsupportedFormat)
		return "", false
	}
	return f, true
}

// idAndFormat splits an "{id}.{format}" path segment.
func idAndFormat(w http.ResponseWriter, r *http.Request) (string, render.Format, bool) {
	id, ext := render.SplitExtension(chi.URLParam(r, "id"))
	f, ok := routeFormat(w, ext)
	if !ok {
		return "", "", false
	}
	return query.SanitizeValue(id), f, true
}

