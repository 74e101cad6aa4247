package readapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/creatorkit/membership/pkg/cache"
	"github.com/creatorkit/membership/pkg/journal"
	"github.com/creatorkit/membership/pkg/ledger"
	"github.com/creatorkit/membership/pkg/logger"
	"github.com/creatorkit/membership/pkg/membership"
	"github.com/creatorkit/membership/pkg/stream"
	"github.com/creatorkit/membership/pkg/telemetry"
)

// StatusReader resolves membership status. *membership.StatusResolver satisfies it.
type StatusReader interface {
	Resolve(ctx context.Context, subscriber ledger.PublicKey, target membership.Target) (*membership.Status, error)
}

// OperationsReader lists journaled operations. *journal.Store satisfies it.
type OperationsReader interface {
	Recent(ctx context.Context, subscriber string, limit int) ([]journal.Entry, error)
}

type handler struct {
	records    membership.RecordReader
	streams    stream.Reader
	status     StatusReader
	operations OperationsReader
	observer   telemetry.Observer
	cache      cache.Store
	ttl        time.Duration
	log        *slog.Logger
}

// Option configures the router.
type Option func(*handler)

// WithCache serves found records and streams from store. Absent answers are
// never cached.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(h *handler) {
		if store != nil {
			h.cache = store
			h.ttl = ttl
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(h *handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithObserver observes status reads as OpStatus operations.
func WithObserver(obs telemetry.Observer) Option {
	return func(h *handler) {
		if obs != nil {
			h.observer = obs
		}
	}
}

// WithOperations mounts GET /v1/operations.
func WithOperations(ops OperationsReader) Option {
	return func(h *handler) { h.operations = ops }
}

// NewRouter exposes the engine's read collaborators over HTTP so a remote
// engine can run on Client instead of direct ledger and stream access.
func NewRouter(records membership.RecordReader, streams stream.Reader, status StatusReader, opts ...Option) chi.Router {
	if records == nil {
		panic("readapi: record reader is required")
	}
	if streams == nil {
		panic("readapi: stream reader is required")
	}
	if status == nil {
		panic("readapi: status reader is required")
	}
	h := &handler{records: records, streams: streams, status: status, observer: telemetry.Noop(), log: logger.Discard()}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Get("/global", h.globalConfig)
		r.Get("/accounts/{address}/exists", h.accountExists)

		r.Route("/configs", func(r chi.Router) {
			r.Get("/platform", h.subscriptionConfig)
			r.Get("/creators/{creator}", h.subscriptionConfig)
		})
		r.Route("/records", func(r chi.Router) {
			r.Get("/platform/{subscriber}", h.subscriptionRecord)
			r.Get("/creators/{creator}/{subscriber}", h.subscriptionRecord)
		})
		r.Route("/status", func(r chi.Router) {
			r.Get("/platform/{subscriber}", h.membershipStatus)
			r.Get("/creators/{creator}/{subscriber}", h.membershipStatus)
		})
		r.Route("/streams", func(r chi.Router) {
			r.Get("/", h.streamsBySender)
			r.Get("/{id}", h.streamByID)
		})
		if h.operations != nil {
			r.Get("/operations", h.recentOperations)
		}
	})
	return r
}

func (h *handler) subscriptionConfig(w http.ResponseWriter, r *http.Request) {
	target, ok := h.target(w, r)
	if !ok {
		return
	}
	h.cached(w, r, membership.ConfigKey(target), func(ctx context.Context) (any, error) {
		cfg, err := h.records.SubscriptionConfig(ctx, target)
		if cfg == nil && err == nil {
			return nil, nil
		}
		return cfg, err
	})
}

func (h *handler) subscriptionRecord(w http.ResponseWriter, r *http.Request) {
	target, ok := h.target(w, r)
	if !ok {
		return
	}
	subscriber, ok := h.key(w, r, "subscriber")
	if !ok {
		return
	}
	h.cached(w, r, membership.RecordKey(subscriber, target), func(ctx context.Context) (any, error) {
		rec, err := h.records.SubscriptionRecord(ctx, subscriber, target)
		if rec == nil && err == nil {
			return nil, nil
		}
		return rec, err
	})
}

func (h *handler) globalConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.records.GlobalConfig(r.Context())
	switch {
	case err != nil:
		h.upstream(w, r, err)
	case cfg == nil:
		writeError(w, http.StatusNotFound, CodeNotFound, "global config not found")
	default:
		writeJSON(w, http.StatusOK, cfg)
	}
}

func (h *handler) accountExists(w http.ResponseWriter, r *http.Request) {
	address, ok := h.key(w, r, "address")
	if !ok {
		return
	}
	exists, err := h.records.AccountExists(r.Context(), address)
	if err != nil {
		h.upstream(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, existsResponse{Exists: exists})
}

func (h *handler) membershipStatus(w http.ResponseWriter, r *http.Request) {
	target, ok := h.target(w, r)
	if !ok {
		return
	}
	subscriber, ok := h.key(w, r, "subscriber")
	if !ok {
		return
	}
	ctx, span := h.observer.Start(r.Context(), telemetry.OpStatus, logger.Subscriber(subscriber), logger.Target(target))
	st, err := h.status.Resolve(ctx, subscriber, target)
	if err != nil {
		span.End(telemetry.OutcomeFailed, err)
		h.upstream(w, r.WithContext(ctx), err)
		return
	}
	span.SetAttrs(slog.String("state", st.State.Name()), slog.String("source", string(st.Source)))
	span.End(telemetry.OutcomeSuccess, nil)
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) streamByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.key(w, r, "id")
	if !ok {
		return
	}
	h.cached(w, r, membership.StreamKey(id), func(ctx context.Context) (any, error) {
		s, err := h.streams.Get(ctx, id)
		if errors.Is(err, stream.ErrNotFound) {
			return nil, nil
		}
		return s, err
	})
}

func (h *handler) streamsBySender(w http.ResponseWriter, r *http.Request) {
	sender, err := ledger.ParsePublicKey(r.URL.Query().Get("sender"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "sender: "+err.Error())
		return
	}
	h.cached(w, r, membership.SenderStreamsKey(sender), func(ctx context.Context) (any, error) {
		list, err := h.streams.ListBySender(ctx, sender)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []stream.Stream{}
		}
		return streamsResponse{Streams: list}, nil
	})
}

func (h *handler) recentOperations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subscriber, err := ledger.ParsePublicKey(q.Get("subscriber"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "subscriber: "+err.Error())
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, "limit must be a non-negative integer")
			return
		}
	}
	entries, err := h.operations.Recent(r.Context(), subscriber.String(), limit)
	if err != nil {
		h.upstream(w, r, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, operationsResponse{Operations: entries})
}

// cached answers from the cache when possible. load returns nil, nil for absent values.
func (h *handler) cached(w http.ResponseWriter, r *http.Request, key string, load func(context.Context) (any, error)) {
	ctx := r.Context()
	if h.cache != nil {
		raw, ok, err := h.cache.Get(ctx, key)
		if err != nil {
			h.log.WarnContext(ctx, "read cache get failed", slog.String("key", key), logger.Error(err))
		} else if ok {
			writeRaw(w, http.StatusOK, raw)
			return
		}
	}

	v, err := load(ctx)
	if err != nil {
		h.upstream(w, r, err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, r.URL.Path+" not found")
		return
	}

	raw, err := json.Marshal(v)
	if err != nil {
		h.upstream(w, r, err)
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, key, raw, h.ttl); err != nil {
			h.log.WarnContext(ctx, "read cache set failed", slog.String("key", key), logger.Error(err))
		}
	}
	writeRaw(w, http.StatusOK, raw)
}

func (h *handler) target(w http.ResponseWriter, r *http.Request) (membership.Target, bool) {
	if chi.URLParam(r, "creator") == "" {
		return membership.PlatformTarget(), true
	}
	creator, ok := h.key(w, r, "creator")
	if !ok {
		return membership.Target{}, false
	}
	return membership.CreatorTarget(creator), true
}

func (h *handler) key(w http.ResponseWriter, r *http.Request, param string) (ledger.PublicKey, bool) {
	pk, err := ledger.ParsePublicKey(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, param+": "+err.Error())
		return ledger.PublicKey{}, false
	}
	return pk, true
}

// upstream answers engine rejections with 422 and their stable code, and
// everything else with 502.
func (h *handler) upstream(w http.ResponseWriter, r *http.Request, err error) {
	if membership.IsRejection(err) {
		writeError(w, http.StatusUnprocessableEntity, membership.ErrorCode(err), err.Error())
		return
	}
	h.log.ErrorContext(r.Context(), "read api upstream failed", slog.String("path", r.URL.Path), logger.Error(err))
	writeError(w, http.StatusBadGateway, CodeUpstream, "upstream read failed")
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type streamsResponse struct {
	Streams []stream.Stream `json:"streams"`
}

type operationsResponse struct {
	Operations []journal.Entry `json:"operations"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeUpstream, "encode response")
		return
	}
	writeRaw(w, status, raw)
}

func writeRaw(w http.ResponseWriter, status int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	raw, _ := json.Marshal(ErrorResponse{Code: code, Message: message})
	writeRaw(w, status, raw)
}
