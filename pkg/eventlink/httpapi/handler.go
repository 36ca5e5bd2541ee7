package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/randalmurphal/eventlink/pkg/eventlink/compensation"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
	"github.com/randalmurphal/eventlink/pkg/eventlink/readmodel"
)

type handler struct {
	deps   Deps
	logger *slog.Logger
}

func newHandler(d Deps) *handler {
	if d.Catalog == nil {
		d.Catalog = event.DefaultCatalog()
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &handler{deps: d, logger: logger}
}

func (h *handler) requestStats(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, h.deps.Requests.Stats())
}

func (h *handler) listCompensations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := &compensation.ListFilter{
		Status: compensation.Status(q.Get("status")),
		PostID: q.Get("post_id"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "limit: "+err.Error())
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "offset: "+err.Error())
		return
	}

	txs, err := h.deps.Ledger.List(r.Context(), filter)
	if err != nil {
		status, code := mapError(err)
		writeError(w, r, status, code, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, txs)
}

func (h *handler) getCompensation(w http.ResponseWriter, r *http.Request) {
	tx, err := h.deps.Ledger.Get(r.Context(), chi.URLParam(r, "transaction_id"))
	if err != nil {
		status, code := mapError(err)
		writeError(w, r, status, code, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, tx)
}

func (h *handler) getCounters(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Counters.Get(r.Context(), chi.URLParam(r, "post_id"))
	if err != nil {
		status, code := mapError(err)
		writeError(w, r, status, code, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, p)
}

type assembleRequest struct {
	Posts []readmodel.PostSummary `json:"posts"`
}

func (h *handler) assemblePosts(w http.ResponseWriter, r *http.Request) {
	var req assembleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, h.deps.Assembler.AssemblePosts(r.Context(), req.Posts))
}

func (h *handler) bookmarks(w http.ResponseWriter, r *http.Request) {
	contentType := r.URL.Query().Get("content_type")
	if contentType == "" {
		contentType = readmodel.ContentTypePost
	}
	views, err := h.deps.Assembler.AssembleBookmarks(r.Context(), chi.URLParam(r, "user_id"), contentType, h.deps.Posts)
	if err != nil {
		status, code := mapError(err)
		writeError(w, r, status, code, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, views)
}

type publishRequest struct {
	EventType string          `json:"eventType"`
	Channel   string          `json:"channel"`
	Event     json.RawMessage `json:"event"`
}

type publishResponse struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	Channel   string `json:"channel"`
}

// publishEvent decodes a catalog event and publishes it. eventId and
// occurredAt are generated when absent.
func (h *handler) publishEvent(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	req.EventType = strings.TrimSpace(req.EventType)

	ch := event.ChannelDomain
	if req.Channel != "" {
		var ok bool
		if ch, ok = event.ParseChannel(req.Channel); !ok {
			writeError(w, r, http.StatusBadRequest, "invalid_input", "unknown channel "+req.Channel)
			return
		}
	}

	evt, ok := h.deps.Catalog.New(req.EventType)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unsupported_event", "unknown event type "+req.EventType)
		return
	}
	body, err := withIdentity(req.Event, req.EventType)
	if err == nil {
		err = json.Unmarshal(body, evt)
	}
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if err := h.deps.Bus.Publish(r.Context(), evt, ch); err != nil {
		status, code := mapError(err)
		writeError(w, r, status, code, err.Error())
		return
	}
	writeSuccess(w, http.StatusAccepted, publishResponse{
		EventID:   evt.EventID(),
		EventType: evt.EventType(),
		Channel:   ch.String(),
	})
}

// withIdentity forces eventType and fills eventId and occurredAt.
func withIdentity(raw json.RawMessage, eventType string) ([]byte, error) {
	fields := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	}
	fields["eventType"] = eventType
	if id, _ := fields["eventId"].(string); id == "" {
		fields["eventId"] = uuid.New().String()
	}
	if _, ok := fields["occurredAt"]; !ok {
		fields["occurredAt"] = time.Now().UTC()
	}
	return json.Marshal(fields)
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
