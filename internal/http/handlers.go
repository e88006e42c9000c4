package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"lori/internal/core"
	"lori/internal/gesture"
	"lori/internal/log"
	"lori/internal/view"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	for name, check := range s.ready {
		if err := check(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	checks["gesture_rows"] = map[string]interface{}{
		"entries": s.ctrl.TrackedRows(),
		"status":  "ok",
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	store := s.ctrl.Store()

	itemsAdded := atomic.LoadInt64(&s.appMetrics.itemsAdded)
	swipes := atomic.LoadInt64(&s.appMetrics.swipesCommitted)
	recaps := atomic.LoadInt64(&s.appMetrics.recapsStarted)
	resets := atomic.LoadInt64(&s.appMetrics.resets)
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	// Write metrics in Prometheus-like format
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP http_response_time_avg_microseconds Mean response time\n")
	fmt.Fprintf(w, "# TYPE http_response_time_avg_microseconds gauge\n")
	fmt.Fprintf(w, "http_response_time_avg_microseconds %d\n\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP tab_items Items currently on the tab\n")
	fmt.Fprintf(w, "# TYPE tab_items gauge\n")
	fmt.Fprintf(w, "tab_items %d\n\n", store.Len())

	fmt.Fprintf(w, "# HELP tab_bill_total Current bill total in reais\n")
	fmt.Fprintf(w, "# TYPE tab_bill_total gauge\n")
	fmt.Fprintf(w, "tab_bill_total %.2f\n\n", store.TotalBill())

	fmt.Fprintf(w, "# HELP items_added_total Items created through the add form\n")
	fmt.Fprintf(w, "# TYPE items_added_total counter\n")
	fmt.Fprintf(w, "items_added_total %d\n\n", itemsAdded)

	fmt.Fprintf(w, "# HELP swipes_committed_total Rows swiped away\n")
	fmt.Fprintf(w, "# TYPE swipes_committed_total counter\n")
	fmt.Fprintf(w, "swipes_committed_total %d\n\n", swipes)

	fmt.Fprintf(w, "# HELP recaps_total Recap screens opened\n")
	fmt.Fprintf(w, "# TYPE recaps_total counter\n")
	fmt.Fprintf(w, "recaps_total %d\n\n", recaps)

	fmt.Fprintf(w, "# HELP resets_total Confirmed count resets\n")
	fmt.Fprintf(w, "# TYPE resets_total counter\n")
	fmt.Fprintf(w, "resets_total %d\n\n", resets)

	fmt.Fprintf(w, "# HELP gesture_rows Rows with a live gesture machine\n")
	fmt.Fprintf(w, "# TYPE gesture_rows gauge\n")
	fmt.Fprintf(w, "gesture_rows %d\n\n", s.ctrl.TrackedRows())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", uptime.Seconds())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", s.ctrl.Snapshot()); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err, log.FieldTemplate, "index.html")
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	s.renderScreen(w, r, NewHTMXResponse())
}

func (s *Server) handleOpenItem(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.OpenItem(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderScreen(w, r, NewHTMXResponse())
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Back(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderScreen(w, r, NewHTMXResponse())
}

func (s *Server) handleIncrement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.ctrl.Increment(r.Context(), id) {
		s.logMutation(r, log.OpIncrement, id)
	}
	s.renderScreen(w, r, s.tabChanged())
}

func (s *Server) handleDecrement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.ctrl.Decrement(r.Context(), id) {
		s.logMutation(r, log.OpDecrement, id)
	}
	s.renderScreen(w, r, s.tabChanged())
}

func (s *Server) handlePriceEdit(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.BeginPriceEdit(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderScreen(w, r, NewHTMXResponse())
}

func (s *Server) handlePriceCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.CancelPriceEdit(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderScreen(w, r, NewHTMXResponse())
}

func (s *Server) handlePriceSave(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	if err := s.ctrl.SavePrice(r.Context(), r.Form.Get("price")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logMutation(r, log.OpSetPrice, "")
	s.renderScreen(w, r, s.tabChanged())
}

func (s *Server) handleOpenAdd(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.OpenAddItem(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderScreen(w, r, NewHTMXResponse())
}

func (s *Server) handleCancelAdd(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.CancelAddItem(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderScreen(w, r, NewHTMXResponse())
}

// handleUpdateForm keeps the server-side draft in sync while the user types.
func (s *Server) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	if err := s.ctrl.UpdateForm(r.Context(), ParseItemForm(r.Form)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	item, err := s.ctrl.SubmitAdd(r.Context(), ParseItemForm(r.Form))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.itemsAdded, 1)
	s.logMutation(r, log.OpAdd, item.ID)
	s.renderScreen(w, r, s.tabChanged().
		TriggerFormReset().
		TriggerSuccessNotification(item.Name+" adicionado"))
}

func (s *Server) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.RequestReset(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderScreen(w, r, NewHTMXResponse())
}

func (s *Server) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	yes := ParseConfirm(r.Form)
	if err := s.ctrl.ConfirmReset(r.Context(), yes); err != nil {
		s.fail(w, r, err)
		return
	}
	if !yes {
		s.renderScreen(w, r, NewHTMXResponse())
		return
	}
	atomic.AddInt64(&s.appMetrics.resets, 1)
	s.logMutation(r, log.OpReset, "")
	s.renderScreen(w, r, s.tabChanged().TriggerSuccessNotification("Contagem zerada"))
}

func (s *Server) handleEnterRecap(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.EnterRecap(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.recapsStarted, 1)
	s.renderScreen(w, r, NewHTMXResponse())
}

func (s *Server) handleContinueRecap(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.ContinueFromRecap(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderScreen(w, r, NewHTMXResponse())
}

// handleRecapSummary is polled by the recap screen until the summary lands.
func (s *Server) handleRecapSummary(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "summary", s.ctrl.Snapshot(), NewHTMXResponse())
}

// handleGesture forwards one pointer event to the row's gesture machine and
// answers with the row state as JSON.
func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	phase, err := view.ParsePhase(r.PathValue("phase"))
	if err != nil {
		JSONError(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		JSONError(http.StatusBadRequest, "malformed body").Write(w)
		return
	}
	x, err := parser.Float("x")
	switch {
	case errors.Is(err, ErrMissingField) && phase == view.PhaseCancel:
		x = 0
	case err != nil:
		JSONError(http.StatusBadRequest, "invalid x coordinate").Write(w)
		return
	}

	id := r.PathValue("id")
	row, err := s.ctrl.Gesture(ctx, id, phase, x)
	switch {
	case errors.Is(err, view.ErrInvalidTransition):
		JSONError(http.StatusConflict, err.Error()).Write(w)
		return
	case errors.Is(err, view.ErrItemNotFound):
		JSONError(http.StatusNotFound, err.Error()).Write(w)
		return
	case err != nil:
		logger.ErrorContext(ctx, "Gesture failed",
			log.FieldError, err,
			log.FieldItemID, id,
			log.FieldPhase, string(phase))
		JSONError(http.StatusInternalServerError, "gesture failed").Write(w)
		return
	}

	if row.Outcome == gesture.OutcomeCommit.String() {
		atomic.AddInt64(&s.appMetrics.swipesCommitted, 1)
	}
	logger.DebugContext(ctx, "Gesture event",
		log.FieldItemID, id,
		log.FieldPhase, string(phase),
		log.FieldOutcome, row.Outcome,
		"offset", row.Offset)
	NewHTMXResponse().BodyJSON(row).Write(w)
}

// fail maps controller errors to responses. Stale navigation is answered
// with the real screen; validation errors land in the flash area.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	switch {
	case errors.Is(err, view.ErrInvalidTransition), errors.Is(err, view.ErrItemNotFound):
		logger.DebugContext(ctx, "Stale UI action, re-rendering",
			log.FieldError, err, log.FieldPath, r.URL.Path)
		s.renderScreen(w, r, NewHTMXResponse())
	case errors.Is(err, core.ErrEmptyName):
		UnprocessableEntityError("Informe o nome do item").Write(w)
	case errors.Is(err, core.ErrInvalidPrice):
		UnprocessableEntityError("Preço inválido").Write(w)
	case errors.Is(err, core.ErrInvalidIcon):
		UnprocessableEntityError("Escolha um ícone da paleta").Write(w)
	case errors.Is(err, view.ErrNothingToSummarize):
		UnprocessableEntityError("Nada consumido ainda").Write(w)
	default:
		log.NewStructuredLogger(logger).LogError(ctx, "UI action failed", err,
			log.ComponentHTTP, r.Pattern,
			log.NewFields().WithPath(r.URL.Path).WithErrorType(log.ErrorTypeInternal))
		InternalServerError("Algo deu errado").
			TriggerNotification(NotificationError, "Algo deu errado", 5000).
			Write(w)
	}
}

func (s *Server) renderScreen(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder) {
	st := s.ctrl.Snapshot()
	s.render(w, r, "screen", st, b.TriggerScreenChanged(string(st.Screen)))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data view.State, b *HTMXResponseBuilder) {
	if s.templates == nil {
		InternalServerError("Templates não carregados").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution error",
			log.FieldError, err,
			log.FieldTemplate, name,
			log.FieldScreen, string(data.Screen))
		InternalServerError("Erro ao desenhar a tela").Write(w)
		return
	}
	b.BodyHTML(buf.Bytes()).Write(w)
}

func (s *Server) tabChanged() *HTMXResponseBuilder {
	store := s.ctrl.Store()
	return NewHTMXResponse().TriggerTabChanged(store.Len(), store.TotalBill())
}

func (s *Server) logMutation(r *http.Request, op, itemID string) {
	store := s.ctrl.Store()
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogTabMutation(r.Context(), op, itemID, store.Len(), store.TotalBill())
}
