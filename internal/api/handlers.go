package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trading-journal-go/internal/backup"
	"trading-journal-go/internal/csvimport"
	"trading-journal-go/internal/journal"
	"trading-journal-go/internal/mentor"
	"trading-journal-go/internal/store"
)

const (
	// OwnerHeader carries the id of the journal owner.
	OwnerHeader = "X-Owner-ID"
	// FetchWarningHeader is set when the journal was only partly loaded.
	FetchWarningHeader = "X-Fetch-Warning"
)

type ownerKey struct{}

// Handler holds dependencies for the API endpoints.
type Handler struct {
	sessions *Sessions
	mentor   *mentor.Service
	log      *zap.Logger
	now      func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(sessions *Sessions, mentorService *mentor.Service, log *zap.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		mentor:   mentorService,
		log:      log.Named("api"),
		now:      time.Now,
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireOwner)

		r.Get("/accounts", h.withStore(h.listAccounts))
		r.Post("/accounts", h.withStore(h.createAccount))
		r.Delete("/accounts/{id}", h.withStore(h.deleteAccount))

		r.Get("/trades", h.withStore(h.listTrades))
		r.Post("/trades", h.withStore(h.createTrade))
		r.Post("/trades/import", h.withStore(h.importTrades))
		r.Delete("/trades/{id}", h.withStore(h.deleteTrade))

		r.Put("/selection", h.withStore(h.updateSelection))
		r.Get("/stats", h.withStore(h.stats))
		r.Get("/calendar/month", h.withStore(h.calendarMonth))
		r.Get("/calendar/weekdays", h.withStore(h.calendarWeekdays))
		r.Get("/calendar/monthly", h.withStore(h.calendarMonthly))

		r.Post("/mentor", h.analyze)
		r.Get("/backup", h.withStore(h.exportBackup))
		r.Post("/restore", h.withStore(h.restore))
		r.Post("/refresh", h.withStore(h.refresh))

		r.Get("/tools/lot-size", h.lotSize)
	})
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *Handler) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if owner == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{
				Error: "missing " + OwnerHeader + " header",
				Kind:  journal.KindUnauthorized.String(),
			}, h.log)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

type storeHandler func(w http.ResponseWriter, r *http.Request, st *store.Store)

// acquire locks the owner's session. On failure the error response has been
// written and ok is false. A partial initial load is reported in
// FetchWarningHeader.
func (h *Handler) acquire(w http.ResponseWriter, r *http.Request) (st *store.Store, release func(), ok bool) {
	owner, _ := r.Context().Value(ownerKey{}).(string)
	st, release, err := h.sessions.Acquire(r.Context(), owner)
	if err != nil {
		var fetchErr *store.FetchError
		if st == nil || !errors.As(err, &fetchErr) {
			writeError(w, err, h.log)
			return nil, nil, false
		}
		w.Header().Set(FetchWarningHeader, fetchErr.Error())
	}
	return st, release, true
}

// withStore runs fn holding the owner's session.
func (h *Handler) withStore(fn storeHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, release, ok := h.acquire(w, r)
		if !ok {
			return
		}
		defer release()
		fn(w, r, st)
	}
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request, st *store.Store) {
	writeJSON(w, http.StatusOK, st.Accounts(), h.log)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var in journal.AccountInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err, h.log)
		return
	}
	account, err := st.AddAccount(r.Context(), in)
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusCreated, account, h.log)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request, st *store.Store) {
	if err := st.RemoveAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, h.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listTrades(w http.ResponseWriter, r *http.Request, st *store.Store) {
	writeJSON(w, http.StatusOK, st.TradeViews(), h.log)
}

func (h *Handler) createTrade(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var in journal.TradeInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err, h.log)
		return
	}
	trade, err := st.AddTrade(r.Context(), in)
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusCreated, st.View(trade), h.log)
}

type importResponse struct {
	store.ImportReport
	Skipped []csvimport.RowError `json:"skipped"`
}

func (h *Handler) importTrades(w http.ResponseWriter, r *http.Request, st *store.Store) {
	q := r.URL.Query()
	defaults := csvimport.Row{
		AccountID:   q.Get("account_id"),
		AccountName: q.Get("account"),
		Risk:        q.Get("risk"),
	}
	rows, skipped, err := csvimport.Parse(r.Body, defaults)
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	report := st.ImportTrades(r.Context(), rows)
	if skipped == nil {
		skipped = []csvimport.RowError{}
	}
	writeJSON(w, http.StatusOK, importResponse{ImportReport: report, Skipped: skipped}, h.log)
}

func (h *Handler) deleteTrade(w http.ResponseWriter, r *http.Request, st *store.Store) {
	if err := st.RemoveTrade(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, h.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectionRequest struct {
	AccountID       string `json:"account_id"`
	BaseAccountSize string `json:"base_account_size"`
}

type selectionResponse struct {
	AccountID        string          `json:"account_id"`
	ReferenceBalance decimal.Decimal `json:"reference_balance"`
}

func (h *Handler) updateSelection(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, h.log)
		return
	}
	override := decimal.Zero
	if s := strings.TrimSpace(req.BaseAccountSize); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			writeError(w, &journal.ValidationError{Field: "base_account_size", Reason: "must be a number"}, h.log)
			return
		}
		override = d
	}
	if err := st.SelectAccount(req.AccountID); err != nil {
		writeError(w, fmt.Errorf("select account %q: %w", req.AccountID, err), h.log)
		return
	}
	st.SetReferenceBalanceOverride(override)
	writeJSON(w, http.StatusOK, selectionResponse{
		AccountID:        st.SelectedAccountID(),
		ReferenceBalance: st.ReferenceBalance(),
	}, h.log)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request, st *store.Store) {
	writeJSON(w, http.StatusOK, st.Stats(), h.log)
}

func (h *Handler) calendarMonth(w http.ResponseWriter, r *http.Request, st *store.Store) {
	now := h.now().UTC()
	year, month := now.Year(), int(now.Month())
	q := r.URL.Query()
	if s := q.Get("year"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, &journal.ValidationError{Field: "year", Reason: "must be an integer"}, h.log)
			return
		}
		year = v
	}
	if s := q.Get("month"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 12 {
			writeError(w, &journal.ValidationError{Field: "month", Reason: "must be between 1 and 12"}, h.log)
			return
		}
		month = v
	}
	writeJSON(w, http.StatusOK, st.MonthView(year, time.Month(month)), h.log)
}

func (h *Handler) calendarWeekdays(w http.ResponseWriter, r *http.Request, st *store.Store) {
	writeJSON(w, http.StatusOK, st.Weekdays(), h.log)
}

func (h *Handler) calendarMonthly(w http.ResponseWriter, r *http.Request, st *store.Store) {
	writeJSON(w, http.StatusOK, st.Monthly(), h.log)
}

// analyze copies the mentor window under the session lock and calls the
// provider after releasing it.
func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	st, release, ok := h.acquire(w, r)
	if !ok {
		return
	}
	label, trades := st.MentorWindow()
	release()

	analysis, err := h.mentor.Analyze(r.Context(), label, trades)
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, analysis, h.log)
}

func (h *Handler) exportBackup(w http.ResponseWriter, r *http.Request, st *store.Store) {
	snap, err := st.Backup(r.Context())
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	name := fmt.Sprintf("trading-journal-%s.json", snap.ExportedAt.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := backup.Encode(w, snap); err != nil {
		h.log.Error("Failed to write backup", zap.Error(err))
	}
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request, st *store.Store) {
	snap, err := backup.Decode(r.Body)
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	if err := st.Restore(r.Context(), snap); err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"accounts": len(snap.Accounts),
		"trades":   len(snap.Trades),
	}, h.log)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request, st *store.Store) {
	err := st.FetchAll(r.Context())
	var fetchErr *store.FetchError
	if err != nil && !errors.As(err, &fetchErr) {
		writeError(w, err, h.log)
		return
	}
	resp := map[string]any{
		"accounts": len(st.Accounts()),
		"trades":   len(st.Trades()),
	}
	if fetchErr != nil {
		resp["error"] = fetchErr.Error()
		writeJSON(w, statusFor(journal.KindOf(fetchErr)), resp, h.log)
		return
	}
	writeJSON(w, http.StatusOK, resp, h.log)
}

type lotSizeResponse struct {
	Symbol   string          `json:"symbol"`
	LotSize  decimal.Decimal `json:"lot_size"`
	PipValue decimal.Decimal `json:"pip_value"`
}

func (h *Handler) lotSize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	values := make(map[string]decimal.Decimal, 3)
	for _, field := range []string{"balance", "risk_percent", "stop_pips"} {
		d, err := decimal.NewFromString(strings.TrimSpace(q.Get(field)))
		if err != nil {
			writeError(w, &journal.ValidationError{Field: field, Reason: "must be a number"}, h.log)
			return
		}
		values[field] = d
	}
	symbol := strings.ToUpper(strings.TrimSpace(q.Get("symbol")))

	lots, err := journal.LotSize(values["balance"], values["risk_percent"], values["stop_pips"], symbol)
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, lotSizeResponse{
		Symbol:   symbol,
		LotSize:  lots,
		PipValue: journal.PipValue(symbol),
	}, h.log)
}
