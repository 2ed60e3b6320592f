package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricetrail/reconcile-cli/internal/geo"
	"github.com/pricetrail/reconcile-cli/internal/ledger"
	"github.com/pricetrail/reconcile-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reconciliation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/receipts", env.handleCreateReceipt)
		r.Get("/receipts/{id}", env.handleGetReceipt)
		r.Post("/receipts/{id}/normalize", env.handleNormalizeReceipt)
		r.Get("/lines/{id}/candidates", env.handleCandidates)
		r.Post("/lines/{id}/selection", env.handleSelection)
		r.Post("/prices", env.handleSubmitPrice)
		r.Get("/products/{id}/prices", env.handleNearbyPrices)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrap(err, "server listen")
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return runServer(ctx, &http.Server{Handler: r}, ln)
	},
}

// shutdownGrace bounds how long in-flight requests get to finish.
const shutdownGrace = 10 * time.Second

// runServer serves until ctx is canceled, then drains in-flight requests on
// a fresh timeout context.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	case <-ctx.Done():
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server shutdown")
		}
		<-errCh
		return nil
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func (e *env) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Merchant string `json:"merchant"`
		Lines    []struct {
			RawName          string `json:"raw_name"`
			ItemCode         string `json:"item_code"`
			IsDiscountLine   bool   `json:"is_discount_line"`
			IsAdjustmentLine bool   `json:"is_adjustment_line"`
		} `json:"lines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Merchant == "" {
		writeError(w, http.StatusBadRequest, "merchant is required")
		return
	}

	receipt := &model.Receipt{Merchant: req.Merchant}
	lines := make([]model.ReceiptLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = model.ReceiptLine{
			RawName:          l.RawName,
			ItemCode:         l.ItemCode,
			IsDiscountLine:   l.IsDiscountLine,
			IsAdjustmentLine: l.IsAdjustmentLine,
		}
	}

	if err := e.Receipts.CreateReceipt(r.Context(), receipt, lines); err != nil {
		zap.L().Error("create receipt failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create receipt failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"receipt": receipt,
		"lines":   lines,
	})
}

func (e *env) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	receipt, err := e.Receipts.GetReceipt(r.Context(), id)
	if err != nil {
		zap.L().Error("get receipt failed", zap.String("receipt_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get receipt failed")
		return
	}
	if receipt == nil {
		writeError(w, http.StatusNotFound, "receipt not found")
		return
	}

	lines, err := e.Receipts.LinesForReceipt(r.Context(), id)
	if err != nil {
		zap.L().Error("get receipt lines failed", zap.String("receipt_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get receipt failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"receipt": receipt,
		"lines":   lines,
	})
}

func (e *env) handleNormalizeReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	results, err := e.Normalizer.NormalizeReceipt(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "receipt not found")
			return
		}
		zap.L().Error("normalize receipt failed", zap.String("receipt_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "normalize failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (e *env) handleCandidates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cands, err := e.Normalizer.Candidates(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "line not found")
			return
		}
		zap.L().Error("list candidates failed", zap.String("line_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list candidates failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"candidates": cands})
}

func (e *env) handleSelection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	if err := e.Normalizer.Override(r.Context(), id, req.ProductID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no candidate links this line to that product")
			return
		}
		zap.L().Error("selection failed", zap.String("line_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "selection failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "selected"})
}

func (e *env) handleSubmitPrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string               `json:"product_id"`
		Amount    float64              `json:"amount"`
		Currency  string               `json:"currency"`
		Venue     model.SubmittedVenue `json:"venue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v, created, err := e.Venues.FindOrCreate(r.Context(), req.Venue)
	if err != nil {
		if errors.Is(err, model.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid venue submission")
			return
		}
		zap.L().Error("venue resolve failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "venue resolve failed")
		return
	}

	price, inserted, err := e.Ledger.Record(r.Context(), ledger.Submission{
		ProductID: req.ProductID,
		VenueID:   v.ID,
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid price submission")
			return
		}
		zap.L().Error("record price failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "record price failed")
		return
	}

	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"price":         price,
		"venue":         v,
		"venue_created": created,
		"recorded":      inserted,
	})
}

func (e *env) handleNearbyPrices(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	radius := cfg.Geo.DefaultRadiusKm
	if s := q.Get("radius_km"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			radius = v
		}
	}

	query := geo.Query{
		ProductID:     id,
		Latitude:      lat,
		Longitude:     lon,
		MaxDistanceKm: radius,
	}

	var (
		prices []geo.PriceAtVenue
		err    error
	)
	if q.Get("per_venue") == "true" {
		prices, err = e.Search.NearbyVenuePrices(r.Context(), query)
	} else {
		prices, err = e.Search.NearbyPrices(r.Context(), query)
	}
	if err != nil {
		if errors.Is(err, model.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid coordinates")
			return
		}
		zap.L().Error("nearby prices failed", zap.String("product_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "nearby prices failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"prices": prices})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
