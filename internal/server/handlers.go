package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stackprice/stackprice/internal/utils"
	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/compare"
	"github.com/stackprice/stackprice/pkg/export"
	"github.com/stackprice/stackprice/pkg/pricing"
	"github.com/stackprice/stackprice/pkg/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}
	if err := s.DB.Ping(r.Context()); err != nil {
		s.Log.WithError(err).Warn("health check: database unreachable")
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		s.writeStoreError(w, r, "", err)
		return
	}
	if stats == nil {
		stats = []storage.CategoryStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.DB.ListCategories(r.Context())
	if err != nil {
		s.writeStoreError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := storage.ListOptions{
		Category:     q.Get("category"),
		Search:       q.Get("search"),
		VendorDomain: strings.ToLower(q.Get("domain")),
	}

	tools, err := s.DB.ListTools(r.Context(), opts)
	if err != nil {
		s.writeStoreError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	tool, err := s.DB.GetTool(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, "Tool not found", err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.DB.ListProviders(r.Context())
	if err != nil {
		s.writeStoreError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, providers)
}

type CompareRequest struct {
	ToolIDs []string `json:"toolIds"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var errs validationErrors
	errs.ids("toolIds", req.ToolIDs, 2)
	ids := utils.UniqueStrings(req.ToolIDs)
	if !errs.failed() && len(ids) < 2 {
		errs.add("toolIds", "at least 2 distinct ids are required")
	}
	if errs.failed() {
		writeValidation(w, errs)
		return
	}

	tools, missing, err := s.DB.GetTools(r.Context(), ids)
	if err != nil {
		s.writeStoreError(w, r, "", err)
		return
	}
	if len(missing) > 0 {
		writeError(w, http.StatusNotFound, "Tools not found: "+strings.Join(missing, ", "))
		return
	}
	writeJSON(w, http.StatusOK, compare.Assemble(tools))
}

type CompareProvidersRequest struct {
	ProviderIDs []string `json:"providerIds"`
}

func (s *Server) handleCompareProviders(w http.ResponseWriter, r *http.Request) {
	var req CompareProvidersRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var errs validationErrors
	errs.ids("providerIds", req.ProviderIDs, 1)
	if errs.failed() {
		writeValidation(w, errs)
		return
	}

	providers, missing, err := s.DB.GetProviders(r.Context(), utils.UniqueStrings(req.ProviderIDs))
	if err != nil {
		s.writeStoreError(w, r, "", err)
		return
	}
	if len(missing) > 0 {
		writeError(w, http.StatusNotFound, "Providers not found: "+strings.Join(missing, ", "))
		return
	}
	writeJSON(w, http.StatusOK, compare.AssembleProviders(providers))
}

type SaveComparisonRequest struct {
	Name   string   `json:"name"`
	Tools  []string `json:"tools"`
	UserID string   `json:"userId"`
}

func (s *Server) handleSaveComparison(w http.ResponseWriter, r *http.Request) {
	var req SaveComparisonRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var errs validationErrors
	errs.required("name", req.Name)
	errs.maxLen("name", req.Name, 100)
	errs.ids("tools", req.Tools, 1)
	if errs.failed() {
		writeValidation(w, errs)
		return
	}

	cmp, err := s.DB.SaveComparison(r.Context(), strings.TrimSpace(req.Name), req.UserID, utils.UniqueStrings(req.Tools))
	if err != nil {
		s.writeStoreError(w, r, "One or more tools not found", err)
		return
	}
	s.Log.Infof("Saved comparison %s (%d tools)", cmp.ID, len(cmp.Tools))
	writeJSON(w, http.StatusCreated, cmp)
}

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	comparisons, err := s.DB.ListComparisons(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.writeStoreError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, comparisons)
}

func (s *Server) handleGetComparison(w http.ResponseWriter, r *http.Request) {
	cmp, err := s.DB.GetComparison(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, "Comparison not found", err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleDeleteComparison(w http.ResponseWriter, r *http.Request) {
	if err := s.DB.DeleteComparison(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeStoreError(w, r, "Comparison not found", err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type ExportRequest struct {
	Format string         `json:"format"`
	Tools  []catalog.Tool `json:"tools"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var errs validationErrors
	if !export.Supported(req.Format) {
		errs.add("format", "format must be one of %s", strings.Join(export.Formats, ", "))
	}
	if len(req.Tools) == 0 {
		errs.add("tools", "at least one tool is required")
	}
	for i, t := range req.Tools {
		if strings.TrimSpace(t.ID) == "" {
			errs.add("tools", "tools[%d].id is required", i)
		}
	}
	if errs.failed() {
		writeValidation(w, errs)
		return
	}

	payload, err := export.Render(req.Format, req.Tools)
	if err != nil {
		s.Log.WithError(err).Error("export failed")
		writeError(w, http.StatusInternalServerError, "Export failed")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type HistoricalRequest struct {
	ToolIDs []string `json:"toolIds"`
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	var req HistoricalRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var errs validationErrors
	errs.ids("toolIds", req.ToolIDs, 1)
	if errs.failed() {
		writeValidation(w, errs)
		return
	}

	history, err := s.DB.PriceHistory(r.Context(), utils.UniqueStrings(req.ToolIDs))
	if err != nil {
		s.writeStoreError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type PricingAnalysisRequest struct {
	Tool           catalog.Tool         `json:"tool"`
	HistoricalData []catalog.PricePoint `json:"historicalData"`
}

func (s *Server) handlePricingAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.Analyst == nil {
		writeError(w, http.StatusServiceUnavailable, "Pricing analysis is not configured")
		return
	}

	var req PricingAnalysisRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var errs validationErrors
	errs.required("tool.id", req.Tool.ID)
	errs.required("tool.name", req.Tool.Name)
	if errs.failed() {
		writeValidation(w, errs)
		return
	}

	analysis, err := s.Analyst.AnalyzePricing(r.Context(), req.Tool, req.HistoricalData)
	if err != nil {
		s.Log.WithError(err).Warnf("pricing analysis for %s failed", req.Tool.ID)
		writeError(w, http.StatusBadGateway, "Pricing analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

type CreateAlertRequest struct {
	UserID      string           `json:"userId"`
	ToolID      string           `json:"toolId"`
	Tier        string           `json:"tier"`
	Threshold   *decimal.Decimal `json:"threshold"`
	CallbackURL string           `json:"callbackUrl"`
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req CreateAlertRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var errs validationErrors
	errs.required("userId", req.UserID)
	errs.required("toolId", req.ToolID)
	errs.required("tier", req.Tier)
	errs.nonNegative("threshold", req.Threshold)
	errs.webURL("callbackUrl", req.CallbackURL)
	if errs.failed() {
		writeValidation(w, errs)
		return
	}

	if _, err := s.DB.GetTool(r.Context(), req.ToolID); err != nil {
		s.writeStoreError(w, r, "Tool not found", err)
		return
	}

	alert, err := s.DB.CreateAlert(r.Context(), catalog.PriceAlert{
		UserID:      req.UserID,
		ToolID:      req.ToolID,
		Tier:        pricing.TierName(strings.ToLower(strings.TrimSpace(req.Tier))),
		Threshold:   req.Threshold.String(),
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		s.writeStoreError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.DB.ListAlerts(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.writeStoreError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := s.DB.DeleteAlert(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeStoreError(w, r, "Alert not found", err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
