package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	promotionengine "concord/contexts/governance/promotion-engine"
	governanceerrors "concord/contexts/governance/promotion-engine/domain/errors"
	governancehttp "concord/contexts/governance/promotion-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "concord/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	governance promotionengine.Module
}

func New(governance promotionengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		governance: governance,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routed mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/constitutions", s.handleCreateConstitution)
	s.mux.HandleFunc("GET /v1/constitutions/resolve", s.handleResolveConstitution)
	s.mux.HandleFunc("GET /v1/constitutions/{constitution_id}/tiers", s.handleListTiers)
	s.mux.HandleFunc("GET /v1/constitutions/{constitution_id}/tiers/stats", s.handleTierStats)
	s.mux.HandleFunc("GET /v1/constitutions/{constitution_id}/tiers/{level}", s.handleGetTier)
	s.mux.HandleFunc("GET /v1/constitutions/{constitution_id}/tiers/{level}/members", s.handleTierMembers)
	s.mux.HandleFunc("POST /v1/constitutions/{constitution_id}/agents", s.handleRegisterAgent)
	s.mux.HandleFunc("POST /v1/constitutions/{constitution_id}/promotions", s.handleCreatePromotion)

	s.mux.HandleFunc("GET /v1/promotions/{promotion_id}", s.handleGetPromotion)
	s.mux.HandleFunc("POST /v1/promotions/{promotion_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("POST /v1/promotions/{promotion_id}/withdraw", s.handleWithdrawPromotion)
	s.mux.HandleFunc("POST /v1/promotions/{promotion_id}/resolve", s.handleResolvePromotion)
}

func (s *Server) handleCreateConstitution(w http.ResponseWriter, r *http.Request) {
	var req governancehttp.CreateConstitutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CreateConstitutionHandler(r.Context(), req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleResolveConstitution(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("slug")
	resp, err := s.governance.Handler.ResolveConstitutionHandler(r.Context(), token)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTiers(w http.ResponseWriter, r *http.Request) {
	constitutionID := r.PathValue("constitution_id")
	resp, err := s.governance.Handler.ListTiersHandler(r.Context(), constitutionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTierStats(w http.ResponseWriter, r *http.Request) {
	constitutionID := r.PathValue("constitution_id")
	resp, err := s.governance.Handler.TierStatsHandler(r.Context(), constitutionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTier(w http.ResponseWriter, r *http.Request) {
	constitutionID := r.PathValue("constitution_id")
	level, ok := parseTierLevel(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.GetTierHandler(r.Context(), constitutionID, level)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTierMembers(w http.ResponseWriter, r *http.Request) {
	constitutionID := r.PathValue("constitution_id")
	level, ok := parseTierLevel(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.TierMembersHandler(r.Context(), constitutionID, level)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	constitutionID := r.PathValue("constitution_id")
	var req governancehttp.RegisterAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.RegisterAgentHandler(r.Context(), constitutionID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCreatePromotion(w http.ResponseWriter, r *http.Request) {
	constitutionID := r.PathValue("constitution_id")
	var req governancehttp.CreatePromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CreatePromotionHandler(r.Context(), constitutionID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetPromotion(w http.ResponseWriter, r *http.Request) {
	promotionID := r.PathValue("promotion_id")
	resp, err := s.governance.Handler.GetPromotionHandler(r.Context(), promotionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	promotionID := r.PathValue("promotion_id")
	var req governancehttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CastVoteHandler(r.Context(), promotionID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdrawPromotion(w http.ResponseWriter, r *http.Request) {
	promotionID := r.PathValue("promotion_id")
	var req governancehttp.WithdrawPromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	requestedBy := strings.TrimSpace(req.RequestedBy)
	administrative := false
	if adminID := strings.TrimSpace(r.Header.Get("X-Admin-Id")); adminID != "" {
		administrative = true
		if requestedBy == "" {
			requestedBy = adminID
		}
	}

	resp, err := s.governance.Handler.WithdrawPromotionHandler(r.Context(), promotionID, requestedBy, administrative)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolvePromotion(w http.ResponseWriter, r *http.Request) {
	promotionID := r.PathValue("promotion_id")
	resp, err := s.governance.Handler.ResolvePromotionHandler(r.Context(), promotionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeGovernanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, governanceerrors.ErrConstitutionNotFound):
		writeGovernanceError(w, http.StatusNotFound, "constitution_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrTierNotFound):
		writeGovernanceError(w, http.StatusNotFound, "tier_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrAgentNotFound):
		writeGovernanceError(w, http.StatusNotFound, "agent_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrProposerNotFound):
		writeGovernanceError(w, http.StatusNotFound, "proposer_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrPromotionNotFound):
		writeGovernanceError(w, http.StatusNotFound, "promotion_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrInvalidConstitutionInput),
		errors.Is(err, governanceerrors.ErrInvalidAgentInput),
		errors.Is(err, governanceerrors.ErrInvalidPromotionInput),
		errors.Is(err, governanceerrors.ErrInvalidVoteInput),
		errors.Is(err, governanceerrors.ErrInvalidTargetTier):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, governanceerrors.ErrSlugAlreadyExists):
		writeGovernanceError(w, http.StatusConflict, "slug_already_exists", err.Error())
	case errors.Is(err, governanceerrors.ErrWalletAlreadyRegistered):
		writeGovernanceError(w, http.StatusConflict, "wallet_already_registered", err.Error())
	case errors.Is(err, governanceerrors.ErrBootstrapCapacityReached):
		writeGovernanceError(w, http.StatusConflict, "bootstrap_capacity_reached", err.Error())
	case errors.Is(err, governanceerrors.ErrDuplicateOpenPromotion):
		writeGovernanceError(w, http.StatusConflict, "duplicate_open_promotion", err.Error())
	case errors.Is(err, governanceerrors.ErrCooldownActive):
		writeGovernanceError(w, http.StatusConflict, "cooldown_active", err.Error())
	case errors.Is(err, governanceerrors.ErrPromotionNotOpen):
		writeGovernanceError(w, http.StatusConflict, "promotion_not_open", err.Error())
	case errors.Is(err, governanceerrors.ErrVotingClosed):
		writeGovernanceError(w, http.StatusConflict, "voting_closed", err.Error())
	case errors.Is(err, governanceerrors.ErrSelfVoteForbidden):
		writeGovernanceError(w, http.StatusForbidden, "self_vote_forbidden", err.Error())
	case errors.Is(err, governanceerrors.ErrVoterNotEligible):
		writeGovernanceError(w, http.StatusForbidden, "voter_not_eligible", err.Error())
	case errors.Is(err, governanceerrors.ErrUnauthorizedWithdrawal):
		writeGovernanceError(w, http.StatusForbidden, "unauthorized_withdrawal", err.Error())
	case errors.Is(err, governanceerrors.ErrConflict):
		writeGovernanceError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeGovernanceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeGovernanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, governancehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func parseTierLevel(w http.ResponseWriter, r *http.Request) (int, bool) {
	level, err := strconv.Atoi(r.PathValue("level"))
	if err != nil || level <= 0 {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_tier_level", "tier level must be a positive integer")
		return 0, false
	}
	return level, true
}
