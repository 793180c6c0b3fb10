package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	promotionengine "concord/contexts/governance/promotion-engine"
	governancehttp "concord/contexts/governance/promotion-engine/transport/http"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	module := promotionengine.NewInMemoryModule(nil)
	return New(module, nil, ":0").Handler()
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(target); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
}

func foundConstitution(t *testing.T, handler http.Handler) governancehttp.ConstitutionResponse {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/v1/constitutions", governancehttp.CreateConstitutionRequest{
		Slug:    "genesis",
		Name:    "Genesis Collective",
		Content: "We the agents...",
		Tiers: []governancehttp.TierRequest{
			{Level: 1, Name: "Member"},
			{Level: 2, Name: "Contributor"},
		},
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create constitution expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp governancehttp.ConstitutionResponse
	decodeInto(t, rec, &resp)
	return resp
}

func registerAgent(t *testing.T, handler http.Handler, constitutionID string, name string, wallet string) governancehttp.AgentResponse {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/v1/constitutions/"+constitutionID+"/agents", governancehttp.RegisterAgentRequest{
		DisplayName:   name,
		WalletAddress: wallet,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register agent expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp governancehttp.AgentResponse
	decodeInto(t, rec, &resp)
	return resp
}

func TestPromotionLifecycleOverHTTP(t *testing.T) {
	handler := newTestServer(t)

	constitution := foundConstitution(t, handler)
	candidate := registerAgent(t, handler, constitution.ConstitutionID, "Candidate", "0xcand")
	proposer := registerAgent(t, handler, constitution.ConstitutionID, "Proposer", "0xprop")
	voter := registerAgent(t, handler, constitution.ConstitutionID, "Voter", "0xvoter")

	rec := doJSON(t, handler, http.MethodPost, "/v1/constitutions/"+constitution.ConstitutionID+"/promotions", governancehttp.CreatePromotionRequest{
		CandidateID: candidate.AgentID,
		ProposerID:  proposer.AgentID,
		TargetLevel: 2,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create promotion expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var promotion governancehttp.PromotionResponse
	decodeInto(t, rec, &promotion)
	if promotion.Status != "open" {
		t.Fatalf("expected open promotion, got %s", promotion.Status)
	}

	// Self-vote is forbidden at the engine level.
	rec = doJSON(t, handler, http.MethodPost, "/v1/promotions/"+promotion.PromotionID+"/votes", governancehttp.CastVoteRequest{
		VoterID: candidate.AgentID,
		Approve: true,
	}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("self vote expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/promotions/"+promotion.PromotionID+"/votes", governancehttp.CastVoteRequest{
		VoterID: voter.AgentID,
		Approve: true,
		Reason:  "solid contributor",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cast vote expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var voted governancehttp.PromotionResponse
	decodeInto(t, rec, &voted)
	if voted.VotesFor != 1 || voted.Voters != 1 {
		t.Fatalf("expected tally 1 for / 1 voter, got %d/%d", voted.VotesFor, voted.Voters)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/promotions/"+promotion.PromotionID+"/resolve", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resolved governancehttp.PromotionResponse
	decodeInto(t, rec, &resolved)
	if resolved.Status != "approved" {
		t.Fatalf("expected approved, got %s", resolved.Status)
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/constitutions/"+constitution.ConstitutionID+"/tiers/2/members", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tier members expected 200, got %d", rec.Code)
	}
	var members governancehttp.TierMembersResponse
	decodeInto(t, rec, &members)
	if len(members.Members) != 1 || members.Members[0].AgentID != candidate.AgentID {
		t.Fatalf("expected promoted candidate at tier 2, got %+v", members.Members)
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/constitutions/"+constitution.ConstitutionID+"/tiers/stats", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tier stats expected 200, got %d", rec.Code)
	}
	var stats governancehttp.TierStatsResponse
	decodeInto(t, rec, &stats)
	want := map[int]int{1: 2, 2: 1}
	for _, item := range stats.Tiers {
		if want[item.Level] != item.Members {
			t.Fatalf("tier %d expected %d members, got %d", item.Level, want[item.Level], item.Members)
		}
	}
}

func TestResolveConstitutionEndpoint(t *testing.T) {
	handler := newTestServer(t)
	foundConstitution(t, handler)

	rec := doJSON(t, handler, http.MethodGet, "/v1/constitutions/resolve?slug=genesis", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/constitutions/resolve?slug=nowhere", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown slug expected 404, got %d", rec.Code)
	}
	var errResp governancehttp.ErrorResponse
	decodeInto(t, rec, &errResp)
	if errResp.Code != "constitution_not_found" {
		t.Fatalf("expected constitution_not_found code, got %s", errResp.Code)
	}
}

func TestWithdrawStandingOverHTTP(t *testing.T) {
	handler := newTestServer(t)

	constitution := foundConstitution(t, handler)
	candidate := registerAgent(t, handler, constitution.ConstitutionID, "Candidate", "0xcand")
	proposer := registerAgent(t, handler, constitution.ConstitutionID, "Proposer", "0xprop")
	stranger := registerAgent(t, handler, constitution.ConstitutionID, "Stranger", "0xstr")

	rec := doJSON(t, handler, http.MethodPost, "/v1/constitutions/"+constitution.ConstitutionID+"/promotions", governancehttp.CreatePromotionRequest{
		CandidateID: candidate.AgentID,
		ProposerID:  proposer.AgentID,
		TargetLevel: 2,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create promotion expected 201, got %d", rec.Code)
	}
	var promotion governancehttp.PromotionResponse
	decodeInto(t, rec, &promotion)

	rec = doJSON(t, handler, http.MethodPost, "/v1/promotions/"+promotion.PromotionID+"/withdraw", governancehttp.WithdrawPromotionRequest{
		RequestedBy: stranger.AgentID,
	}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger withdrawal expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/promotions/"+promotion.PromotionID+"/withdraw", governancehttp.WithdrawPromotionRequest{}, map[string]string{
		"X-Admin-Id": "ops-admin",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("administrative withdrawal expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var withdrawn governancehttp.PromotionResponse
	decodeInto(t, rec, &withdrawn)
	if withdrawn.Status != "withdrawn" {
		t.Fatalf("expected withdrawn, got %s", withdrawn.Status)
	}
	if withdrawn.WithdrawnBy != "ops-admin" {
		t.Fatalf("expected withdrawn_by ops-admin, got %s", withdrawn.WithdrawnBy)
	}
}

func TestUnknownPromotionReturnsNotFound(t *testing.T) {
	handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/v1/promotions/missing", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
