package rpc

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"wayfind/crypto"
	"wayfind/native/remint"
)

type initializeParams struct {
	Caller    string `json:"caller"`
	WeeklyCap string `json:"weeklyCap"`
}

type burnParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type registerCreatorParams struct {
	Caller string `json:"caller"`
	Payout string `json:"payout"`
}

type recordViewsParams struct {
	Caller  string `json:"caller"`
	Creator string `json:"creator"`
	Views   string `json:"views"`
}

type updateReputationParams struct {
	Caller  string `json:"caller"`
	Creator string `json:"creator"`
	Score   uint8  `json:"score"`
	Tier    string `json:"tier"`
}

type distributeRewardParams struct {
	Caller     string `json:"caller"`
	Creator    string `json:"creator"`
	BaseReward string `json:"baseReward"`
}

type claimRewardsParams struct {
	Caller string `json:"caller"`
}

type addressParams struct {
	Address string `json:"address"`
}

type eventsParams struct {
	From  uint64 `json:"from"`
	Limit int    `json:"limit,omitempty"`
}

type configResult struct {
	Authority     string `json:"authority"`
	TokenSymbol   string `json:"tokenSymbol"`
	Pool          string `json:"pool"`
	RemintPool    string `json:"remintPool"`
	WeeklyCap     string `json:"weeklyCap"`
	CurrentEpoch  uint64 `json:"currentEpoch"`
	EpochStart    int64  `json:"epochStart"`
	TotalBurned   string `json:"totalBurned"`
	TotalReminted string `json:"totalReminted"`
}

type burnResult struct {
	User         string `json:"user"`
	Amount       string `json:"amount"`
	BurnAmount   string `json:"burnAmount"`
	RemintAmount string `json:"remintAmount"`
	Credits      string `json:"credits"`
	Timestamp    int64  `json:"timestamp"`
}

type creditsResult struct {
	Owner       string `json:"owner"`
	Credits     string `json:"credits"`
	TotalBurned string `json:"totalBurned"`
}

type creatorResult struct {
	Owner           string `json:"owner"`
	Payout          string `json:"payout"`
	TotalViews      string `json:"totalViews"`
	WeeklyViews     string `json:"weeklyViews"`
	ReputationScore uint8  `json:"reputationScore"`
	Tier            string `json:"tier"`
	TotalEarned     string `json:"totalEarned"`
	PendingRewards  string `json:"pendingRewards"`
	RegisteredAt    int64  `json:"registeredAt"`
}

type distributionResult struct {
	Creator     string `json:"creator"`
	BaseReward  string `json:"baseReward"`
	Multiplier  string `json:"multiplier"`
	FinalReward string `json:"finalReward"`
	Epoch       uint64 `json:"epoch"`
	Timestamp   int64  `json:"timestamp"`
}

type claimResult struct {
	Creator        string `json:"creator"`
	Amount         string `json:"amount"`
	TotalEarned    string `json:"totalEarned"`
	PendingRewards string `json:"pendingRewards"`
}

func formatAddress(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.WayPrefix, addr[:]).String()
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func decodeBech32(value string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func parseAmount(value string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(value), 10, 64)
}

func formatConfig(cfg *remint.Config) configResult {
	return configResult{
		Authority:     formatAddress(cfg.Authority),
		TokenSymbol:   cfg.TokenSymbol,
		Pool:          formatAddress(cfg.Pool),
		RemintPool:    formatAmount(cfg.RemintPool),
		WeeklyCap:     formatAmount(cfg.WeeklyCap),
		CurrentEpoch:  cfg.CurrentEpoch,
		EpochStart:    cfg.EpochStart,
		TotalBurned:   formatAmount(cfg.TotalBurned),
		TotalReminted: formatAmount(cfg.TotalReminted),
	}
}

func formatCreator(profile *remint.CreatorProfile) creatorResult {
	return creatorResult{
		Owner:           formatAddress(profile.Owner),
		Payout:          formatAddress(profile.Payout),
		TotalViews:      formatAmount(profile.TotalViews),
		WeeklyViews:     formatAmount(profile.WeeklyViews),
		ReputationScore: profile.ReputationScore,
		Tier:            profile.Tier.String(),
		TotalEarned:     formatAmount(profile.TotalEarned),
		PendingRewards:  formatAmount(profile.PendingRewards),
		RegisteredAt:    profile.RegisteredAt,
	}
}

func decodeParams(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return false
	}
	return true
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params initializeParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	weeklyCap, err := parseAmount(params.WeeklyCap)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid weekly cap", err.Error())
		return
	}
	var cfg *remint.Config
	execErr := s.execute(func() error {
		var engineErr error
		cfg, engineErr = s.engine.Initialize(caller, s.tokenSymbol, s.pool, weeklyCap)
		return engineErr
	})
	if execErr != nil {
		writeEngineError(w, req.ID, execErr)
		return
	}
	writeResult(w, req.ID, formatConfig(cfg))
}

func (s *Server) handleBurnForCredits(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params burnParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid amount", err.Error())
		return
	}
	var receipt *remint.BurnReceipt
	execErr := s.execute(func() error {
		var engineErr error
		receipt, engineErr = s.engine.BurnForCredits(caller, amount)
		return engineErr
	})
	if execErr != nil {
		writeEngineError(w, req.ID, execErr)
		return
	}
	writeResult(w, req.ID, burnResult{
		User:         formatAddress(receipt.User),
		Amount:       formatAmount(receipt.Amount),
		BurnAmount:   formatAmount(receipt.BurnAmount),
		RemintAmount: formatAmount(receipt.RemintAmount),
		Credits:      formatAmount(receipt.Credits),
		Timestamp:    receipt.Timestamp,
	})
}

func (s *Server) handleRegisterCreator(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params registerCreatorParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	payout, err := decodeBech32(params.Payout)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid payout address", err.Error())
		return
	}
	var profile *remint.CreatorProfile
	execErr := s.execute(func() error {
		var engineErr error
		profile, engineErr = s.engine.RegisterCreator(caller, payout)
		return engineErr
	})
	if execErr != nil {
		writeEngineError(w, req.ID, execErr)
		return
	}
	writeResult(w, req.ID, formatCreator(profile))
}

func (s *Server) handleRecordViews(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params recordViewsParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	creator, err := decodeBech32(params.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid creator address", err.Error())
		return
	}
	views, err := parseAmount(params.Views)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid views", err.Error())
		return
	}
	var profile *remint.CreatorProfile
	execErr := s.execute(func() error {
		var engineErr error
		profile, engineErr = s.engine.RecordViews(caller, creator, views)
		return engineErr
	})
	if execErr != nil {
		writeEngineError(w, req.ID, execErr)
		return
	}
	writeResult(w, req.ID, formatCreator(profile))
}

func (s *Server) handleUpdateReputation(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params updateReputationParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	creator, err := decodeBech32(params.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid creator address", err.Error())
		return
	}
	tier, err := remint.ParseTier(params.Tier)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid tier", err.Error())
		return
	}
	var profile *remint.CreatorProfile
	execErr := s.execute(func() error {
		var engineErr error
		profile, engineErr = s.engine.UpdateReputation(caller, creator, params.Score, tier)
		return engineErr
	})
	if execErr != nil {
		writeEngineError(w, req.ID, execErr)
		return
	}
	writeResult(w, req.ID, formatCreator(profile))
}

func (s *Server) handleDistributeReward(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params distributeRewardParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	creator, err := decodeBech32(params.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid creator address", err.Error())
		return
	}
	baseReward, err := parseAmount(params.BaseReward)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid base reward", err.Error())
		return
	}
	var dist *remint.Distribution
	execErr := s.execute(func() error {
		var engineErr error
		dist, engineErr = s.engine.DistributeReward(caller, creator, baseReward)
		return engineErr
	})
	if execErr != nil {
		writeEngineError(w, req.ID, execErr)
		return
	}
	writeResult(w, req.ID, distributionResult{
		Creator:     formatAddress(dist.Creator),
		BaseReward:  formatAmount(dist.BaseReward),
		Multiplier:  formatAmount(dist.Multiplier),
		FinalReward: formatAmount(dist.FinalReward),
		Epoch:       dist.Epoch,
		Timestamp:   dist.Timestamp,
	})
}

func (s *Server) handleClaimRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params claimRewardsParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	var (
		amount  uint64
		profile *remint.CreatorProfile
	)
	execErr := s.execute(func() error {
		var engineErr error
		amount, profile, engineErr = s.engine.ClaimRewards(caller)
		return engineErr
	})
	if execErr != nil {
		writeEngineError(w, req.ID, execErr)
		return
	}
	writeResult(w, req.ID, claimResult{
		Creator:        formatAddress(profile.Owner),
		Amount:         formatAmount(amount),
		TotalEarned:    formatAmount(profile.TotalEarned),
		PendingRewards: formatAmount(profile.PendingRewards),
	})
}

// Query handlers hold the state mutex too: the trie is not safe for
// concurrent use, even between readers, and a mutating operation may roll it
// back mid-flight.

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.mu.Lock()
	cfg, err := s.engine.Config()
	s.mu.Unlock()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatConfig(cfg))
}

func (s *Server) handleGetCredits(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	owner, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	s.mu.Lock()
	account, err := s.engine.Credits(owner)
	s.mu.Unlock()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, creditsResult{
		Owner:       formatAddress(account.Owner),
		Credits:     formatAmount(account.Credits),
		TotalBurned: formatAmount(account.TotalBurned),
	})
}

func (s *Server) handleGetCreator(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	owner, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	s.mu.Lock()
	profile, err := s.engine.Creator(owner)
	s.mu.Unlock()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatCreator(profile))
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params eventsParams
	if !decodeParams(w, req, &params) {
		return
	}
	records, err := s.log.Records(params.From, params.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "event log read failed", err.Error())
		return
	}
	writeResult(w, req.ID, records)
}
