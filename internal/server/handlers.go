package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/observability"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/swapengine"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine       *swapengine.Engine
	Cache        storage.SwapCache   // Recent swaps and live feed
	History      storage.SwapStore   // Swap history (optional)
	Replay       storage.ReplayGuard // Rejects reused signatures
	Bootstrapper ledger.Bootstrapper // Account bootstrapping (dev mode only)
	Cluster      ledger.AccountReader // Live Solana reads for inspection (optional)
	SignatureTTL time.Duration        // Longest accepted signature lifetime
	DevMode      bool                 // Enable detailed error responses in development
	Logger       *logrus.Logger       // Structured logger
	Metrics      *observability.Metrics
	Now          func() time.Time
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// reject counts a request refused before it reached the engine.
func (h *Handlers) reject(c echo.Context, reason string, code int, msg string, details any) error {
	if h.Metrics != nil {
		h.Metrics.RejectedRequests.WithLabelValues(reason).Inc()
	}
	return h.err(c, code, msg, details)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Health reports reachability of the swap feed and history store
func (h *Handlers) Health(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{OK: true, ProgramID: h.Engine.ProgramID().String(), Checks: map[string]string{}}
	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			resp.OK = false
			resp.Checks[name] = err.Error()
			return
		}
		resp.Checks[name] = "ok"
	}
	if h.Cache != nil {
		check("cache", h.Cache.Ping)
	}
	if h.History != nil {
		check("history", h.History.Ping)
	}

	code := http.StatusOK
	if !resp.OK {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

// InitializePool creates a pool over two reserves owned by its derived authority
func (h *Handlers) InitializePool(c echo.Context) error {
	var req InitializePoolRequest
	if err := c.Bind(&req); err != nil {
		return h.reject(c, "bad_request", http.StatusBadRequest, "invalid json", nil)
	}

	var keys keyParser
	mintA := keys.parse("token_a_mint", req.TokenAMint)
	mintB := keys.parse("token_b_mint", req.TokenBMint)
	reserveA := keys.parse("token_a_reserve", req.TokenAReserve)
	reserveB := keys.parse("token_b_reserve", req.TokenBReserve)
	creator := keys.parse("creator", req.Creator)
	if keys.err != nil {
		return h.reject(c, "bad_request", http.StatusBadRequest, "invalid request", keys.details())
	}

	intent := wallet.InitializeIntent{
		Seed:          req.Seed,
		TokenAMint:    req.TokenAMint,
		TokenBMint:    req.TokenBMint,
		TokenAReserve: req.TokenAReserve,
		TokenBReserve: req.TokenBReserve,
		Creator:       req.Creator,
		ExpiresAt:     req.ExpiresAt,
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.authorize(ctx, c, "initialize", creator, intent, req.Signature); err != nil {
		return err
	}

	info, err := h.Engine.Initialize(ctx, swapengine.InitializeRequest{
		Seed:          []byte(req.Seed),
		TokenAMint:    mintA,
		TokenBMint:    mintB,
		TokenAReserve: reserveA,
		TokenBReserve: reserveB,
		Creator:       creator,
	})
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusCreated, newPoolResponse(info))
}

// ListPools returns every initialized pool
func (h *Handlers) ListPools(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pools, err := h.Engine.Pools(ctx)
	if err != nil {
		return h.engineErr(c, err)
	}
	items := make([]PoolResponse, 0, len(pools))
	for _, p := range pools {
		items = append(items, newPoolResponse(p))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// GetPool returns one pool by address
func (h *Handlers) GetPool(c echo.Context) error {
	addr, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool address", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	info, err := h.Engine.Pool(ctx, addr)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusOK, newPoolResponse(info))
}

// InspectPool reports live reserve balances and broken bindings. With
// ?source=cluster reserves are read from the configured Solana RPC.
func (h *Handlers) InspectPool(c echo.Context) error {
	addr, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool address", nil)
	}

	source := c.QueryParam("source")
	var reader ledger.AccountReader
	switch source {
	case "", "ledger":
		source = "ledger"
	case "cluster":
		if h.Cluster == nil {
			return h.err(c, http.StatusBadRequest, "solana rpc is not configured", nil)
		}
		reader = h.Cluster
	default:
		return h.err(c, http.StatusBadRequest, "invalid source", map[string]any{"source": "ledger or cluster"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	insp, err := h.Engine.Inspect(ctx, addr, reader)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusOK, InspectResponse{
		Pool:     newPoolResponse(&insp.PoolInfo),
		Source:   source,
		ReserveA: newAccountResponse(insp.ReserveA),
		ReserveB: newAccountResponse(insp.ReserveB),
		Healthy:  insp.Healthy,
		Problems: insp.Problems,
	})
}

// Swap exchanges tokens 1:1 against a pool
func (h *Handlers) Swap(c echo.Context) error {
	pool, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		return h.reject(c, "bad_request", http.StatusBadRequest, "invalid pool address", nil)
	}

	var req SwapRequest
	if err := c.Bind(&req); err != nil {
		return h.reject(c, "bad_request", http.StatusBadRequest, "invalid json", nil)
	}
	dir, err := swapengine.ParseDirection(req.Direction)
	if err != nil {
		return h.reject(c, "bad_request", http.StatusBadRequest, "invalid direction", map[string]any{"direction": "a_to_b or b_to_a"})
	}

	var keys keyParser
	caller := keys.parse("caller", req.Caller)
	userA := keys.parse("user_token_a", req.UserTokenA)
	userB := keys.parse("user_token_b", req.UserTokenB)
	poolA := keys.optional("pool_token_a", req.PoolTokenA)
	poolB := keys.optional("pool_token_b", req.PoolTokenB)
	if keys.err != nil {
		return h.reject(c, "bad_request", http.StatusBadRequest, "invalid request", keys.details())
	}

	intent := wallet.SwapIntent{
		Pool:       pool.String(),
		Direction:  string(dir),
		Amount:     req.Amount,
		Caller:     req.Caller,
		UserTokenA: req.UserTokenA,
		UserTokenB: req.UserTokenB,
		PoolTokenA: req.PoolTokenA,
		PoolTokenB: req.PoolTokenB,
		ExpiresAt:  req.ExpiresAt,
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.authorize(ctx, c, "swap", caller, intent, req.Signature); err != nil {
		return err
	}

	res, err := h.Engine.Swap(ctx, dir, swapengine.SwapRequest{
		Pool:   pool,
		Caller: caller,
		Accounts: swapengine.SwapAccounts{
			PoolTokenA: poolA,
			PoolTokenB: poolB,
			UserTokenA: userA,
			UserTokenB: userB,
		},
		Amount: req.Amount,
	})
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusOK, newSwapResponse(res))
}

// authorize verifies signer's signature over intent and burns the signature
// so it cannot be replayed. It writes the error response itself.
func (h *Handlers) authorize(ctx context.Context, c echo.Context, op string, signer solana.PublicKey, intent wallet.Intent, signature string) error {
	now := h.now()

	ttl := h.SignatureTTL
	if ttl <= 0 {
		ttl = constants.DefaultSignatureTTL
	}
	if intent.Expiry().After(now.Add(ttl)) {
		return h.reject(c, "bad_request", http.StatusBadRequest, "expires_at too far in the future",
			map[string]any{"max_ttl": ttl.String()})
	}

	if err := wallet.Verify(signer, intent, signature, now); err != nil {
		if errors.Is(err, wallet.ErrExpired) {
			return h.reject(c, "expired", http.StatusUnauthorized, "signature expired", nil)
		}
		return h.reject(c, "bad_signature", http.StatusUnauthorized, "invalid signature", nil)
	}

	fresh, err := h.Replay.Remember(ctx, op+":"+signature, intent.Expiry().Sub(now))
	if err != nil {
		h.Logger.WithError(err).Error("replay guard unavailable")
		return h.err(c, http.StatusServiceUnavailable, "replay guard unavailable", nil)
	}
	if !fresh {
		return h.reject(c, "replay", http.StatusConflict, "signature already used", nil)
	}
	return nil
}

// RecentSwaps returns the most recent swap events with optional limit parameter
// Accepts limit query parameter (default: 100, range: 1-200)
func (h *Handlers) RecentSwaps(c echo.Context) error {
	limitStr := c.QueryParam("limit")
	limit := constants.MaxRecentSwaps
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > constants.MaxSwapsPerPage {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": fmt.Sprintf("min 1 max %d", constants.MaxSwapsPerPage)})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentSwaps(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get swaps", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// PoolVolume aggregates stored swaps for one pool
func (h *Handlers) PoolVolume(c echo.Context) error {
	if h.History == nil {
		return h.err(c, http.StatusServiceUnavailable, "swap history is not configured", nil)
	}
	addr, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool address", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if _, err := h.Engine.Pool(ctx, addr); err != nil {
		return h.engineErr(c, err)
	}
	vol, err := h.History.PoolVolume(ctx, addr.String())
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to query volume", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, vol)
}

// DevCreateAccount creates a token account on the ledger
func (h *Handlers) DevCreateAccount(c echo.Context) error {
	var req CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	var keys keyParser
	mint := keys.parse("mint", req.Mint)
	owner := keys.parse("owner", req.Owner)
	addr := keys.optional("address", req.Address)
	if keys.err != nil {
		return h.err(c, http.StatusBadRequest, "invalid request", keys.details())
	}
	if addr.IsZero() {
		k, err := solana.NewRandomPrivateKey()
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to generate address", nil)
		}
		addr = k.PublicKey()
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acct := ledger.TokenAccount{Address: addr, Mint: mint, Owner: owner, Amount: req.Amount}
	if err := h.Bootstrapper.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, ledger.ErrAccountExists) {
			return h.err(c, http.StatusConflict, "account exists", nil)
		}
		return h.err(c, http.StatusBadRequest, "failed to create account", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusCreated, newAccountResponse(&acct))
}

// DevMint credits tokens to an existing account
func (h *Handlers) DevMint(c echo.Context) error {
	var req MintRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	var keys keyParser
	addr := keys.parse("address", req.Address)
	if keys.err != nil {
		return h.err(c, http.StatusBadRequest, "invalid request", keys.details())
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Bootstrapper.MintTo(ctx, addr, req.Amount); err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return h.err(c, http.StatusNotFound, "account not found", nil)
		}
		return h.err(c, http.StatusBadRequest, "failed to mint", map[string]any{"err": err.Error()})
	}

	acct, err := h.Engine.Account(ctx, addr)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to read account", nil)
	}
	return c.JSON(http.StatusOK, newAccountResponse(acct))
}

// keyParser collects base58 key errors per field.
type keyParser struct {
	err    error
	fields map[string]string
}

func (p *keyParser) parse(field, value string) solana.PublicKey {
	value = strings.TrimSpace(value)
	if value == "" {
		p.fail(field, "required")
		return solana.PublicKey{}
	}
	k, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		p.fail(field, "invalid base58 public key")
		return solana.PublicKey{}
	}
	return k
}

func (p *keyParser) optional(field, value string) solana.PublicKey {
	if strings.TrimSpace(value) == "" {
		return solana.PublicKey{}
	}
	return p.parse(field, value)
}

func (p *keyParser) fail(field, msg string) {
	if p.fields == nil {
		p.fields = map[string]string{}
	}
	p.fields[field] = msg
	if p.err == nil {
		p.err = fmt.Errorf("%s: %s", field, msg)
	}
}

func (p *keyParser) details() map[string]string { return p.fields }
