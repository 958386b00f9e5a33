package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AlexZinkM/seedvault/internal/crypto"
	"github.com/AlexZinkM/seedvault/internal/model"
	"github.com/AlexZinkM/seedvault/internal/secret"
	"github.com/AlexZinkM/seedvault/internal/session"

	"go.uber.org/zap"
)

// SeedHandler serves the seed capability of one session
type SeedHandler struct {
	session  *session.Session
	filePath string
	logger   *zap.Logger
}

// NewSeedHandler creates a new SeedHandler
func NewSeedHandler(sess *session.Session, filePath string, logger *zap.Logger) (*SeedHandler, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if filePath == "" {
		return nil, errors.New("WALLET_FILE_PATH not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SeedHandler{
		session:  sess,
		filePath: filePath,
		logger:   logger,
	}, nil
}

// Status handles GET /seed/status
// @Summary      Seed loading state
// @Description  Reports whether the seed is being generated and whether it is readable
// @Tags         seed
// @Produce      json
// @Success      200  {object}  model.SeedStatusResponse
// @Router       /seed/status [get]
func (h *SeedHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.status())
}

// Unlock handles POST /seed/unlock
// @Summary      Unlock wallet seed
// @Description  Starts a new unlock attempt: revokes the current seed capability, creates the wallet if needed and decrypts it
// @Tags         seed
// @Produce      json
// @Success      200  {object}  model.SeedStatusResponse
// @Failure      409  {object}  model.ErrorResponse
// @Failure      500  {object}  model.ErrorResponse
// @Router       /seed/unlock [post]
func (h *SeedHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	if err := h.session.Unlock(r.Context()); err != nil {
		switch {
		case errors.Is(err, session.ErrGenerationInFlight):
			writeError(w, http.StatusConflict, err, "GENERATION_IN_FLIGHT")
		case errors.Is(err, session.ErrClosed):
			writeError(w, http.StatusServiceUnavailable, err, "SESSION_CLOSED")
		default:
			writeError(w, http.StatusInternalServerError, err, "GENERATION_FAILED")
		}
		return
	}

	writeJSON(w, http.StatusOK, h.status())
}

// Phrase handles GET /seed/phrase
// @Summary      Read seed phrase
// @Description  Returns the mnemonic while the current capability holds it
// @Tags         seed
// @Produce      json
// @Success      200  {object}  model.SeedPhraseResponse
// @Failure      404  {object}  model.ErrorResponse
// @Router       /seed/phrase [get]
func (h *SeedHandler) Phrase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	var body []byte
	ok := h.session.Capability().Proxy.Use(func(seed []byte) {
		body = phraseBody(seed)
	})
	defer secret.Zero(body)

	// Pending and revoked look the same here on purpose
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("seed unavailable"), "SEED_UNAVAILABLE")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	// The response writer buffers its own copy, which cannot be zeroed
	w.Write(body)
}

// Revoke handles POST /seed/revoke
// @Summary      Revoke seed
// @Description  Permanently revokes the current seed capability
// @Tags         seed
// @Produce      json
// @Success      200  {object}  model.RevokeResponse
// @Router       /seed/revoke [post]
func (h *SeedHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	h.session.Revoke()
	writeJSON(w, http.StatusOK, model.RevokeResponse{Revoked: true})
}

// Wallet handles GET /wallet
// @Summary      Wallet public info
// @Description  Returns network, address and address QR code without decrypting the wallet
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.WalletResponse
// @Failure      404  {object}  model.ErrorResponse
// @Router       /wallet [get]
func (h *SeedHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	cwtFile, err := crypto.ReadWalletEnvelope(h.filePath)
	if err != nil {
		if errors.Is(err, crypto.ErrFileNotExist) || errors.Is(err, crypto.ErrFileEmpty) {
			writeError(w, http.StatusNotFound, errors.New("wallet not created"), "WALLET_NOT_FOUND")
			return
		}
		h.logger.Error("failed to read wallet envelope", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err, "")
		return
	}

	writeJSON(w, http.StatusOK, model.WalletResponse{
		Network: cwtFile.Network,
		Address: cwtFile.Address,
		QR:      cwtFile.QR,
	})
}

func (h *SeedHandler) status() model.SeedStatusResponse {
	status := h.session.Status()
	return model.SeedStatusResponse{
		Generating: status.Generating,
		Available:  h.session.Capability().Proxy.Use(func([]byte) {}),
		HasWallet:  status.HasWallet,
	}
}

// phraseBody encodes model.SeedPhraseResponse by hand into a buffer the
// caller can zero. encoding/json would leave a string and its scratch
// buffer holding the mnemonic on the heap.
func phraseBody(seed []byte) []byte {
	const prefix, suffix = `{"mnemonic":"`, `"}`

	body := make([]byte, 0, len(prefix)+len(seed)*6+len(suffix))
	body = append(body, prefix...)
	for _, c := range seed {
		switch {
		case c == '"' || c == '\\':
			body = append(body, '\\', c)
		case c < 0x20:
			body = append(body, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		default:
			body = append(body, c)
		}
	}
	return append(body, suffix...)
}

const hexDigits = "0123456789abcdef"

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error, errCode string) {
	writeJSON(w, code, model.ErrorResponse{Error: err.Error(), Code: errCode})
}
