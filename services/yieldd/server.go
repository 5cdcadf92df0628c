package yieldd

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"yieldplus/config"
	"yieldplus/native/asset"
	"yieldplus/native/common"
)

const maxActionBody = 64 << 10

// ServerConfig wires the HTTP surface.
type ServerConfig struct {
	Auth      *Authenticator
	RateLimit config.RateLimit
	Logger    *slog.Logger
}

type server struct {
	node   *Node
	logger *slog.Logger
}

// NewServer exposes node over HTTP.
func NewServer(node *Node, cfg ServerConfig) (http.Handler, error) {
	if node == nil {
		return nil, errors.New("node required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("authenticator required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{node: node, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v chi.Router) {
		v.Use(NewRateLimiter(cfg.RateLimit).Middleware)
		v.With(cfg.Auth.Middleware).Post("/actions/{contract}/{action}", s.handleAction)
		v.Get("/actions/{contract}", s.handleListActions)

		v.Get("/yield/config", s.handleYieldConfig)
		v.Get("/yield/protocols", s.handleProtocols)
		v.Get("/yield/protocols/{name}", s.handleProtocol)
		v.Get("/yield/protocols/{name}/periods", s.handlePeriods)

		v.Get("/oracle/config", s.handleOracleConfig)
		v.Get("/oracle/oracles", s.handleOracles)
		v.Get("/oracle/oracles/{name}", s.handleOracle)
		v.Get("/oracle/tokens", s.handleTokens)

		v.Get("/balances/{account}", s.handleBalance)
	})

	return otelhttp.NewHandler(r, "yieldd"), nil
}

type failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, failure{Kind: kind, Message: message})
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	kind := kindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("error", err.Error()))
	}
	writeFailure(w, status, string(kind), err.Error())
}

func statusFor(kind common.Kind) int {
	switch kind {
	case common.KindUnauthorized:
		return http.StatusForbidden
	case common.KindValidation:
		return http.StatusBadRequest
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindState:
		return http.StatusConflict
	case common.KindUnimplemented:
		return http.StatusNotImplemented
	case common.KindOverflow:
		return http.StatusUnprocessableEntity
	case "throttled":
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) handleAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxActionBody+1))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, string(common.KindValidation), "unreadable body")
		return
	}
	if len(body) > maxActionBody {
		writeFailure(w, http.StatusRequestEntityTooLarge, string(common.KindValidation), "body too large")
		return
	}
	list, err := decodeArgs(body)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, string(common.KindValidation), err.Error())
		return
	}
	receipt, err := s.node.Execute(r.Context(), Action{
		Contract: chi.URLParam(r, "contract"),
		Name:     chi.URLParam(r, "action"),
		Args:     list,
		Signers:  SignersFrom(r.Context()),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// decodeArgs accepts either a bare JSON array or {"args": [...]}.
func decodeArgs(body []byte) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, nil
	}
	var list []json.RawMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, errors.New("arguments must be a JSON array")
		}
		return list, nil
	}
	var envelope struct {
		Args []json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.New("arguments must be a JSON array")
	}
	return envelope.Args, nil
}

func (s *server) handleListActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.node.Actions(chi.URLParam(r, "contract")))
}

func (s *server) handleYieldConfig(w http.ResponseWriter, r *http.Request) {
	out, err := s.node.YieldConfig()
	s.respond(w, out, err)
}

func (s *server) handleProtocols(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	out, err := s.node.Protocols(activeOnly)
	s.respond(w, out, err)
}

func (s *server) handleProtocol(w http.ResponseWriter, r *http.Request) {
	out, err := s.node.Protocol(chi.URLParam(r, "name"))
	s.respond(w, out, err)
}

func (s *server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	out, err := s.node.Periods(chi.URLParam(r, "name"))
	s.respond(w, out, err)
}

func (s *server) handleOracleConfig(w http.ResponseWriter, r *http.Request) {
	out, err := s.node.OracleConfig()
	s.respond(w, out, err)
}

func (s *server) handleOracles(w http.ResponseWriter, r *http.Request) {
	out, err := s.node.Oracles()
	s.respond(w, out, err)
}

func (s *server) handleOracle(w http.ResponseWriter, r *http.Request) {
	out, err := s.node.Oracle(chi.URLParam(r, "name"))
	s.respond(w, out, err)
}

func (s *server) handleTokens(w http.ResponseWriter, r *http.Request) {
	out, err := s.node.Tokens()
	s.respond(w, out, err)
}

// handleBalance reads ?symbol=4,EOS@eosio.token.
func (s *server) handleBalance(w http.ResponseWriter, r *http.Request) {
	sym, err := asset.ParseExtendedSymbol(r.URL.Query().Get("symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	bal, err := s.node.Balance(chi.URLParam(r, "account"), sym)
	s.respond(w, map[string]string{"balance": bal.String()}, err)
}

func (s *server) respond(w http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
