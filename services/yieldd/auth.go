package yieldd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"yieldplus/native/common"
	"yieldplus/observability/logging"
)

// SignersClaim is the JWT claim listing the accounts a bearer may sign for.
const SignersClaim = "signers"

type contextKey string

const contextKeySigners contextKey = "yieldd.signers"

// Authenticator turns HMAC bearer tokens into signer sets.
type Authenticator struct {
	secret    []byte
	clockSkew time.Duration
	logger    *slog.Logger
}

// NewAuthenticator validates tokens signed with secret.
func NewAuthenticator(secret []byte, logger *slog.Logger) (*Authenticator, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth secret not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{secret: append([]byte(nil), secret...), clockSkew: 2 * time.Minute, logger: logger}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// token's signers in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearer(r.Header.Get("Authorization"))
		if tokenString == "" {
			writeFailure(w, http.StatusUnauthorized, "authentication", "missing bearer token")
			return
		}
		signers, err := a.Signers(tokenString)
		if err != nil {
			a.logger.Warn("token validation failed",
				slog.String("error", err.Error()),
				logging.MaskField("token", tokenString))
			writeFailure(w, http.StatusUnauthorized, "authentication", "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), contextKeySigners, signers)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Signers validates tokenString and returns the signer set it carries.
func (a *Authenticator) Signers(tokenString string) (common.Signers, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithLeeway(a.clockSkew))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("token invalid")
	}
	signers := common.NewSigners(extractSigners(claims)...)
	if len(signers) == 0 {
		return nil, errors.New("token lists no signers")
	}
	return signers, nil
}

// IssueToken signs a token for the given accounts, valid for ttl.
func IssueToken(secret []byte, ttl time.Duration, accounts ...string) (string, error) {
	claims := jwt.MapClaims{SignersClaim: accounts}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// SignersFrom returns the signers stored by Middleware.
func SignersFrom(ctx context.Context) common.Signers {
	signers, _ := ctx.Value(contextKeySigners).(common.Signers)
	return signers
}

// extractSigners accepts a space-separated string or a string array.
func extractSigners(claims jwt.MapClaims) []string {
	switch v := claims[SignersClaim].(type) {
	case string:
		return strings.Fields(v)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func extractBearer(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
