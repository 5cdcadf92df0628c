package yieldd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"yieldplus/config"
	"yieldplus/native/common"
)

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func newAPI(t *testing.T, h *harness, limit config.RateLimit) *apiClient {
	t.Helper()
	auth, err := NewAuthenticator(testSecret, nil)
	require.NoError(t, err)
	handler, err := NewServer(h.node, ServerConfig{Auth: auth, RateLimit: limit})
	require.NoError(t, err)
	return &apiClient{t: t, handler: handler}
}

func (c *apiClient) do(method, path, signer string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(c.t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if signer != "" {
		token, err := IssueToken(testSecret, time.Minute, signer)
		require.NoError(c.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestServerActionsAndQueries(t *testing.T) {
	h := newHarness(t, nil)
	h.bootstrap(t)
	api := newAPI(t, h, config.RateLimit{})

	rec := api.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, "/v1/actions/eosio.yield/regprotocol", "", []interface{}{protocol, "dexes", map[string]string{"name": "P"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/v1/actions/eosio.yield/regprotocol", protocol, []interface{}{protocol, "dexes", map[string]string{"name": "P"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var receipt Receipt
	decodeBody(t, rec, &receipt)
	require.NotEmpty(t, receipt.ID)
	require.Equal(t, "regprotocol", receipt.Action)
	require.Equal(t, []string{protocol}, receipt.Signers)

	rec = api.do(http.MethodPost, "/v1/actions/eosio.yield/approve", protocol, []interface{}{protocol})
	require.Equal(t, http.StatusForbidden, rec.Code)
	var fail failure
	decodeBody(t, rec, &fail)
	require.Equal(t, "authorization", fail.Kind)

	rec = api.do(http.MethodPost, "/v1/actions/eosio.yield/approve", adminAcct, map[string]interface{}{"args": []string{protocol}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/v1/yield/protocols/"+protocol, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view ProtocolView
	decodeBody(t, rec, &view)
	require.Equal(t, "active", view.Status)
	require.Equal(t, "P", view.Metadata["name"])

	rec = api.do(http.MethodGet, "/v1/yield/protocols?active=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []ProtocolView
	decodeBody(t, rec, &list)
	require.Len(t, list, 1)

	rec = api.do(http.MethodGet, "/v1/yield/protocols/ghost", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/v1/yield/config", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ycfg YieldConfigView
	decodeBody(t, rec, &ycfg)
	require.Equal(t, uint64(500), ycfg.AnnualRate)

	rec = api.do(http.MethodGet, "/v1/oracle/tokens", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/v1/actions/eosio.yield", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	decodeBody(t, rec, &names)
	require.Contains(t, names, "claim")

	rec = api.do(http.MethodGet, "/v1/balances/eosio.yield?symbol="+url.QueryEscape("4,EOS@eosio.token"), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal map[string]string
	decodeBody(t, rec, &bal)
	require.Equal(t, "1000.0000 EOS", bal["balance"])

	rec = api.do(http.MethodGet, "/v1/balances/eosio.yield?symbol=EOS", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServerRejectsMalformedBodies(t *testing.T) {
	h := newHarness(t, nil)
	api := newAPI(t, h, config.RateLimit{})

	rec := api.do(http.MethodPost, "/v1/actions/admin.yield/setcategory", adminAcct, "not-an-array")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/v1/actions/admin.yield/nosuch", adminAcct, []string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/v1/actions/eosio.yield/setrate", adminAcct, []interface{}{1, "1.0000 EOS", "2.0000 EOS"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServerRateLimit(t *testing.T) {
	h := newHarness(t, nil)
	api := newAPI(t, h, config.RateLimit{PerSecond: 0.001, Burst: 1})

	require.Equal(t, http.StatusConflict, api.do(http.MethodGet, "/v1/yield/config", "", nil).Code)
	rec := api.do(http.MethodGet, "/v1/yield/config", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/healthz", "", nil).Code)
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, ServerConfig{})
	require.Error(t, err)
	h := newHarness(t, nil)
	_, err = NewServer(h.node, ServerConfig{})
	require.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	cases := map[common.Kind]int{
		common.KindUnauthorized:  http.StatusForbidden,
		common.KindValidation:    http.StatusBadRequest,
		common.KindNotFound:      http.StatusNotFound,
		common.KindState:         http.StatusConflict,
		common.KindUnimplemented: http.StatusNotImplemented,
		common.KindOverflow:      http.StatusUnprocessableEntity,
		common.KindInternal:      http.StatusInternalServerError,
		"throttled":              http.StatusTooManyRequests,
	}
	for kind, want := range cases {
		require.Equal(t, want, statusFor(kind), kind)
	}
}
