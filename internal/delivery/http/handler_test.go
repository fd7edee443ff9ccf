package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/denportal/wagate/internal/media"
	"github.com/denportal/wagate/internal/models"
	"github.com/denportal/wagate/internal/service"
	"github.com/denportal/wagate/pkg/logger"
)

type stubSessions struct {
	startFn     func(ctx context.Context, tenantID string) (*service.StartResult, error)
	statusFn    func(tenantID string) *service.StatusResult
	destroyFn   func(ctx context.Context, tenantID string) error
	sendTextFn  func(ctx context.Context, tenantID, recipient, text string) error
	sendImageFn func(ctx context.Context, tenantID, recipient string, image []byte, caption, mimeType string) error
}

func (s *stubSessions) Start(ctx context.Context, tenantID string) (*service.StartResult, error) {
	return s.startFn(ctx, tenantID)
}

func (s *stubSessions) Status(tenantID string) *service.StatusResult { return s.statusFn(tenantID) }

func (s *stubSessions) Destroy(ctx context.Context, tenantID string) error {
	return s.destroyFn(ctx, tenantID)
}

func (s *stubSessions) SendText(ctx context.Context, tenantID, recipient, text string) error {
	return s.sendTextFn(ctx, tenantID, recipient, text)
}

func (s *stubSessions) SendImage(ctx context.Context, tenantID, recipient string, image []byte, caption, mimeType string) error {
	return s.sendImageFn(ctx, tenantID, recipient, image, caption, mimeType)
}

func (s *stubSessions) IsConnected(string) bool                  { return true }
func (s *stubSessions) AutoStart(context.Context)                {}
func (s *stubSessions) SetInboundHandler(service.InboundHandler) {}
func (s *stubSessions) Shutdown()                                {}

type stubRegistry struct{ ensured []string }

func (r *stubRegistry) Ensure(id string) error {
	r.ensured = append(r.ensured, id)
	return nil
}

type stubBulk struct {
	tenantID string
	msgs     []models.BulkMessage
	calls    int
}

func (b *stubBulk) Dispatch(tenantID string, msgs []models.BulkMessage) {
	b.calls++
	b.tenantID = tenantID
	b.msgs = msgs
}

type stubImages struct {
	img *media.Image
	err error
}

func (i *stubImages) Fetch(context.Context, string) (*media.Image, error) { return i.img, i.err }

func defaultSessions() *stubSessions {
	return &stubSessions{
		startFn: func(context.Context, string) (*service.StartResult, error) {
			return &service.StartResult{Status: service.StartQR, QR: "qr-data"}, nil
		},
		statusFn: func(string) *service.StatusResult {
			return &service.StatusResult{Status: service.StatusConnected}
		},
		destroyFn:  func(context.Context, string) error { return nil },
		sendTextFn: func(context.Context, string, string, string) error { return nil },
		sendImageFn: func(context.Context, string, string, []byte, string, string) error {
			return nil
		},
	}
}

func newTestServer(sessions *stubSessions, reg *stubRegistry, bulk *stubBulk, images *stubImages) *httptest.Server {
	l := logger.InitializeTestZapLogger()
	h := NewHTTPHandler(sessions, reg, bulk, images, "secret-key", l)
	return httptest.NewServer(NewRouter(h, l))
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestStartSessionRegistersAndReturnsQR(t *testing.T) {
	reg := &stubRegistry{}
	srv := newTestServer(defaultSessions(), reg, &stubBulk{}, &stubImages{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/school-a/start-session")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, "qr", body["status"])
	require.Equal(t, "qr-data", body["qr"])
	require.Equal(t, []string{"school-a"}, reg.ensured)
}

func TestStartSessionRejectsInvalidTenantID(t *testing.T) {
	reg := &stubRegistry{}
	srv := newTestServer(defaultSessions(), reg, &stubBulk{}, &stubImages{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/bad%20id/start-session")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
	require.Empty(t, reg.ensured)
}

func TestSessionStatus(t *testing.T) {
	srv := newTestServer(defaultSessions(), &stubRegistry{}, &stubBulk{}, &stubImages{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/school-a/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "connected", decodeBody(t, resp)["status"])
}

func TestDestroySessionAlwaysSucceeds(t *testing.T) {
	sessions := defaultSessions()
	destroyed := ""
	sessions.destroyFn = func(_ context.Context, tenantID string) error {
		destroyed = tenantID
		return nil
	}
	srv := newTestServer(sessions, &stubRegistry{}, &stubBulk{}, &stubImages{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/school-a/destroy-session")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, decodeBody(t, resp)["success"])
	require.Equal(t, "school-a", destroyed)
}

func TestSendTextMessage(t *testing.T) {
	sessions := defaultSessions()
	var gotRecipient, gotText string
	sessions.sendTextFn = func(_ context.Context, _ string, recipient, text string) error {
		gotRecipient, gotText = recipient, text
		return nil
	}
	srv := newTestServer(sessions, &stubRegistry{}, &stubBulk{}, &stubImages{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/school-a/send", "application/json",
		strings.NewReader(`{"number":"15550001","message":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.Equal(t, "15550001", gotRecipient)
	require.Equal(t, "hello", gotText)
}

func TestSendValidation(t *testing.T) {
	srv := newTestServer(defaultSessions(), &stubRegistry{}, &stubBulk{}, &stubImages{})
	defer srv.Close()

	// missing number
	resp, err := http.Post(srv.URL+"/school-a/send", "application/json",
		strings.NewReader(`{"message":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// neither message nor image
	resp, err = http.Post(srv.URL+"/school-a/send", "application/json",
		strings.NewReader(`{"number":"15550001"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSendImageFetchesAndForwards(t *testing.T) {
	sessions := defaultSessions()
	var gotBytes []byte
	var gotMime, gotCaption string
	sessions.sendImageFn = func(_ context.Context, _, _ string, image []byte, caption, mimeType string) error {
		gotBytes, gotCaption, gotMime = image, caption, mimeType
		return nil
	}
	images := &stubImages{img: &media.Image{Data: []byte("png"), MimeType: "image/png"}}
	srv := newTestServer(sessions, &stubRegistry{}, &stubBulk{}, images)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/school-a/send", "application/json",
		strings.NewReader(`{"number":"15550001","message":"look","imageUrl":"cdn.example.com/a.png"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.Equal(t, []byte("png"), gotBytes)
	require.Equal(t, "image/png", gotMime)
	require.Equal(t, "look", gotCaption)
}

func TestSendMapsServiceErrors(t *testing.T) {
	sessions := defaultSessions()
	sessions.sendTextFn = func(context.Context, string, string, string) error {
		return service.ErrNotConnected
	}
	srv := newTestServer(sessions, &stubRegistry{}, &stubBulk{}, &stubImages{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/school-a/send", "application/json",
		strings.NewReader(`{"number":"15550001","message":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	sessions.sendTextFn = func(context.Context, string, string, string) error {
		return service.ErrSessionNotFound
	}
	resp, err = http.Post(srv.URL+"/school-a/send", "application/json",
		strings.NewReader(`{"number":"15550001","message":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestBulkRequiresAPIKey(t *testing.T) {
	bulk := &stubBulk{}
	srv := newTestServer(defaultSessions(), &stubRegistry{}, bulk, &stubImages{})
	defer srv.Close()

	body := `{"messages":[{"phoneNumber":"15550001","message":"exam friday"}]}`

	resp, err := http.Post(srv.URL+"/school-a/send-attendance-messages", "application/json",
		strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
	require.Zero(t, bulk.calls)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/school-a/send-attendance-messages",
		strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(APIKeyHeader, "wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
	require.Zero(t, bulk.calls)
}

func TestBulkAcceptsAndDispatchesAsync(t *testing.T) {
	bulk := &stubBulk{}
	srv := newTestServer(defaultSessions(), &stubRegistry{}, bulk, &stubImages{})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/school-a/send-attendance-messages",
		strings.NewReader(`{"messages":[{"phoneNumber":"15550001","message":"a"},{"phoneNumber":"15550002","message":"b"}]}`))
	require.NoError(t, err)
	req.Header.Set(APIKeyHeader, "secret-key")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, float64(2), body["count"])
	require.Equal(t, 1, bulk.calls)
	require.Equal(t, "school-a", bulk.tenantID)
	require.Len(t, bulk.msgs, 2)
}

func TestBulkRejectsEmptyBatch(t *testing.T) {
	bulk := &stubBulk{}
	srv := newTestServer(defaultSessions(), &stubRegistry{}, bulk, &stubImages{})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/school-a/send-attendance-messages",
		strings.NewReader(`{"messages":[]}`))
	require.NoError(t, err)
	req.Header.Set(APIKeyHeader, "secret-key")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
	require.Zero(t, bulk.calls)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(defaultSessions(), &stubRegistry{}, &stubBulk{}, &stubImages{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "healthy", decodeBody(t, resp)["status"])
}
