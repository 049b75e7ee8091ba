package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"gridgate/internal/connector"
	"gridgate/internal/permission"
	"gridgate/internal/permission/handler/mocks"
	"gridgate/internal/permission/service"
	id "gridgate/pkg/domain"
	dErrors "gridgate/pkg/domain-errors"
	"gridgate/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.T().Cleanup(s.ctrl.Finish)
	s.service = mocks.NewMockService(s.ctrl)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, logger, nil).Register(s.router)
}

const (
	permID    = "7f2c3a04-9d7b-4c46-a6cf-2d5b1e8a9f10"
	missingID = "1f9f0b7a-52f3-4de0-9f29-8a4f6f1d2b33"
)

func sampleRequest() *permission.Request {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &permission.Request{
		PermissionID: permID,
		ConnectionID: "conn-1",
		DataNeedID:   "need-1",
		Status:       permission.StatusSent,
		Granularity:  permission.GranularityHour,
		Timeframe: permission.Timeframe{
			Start: now.AddDate(0, -1, 0),
			End:   now.AddDate(1, 0, 0),
		},
		DataSource: permission.DataSource{Administrator: "datahub", Region: id.RegionDK},
		Keys:       permission.CorrelationKeys{ConversationID: "conv-1"},
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    3,
	}
}

func (s *HandlerSuite) TestCreateReturnsCreatedView() {
	s.service.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, params service.CreateParams) (*permission.Request, error) {
			s.Equal(id.ConnectionID("conn-1"), params.ConnectionID)
			s.Equal(id.RegionDK, params.Region)
			s.Equal(permission.GranularityHour, params.Granularity)
			return sampleRequest(), nil
		})

	body := map[string]any{
		"connectionId":  "conn-1",
		"dataNeedId":    "need-1",
		"region":        "dk",
		"administrator": "datahub",
		"granularity":   "PT1H",
		"timeframe": map[string]string{
			"start": "2026-02-01T00:00:00Z",
			"end":   "2027-03-01T00:00:00Z",
		},
	}
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/permissions", body)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	view := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.Equal(permID, (*view)["permissionId"])
	s.Equal("SENT", (*view)["status"])
}

func (s *HandlerSuite) TestCreateRejectsUnknownRegion() {
	body := map[string]any{"connectionId": "conn-1", "dataNeedId": "need-1", "region": "se"}
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/permissions", body)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
}

func (s *HandlerSuite) TestCreateRejectsMalformedBody() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/permissions", "{not json")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
}

func (s *HandlerSuite) TestCreateRequiresJSONContentType() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/permissions", "{}")
	req.Header.Set("Content-Type", "text/plain")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnsupportedMediaType)
}

func (s *HandlerSuite) TestGetReturnsRequest() {
	s.service.EXPECT().
		Get(gomock.Any(), id.PermissionID(permID)).
		Return(sampleRequest(), nil)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/permissions/"+permID)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "permissionId", permID)
}

func (s *HandlerSuite) TestGetUnknownIDIsNotFound() {
	s.service.EXPECT().
		Get(gomock.Any(), id.PermissionID(missingID)).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "permission request not found"))

	req := testutil.NewRequest(s.T(), http.MethodGet, "/permissions/"+missingID)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}

func (s *HandlerSuite) TestListRequiresConnectionID() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/permissions")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
}

func (s *HandlerSuite) TestListReturnsConnectionRequests() {
	s.service.EXPECT().
		ListByConnection(gomock.Any(), id.ConnectionID("conn-1")).
		Return([]*permission.Request{sampleRequest()}, nil)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/permissions?connectionId=conn-1")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	views := testutil.UnmarshalResponse[[]map[string]any](s.T(), rr)
	s.Require().Len(*views, 1)
	s.Equal(permID, (*views)[0]["permissionId"])
}

func (s *HandlerSuite) TestTerminateConflictMapsTo409() {
	s.service.EXPECT().
		Terminate(gomock.Any(), id.PermissionID(permID)).
		Return(nil, dErrors.New(dErrors.CodeConflict, "permission request cannot be terminated in its current state"))

	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/permissions/"+permID+"/terminate", "{}")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))
}

func (s *HandlerSuite) TestRevokeReturnsUpdatedView() {
	revoked := sampleRequest()
	revoked.Status = permission.StatusRevoked
	s.service.EXPECT().
		Revoke(gomock.Any(), id.PermissionID(permID)).
		Return(revoked, nil)

	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/permissions/"+permID+"/revoke", "{}")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "status", "REVOKED")
}

func (s *HandlerSuite) TestCallbackSuccessSettlesDelivery() {
	s.service.EXPECT().
		HandleInbound(gomock.Any(), id.RegionDK, []byte(`<Document/>`)).
		Return(connector.DeliverySuccess, nil)

	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/callbacks/dk", `<Document/>`)
	req.Header.Set("Content-Type", "application/xml")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
}

func (s *HandlerSuite) TestCallbackConflictRequestsRedelivery() {
	s.service.EXPECT().
		HandleInbound(gomock.Any(), id.RegionNO, gomock.Any()).
		Return(connector.DeliveryTemporaryError, dErrors.New(dErrors.CodeConflict, "concurrent update"))

	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/callbacks/no", `{}`)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
}

func (s *HandlerSuite) TestCallbackRejectionRefusesForGood() {
	s.service.EXPECT().
		HandleInbound(gomock.Any(), id.RegionDK, gomock.Any()).
		Return(connector.DeliveryRejected, dErrors.New(dErrors.CodeInvalidInput, "undecodable payload"))

	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/callbacks/dk", `garbage`)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
}

func (s *HandlerSuite) TestCallbackUnknownRegionIs404() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/callbacks/se", `{}`)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}

func TestCallbackWebhookAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc := mocks.NewMockService(ctrl)

	hash, err := bcrypt.GenerateFromPassword([]byte("hook-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	New(svc, logger, hash).Register(router)

	testutil.Given(t, "callbacks are protected by a shared webhook secret", func(t *testing.T) {
		testutil.When(t, "the secret header is missing", func(t *testing.T) {
			req := testutil.NewRequestWithBody(t, http.MethodPost, "/callbacks/dk", `{}`)
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		})

		testutil.When(t, "the secret header is wrong", func(t *testing.T) {
			req := testutil.NewRequestWithBody(t, http.MethodPost, "/callbacks/dk", `{}`)
			req.Header.Set("X-Webhook-Secret", "wrong")
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		})

		testutil.When(t, "the secret header matches", func(t *testing.T) {
			svc.EXPECT().
				HandleInbound(gomock.Any(), id.RegionDK, gomock.Any()).
				Return(connector.DeliverySuccess, nil)

			req := testutil.NewRequestWithBody(t, http.MethodPost, "/callbacks/dk", `{}`)
			req.Header.Set("X-Webhook-Secret", "hook-secret")
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatus(t, rr, http.StatusOK)
		})
	})
}
