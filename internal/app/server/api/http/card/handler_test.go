package card

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"doorkeeper/internal/domain/card"
	"doorkeeper/internal/domain/event"
	"doorkeeper/internal/infrastructure/storage/flash"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Add(ctx context.Context, id uint32, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *MockService) Remove(ctx context.Context, id uint32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockService) Check(ctx context.Context, id uint32) (card.Status, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(card.Status), args.Error(1)
}

func (m *MockService) Count(ctx context.Context) (uint16, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint16), args.Error(1)
}

func (m *MockService) List(ctx context.Context, capacity int) ([]card.Card, error) {
	args := m.Called(ctx, capacity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]card.Card), args.Error(1)
}

func (m *MockService) Format(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockService) LoadDefaults(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockService) Validate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockService) ToJSON(ctx context.Context, buf []byte) (int, error) {
	args := m.Called(ctx, buf)
	return args.Int(0), args.Error(1)
}

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) Record(ctx context.Context, action event.Action, cardID uint32, outcome string) {
	m.Called(ctx, action, cardID, outcome)
}

func newTestAPI(t *testing.T, svc card.Servicer, journal Journal, bufferSize int) humatest.TestAPI {
	_, api := humatest.New(t)
	NewHandler(svc, journal, bufferSize, slog.Default(), huma.Middlewares{}, huma.Middlewares{}).SetupRoutes(api)
	return api
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHandler_Add(t *testing.T) {
	tests := []struct {
		name       string
		storeErr   error
		wantStatus int
		wantCode   string
	}{
		{name: "created", wantStatus: http.StatusCreated, wantCode: "ok"},
		{name: "duplicate", storeErr: fmt.Errorf("%w: 42", card.ErrAlreadyExists), wantStatus: http.StatusConflict, wantCode: "already_exists"},
		{name: "full", storeErr: card.ErrFull, wantStatus: http.StatusInsufficientStorage, wantCode: "full"},
		{name: "invalid", storeErr: card.ErrInvalidArgument, wantStatus: http.StatusBadRequest, wantCode: "invalid_argument"},
		{name: "busy", storeErr: card.ErrLockFailure, wantStatus: http.StatusServiceUnavailable, wantCode: "lock_failure"},
		{name: "corrupt", storeErr: card.ErrCorruptState, wantStatus: http.StatusInternalServerError, wantCode: "corrupt_state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			journal := new(MockJournal)
			svc.On("Add", mock.Anything, uint32(42), "Alice").Return(tt.storeErr)
			journal.On("Record", mock.Anything, event.ActionAdd, uint32(42), tt.wantCode).Return()

			resp := newTestAPI(t, svc, journal, 0).Post("/cards/add", map[string]any{"id": 42, "nm": "Alice"})

			assert.Equal(t, tt.wantStatus, resp.Code)
			body := decode(t, resp.Body.Bytes())
			if tt.storeErr == nil {
				assert.Equal(t, "success", body["status"])
			} else {
				assert.Equal(t, "error", body["status"])
				assert.NotEmpty(t, body["message"])
			}
			svc.AssertExpectations(t)
			journal.AssertExpectations(t)
		})
	}
}

func TestHandler_AddHidesInternalDetail(t *testing.T) {
	svc := new(MockService)
	svc.On("Add", mock.Anything, uint32(1), "A").
		Return(fmt.Errorf("%w: write header: /spiffs/rfid_database.bin: eio", card.ErrStorageUnavailable))

	resp := newTestAPI(t, svc, nil, 0).Post("/cards/add", map[string]any{"id": 1, "nm": "A"})

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	body := decode(t, resp.Body.Bytes())
	assert.Equal(t, "Service Unavailable: storage_unavailable", body["message"])
}

func TestHandler_Remove(t *testing.T) {
	tests := []struct {
		name       string
		storeErr   error
		wantStatus int
	}{
		{name: "removed", wantStatus: http.StatusOK},
		{name: "missing", storeErr: card.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "admin", storeErr: card.ErrUnsupported, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("Remove", mock.Anything, uint32(12648430)).Return(tt.storeErr)

			resp := newTestAPI(t, svc, nil, 0).Delete("/cards/remove?id=12648430")

			assert.Equal(t, tt.wantStatus, resp.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_RemoveRequiresID(t *testing.T) {
	svc := new(MockService)

	resp := newTestAPI(t, svc, nil, 0).Delete("/cards/remove")

	assert.GreaterOrEqual(t, resp.Code, 400)
	assert.Less(t, resp.Code, 500)
	svc.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
}

func TestHandler_Count(t *testing.T) {
	svc := new(MockService)
	svc.On("Count", mock.Anything).Return(uint16(7), nil)

	resp := newTestAPI(t, svc, nil, 0).Get("/cards/count")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 7, decode(t, resp.Body.Bytes())["card_count"])
}

func TestHandler_Check(t *testing.T) {
	tests := []struct {
		name       string
		status     card.Status
		wantExists bool
		wantActive bool
	}{
		{name: "active", status: card.StatusActive, wantExists: true, wantActive: true},
		{name: "inactive", status: card.StatusInactive, wantExists: true},
		{name: "unknown", status: card.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("Check", mock.Anything, uint32(5)).Return(tt.status, nil)

			resp := newTestAPI(t, svc, nil, 0).Get("/cards/check?id=5")

			require.Equal(t, http.StatusOK, resp.Code)
			body := decode(t, resp.Body.Bytes())
			assert.Equal(t, tt.wantExists, body["exists"])
			assert.Equal(t, tt.wantActive, body["active"])
			assert.Equal(t, tt.status.String(), body["status"])
		})
	}
}

func TestHandler_List(t *testing.T) {
	doc := `{"status":"success","count":0,"cards":[]}`

	svc := new(MockService)
	svc.On("Validate", mock.Anything).Return(nil)
	svc.On("ToJSON", mock.Anything, mock.MatchedBy(func(buf []byte) bool { return len(buf) == 512 })).
		Run(func(args mock.Arguments) {
			copy(args.Get(1).([]byte), doc)
		}).
		Return(len(doc), nil)

	resp := newTestAPI(t, svc, nil, 512).Get("/cards/get")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	assert.Equal(t, doc, resp.Body.String())
}

func TestHandler_ListDocumentsTruncatedCount(t *testing.T) {
	api := newTestAPI(t, new(MockService), nil, 0)

	op := api.OpenAPI().Paths["/cards/get"].Get
	assert.Contains(t, op.Description, "truncated")
	assert.Contains(t, op.Description, "count still holds the number of stored cards")
}

func TestHandler_ListErrors(t *testing.T) {
	t.Run("corrupt", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Validate", mock.Anything).Return(card.ErrCorruptState)

		resp := newTestAPI(t, svc, nil, 0).Get("/cards/get")

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		svc.AssertNotCalled(t, "ToJSON", mock.Anything, mock.Anything)
	})

	t.Run("buffer too small for anything", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Validate", mock.Anything).Return(nil)
		svc.On("ToJSON", mock.Anything, mock.Anything).Return(0, card.ErrInsufficientCapacity)

		resp := newTestAPI(t, svc, nil, 0).Get("/cards/get")

		assert.Equal(t, http.StatusInsufficientStorage, resp.Code)
	})
}

func TestHandler_Reset(t *testing.T) {
	svc := new(MockService)
	journal := new(MockJournal)
	svc.On("Format", mock.Anything).Return(nil).Once()
	svc.On("LoadDefaults", mock.Anything).Return(nil).Once()
	journal.On("Record", mock.Anything, event.ActionReset, uint32(0), "ok").Return()

	resp := newTestAPI(t, svc, journal, 0).Post("/cards/reset")

	assert.Equal(t, http.StatusOK, resp.Code)
	svc.AssertExpectations(t)
	journal.AssertExpectations(t)
}

func TestHandler_ResetFormatFailure(t *testing.T) {
	svc := new(MockService)
	svc.On("Format", mock.Anything).Return(card.ErrStorageUnavailable)

	resp := newTestAPI(t, svc, nil, 0).Post("/cards/reset")

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	svc.AssertNotCalled(t, "LoadDefaults", mock.Anything)
}

func TestHandler_Defaults(t *testing.T) {
	resp := newTestAPI(t, new(MockService), nil, 0).Get("/cards/defaults")

	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Count int           `json:"count"`
		Cards []defaultCard `json:"cards"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, len(card.Defaults()), body.Count)
	assert.Equal(t, card.AdminCardID, body.Cards[0].ID)
	for _, c := range body.Cards {
		assert.True(t, c.Default)
	}
}

func TestHandler_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Validate", mock.Anything).Return(nil)

		resp := newTestAPI(t, svc, nil, 0).Get("/cards/validate")

		assert.Equal(t, http.StatusOK, resp.Code)
		body := decode(t, resp.Body.Bytes())
		assert.Equal(t, true, body["valid"])
		assert.NotContains(t, body, "error")
	})

	t.Run("corrupt", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Validate", mock.Anything).Return(fmt.Errorf("%w: checksum mismatch", card.ErrCorruptState))

		resp := newTestAPI(t, svc, nil, 0).Get("/cards/validate")

		assert.Equal(t, http.StatusOK, resp.Code)
		body := decode(t, resp.Body.Bytes())
		assert.Equal(t, false, body["valid"])
		assert.Contains(t, body["error"], "checksum mismatch")
	})
}

// End to end against a real store on an in-memory flash partition.
func TestHandler_WithStore(t *testing.T) {
	ctx := context.Background()
	fsys := flash.New(afero.NewMemMapFs(), slog.Default())
	store := card.NewStore(fsys, slog.Default(), card.WithCapacity(3))
	require.NoError(t, store.Init(ctx))

	api := newTestAPI(t, store, nil, 150)

	assert.Equal(t, http.StatusCreated, api.Post("/cards/add", map[string]any{"id": 1, "nm": "Alice"}).Code)
	assert.Equal(t, http.StatusCreated, api.Post("/cards/add", map[string]any{"id": 2, "nm": "Bob"}).Code)
	assert.Equal(t, http.StatusConflict, api.Post("/cards/add", map[string]any{"id": 2, "nm": "Bob"}).Code)
	assert.Equal(t, http.StatusBadRequest, api.Post("/cards/add", map[string]any{"id": 0, "nm": "Zero"}).Code)
	assert.Equal(t, http.StatusCreated, api.Post("/cards/add", map[string]any{"id": 3, "nm": "Carol"}).Code)
	assert.Equal(t, http.StatusInsufficientStorage, api.Post("/cards/add", map[string]any{"id": 4, "nm": "Dan"}).Code)

	resp := api.Get("/cards/get")
	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, json.Valid(resp.Body.Bytes()))
	body := decode(t, resp.Body.Bytes())
	assert.Equal(t, "truncated", body["status"], "150 bytes cannot hold three cards")
	assert.EqualValues(t, 3, body["count"])

	assert.Equal(t, http.StatusNotFound, api.Delete("/cards/remove?id=99").Code)
	assert.Equal(t, http.StatusOK, api.Delete("/cards/remove?id=2").Code)
	assert.EqualValues(t, 2, decode(t, api.Get("/cards/count").Body.Bytes())["card_count"])

	assert.Equal(t, http.StatusOK, api.Post("/cards/reset").Code)
	assert.EqualValues(t, len(card.Defaults()), decode(t, api.Get("/cards/count").Body.Bytes())["card_count"])
	assert.Equal(t, http.StatusForbidden, api.Delete(fmt.Sprintf("/cards/remove?id=%d", card.AdminCardID)).Code)
}
