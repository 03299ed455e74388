package epgapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/horizon"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	events []model.EPGEvent
	err    error
}

func (f *fakeProvider) EventsForDay(channelID, broadcastDate string) ([]model.EPGEvent, error) {
	return f.events, f.err
}

func TestServer_EventsJSON(t *testing.T) {
	provider := &fakeProvider{events: []model.EPGEvent{
		{ChannelID: "chan-1", UTCStartMs: 0, UTCEndMs: 1_800_000, Title: "Morning Show"},
	}}
	srv := NewServer(provider)

	req := httptest.NewRequest(http.MethodGet, "/channels/chan-1/days/2026-07-30/events.json", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Morning Show")
}

func TestServer_XMLTV(t *testing.T) {
	provider := &fakeProvider{events: []model.EPGEvent{
		{ChannelID: "chan-1", UTCStartMs: 0, UTCEndMs: 1_800_000, Title: "Morning Show"},
	}}
	srv := NewServer(provider)

	req := httptest.NewRequest(http.MethodGet, "/channels/chan-1/days/2026-07-30/xmltv.xml", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<title>Morning Show</title>")
}

func TestServer_NoScheduleDataMapsTo404(t *testing.T) {
	provider := &fakeProvider{err: &horizon.NoScheduleDataError{ChannelID: "chan-1", AfterUTCMs: 0}}
	srv := NewServer(provider)

	req := httptest.NewRequest(http.MethodGet, "/channels/chan-1/days/2026-07-30/events.json", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
