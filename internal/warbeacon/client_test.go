package warbeacon_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/solmirror/beacon/internal/warbeacon"
	"github.com/stretchr/testify/require"
)

func TestParseRelatedTime(t *testing.T) {
	iso, errISO := warbeacon.RelatedTimeToISO("202512030400")
	require.NoError(t, errISO)
	require.Equal(t, "2025-12-03T04:00:00Z", iso)

	_, errBad := warbeacon.RelatedTimeToISO("not-a-time")
	require.ErrorIs(t, errBad, warbeacon.ErrInvalidTime)
}

const sampleBody = `{
	"success": true,
	"data": {
		"locations": [{"id": 30004759, "name": "1DQ1-A"}],
		"killmails": [{
			"total_value": 1000.0,
			"victim": {"alliance_id": 100, "character_id": 1001},
			"attackers": [{"alliance_id": 200, "character_id": 2001, "damage_done": 500, "final_blow": true}]
		}],
		"names": {
			"entities": {"100": "Victim Alliance"},
			"tickers": {"200": "ATTK"}
		}
	}
}`

func TestFetchRelated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, req *http.Request) {
		require.Equal(t, http.MethodPost, req.Method)
		require.Equal(t, "/api/br/auto", req.URL.Path)
		require.Equal(t, "https://warbeacon.net/br/related/30004759/202512030400/", req.Header.Get("Referer"))

		var payload struct {
			Locations []struct {
				ID         int64  `json:"id"`
				MiddleTime string `json:"middleTime"`
			} `json:"locations"`
		}

		require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
		require.Len(t, payload.Locations, 1)
		require.Equal(t, int64(30004759), payload.Locations[0].ID)
		require.Equal(t, "2025-12-03T04:00:00Z", payload.Locations[0].MiddleTime)

		_, _ = writer.Write([]byte(sampleBody))
	}))
	defer server.Close()

	link, ok := warbeacon.Match("https://warbeacon.net/br/related/30004759/202512030400/")
	require.True(t, ok)

	client := warbeacon.NewClient(server.URL, time.Second)

	fetched, errFetch := client.Fetch(t.Context(), link)
	require.NoError(t, errFetch)
	require.Equal(t, "1DQ1-A", fetched.SystemName)
	require.Equal(t, "12/03/2025", fetched.Timestamp)
	require.Len(t, fetched.Report.Killmails, 1)
	require.Equal(t, "ATTK", fetched.Report.Names.Tickers["200"])
	require.NotNil(t, fetched.Report.Killmails[0].Victim)
	require.Equal(t, int64(100), *fetched.Report.Killmails[0].Victim.AllianceID)
}

func TestFetchReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, req *http.Request) {
		require.Equal(t, http.MethodGet, req.Method)
		require.Equal(t, "/api/br/report/deadbeef-1234", req.URL.Path)

		_, _ = writer.Write([]byte(`{
			"success": true,
			"data": {
				"locations": [{"id": 1, "name": "Jita"}, {"id": 2, "name": "Perimeter"}],
				"killmails": [],
				"names": {}
			}
		}`))
	}))
	defer server.Close()

	client := warbeacon.NewClient(server.URL, time.Second)

	fetched, errFetch := client.Fetch(t.Context(), warbeacon.Link{
		URL:      "https://warbeacon.net/br/report/deadbeef-1234/",
		Mode:     warbeacon.ModeReport,
		ReportID: "deadbeef-1234",
	})
	require.NoError(t, errFetch)
	require.Equal(t, "Multiple Systems", fetched.SystemName)
	require.Equal(t, "Combined Report", fetched.Timestamp)
}

func TestFetchNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := warbeacon.NewClient(server.URL, time.Second)

	link, ok := warbeacon.Match("https://warbeacon.net/br/related/30004759/202512030400/")
	require.True(t, ok)

	_, errFetch := client.Fetch(t.Context(), link)
	require.ErrorIs(t, errFetch, warbeacon.ErrFetch)
	require.ErrorIs(t, errFetch, warbeacon.ErrResponseCode)
}

func TestFetchUnexpectedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		_, _ = writer.Write([]byte(`{"success": false}`))
	}))
	defer server.Close()

	client := warbeacon.NewClient(server.URL, time.Second)

	link, ok := warbeacon.Match("https://warbeacon.net/br/related/30004759/202512030400/")
	require.True(t, ok)

	_, errFetch := client.Fetch(t.Context(), link)
	require.ErrorIs(t, errFetch, warbeacon.ErrFetch)
	require.ErrorIs(t, errFetch, warbeacon.ErrResponseBody)
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, req *http.Request) {
		<-req.Context().Done()
	}))
	defer server.Close()

	client := warbeacon.NewClient(server.URL, time.Millisecond*50)

	link, ok := warbeacon.Match("https://warbeacon.net/br/related/30004759/202512030400/")
	require.True(t, ok)

	_, errFetch := client.Fetch(t.Context(), link)
	require.ErrorIs(t, errFetch, warbeacon.ErrFetch)
}
