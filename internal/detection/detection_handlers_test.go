package detection_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"travelwatch/db"
	"travelwatch/internal/detection"
	"travelwatch/internal/web"
	"travelwatch/models"
	"travelwatch/tests/testutils"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T, locations map[string]models.Location) (*testutils.TestServer, func()) {
	factory, cleanup := testutils.SetupTestRepositoryFactory(t)
	repo := factory.NewLoginHistoryRepository()
	dbManager := db.NewDBManager()

	service := detection.NewDetectionService(
		repo, dbManager, &stubResolver{locations: locations}, nil,
		detection.Thresholds{TimeWindowMinutes: 5, MinDistanceKm: 100}, 10,
		zerolog.Nop())
	handlers := detection.NewDetectionHandlers(service, zerolog.Nop())

	server := testutils.NewTestServer(t, web.SetupRoutes(handlers))
	return server, func() {
		server.Close()
		dbManager.Stop()
		cleanup()
	}
}

func analyzePath(user, ip, ts string) string {
	return "/analyze?query=" + url.QueryEscape(fmt.Sprintf("user=%s|ip=%s|ts=%s", user, ip, ts))
}

func TestAnalyzeEndpoint(t *testing.T) {
	server, cleanup := setupTestServer(t, map[string]models.Location{
		"102.78.106.220": testutils.LagosLocation,
		"154.160.1.1":    testutils.AccraLocation,
	})
	defer cleanup()

	t.Run("first login", func(t *testing.T) {
		resp := server.GET(analyzePath("alice@example.com", "102.78.106.220", "2025-12-10T10:00:00"))

		var verdict models.TravelVerdict
		testutils.AssertJSONResponse(t, resp, http.StatusOK, &verdict)

		assert.Equal(t, "alice@example.com", verdict.User)
		assert.Equal(t, "102.78.106.220", verdict.CurrentIP)
		assert.Equal(t, "Nigeria", verdict.CurrentLocation.Country)
		assert.False(t, verdict.ImpossibleTravelDetected)
		assert.Equal(t, "First login for this user", verdict.Message)
	})

	t.Run("impossible travel on second login", func(t *testing.T) {
		resp := server.GET(analyzePath("alice@example.com", "154.160.1.1", "2025-12-10T10:03:00"))

		var verdict models.TravelVerdict
		testutils.AssertJSONResponse(t, resp, http.StatusOK, &verdict)

		assert.True(t, verdict.ImpossibleTravelDetected)
		assert.Contains(t, verdict.Message, "IMPOSSIBLE TRAVEL DETECTED")
		require.NotNil(t, verdict.PreviousLogin)
		assert.Equal(t, "102.78.106.220", verdict.PreviousLogin.IP)
		require.NotNil(t, verdict.DistanceKm)
		require.NotNil(t, verdict.TimeDifferenceMinutes)
	})

	t.Run("geolocation failure still returns 200", func(t *testing.T) {
		resp := server.GET(analyzePath("alice@example.com", "10.0.0.99", "2025-12-10T10:05:00"))

		var verdict models.TravelVerdict
		testutils.AssertJSONResponse(t, resp, http.StatusOK, &verdict)

		assert.Equal(t, "Failed to geolocate IP address", verdict.Message)
	})
}

func TestAnalyzeEndpointValidation(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()

	t.Run("missing query parameter", func(t *testing.T) {
		resp := server.GET("/analyze")
		testutils.AssertErrorResponse(t, resp, http.StatusBadRequest, "Missing required parameter: query")
	})

	t.Run("missing fields inside the query", func(t *testing.T) {
		resp := server.GET("/analyze?query=" + url.QueryEscape("user=alice@example.com"))
		testutils.AssertErrorResponse(t, resp, http.StatusBadRequest, "Missing required parameters: ip, ts")
	})

	t.Run("malformed pairs are ignored", func(t *testing.T) {
		resp := server.GET("/analyze?query=" + url.QueryEscape("user|ip|ts"))
		testutils.AssertErrorResponse(t, resp, http.StatusBadRequest, "Missing required parameters: user, ip, ts")
	})
}

func TestPurgeEndpoint(t *testing.T) {
	server, cleanup := setupTestServer(t, map[string]models.Location{
		"102.78.106.220": testutils.LagosLocation,
	})
	defer cleanup()

	resp := server.GET(analyzePath("alice@example.com", "102.78.106.220", "2025-12-10T10:00:00"))
	resp.Body.Close()

	purgeResp := server.POST("/purge", nil)
	var purge models.PurgeResponse
	testutils.AssertJSONResponse(t, purgeResp, http.StatusOK, &purge)

	assert.True(t, purge.Success)
	assert.Equal(t, int64(1), purge.RecordsDeleted)
	assert.Equal(t, "Successfully purged 1 records from database", purge.Message)
}

func TestStatsEndpoint(t *testing.T) {
	server, cleanup := setupTestServer(t, map[string]models.Location{
		"102.78.106.220": testutils.LagosLocation,
	})
	defer cleanup()

	for i, user := range []string{"alice@example.com", "bob@example.com"} {
		resp := server.GET(analyzePath(user, "102.78.106.220", fmt.Sprintf("2025-12-10T10:0%d:00", i)))
		resp.Body.Close()
	}

	resp := server.GET("/stats")
	var stats models.StatsResponse
	testutils.AssertJSONResponse(t, resp, http.StatusOK, &stats)

	assert.Equal(t, int64(2), stats.TotalRecords)
	assert.Equal(t, int64(2), stats.UniqueUsers)
}

func TestHealthEndpoint(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()

	resp := server.GET("/health")
	var body map[string]string
	testutils.AssertJSONResponse(t, resp, http.StatusOK, &body)

	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "impossible-travel-detection", body["service"])
}

func TestRootEndpoint(t *testing.T) {
	server, cleanup := setupTestServer(t, nil)
	defer cleanup()

	resp := server.GET("/")
	var body map[string]interface{}
	testutils.AssertJSONResponse(t, resp, http.StatusOK, &body)

	assert.Equal(t, "Impossible Travel Detection API", body["message"])
	assert.Contains(t, body, "endpoints")
}
