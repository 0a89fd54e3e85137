package publish

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/facelink/internal/testutil"
	"github.com/banshee-data/facelink/internal/unified"
)

func newAdminMux(s *Store, stats StatsFunc) *http.ServeMux {
	mux := http.NewServeMux()
	s.AttachAdminRoutes(mux, stats)
	return mux
}

func TestAdminRoutes_PoseBeforePublish(t *testing.T) {
	mux := newAdminMux(NewStore(0), nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.NewLocalRequest(http.MethodGet, "/debug/pose", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no pose published yet")
}

func TestAdminRoutes_Pose(t *testing.T) {
	s := NewStore(0)
	s.Publish(poseWithJaw(0.4), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	mux := newAdminMux(s, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.NewLocalRequest(http.MethodGet, "/debug/pose", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(1), got.Sequence)
	assert.Equal(t, float32(0.4), got.Pose.Lip[unified.JawOpen])
}

func TestAdminRoutes_Stats(t *testing.T) {
	mux := newAdminMux(NewStore(0), func() any {
		return map[string]int{"packets": 7}
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.NewLocalRequest(http.MethodGet, "/debug/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"packets":7}`, rec.Body.String())
}

func TestAdminRoutes_Chart(t *testing.T) {
	s := NewStore(8)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s.Publish(poseWithJaw(float32(i)/4), base.Add(time.Duration(i)*10*time.Millisecond))
	}
	mux := newAdminMux(s, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.NewLocalRequest(http.MethodGet, "/debug/chart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Face Pose History")
	assert.Contains(t, body, "points=3")
}

func TestAdminRoutes_TailMethodNotAllowed(t *testing.T) {
	mux := newAdminMux(NewStore(0), nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.NewLocalRequest(http.MethodPost, "/debug/tail", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAdminRoutes_Tail(t *testing.T) {
	s := NewStore(0)
	srv := httptest.NewServer(newAdminMux(s, nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/debug/tail", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return s.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)
	s.Publish(poseWithJaw(0.9), time.Now())

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var snap Snapshot
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap))
		assert.Equal(t, float32(0.9), snap.Pose.Lip[unified.JawOpen])
		return
	}
}
