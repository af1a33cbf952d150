package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JetpackDuba/NyaaParser/app/database"
	"github.com/JetpackDuba/NyaaParser/app/feed"
	"github.com/JetpackDuba/NyaaParser/app/tasks"
)

const testAPIKey = "secret"

type fakeScheduler struct {
	enqueued []tasks.TaskInterface
	err      error
	checks   []tasks.TaskInterface
}

func (f *fakeScheduler) Start() {}
func (f *fakeScheduler) Stop()  {}

func (f *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, task)
	return nil
}

func (f *fakeScheduler) EnqueueFeedChecks() []tasks.TaskInterface {
	return f.checks
}

type testServer struct {
	engine      *gin.Engine
	scheduler   *fakeScheduler
	episodeRepo database.EpisodeRepository
	configCache *feed.ConfigCache
	showsDir    string
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()

	showsDir := t.TempDir()
	show := `
download_path: "/data/anime/frieren"
enabled: true
fansubs:
  - name: "Sousou no Frieren"
    fansub: "SubsPlease"
    keywords: ["(1080p)"]
`
	if err := os.WriteFile(filepath.Join(showsDir, "frieren.yml"), []byte(show), 0644); err != nil {
		t.Fatal(err)
	}
	configCache := feed.NewConfigCache(showsDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatal(err)
	}

	episodeRepo := database.NewEpisodeRepository(db)
	scheduler := &fakeScheduler{}
	handler := NewHandler(configCache, database.NewFeedRepository(db), episodeRepo,
		feed.NewGenerator("http://localhost:8080/feeds/downloads", "test"), scheduler, "test")

	return &testServer{
		engine:      NewServer(handler, apiKey),
		scheduler:   scheduler,
		episodeRepo: episodeRepo,
		configCache: configCache,
		showsDir:    showsDir,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON body, got %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, testAPIKey)

	w := server.do(t, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	body := decode(t, w)
	if body["loaded_shows"] != float64(1) {
		t.Errorf("Expected 1 loaded show, got %v", body["loaded_shows"])
	}
	if body["downloads"] != float64(0) {
		t.Errorf("Expected 0 downloads, got %v", body["downloads"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	server := newTestServer(t, testAPIKey)

	req := httptest.NewRequest("GET", "/api/shows", nil)
	w := httptest.NewRecorder()
	server.engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/shows", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	server.engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/shows", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	w = httptest.NewRecorder()
	server.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer token, got %d", w.Code)
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	server := newTestServer(t, "")

	w := server.do(t, "GET", "/api/shows", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when API is disabled, got %d", w.Code)
	}

	w = server.do(t, "GET", "/", "")
	body := decode(t, w)
	status := body["api_status"].(map[string]interface{})
	if status["enabled"] != false {
		t.Errorf("Expected API to be reported disabled, got %v", status["enabled"])
	}
}

func TestAPIListShows(t *testing.T) {
	server := newTestServer(t, testAPIKey)
	if err := server.episodeRepo.SaveDownloadedEpisodes(map[string][]float64{"frieren": {1, 2}}); err != nil {
		t.Fatal(err)
	}

	w := server.do(t, "GET", "/api/shows", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	body := decode(t, w)
	if body["total"] != float64(1) {
		t.Fatalf("Expected 1 show, got %v", body["total"])
	}
	show := body["shows"].([]interface{})[0].(map[string]interface{})
	if show["name"] != "frieren" {
		t.Errorf("Expected show 'frieren', got %v", show["name"])
	}
	if episodes := show["episodes"].([]interface{}); len(episodes) != 2 {
		t.Errorf("Expected 2 episodes, got %v", episodes)
	}
}

func TestAPIListShowsSortedByName(t *testing.T) {
	server := newTestServer(t, testAPIKey)
	for _, name := range []string{"dungeon-meshi", "apothecary-diaries", "zom-100"} {
		show := "download_path: \"/data/anime/" + name + "\"\nenabled: true\nfansubs:\n  - name: \"" + name + "\"\n    fansub: \"SubsPlease\"\n"
		if err := os.WriteFile(filepath.Join(server.showsDir, name+".yml"), []byte(show), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := server.configCache.Run(); err != nil {
		t.Fatal(err)
	}

	// Map iteration order varies between calls.
	for i := 0; i < 5; i++ {
		body := decode(t, server.do(t, "GET", "/api/shows", ""))
		var names []string
		for _, show := range body["shows"].([]interface{}) {
			names = append(names, show.(map[string]interface{})["name"].(string))
		}
		expected := "apothecary-diaries,dungeon-meshi,frieren,zom-100"
		if strings.Join(names, ",") != expected {
			t.Fatalf("Expected shows %s, got %s", expected, strings.Join(names, ","))
		}
	}
}

func TestAPIGetShow(t *testing.T) {
	server := newTestServer(t, testAPIKey)

	w := server.do(t, "GET", "/api/shows/frieren", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["download_path"] != "/data/anime/frieren" {
		t.Errorf("Expected download path, got %v", body["download_path"])
	}
	if downloads := body["downloads"].([]interface{}); len(downloads) != 0 {
		t.Errorf("Expected no downloads, got %v", downloads)
	}

	w = server.do(t, "GET", "/api/shows/unknown", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown show, got %d", w.Code)
	}
}

func TestAPIGetShowDownloadDetails(t *testing.T) {
	server := newTestServer(t, testAPIKey)
	publishedAt := time.Date(2023, 10, 6, 16, 2, 11, 0, time.UTC)
	if _, err := server.episodeRepo.ClaimEpisode(database.Download{
		ShowName:    "frieren",
		Episode:     5,
		Link:        "https://nyaa.si/download/5.torrent",
		GUID:        "https://nyaa.si/view/5",
		InfoHash:    "244841ce0098cb512dec286074c9d000b13bea00",
		Size:        "1.4 GiB",
		Category:    "Anime - English-translated",
		Summary:     "#5 | Frieren 05",
		PublishedAt: &publishedAt,
	}); err != nil {
		t.Fatal(err)
	}

	body := decode(t, server.do(t, "GET", "/api/shows/frieren", ""))
	downloads := body["downloads"].([]interface{})
	if len(downloads) != 1 {
		t.Fatalf("Expected 1 download, got %v", downloads)
	}
	download := downloads[0].(map[string]interface{})
	if download["info_hash"] != "244841ce0098cb512dec286074c9d000b13bea00" {
		t.Errorf("Expected info hash, got %v", download["info_hash"])
	}
	if download["size"] != "1.4 GiB" || download["category"] != "Anime - English-translated" {
		t.Errorf("Expected size and category, got %v and %v", download["size"], download["category"])
	}
	if download["guid"] != "https://nyaa.si/view/5" || download["summary"] != "#5 | Frieren 05" {
		t.Errorf("Expected guid and summary, got %v and %v", download["guid"], download["summary"])
	}
	if download["published_at"] != "2023-10-06T16:02:11Z" {
		t.Errorf("Expected published_at 2023-10-06T16:02:11Z, got %v", download["published_at"])
	}
}

func TestAPIReloadShow(t *testing.T) {
	server := newTestServer(t, testAPIKey)

	w := server.do(t, "POST", "/api/shows/frieren/reload", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	if len(server.scheduler.enqueued) != 1 {
		t.Fatalf("Expected 1 enqueued task, got %d", len(server.scheduler.enqueued))
	}
	task := server.scheduler.enqueued[0]
	if task.GetType() != tasks.TaskTypeReloadShows || task.GetTarget() != "frieren" {
		t.Errorf("Expected reload of frieren, got %s %s", task.GetType(), task.GetTarget())
	}

	server.scheduler.err = errors.New("task queue is full")
	w = server.do(t, "POST", "/api/shows/frieren/reload", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 when enqueue fails, got %d", w.Code)
	}
}

func TestAPIGetEpisodes(t *testing.T) {
	server := newTestServer(t, testAPIKey)
	if err := server.episodeRepo.SaveDownloadedEpisodes(map[string][]float64{"frieren": {12.5}}); err != nil {
		t.Fatal(err)
	}

	w := server.do(t, "GET", "/api/episodes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"frieren":[12.5]}` {
		t.Errorf("Expected episode map, got %s", w.Body.String())
	}
}

func TestAPIMatch(t *testing.T) {
	server := newTestServer(t, testAPIKey)

	w := server.do(t, "POST", "/api/match", `{
		"title": "[SubsPlease] Sousou no Frieren - 05 (1080p) [F2A0C5C1].mkv",
		"rule": {"name": "Sousou no Frieren", "fansub": "SubsPlease", "keywords": ["(1080p)"]}
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["matched"] != true {
		t.Fatalf("Expected match, got %v", body)
	}
	if body["episode"] != float64(5) {
		t.Errorf("Expected episode 5, got %v", body["episode"])
	}
	if tags := body["tags"].([]interface{}); len(tags) != 3 || tags[0] != "(1080p)" || tags[2] != ".mkv" {
		t.Errorf("Expected tags [(1080p)  [F2A0C5C1] .mkv], got %v", tags)
	}

	w = server.do(t, "POST", "/api/match", `{
		"title": "[SubsPlease] Sousou no Frieren - 05 (720p)",
		"rule": {"name": "Sousou no Frieren", "fansub": "SubsPlease", "keywords": ["(1080p)"]}
	}`)
	body = decode(t, w)
	if body["matched"] != false {
		t.Fatalf("Expected no match, got %v", body)
	}
	if body["reason"] != "MissingTag" {
		t.Errorf("Expected reason MissingTag, got %v", body["reason"])
	}

	w = server.do(t, "POST", "/api/match", `{"rule": {}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without title, got %d", w.Code)
	}
}

func TestAPICheck(t *testing.T) {
	server := newTestServer(t, testAPIKey)
	check := tasks.NewCheckFeedTask("https://nyaa.si/?page=rss", nil, nil, nil, nil, nil, nil, nil, tasks.FeedCheckOptions{})
	server.scheduler.checks = []tasks.TaskInterface{check}

	w := server.do(t, "POST", "/api/check", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	body := decode(t, w)
	taskList := body["tasks"].([]interface{})
	if len(taskList) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(taskList))
	}
	if taskList[0].(map[string]interface{})["target"] != "https://nyaa.si/?page=rss" {
		t.Errorf("Expected feed target, got %v", taskList[0])
	}
}

func TestDownloadsFeed(t *testing.T) {
	server := newTestServer(t, testAPIKey)
	if _, err := server.episodeRepo.ClaimEpisode(database.Download{
		ShowName: "frieren",
		Episode:  5,
		Title:    "[SubsPlease] Sousou no Frieren - 05 (1080p)",
		Link:     "https://nyaa.si/download/5.torrent",
	}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/feeds/downloads", nil)
	w := httptest.NewRecorder()
	server.engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/xml") {
		t.Errorf("Expected XML content type, got %s", w.Header().Get("Content-Type"))
	}
	if w.Header().Get("X-Feed-Items") != "1" {
		t.Errorf("Expected 1 feed item, got %s", w.Header().Get("X-Feed-Items"))
	}
	if !strings.Contains(w.Body.String(), "<link>https://nyaa.si/download/5.torrent</link>") {
		t.Errorf("Expected torrent link in feed, got %s", w.Body.String())
	}
}
