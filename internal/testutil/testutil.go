// Package testutil provides shared test helpers for config files and a fake dictionary service.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/dictcache/internal/dictionary"
)

// SetupTestConfig creates a config file using the file backend under tmpDir.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string, baseURL string) string {
	t.Helper()

	cacheDir := filepath.Join(tmpDir, "dictionaries")
	require.NoError(t, os.MkdirAll(cacheDir, 0755))

	configContent := fmt.Sprintf(`gateway:
  base_url: %s
  timeout: 2s
  retry_attempts: 0
cache:
  default_ttl: 30m
persistence:
  backend: file
  storage_name: dict-cache
  directory: %s
  sqlite_path: %s
`,
		baseURL,
		cacheDir,
		filepath.Join(tmpDir, "dictionaries.db"),
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

type dictData struct {
	DictType  string `json:"dictType"`
	DictLabel string `json:"dictLabel"`
	DictValue string `json:"dictValue"`
	DictSort  *int   `json:"dictSort,omitempty"`
}

// DictionaryServer is an in-memory dictionary service speaking the REST API of restapi.Client.
type DictionaryServer struct {
	URL string

	mu           sync.Mutex
	dictionaries map[string][]dictionary.Entry
	requests     map[string]int
}

// NewDictionaryServer starts a DictionaryServer that is closed with the test.
func NewDictionaryServer(t *testing.T, dictionaries map[string][]dictionary.Entry) *DictionaryServer {
	t.Helper()

	s := &DictionaryServer{
		dictionaries: dictionaries,
		requests:     make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /system/dict/data/type/{dictType}", s.handleDictionary)
	mux.HandleFunc("GET /system/dict/data/changes", s.handleChanges)
	mux.HandleFunc("GET /system/dict/data/label", s.handleLabel)
	mux.HandleFunc("GET /system/dict/type/codes", s.handleTypes)
	mux.HandleFunc("POST /system/dict/data/batch", s.handleBatch)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	s.URL = server.URL
	return s
}

// Requests returns how many times an endpoint was called, such as "batch" or "types".
func (s *DictionaryServer) Requests(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests[endpoint]
}

func (s *DictionaryServer) record(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[endpoint]++
}

func (s *DictionaryServer) lookup(code string) ([]dictData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.dictionaries[code]
	if !ok {
		return nil, false
	}
	data := make([]dictData, 0, len(entries))
	for _, entry := range entries {
		data = append(data, dictData{
			DictType:  code,
			DictLabel: entry.Label,
			DictValue: entry.Value,
			DictSort:  entry.SortOrder,
		})
	}
	return data, true
}

func (s *DictionaryServer) handleDictionary(w http.ResponseWriter, r *http.Request) {
	s.record("dictionary")
	data, ok := s.lookup(r.PathValue("dictType"))
	if !ok {
		writeEnvelope(w, http.StatusNotFound, 404, nil)
		return
	}
	writeEnvelope(w, http.StatusOK, 200, data)
}

func (s *DictionaryServer) handleChanges(w http.ResponseWriter, r *http.Request) {
	s.record("changes")
	if since := r.URL.Query().Get("since"); since != "" {
		if _, err := strconv.ParseInt(since, 10, 64); err != nil {
			writeEnvelope(w, http.StatusBadRequest, 400, nil)
			return
		}
		// Nothing changes after the first sync.
		writeEnvelope(w, http.StatusOK, 200, map[string][]dictData{})
		return
	}
	writeEnvelope(w, http.StatusOK, 200, s.keyed(s.codes()))
}

func (s *DictionaryServer) handleLabel(w http.ResponseWriter, r *http.Request) {
	s.record("label")
	data, _ := s.lookup(r.URL.Query().Get("dictType"))
	value := r.URL.Query().Get("dictValue")
	for _, d := range data {
		if d.DictValue == value {
			writeEnvelope(w, http.StatusOK, 200, d.DictLabel)
			return
		}
	}
	writeEnvelope(w, http.StatusOK, 200, value)
}

func (s *DictionaryServer) handleTypes(w http.ResponseWriter, r *http.Request) {
	s.record("types")
	writeEnvelope(w, http.StatusOK, 200, s.codes())
}

func (s *DictionaryServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	s.record("batch")
	var request struct {
		DictTypes []string `json:"dictTypes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeEnvelope(w, http.StatusBadRequest, 400, nil)
		return
	}
	writeEnvelope(w, http.StatusOK, 200, s.keyed(request.DictTypes))
}

func (s *DictionaryServer) codes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := make([]string, 0, len(s.dictionaries))
	for code := range s.dictionaries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (s *DictionaryServer) keyed(codes []string) map[string][]dictData {
	result := make(map[string][]dictData, len(codes))
	for _, code := range codes {
		if data, ok := s.lookup(code); ok {
			result[code] = data
		}
	}
	return result
}

func writeEnvelope(w http.ResponseWriter, status int, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code": code,
		"msg":  http.StatusText(status),
		"data": data,
	})
}
