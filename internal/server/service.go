package server

import (
	"net/http"

	"connectrpc.com/connect"
)

const DictionaryServiceName = "dictcache.v1.DictionaryService"

const (
	GetDictionaryProcedure = "/" + DictionaryServiceName + "/GetDictionary"
	GetLabelProcedure      = "/" + DictionaryServiceName + "/GetLabel"
	BatchFetchProcedure    = "/" + DictionaryServiceName + "/BatchFetch"
	SyncProcedure          = "/" + DictionaryServiceName + "/Sync"
	ReloadProcedure        = "/" + DictionaryServiceName + "/Reload"
	GetMetricsProcedure    = "/" + DictionaryServiceName + "/GetMetrics"
)

// NewDictionaryServiceHandler builds the HTTP handler serving every procedure of the service
// and returns the path to mount it on.
func NewDictionaryServiceHandler(handler *DictionaryHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetDictionaryProcedure, connect.NewUnaryHandler(GetDictionaryProcedure, handler.GetDictionary, opts...))
	mux.Handle(GetLabelProcedure, connect.NewUnaryHandler(GetLabelProcedure, handler.GetLabel, opts...))
	mux.Handle(BatchFetchProcedure, connect.NewUnaryHandler(BatchFetchProcedure, handler.BatchFetch, opts...))
	mux.Handle(SyncProcedure, connect.NewUnaryHandler(SyncProcedure, handler.Sync, opts...))
	mux.Handle(ReloadProcedure, connect.NewUnaryHandler(ReloadProcedure, handler.Reload, opts...))
	mux.Handle(GetMetricsProcedure, connect.NewUnaryHandler(GetMetricsProcedure, handler.GetMetrics, opts...))
	return "/" + DictionaryServiceName + "/", mux
}

// CORS allows a browser application served from origin to call the service.
func CORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Connect-Protocol-Version")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
