package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"github.com/tansive/stately/internal/common/httpx"
	"github.com/tansive/stately/internal/common/logtrace"
	commonmiddleware "github.com/tansive/stately/internal/common/middleware"
	"github.com/tansive/stately/internal/statesrv/apis"
	"github.com/tansive/stately/internal/statesrv/auth"
	"github.com/tansive/stately/internal/statesrv/config"
	"github.com/tansive/stately/internal/statesrv/db"
)

type StateServer struct {
	Router *chi.Mux
}

func CreateNewServer() (*StateServer, error) {
	s := &StateServer{}
	s.Router = chi.NewRouter()
	return s, nil
}

func (s *StateServer) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	if config.Config().HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		}))
	}
	s.Router.Route("/", s.mountResourceHandlers)
	if logtrace.IsTraceEnabled() {
		// print all the routes in the router
		fmt.Println("Routes in state server router")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			fmt.Printf("Logging err: %s\n", err.Error())
		}
	}
}

func (s *StateServer) mountResourceHandlers(r chi.Router) {
	r.Get("/version", s.getVersion)
	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Use(db.LoadStoreDB) // attach the storage handle to the request
		apis.Router(r)
	})
}

type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *StateServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion: "Stately State Server: 0.1.0",
		ApiVersion:    "v1",
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}
