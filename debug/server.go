package debug

/*
   Copyright 2018 Bruno Moura <brunotm@gmail.com>

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/routegraph/linkrt/link"
)

// Config for the debug http Server.
type Config struct {
	Addr              string
	WriteTimeout      time.Duration
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
}

// Server exposes a running Graph for local operational visibility:
//
//	GET /graph/dot    the topology in DOT format
//	GET /graph/links  per-link runnable/egressor counts and live queue
//	                  depth plus TaskPark state, as JSON
//
// Nothing in the runtime starts one of these implicitly; a Server only
// listens when the caller constructs and starts it.
type Server struct {
	config Config
	http   *http.Server
	router *httprouter.Router
}

// New Server serving the given graph.
func New(config Config, graph *link.Graph) (server *Server) {
	server = &Server{}
	server.config = config
	server.router = httprouter.New()
	server.http = &http.Server{}
	server.http.Addr = config.Addr

	if config.WriteTimeout != 0 {
		server.http.WriteTimeout = config.WriteTimeout
	}

	if config.ReadTimeout != 0 {
		server.http.ReadTimeout = config.ReadTimeout
	}

	if config.ReadHeaderTimeout != 0 {
		server.http.ReadHeaderTimeout = config.ReadHeaderTimeout
	}

	server.router.GET("/graph/dot", server.handleDot(graph))
	server.router.GET("/graph/links", server.handleLinks(graph))

	server.http.Handler = server.router
	return server
}

// Start serving
func (s *Server) Start() (err error) {
	if err = s.http.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close serving
func (s *Server) Close(ctx context.Context) (err error) {
	return s.http.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.router.ServeHTTP(w, req)
}

func (s *Server) handleDot(graph *link.Graph) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		w.Write([]byte(graph.DotGraph()))
	}
}

func (s *Server) handleLinks(graph *link.Graph) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(graph.Links()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
