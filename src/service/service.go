package service

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/mosaicnetworks/hastings/src/discovery"
	"github.com/mosaicnetworks/hastings/src/peers"
	"github.com/mosaicnetworks/hastings/src/store"
	"github.com/mosaicnetworks/hastings/src/telemetry"
	"github.com/sirupsen/logrus"
)

// Node is the part of node.Node the service reads from.
type Node interface {
	GetStats() map[string]string
	GetStep() *discovery.Step
	GetCandidate() *discovery.Step
	GetHistory() []*discovery.Memento
	GetPeers() []*peers.Peer
	GetKnownPeers() ([]*store.PeerRecord, error)
}

// Service exposes the state of a node over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	node        Node
	mux         *http.ServeMux
	server      *http.Server
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, n Node, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		node:        n,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	service.server = &http.Server{
		Addr:    bindAddress,
		Handler: service.mux,
	}

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering Hastings API handlers")
	s.mux.Handle("/stats", s.makeHandler("stats", s.GetStats))
	s.mux.Handle("/step", s.makeHandler("step", s.GetStep))
	s.mux.Handle("/candidate", s.makeHandler("candidate", s.GetCandidate))
	s.mux.Handle("/history", s.makeHandler("history", s.GetHistory))
	s.mux.Handle("/peers", s.makeHandler("peers", s.GetPeers))
	s.mux.Handle("/knownpeers", s.makeHandler("knownpeers", s.GetKnownPeers))
	s.mux.Handle("/metrics", telemetry.MetricsHandler())
}

func (s *Service) makeHandler(op string, fn func(http.ResponseWriter, *http.Request)) http.Handler {
	return telemetry.Instrument(op, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}))
}

// Serve calls ListenAndServe. This is a blocking call which returns nil after
// Close.
func (s *Service) Serve() error {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving Hastings API")

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
		return err
	}
	return nil
}

// Close stops the HTTP server.
func (s *Service) Close() error {
	return s.server.Close()
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.node.GetStats())
}

// GetStep returns the accepted step.
func (s *Service) GetStep(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.node.GetStep())
}

// GetCandidate returns the step under evaluation, or null between ticks.
func (s *Service) GetCandidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.node.GetCandidate())
}

// GetHistory returns the saved steps, oldest first.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.node.GetHistory())
}

// GetPeers returns the neighbours of the accepted step.
func (s *Service) GetPeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.node.GetPeers())
}

// GetKnownPeers returns the peers persisted by the node.
func (s *Service) GetKnownPeers(w http.ResponseWriter, r *http.Request) {
	known, err := s.node.GetKnownPeers()
	if err != nil {
		s.logger.WithError(err).Error("Retrieving known peers")

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	writeJSON(w, known)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(v)
}
