package hastings

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"sync"

	"github.com/mosaicnetworks/hastings/src/config"
	"github.com/mosaicnetworks/hastings/src/crypto/keys"
	"github.com/mosaicnetworks/hastings/src/net"
	"github.com/mosaicnetworks/hastings/src/node"
	"github.com/mosaicnetworks/hastings/src/peers"
	"github.com/mosaicnetworks/hastings/src/service"
	"github.com/mosaicnetworks/hastings/src/store"
	"github.com/mosaicnetworks/hastings/src/telemetry"
	"github.com/mosaicnetworks/hastings/src/version"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Hastings is a struct containing the key parts of a Hastings node.
type Hastings struct {
	Config    *config.Config
	Node      *node.Node
	Transport net.Transport
	Store     store.Store
	Peers     *peers.PeerSet
	Service   *service.Service

	logger       *logrus.Entry
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewHastings is a factory method to produce a Hastings instance.
func NewHastings(c *config.Config) *Hastings {
	engine := &Hastings{
		Config:     c,
		logger:     c.Logger(),
		shutdownCh: make(chan struct{}),
	}

	return engine
}

// Init initialises the Hastings engine
func (h *Hastings) Init() error {
	h.logger.Debug("validateConfig")
	if err := h.validateConfig(); err != nil {
		h.logger.WithError(err).Error("hastings.go:Init() validateConfig")
		return err
	}

	h.logger.Debug("initKey")
	if err := h.initKey(); err != nil {
		h.logger.WithError(err).Error("hastings.go:Init() initKey")
		return err
	}

	h.logger.Debug("initPeers")
	if err := h.initPeers(); err != nil {
		h.logger.WithError(err).Error("hastings.go:Init() initPeers")
		return err
	}

	h.logger.Debug("initStore")
	if err := h.initStore(); err != nil {
		h.logger.WithError(err).Error("hastings.go:Init() initStore")
		return err
	}

	h.logger.Debug("initTransport")
	if err := h.initTransport(); err != nil {
		h.logger.WithError(err).Error("hastings.go:Init() initTransport")
		return err
	}

	h.logger.Debug("initNode")
	if err := h.initNode(); err != nil {
		h.logger.WithError(err).Error("hastings.go:Init() initNode")
		return err
	}

	h.logger.Debug("initService")
	if err := h.initService(); err != nil {
		h.logger.WithError(err).Error("hastings.go:Init() initService")
		return err
	}

	return nil
}

// Run starts the node and the HTTP service and blocks until ctx is cancelled,
// Shutdown is called, or one of them fails.
func (h *Hastings) Run(ctx context.Context) error {
	telemetry.SetBuildInfo(version.Version)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := h.Node.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	if h.Service != nil {
		group.Go(h.Service.Serve)
	}

	group.Go(func() error {
		select {
		case <-ctx.Done():
		case <-h.shutdownCh:
		}
		h.Shutdown()
		return nil
	})

	return group.Wait()
}

// Shutdown stops the service and the node. It is safe to call more than once.
func (h *Hastings) Shutdown() {
	h.shutdownOnce.Do(func() {
		h.logger.Debug("Shutdown")

		close(h.shutdownCh)

		if h.Service != nil {
			h.Service.Close()
		}

		if h.Node != nil {
			h.Node.Shutdown()
		}
	})
}

func (h *Hastings) validateConfig() error {
	if h.Config.SampleSize < 1 {
		return fmt.Errorf("sample-size should be at least 1, got %d", h.Config.SampleSize)
	}

	if h.Config.StepTimeout <= 0 {
		return fmt.Errorf("step-timeout should be positive, got %v", h.Config.StepTimeout)
	}

	// Bootstrap reads the peers of a previous run, which requires a database.
	if h.Config.Bootstrap && !h.Config.Store {
		h.logger.Debug("Config --bootstrap forces --store")
		h.Config.Store = true
	}

	logFields := logrus.Fields{
		"config.DataDir":         h.Config.DataDir,
		"config.BindAddr":        h.Config.BindAddr,
		"config.AdvertiseAddr":   h.Config.AdvertiseAddr,
		"config.ServiceAddr":     h.Config.ServiceAddr,
		"config.NoService":       h.Config.NoService,
		"config.MaxPool":         h.Config.MaxPool,
		"config.TCPTimeout":      h.Config.TCPTimeout,
		"config.Store":           h.Config.Store,
		"config.DatabaseDir":     h.Config.DatabaseDir,
		"config.Bootstrap":       h.Config.Bootstrap,
		"config.Moniker":         h.Config.Moniker,
		"config.SampleSize":      h.Config.SampleSize,
		"config.StepTimeout":     h.Config.StepTimeout,
		"config.TickInterval":    h.Config.TickInterval,
		"config.MaxHistoryDepth": h.Config.MaxHistoryDepth,
		"config.BurnIn":          h.Config.BurnIn,
		"config.Seeds":           h.Config.Seeds,
	}

	h.logger.WithFields(logFields).Debug("Config")

	return nil
}

func (h *Hastings) initKey() error {
	if h.Config.Key == nil {
		simpleKeyfile := keys.NewSimpleKeyfile(h.Config.Keyfile())

		privKey, err := simpleKeyfile.ReadKey()
		if err != nil {
			h.logger.WithError(err).Warn("Cannot read private key from file")

			privKey, err = Keygen(h.Config.Keyfile())
			if err != nil {
				return err
			}

			h.logger.WithField("pub_key", keys.PublicKeyHex(&privKey.PublicKey)).Info("Created a new key")
		}

		h.Config.Key = privKey
	}

	return nil
}

// initPeers reads the bootstrap peers from peers.json, if present, and adds the
// seeds given in the configuration.
func (h *Hastings) initPeers() error {
	bootstrap := peers.NewPeerSet(nil)

	peerSet, err := peers.NewJSONPeerSet(h.Config.DataDir).PeerSet()
	switch {
	case err == nil:
		bootstrap = peerSet
	case os.IsNotExist(err):
		h.logger.Debug("No peers.json")
	default:
		return err
	}

	seeds, err := h.Config.SeedPeers()
	if err != nil {
		return err
	}

	h.Peers = bootstrap.WithNewPeers(seeds...)

	h.logger.WithFields(logrus.Fields{
		"peers":   h.Peers.Len(),
		"pubkeys": h.Peers.PubKeys(),
	}).Debug("Loaded bootstrap peers")

	return nil
}

func (h *Hastings) initStore() error {
	if !h.Config.Store {
		h.logger.Debug("Creating InmemStore")
		h.Store = store.NewInmemStore()
		return nil
	}

	h.logger.WithField("path", h.Config.DatabaseDir).Debug("Attempting to load or create database")

	badgerStore, err := store.LoadOrCreateBadgerStore(h.Config.DatabaseDir, h.logger)
	if err != nil {
		return err
	}

	h.Store = badgerStore

	return nil
}

func (h *Hastings) initTransport() error {
	transport, err := net.NewTCPTransport(
		h.Config.BindAddr,
		h.Config.AdvertiseAddr,
		h.Config.MaxPool,
		h.Config.TCPTimeout,
		h.logger,
	)
	if err != nil {
		return err
	}

	h.Transport = transport

	return nil
}

func (h *Hastings) initNode() error {
	validator := node.NewValidator(h.Config.Key, h.Config.Moniker)

	nodeConf := node.NewConfig(
		h.Config.SampleSize,
		h.Config.StepTimeout,
		h.Config.TickInterval,
		h.Config.MaxHistoryDepth,
		h.Config.BurnIn,
		h.logger.Logger,
	)
	nodeConf.Bootstrap = h.Config.Bootstrap
	nodeConf.Seeds = h.Peers.Peers

	h.Node = node.NewNode(nodeConf, validator, h.Transport, h.Store)

	h.logger.WithFields(logrus.Fields{
		"id":      validator.ID(),
		"pub_key": validator.PublicKeyHex(),
		"addr":    h.Transport.AdvertiseAddr(),
	}).Info("Node initialised")

	return nil
}

func (h *Hastings) initService() error {
	if !h.Config.NoService {
		h.Service = service.NewService(h.Config.ServiceAddr, h.Node, h.logger)
	}
	return nil
}

// Keygen generates a new key and writes it to keyfile. It refuses to overwrite
// an existing key.
func Keygen(keyfile string) (*ecdsa.PrivateKey, error) {
	if _, err := os.Stat(keyfile); err == nil {
		return nil, fmt.Errorf("another key already lives under %s", keyfile)
	}

	privKey, err := keys.GenerateECDSAKey()
	if err != nil {
		return nil, err
	}

	if err := keys.NewSimpleKeyfile(keyfile).WriteKey(privKey); err != nil {
		return nil, err
	}

	return privKey, nil
}
