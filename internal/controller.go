// Package internal wires this module's packages into a running
// server: the Controller owns the cooperative event loop, the
// configured direct-connect and proxy listeners, the shipgate status
// service, and the account/character store, and supplies the
// directserver.OnSession hook (internal/gamesession.go) that bridges
// an accepted Channel into the lobby/subcommand packages.
package internal

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quietloop/archon/internal/core"
	"github.com/quietloop/archon/internal/core/debug"
	"github.com/quietloop/archon/internal/directserver"
	"github.com/quietloop/archon/internal/eventloop"
	"github.com/quietloop/archon/internal/gamedata"
	"github.com/quietloop/archon/internal/lobby"
	"github.com/quietloop/archon/internal/proxy"
	"github.com/quietloop/archon/internal/shipgate"
	"github.com/quietloop/archon/internal/store"
	"github.com/quietloop/archon/internal/subcommand"
	"github.com/quietloop/archon/internal/version"
)

// Controller is the main entrypoint for this server: it initializes
// shared resources (logging, storage), wires every listener, and owns
// the cooperative loop every session/lobby mutation runs on.
type Controller struct {
	Config *core.Config

	logger *logrus.Logger
	loop   *eventloop.Loop

	directServer *directserver.Server
	proxyServer  *proxy.Server
	capture      *debug.PacketCapture

	store          *store.Store
	licenseStore   gamedata.LicenseStore
	characterStore gamedata.CharacterFileStore
	subcommands    *subcommand.Table
	itemCreator    *gamedata.ReferenceItemCreator
	itemPricer     gamedata.ItemParameterTable

	startedAt time.Time

	mu      sync.Mutex
	lobbies []*lobby.Lobby

	sessionCount int64
	lobbyCount   int64
}

// Start blocks until ctx is canceled, initializing every component in
// turn and tearing them down in Shutdown once it returns.
func (c *Controller) Start(ctx context.Context) {
	defer c.Shutdown(ctx)
	c.startedAt = time.Now()

	var err error
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		fmt.Printf("error initializing logger: %v\n", err)
		return
	}

	debug.StartUtilities(c.logger, c.Config.Debugging.PprofEnabled, c.Config.Debugging.PprofPort)

	if err := c.openStore(); err != nil {
		c.logger.WithError(err).Error("error opening account/character store")
		return
	}

	if c.Config.Debugging.PacketCaptureEnabled {
		c.capture, err = debug.NewPacketCapture(c.Config.Debugging.PacketCaptureFile)
		if err != nil {
			c.logger.WithError(err).Warn("error opening packet capture file, continuing without one")
		}
	}

	c.subcommands = subcommand.DefaultTable(subcommand.DefaultConfig{
		ExpModeFactor: c.Config.Gameplay.ExpMultiplier,
		ExpEpisode:    1,
		Award:         c.awardExp,
	})

	// The drop engine's (spec §4.8) and shop's (spec §4.7) item-creator
	// and pricer collaborators are explicitly out of scope per spec §1
	// (item parameter tables); this reference implementation is what
	// lets both engines run end to end without a real asset pipeline.
	c.itemCreator = gamedata.NewReferenceItemCreator()
	c.itemPricer = gamedata.NewReferenceItemParameterTable(0)

	c.loop = eventloop.New(1024)

	c.startShipgate(ctx)

	if err := c.startDirectServer(); err != nil {
		c.logger.WithError(err).Error("error starting direct server")
		return
	}
	if err := c.startProxyServer(); err != nil {
		c.logger.WithError(err).Error("error starting proxy server")
		return
	}

	go c.loop.Run()

	<-ctx.Done()
}

// openStore builds the gamedata.LicenseStore/CharacterFileStore pair
// from Config.Database: a real postgres connection, or the embeddable
// sqlite driver for single-binary/test deployments.
func (c *Controller) openStore() error {
	var s *store.Store
	var err error
	switch c.Config.Database.Engine {
	case "sqlite":
		s, err = store.OpenSQLite(c.Config.Database.Filename)
	default:
		s, err = store.Open(c.Config.DatabaseURL(), false)
	}
	if err != nil {
		return err
	}
	c.store = s
	c.licenseStore = s
	c.characterStore = s
	return nil
}

// startShipgate launches the read-only status service and waits (with
// a bounded timeout) for it to report ready before the rest of the
// controller proceeds, mirroring the teacher's "shipgate must be up
// before the other servers start" ordering.
func (c *Controller) startShipgate(ctx context.Context) {
	var tlsConfig *tls.Config
	if c.Config.ShipgateServer.CertFile != "" {
		var err error
		tlsConfig, err = shipgate.LoadServerTLSConfig(c.Config.ShipgateServer.CertFile, c.Config.ShipgateServer.KeyFile)
		if err != nil {
			c.logger.WithError(err).Warn("shipgate: failed to load TLS config, serving status over plain HTTP")
			tlsConfig = nil
		}
	}

	ready := make(chan bool, 1)
	errc := make(chan error, 1)
	addr := fmt.Sprintf(":%d", c.Config.ShipgateServer.Port)
	go shipgate.Start(ctx, c.logger, addr, c, tlsConfig, ready, errc)

	select {
	case <-ready:
	case err := <-errc:
		c.logger.WithError(err).Error("shipgate: failed to start")
	case <-time.After(10 * time.Second):
		c.logger.Warn("shipgate: timed out waiting for startup, continuing anyway")
	}
}

// Status implements shipgate.StatsProvider. The counters are updated
// with plain atomics rather than read through the cooperative loop,
// since shipgate's HTTP handler runs on its own goroutine and spec §5
// reserves loop.Post for state mutation, not for read-only reporting.
func (c *Controller) Status() shipgate.Status {
	return shipgate.Status{
		SessionCount: int(atomic.LoadInt64(&c.sessionCount)),
		LobbyCount:   int(atomic.LoadInt64(&c.lobbyCount)),
		StartedAt:    c.startedAt,
	}
}

func (c *Controller) startDirectServer() error {
	var listens []directserver.Listen
	for _, d := range c.Config.DirectServers {
		v, ok := version.ParseVersion(d.Version)
		if !ok {
			return fmt.Errorf("controller: unknown direct server version %q", d.Version)
		}
		listens = append(listens, directserver.Listen{
			Addr:    fmt.Sprintf("%s:%d", c.Config.Hostname, d.Port),
			Version: v,
		})
	}
	if len(listens) == 0 {
		return nil
	}

	c.directServer = directserver.New(c.loop, c.logger, c.onDirectSession)
	return c.directServer.Serve(listens)
}

func (c *Controller) startProxyServer() error {
	var listens []proxy.Listen
	for _, p := range c.Config.ProxyServers {
		v, ok := version.ParseVersion(p.Version)
		if !ok {
			return fmt.Errorf("controller: unknown proxy server version %q", p.Version)
		}
		l := proxy.Listen{Addr: fmt.Sprintf("%s:%d", c.Config.Hostname, p.Port), Version: v}
		if p.DefaultHost != "" {
			l.Default = &proxy.Destination{Host: p.DefaultHost, Port: p.DefaultPort}
		}
		listens = append(listens, l)
	}
	if len(listens) == 0 {
		return nil
	}

	c.proxyServer = proxy.New(c.loop, c.logger, nil)
	if c.capture != nil {
		c.proxyServer.Inspect = c.inspectAndCapture
	}
	return c.proxyServer.Serve(listens)
}

// defaultLobby returns the module's single standing lobby, creating it
// on first use. A production deployment would expose a lobby *list*
// (ship/block menus, spec §4.9's LobbyList packet); this wiring layer
// keeps exactly one lobby since the Module Map has no dedicated
// lobby-directory package of its own to own that fan-out.
func (c *Controller) defaultLobby() *lobby.Lobby {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lobbies) == 0 {
		c.lobbies = append(c.lobbies, lobby.New(1, "Lobby 1"))
		atomic.StoreInt64(&c.lobbyCount, 1)
	}
	return c.lobbies[0]
}

// awardExp applies a computed EXP amount to the targeted occupant's
// active character, the subcommand.DefaultConfig.Award callback family
// 7's ExpGain handler defers to since internal/subcommand doesn't
// depend on internal/player's leveling rules.
func (c *Controller) awardExp(ctx *subcommand.Context, slot int, amount uint32) {
	occ := ctx.Lobby.Occupants[slot]
	if occ == nil || occ.Character == nil {
		return
	}
	occ.Character.Active().Display.Experience += amount
}

// Shutdown stops accepting new connections, halts the loop, and
// releases the store. The shipgate service shuts itself down when the
// same ctx is canceled, per its own Start contract.
func (c *Controller) Shutdown(ctx context.Context) {
	if c.directServer != nil {
		c.directServer.Close()
	}
	if c.proxyServer != nil {
		c.proxyServer.Close()
	}
	if c.loop != nil {
		c.loop.Stop()
	}
	if c.capture != nil {
		c.capture.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}
