package main

import (
	"KoordeDHT/internal/bootstrap"
	"KoordeDHT/internal/client"
	"KoordeDHT/internal/config"
	"KoordeDHT/internal/domain"
	"KoordeDHT/internal/logger"
	zapfactory "KoordeDHT/internal/logger/zap"
	"KoordeDHT/internal/node"
	"KoordeDHT/internal/routingtable"
	"KoordeDHT/internal/server"
	"KoordeDHT/internal/storage"
	"KoordeDHT/internal/telemetry"
	"KoordeDHT/internal/telemetry/lookuptrace"
	"KoordeDHT/internal/wire"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

var defaultConfigPath = "config/node/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewZapAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	lis, advertised, err := server.Listen(cfg.DHT.Mode, cfg.Node.Bind, cfg.Node.Host, cfg.Node.Port)
	if err != nil {
		lgr.Error("failed to initialize listener", logger.F("err", err))
		os.Exit(1)
	}
	defer func() { _ = lis.Close() }()
	addr := lis.Addr().String()
	lgr.Debug("created listener", logger.F("addr", addr))

	var wireSec *wire.Security
	if cfg.DHT.Security.EncryptionEnabled || cfg.DHT.Security.SignatureEnabled {
		wireSec, err = wire.NewSecurity(os.Getenv(cfg.DHT.Security.SecretKeyEnv))
		if err != nil {
			lgr.Error("failed to initialize wire security", logger.F("err", err))
			os.Exit(1)
		}
	}

	actualPort := lis.Addr().(*net.TCPAddr).Port
	wireBind := fmt.Sprintf("%s:%d", cfg.Node.Bind, actualPort+1)
	wireLis, err := net.Listen("tcp", wireBind)
	if err != nil {
		lgr.Error("failed to initialize wire listener", logger.F("err", err), logger.F("bind", wireBind))
		os.Exit(1)
	}
	defer func() { _ = wireLis.Close() }()
	lgr.Debug("created wire listener", logger.F("addr", wireLis.Addr().String()))

	space, err := domain.NewSpace(cfg.DHT.IDBits, cfg.DHT.FaultTolerance.SuccessorListSize)
	if err != nil {
		lgr.Error("failed to initialize identifier space", logger.F("err", err))
		os.Exit(1)
	}
	lgr.Debug("identifier space initialized",
		logger.F("id_bits", space.Bits),
		logger.F("sizeByte", space.ByteLen),
		logger.F("successorListSize", space.SuccListSize))

	var id domain.ID
	if cfg.Node.Id == "" {
		id = space.Hash(addr)
	} else {
		id, err = space.FromHexString(cfg.Node.Id)
		if err != nil {
			lgr.Error("invalid node ID in configuration", logger.F("err", err))
			os.Exit(1)
		}
	}
	domainNode := domain.Node{ID: id, Addr: advertised}
	lgr.Debug("generated node ID", logger.F("id", id.ToHexString()))
	lgr = lgr.Named("node").WithNode(domainNode)
	lgr.Info("new node initializing")

	shutdown := telemetry.InitTracer(cfg.Telemetry, "KoordeDHT-Node", id)
	defer func() { _ = shutdown(context.Background()) }()

	rt := routingtable.New(
		&domainNode,
		space,
		cfg.DHT.FaultTolerance.SuccessorListSize,
		routingtable.WithLogger(lgr.Named("routingtable")),
	)
	lgr.Debug("initialized routing table")

	clientOpts := []client.Option{client.WithLogger(lgr.Named("clientpool"))}
	if cfg.Telemetry.Tracing.Enabled {
		clientOpts = append(clientOpts, client.WithStatsHandler(otelgrpc.NewClientHandler()))
	}
	cp := client.NewPool(cfg.DHT.FaultTolerance.FailureTimeout, clientOpts...)
	lgr.Debug("initialized client pool")

	store := storage.NewMemoryStorage(lgr.Named("storage"))
	lgr.Debug("initialized in-memory storage")

	n := node.New(rt, store, cp,
		node.WithLogger(lgr),
		node.WithFailureThreshold(cfg.DHT.FaultTolerance.FailureThreshold),
		node.WithRPCTimeout(cfg.DHT.FaultTolerance.FailureTimeout),
		node.WithWireSecurity(wireSec),
	)
	lgr.Debug("initialized node")

	go func() {
		if err := wire.Serve(ctx, wireLis, wireSec, id.ToHexString()); err != nil {
			lgr.Warn("wire listener stopped", logger.F("err", err))
		}
	}()
	lgr.Debug("wire listener started")

	var grpcOpts []grpc.ServerOption
	if cfg.Telemetry.Tracing.Enabled {
		grpcOpts = append(grpcOpts,
			grpc.StatsHandler(otelgrpc.NewServerHandler()),
			grpc.ChainUnaryInterceptor(lookuptrace.ServerInterceptor()),
		)
		lgr.Debug("gRPC tracing enabled (lookup-only)")
	}

	s, err := server.New(lis, n, grpcOpts, server.WithLogger(lgr.Named("server")))
	if err != nil {
		lgr.Error("failed to initialize gRPC server", logger.F("err", err))
		os.Exit(1)
	}
	lgr.Debug("initialized gRPC server")

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Start() }()
	lgr.Debug("server started")

	peers, err := bootstrap.ResolveBootstrap(cfg.DHT.Bootstrap, lgr)
	if err != nil {
		lgr.Error("failed to resolve bootstrap peers", logger.F("err", err))
		s.Stop()
		os.Exit(1)
	}
	lgr.Info("resolved bootstrap peers", logger.F("peers", peers))

	joinCtx, joinCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if len(peers) == 0 {
		n.CreateRing()
		lgr.Debug("created new ring")
	} else if err := n.Join(joinCtx, peers[0]); err != nil {
		joinCancel()
		lgr.Error("failed to join ring", logger.F("err", err))
		s.Stop()
		os.Exit(1)
	} else {
		lgr.Debug("joined ring", logger.F("bootstrap", peers[0]))
	}
	joinCancel()

	var registrar bootstrap.Bootstrap
	if cfg.DHT.Bootstrap.Register.Enabled {
		switch cfg.DHT.Bootstrap.Register.Backend {
		case "coredns":
			registrar, err = bootstrap.NewCoreDNSBootstrap(bootstrap.CoreDNSConfig{
				Endpoints: cfg.DHT.Bootstrap.Register.EtcdEndpoints,
				BasePath:  cfg.DHT.Bootstrap.Register.EtcdBasePath,
				TTL:       cfg.DHT.Bootstrap.Register.TTL,
			})
		default:
			registrar, err = bootstrap.NewRoute53Bootstrap(bootstrap.Route53Config{
				HostedZoneID: cfg.DHT.Bootstrap.Register.HostedZoneID,
				DomainSuffix: cfg.DHT.Bootstrap.Register.DomainSuffix,
				TTL:          cfg.DHT.Bootstrap.Register.TTL,
			})
		}
		if err != nil {
			lgr.Error("failed to initialize registrar", logger.F("backend", cfg.DHT.Bootstrap.Register.Backend), logger.F("err", err))
		} else {
			regCtx, regCancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = registrar.Register(regCtx, &domainNode)
			regCancel()
			if err != nil {
				lgr.Error("failed to register node", logger.F("err", err))
			} else {
				lgr.Info("node registered successfully")
			}
		}
	}

	n.StartStabilizers(ctx,
		cfg.DHT.FaultTolerance.StabilizationInterval,
		cfg.DHT.FingerTable.FixInterval,
		cfg.DHT.Storage.FixInterval,
	)
	lgr.Debug("stabilization workers started")

	select {
	case <-ctx.Done():
		lgr.Info("shutdown signal received, stopping gracefully")
		stop()

		leaveCtx, leaveCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := n.Leave(leaveCtx); err != nil {
			lgr.Warn("graceful leave failed", logger.F("err", err))
		}
		leaveCancel()

		if registrar != nil {
			deregCtx, deregCancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := registrar.Deregister(deregCtx, &domainNode); err != nil {
				lgr.Warn("failed to deregister node", logger.F("err", err))
			}
			deregCancel()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
			lgr.Info("server stopped gracefully")
		case <-shutdownCtx.Done():
			lgr.Warn("graceful stop timed out, forcing shutdown")
		}

	case err := <-serveErr:
		lgr.Error("gRPC server terminated unexpectedly", logger.F("err", err))
		stop()
		os.Exit(1)
	}
}
