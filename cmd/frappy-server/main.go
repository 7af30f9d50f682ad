// frappy-server runs one SECoP node: it loads a node descriptor,
// builds its modules, and serves the SECoP line protocol plus a
// read-only admin gRPC surface until interrupted.
//
// Usage:
//
//	frappy-server -config node.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frappy-project/frappy-core/admin"
	"github.com/frappy-project/frappy-core/config"
	"github.com/frappy-project/frappy-core/dispatcher"
	"github.com/frappy-project/frappy-core/logging"
	"github.com/frappy-project/frappy-core/modules"
	"github.com/frappy-project/frappy-core/observability"
	"github.com/frappy-project/frappy-core/persist"
	"github.com/frappy-project/frappy-core/poller"
	"github.com/frappy-project/frappy-core/secopserver"
)

func main() {
	configPath := flag.String("config", "node.yaml", "node descriptor path")
	collectorEndpoint := flag.String("otlp-endpoint", "", "OTLP collector address; tracing disabled if empty")
	flag.Parse()

	logger := logging.New(os.Stdout, logging.LevelInfo)
	logger.Info("frappy_server_starting", "config", *configPath)

	node, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load_config_failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *collectorEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, node.EquipmentID, *collectorEndpoint)
		if err != nil {
			logger.Error("init_tracer_failed", "err", err)
		} else {
			defer shutdown(ctx)
		}
	}

	var store *persist.Store
	if node.PersistPath != "" {
		store, err = persist.Open(node.PersistPath, node.EquipmentID)
		if err != nil {
			logger.Error("open_persist_store_failed", "err", err)
			os.Exit(1)
		}
	}

	disp := dispatcher.New(logger.Bind("component", "dispatcher"))

	var pollers []*poller.Poller
	for name, modCfg := range node.Modules {
		modLogger := logger.Bind("module", name)
		mod, err := modules.Build(modCfg.Class, name, modCfg, disp, modLogger, store)
		if err != nil {
			logger.Error("build_module_failed", "module", name, "err", err)
			os.Exit(1)
		}
		disp.Register(&dispatcher.ModuleEntry{Name: name, Class: mod.Class, Inst: mod})

		p := poller.New(mod, modLogger, 1*time.Second, 10*time.Second, nil)
		p.SetName(name)
		pollers = append(pollers, p)
	}

	if err := disp.Finalize(node.EquipmentID); err != nil {
		logger.Error("finalize_dispatcher_failed", "err", err)
		os.Exit(1)
	}

	for _, p := range pollers {
		go p.Run(ctx)
	}

	secopSrv, err := secopserver.Listen(node.Bind, disp, logger.Bind("component", "secop"))
	if err != nil {
		logger.Error("listen_secop_failed", "err", err)
		os.Exit(1)
	}
	go func() {
		if err := secopSrv.Serve(); err != nil {
			logger.Error("secop_serve_failed", "err", err)
		}
	}()
	logger.Info("secop_listening", "address", secopSrv.Addr().String())

	var adminSrv *admin.Server
	if node.AdminBind != "" {
		adminSvc := admin.NewService(disp, logger.Bind("component", "admin"))
		adminSrv, err = admin.Listen(node.AdminBind, adminSvc, logger.Bind("component", "admin"))
		if err != nil {
			logger.Error("listen_admin_failed", "err", err)
			os.Exit(1)
		}
		go func() {
			if err := adminSrv.Serve(); err != nil {
				logger.Error("admin_serve_failed", "err", err)
			}
		}()
		logger.Info("admin_listening", "address", adminSrv.Addr())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown_signal_received", "signal", sig.String())

	cancel()
	secopSrv.Stop()
	if adminSrv != nil {
		adminSrv.Stop()
	}
	if store != nil {
		if err := store.Save(); err != nil {
			logger.Error("final_persist_save_failed", "err", err)
		}
	}
	logger.Info("frappy_server_stopped")
	fmt.Println("frappy-server stopped")
}
