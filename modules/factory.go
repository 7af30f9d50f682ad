package modules

import (
	"time"

	"github.com/frappy-project/frappy-core/config"
	"github.com/frappy-project/frappy-core/logging"
	"github.com/frappy-project/frappy-core/module"
	"github.com/frappy-project/frappy-core/persist"
	"github.com/frappy-project/frappy-core/secoperr"
	"github.com/frappy-project/frappy-core/stream"
)

// Build constructs a registered module class by name, wiring its
// stream.Connection from the "uri"/"query_cmd"/"write_cmd" properties
// a node descriptor supplies (SPEC_FULL.md §1.2 domain-stack
// StreamSensor/StreamDrivable wiring). className is one of
// "StreamSensor", "StreamDrivable" — a static registry, since a node
// never loads classes dynamically at runtime (spec.md §1 Non-goals).
// store may be nil; when set, a Drivable's last commanded target is
// loaded as its configured value and auto-persisted on every change
// (spec.md §4.I).
func Build(className, name string, cfg config.ModuleConfig, announcer module.Announcer, logger logging.Logger, store *persist.Store) (*module.Module, error) {
	switch className {
	case "StreamSensor":
		return buildStreamSensor(name, cfg, announcer, logger)
	case "StreamDrivable":
		return buildStreamDrivable(name, cfg, announcer, logger, store)
	default:
		return nil, secoperr.ConfigError("module %s: unknown class %q", name, className)
	}
}

func connectionFromProperties(props map[string]any, logger logging.Logger) (*stream.Connection, error) {
	uri, _ := props["uri"].(string)
	if uri == "" {
		return nil, secoperr.ConfigError("missing required property %q", "uri")
	}
	timeout := 2 * time.Second
	if secs, ok := props["timeout"].(float64); ok {
		timeout = time.Duration(secs * float64(time.Second))
	}
	opts := stream.Options{URI: uri, Timeout: timeout, EndOfLineWrite: '\n', EndOfLineRead: '\n'}
	return stream.New(opts, stream.TCPDialer(uri), logger), nil
}

func stringProperty(props map[string]any, key, fallback string) string {
	if v, ok := props[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func buildStreamSensor(name string, cfg config.ModuleConfig, announcer module.Announcer, logger logging.Logger) (*module.Module, error) {
	desc, err := Readable.Build()
	if err != nil {
		return nil, err
	}
	mod := module.New(name, desc, announcer)

	conn, err := connectionFromProperties(cfg.Properties, logger)
	if err != nil {
		return nil, err
	}
	queryCmd := stringProperty(cfg.Properties, "query_cmd", "R?")

	if _, err := NewStreamSensor(mod, conn, queryCmd); err != nil {
		return nil, err
	}
	if err := mod.Construct(cfg.Properties, cfg.Parameters); err != nil {
		return nil, err
	}
	return mod, nil
}

func buildStreamDrivable(name string, cfg config.ModuleConfig, announcer module.Announcer, logger logging.Logger, store *persist.Store) (*module.Module, error) {
	desc, err := Drivable.Build()
	if err != nil {
		return nil, err
	}
	mod := module.New(name, desc, announcer)

	conn, err := connectionFromProperties(cfg.Properties, logger)
	if err != nil {
		return nil, err
	}
	writeCmd := stringProperty(cfg.Properties, "write_cmd", "")

	if _, err := NewStreamDrivable(mod, conn, writeCmd); err != nil {
		return nil, err
	}

	targetType := desc.Params["target"].Datatype

	params := cfg.Parameters
	if store != nil {
		if _, configured := params["target"]; !configured {
			if loaded, ok := store.Loaded(name, "target"); ok {
				imported, err := targetType.Import(loaded)
				if err != nil {
					return nil, secoperr.ConfigError("module %s: persisted target: %v", name, err)
				}
				if params == nil {
					params = map[string]any{}
				}
				params["target"] = imported
			}
		}
	}
	if err := mod.Construct(cfg.Properties, params); err != nil {
		return nil, err
	}

	if store != nil {
		mod.SetPersistence("target", "auto")
		mod.SetSaveHook(func(moduleName, pname string) {
			v, ok := mod.Get(pname)
			if !ok {
				return
			}
			exported, err := targetType.Export(v)
			if err != nil {
				return
			}
			_ = store.SetAndSave(moduleName, pname, exported)
		})
	}
	return mod, nil
}
