package registry

import (
	"context"
	"fmt"

	"github.com/a-h/templ"
)

// RemoteLoader fetches remote module code by module key.
type RemoteLoader interface {
	LoadComponent(ctx context.Context, key ModuleKey, subpath string) (templ.Component, error)
	LoadActions(ctx context.Context, key ModuleKey) ([]Action, error)
}

// Default returns the host module table backed by loader.
func Default(loader RemoteLoader) (*Registry, error) {
	if loader == nil {
		return nil, fmt.Errorf("remote loader is required")
	}
	return New(
		remoteModule(ModuleOne, "Module One", loader),
		remoteModule(ModuleTwo, "Module Two", loader),
	)
}

func remoteModule(key ModuleKey, label string, loader RemoteLoader) ModuleConfig {
	return ModuleConfig{
		Key:   key,
		Label: label,
		Path:  "/" + string(key),
		Component: func(ctx context.Context, subpath string) (templ.Component, error) {
			return loader.LoadComponent(ctx, key, subpath)
		},
		Actions: func(ctx context.Context) ([]Action, error) {
			return loader.LoadActions(ctx, key)
		},
	}
}
