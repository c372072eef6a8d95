package main

import (
	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"go.uber.org/zap"

	"lectern/internal/catalog"
	"lectern/internal/gateway"
	"lectern/internal/signal"
	"lectern/internal/status"
)

// deps are the singletons every view shares. The catalog binds lazily
// because browser-local storage is only reachable once a component mounts.
type deps struct {
	API *gateway.Client
	Bus *signal.Bus
	Rep *status.Reporter
	Log *zap.Logger

	cat *catalog.Catalog
}

func (d *deps) catalog(ctx app.Context) *catalog.Catalog {
	if d.cat == nil {
		d.cat = catalog.New(ctx.LocalStorage(), catalog.WithLogger(d.Log.Named("catalog")))
	}
	return d.cat
}

func main() {
	log, _ := zap.NewDevelopment()
	bus := signal.NewBus()
	d := &deps{
		API: gateway.NewClient("", gateway.WithLogger(log.Named("gateway"))),
		Bus: bus,
		Rep: status.NewReporter(bus, log.Named("status")),
		Log: log,
	}

	app.Route("/", func() app.Composer { return &HomeView{Deps: d} })
	app.RouteWithRegexp(`^/project/.+$`, func() app.Composer { return &WorkspaceView{Deps: d} })
	app.RunWhenOnBrowser()
}
