package services

import (
	"github.com/ghuser/lostfound/pkg/app"
	"github.com/ghuser/lostfound/pkg/cache"
	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
	"github.com/ghuser/lostfound/services/item/infrastructure/persistence/postgres"
	"github.com/ghuser/lostfound/services/item/infrastructure/persistence/sqlite"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Item *ItemService
	// Items is exposed for the chat gate, which must read item state
	// straight from the store.
	Items repositories.ItemRepository
	// Images stores uploaded item photos; nil disables uploads.
	Images ImageStore
}

// New wires all item application services with infrastructure from the Application container.
func New(a *app.Application) *Services {
	var (
		items repositories.ItemRepository
		logs  repositories.AdminLogRepository
	)
	if a.Db.Driver() == config.DriverPostgres {
		items = postgres.NewItemRepository(a.Db, a.EventBus)
		logs = postgres.NewAdminLogRepository(a.Db)
	} else {
		items = sqlite.NewItemRepository(a.Db)
		logs = sqlite.NewAdminLogRepository(a.Db)
	}

	deps := Dependencies{
		Items:     items,
		AdminLogs: logs,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
		AITimeout: a.Config.AITimeout,
	}
	// typed nils must not leak into the interfaces
	if c := cache.NewItemCache(a.Redis); c != nil {
		deps.Cache = c
	}
	if a.AI != nil {
		deps.Questions = a.AI
		deps.Scorer = a.AI
	}
	svcs := &Services{Items: items}
	if a.Images != nil {
		deps.Images = a.Images
		svcs.Images = a.Images
	}
	svcs.Item = NewItemService(deps)
	return svcs
}
