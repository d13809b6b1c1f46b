package task

import (
	"context"

	"go.uber.org/zap"

	"taskdeck/internal/eventbus"
	"taskdeck/internal/model"
)

// Controller is the seam between the engine and the presentation layer: it
// subscribes to ui:* intent events, invokes the service, and re-emits
// controller:* events the presentation observes to re-render. Filter state
// is session-local and merged shallowly on ui:filter-change.
type Controller struct {
	bus    *eventbus.Bus
	svc    *Service
	logger *zap.Logger

	filter Filter
	unsubs []eventbus.Unsubscribe
}

func NewController(bus *eventbus.Bus, svc *Service, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		bus:    bus,
		svc:    svc,
		logger: logger,
		filter: DefaultFilter(),
	}
	c.unsubs = []eventbus.Unsubscribe{
		bus.On(UITaskCreate, c.onCreate),
		bus.On(UITaskUpdate, c.onUpdate),
		bus.On(UITaskDelete, c.onDelete),
		bus.On(UITaskToggle, c.onToggle),
		bus.On(UIFilterChange, c.onFilterChange),
		bus.On(UIBackupRequest, c.onBackup),
		bus.On(UIRestoreRequest, c.onRestore),
	}
	return c
}

// Close drops every ui:* subscription.
func (c *Controller) Close() {
	for _, u := range c.unsubs {
		u()
	}
	c.unsubs = nil
}

// Filter returns the current session filter.
func (c *Controller) Filter() Filter { return c.filter }

func (c *Controller) refresh() {
	tasks := c.svc.List(c.filter)
	c.bus.Emit(ControllerRefresh, tasks, c.filter)
}

func (c *Controller) fail(op string, err error) {
	c.bus.Emit(ControllerError, err.Error(), op)
}

func (c *Controller) onCreate(args ...any) {
	in, ok := argAt[Input](args, 0)
	if !ok {
		c.logger.Warn("ui:task-create: bad payload")
		return
	}
	typ := model.TypeBasic
	if t, ok := argAt[model.TaskType](args, 1); ok {
		typ = t
	}
	t, err := c.svc.Create(context.Background(), typ, in)
	if err != nil {
		c.fail("create", err)
		return
	}
	c.bus.Emit(ControllerTaskAdded, t)
	c.refresh()
}

func (c *Controller) onUpdate(args ...any) {
	id, ok := argAt[model.TaskID](args, 0)
	if !ok {
		c.logger.Warn("ui:task-update: bad payload")
		return
	}
	patch, ok := argAt[Patch](args, 1)
	if !ok {
		c.logger.Warn("ui:task-update: bad patch")
		return
	}
	t, err := c.svc.Update(context.Background(), id, patch)
	if err != nil {
		c.fail("update", err)
		return
	}
	c.bus.Emit(ControllerTaskUpdated, t)
	c.refresh()
}

func (c *Controller) onDelete(args ...any) {
	id, ok := argAt[model.TaskID](args, 0)
	if !ok {
		c.logger.Warn("ui:task-delete: bad payload")
		return
	}
	if _, err := c.svc.Delete(context.Background(), id); err != nil {
		c.fail("delete", err)
		return
	}
	c.bus.Emit(ControllerTaskDeleted, id)
	c.refresh()
}

func (c *Controller) onToggle(args ...any) {
	id, ok := argAt[model.TaskID](args, 0)
	if !ok {
		c.logger.Warn("ui:task-toggle: bad payload")
		return
	}
	t, err := c.svc.Toggle(context.Background(), id)
	if err != nil {
		c.fail("toggle", err)
		return
	}
	c.bus.Emit(ControllerTaskUpdated, t)
	c.refresh()
}

func (c *Controller) onFilterChange(args ...any) {
	patch, ok := argAt[FilterPatch](args, 0)
	if !ok {
		c.logger.Warn("ui:filter-change: bad payload")
		return
	}
	c.filter = c.filter.Merge(patch)
	c.refresh()
}

func (c *Controller) onBackup(args ...any) {
	snap, err := c.svc.Backup(context.Background())
	if err != nil {
		c.fail("backup", err)
		return
	}
	c.bus.Emit(ControllerBackupReady, snap)
}

func (c *Controller) onRestore(args ...any) {
	snap, ok := argAt[string](args, 0)
	if !ok {
		c.logger.Warn("ui:restore-request: bad payload")
		return
	}
	if err := c.svc.Restore(context.Background(), snap); err != nil {
		c.fail("restore", err)
		return
	}
	c.bus.Emit(ControllerRestoreDone, c.svc.repo.Len())
	c.refresh()
}

func argAt[T any](args []any, i int) (T, bool) {
	var zero T
	if i >= len(args) {
		return zero, false
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, false
	}
	return v, true
}
