package task

// Domain events emitted by the repository and service. Payload shapes are
// documented next to each name; arguments are positional.
const (
	EventTaskAdded       = "task:added"       // (*Task)
	EventTaskUpdated     = "task:updated"     // (*Task, model.Record old snapshot)
	EventTaskDeleted     = "task:deleted"     // (model.TaskID, *Task)
	EventTaskCompleted   = "task:completed"   // (*Task)
	EventTaskUncompleted = "task:uncompleted" // (*Task)
	EventTasksLoaded     = "tasks:loaded"     // ([]*Task)
	EventTasksSaved      = "tasks:saved"      // (count int)
	EventTasksFiltered   = "tasks:filtered"   // ([]*Task, Filter)
	EventStorageError    = "storage:error"    // (error, operation string)
	EventValidationError = "validation:error" // (message string, field string)
	EventServiceError    = "service:error"    // (message string, operation string)
)

// UI-intent events consumed by the controller.
const (
	UITaskCreate     = "ui:task-create"     // (Input, model.TaskType)
	UITaskUpdate     = "ui:task-update"     // (model.TaskID, Patch)
	UITaskDelete     = "ui:task-delete"     // (model.TaskID)
	UITaskToggle     = "ui:task-toggle"     // (model.TaskID)
	UIFilterChange   = "ui:filter-change"   // (FilterPatch)
	UIBackupRequest  = "ui:backup-request"  // ()
	UIRestoreRequest = "ui:restore-request" // (snapshot string)
)

// Controller events observed by the presentation layer.
const (
	ControllerRefresh     = "controller:refresh"      // ([]*Task, Filter)
	ControllerTaskAdded   = "controller:task-added"   // (*Task)
	ControllerTaskUpdated = "controller:task-updated" // (*Task)
	ControllerTaskDeleted = "controller:task-deleted" // (model.TaskID)
	ControllerBackupReady = "controller:backup-ready" // (snapshot string)
	ControllerRestoreDone = "controller:restore-done" // (count int)
	ControllerError       = "controller:error"        // (message string, operation string)
)
