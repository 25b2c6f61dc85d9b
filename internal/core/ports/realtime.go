package ports

import "microtask/internal/core/domain/entities"

type Subscription interface {
	Unsubscribe()
}

// Realtime delivers server-pushed change events on the tasks and messages
// collections. Handlers are invoked sequentially per event source; a handler
// must not block for long.
type Realtime interface {
	SubscribeTasks(fn func(entities.TaskChange)) Subscription
	SubscribeMessages(fn func(entities.MessageChange)) Subscription
}
