// Package registry provides a generic thread-safe registry for values
// indexed by key.
//
// The typical use is a table of named constructors chosen by configuration:
//
//	drivers := registry.New[string, func(config.Config) (docstore.Store, error)]("store driver")
//	drivers.Register("memory", newMemoryStore)
//	drivers.Register("mongo", newMongoStore)
//
//	open, err := drivers.Lookup(cfg.String("store.driver", "memory"))
//	if err != nil {
//	    return err // unknown store driver "x" (known: memory, mongo)
//	}
//
// All methods are safe for concurrent use.
package registry
