// Package injector is a runtime dependency injection engine for Go 1.25+.
//
// Registrations map a contract type to a construction recipe. Object graphs
// are resolved on demand, lifetimes decide how instances are shared, and
// registrations may be added or removed while the container is in use:
// services bound to a removed builder rebind to a replacement on their next
// use.
//
// # Quick Start
//
//	c := injector.New()
//
//	injector.Register[Logger](c, NewConsoleLogger, injector.WithLifetime(injector.Singleton))
//	injector.Register[ReportService](c, NewReportService)
//
//	svc, err := injector.Resolve[ReportService](ctx, c)
//
// # Recipes
//
//	injector.Register[C](c, constructor)       // call a constructor, autowiring its parameters
//	injector.RegisterType[C, *S](c)            // allocate S and fill its inject-tagged fields
//	injector.RegisterFactory[C](c, factory)    // call func(ctx, Resolver) (C, error)
//	injector.RegisterInstance[C](c, value)     // share an existing value
//
// Parameters whose types are interfaces, pointers or collections of those
// are autowired. Other types (strings, numbers, maps, functions...) need a
// value through WithParam, WithNamedParam, WithParamFactory or an override
// at resolution time:
//
//	injector.Register[Store](c, NewStore,
//	    injector.WithParamNames("dsn"),
//	    injector.WithNamedParam("dsn", "postgres://localhost/app"),
//	)
//
// A context.Context parameter receives the resolution context and a
// Resolver parameter receives the scope that is resolving.
//
// # Struct Injection
//
// Exported fields tagged with inject are autowired. The tag value lists the
// attributes of the target, used by WhenTargetHas:
//
//	type Handler struct {
//	    Log     Logger    `inject:""`
//	    Primary Store     `inject:"primary"`
//	    Plugins []Plugin  `inject:""`
//	    Skipped Logger    `inject:"-"`
//	}
//
// # Lifetimes and Scopes
//
//	injector.Transient   // new instance per request
//	injector.Scoped      // reused from the scope or an ancestor, else cached in the scope
//	injector.Singleton   // one instance per container
//
// Scoped services need a scope:
//
//	s, _ := c.BeginScope()
//	defer s.Dispose()
//	uow, err := injector.Resolve[*UnitOfWork](ctx, s)
//
// Dispose disposes every io.Closer or Disposable the scope owns, newest
// first and exactly once. A scope cannot end while nested scopes are open.
//
// # Collections and Ranking
//
// Several builders may serve one contract. Lower rankings come first; the
// lowest wins single lookups and ties go to the most recent registration.
// Collection dependencies ([]T, [N]T, *Queue[T], *Stack[T]) receive every
// matching builder in ranked order and follow later registrations.
//
// # Conditions
//
//	injector.Register[Logger](c, NewAuditLogger,
//	    injector.When(injector.WhenInjectedInto[*PaymentService]()),
//	)
//
// # Open Generics
//
//	injector.RegisterGeneric[*Repository[any]](c, nil, injector.WithLifetime(injector.Scoped))
//	repo, err := injector.Resolve[*Repository[User]](ctx, s)
//
// # Errors
//
// Every error is an *Error carrying an ErrorCode, the service concerned and,
// for resolution failures, the chain of concrete types being built. Codes
// fall into four categories: precondition, configuration, resolution and
// lifetime-scope.
//
// # Observability
//
// WithLogger takes a zerolog.Logger. WithTracerProvider and
// WithMeterProvider report spans and metrics for each top-level resolution
// and each disposal. LoadConfig reads the same settings from a file and
// INJECTOR_* environment variables.
package injector
