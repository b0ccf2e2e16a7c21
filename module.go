package injector

import (
	"github.com/jingyiliu/injector/internal/errs"
)

// Module is a named bundle of registrations applied in one call.
// Submodules are applied first, then the module's own entries in the order
// they were added.
type Module struct {
	name       string
	entries    []func(c *Container) error
	submodules []*Module
}

func NewModule(name string) *Module {
	return &Module{
		name: name,
	}
}

func (m *Module) Name() string {
	return m.name
}

// Add records an arbitrary registration step.
func (m *Module) Add(fn func(c *Container) error) *Module {
	m.entries = append(m.entries, fn)
	return m
}

func (m *Module) Include(submodule *Module) *Module {
	m.submodules = append(m.submodules, submodule)
	return m
}

func (m *Module) apply(c *Container) error {
	for _, sub := range m.submodules {
		if err := sub.apply(c); err != nil {
			return err
		}
	}

	for _, entry := range m.entries {
		if err := entry(c); err != nil {
			return err
		}
	}

	return nil
}

// Apply applies modules in order and stops at the first failure.
func (c *Container) Apply(modules ...*Module) error {
	for _, m := range modules {
		if err := m.apply(c); err != nil {
			return errModuleApplyFailed(m.name, err)
		}
	}
	if c.config.validateOnApply {
		return c.Validate()
	}
	return nil
}

func errModuleApplyFailed(moduleName string, cause error) *Error {
	code := errs.CodeConfiguration
	if e, ok := errs.As(cause); ok {
		code = e.Code
	}
	return errs.New(code, "failed to apply module "+moduleName, cause)
}

func ModuleRegister[C any](m *Module, constructor any, opts ...RegisterOption) *Module {
	return m.Add(func(c *Container) error {
		_, err := Register[C](c, constructor, opts...)
		return err
	})
}

func ModuleRegisterType[C, S any](m *Module, opts ...RegisterOption) *Module {
	return m.Add(func(c *Container) error {
		_, err := RegisterType[C, S](c, opts...)
		return err
	})
}

func ModuleRegisterFactory[C any](m *Module, fn Factory[C], opts ...RegisterOption) *Module {
	return m.Add(func(c *Container) error {
		_, err := RegisterFactory(c, fn, opts...)
		return err
	})
}

func ModuleRegisterInstance[C any](m *Module, value C, opts ...RegisterOption) *Module {
	return m.Add(func(c *Container) error {
		_, err := RegisterInstance(c, value, opts...)
		return err
	})
}

func ModuleRegisterGeneric[T any](m *Module, factory GenericFactory, opts ...RegisterOption) *Module {
	return m.Add(func(c *Container) error {
		return RegisterGeneric[T](c, factory, opts...)
	})
}
