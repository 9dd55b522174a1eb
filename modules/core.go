// Package modules contains the module system used to wire up the consensus core.
// The module system allows us to use different implementations of key components,
// such as the crypto module or the storage module,
// and ensures that each module has access to the other modules it depends on.
//
// There are two main reasons one might want to use the module system for a component:
//
// 1. To give the component access to other modules.
//
// 2. To give other modules access to the component.
//
// To be able to access other modules from a struct, you will need to implement the Module interface from this package.
// The InitModule method of the Module interface gives your struct a pointer to the Core object, which can be used
// to obtain pointers to the other modules.
// If your module will be interacting with the event loop,
// then this method is the preferred location to set up handlers for events.
//
// Finally, to set up the module system and its modules, you must create a Builder using the NewBuilder function,
// and then add all your modules to the builder using the Add method. For example:
//
//	builder := modules.NewBuilder(1, privKey)
//	builder.Add(logging.New("replica1"))
//	mods := builder.Build()
//
// If two modules satisfy the same interface, then the one that was registered last will be returned by the module system,
// though note that both modules will be initialized if they implement the Module interface.
//
// After building the module system, you can use the TryGet or Get methods to get pointers to the modules:
//
//	var module MyModule
//	mods.Get(&module)
package modules

import (
	"fmt"
	"reflect"

	"github.com/kengeo/libra"
)

// Module is an interface for initializing modules.
type Module interface {
	InitModule(mods *Core)
}

// Core is the base of the module system.
// It stores the modules and allows them to look each other up by type.
type Core struct {
	modules []any
}

// TryGet attempts to find a module for ptr.
// TryGet returns true if a module was stored in ptr, false otherwise.
//
// NOTE: ptr must be a non-nil pointer to a type that has been provided to the module system.
//
// Example:
//
//	builder := modules.NewBuilder(1, privKey)
//	builder.Add(MyModuleImpl{})
//	mods := builder.Build()
//
//	var module MyModule
//	if mods.TryGet(&module) {
//		// success
//	}
func (mods *Core) TryGet(ptr any) bool {
	v := reflect.ValueOf(ptr)
	if !v.IsValid() {
		panic("nil value given")
	}
	pt := v.Type()
	if pt.Kind() != reflect.Ptr {
		panic("only pointer values allowed")
	}

	for _, m := range mods.modules {
		mv := reflect.ValueOf(m)
		if mv.Type().AssignableTo(pt.Elem()) {
			v.Elem().Set(mv)
			return true
		}
	}

	return false
}

// Get finds compatible modules for the given pointers.
//
// NOTE: pointers must only contain non-nil pointers to types that have been provided to the module system.
// Get panics if one of the given arguments is not a pointer, or if a compatible module is not found.
func (mods *Core) Get(pointers ...any) {
	if len(pointers) == 0 {
		panic("no pointers given")
	}
	for _, ptr := range pointers {
		if !mods.TryGet(ptr) {
			panic(fmt.Sprintf("module of type %s not found", reflect.TypeOf(ptr).Elem()))
		}
	}
}

// Builder is a helper for setting up the modules.
type Builder struct {
	core    Core
	modules []Module
	opts    *Options
}

// NewBuilder returns a new builder.
func NewBuilder(id libra.ID, pk libra.PrivateKey) Builder {
	return Builder{
		opts: &Options{
			id:         id,
			privateKey: pk,
		},
	}
}

// Options returns the options module.
func (b *Builder) Options() *Options {
	return b.opts
}

// Add adds existing module instances to the builder.
func (b *Builder) Add(modules ...any) {
	b.core.modules = append(b.core.modules, modules...)
	for _, module := range modules {
		if m, ok := module.(Module); ok {
			b.modules = append(b.modules, m)
		}
	}
}

// Build initializes all added modules and returns the Core object.
func (b *Builder) Build() *Core {
	// reverse the order of the added modules so that TryGet will find the latest first.
	for i, j := 0, len(b.core.modules)-1; i < j; i, j = i+1, j-1 {
		b.core.modules[i], b.core.modules[j] = b.core.modules[j], b.core.modules[i]
	}
	// add the Options last so that it can be overridden by the user.
	b.Add(b.opts)
	for _, module := range b.modules {
		module.InitModule(&b.core)
	}
	return &b.core
}
