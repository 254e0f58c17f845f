package gridio

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Factory creates a configured Module.
type Factory func(opt Options) Module

// Registry maps module names to the factories which create them.
type Registry struct {
	factories map[string]Factory
	exts      map[string]string
}

// coreModules is the list of all modules that are compiled into vizgrid.
var coreModules = []Factory{
	func(opt Options) Module { return NewMeshTally(opt) },
	func(opt Options) Module { return NewReservoir(opt) },
}

// Default is the Registry holding every core module.
var Default = NewRegistry(coreModules...)

// NewRegistry creates a Registry containing the given modules.
func NewRegistry(factories ...Factory) *Registry {
	r := &Registry{factories: map[string]Factory{}, exts: map[string]string{}}
	for _, f := range factories {
		if err := r.Register(f); err != nil {
			panic(fmt.Sprintf("Internal error: %s", err.Error()))
		}
	}
	return r
}

// Register adds a module to the registry. The module's name and extensions
// are found by creating a module with default Options.
func (r *Registry) Register(f Factory) error {
	m := f(Options{})
	name := m.Name()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("A module named '%s' has already been registered.",
			name)
	}

	exts := m.Extensions()
	for i := range exts {
		ext := strings.ToLower(exts[i])
		if other, ok := r.exts[ext]; ok {
			return fmt.Errorf("The modules '%s' and '%s' both claim the "+
				"extension '%s'.", other, name, ext)
		}
	}

	for i := range exts {
		r.exts[strings.ToLower(exts[i])] = name
	}
	r.factories[name] = f

	return nil
}

// Create creates the named module with the given Options.
func (r *Registry) Create(name string, opt Options) (Module, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("There is no module named '%s'. The valid "+
			"modules are %s.", name, r.Names())
	}
	return f(opt), nil
}

// Names returns the names of every registered module in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect returns the name of the module associated with a file's extension.
func (r *Registry) Detect(fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if name, ok := r.exts[ext]; ok {
		return name, nil
	}
	return "", fmt.Errorf("Can't tell which module should read %s from its "+
		"extension, '%s'. Specify the module explicitly. The valid modules "+
		"are %s.", fileName, ext, r.Names())
}
