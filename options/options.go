package options

import (
	"errors"
	"sort"
	"sync"
)

type (
	// Options is option set.
	Options interface {
		SetOption(opt Option, val interface{}) (err error)
		WithOption(opt Option, val interface{}) Options
		GetOption(opt Option) (val interface{}, ok bool)
		OptionValues() OptionValues
		AddOptionChangeHook(hook OptionChangeHook)
	}

	// Option is an option item.
	Option interface {
		Name() string
		Default() interface{}
		// Validate checks the value and returns it converted to the option's type.
		Validate(val interface{}) (interface{}, error)
		// Parse converts a textual value, as found in addresses and config files.
		Parse(s string) (interface{}, error)
	}

	// OptionValues is a group of option values.
	OptionValues map[Option]interface{}

	// OptionChangeHook is called after an option value is changed.
	OptionChangeHook func(opt Option, oldVal, newVal interface{}) error

	options struct {
		sync.RWMutex
		opts  OptionValues
		hooks []OptionChangeHook
	}
)

// errors
var (
	ErrInvalidOptionValue = errors.New("invalid option value")
	ErrUnknownOption      = errors.New("unknown option")
)

// NewOptions create an option set.
func NewOptions() Options {
	return &options{
		opts: make(OptionValues),
	}
}

// NewOptionsWithValues create an option set with initial values.
// Invalid values are ignored.
func NewOptionsWithValues(ovs OptionValues) Options {
	opts := &options{
		opts: make(OptionValues, len(ovs)),
	}
	for opt, val := range ovs {
		if v, err := opt.Validate(val); err == nil {
			opts.opts[opt] = v
		}
	}
	return opts
}

// SetOption set an option value, the value is validated first.
func (opts *options) SetOption(opt Option, val interface{}) (err error) {
	if val, err = opt.Validate(val); err != nil {
		return
	}

	opts.Lock()
	oldVal := opts.opts[opt]
	opts.opts[opt] = val
	hooks := opts.hooks
	opts.Unlock()

	for _, hook := range hooks {
		if err = hook(opt, oldVal, val); err != nil {
			return
		}
	}
	return
}

// WithOption set an option value and returns the option set, errors are ignored.
func (opts *options) WithOption(opt Option, val interface{}) Options {
	opts.SetOption(opt, val)
	return opts
}

// GetOption get an option value.
func (opts *options) GetOption(opt Option) (val interface{}, ok bool) {
	opts.RLock()
	val, ok = opts.opts[opt]
	opts.RUnlock()
	return
}

func (opts *options) OptionValues() OptionValues {
	opts.RLock()
	defer opts.RUnlock()

	ovs := make(OptionValues, len(opts.opts))
	for opt, val := range opts.opts {
		ovs[opt] = val
	}
	return ovs
}

func (opts *options) AddOptionChangeHook(hook OptionChangeHook) {
	opts.Lock()
	opts.hooks = append(opts.hooks, hook)
	opts.Unlock()
}

// valueFrom find the first value of opt in opts, or the option's default.
func valueFrom(opt Option, opts []Options) interface{} {
	for _, o := range opts {
		if o == nil {
			continue
		}
		if val, ok := o.GetOption(opt); ok {
			return val
		}
	}
	return opt.Default()
}

// Merge returns a new OptionValues with values of later groups overriding earlier ones.
func Merge(ovses ...OptionValues) OptionValues {
	res := OptionValues{}
	for _, ovs := range ovses {
		for opt, val := range ovs {
			res[opt] = val
		}
	}
	return res
}

var registry struct {
	sync.RWMutex
	byName map[string]Option
}

func init() {
	registry.byName = make(map[string]Option)
}

func register(opt Option) {
	registry.Lock()
	registry.byName[opt.Name()] = opt
	registry.Unlock()
}

// Lookup find a registered option by name.
func Lookup(name string) (opt Option, ok bool) {
	registry.RLock()
	opt, ok = registry.byName[name]
	registry.RUnlock()
	return
}

// Names returns all registered option names, sorted.
func Names() []string {
	registry.RLock()
	names := make([]string, 0, len(registry.byName))
	for name := range registry.byName {
		names = append(names, name)
	}
	registry.RUnlock()
	sort.Strings(names)
	return names
}

// ParseOptionValues converts named values into OptionValues.
// String values are parsed, other values are validated.
func ParseOptionValues(values map[string]interface{}) (OptionValues, error) {
	ovs := OptionValues{}
	for name, raw := range values {
		opt, ok := Lookup(name)
		if !ok {
			return nil, &OptionError{Name: name, Err: ErrUnknownOption}
		}
		var (
			val interface{}
			err error
		)
		if s, isStr := raw.(string); isStr {
			val, err = opt.Parse(s)
		} else {
			val, err = opt.Validate(raw)
		}
		if err != nil {
			return nil, &OptionError{Name: name, Err: err}
		}
		ovs[opt] = val
	}
	return ovs, nil
}

// OptionError is an error about a named option.
type OptionError struct {
	Name string
	Err  error
}

func (e *OptionError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

func (e *OptionError) Unwrap() error {
	return e.Err
}
